package yvcommon

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Run a multicall query at the latest block, bound to the provided context
func query(ctx context.Context, qMgr *eth.QueryManager, queryFn func(mc *batch.MultiCaller) error) error {
	return qMgr.Query(queryFn, &bind.CallOpts{Context: ctx})
}

package yvcommon

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts/nexus"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

// The LiquidityNexus as a verification facility.
// Liquidity moves are sent by the depositor; governance changes are sent by the facility owner.
type NexusFacility struct {
	nexus     *nexus.LiquidityNexus
	qMgr      *eth.QueryManager
	depositor Actor
	owner     Actor
	deadline  *big.Int
}

// Create a new facility adapter
func NewNexusFacility(binding *nexus.LiquidityNexus, qMgr *eth.QueryManager, depositor Actor, owner Actor, deadline uint64) *NexusFacility {
	return &NexusFacility{
		nexus:     binding,
		qMgr:      qMgr,
		depositor: depositor,
		owner:     owner,
		deadline:  new(big.Int).SetUint64(deadline),
	}
}

func (f *NexusFacility) AvailableCapacity(ctx context.Context) (*big.Int, error) {
	var capacity *big.Int
	err := query(ctx, f.qMgr, func(mc *batch.MultiCaller) error {
		f.nexus.AvailableSpaceToDepositETH(mc, &capacity)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting available space to deposit ETH: %w", err)
	}
	return capacity, nil
}

func (f *NexusFacility) Deposit(ctx context.Context, amount *big.Int, recipient common.Address) (*big.Int, error) {
	before, err := f.BalanceOf(ctx, recipient)
	if err != nil {
		return nil, err
	}

	txInfo, err := f.nexus.AddLiquidityETH(recipient, f.deadline, f.depositor.CallerOpts(amount))
	if err != nil {
		return nil, fmt.Errorf("error getting TX info for addLiquidityETH: %w", err)
	}
	_, err = f.depositor.Submit(ctx, txInfo, "addLiquidityETH")
	if err != nil {
		return nil, err
	}

	after, err := f.BalanceOf(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return after.Sub(after, before), nil
}

func (f *NexusFacility) WithdrawAll(ctx context.Context, recipient common.Address) error {
	txInfo, err := f.nexus.RemoveAllLiquidityETH(recipient, f.deadline, f.depositor.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for removeAllLiquidityETH: %w", err)
	}
	_, err = f.depositor.Submit(ctx, txInfo, "removeAllLiquidityETH")
	return err
}

func (f *NexusFacility) PricePerShare(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := query(ctx, f.qMgr, func(mc *batch.MultiCaller) error {
		f.nexus.PricePerFullShare(mc, &price)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting facility price per full share: %w", err)
	}
	return price, nil
}

func (f *NexusFacility) BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error) {
	var balance *big.Int
	err := query(ctx, f.qMgr, func(mc *batch.MultiCaller) error {
		f.nexus.BalanceOf(mc, &balance, identity)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting facility balance of %s: %w", identity.Hex(), err)
	}
	return balance, nil
}

func (f *NexusFacility) SetGovernance(ctx context.Context, identity common.Address) error {
	txInfo, err := f.nexus.SetGovernance(identity, f.owner.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for setGovernance: %w", err)
	}
	_, err = f.owner.Submit(ctx, txInfo, "setGovernance")
	return err
}

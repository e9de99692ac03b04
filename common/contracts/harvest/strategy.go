package harvest

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

const (
	strategyAbiString string = `[{"inputs":[],"name":"investedUnderlyingBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"vault","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"withdrawAllToVault","outputs":[],"stateMutability":"nonpayable","type":"function"}]`
)

// ABI cache
var strategyAbi abi.ABI
var strategyOnce sync.Once

// Binding for a Harvest strategy
type Strategy struct {
	Address  common.Address
	contract *eth.Contract
	txMgr    *eth.TransactionManager
}

// Create a new Strategy instance
func NewStrategy(address common.Address, ec eth.IExecutionClient, txMgr *eth.TransactionManager) (*Strategy, error) {
	// Parse the ABI
	var err error
	strategyOnce.Do(func() {
		var parsedAbi abi.ABI
		parsedAbi, err = abi.JSON(strings.NewReader(strategyAbiString))
		if err == nil {
			strategyAbi = parsedAbi
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing Strategy ABI: %w", err)
	}

	// Create the contract
	contract := &eth.Contract{
		ContractImpl: bind.NewBoundContract(address, strategyAbi, ec, ec, ec),
		Address:      address,
		ABI:          &strategyAbi,
	}

	return &Strategy{
		Address:  address,
		contract: contract,
		txMgr:    txMgr,
	}, nil
}

// =============
// === Calls ===
// =============

// The amount of underlying the strategy holds, including what it has invested
func (c *Strategy) GetInvestedUnderlyingBalance(mc *batch.MultiCaller, out **big.Int) {
	eth.AddCallToMulticaller(mc, c.contract, out, "investedUnderlyingBalance")
}

func (c *Strategy) GetVault(mc *batch.MultiCaller, out *common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "vault")
}

// ====================
// === Transactions ===
// ====================

// Pull everything the strategy has invested back into its vault
func (c *Strategy) WithdrawAllToVault(opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "withdrawAllToVault", opts)
}

package harvest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

const (
	controllerAbiString string = `[{"inputs":[{"internalType":"address","name":"_vault","type":"address"}],"name":"doHardWork","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"_adr","type":"address"}],"name":"hardWorkers","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"governance","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`
)

// ABI cache
var controllerAbi abi.ABI
var controllerOnce sync.Once

// Binding for the Harvest controller, which triggers hard work (harvests) on vaults
type Controller struct {
	Address  common.Address
	contract *eth.Contract
	txMgr    *eth.TransactionManager
}

// Create a new Controller instance
func NewController(address common.Address, ec eth.IExecutionClient, txMgr *eth.TransactionManager) (*Controller, error) {
	// Parse the ABI
	var err error
	controllerOnce.Do(func() {
		var parsedAbi abi.ABI
		parsedAbi, err = abi.JSON(strings.NewReader(controllerAbiString))
		if err == nil {
			controllerAbi = parsedAbi
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing Controller ABI: %w", err)
	}

	// Create the contract
	contract := &eth.Contract{
		ContractImpl: bind.NewBoundContract(address, controllerAbi, ec, ec, ec),
		Address:      address,
		ABI:          &controllerAbi,
	}

	return &Controller{
		Address:  address,
		contract: contract,
		txMgr:    txMgr,
	}, nil
}

// =============
// === Calls ===
// =============

func (c *Controller) GetGovernance(mc *batch.MultiCaller, out *common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "governance")
}

// True if the address is allowed to call doHardWork
func (c *Controller) IsHardWorker(mc *batch.MultiCaller, out *bool, address common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "hardWorkers", address)
}

// ====================
// === Transactions ===
// ====================

// Harvest the vault's strategy and reinvest the proceeds
func (c *Controller) DoHardWork(vault common.Address, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "doHardWork", opts, vault)
}

package contracts

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
	"github.com/rocket-pool/node-manager-core/eth/contracts"
)

const (
	erc20AbiString string = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"owner","type":"address"},{"indexed":true,"internalType":"address","name":"spender","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Approval","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"},{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`
)

// ABI cache
var erc20Abi abi.ABI
var erc20Once sync.Once

// ERC20 binding with the transactions the node-manager-core binding doesn't expose
type Erc20 struct {
	contracts.IErc20Token
	contract *eth.Contract
	txMgr    *eth.TransactionManager
}

// Create a new Erc20 instance
func NewErc20(address common.Address, ec eth.IExecutionClient, qMgr *eth.QueryManager, txMgr *eth.TransactionManager, opts *bind.CallOpts) (*Erc20, error) {
	// Parse the ABI
	var err error
	erc20Once.Do(func() {
		var parsedAbi abi.ABI
		parsedAbi, err = abi.JSON(strings.NewReader(erc20AbiString))
		if err == nil {
			erc20Abi = parsedAbi
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing ERC20 ABI: %w", err)
	}

	// Create the contract
	contract := &eth.Contract{
		ContractImpl: bind.NewBoundContract(address, erc20Abi, ec, ec, ec),
		Address:      address,
		ABI:          &erc20Abi,
	}

	// Create the ERC20 binding
	erc20, err := contracts.NewErc20Contract(address, ec, qMgr, txMgr, opts)
	if err != nil {
		return nil, fmt.Errorf("error creating ERC20 binding for token %s: %w", address.Hex(), err)
	}

	return &Erc20{
		IErc20Token: erc20,
		contract:    contract,
		txMgr:       txMgr,
	}, nil
}

// =============
// === Calls ===
// =============

// Get the amount of tokens the spender is allowed to move on behalf of the owner
func (c *Erc20) Allowance(mc *batch.MultiCaller, out **big.Int, owner common.Address, spender common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "allowance", owner, spender)
}

// ====================
// === Transactions ===
// ====================

// Get info for approving a spender to move tokens on behalf of the sender
func (c *Erc20) Approve(spender common.Address, amount *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "approve", opts, spender, amount)
}

// Get info for transferring tokens from the sender to a recipient
func (c *Erc20) Transfer(to common.Address, amount *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "transfer", opts, to, amount)
}

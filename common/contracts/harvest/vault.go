package harvest

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
	nmccontracts "github.com/rocket-pool/node-manager-core/eth/contracts"
)

const (
	vaultAbiString string = `[{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"address","name":"holder","type":"address"}],"name":"depositFor","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[],"name":"getPricePerFullShare","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"strategy","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"underlying","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"underlyingBalanceWithInvestment","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"holder","type":"address"}],"name":"underlyingBalanceWithInvestmentForHolder","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"numberOfShares","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}]`
)

// ABI cache
var vaultAbi abi.ABI
var vaultOnce sync.Once

// Binding for a Harvest vault. Vault shares are an ERC20; the vault invests its underlying token through a strategy.
type Vault struct {
	nmccontracts.IErc20Token
	contract   *eth.Contract
	txMgr      *eth.TransactionManager
	underlying *contracts.Erc20
	strategy   common.Address
}

// Create a new Vault instance
func NewVault(address common.Address, ec eth.IExecutionClient, qMgr *eth.QueryManager, txMgr *eth.TransactionManager, opts *bind.CallOpts) (*Vault, error) {
	// Parse the ABI
	var err error
	vaultOnce.Do(func() {
		var parsedAbi abi.ABI
		parsedAbi, err = abi.JSON(strings.NewReader(vaultAbiString))
		if err == nil {
			vaultAbi = parsedAbi
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing Vault ABI: %w", err)
	}

	// Create the contract
	contract := &eth.Contract{
		ContractImpl: bind.NewBoundContract(address, vaultAbi, ec, ec, ec),
		Address:      address,
		ABI:          &vaultAbi,
	}

	// Get the details
	var underlying common.Address
	var strategy common.Address
	err = qMgr.Query(func(mc *batch.MultiCaller) error {
		eth.AddCallToMulticaller(mc, contract, &underlying, "underlying")
		eth.AddCallToMulticaller(mc, contract, &strategy, "strategy")
		return nil
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("error getting details of vault %s: %w", address.Hex(), err)
	}
	underlyingBinding, err := contracts.NewErc20(underlying, ec, qMgr, txMgr, opts)
	if err != nil {
		return nil, fmt.Errorf("error creating ERC20 binding for vault underlying %s: %w", underlying.Hex(), err)
	}

	// Create the ERC20 binding for the shares
	erc20, err := nmccontracts.NewErc20Contract(address, ec, qMgr, txMgr, opts)
	if err != nil {
		return nil, fmt.Errorf("error creating ERC20 binding for vault: %w", err)
	}

	return &Vault{
		IErc20Token: erc20,
		contract:    contract,
		txMgr:       txMgr,
		underlying:  underlyingBinding,
		strategy:    strategy,
	}, nil
}

// The token the vault accepts on deposit
func (c *Vault) Underlying() *contracts.Erc20 {
	return c.underlying
}

// The address of the strategy currently investing the vault's funds
func (c *Vault) StrategyAddress() common.Address {
	return c.strategy
}

// =============
// === Calls ===
// =============

// The value of one share in underlying tokens, scaled by 1e18
func (c *Vault) GetPricePerFullShare(mc *batch.MultiCaller, out **big.Int) {
	eth.AddCallToMulticaller(mc, c.contract, out, "getPricePerFullShare")
}

// The amount of underlying a holder could redeem, including what's invested in the strategy
func (c *Vault) UnderlyingBalanceWithInvestmentForHolder(mc *batch.MultiCaller, out **big.Int, holder common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "underlyingBalanceWithInvestmentForHolder", holder)
}

// ====================
// === Transactions ===
// ====================

// Deposit underlying tokens and mint shares to the sender. The vault must be approved to move the tokens first.
func (c *Vault) Deposit(amount *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "deposit", opts, amount)
}

// Burn shares from the sender and return the matching underlying tokens
func (c *Vault) Withdraw(shares *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "withdraw", opts, shares)
}

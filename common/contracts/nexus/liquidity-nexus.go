package nexus

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
)

const (
	liquidityNexusAbiString string = `[{"inputs":[{"internalType":"address","name":"beneficiary","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"addLiquidityETH","outputs":[{"internalType":"uint256","name":"amountToken","type":"uint256"},{"internalType":"uint256","name":"amountETH","type":"uint256"},{"internalType":"uint256","name":"liquidity","type":"uint256"}],"stateMutability":"payable","type":"function"},{"inputs":[],"name":"availableSpaceToDepositETH","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"depositCapital","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[],"name":"governance","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"owner","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"pricePerFullShare","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"beneficiary","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"removeAllLiquidityETH","outputs":[{"internalType":"uint256","name":"exitETH","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"_governance","type":"address"}],"name":"setGovernance","outputs":[],"stateMutability":"nonpayable","type":"function"}]`
)

// ABI cache
var liquidityNexusAbi abi.ABI
var liquidityNexusOnce sync.Once

// Binding for a LiquidityNexus pool, which pairs ETH deposits with capital provided by its owner.
// The Nexus is also an ERC20; its tokens are the LP position units.
type LiquidityNexus struct {
	*contracts.Erc20
	contract *eth.Contract
	txMgr    *eth.TransactionManager
}

// Create a new LiquidityNexus instance
func NewLiquidityNexus(address common.Address, ec eth.IExecutionClient, qMgr *eth.QueryManager, txMgr *eth.TransactionManager, opts *bind.CallOpts) (*LiquidityNexus, error) {
	// Parse the ABI
	var err error
	liquidityNexusOnce.Do(func() {
		var parsedAbi abi.ABI
		parsedAbi, err = abi.JSON(strings.NewReader(liquidityNexusAbiString))
		if err == nil {
			liquidityNexusAbi = parsedAbi
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing LiquidityNexus ABI: %w", err)
	}

	// Create the contract
	contract := &eth.Contract{
		ContractImpl: bind.NewBoundContract(address, liquidityNexusAbi, ec, ec, ec),
		Address:      address,
		ABI:          &liquidityNexusAbi,
	}

	// Create the ERC20 binding for the LP token
	erc20, err := contracts.NewErc20(address, ec, qMgr, txMgr, opts)
	if err != nil {
		return nil, fmt.Errorf("error creating LiquidityNexus ERC20 binding: %w", err)
	}

	return &LiquidityNexus{
		Erc20:    erc20,
		contract: contract,
		txMgr:    txMgr,
	}, nil
}

// =============
// === Calls ===
// =============

// How much ETH can currently be deposited and paired with the Nexus's capital
func (c *LiquidityNexus) AvailableSpaceToDepositETH(mc *batch.MultiCaller, out **big.Int) {
	eth.AddCallToMulticaller(mc, c.contract, out, "availableSpaceToDepositETH")
}

// The value of one LP unit in ETH, scaled by 1e18
func (c *LiquidityNexus) PricePerFullShare(mc *batch.MultiCaller, out **big.Int) {
	eth.AddCallToMulticaller(mc, c.contract, out, "pricePerFullShare")
}

func (c *LiquidityNexus) GetOwner(mc *batch.MultiCaller, out *common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "owner")
}

func (c *LiquidityNexus) GetGovernance(mc *batch.MultiCaller, out *common.Address) {
	eth.AddCallToMulticaller(mc, c.contract, out, "governance")
}

// ====================
// === Transactions ===
// ====================

// Deposit ETH (sent as the TX value) and mint LP units to the beneficiary
func (c *LiquidityNexus) AddLiquidityETH(beneficiary common.Address, deadline *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "addLiquidityETH", opts, beneficiary, deadline)
}

// Burn all of the sender's LP units and send the ETH to the beneficiary
func (c *LiquidityNexus) RemoveAllLiquidityETH(beneficiary common.Address, deadline *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "removeAllLiquidityETH", opts, beneficiary, deadline)
}

// Hand governance of the Nexus to a new address; owner only
func (c *LiquidityNexus) SetGovernance(governance common.Address, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "setGovernance", opts, governance)
}

// Move the owner's stablecoin capital into the Nexus so it can pair ETH deposits; owner only
func (c *LiquidityNexus) DepositCapital(amount *big.Int, opts *bind.TransactOpts) (*eth.TransactionInfo, error) {
	return c.txMgr.CreateTransactionInfo(c.contract, "depositCapital", opts, amount)
}

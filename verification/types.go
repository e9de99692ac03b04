package verification

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ==================
// === Interfaces ===
// ==================

// A simulated clock that only moves when told to
type Clock interface {
	// Advance simulated time by the given duration
	Advance(ctx context.Context, duration time.Duration) error
}

// A scoped ability to act as one or more identities on the simulated chain
type Session interface {
	// Stop acting as the session's identities
	Release(ctx context.Context) error
}

// The chain harness the procedure drives
type Harness interface {
	Clock

	// Start acting as the provided identities until the returned session is released
	Impersonate(ctx context.Context, identities ...common.Address) (Session, error)

	// Get the latest block height
	CurrentHeight(ctx context.Context) (uint64, error)

	// Get the native asset balance of an identity
	NativeBalance(ctx context.Context, identity common.Address) (*big.Int, error)
}

// The external liquidity facility that issues position units for native deposits
type Facility interface {
	// The amount of native asset the facility can currently accept
	AvailableCapacity(ctx context.Context) (*big.Int, error)

	// Deposit native asset on behalf of recipient, returning the number of position units minted
	Deposit(ctx context.Context, amount *big.Int, recipient common.Address) (*big.Int, error)

	// Withdraw the recipient's entire position back into its native balance
	WithdrawAll(ctx context.Context, recipient common.Address) error

	// The facility's internal price per position unit, scaled by 1e18
	PricePerShare(ctx context.Context) (*big.Int, error)

	// The number of position units held by an identity
	BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error)

	// Hand facility governance to the provided identity
	SetGovernance(ctx context.Context, identity common.Address) error
}

// The yield-bearing vault that wraps facility position units
type Vault interface {
	// The vault's on-chain address, used to identify it to the controller
	Address() common.Address

	// Deposit position units into the vault
	Deposit(ctx context.Context, amount *big.Int) error

	// Burn shares and return the matching position units
	Withdraw(ctx context.Context, shares *big.Int) error

	// The number of vault shares held by an identity
	BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error)

	// The vault's price per share, scaled by 1e18
	PricePerFullShare(ctx context.Context) (*big.Int, error)
}

// Triggers harvests on vaults
type Controller interface {
	TriggerHarvest(ctx context.Context, vault common.Address) error
}

// Prepares the external systems before a run (governance handoffs, capital funding)
type Provisioner interface {
	Provision(ctx context.Context) error
}

// Pulls all funds from the vault's strategy back into the vault
type StrategyExit interface {
	WithdrawAllToVault(ctx context.Context) error
}

// =============
// === Types ===
// =============

// Parameters for a single verification run
type Config struct {
	// The identity that deposits the principal and receives the proceeds
	Depositor common.Address

	// Identities to impersonate for the duration of the run
	Identities []common.Address

	// Native amount to deposit into the facility
	Principal *big.Int

	// Number of harvest cycles to run
	Cycles uint

	// Simulated time to wait before each harvest
	WaitPerCycle time.Duration
}

// A snapshot of a vault's share price at a given block
type SharePriceSample struct {
	BlockHeight uint64   `json:"blockHeight"`
	Price       *big.Int `json:"price"`
}

// The outcome of a single harvest cycle
type CycleResult struct {
	Index  uint             `json:"index"`
	Before SharePriceSample `json:"before"`
	After  SharePriceSample `json:"after"`

	// The vault share price expressed in the facility's underlying, scaled by 1e18
	UnderlyingPrice *big.Int `json:"underlyingPrice"`

	// UnderlyingPrice / Before.Price
	Growth float64 `json:"growth"`
}

// The realized result of a verification run. Yields are decimals, so 0.05 is 5%.
type YieldReport struct {
	Principal     *big.Int      `json:"principal"`
	StartBalance  *big.Int      `json:"startBalance"`
	FinalBalance  *big.Int      `json:"finalBalance"`
	Profit        *big.Int      `json:"profit"`
	SharesMinted  *big.Int      `json:"sharesMinted"`
	DurationHours float64       `json:"durationHours"`
	ProfitPercent float64       `json:"profitPercent"`
	DailyYield    float64       `json:"dailyYield"`
	APR           float64       `json:"apr"`
	APY           float64       `json:"apy"`
	Cycles        []CycleResult `json:"cycles,omitempty"`
}

package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rocket-pool/node-manager-core/eth"
	"github.com/stretchr/testify/require"
)

var (
	depositor  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	governance = common.HexToAddress("0xf00dD244228F51547f0563e60bCa65a30FBF5f7f")
	vaultAddr  = common.HexToAddress("0x0000000000000000000000000000000000031001")
)

// ===================
// === Fake world ===
// ===================

// A tiny in-memory chain: the facility's price per share grows a fixed amount every time the clock moves
type fakeChain struct {
	height           uint64
	native           map[common.Address]*big.Int
	growthPerAdvance *big.Int
	impersonated     []common.Address
	released         bool
	releaseErr       error

	facility *fakeFacility
}

type fakeSession struct {
	chain *fakeChain
}

func (s *fakeSession) Release(ctx context.Context) error {
	s.chain.released = true
	return s.chain.releaseErr
}

func (c *fakeChain) Impersonate(ctx context.Context, identities ...common.Address) (Session, error) {
	c.impersonated = append(c.impersonated, identities...)
	return &fakeSession{chain: c}, nil
}

func (c *fakeChain) Advance(ctx context.Context, duration time.Duration) error {
	c.height += uint64(duration / (12 * time.Second))
	c.facility.pricePerShare.Add(c.facility.pricePerShare, c.growthPerAdvance)
	return nil
}

func (c *fakeChain) CurrentHeight(ctx context.Context) (uint64, error) {
	return c.height, nil
}

func (c *fakeChain) NativeBalance(ctx context.Context, identity common.Address) (*big.Int, error) {
	balance, exists := c.native[identity]
	if !exists {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

type fakeFacility struct {
	chain         *fakeChain
	capacity      *big.Int
	pricePerShare *big.Int
	units         map[common.Address]*big.Int
	governance    common.Address
	depositCalls  int
}

func (f *fakeFacility) AvailableCapacity(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.capacity), nil
}

func (f *fakeFacility) Deposit(ctx context.Context, amount *big.Int, recipient common.Address) (*big.Int, error) {
	f.depositCalls++
	f.chain.native[recipient].Sub(f.chain.native[recipient], amount)
	units := new(big.Int).Mul(amount, priceScale)
	units.Quo(units, f.pricePerShare)
	f.balance(recipient).Add(f.balance(recipient), units)
	f.chain.height++
	return units, nil
}

func (f *fakeFacility) WithdrawAll(ctx context.Context, recipient common.Address) error {
	units := f.balance(recipient)
	value := new(big.Int).Mul(units, f.pricePerShare)
	value.Quo(value, priceScale)
	f.chain.native[recipient].Add(f.chain.native[recipient], value)
	units.SetUint64(0)
	f.chain.height++
	return nil
}

func (f *fakeFacility) PricePerShare(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.pricePerShare), nil
}

func (f *fakeFacility) BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance(identity)), nil
}

func (f *fakeFacility) SetGovernance(ctx context.Context, identity common.Address) error {
	f.governance = identity
	return nil
}

func (f *fakeFacility) balance(identity common.Address) *big.Int {
	balance, exists := f.units[identity]
	if !exists {
		balance = big.NewInt(0)
		f.units[identity] = balance
	}
	return balance
}

type fakeVault struct {
	facility   *fakeFacility
	owner      common.Address
	price      *big.Int
	shares     *big.Int
	redeemLoss *big.Int
}

func (v *fakeVault) Address() common.Address {
	return vaultAddr
}

func (v *fakeVault) Deposit(ctx context.Context, amount *big.Int) error {
	units := v.facility.balance(v.owner)
	if units.Cmp(amount) < 0 {
		return errors.New("insufficient position units")
	}
	units.Sub(units, amount)
	v.shares.Add(v.shares, amount)
	return nil
}

func (v *fakeVault) Withdraw(ctx context.Context, shares *big.Int) error {
	v.shares.Sub(v.shares, shares)
	returned := new(big.Int).Sub(shares, v.redeemLoss)
	units := v.facility.balance(v.owner)
	units.Add(units, returned)
	return nil
}

func (v *fakeVault) BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error) {
	if identity != v.owner {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(v.shares), nil
}

func (v *fakeVault) PricePerFullShare(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(v.price), nil
}

type fakeController struct {
	vault    *fakeVault
	harvests []common.Address

	// Misbehaviours
	priceBump *big.Int
	rebase    *big.Int
}

func (c *fakeController) TriggerHarvest(ctx context.Context, vault common.Address) error {
	c.harvests = append(c.harvests, vault)
	if c.priceBump != nil {
		c.vault.price.Add(c.vault.price, c.priceBump)
	}
	if c.rebase != nil {
		c.vault.shares.Add(c.vault.shares, c.rebase)
	}
	return nil
}

type fakeProvisioner struct {
	facility *fakeFacility
	calls    int
}

func (p *fakeProvisioner) Provision(ctx context.Context) error {
	p.calls++
	return p.facility.SetGovernance(ctx, governance)
}

type fakeExit struct {
	calls int
}

func (e *fakeExit) WithdrawAllToVault(ctx context.Context) error {
	e.calls++
	return nil
}

type world struct {
	chain      *fakeChain
	facility   *fakeFacility
	vault      *fakeVault
	controller *fakeController
}

// Builds the 1000 ETH / 10 x 12h scenario where the facility price grows from 1.000 to 1.002 over the run
func newWorld() *world {
	chain := &fakeChain{
		height: 12_000_000,
		native: map[common.Address]*big.Int{
			depositor: eth.EthToWei(5000),
		},
		growthPerAdvance: big.NewInt(2e14),
	}
	facility := &fakeFacility{
		chain:         chain,
		capacity:      eth.EthToWei(10000),
		pricePerShare: big.NewInt(1e18),
		units:         map[common.Address]*big.Int{},
	}
	chain.facility = facility
	vault := &fakeVault{
		facility:   facility,
		owner:      depositor,
		price:      big.NewInt(1e18),
		shares:     big.NewInt(0),
		redeemLoss: big.NewInt(0),
	}
	return &world{
		chain:      chain,
		facility:   facility,
		vault:      vault,
		controller: &fakeController{vault: vault},
	}
}

func (w *world) deps() Dependencies {
	return Dependencies{
		Harness:    w.chain,
		Facility:   w.facility,
		Vault:      w.vault,
		Controller: w.controller,
	}
}

func scenarioConfig() Config {
	return Config{
		Depositor:    depositor,
		Identities:   []common.Address{depositor, governance},
		Principal:    eth.EthToWei(1000),
		Cycles:       10,
		WaitPerCycle: 12 * time.Hour,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runWorld(t *testing.T, cfg Config, deps Dependencies) (*YieldReport, error) {
	procedure, err := NewProcedure(cfg, deps, testLogger())
	require.NoError(t, err)
	return procedure.Run(context.Background())
}

// =============
// === Tests ===
// =============

func TestRunEarnsYield(t *testing.T) {
	w := newWorld()
	provisioner := &fakeProvisioner{facility: w.facility}
	exit := &fakeExit{}
	deps := w.deps()
	deps.Provisioner = provisioner
	deps.StrategyExit = exit

	report, err := runWorld(t, scenarioConfig(), deps)
	require.NoError(t, err)

	// Profit is exactly the facility's appreciation
	require.Equal(t, 0, report.Profit.Cmp(eth.EthToWei(2)))
	require.Equal(t, 0, report.SharesMinted.Cmp(eth.EthToWei(1000)))
	require.Equal(t, 120.0, report.DurationHours)
	require.InDelta(t, 0.002, report.ProfitPercent, 1e-12)
	require.InDelta(t, 0.0004, report.DailyYield, 1e-12)
	require.InDelta(t, 0.146, report.APR, 1e-9)
	require.InDelta(t, math.Pow(1.0002, 730)-1, report.APY, 1e-9)
	require.InDelta(t, 0.157, report.APY, 1e-3)

	// Every cycle harvested the right vault without moving its price
	require.Len(t, report.Cycles, 10)
	require.Len(t, w.controller.harvests, 10)
	for i, cycle := range report.Cycles {
		require.Equal(t, uint(i+1), cycle.Index)
		require.Equal(t, vaultAddr, w.controller.harvests[i])
		require.Equal(t, 0, cycle.Before.Price.Cmp(cycle.After.Price))
		require.Greater(t, cycle.Growth, 1.0)
	}
	last := report.Cycles[9]
	require.Equal(t, 0, last.UnderlyingPrice.Cmp(big.NewInt(1002e15)))

	// Lifecycle hooks
	require.Equal(t, 1, provisioner.calls)
	require.Equal(t, governance, w.facility.governance)
	require.Equal(t, 1, exit.calls)
	require.Equal(t, []common.Address{depositor, governance}, w.chain.impersonated)
	require.True(t, w.chain.released)

	// The position was fully unwound
	require.Equal(t, 0, w.vault.shares.Sign())
	require.Equal(t, 0, w.facility.balance(depositor).Sign())
}

func TestRunPrincipalAtCapacity(t *testing.T) {
	w := newWorld()
	w.facility.capacity = eth.EthToWei(1000)

	_, err := runWorld(t, scenarioConfig(), w.deps())
	require.ErrorIs(t, err, ErrPrecondition)
	require.Equal(t, 0, w.facility.depositCalls)
	require.True(t, w.chain.released)
}

func TestRunHarvestMovesSharePrice(t *testing.T) {
	w := newWorld()
	w.controller.priceBump = big.NewInt(1)

	_, err := runWorld(t, scenarioConfig(), w.deps())
	require.ErrorIs(t, err, ErrInvariant)
	require.True(t, IsInvariantViolation(err))
	require.Len(t, w.controller.harvests, 1)
}

func TestRunHarvestRebasesShares(t *testing.T) {
	w := newWorld()
	w.controller.rebase = big.NewInt(1)

	_, err := runWorld(t, scenarioConfig(), w.deps())
	require.ErrorIs(t, err, ErrInvariant)
	require.Len(t, w.controller.harvests, 10)
}

func TestRunRedemptionNotOneToOne(t *testing.T) {
	w := newWorld()
	w.vault.redeemLoss = big.NewInt(1)

	_, err := runWorld(t, scenarioConfig(), w.deps())
	require.ErrorIs(t, err, ErrInvariant)
}

func TestRunWithoutGrowthHasNoProfit(t *testing.T) {
	w := newWorld()
	w.chain.growthPerAdvance = big.NewInt(0)

	_, err := runWorld(t, scenarioConfig(), w.deps())
	require.ErrorIs(t, err, ErrNoProfit)
}

func TestRunReleaseFailure(t *testing.T) {
	w := newWorld()
	w.chain.releaseErr = errors.New("node went away")

	report, err := runWorld(t, scenarioConfig(), w.deps())
	require.Error(t, err)
	require.Nil(t, report)
	require.ErrorContains(t, err, "node went away")
}

func TestNewProcedureRejectsBadInput(t *testing.T) {
	w := newWorld()
	tests := []struct {
		name   string
		mutate func(cfg *Config, deps *Dependencies)
	}{
		{"nil principal", func(cfg *Config, deps *Dependencies) { cfg.Principal = nil }},
		{"zero principal", func(cfg *Config, deps *Dependencies) { cfg.Principal = big.NewInt(0) }},
		{"no cycles", func(cfg *Config, deps *Dependencies) { cfg.Cycles = 0 }},
		{"no wait", func(cfg *Config, deps *Dependencies) { cfg.WaitPerCycle = 0 }},
		{"no harness", func(cfg *Config, deps *Dependencies) { deps.Harness = nil }},
		{"no controller", func(cfg *Config, deps *Dependencies) { deps.Controller = nil }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := scenarioConfig()
			deps := w.deps()
			test.mutate(&cfg, &deps)
			_, err := NewProcedure(cfg, deps, nil)
			require.ErrorIs(t, err, ErrPrecondition)
		})
	}
}

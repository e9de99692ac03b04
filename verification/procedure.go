package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/rocket-pool/node-manager-core/eth"
	"github.com/rocket-pool/node-manager-core/log"
)

// External systems the procedure drives
type Dependencies struct {
	Harness    Harness
	Facility   Facility
	Vault      Vault
	Controller Controller

	// Optional
	Provisioner  Provisioner
	StrategyExit StrategyExit
}

// Runs a fixed number of harvest cycles against a facility-backed vault and reports the realized yield.
// Every failure is fatal; nothing is retried.
type Procedure struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger
}

// Create a new verification procedure
func NewProcedure(cfg Config, deps Dependencies, logger *slog.Logger) (*Procedure, error) {
	if deps.Harness == nil || deps.Facility == nil || deps.Vault == nil || deps.Controller == nil {
		return nil, fmt.Errorf("%w: harness, facility, vault and controller are all required", ErrPrecondition)
	}
	if cfg.Principal == nil || cfg.Principal.Sign() <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", ErrPrecondition)
	}
	if cfg.Cycles == 0 {
		return nil, fmt.Errorf("%w: at least one harvest cycle is required", ErrPrecondition)
	}
	if cfg.WaitPerCycle <= 0 {
		return nil, fmt.Errorf("%w: wait per cycle must be positive", ErrPrecondition)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Procedure{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}, nil
}

// Run the procedure end to end
func (p *Procedure) Run(ctx context.Context) (report *YieldReport, err error) {
	harness := p.deps.Harness
	facility := p.deps.Facility
	vault := p.deps.Vault
	depositor := p.cfg.Depositor

	// Act as the configured identities for the whole run
	session, err := harness.Impersonate(ctx, p.cfg.Identities...)
	if err != nil {
		return nil, fmt.Errorf("error impersonating identities: %w", err)
	}
	defer func() {
		releaseErr := session.Release(ctx)
		if releaseErr == nil {
			return
		}
		p.logger.Warn("Error releasing impersonation session", log.Err(releaseErr))
		if err == nil {
			report = nil
			err = fmt.Errorf("error releasing impersonation session: %w", releaseErr)
		}
	}()

	// Prepare the external systems
	if p.deps.Provisioner != nil {
		err = p.deps.Provisioner.Provision(ctx)
		if err != nil {
			return nil, fmt.Errorf("error provisioning: %w", err)
		}
		p.logger.Info("Provisioned external systems")
	}

	startBalance, err := harness.NativeBalance(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting depositor start balance: %w", err)
	}

	// The facility must be able to take the whole principal
	capacity, err := facility.AvailableCapacity(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting facility capacity: %w", err)
	}
	if p.cfg.Principal.Cmp(capacity) >= 0 {
		return nil, fmt.Errorf("%w: principal %s must be less than the facility's available capacity %s", ErrPrecondition, p.cfg.Principal.String(), capacity.String())
	}

	sharesMinted, err := p.enter(ctx)
	if err != nil {
		return nil, err
	}
	sharesBefore, err := vault.BalanceOf(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting vault balance: %w", err)
	}

	cycles, err := p.runCycles(ctx)
	if err != nil {
		return nil, err
	}

	// Harvests may only move the price, never the share count
	sharesAfter, err := vault.BalanceOf(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting vault balance: %w", err)
	}
	if sharesAfter.Cmp(sharesBefore) != 0 {
		return nil, fmt.Errorf("%w: vault balance changed from %s to %s shares during harvests", ErrInvariant, sharesBefore.String(), sharesAfter.String())
	}
	p.logger.Info("Vault balance unchanged by harvests", slog.Float64("shares", eth.WeiToEth(sharesAfter)))

	err = p.exit(ctx, sharesMinted)
	if err != nil {
		return nil, err
	}

	endBalance, err := harness.NativeBalance(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting depositor end balance: %w", err)
	}
	report, err = ComputeReport(p.cfg.Principal, startBalance, endBalance, p.cfg.Cycles, p.cfg.WaitPerCycle)
	if err != nil {
		return nil, err
	}
	report.SharesMinted = sharesMinted
	report.Cycles = cycles
	p.logger.Info("Yield verified",
		slog.Float64("principal", eth.WeiToEth(report.Principal)),
		slog.Float64("profit", eth.WeiToEth(report.Profit)),
		slog.Float64("hours", report.DurationHours),
		slog.Float64("apr", report.APR),
		slog.Float64("apy", report.APY),
	)

	// Make sure the strategy can still be fully unwound
	if p.deps.StrategyExit != nil {
		err = p.deps.StrategyExit.WithdrawAllToVault(ctx)
		if err != nil {
			return nil, fmt.Errorf("error withdrawing strategy funds to the vault: %w", err)
		}
		p.logger.Info("Withdrew all strategy funds to the vault")
	}
	return report, nil
}

// Deposits the principal into the facility and the resulting position into the vault, returning the shares minted
func (p *Procedure) enter(ctx context.Context) (*big.Int, error) {
	facility := p.deps.Facility
	vault := p.deps.Vault
	depositor := p.cfg.Depositor

	units, err := facility.Deposit(ctx, p.cfg.Principal, depositor)
	if err != nil {
		return nil, fmt.Errorf("error depositing into the facility: %w", err)
	}
	p.logger.Info("Entered the facility",
		slog.Float64("principal", eth.WeiToEth(p.cfg.Principal)),
		slog.Float64("units", eth.WeiToEth(units)),
	)

	sharesBefore, err := vault.BalanceOf(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting vault balance: %w", err)
	}
	err = vault.Deposit(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("error depositing into the vault: %w", err)
	}
	sharesAfter, err := vault.BalanceOf(ctx, depositor)
	if err != nil {
		return nil, fmt.Errorf("error getting vault balance: %w", err)
	}

	// Shares are minted 1:1 against position units
	sharesMinted := new(big.Int).Sub(sharesAfter, sharesBefore)
	if sharesMinted.Cmp(units) != 0 {
		return nil, fmt.Errorf("%w: deposited %s position units but received %s shares", ErrInvariant, units.String(), sharesMinted.String())
	}
	p.logger.Info("Deposited into the vault", slog.Float64("shares", eth.WeiToEth(sharesMinted)))
	return sharesMinted, nil
}

// Advances time and harvests for every configured cycle
func (p *Procedure) runCycles(ctx context.Context) ([]CycleResult, error) {
	harness := p.deps.Harness
	vaultAddress := p.deps.Vault.Address()

	results := make([]CycleResult, 0, p.cfg.Cycles)
	for i := uint(1); i <= p.cfg.Cycles; i++ {
		err := harness.Advance(ctx, p.cfg.WaitPerCycle)
		if err != nil {
			return nil, fmt.Errorf("error advancing time for cycle %d: %w", i, err)
		}

		before, err := p.sample(ctx)
		if err != nil {
			return nil, fmt.Errorf("error sampling share price before harvest %d: %w", i, err)
		}
		err = p.deps.Controller.TriggerHarvest(ctx, vaultAddress)
		if err != nil {
			return nil, fmt.Errorf("error triggering harvest %d: %w", i, err)
		}
		after, err := p.sample(ctx)
		if err != nil {
			return nil, fmt.Errorf("error sampling share price after harvest %d: %w", i, err)
		}

		// Strict equality; a harvest must not move the share price on its own
		if after.Price.Cmp(before.Price) != 0 {
			return nil, fmt.Errorf("%w: harvest %d moved the share price from %s to %s", ErrInvariant, i, before.Price.String(), after.Price.String())
		}

		facilityPrice, err := p.deps.Facility.PricePerShare(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting facility price per share for cycle %d: %w", i, err)
		}
		price := underlyingPrice(after.Price, facilityPrice)
		result := CycleResult{
			Index:           i,
			Before:          before,
			After:           after,
			UnderlyingPrice: price,
			Growth:          ratio(price, before.Price),
		}
		results = append(results, result)
		p.logger.Info("Harvested",
			slog.Uint64("cycle", uint64(i)),
			slog.Uint64("block", after.BlockHeight),
			slog.String("oldSharePrice", before.Price.String()),
			slog.String("newSharePrice", price.String()),
			slog.Float64("growth", result.Growth),
		)
	}
	return results, nil
}

// Withdraws all shares from the vault and the whole position from the facility
func (p *Procedure) exit(ctx context.Context, sharesMinted *big.Int) error {
	facility := p.deps.Facility
	depositor := p.cfg.Depositor

	unitsBefore, err := facility.BalanceOf(ctx, depositor)
	if err != nil {
		return fmt.Errorf("error getting facility balance: %w", err)
	}
	err = p.deps.Vault.Withdraw(ctx, sharesMinted)
	if err != nil {
		return fmt.Errorf("error withdrawing from the vault: %w", err)
	}
	unitsAfter, err := facility.BalanceOf(ctx, depositor)
	if err != nil {
		return fmt.Errorf("error getting facility balance: %w", err)
	}

	// Shares redeem 1:1 for position units
	recovered := new(big.Int).Sub(unitsAfter, unitsBefore)
	if recovered.Cmp(sharesMinted) != 0 {
		return fmt.Errorf("%w: redeemed %s shares but recovered %s position units", ErrInvariant, sharesMinted.String(), recovered.String())
	}
	p.logger.Info("Withdrew from the vault", slog.Float64("units", eth.WeiToEth(recovered)))

	err = facility.WithdrawAll(ctx, depositor)
	if err != nil {
		return fmt.Errorf("error withdrawing from the facility: %w", err)
	}
	p.logger.Info("Exited the facility")
	return nil
}

// Takes a share price sample at the current block
func (p *Procedure) sample(ctx context.Context) (SharePriceSample, error) {
	height, err := p.deps.Harness.CurrentHeight(ctx)
	if err != nil {
		return SharePriceSample{}, fmt.Errorf("error getting block height: %w", err)
	}
	price, err := p.deps.Vault.PricePerFullShare(ctx)
	if err != nil {
		return SharePriceSample{}, fmt.Errorf("error getting vault share price: %w", err)
	}
	return SharePriceSample{
		BlockHeight: height,
		Price:       price,
	}, nil
}

// True if the error came from a broken invariant rather than a precondition or a collaborator failure
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariant)
}

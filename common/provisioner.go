package yvcommon

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts"
	"github.com/nodeset-org/yield-verifier/common/contracts/nexus"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Anything that can give identities native balance for gas
type GasFunder interface {
	EnsureBalance(ctx context.Context, identity common.Address, minimum *big.Int) (bool, error)
}

// Optional parts of provisioning
type ProvisionerOptions struct {
	// Moves the capital token into the facility before the run; skipped if nil
	CapitalToken  *contracts.Erc20
	CapitalWhale  Actor
	CapitalAmount *big.Int

	// Tops up impersonated identities so they can pay for gas; skipped if nil
	Funder        GasFunder
	GasTopUp      *big.Int
	GasRecipients []common.Address

	// Makes sure the depositor can cover the principal and its gas; skipped if nil
	DepositorFunding *DepositorFunding
}

// The minimum native balance the depositor needs before the run starts
type DepositorFunding struct {
	Depositor common.Address
	Minimum   *big.Int
}

// Prepares the LiquidityNexus for a run: hands its governance to the vault's strategy and seeds it with capital
type NexusProvisioner struct {
	facility *NexusFacility
	nexus    *nexus.LiquidityNexus
	strategy common.Address
	owner    Actor
	opts     ProvisionerOptions
	logger   *slog.Logger
}

// Create a new provisioner
func NewNexusProvisioner(facility *NexusFacility, binding *nexus.LiquidityNexus, strategy common.Address, owner Actor, opts ProvisionerOptions, logger *slog.Logger) *NexusProvisioner {
	return &NexusProvisioner{
		facility: facility,
		nexus:    binding,
		strategy: strategy,
		owner:    owner,
		opts:     opts,
		logger:   logger,
	}
}

func (p *NexusProvisioner) Provision(ctx context.Context) error {
	// Make sure everyone can pay for gas
	if p.opts.Funder != nil {
		for _, identity := range p.opts.GasRecipients {
			_, err := p.opts.Funder.EnsureBalance(ctx, identity, p.opts.GasTopUp)
			if err != nil {
				return fmt.Errorf("error funding %s for gas: %w", identity.Hex(), err)
			}
		}
		funding := p.opts.DepositorFunding
		if funding != nil {
			_, err := p.opts.Funder.EnsureBalance(ctx, funding.Depositor, funding.Minimum)
			if err != nil {
				return fmt.Errorf("error funding depositor %s: %w", funding.Depositor.Hex(), err)
			}
		}
	}

	// Let the strategy manage the facility's liquidity
	err := p.facility.SetGovernance(ctx, p.strategy)
	if err != nil {
		return fmt.Errorf("error setting facility governance: %w", err)
	}
	p.logger.Info("Set facility governance", slog.String("strategy", p.strategy.Hex()))

	if p.opts.CapitalToken == nil || p.opts.CapitalWhale == nil || p.opts.CapitalAmount == nil {
		return nil
	}
	return p.depositCapital(ctx)
}

// Move capital from the whale to the owner, then deposit it into the facility
func (p *NexusProvisioner) depositCapital(ctx context.Context) error {
	token := p.opts.CapitalToken
	whale := p.opts.CapitalWhale
	amount := p.opts.CapitalAmount
	owner := p.owner.Address()

	txInfo, err := token.Transfer(owner, amount, whale.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for capital transfer: %w", err)
	}
	_, err = whale.Submit(ctx, txInfo, "capital transfer")
	if err != nil {
		return err
	}

	txInfo, err = token.Approve(p.nexus.Address(), amount, p.owner.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for capital approval: %w", err)
	}
	_, err = p.owner.Submit(ctx, txInfo, "capital approval")
	if err != nil {
		return err
	}

	txInfo, err = p.nexus.DepositCapital(amount, p.owner.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for depositCapital: %w", err)
	}
	_, err = p.owner.Submit(ctx, txInfo, "depositCapital")
	if err != nil {
		return err
	}

	decimals := token.Decimals()
	p.logger.Info("Deposited capital into the facility",
		slog.String("token", token.Symbol()),
		slog.Float64("amount", eth.WeiToEth(scaleTo18(amount, decimals))),
	)
	return nil
}

// Rescale a token amount to 18 decimals for logging
func scaleTo18(amount *big.Int, decimals uint8) *big.Int {
	if decimals >= 18 {
		return amount
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
	return new(big.Int).Mul(amount, factor)
}

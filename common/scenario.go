package yvcommon

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/verification"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Assemble the procedure's configuration and collaborators for the service provider's scenario.
// The depositor signs with its own key; every other identity is impersonated on the harness,
// which the caller sets on the returned dependencies.
func (p *ServiceProvider) CreateVerification(ctx context.Context, depositorKey *ecdsa.PrivateKey, funder GasFunder) (verification.Config, verification.Dependencies, error) {
	err := p.RequireScenarioContracts(ctx)
	if err != nil {
		return verification.Config{}, verification.Dependencies{}, err
	}
	ycMgr := p.ycMgr
	res := p.resources
	params := p.settings.Parameters
	timeout := p.receiptTimeout

	// Identities
	depositor, err := NewKeyedActor(depositorKey, p, timeout)
	if err != nil {
		return verification.Config{}, verification.Dependencies{}, fmt.Errorf("error creating depositor: %w", err)
	}
	governance := NewImpersonatedActor(res.Governance, p, timeout)
	owner := NewImpersonatedActor(ycMgr.FacilityOwner, p, timeout)
	identities := []common.Address{owner.Address(), governance.Address()}

	principal := eth.EthToWei(params.PrincipalEth)
	gasTopUp := eth.EthToWei(params.GasTopUpEth)
	opts := ProvisionerOptions{
		Funder:        funder,
		GasTopUp:      gasTopUp,
		GasRecipients: []common.Address{owner.Address(), governance.Address()},
		DepositorFunding: &DepositorFunding{
			Depositor: depositor.Address(),
			Minimum:   new(big.Int).Add(principal, gasTopUp),
		},
	}
	capitalAmount := params.GetCapitalAmount()
	if ycMgr.CapitalToken != nil && res.CapitalWhale != nil && capitalAmount != nil {
		whale := NewImpersonatedActor(*res.CapitalWhale, p, timeout)
		identities = append(identities, whale.Address())
		opts.CapitalToken = ycMgr.CapitalToken
		opts.CapitalWhale = whale
		opts.CapitalAmount = capitalAmount
		opts.GasRecipients = append(opts.GasRecipients, whale.Address())
	}

	// Adapters
	facility := NewNexusFacility(ycMgr.Nexus, p.qMgr, depositor, owner, params.Deadline)
	cfg := verification.Config{
		Depositor:    depositor.Address(),
		Identities:   identities,
		Principal:    principal,
		Cycles:       params.Cycles,
		WaitPerCycle: params.GetWaitPerCycle(),
	}
	deps := verification.Dependencies{
		Facility:     facility,
		Vault:        NewHarvestVault(ycMgr.Vault, p.qMgr, depositor),
		Controller:   NewHarvestController(ycMgr.Controller, governance),
		Provisioner:  NewNexusProvisioner(facility, ycMgr.Nexus, ycMgr.Strategy.Address, owner, opts, p.logger),
		StrategyExit: NewHarvestStrategy(ycMgr.Strategy, governance),
	}
	return cfg, deps, nil
}

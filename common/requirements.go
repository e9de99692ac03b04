package yvcommon

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	batch "github.com/rocket-pool/batch-query"
)

var (
	ErrVaultUnderlyingMismatch error = errors.New("The vault does not accept the facility's position token.")
	ErrStrategyVaultMismatch   error = errors.New("The vault's strategy belongs to a different vault.")
	ErrNotHardWorker           error = errors.New("The governance identity is not allowed to trigger hard work on the controller.")
)

// Makes sure the loaded contracts fit together: the vault wraps the facility's token,
// its strategy points back at it, and governance can trigger harvests.
func (p *ServiceProvider) RequireScenarioContracts(ctx context.Context) error {
	ycMgr := p.ycMgr
	err := ycMgr.LoadContracts()
	if err != nil {
		return fmt.Errorf("error loading contracts: %w", err)
	}

	// Check the vault's underlying token
	if ycMgr.Vault.Underlying().Address() != ycMgr.Nexus.Address() {
		return fmt.Errorf("%w (vault underlying %s, facility %s)", ErrVaultUnderlyingMismatch, ycMgr.Vault.Underlying().Address().Hex(), ycMgr.Nexus.Address().Hex())
	}

	// Check the strategy and controller
	var strategyVault common.Address
	var controllerGovernance common.Address
	var isHardWorker bool
	governance := p.resources.Governance
	err = query(ctx, p.qMgr, func(mc *batch.MultiCaller) error {
		ycMgr.Strategy.GetVault(mc, &strategyVault)
		ycMgr.Controller.GetGovernance(mc, &controllerGovernance)
		ycMgr.Controller.IsHardWorker(mc, &isHardWorker, governance)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error checking scenario contracts: %w", err)
	}
	if strategyVault != ycMgr.Vault.Address() {
		return fmt.Errorf("%w (strategy vault %s, vault %s)", ErrStrategyVaultMismatch, strategyVault.Hex(), ycMgr.Vault.Address().Hex())
	}
	if controllerGovernance != governance && !isHardWorker {
		return ErrNotHardWorker
	}
	return nil
}

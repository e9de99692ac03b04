package yvcommon

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts/harvest"
)

// The Harvest controller, with hard work triggered by governance
type HarvestController struct {
	controller *harvest.Controller
	governance Actor
}

func NewHarvestController(controller *harvest.Controller, governance Actor) *HarvestController {
	return &HarvestController{
		controller: controller,
		governance: governance,
	}
}

func (c *HarvestController) TriggerHarvest(ctx context.Context, vault common.Address) error {
	txInfo, err := c.controller.DoHardWork(vault, c.governance.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for doHardWork: %w", err)
	}
	_, err = c.governance.Submit(ctx, txInfo, "doHardWork")
	return err
}

// The vault's strategy, unwound by governance
type HarvestStrategy struct {
	strategy   *harvest.Strategy
	governance Actor
}

func NewHarvestStrategy(strategy *harvest.Strategy, governance Actor) *HarvestStrategy {
	return &HarvestStrategy{
		strategy:   strategy,
		governance: governance,
	}
}

func (s *HarvestStrategy) WithdrawAllToVault(ctx context.Context) error {
	txInfo, err := s.strategy.WithdrawAllToVault(s.governance.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for withdrawAllToVault: %w", err)
	}
	_, err = s.governance.Submit(ctx, txInfo, "withdrawAllToVault")
	return err
}

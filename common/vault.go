package yvcommon

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts/harvest"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

// A Harvest vault as a verification vault. Deposits and withdrawals are sent by the depositor.
type HarvestVault struct {
	vault     *harvest.Vault
	qMgr      *eth.QueryManager
	depositor Actor
}

// Create a new vault adapter
func NewHarvestVault(vault *harvest.Vault, qMgr *eth.QueryManager, depositor Actor) *HarvestVault {
	return &HarvestVault{
		vault:     vault,
		qMgr:      qMgr,
		depositor: depositor,
	}
}

func (v *HarvestVault) Address() common.Address {
	return v.vault.Address()
}

// Approve the vault to take the underlying tokens, then deposit them
func (v *HarvestVault) Deposit(ctx context.Context, amount *big.Int) error {
	underlying := v.vault.Underlying()
	txInfo, err := underlying.Approve(v.vault.Address(), amount, v.depositor.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for approve: %w", err)
	}
	_, err = v.depositor.Submit(ctx, txInfo, "approve vault")
	if err != nil {
		return err
	}

	txInfo, err = v.vault.Deposit(amount, v.depositor.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for deposit: %w", err)
	}
	_, err = v.depositor.Submit(ctx, txInfo, "vault deposit")
	return err
}

func (v *HarvestVault) Withdraw(ctx context.Context, shares *big.Int) error {
	txInfo, err := v.vault.Withdraw(shares, v.depositor.CallerOpts(nil))
	if err != nil {
		return fmt.Errorf("error getting TX info for withdraw: %w", err)
	}
	_, err = v.depositor.Submit(ctx, txInfo, "vault withdraw")
	return err
}

func (v *HarvestVault) BalanceOf(ctx context.Context, identity common.Address) (*big.Int, error) {
	var balance *big.Int
	err := query(ctx, v.qMgr, func(mc *batch.MultiCaller) error {
		v.vault.BalanceOf(mc, &balance, identity)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting vault balance of %s: %w", identity.Hex(), err)
	}
	return balance, nil
}

func (v *HarvestVault) PricePerFullShare(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := query(ctx, v.qMgr, func(mc *batch.MultiCaller) error {
		v.vault.GetPricePerFullShare(mc, &price)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting vault price per full share: %w", err)
	}
	return price, nil
}

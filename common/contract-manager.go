package yvcommon

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nodeset-org/yield-verifier/common/contracts"
	"github.com/nodeset-org/yield-verifier/common/contracts/harvest"
	"github.com/nodeset-org/yield-verifier/common/contracts/nexus"
	yvconfig "github.com/nodeset-org/yield-verifier/shared/config"
	batch "github.com/rocket-pool/batch-query"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Manager for the facility and Harvest contract bindings
type ContractManager struct {
	Nexus        *nexus.LiquidityNexus
	Controller   *harvest.Controller
	Vault        *harvest.Vault
	Strategy     *harvest.Strategy
	CapitalToken *contracts.Erc20

	// Accounts read from the contracts when the scenario doesn't provide them
	FacilityOwner common.Address

	// Internal fields
	res      *yvconfig.Resources
	ec       eth.IExecutionClient
	qMgr     *eth.QueryManager
	txMgr    *eth.TransactionManager
	isLoaded bool
}

// Creates a new ContractManager instance
func NewContractManager(res *yvconfig.Resources, ec eth.IExecutionClient, qMgr *eth.QueryManager, txMgr *eth.TransactionManager) (*ContractManager, error) {
	controller, err := harvest.NewController(res.Controller, ec, txMgr)
	if err != nil {
		return nil, fmt.Errorf("error creating controller binding: %w", err)
	}

	return &ContractManager{
		Controller: controller,
		res:        res,
		ec:         ec,
		qMgr:       qMgr,
		txMgr:      txMgr,
	}, nil
}

// Checks if the contracts have been loaded yet, and if not, generates the bindings with the on-chain details.
// Requires a running simulator; you're responsible for ensuring it's reachable before calling this.
func (m *ContractManager) LoadContracts() error {
	if m.isLoaded {
		return nil
	}

	nexusBinding, err := nexus.NewLiquidityNexus(m.res.Facility, m.ec, m.qMgr, m.txMgr, nil)
	if err != nil {
		return fmt.Errorf("error creating LiquidityNexus binding: %w", err)
	}
	vault, err := harvest.NewVault(m.res.Vault, m.ec, m.qMgr, m.txMgr, nil)
	if err != nil {
		return fmt.Errorf("error creating vault binding: %w", err)
	}
	strategy, err := harvest.NewStrategy(vault.StrategyAddress(), m.ec, m.txMgr)
	if err != nil {
		return fmt.Errorf("error creating strategy binding: %w", err)
	}

	var capitalToken *contracts.Erc20
	if m.res.CapitalToken != nil {
		capitalToken, err = contracts.NewErc20(*m.res.CapitalToken, m.ec, m.qMgr, m.txMgr, nil)
		if err != nil {
			return fmt.Errorf("error creating capital token binding: %w", err)
		}
	}

	// Get the facility owner if it wasn't provided
	var owner common.Address
	if m.res.FacilityOwner != nil {
		owner = *m.res.FacilityOwner
	} else {
		err = m.qMgr.Query(func(mc *batch.MultiCaller) error {
			nexusBinding.GetOwner(mc, &owner)
			return nil
		}, nil)
		if err != nil {
			return fmt.Errorf("error getting facility owner: %w", err)
		}
	}

	// Update the bindings
	m.Nexus = nexusBinding
	m.Vault = vault
	m.Strategy = strategy
	m.CapitalToken = capitalToken
	m.FacilityOwner = owner
	m.isLoaded = true
	return nil
}

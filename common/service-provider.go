package yvcommon

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	yvconfig "github.com/nodeset-org/yield-verifier/shared/config"
	"github.com/rocket-pool/node-manager-core/eth"
)

const (
	// Number of calls to run concurrently in a multicall batch
	concurrentCallLimit int = 6
)

// Provides the services a verification run needs, bound to a single scenario
type ServiceProvider struct {
	rpcClient *rpc.Client
	ec        *ethclient.Client
	qMgr      *eth.QueryManager
	txMgr     *eth.TransactionManager
	logger    *slog.Logger
	settings  *yvconfig.ScenarioSettings
	resources *yvconfig.Resources
	chainID   *big.Int
	ycMgr     *ContractManager

	// How long actors wait for a transaction to be mined
	receiptTimeout time.Duration
}

// Create a new service provider for a scenario. The settings must already be valid.
func NewServiceProvider(ctx context.Context, rpcClient *rpc.Client, settings *yvconfig.ScenarioSettings, logger *slog.Logger) (*ServiceProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	resources := settings.GetResources()
	ec := ethclient.NewClient(rpcClient)

	chainID, err := ec.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting chain ID: %w", err)
	}

	qMgr := eth.NewQueryManager(ec, resources.Multicall, concurrentCallLimit)
	txMgr, err := eth.NewTransactionManager(ec, eth.DefaultSafeGasBuffer, eth.DefaultSafeGasMultiplier)
	if err != nil {
		return nil, fmt.Errorf("error creating transaction manager: %w", err)
	}

	sp := &ServiceProvider{
		rpcClient: rpcClient,
		ec:        ec,
		qMgr:      qMgr,
		txMgr:     txMgr,
		logger:    logger,
		settings:  settings,
		resources: resources,
		chainID:   chainID,

		receiptTimeout: yvconfig.DefaultReceiptTimeout,
	}
	sp.ycMgr, err = NewContractManager(resources, ec, qMgr, txMgr)
	if err != nil {
		return nil, fmt.Errorf("error creating contract manager: %w", err)
	}
	return sp, nil
}

// ===============
// === Getters ===
// ===============

func (p *ServiceProvider) GetRpcClient() *rpc.Client {
	return p.rpcClient
}

func (p *ServiceProvider) GetEthClient() *ethclient.Client {
	return p.ec
}

func (p *ServiceProvider) GetQueryManager() *eth.QueryManager {
	return p.qMgr
}

func (p *ServiceProvider) GetTransactionManager() *eth.TransactionManager {
	return p.txMgr
}

func (p *ServiceProvider) GetLogger() *slog.Logger {
	return p.logger
}

func (p *ServiceProvider) GetSettings() *yvconfig.ScenarioSettings {
	return p.settings
}

func (p *ServiceProvider) GetResources() *yvconfig.Resources {
	return p.resources
}

func (p *ServiceProvider) GetChainID() *big.Int {
	return p.chainID
}

func (p *ServiceProvider) GetContractManager() *ContractManager {
	return p.ycMgr
}

// Set how long actors wait for a transaction to be mined
func (p *ServiceProvider) SetReceiptTimeout(timeout time.Duration) {
	p.receiptTimeout = timeout
}

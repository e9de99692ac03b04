package yvtesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/nodeset-org/yield-verifier/verification"
	"github.com/rocket-pool/node-manager-core/log"
)

// ForkTestManager drives a forked chain simulator (Hardhat or Anvil) over JSON-RPC.
// It owns the simulated clock, impersonation, balance cheats, and snapshots.
type ForkTestManager struct {
	rpcClient *rpc.Client
	ec        *ethclient.Client
	logger    *slog.Logger
	node      NodeInfo
	clock     *BlockClock

	// Snapshot of the chain when the manager was created
	baselineSnapshotID string
}

// Creates a new ForkTestManager connected to the simulator at the provided URL
func NewForkTestManager(ctx context.Context, rpcUrl string, avgBlockTime time.Duration, logger *slog.Logger) (*ForkTestManager, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcUrl)
	if err != nil {
		return nil, fmt.Errorf("error connecting to simulator at [%s]: %w", rpcUrl, err)
	}
	m, err := NewForkTestManagerFromClient(ctx, rpcClient, avgBlockTime, logger)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return m, nil
}

// Creates a new ForkTestManager using an existing RPC client
func NewForkTestManagerFromClient(ctx context.Context, rpcClient *rpc.Client, avgBlockTime time.Duration, logger *slog.Logger) (*ForkTestManager, error) {
	if avgBlockTime <= 0 {
		return nil, fmt.Errorf("average block time must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Figure out what kind of simulator this is
	var clientVersion string
	err := rpcClient.CallContext(ctx, &clientVersion, "web3_clientVersion")
	if err != nil {
		return nil, fmt.Errorf("error getting simulator client version: %w", err)
	}
	node := ParseClientVersion(clientVersion)
	if !node.SupportsImpersonation() {
		return nil, fmt.Errorf("client [%s] is not a supported simulator", clientVersion)
	}

	m := &ForkTestManager{
		rpcClient: rpcClient,
		ec:        ethclient.NewClient(rpcClient),
		logger:    logger,
		node:      node,
	}
	m.clock = NewBlockClock(m, avgBlockTime)

	// Take a baseline snapshot
	m.baselineSnapshotID, err = m.CreateSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating baseline snapshot: %w", err)
	}
	logger.Info("Connected to simulator",
		slog.String("client", clientVersion),
		slog.String("flavor", string(node.Flavor)),
		slog.Bool("batchMining", node.SupportsBatchMining()),
	)
	return m, nil
}

// Closes the connection to the simulator
func (m *ForkTestManager) Close() {
	m.ec.Close()
}

// ===============
// === Getters ===
// ===============

// Get the logger
func (m *ForkTestManager) GetLogger() *slog.Logger {
	return m.logger
}

// Get the raw RPC client
func (m *ForkTestManager) GetRpcClient() *rpc.Client {
	return m.rpcClient
}

// Get the execution client binding
func (m *ForkTestManager) GetExecutionClient() *ethclient.Client {
	return m.ec
}

// Get details about the simulator
func (m *ForkTestManager) GetNodeInfo() NodeInfo {
	return m.node
}

// Get the simulated clock
func (m *ForkTestManager) GetClock() *BlockClock {
	return m.clock
}

// ==================
// === Chain Time ===
// ==================

// Advance simulated time by mining the matching number of blocks
func (m *ForkTestManager) Advance(ctx context.Context, duration time.Duration) error {
	return m.clock.Advance(ctx, duration)
}

// Mine a number of blocks, spacing their timestamps by the interval
func (m *ForkTestManager) AdvanceBlocks(ctx context.Context, count uint64, interval time.Duration) error {
	if count == 0 {
		return nil
	}
	seconds := uint64(math.Round(interval.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	if m.node.SupportsBatchMining() {
		err := m.call(ctx, nil, m.node.method("mine"), hexutil.EncodeUint64(count), hexutil.EncodeUint64(seconds))
		if err != nil {
			return err
		}
		m.logger.Debug("Mined blocks", slog.Uint64("count", count), slog.Uint64("interval", seconds))
		return nil
	}

	// Older nodes can only mine one block at a time
	err := m.call(ctx, nil, "evm_increaseTime", count*seconds)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		err = m.CommitBlock(ctx)
		if err != nil {
			return fmt.Errorf("error mining block %d of %d: %w", i+1, count, err)
		}
	}
	m.logger.Debug("Mined blocks one at a time", slog.Uint64("count", count), slog.Uint64("interval", seconds))
	return nil
}

// Mine a single block
func (m *ForkTestManager) CommitBlock(ctx context.Context) error {
	return m.call(ctx, nil, "evm_mine")
}

// Enable or disable automatic mining of transactions
func (m *ForkTestManager) ToggleAutoMine(ctx context.Context, enabled bool) error {
	return m.call(ctx, nil, "evm_setAutomine", enabled)
}

// ===================
// === Chain State ===
// ===================

// Get the latest block height
func (m *ForkTestManager) CurrentHeight(ctx context.Context) (uint64, error) {
	height, err := m.ec.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("error getting latest block number: %w", err)
	}
	return height, nil
}

// Get the native balance of an identity at the latest block
func (m *ForkTestManager) NativeBalance(ctx context.Context, identity common.Address) (*big.Int, error) {
	balance, err := m.ec.BalanceAt(ctx, identity, nil)
	if err != nil {
		return nil, fmt.Errorf("error getting balance of %s: %w", identity.Hex(), err)
	}
	return balance, nil
}

// Overwrite the native balance of an identity
func (m *ForkTestManager) SetBalance(ctx context.Context, identity common.Address, amount *big.Int) error {
	return m.call(ctx, nil, m.node.method("setBalance"), identity, (*hexutil.Big)(amount))
}

// =====================
// === Impersonation ===
// =====================

// Start acting as the provided identities until the returned session is released.
// If any identity can't be impersonated, the ones that were are released again.
func (m *ForkTestManager) Impersonate(ctx context.Context, identities ...common.Address) (verification.Session, error) {
	session := &ImpersonationSession{
		mgr: m,
	}
	for _, identity := range identities {
		err := m.call(ctx, nil, m.node.method("impersonateAccount"), identity)
		if err != nil {
			releaseErr := session.Release(ctx)
			if releaseErr != nil {
				m.logger.Warn("Error releasing partial impersonation session", log.Err(releaseErr))
			}
			return nil, fmt.Errorf("error impersonating %s: %w", identity.Hex(), err)
		}
		session.identities = append(session.identities, identity)
		m.logger.Debug("Impersonating identity", slog.String("identity", identity.Hex()))
	}
	return session, nil
}

// A set of identities being impersonated on the simulator
type ImpersonationSession struct {
	mgr        *ForkTestManager
	identities []common.Address
	released   bool
}

// The identities covered by the session
func (s *ImpersonationSession) Identities() []common.Address {
	return s.identities
}

// Stop impersonating every identity in the session. Safe to call more than once.
func (s *ImpersonationSession) Release(ctx context.Context) error {
	if s.released {
		return nil
	}
	s.released = true

	errs := []error{}
	for _, identity := range s.identities {
		err := s.mgr.call(ctx, nil, s.mgr.node.method("stopImpersonatingAccount"), identity)
		if err != nil {
			errs = append(errs, fmt.Errorf("error releasing %s: %w", identity.Hex(), err))
		}
	}
	return errors.Join(errs...)
}

// =================
// === Snapshots ===
// =================

// Take a snapshot of the chain state, returning its ID
func (m *ForkTestManager) CreateSnapshot(ctx context.Context) (string, error) {
	var snapshotID string
	err := m.call(ctx, &snapshotID, "evm_snapshot")
	if err != nil {
		return "", err
	}
	m.logger.Debug("Created snapshot", slog.String("id", snapshotID))
	return snapshotID, nil
}

// Revert the chain to a snapshot. The snapshot is consumed.
func (m *ForkTestManager) RevertSnapshot(ctx context.Context, snapshotID string) error {
	var success bool
	err := m.call(ctx, &success, "evm_revert", snapshotID)
	if err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("reverting to snapshot %s failed", snapshotID)
	}
	m.logger.Debug("Reverted to snapshot", slog.String("id", snapshotID))
	return nil
}

// Revert the chain to the state it was in when the manager was created, then take a new baseline
func (m *ForkTestManager) RevertToBaseline(ctx context.Context) error {
	err := m.RevertSnapshot(ctx, m.baselineSnapshotID)
	if err != nil {
		return fmt.Errorf("error reverting to baseline snapshot: %w", err)
	}
	m.baselineSnapshotID, err = m.CreateSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("error recreating baseline snapshot: %w", err)
	}
	return nil
}

// Run a JSON-RPC method on the simulator
func (m *ForkTestManager) call(ctx context.Context, result any, method string, args ...any) error {
	err := m.rpcClient.CallContext(ctx, result, method, args...)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	return nil
}

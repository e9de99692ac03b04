package yvtesting

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocket-pool/node-manager-core/eth"
	"github.com/stretchr/testify/require"
)

const (
	hardhatVersion    string = "HardhatNetwork/2.22.3/@nomicfoundation/edr/0.3.7"
	oldHardhatVersion string = "HardhatNetwork/2.8.0/ethereumjs-vm/4.0.0"
	anvilVersion      string = "anvil/v0.2.0"
)

func TestConnectTakesBaselineSnapshot(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	require.Equal(t, NodeFlavor_Hardhat, mgr.GetNodeInfo().Flavor)
	require.Len(t, node.callsTo("evm_snapshot"), 1)

	// Reverting to the baseline consumes it, so a new one is taken
	require.NoError(t, mgr.RevertToBaseline(context.Background()))
	reverts := node.callsTo("evm_revert")
	require.Len(t, reverts, 1)
	require.Equal(t, "0x1", decodeString(t, reverts[0].Params[0]))
	require.Len(t, node.callsTo("evm_snapshot"), 2)
}

func TestConnectRejectsUnknownClients(t *testing.T) {
	node := newFakeNode("Geth/v1.14.7-stable/linux-amd64/go1.22.5")
	server := httptest.NewServer(node)
	defer server.Close()

	_, err := NewForkTestManager(context.Background(), server.URL, 12*time.Second, nil)
	require.ErrorContains(t, err, "not a supported simulator")
	require.Empty(t, node.callsTo("evm_snapshot"))
}

func TestAdvanceMinesBlocksInOneCall(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)

	// 12 hours at 13.2s per block rounds up to 3273 blocks
	require.NoError(t, mgr.Advance(context.Background(), 12*time.Hour))
	mines := node.callsTo("hardhat_mine")
	require.Len(t, mines, 1)
	require.Equal(t, "0xcc9", decodeString(t, mines[0].Params[0]))
	require.Equal(t, "0xd", decodeString(t, mines[0].Params[1]))
	require.Empty(t, node.callsTo("evm_mine"))
}

func TestAdvanceFallsBackToSingleBlocks(t *testing.T) {
	node, mgr := startFakeNode(t, oldHardhatVersion)
	require.False(t, mgr.GetNodeInfo().SupportsBatchMining())

	require.NoError(t, mgr.AdvanceBlocks(context.Background(), 3, 12*time.Second))
	require.Empty(t, node.callsTo("hardhat_mine"))
	increases := node.callsTo("evm_increaseTime")
	require.Len(t, increases, 1)
	require.Equal(t, "36", string(increases[0].Params[0]))
	require.Len(t, node.callsTo("evm_mine"), 3)
}

func TestAdvanceZeroIsNoOp(t *testing.T) {
	node, mgr := startFakeNode(t, anvilVersion)
	require.NoError(t, mgr.AdvanceBlocks(context.Background(), 0, 12*time.Second))
	require.Empty(t, node.callsTo("anvil_mine"))
	require.Empty(t, node.callsTo("evm_mine"))
}

func TestImpersonateAndRelease(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	ctx := context.Background()
	first := testAddress(1)
	second := testAddress(2)

	session, err := mgr.Impersonate(ctx, first, second)
	require.NoError(t, err)
	starts := node.callsTo("hardhat_impersonateAccount")
	require.Len(t, starts, 2)
	require.Equal(t, first, decodeAddress(t, starts[0].Params[0]))
	require.Equal(t, second, decodeAddress(t, starts[1].Params[0]))

	require.NoError(t, session.Release(ctx))
	require.NoError(t, session.Release(ctx))
	stops := node.callsTo("hardhat_stopImpersonatingAccount")
	require.Len(t, stops, 2)
	require.Equal(t, first, decodeAddress(t, stops[0].Params[0]))
}

func TestImpersonateFailureReleasesPartialSession(t *testing.T) {
	node, mgr := startFakeNode(t, anvilVersion)
	node.setError("anvil_impersonateAccount", "impersonation disabled")

	_, err := mgr.Impersonate(context.Background(), testAddress(1))
	require.ErrorContains(t, err, "impersonation disabled")
	require.Empty(t, node.callsTo("anvil_stopImpersonatingAccount"))
}

func TestReleaseReportsErrors(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	ctx := context.Background()
	session, err := mgr.Impersonate(ctx, testAddress(1), testAddress(2))
	require.NoError(t, err)

	node.setError("hardhat_stopImpersonatingAccount", "boom")
	err = session.Release(ctx)
	require.ErrorContains(t, err, "boom")
	require.Len(t, node.callsTo("hardhat_stopImpersonatingAccount"), 2)
}

func TestRevertSnapshotFailure(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	node.setResult("evm_revert", false)
	err := mgr.RevertSnapshot(context.Background(), "0x7")
	require.ErrorContains(t, err, "reverting to snapshot 0x7 failed")
}

func TestChainState(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	ctx := context.Background()
	node.setResult("eth_blockNumber", "0x12d687")
	node.setResult("eth_getBalance", "0x3635c9adc5dea00000")

	height, err := mgr.CurrentHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1234567), height)

	balance, err := mgr.NativeBalance(ctx, testAddress(1))
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(eth.EthToWei(1000)))
}

func TestEnsureBalance(t *testing.T) {
	node, mgr := startFakeNode(t, anvilVersion)
	ctx := context.Background()
	identity := testAddress(3)

	// Already funded
	node.setResult("eth_getBalance", "0x3635c9adc5dea00000")
	changed, err := mgr.EnsureBalance(ctx, identity, eth.EthToWei(10))
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, node.callsTo("anvil_setBalance"))

	// Needs a top-up
	node.setResult("eth_getBalance", "0x0")
	changed, err = mgr.EnsureBalance(ctx, identity, eth.EthToWei(10))
	require.NoError(t, err)
	require.True(t, changed)
	sets := node.callsTo("anvil_setBalance")
	require.Len(t, sets, 1)
	require.Equal(t, identity, decodeAddress(t, sets[0].Params[0]))
	amount, ok := new(big.Int).SetString(decodeString(t, sets[0].Params[1])[2:], 16)
	require.True(t, ok)
	require.Equal(t, 0, amount.Cmp(eth.EthToWei(10)))
}

func TestToggleAutoMine(t *testing.T) {
	node, mgr := startFakeNode(t, hardhatVersion)
	require.NoError(t, mgr.ToggleAutoMine(context.Background(), false))
	calls := node.callsTo("evm_setAutomine")
	require.Len(t, calls, 1)
	require.Equal(t, "false", string(calls[0].Params[0]))
}

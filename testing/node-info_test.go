package yvtesting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClientVersion(t *testing.T) {
	tests := []struct {
		clientVersion string
		flavor        NodeFlavor
		version       string
		batchMining   bool
	}{
		{"HardhatNetwork/2.22.3/@nomicfoundation/edr/0.3.7", NodeFlavor_Hardhat, "2.22.3", true},
		{"HardhatNetwork/2.9.0/ethereumjs-vm/4.0.0", NodeFlavor_Hardhat, "2.9.0", true},
		{"HardhatNetwork/2.8.4/ethereumjs-vm/4.0.0", NodeFlavor_Hardhat, "2.8.4", false},
		{"anvil/v0.2.0", NodeFlavor_Anvil, "0.2.0", true},
		{"Geth/v1.14.7-stable/linux-amd64/go1.22.5", NodeFlavor_Unknown, "1.14.7-stable", false},
	}

	for _, test := range tests {
		t.Run(test.clientVersion, func(t *testing.T) {
			info := ParseClientVersion(test.clientVersion)
			require.Equal(t, test.flavor, info.Flavor)
			require.NotNil(t, info.Version)
			require.Equal(t, test.version, info.Version.String())
			require.Equal(t, test.batchMining, info.SupportsBatchMining())
			require.Equal(t, test.flavor != NodeFlavor_Unknown, info.SupportsImpersonation())
		})
	}
}

func TestParseClientVersionWithoutVersion(t *testing.T) {
	info := ParseClientVersion("HardhatNetwork")
	require.Equal(t, NodeFlavor_Hardhat, info.Flavor)
	require.Nil(t, info.Version)
	require.False(t, info.SupportsBatchMining())
}

func TestSimulatorMethodNames(t *testing.T) {
	require.Equal(t, "hardhat_mine", ParseClientVersion("HardhatNetwork/2.22.3").method("mine"))
	require.Equal(t, "anvil_setBalance", ParseClientVersion("anvil/v0.2.0").method("setBalance"))
}

package yvtesting

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// The simulator implementation behind the RPC endpoint
type NodeFlavor string

const (
	NodeFlavor_Hardhat NodeFlavor = "hardhat"
	NodeFlavor_Anvil   NodeFlavor = "anvil"
	NodeFlavor_Unknown NodeFlavor = "unknown"
)

var (
	// hardhat_mine was introduced in Hardhat 2.9.0
	hardhatMineVersion *version.Version = version.Must(version.NewVersion("2.9.0"))
)

// Details about the simulator, parsed from web3_clientVersion
type NodeInfo struct {
	ClientVersion string
	Flavor        NodeFlavor
	Version       *version.Version
}

// Parse a web3_clientVersion string, such as "HardhatNetwork/2.22.3/@nomicfoundation/edr/0.3.7" or "anvil/v0.2.0"
func ParseClientVersion(clientVersion string) NodeInfo {
	info := NodeInfo{
		ClientVersion: clientVersion,
		Flavor:        NodeFlavor_Unknown,
	}
	parts := strings.Split(clientVersion, "/")
	name := strings.ToLower(parts[0])
	switch {
	case strings.HasPrefix(name, "hardhat"):
		info.Flavor = NodeFlavor_Hardhat
	case name == "anvil":
		info.Flavor = NodeFlavor_Anvil
	}
	if len(parts) > 1 {
		parsed, err := version.NewVersion(parts[1])
		if err == nil {
			info.Version = parsed
		}
	}
	return info
}

// True if the node can act as arbitrary accounts
func (n NodeInfo) SupportsImpersonation() bool {
	return n.Flavor == NodeFlavor_Hardhat || n.Flavor == NodeFlavor_Anvil
}

// True if the node can mine many blocks in a single call
func (n NodeInfo) SupportsBatchMining() bool {
	switch n.Flavor {
	case NodeFlavor_Anvil:
		return true
	case NodeFlavor_Hardhat:
		return n.Version != nil && n.Version.GreaterThanOrEqual(hardhatMineVersion)
	default:
		return false
	}
}

// Get the node-specific name of a simulator method, e.g. "impersonateAccount" -> "hardhat_impersonateAccount"
func (n NodeInfo) method(name string) string {
	if n.Flavor == NodeFlavor_Anvil {
		return "anvil_" + name
	}
	return "hardhat_" + name
}

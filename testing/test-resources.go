package yvtesting

import (
	yvconfig "github.com/nodeset-org/yield-verifier/shared/config"
	"github.com/rocket-pool/node-manager-core/config"
)

const (
	// Mainnet contracts used by the fork tests
	NexusString      string = "0x98A1551bC63c5b8613B1A9467c3F7adc370aFAA1"
	ControllerString string = "0x222412af183BCeAdEFd72e4Cb1b71f1889953b1C"
	UsdcString       string = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

	// Mainnet accounts impersonated by the fork tests
	GovernanceString string = "0xf00dD244228F51547f0563e60bCa65a30FBF5f7f"
	UsdcWhaleString  string = "0xBE0eB53F46cd790Cd13851d5EFf43D12404d33E8"

	// Run parameters
	testScenarioKey   string  = "fork-test"
	testPrincipalEth  float64 = 1000
	testCapitalAmount string  = "10000000000000"
)

// GetTestScenario returns a LiquidityNexus scenario on a mainnet fork, wrapped by the provided vault
func GetTestScenario(vault string) *yvconfig.ScenarioSettings {
	settings := &yvconfig.ScenarioSettings{
		Key:     testScenarioKey,
		Network: config.Network_Mainnet,
		Addresses: yvconfig.AddressSettings{
			Facility:     NexusString,
			Vault:        vault,
			Controller:   ControllerString,
			CapitalToken: UsdcString,
		},
		Identities: yvconfig.IdentitySettings{
			Governance:   GovernanceString,
			CapitalWhale: UsdcWhaleString,
		},
		Parameters: yvconfig.ParameterSettings{
			PrincipalEth:  testPrincipalEth,
			CapitalAmount: testCapitalAmount,
		},
	}
	settings.ApplyDefaults()
	return settings
}

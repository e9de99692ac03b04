package yvconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rocket-pool/node-manager-core/config"
	"gopkg.in/yaml.v2"
)

// A verification scenario loaded from a settings file
type ScenarioSettings struct {
	// The unique key used to select the scenario
	Key string `yaml:"key" json:"key"`

	// Human-readable summary of what the scenario exercises
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// The network the simulator is forked from
	Network config.Network `yaml:"network" json:"network"`

	// Contract addresses
	Addresses AddressSettings `yaml:"addresses" json:"addresses"`

	// Accounts impersonated or derived during the run
	Identities IdentitySettings `yaml:"identities" json:"identities"`

	// Run parameters
	Parameters ParameterSettings `yaml:"parameters" json:"parameters"`
}

type AddressSettings struct {
	// The LiquidityNexus the principal is deposited into
	Facility string `yaml:"facility" json:"facility"`

	// The Harvest vault wrapping the facility's LP token
	Vault string `yaml:"vault" json:"vault"`

	// The Harvest controller used to trigger hard work
	Controller string `yaml:"controller" json:"controller"`

	// The stablecoin the facility pairs ETH deposits with
	CapitalToken string `yaml:"capitalToken,omitempty" json:"capitalToken,omitempty"`

	// The multicall contract used for batched reads
	Multicall string `yaml:"multicall,omitempty" json:"multicall,omitempty"`
}

type IdentitySettings struct {
	// Governance of the Harvest protocol; triggers hard work and strategy exits
	Governance string `yaml:"governance" json:"governance"`

	// Owner of the facility. If blank, it's read from the facility itself.
	FacilityOwner string `yaml:"facilityOwner,omitempty" json:"facilityOwner,omitempty"`

	// A holder of the capital token that funds the facility before the run. If blank, no capital is added.
	CapitalWhale string `yaml:"capitalWhale,omitempty" json:"capitalWhale,omitempty"`

	// Index of the depositor's key on the default test mnemonic
	DepositorIndex *uint `yaml:"depositorIndex,omitempty" json:"depositorIndex,omitempty"`
}

type ParameterSettings struct {
	// The ETH principal deposited into the facility
	PrincipalEth float64 `yaml:"principalEth" json:"principalEth"`

	// Number of harvest cycles
	Cycles uint `yaml:"cycles,omitempty" json:"cycles,omitempty"`

	// Simulated hours to wait before each harvest
	WaitHours float64 `yaml:"waitHours,omitempty" json:"waitHours,omitempty"`

	// Assumed average block interval, used to convert simulated time into blocks
	AvgBlockSeconds float64 `yaml:"avgBlockSeconds,omitempty" json:"avgBlockSeconds,omitempty"`

	// Capital token amount (in its smallest unit) moved from the whale into the facility
	CapitalAmount string `yaml:"capitalAmount,omitempty" json:"capitalAmount,omitempty"`

	// Deadline passed to the facility's liquidity functions
	Deadline uint64 `yaml:"deadline,omitempty" json:"deadline,omitempty"`

	// ETH given to each impersonated identity that can't cover gas on its own
	GasTopUpEth float64 `yaml:"gasTopUpEth,omitempty" json:"gasTopUpEth,omitempty"`
}

// Resolved contract addresses and accounts for a scenario
type Resources struct {
	Facility      common.Address
	Vault         common.Address
	Controller    common.Address
	Multicall     common.Address
	CapitalToken  *common.Address
	Governance    common.Address
	FacilityOwner *common.Address
	CapitalWhale  *common.Address
}

// Fill in the defaults for any parameter that wasn't set
func (s *ScenarioSettings) ApplyDefaults() {
	if s.Addresses.Multicall == "" {
		s.Addresses.Multicall = DefaultMulticallAddress
	}
	if s.Identities.DepositorIndex == nil {
		index := DefaultDepositorIndex
		s.Identities.DepositorIndex = &index
	}
	params := &s.Parameters
	if params.Cycles == 0 {
		params.Cycles = DefaultCycles
	}
	if params.WaitHours == 0 {
		params.WaitHours = DefaultWaitHours
	}
	if params.AvgBlockSeconds == 0 {
		params.AvgBlockSeconds = DefaultAvgBlockSeconds
	}
	if params.Deadline == 0 {
		params.Deadline = DefaultDeadline
	}
	if params.GasTopUpEth == 0 {
		params.GasTopUpEth = DefaultGasTopUpEth
	}
}

// Checks to see if the scenario is valid; if not, returns a list of errors
func (s *ScenarioSettings) Validate() []string {
	errs := []string{}
	if s.Key == "" {
		errs = append(errs, "scenario key is missing")
	}
	required := map[string]string{
		"facility":   s.Addresses.Facility,
		"vault":      s.Addresses.Vault,
		"controller": s.Addresses.Controller,
		"multicall":  s.Addresses.Multicall,
		"governance": s.Identities.Governance,
	}
	for _, name := range []string{"facility", "vault", "controller", "multicall", "governance"} {
		if !isValidAddress(required[name]) {
			errs = append(errs, fmt.Sprintf("%s address [%s] is not a valid non-zero address", name, required[name]))
		}
	}
	optional := map[string]string{
		"capital token":  s.Addresses.CapitalToken,
		"facility owner": s.Identities.FacilityOwner,
		"capital whale":  s.Identities.CapitalWhale,
	}
	for _, name := range []string{"capital token", "facility owner", "capital whale"} {
		value := optional[name]
		if value != "" && !isValidAddress(value) {
			errs = append(errs, fmt.Sprintf("%s address [%s] is not a valid non-zero address", name, value))
		}
	}

	params := s.Parameters
	if params.PrincipalEth <= 0 {
		errs = append(errs, "principal must be greater than zero")
	}
	if params.Cycles == 0 {
		errs = append(errs, "at least one harvest cycle is required")
	}
	if params.WaitHours <= 0 {
		errs = append(errs, "wait hours must be greater than zero")
	}
	if params.AvgBlockSeconds <= 0 {
		errs = append(errs, "average block time must be greater than zero")
	}
	if params.CapitalAmount != "" {
		amount, ok := new(big.Int).SetString(params.CapitalAmount, 10)
		if !ok || amount.Sign() <= 0 {
			errs = append(errs, fmt.Sprintf("capital amount [%s] is not a positive integer", params.CapitalAmount))
		}
		if s.Addresses.CapitalToken == "" || s.Identities.CapitalWhale == "" {
			errs = append(errs, "capital funding requires both a capital token and a capital whale")
		}
	}
	return errs
}

// Get the resolved addresses for the scenario. The settings must be valid.
func (s *ScenarioSettings) GetResources() *Resources {
	return &Resources{
		Facility:      *config.HexToAddressPtr(s.Addresses.Facility),
		Vault:         *config.HexToAddressPtr(s.Addresses.Vault),
		Controller:    *config.HexToAddressPtr(s.Addresses.Controller),
		Multicall:     *config.HexToAddressPtr(s.Addresses.Multicall),
		CapitalToken:  optionalAddress(s.Addresses.CapitalToken),
		Governance:    *config.HexToAddressPtr(s.Identities.Governance),
		FacilityOwner: optionalAddress(s.Identities.FacilityOwner),
		CapitalWhale:  optionalAddress(s.Identities.CapitalWhale),
	}
}

// The capital amount to fund the facility with, or nil if no funding is configured
func (p ParameterSettings) GetCapitalAmount() *big.Int {
	if p.CapitalAmount == "" {
		return nil
	}
	amount, ok := new(big.Int).SetString(p.CapitalAmount, 10)
	if !ok {
		return nil
	}
	return amount
}

// The simulated time to wait before each harvest
func (p ParameterSettings) GetWaitPerCycle() time.Duration {
	return time.Duration(p.WaitHours * float64(time.Hour))
}

// The assumed average block interval
func (p ParameterSettings) GetAvgBlockTime() time.Duration {
	return time.Duration(p.AvgBlockSeconds * float64(time.Second))
}

// Load scenario settings from a folder
func LoadSettingsFiles(sourceDir string) ([]*ScenarioSettings, error) {
	// Make sure the folder exists
	_, err := os.Stat(sourceDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("scenario settings folder [%s] does not exist", sourceDir)
	}

	// Enumerate the dir
	files, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("error enumerating scenario settings source folder: %w", err)
	}

	settingsList := []*ScenarioSettings{}
	for _, file := range files {
		// Ignore dirs and nonstandard files
		if file.IsDir() || !file.Type().IsRegular() {
			continue
		}

		// Load the file
		filename := file.Name()
		ext := filepath.Ext(filename)
		if ext != ".yaml" && ext != ".yml" {
			// Only load YAML files
			continue
		}
		settingsFilePath := filepath.Join(sourceDir, filename)
		bytes, err := os.ReadFile(settingsFilePath)
		if err != nil {
			return nil, fmt.Errorf("error reading scenario settings file [%s]: %w", settingsFilePath, err)
		}

		// Unmarshal the settings
		settings := new(ScenarioSettings)
		err = yaml.Unmarshal(bytes, settings)
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling scenario settings file [%s]: %w", settingsFilePath, err)
		}
		settings.ApplyDefaults()
		settingsList = append(settingsList, settings)
	}
	return settingsList, nil
}

// Find the scenario with the provided key
func FindScenario(settingsList []*ScenarioSettings, key string) (*ScenarioSettings, error) {
	for _, settings := range settingsList {
		if settings.Key == key {
			return settings, nil
		}
	}
	return nil, fmt.Errorf("no scenario with key [%s] was found", key)
}

func isValidAddress(address string) bool {
	return common.IsHexAddress(address) && common.HexToAddress(address) != (common.Address{})
}

func optionalAddress(address string) *common.Address {
	if address == "" {
		return nil
	}
	return config.HexToAddressPtr(address)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	yvcommon "github.com/nodeset-org/yield-verifier/common"
	yvconfig "github.com/nodeset-org/yield-verifier/shared/config"
	"github.com/nodeset-org/yield-verifier/verification"

	"github.com/fatih/color"
	"github.com/nodeset-org/osha/keys"
	"github.com/rocket-pool/node-manager-core/log"
	"github.com/urfave/cli/v2"
)

const (
	Version string = "0.1.0"
)

// Run
func main() {
	// Initialise application
	app := cli.NewApp()

	// Set application info
	app.Name = yvconfig.ModuleName
	app.Usage = "Verifies the realized yield of a Harvest vault on a forked chain"
	app.Version = Version
	app.Authors = []*cli.Author{
		{
			Name:  "Nodeset",
			Email: "info@nodeset.io",
		},
	}
	app.Copyright = "(C) 2024 NodeSet LLC"

	settingsDirFlag := &cli.StringFlag{
		Name:    "settings-dir",
		Aliases: []string{"s"},
		Usage:   "The path to the folder containing scenario settings files",
		Value:   "scenarios",
	}
	scenarioFlag := &cli.StringFlag{
		Name:     "scenario",
		Aliases:  []string{"n"},
		Usage:    "The key of the scenario to run",
		Required: true,
	}
	rpcUrlFlag := &cli.StringFlag{
		Name:    "rpc-url",
		Aliases: []string{"r"},
		Usage:   "The URL of the forked chain simulator (Hardhat or Anvil)",
		Value:   "http://127.0.0.1:8545",
		EnvVars: []string{"YV_RPC_URL"},
	}
	vaultFlag := &cli.StringFlag{
		Name:  "vault",
		Usage: "Override the address of the vault wrapping the facility",
	}
	principalFlag := &cli.Float64Flag{
		Name:  "principal",
		Usage: "Override the principal to deposit, in ETH",
	}
	cyclesFlag := &cli.UintFlag{
		Name:  "cycles",
		Usage: "Override the number of harvest cycles",
	}
	waitHoursFlag := &cli.Float64Flag{
		Name:  "wait-hours",
		Usage: "Override the simulated hours to wait before each harvest",
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the report as JSON instead of text",
	}
	keepStateFlag := &cli.BoolFlag{
		Name:  "keep-state",
		Usage: "Leave the simulator in its final state instead of reverting to the starting snapshot",
	}
	connectTimeoutFlag := &cli.DurationFlag{
		Name:  "connect-timeout",
		Usage: "How long to wait for the simulator to come online",
		Value: 30 * time.Second,
	}
	verboseFlag := &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log every transaction and simulator call",
	}

	app.Flags = []cli.Flag{
		settingsDirFlag,
		scenarioFlag,
		rpcUrlFlag,
		vaultFlag,
		principalFlag,
		cyclesFlag,
		waitHoursFlag,
		jsonFlag,
		keepStateFlag,
		connectTimeoutFlag,
		verboseFlag,
	}
	app.Action = func(c *cli.Context) error {
		// Load the scenario
		settingsList, err := yvconfig.LoadSettingsFiles(c.String(settingsDirFlag.Name))
		if err != nil {
			return err
		}
		settings, err := yvconfig.FindScenario(settingsList, c.String(scenarioFlag.Name))
		if err != nil {
			return err
		}
		if c.IsSet(vaultFlag.Name) {
			settings.Addresses.Vault = c.String(vaultFlag.Name)
		}
		if c.IsSet(principalFlag.Name) {
			settings.Parameters.PrincipalEth = c.Float64(principalFlag.Name)
		}
		if c.IsSet(cyclesFlag.Name) {
			settings.Parameters.Cycles = c.Uint(cyclesFlag.Name)
		}
		if c.IsSet(waitHoursFlag.Name) {
			settings.Parameters.WaitHours = c.Float64(waitHoursFlag.Name)
		}
		errs := settings.Validate()
		if len(errs) > 0 {
			return fmt.Errorf("scenario [%s] is invalid:\n  %s", settings.Key, strings.Join(errs, "\n  "))
		}

		// Set up logging
		level := slog.LevelInfo
		if c.Bool(verboseFlag.Name) {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		// Stop on Ctrl+C
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		report, err := run(ctx, logger, settings, c.String(rpcUrlFlag.Name), c.Duration(connectTimeoutFlag.Name), c.Bool(keepStateFlag.Name))
		if err != nil {
			if verification.IsInvariantViolation(err) {
				color.New(ErrorColor).Fprintln(os.Stderr, "Yield verification failed: an accounting invariant was broken.")
			}
			return err
		}

		if c.Bool(jsonFlag.Name) {
			return printReportJson(os.Stdout, settings.Key, report)
		}
		printReport(os.Stdout, settings.Key, report)
		return nil
	}

	// Run application
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run the scenario against the simulator
func run(ctx context.Context, logger *slog.Logger, settings *yvconfig.ScenarioSettings, rpcUrl string, connectTimeout time.Duration, keepState bool) (report *verification.YieldReport, err error) {
	mgr, err := waitForSimulator(ctx, logger, rpcUrl, settings.Parameters.GetAvgBlockTime(), connectTimeout)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	// Put the chain back the way it was when done
	if !keepState {
		defer func() {
			revertErr := mgr.RevertToBaseline(context.Background())
			if revertErr != nil {
				logger.Warn("Error reverting simulator state", log.Err(revertErr))
				err = errors.Join(err, revertErr)
				return
			}
			logger.Info("Reverted simulator state")
		}()
	}

	sp, err := yvcommon.NewServiceProvider(ctx, mgr.GetRpcClient(), settings, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating service provider: %w", err)
	}

	// Get the depositor's key
	keygen, err := keys.NewKeyGeneratorWithDefaults()
	if err != nil {
		return nil, fmt.Errorf("error creating key generator: %w", err)
	}
	depositorKey, err := keygen.GetEthPrivateKey(*settings.Identities.DepositorIndex)
	if err != nil {
		return nil, fmt.Errorf("error getting depositor key: %w", err)
	}

	cfg, deps, err := sp.CreateVerification(ctx, depositorKey, mgr)
	if err != nil {
		return nil, fmt.Errorf("error preparing verification: %w", err)
	}
	deps.Harness = mgr
	procedure, err := verification.NewProcedure(cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	return procedure.Run(ctx)
}

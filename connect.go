package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	yvtesting "github.com/nodeset-org/yield-verifier/testing"
	"github.com/rocket-pool/node-manager-core/log"
	"github.com/rocket-pool/node-manager-core/utils"
)

const (
	connectCooldown time.Duration = 2 * time.Second
)

// Connect to the simulator, waiting for it to come online if it isn't yet
func waitForSimulator(ctx context.Context, logger *slog.Logger, rpcUrl string, avgBlockTime time.Duration, timeout time.Duration) (*yvtesting.ForkTestManager, error) {
	deadline := time.Now().Add(timeout)
	for {
		mgr, err := yvtesting.NewForkTestManager(ctx, rpcUrl, avgBlockTime, logger)
		if err == nil {
			return mgr, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("simulator at [%s] did not come online within %s: %w", rpcUrl, timeout, err)
		}
		logger.Warn("Simulator is not ready yet", slog.String("url", rpcUrl), log.Err(err))
		if utils.SleepWithCancel(ctx, connectCooldown) {
			return nil, fmt.Errorf("cancelled while waiting for simulator: %w", ctx.Err())
		}
	}
}

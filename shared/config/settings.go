package yvconfig

import "time"

const (
	ModuleName      string = "yield-verifier"
	ShortModuleName string = "yv"

	// Default run parameters, matching the LiquidityNexus SushiSwap WETH scenario
	DefaultCycles          uint    = 10
	DefaultWaitHours       float64 = 12
	DefaultAvgBlockSeconds float64 = 13.2
	DefaultDepositorIndex  uint    = 1
	DefaultGasTopUpEth     float64 = 10
	DefaultDeadline        uint64  = 100000000000

	// Multicall3, deployed at the same address on every major network
	DefaultMulticallAddress string = "0xcA11bde05977b3631167028862bE2a173976CA11"

	// How long to wait for a transaction receipt before giving up
	DefaultReceiptTimeout time.Duration = time.Minute
)

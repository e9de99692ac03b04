package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/nodeset-org/yield-verifier/verification"
	"github.com/rocket-pool/node-manager-core/eth"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T) *verification.YieldReport {
	start := eth.EthToWei(5000)
	report, err := verification.ComputeReport(eth.EthToWei(1000), start, new(big.Int).Add(start, eth.EthToWei(2)), 10, 12*time.Hour)
	require.NoError(t, err)
	report.SharesMinted = eth.EthToWei(1000)
	report.Cycles = []verification.CycleResult{
		{
			Index:           1,
			Before:          verification.SharePriceSample{BlockHeight: 100, Price: big.NewInt(1e18)},
			After:           verification.SharePriceSample{BlockHeight: 101, Price: big.NewInt(1e18)},
			UnderlyingPrice: big.NewInt(1001e15),
			Growth:          1.001,
		},
	}
	return report
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	printReport(&out, "nexus-sushi-weth", testReport(t))

	text := out.String()
	require.Contains(t, text, "Yield verification: nexus-sushi-weth")
	require.Contains(t, text, "Harvest 1 @ block 101: share price 1000000000000000000 -> 1001000000000000000 (growth 1.00100000)")
	require.Contains(t, text, "Profit:           2.000000 ETH")
	require.Contains(t, text, "Duration:         120.0 hours")
	require.Contains(t, text, "APR:              14.6000%")
}

func TestPrintReportJson(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReportJson(&out, "nexus-sushi-weth", testReport(t)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "nexus-sushi-weth", decoded["scenario"])
	report, ok := decoded["report"].(map[string]any)
	require.True(t, ok)
	require.InDelta(t, 120.0, report["durationHours"], 1e-9)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/fatih/color"
	"github.com/nodeset-org/yield-verifier/verification"
	"github.com/rocket-pool/node-manager-core/eth"
)

// Colors
const (
	ErrorColor   = color.FgRed
	HeaderColor  = color.FgHiWhite
	CycleColor   = color.FgCyan
	ProfitColor  = color.FgGreen
	SummaryColor = color.FgYellow
)

// The JSON form of a run's report
type reportOutput struct {
	Scenario string                    `json:"scenario"`
	Report   *verification.YieldReport `json:"report"`
}

// Print the report as indented JSON
func printReportJson(w io.Writer, scenario string, report *verification.YieldReport) error {
	bytes, err := json.MarshalIndent(reportOutput{
		Scenario: scenario,
		Report:   report,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("error serializing report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}

// Print the report as human-readable text
func printReport(w io.Writer, scenario string, report *verification.YieldReport) {
	header := color.New(HeaderColor, color.Bold)
	cycle := color.New(CycleColor)
	profit := color.New(ProfitColor)
	summary := color.New(SummaryColor, color.Bold)

	header.Fprintf(w, "Yield verification: %s\n", scenario)
	for _, result := range report.Cycles {
		cycle.Fprintf(w, "Harvest %d @ block %d: share price %s -> %s (growth %.8f)\n",
			result.Index,
			result.After.BlockHeight,
			result.Before.Price.String(),
			result.UnderlyingPrice.String(),
			result.Growth,
		)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Shares minted:    %s\n", formatEth(report.SharesMinted))
	fmt.Fprintf(w, "Start balance:    %s ETH\n", formatEth(report.StartBalance))
	fmt.Fprintf(w, "End balance:      %s ETH\n", formatEth(report.FinalBalance))
	fmt.Fprintf(w, "Principal:        %s ETH\n", formatEth(report.Principal))
	profit.Fprintf(w, "Profit:           %s ETH\n", formatEth(report.Profit))
	fmt.Fprintf(w, "Duration:         %.1f hours\n", report.DurationHours)
	fmt.Fprintf(w, "Profit percent:   %.6f%%\n", report.ProfitPercent*100)
	fmt.Fprintf(w, "Daily yield:      %.6f%%\n", report.DailyYield*100)
	summary.Fprintf(w, "APR:              %.4f%%\n", report.APR*100)
	summary.Fprintf(w, "APY:              %.4f%%\n", report.APY*100)
}

func formatEth(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", eth.WeiToEth(wei))
}

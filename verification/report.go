package verification

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

const (
	hoursPerDay float64 = 24
	daysPerYear float64 = 365

	// APY assumes harvests compound twice a day
	compoundsPerDay float64 = 2
)

var (
	// Fixed-point scale used by facility and vault price ratios
	priceScale *big.Int = big.NewInt(1e18)
)

// Computes the yield report for a run from its start and end balances.
// Profit must be strictly positive, otherwise ErrNoProfit is returned.
func ComputeReport(principal *big.Int, startBalance *big.Int, finalBalance *big.Int, cycles uint, waitPerCycle time.Duration) (*YieldReport, error) {
	if principal == nil || principal.Sign() <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", ErrPrecondition)
	}
	durationHours := float64(cycles) * waitPerCycle.Hours()
	if durationHours <= 0 {
		return nil, fmt.Errorf("%w: run duration must be positive", ErrPrecondition)
	}

	profit := new(big.Int).Sub(finalBalance, startBalance)
	if profit.Sign() <= 0 {
		return nil, fmt.Errorf("%w: started with %s wei, ended with %s wei", ErrNoProfit, startBalance.String(), finalBalance.String())
	}

	profitPercent := ratio(profit, principal)
	dailyYield := profitPercent / durationHours * hoursPerDay
	return &YieldReport{
		Principal:     new(big.Int).Set(principal),
		StartBalance:  new(big.Int).Set(startBalance),
		FinalBalance:  new(big.Int).Set(finalBalance),
		Profit:        profit,
		DurationHours: durationHours,
		ProfitPercent: profitPercent,
		DailyYield:    dailyYield,
		APR:           dailyYield * daysPerYear,
		APY:           math.Pow(1+dailyYield/compoundsPerDay, daysPerYear*compoundsPerDay) - 1,
	}, nil
}

// Scales a vault share price by the facility's own price per share
func underlyingPrice(sharePrice *big.Int, facilityPricePerShare *big.Int) *big.Int {
	price := new(big.Int).Mul(sharePrice, facilityPricePerShare)
	return price.Quo(price, priceScale)
}

// Returns num / den as a float
func ratio(num *big.Int, den *big.Int) float64 {
	if den.Sign() == 0 {
		return 0
	}
	quo := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(den))
	f, _ := quo.Float64()
	return f
}

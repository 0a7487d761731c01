package services

import "github.com/shopspring/decimal"

// RoundMoney rounds to 2 decimals, half away from zero. Every derived
// monetary value passes through here so repeated recalculation cannot drift.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

package models

import "math"

// RoundMoney rounds an amount to 2 decimal places, half away from zero
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// PercentOf returns percent% of amount rounded to 2 decimal places
func PercentOf(amount, percent float64) float64 {
	return RoundMoney(amount * percent / 100)
}

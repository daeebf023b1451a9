package calc

import "strings"

// Converter converts an amount between currencies. Implementations decide
// where rates come from; unknown pairs pass the amount through unchanged.
type Converter interface {
	Convert(amount float64, from, to string) float64
}

// RateTable is a static Converter backed by per-pair exchange rates. Keys
// are "FROM-TO" with ISO 4217 codes.
type RateTable map[string]float64

// Convert applies the rate for the pair, looking up the inverse pair when
// the direct one is missing. Same-currency and unknown pairs pass through.
func (r RateTable) Convert(amount float64, from, to string) float64 {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount
	}

	if rate, ok := r[from+"-"+to]; ok && rate > 0 {
		return amount * rate
	}
	if rate, ok := r[to+"-"+from]; ok && rate > 0 {
		return amount / rate
	}
	return amount
}

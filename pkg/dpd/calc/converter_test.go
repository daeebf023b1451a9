package calc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kskby/dpd/pkg/dpd/calc"
)

func TestRateTable_DirectPair(t *testing.T) {
	rates := calc.RateTable{"RUB-KZT": 5.5}
	assert.InDelta(t, 550, rates.Convert(100, "RUB", "KZT"), 0.001)
}

func TestRateTable_InversePair(t *testing.T) {
	rates := calc.RateTable{"RUB-KZT": 5.5}
	assert.InDelta(t, 100, rates.Convert(550, "KZT", "RUB"), 0.001)
}

func TestRateTable_CaseInsensitiveCodes(t *testing.T) {
	rates := calc.RateTable{"RUB-KZT": 5.5}
	assert.InDelta(t, 550, rates.Convert(100, "rub", "kzt"), 0.001)
}

func TestRateTable_SameCurrency(t *testing.T) {
	rates := calc.RateTable{"RUB-KZT": 5.5}
	assert.InDelta(t, 100, rates.Convert(100, "RUB", "RUB"), 0.001)
}

func TestRateTable_UnknownPairPassesThrough(t *testing.T) {
	rates := calc.RateTable{"RUB-KZT": 5.5}
	assert.InDelta(t, 100, rates.Convert(100, "RUB", "AMD"), 0.001)
}

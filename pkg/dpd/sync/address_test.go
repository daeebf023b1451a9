package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kskby/dpd/pkg/dpd/api"
)

func TestComposeAddress_Full(t *testing.T) {
	addr := api.TerminalAddress{
		Index:      "115230",
		RegionName: "Московская",
		CityName:   "Москва",
		Street:     "Каширское шоссе",
		StreetAbbr: "ш",
		HouseNo:    "19",
		Building:   "2",
		Structure:  "1",
	}

	assert.Equal(t,
		"115230, Московская, Москва, Каширское шоссе ш, д. 19, корп. 2, стр. 1",
		composeAddress(addr, false))
}

func TestComposeAddress_Short(t *testing.T) {
	addr := api.TerminalAddress{
		Index:      "115230",
		RegionName: "Московская",
		CityName:   "Москва",
		Street:     "Каширское шоссе",
		StreetAbbr: "ш",
		HouseNo:    "19",
	}

	assert.Equal(t, "Каширское шоссе ш, д. 19", composeAddress(addr, true))
}

func TestComposeAddress_RegionSameAsCity(t *testing.T) {
	addr := api.TerminalAddress{
		RegionName: "Москва",
		CityName:   "Москва",
		Street:     "Профсоюзная",
		StreetAbbr: "ул",
		HouseNo:    "4",
	}

	assert.Equal(t, "Москва, Профсоюзная ул, д. 4", composeAddress(addr, false))
}

func TestComposeAddress_SkipsEmptyComponents(t *testing.T) {
	addr := api.TerminalAddress{
		CityName: "Тверь",
		Street:   "Советская",
	}

	assert.Equal(t, "Тверь, Советская", composeAddress(addr, false))
	assert.Equal(t, "Советская", composeAddress(addr, true))
}

func TestComposeAddress_Ownership(t *testing.T) {
	addr := api.TerminalAddress{
		Street:     "Ленина",
		StreetAbbr: "пр-кт",
		Ownership:  "5А",
	}

	assert.Equal(t, "Ленина пр-кт, вл. 5А", composeAddress(addr, true))
}

package sync

import (
	"strings"

	"github.com/kskby/dpd/pkg/dpd/api"
)

// composeAddress renders a terminal address as one display string: postal
// code, region (omitted when identical to the city), city, street with its
// abbreviation, then the building qualifiers each with its fixed prefix.
// The short variant drops the postal/region/city head.
func composeAddress(addr api.TerminalAddress, short bool) string {
	var parts []string

	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	if !short {
		add(addr.Index)
		if addr.RegionName != addr.CityName {
			add(addr.RegionName)
		}
		add(addr.CityName)
	}

	add(strings.TrimSpace(addr.Street + " " + addr.StreetAbbr))

	if addr.HouseNo != "" {
		add("д. " + addr.HouseNo)
	}
	if addr.Building != "" {
		add("корп. " + addr.Building)
	}
	if addr.Structure != "" {
		add("стр. " + addr.Structure)
	}
	if addr.Ownership != "" {
		add("вл. " + addr.Ownership)
	}

	return strings.Join(parts, ", ")
}

package sync

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// RegionCodesFromDir loads per-country region code tables from
// regions_<CC>.json files in dir. Each file maps lowercased region names
// to carrier region codes. Missing or unreadable files yield an empty
// table, leaving region codes unresolved.
//
// Results are cached per country. The pipeline is single-threaded, so the
// cache needs no locking.
func RegionCodesFromDir(dir string) RegionCodeSource {
	cache := map[string]map[string]string{}

	return func(countryCode string) map[string]string {
		if countryCode == "" {
			return nil
		}
		if table, ok := cache[countryCode]; ok {
			return table
		}

		table := map[string]string{}
		raw, err := os.ReadFile(filepath.Join(dir, "regions_"+countryCode+".json"))
		if err == nil {
			// A malformed table degrades to unresolved codes.
			_ = json.Unmarshal(raw, &table)
		}
		cache[countryCode] = table
		return table
	}
}

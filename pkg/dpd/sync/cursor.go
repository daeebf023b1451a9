package sync

import (
	"fmt"
	"strconv"
	"strings"
)

// Cursor formats. Each step of the pipeline uses its own encoding:
// byte-offset steps store "offset:total", list steps "index:total" and
// per-country steps "CC:index". A cursor is meaningless outside its step.

func formatOffsetCursor(offset, total int64) string {
	return fmt.Sprintf("%d:%d", offset, total)
}

// parseOffsetCursor extracts the resume offset. The total recorded after
// the colon is progress info only and is ignored on resume.
func parseOffsetCursor(cursor string) int64 {
	head, _, _ := strings.Cut(cursor, ":")
	n, err := strconv.ParseInt(head, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatIndexCursor(index, total int) string {
	return fmt.Sprintf("%d:%d", index, total)
}

func parseIndexCursor(cursor string) int {
	head, _, _ := strings.Cut(cursor, ":")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatCountryCursor(countryCode string, index int) string {
	return fmt.Sprintf("%s:%d", countryCode, index)
}

// parseCountryCursor splits a "CC:index" cursor, falling back to the first
// configured country at index 0.
func parseCountryCursor(cursor, defaultCountry string) (string, int) {
	country, rest, ok := strings.Cut(cursor, ":")
	if !ok || country == "" {
		return defaultCountry, 0
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		index = 0
	}
	return country, index
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Column layout of the bulk geography feed.
const (
	feedColCityID   = 0
	feedColCityCode = 1
	feedColAbbr     = 2
	feedColCityName = 3
	feedColRegion   = 4
	feedColCountry  = 5
)

// LocationAgent imports the carrier's serviceable locations: the bulk
// geography feed and the per-country cash-on-delivery city lists.
type LocationAgent struct {
	feed       *api.Feed
	geo        api.GeographyClient
	store      LocationStore
	normalizer *Normalizer
	budget     BudgetGuard
	logger     *otelzap.Logger
}

// NewLocationAgent creates a LocationAgent.
func NewLocationAgent(feed *api.Feed, geo api.GeographyClient, store LocationStore,
	normalizer *Normalizer, budget BudgetGuard, logger *otelzap.Logger) *LocationAgent {
	return &LocationAgent{
		feed:       feed,
		geo:        geo,
		store:      store,
		normalizer: normalizer,
		budget:     budget,
		logger:     logger,
	}
}

// LoadAll streams the bulk geography feed and upserts one location per row.
// The cursor is a byte offset into the feed; on a budget trip the returned
// cursor points just past the last processed row.
func (a *LocationAgent) LoadAll(ctx context.Context, cursor string, countries []string) (Result, error) {
	start := time.Now()
	active := activeCountryNames(countries)

	offset := parseOffsetCursor(cursor)
	reader, size, err := a.feed.Open(ctx, offset)
	if err != nil {
		return Result{}, err
	}
	defer reader.Close()

	a.logger.Info("Loading locations from geography feed",
		zap.Int64("offset", offset),
		zap.Int64("size", size),
	)

	for {
		if a.budget.ShouldStop(start) {
			return continued(formatOffsetCursor(reader.Offset(), size)), nil
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, dpd.ErrMalformedRecord) {
			a.logger.Warn("Skipping malformed feed row", zap.Error(err))
			continue
		}
		if err != nil {
			return Result{}, err
		}

		if len(row) <= feedColCountry {
			continue
		}

		country := row[feedColCountry]
		if len(active) > 0 && !active[strings.ToLower(country)] {
			continue
		}

		cityID, err := strconv.ParseInt(strings.TrimSpace(row[feedColCityID]), 10, 64)
		if err != nil {
			a.logger.Warn("Skipping feed row without numeric city id",
				zap.String("city_id", row[feedColCityID]))
			continue
		}

		regionParts := strings.Split(row[feedColRegion], ",")
		regionName := regionParts[len(regionParts)-1]
		cityName := row[feedColAbbr] + " " + row[feedColCityName]

		loc := a.buildLocation(
			a.normalizer.Normalize(country, regionName, cityName),
			cityID,
			trimCountryPrefix(row[feedColCityCode]),
			false,
			country, regionName, cityName,
		)

		if err := a.store.UpsertLocation(ctx, loc); err != nil {
			return Result{}, fmt.Errorf("%w: location %d: %v", dpd.ErrPersistence, cityID, err)
		}
	}

	return completed(), nil
}

// LoadCashPay imports the cities where cash-on-delivery is available, one
// remote call per configured country. The cursor is "CC:index"; the index
// applies to the cursor's country only.
func (a *LocationAgent) LoadCashPay(ctx context.Context, cursor string, countries []string) (Result, error) {
	if len(countries) == 0 {
		return completed(), nil
	}

	start := time.Now()
	cursorCountry, startIndex := parseCountryCursor(cursor, countries[0])
	started := false

	for _, countryCode := range countries {
		if countryCode != cursorCountry && !started {
			continue
		}
		started = true

		cities, err := a.geo.CitiesCashPay(ctx, countryCode)
		if err != nil {
			return Result{}, fmt.Errorf("cash-pay cities for %s: %w", countryCode, err)
		}

		for i, city := range cities {
			if countryCode == cursorCountry && i < startIndex {
				continue
			}

			if a.budget.ShouldStop(start) {
				a.logger.Info("Budget trip during cash-pay load",
					zap.String("country", countryCode),
					zap.Int("index", i),
					zap.Int("total", len(cities)),
				)
				return continued(formatCountryCursor(countryCode, i)), nil
			}

			cityName := city.Abbreviation + " " + city.CityName

			loc := a.buildLocation(
				a.normalizer.Normalize(city.CountryName, city.RegionName, cityName),
				city.CityID,
				city.CityCode,
				true,
				city.CountryName, city.RegionName, cityName,
			)

			if err := a.store.UpsertLocation(ctx, loc); err != nil {
				return Result{}, fmt.Errorf("%w: location %d: %v", dpd.ErrPersistence, city.CityID, err)
			}
		}
	}

	return completed(), nil
}

// buildLocation merges a normalized address with the raw identifiers and
// the original display name.
func (a *LocationAgent) buildLocation(na NormalizedAddress, cityID int64, cityCode string,
	cashPay bool, rawCountry, rawRegion, rawCity string) *dpd.Location {

	origName := strings.Join([]string{
		strings.TrimSpace(rawCountry),
		strings.TrimSpace(rawRegion),
		strings.TrimSpace(rawCity),
	}, ", ")

	return &dpd.Location{
		CountryCode: na.CountryCode,
		CountryName: na.CountryName,
		RegionCode:  na.RegionCode,
		RegionName:  na.RegionName,
		CityID:      cityID,
		CityCode:    cityCode,
		CityName:    na.CityName,
		CityAbbr:    na.CityAbbr,
		IsCashPay:   cashPay,
		OrigName:    origName,
		OrigNameLC:  strings.ToLower(origName),
		IsCity:      na.IsCity,
	}
}

// activeCountryNames maps the configured country codes to the lowercased
// native names the feed uses in its country column.
func activeCountryNames(countries []string) map[string]bool {
	active := make(map[string]bool, len(countries))
	for _, code := range countries {
		if name, ok := countryList[strings.ToUpper(code)]; ok {
			active[name] = true
		}
	}
	return active
}

// trimCountryPrefix drops the two-letter country prefix from a feed city
// code.
func trimCountryPrefix(code string) string {
	runes := []rune(code)
	if len(runes) <= 2 {
		return ""
	}
	return string(runes[2:])
}

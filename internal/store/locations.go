package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kskby/dpd/pkg/dpd"
)

const locationColumns = `id, country_code, country_name, region_code, region_name,
	city_id, city_code, city_name, city_abbr, is_cash_pay, orig_name, orig_name_lower, is_city`

// UpsertLocation inserts or updates a location keyed by its carrier city
// id. The cash-on-delivery flag is raise-only: the bulk feed does not carry
// it, so a reload must not clear flags set by the cash-pay pass.
func (s *Store) UpsertLocation(ctx context.Context, loc *dpd.Location) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dpd_location (country_code, country_name, region_code, region_name,
			city_id, city_code, city_name, city_name_lower, region_name_lower,
			city_abbr, is_cash_pay, orig_name, orig_name_lower, is_city)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(city_id) DO UPDATE SET
			country_code      = excluded.country_code,
			country_name      = excluded.country_name,
			region_code       = excluded.region_code,
			region_name       = excluded.region_name,
			city_code         = excluded.city_code,
			city_name         = excluded.city_name,
			city_name_lower   = excluded.city_name_lower,
			region_name_lower = excluded.region_name_lower,
			city_abbr         = excluded.city_abbr,
			is_cash_pay       = CASE WHEN excluded.is_cash_pay THEN 1 ELSE is_cash_pay END,
			orig_name         = excluded.orig_name,
			orig_name_lower   = excluded.orig_name_lower,
			is_city           = excluded.is_city
	`, loc.CountryCode, loc.CountryName, loc.RegionCode, loc.RegionName,
		loc.CityID, loc.CityCode, loc.CityName,
		strings.ToLower(loc.CityName), strings.ToLower(loc.RegionName),
		loc.CityAbbr, loc.IsCashPay, loc.OrigName, loc.OrigNameLC, loc.IsCity)
	return err
}

// LocationByCityID returns the location with the given carrier city id.
func (s *Store) LocationByCityID(ctx context.Context, cityID int64) (*dpd.Location, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM dpd_location WHERE city_id = ?`, cityID)
	return scanLocation(row)
}

// LocationByAddress returns the location matching a canonicalized
// country/region/city triple. Names are compared case-insensitively via
// the Go-lowercased columns; an empty region matches any.
func (s *Store) LocationByAddress(ctx context.Context, countryCode, regionName, cityName string) (*dpd.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM dpd_location
		WHERE country_code = ? AND city_name_lower = ?`
	args := []any{countryCode, strings.ToLower(cityName)}

	if regionName != "" {
		query += ` AND region_name_lower = ?`
		args = append(args, strings.ToLower(regionName))
	}
	query += ` ORDER BY is_city DESC, id LIMIT 1`

	return scanLocation(s.db.QueryRowContext(ctx, query, args...))
}

// SearchLocations finds locations whose original display name contains the
// query, case-insensitively.
func (s *Store) SearchLocations(ctx context.Context, query string, limit int) ([]*dpd.Location, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+` FROM dpd_location
		WHERE orig_name_lower LIKE ?
		ORDER BY is_city DESC, orig_name
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*dpd.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*dpd.Location, error) {
	var loc dpd.Location
	err := row.Scan(&loc.ID, &loc.CountryCode, &loc.CountryName, &loc.RegionCode, &loc.RegionName,
		&loc.CityID, &loc.CityCode, &loc.CityName, &loc.CityAbbr,
		&loc.IsCashPay, &loc.OrigName, &loc.OrigNameLC, &loc.IsCity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dpd.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan location: %w", err)
	}
	return &loc, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kskby/dpd/pkg/dpd"
)

const terminalColumns = `id, location_id, code, name, address_full, address_short, address_descr,
	parcel_shop_type, schedule_self_pickup, schedule_self_delivery,
	schedule_payment_cash, schedule_payment_cashless, schedule_payments,
	latitude, longitude, is_limited,
	limit_max_shipment_weight, limit_max_weight, limit_max_length,
	limit_max_width, limit_max_height, limit_max_volume, limit_sum_dimension,
	npp_amount, npp_available, services`

// UpsertTerminal inserts or updates a terminal keyed by its carrier code.
func (s *Store) UpsertTerminal(ctx context.Context, t *dpd.Terminal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dpd_terminal (location_id, code, name, address_full, address_short, address_descr,
			parcel_shop_type, schedule_self_pickup, schedule_self_delivery,
			schedule_payment_cash, schedule_payment_cashless, schedule_payments,
			latitude, longitude, is_limited,
			limit_max_shipment_weight, limit_max_weight, limit_max_length,
			limit_max_width, limit_max_height, limit_max_volume, limit_sum_dimension,
			npp_amount, npp_available, services)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			location_id               = excluded.location_id,
			name                      = excluded.name,
			address_full              = excluded.address_full,
			address_short             = excluded.address_short,
			address_descr             = excluded.address_descr,
			parcel_shop_type          = excluded.parcel_shop_type,
			schedule_self_pickup      = excluded.schedule_self_pickup,
			schedule_self_delivery    = excluded.schedule_self_delivery,
			schedule_payment_cash     = excluded.schedule_payment_cash,
			schedule_payment_cashless = excluded.schedule_payment_cashless,
			schedule_payments         = excluded.schedule_payments,
			latitude                  = excluded.latitude,
			longitude                 = excluded.longitude,
			is_limited                = excluded.is_limited,
			limit_max_shipment_weight = excluded.limit_max_shipment_weight,
			limit_max_weight          = excluded.limit_max_weight,
			limit_max_length          = excluded.limit_max_length,
			limit_max_width           = excluded.limit_max_width,
			limit_max_height          = excluded.limit_max_height,
			limit_max_volume          = excluded.limit_max_volume,
			limit_sum_dimension       = excluded.limit_sum_dimension,
			npp_amount                = excluded.npp_amount,
			npp_available             = excluded.npp_available,
			services                  = excluded.services
	`, t.LocationID, t.Code, t.Name, t.AddressFull, t.AddressShort, t.AddressDescr,
		t.ParcelShopType, t.ScheduleSelfPickup, t.ScheduleSelfDelivery,
		t.SchedulePaymentCash, t.SchedulePaymentCashless, t.SchedulePayments,
		t.Latitude, t.Longitude, t.IsLimited,
		t.LimitMaxShipmentWeight, t.LimitMaxWeight, t.LimitMaxLength,
		t.LimitMaxWidth, t.LimitMaxHeight, t.LimitMaxVolume, t.LimitSumDimension,
		t.NppAmount, t.NppAvailable, t.Services)
	return err
}

// TerminalByCode returns the terminal with the given carrier code.
func (s *Store) TerminalByCode(ctx context.Context, code string) (*dpd.Terminal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+terminalColumns+` FROM dpd_terminal WHERE code = ?`, code)

	t, err := scanTerminal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dpd.NewServiceError("store", "terminal_not_found",
			fmt.Sprintf("terminal %s not found", code))
	}
	return t, err
}

// TerminalsByLocation returns every terminal serving the given city.
func (s *Store) TerminalsByLocation(ctx context.Context, cityID int64) ([]*dpd.Terminal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+terminalColumns+` FROM dpd_terminal WHERE location_id = ? ORDER BY code`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*dpd.Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTerminals returns the number of stored terminals.
func (s *Store) CountTerminals(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dpd_terminal`).Scan(&count)
	return count, err
}

// DeleteTerminalPage removes at most limit terminals in id order and
// reports how many rows went away.
func (s *Store) DeleteTerminalPage(ctx context.Context, limit int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM dpd_terminal WHERE id IN (
			SELECT id FROM dpd_terminal ORDER BY id LIMIT ?
		)
	`, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTerminal(row rowScanner) (*dpd.Terminal, error) {
	var t dpd.Terminal
	err := row.Scan(&t.ID, &t.LocationID, &t.Code, &t.Name, &t.AddressFull, &t.AddressShort, &t.AddressDescr,
		&t.ParcelShopType, &t.ScheduleSelfPickup, &t.ScheduleSelfDelivery,
		&t.SchedulePaymentCash, &t.SchedulePaymentCashless, &t.SchedulePayments,
		&t.Latitude, &t.Longitude, &t.IsLimited,
		&t.LimitMaxShipmentWeight, &t.LimitMaxWeight, &t.LimitMaxLength,
		&t.LimitMaxWidth, &t.LimitMaxHeight, &t.LimitMaxVolume, &t.LimitSumDimension,
		&t.NppAmount, &t.NppAvailable, &t.Services)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

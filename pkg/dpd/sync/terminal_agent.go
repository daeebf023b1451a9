package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// serviceNpp is the cash-on-delivery extra service. Its parameter value is
// the maximum collectable amount; a parameterless declaration means the
// terminal accepts any amount.
const serviceNpp = "НПП"

// nppUnbounded stands in for "no declared maximum" on cash-on-delivery.
const nppUnbounded = 9999999999

// terminalDeletePage bounds each delete batch during a full reload.
const terminalDeletePage = 1000

// TerminalAgent imports the carrier's pickup/drop-off points: the global
// unlimited-terminal list and the per-country dimension-limited parcel
// shops.
type TerminalAgent struct {
	geo    api.GeographyClient
	store  TerminalStore
	budget BudgetGuard
	logger *otelzap.Logger

	// cleared guards the pre-import wipe so resumed invocations of a
	// single reload cycle do not wipe rows already imported.
	cleared bool
}

// NewTerminalAgent creates a TerminalAgent.
func NewTerminalAgent(geo api.GeographyClient, store TerminalStore, budget BudgetGuard, logger *otelzap.Logger) *TerminalAgent {
	return &TerminalAgent{
		geo:    geo,
		store:  store,
		budget: budget,
		logger: logger,
	}
}

// DeleteAll wipes the terminal table in pages. It runs at most once per
// agent instance; a reload cycle resumed with a fresh agent relies on the
// cursor to skip the wipe instead.
func (a *TerminalAgent) DeleteAll(ctx context.Context) error {
	if a.cleared {
		return nil
	}

	for {
		count, err := a.store.CountTerminals(ctx)
		if err != nil {
			return fmt.Errorf("%w: count terminals: %v", dpd.ErrPersistence, err)
		}
		if count == 0 {
			break
		}
		if _, err := a.store.DeleteTerminalPage(ctx, terminalDeletePage); err != nil {
			return fmt.Errorf("%w: delete terminals: %v", dpd.ErrPersistence, err)
		}
	}

	a.cleared = true
	return nil
}

// LoadUnlimited imports every terminal without parcel dimension limits.
// The list is global, so the cursor is a plain "index:total". A cursor at
// index zero marks the start of a reload cycle and wipes the table first.
func (a *TerminalAgent) LoadUnlimited(ctx context.Context, cursor string) (Result, error) {
	start := time.Now()
	startIndex := parseIndexCursor(cursor)

	if startIndex <= 0 {
		if err := a.DeleteAll(ctx); err != nil {
			return Result{}, err
		}
	}

	items, err := a.geo.TerminalsSelfDelivery(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("self-delivery terminals: %w", err)
	}

	a.logger.Info("Loading unlimited terminals",
		zap.Int("total", len(items)),
		zap.Int("start_index", startIndex),
	)

	for i, item := range items {
		if i < startIndex {
			continue
		}
		if a.budget.ShouldStop(start) {
			return continued(formatIndexCursor(i, len(items))), nil
		}
		if err := a.loadTerminal(ctx, &item); err != nil {
			return Result{}, err
		}
	}

	return completed(), nil
}

// LoadLimited imports the dimension-limited parcel shops, one remote call
// per configured country. The cursor is "CC:index"; the index applies to
// the cursor's country only. The table wipe belongs to the delete step and
// the unlimited load, so limited rows land on top of the unlimited ones.
func (a *TerminalAgent) LoadLimited(ctx context.Context, cursor string, countries []string) (Result, error) {
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

		items, err := a.geo.ParcelShops(ctx, countryCode)
		if err != nil {
			return Result{}, fmt.Errorf("parcel shops for %s: %w", countryCode, err)
		}

		a.logger.Info("Loading limited terminals",
			zap.String("country", countryCode),
			zap.Int("total", len(items)),
		)

		for i, item := range items {
			if countryCode == cursorCountry && i < startIndex {
				continue
			}
			if a.budget.ShouldStop(start) {
				return continued(formatCountryCursor(countryCode, i)), nil
			}
			if err := a.loadTerminal(ctx, &item); err != nil {
				return Result{}, err
			}
		}
	}

	return completed(), nil
}

// loadTerminal maps one remote terminal onto the stored record and upserts
// it. Terminals without any code and terminals in the "full" state (not
// accepting parcels) are skipped.
func (a *TerminalAgent) loadTerminal(ctx context.Context, item *api.TerminalItem) error {
	if item.TerminalCode == "" && item.Code == "" {
		return nil
	}
	if item.State == "full" {
		return nil
	}

	code := item.TerminalCode
	if code == "" {
		code = item.Code
	}

	shortAddr := composeAddress(item.Address, true)

	t := &dpd.Terminal{
		LocationID:     item.Address.CityID,
		Code:           code,
		Name:           shortAddr,
		AddressFull:    composeAddress(item.Address, false),
		AddressShort:   shortAddr,
		AddressDescr:   item.Address.Descript,
		ParcelShopType: item.ParcelShopType,

		ScheduleSelfPickup:      joinSchedule(item.Schedule, OpSelfPickup),
		ScheduleSelfDelivery:    joinSchedule(item.Schedule, OpSelfDelivery),
		SchedulePaymentCash:     joinSchedule(item.Schedule, OpPaymentCash),
		SchedulePaymentCashless: joinSchedule(item.Schedule, OpPaymentCard),
		SchedulePayments:        paymentSchedulesJSON(item.Schedule),

		Latitude:  item.Geo.Latitude,
		Longitude: item.Geo.Longitude,

		NppAmount: maxNppAmount(item.ExtraServices),
		Services:  serviceList(item.ExtraServices),
	}

	t.NppAvailable = t.NppAmount > 0 &&
		(t.SchedulePaymentCash != "" || t.SchedulePaymentCashless != "")

	if item.Limits != nil {
		t.IsLimited = true
		t.LimitMaxShipmentWeight = item.Limits.MaxShipmentWeight
		t.LimitMaxWeight = item.Limits.MaxWeight
		t.LimitMaxLength = item.Limits.MaxLength
		t.LimitMaxWidth = item.Limits.MaxWidth
		t.LimitMaxHeight = item.Limits.MaxHeight
		t.LimitSumDimension = item.Limits.DimensionSum
		t.LimitMaxVolume = round3(t.LimitMaxWidth * t.LimitMaxHeight * t.LimitMaxLength / 1000000)
	}

	if err := a.store.UpsertTerminal(ctx, t); err != nil {
		return fmt.Errorf("%w: terminal %s: %v", dpd.ErrPersistence, code, err)
	}
	return nil
}

func joinSchedule(schedule []api.ScheduleItem, operation string) string {
	return strings.Join(compressSchedule(schedule, operation), dpd.ScheduleSeparator)
}

func paymentSchedulesJSON(schedule []api.ScheduleItem) string {
	blob := make(map[string]string, len(paymentOps))
	for _, op := range paymentOps {
		blob[op] = joinSchedule(schedule, op)
	}
	encoded, err := json.Marshal(blob)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// maxNppAmount extracts the cash-on-delivery ceiling from the extra
// services. Zero means the service is absent.
func maxNppAmount(services []api.ExtraService) float64 {
	for _, svc := range services {
		if svc.Code != serviceNpp {
			continue
		}
		if svc.Params == nil {
			return nppUnbounded
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(svc.Params.Value), 64)
		if err != nil {
			return nppUnbounded
		}
		return amount
	}
	return 0
}

// serviceList renders the extra services as a pipe-delimited code list.
// Parameterized services expand to one code_param entry per value; the
// cash-on-delivery service is represented by its own column instead.
func serviceList(services []api.ExtraService) string {
	var codes []string
	for _, svc := range services {
		if svc.Code == serviceNpp {
			continue
		}
		if svc.Params != nil && svc.Params.Value != "" {
			for _, param := range strings.Split(svc.Params.Value, ",") {
				codes = append(codes, svc.Code+"_"+strings.TrimSpace(param))
			}
			continue
		}
		codes = append(codes, svc.Code)
	}
	return "|" + strings.Join(codes, "|") + "|"
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

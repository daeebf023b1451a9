// Package calc quotes delivery cost through the carrier's calculator
// service and applies the merchant's pricing policy on top: tariff
// filtering, cash-on-delivery commission, markup and currency conversion.
package calc

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
)

// Markup value kinds.
const (
	MarkupFixed   = "FIXED"
	MarkupPercent = "PERCENT"
)

// Config is the pricing policy applied to raw carrier quotes.
type Config struct {
	// DisabledTariffs lists tariff codes excluded from quoting.
	DisabledTariffs []string

	// DefaultTariff, when set, wins over the cheapest quote whenever the
	// cheapest cost falls below DefaultTariffThreshold.
	DefaultTariff          string
	DefaultTariffThreshold float64

	// DefaultPrice overrides the quoted cost entirely. A plain number
	// applies always; "courier|pickup" applies per delivery mode.
	DefaultPrice string

	// CalculateByParcels switches the quote to per-parcel dimensions.
	CalculateByParcels bool

	// Cash-on-delivery commission: max(price*percent/100, minimum) is
	// added to the cost when enabled and the shipment is paid on delivery.
	CommissionEnabled bool
	CommissionPercent float64
	CommissionMinSum  float64

	// Markup is added to every quote after commission.
	MarkupType  string
	MarkupValue float64

	// ClientCurrency is the currency the carrier quotes in.
	ClientCurrency string
}

// Calculator quotes shipments. It is not safe for concurrent use: the last
// successful quote is kept for inspection.
type Calculator struct {
	client    api.CalculatorClient
	converter Converter
	cfg       Config

	lastResult *dpd.Tariff
}

// NewCalculator creates a Calculator. The converter may be nil, in which
// case quotes stay in the client currency.
func NewCalculator(client api.CalculatorClient, converter Converter, cfg Config) *Calculator {
	if cfg.CommissionPercent == 0 {
		cfg.CommissionPercent = 2
	}
	return &Calculator{client: client, converter: converter, cfg: cfg}
}

// LastResult returns the most recent successful single-tariff quote, or
// nil when none has been made yet.
func (c *Calculator) LastResult() *dpd.Tariff {
	return c.lastResult
}

// AllowedTariffs returns the tariffs usable for the shipment: the full
// list minus the disabled codes, narrowed further for cash-on-delivery
// shipments crossing the BY border.
func (c *Calculator) AllowedTariffs(sh *dpd.Shipment) map[string]string {
	tariffs := dpd.TariffList()
	for _, code := range c.cfg.DisabledTariffs {
		delete(tariffs, code)
	}

	if sh != nil && sh.PaymentOnDelivery {
		switch {
		case sh.Receiver != nil && sh.Receiver.CountryCode == "BY":
			tariffs = keepOnly(tariffs, dpd.TariffOnlineExpress)
		case sh.Sender != nil && sh.Sender.CountryCode == "BY":
			tariffs = keepOnly(tariffs, dpd.TariffOptimum, dpd.TariffEconomy)
		}
	}

	return tariffs
}

// Calculate quotes the shipment and returns the optimal (cheapest for the
// customer) tariff, converted to the given currency when a converter is
// installed. An empty currency keeps the client currency.
func (c *Calculator) Calculate(ctx context.Context, sh *dpd.Shipment, currency string) (*dpd.Tariff, error) {
	tariffs, err := c.quote(ctx, sh, c.cfg.CalculateByParcels)
	if err != nil {
		return nil, err
	}

	tariff := c.actualTariff(tariffs)
	c.applyPolicy(&tariff, sh, currency)

	c.lastResult = &tariff
	return &tariff, nil
}

// CalculateAll quotes the shipment and returns every allowed tariff with
// the pricing policy applied.
func (c *Calculator) CalculateAll(ctx context.Context, sh *dpd.Shipment, currency string) ([]dpd.Tariff, error) {
	tariffs, err := c.quote(ctx, sh, c.cfg.CalculateByParcels)
	if err != nil {
		return nil, err
	}

	for i := range tariffs {
		c.applyPolicy(&tariffs[i], sh, currency)
	}
	return tariffs, nil
}

// CalculateWithTariff quotes the shipment with one specific tariff.
func (c *Calculator) CalculateWithTariff(ctx context.Context, sh *dpd.Shipment, tariffCode, currency string) (*dpd.Tariff, error) {
	tariffs, err := c.quote(ctx, sh, false)
	if err != nil {
		return nil, err
	}

	for i := range tariffs {
		if tariffs[i].ServiceCode != tariffCode {
			continue
		}
		tariff := tariffs[i]
		c.applyPolicy(&tariff, sh, currency)

		c.lastResult = &tariff
		return &tariff, nil
	}

	return nil, dpd.ErrNoTariffs
}

// quote calls the remote calculator and filters the answer down to the
// allowed tariffs.
func (c *Calculator) quote(ctx context.Context, sh *dpd.Shipment, byParcels bool) ([]dpd.Tariff, error) {
	if !sh.PossibleDelivery() {
		return nil, dpd.ErrDeliveryImpossible
	}

	req := c.buildRequest(sh, byParcels)

	var (
		quotes []api.ServiceCost
		err    error
	)
	if byParcels {
		quotes, err = c.client.ServiceCostByParcels(ctx, req)
	} else {
		quotes, err = c.client.ServiceCost(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	allowed := c.AllowedTariffs(sh)

	var tariffs []dpd.Tariff
	for _, q := range quotes {
		if _, ok := allowed[q.ServiceCode]; !ok {
			continue
		}
		tariffs = append(tariffs, dpd.Tariff{
			ServiceCode: q.ServiceCode,
			ServiceName: q.ServiceName,
			Cost:        q.Cost,
			Days:        q.Days,
			Currency:    c.cfg.ClientCurrency,
		})
	}

	if len(tariffs) == 0 {
		return nil, dpd.ErrNoTariffs
	}
	return tariffs, nil
}

func (c *Calculator) buildRequest(sh *dpd.Shipment, byParcels bool) *api.CostRequest {
	req := &api.CostRequest{
		Pickup:       cityRef(sh.Sender),
		Delivery:     cityRef(sh.Receiver),
		SelfPickup:   sh.SelfPickup,
		SelfDelivery: sh.SelfDelivery,
	}

	if sh.DeclaredValue {
		req.DeclaredValue = math.Round(sh.Price*100) / 100
	}

	if byParcels {
		for _, item := range sh.Items {
			req.Parcels = append(req.Parcels, api.Parcel{
				Weight:   item.Weight / 1000,
				Width:    item.Width / 10,
				Height:   item.Height / 10,
				Length:   item.Length / 10,
				Quantity: item.Quantity,
			})
		}
	} else {
		req.Weight = sh.Weight
		req.Volume = sh.Volume()
	}

	return req
}

// actualTariff picks the cheapest tariff, unless the default tariff is
// present and the cheapest cost falls below the configured threshold.
func (c *Calculator) actualTariff(tariffs []dpd.Tariff) dpd.Tariff {
	var defaultTariff *dpd.Tariff
	actual := tariffs[0]

	for i := range tariffs {
		if tariffs[i].ServiceCode == c.cfg.DefaultTariff {
			defaultTariff = &tariffs[i]
		}
		if tariffs[i].Cost < actual.Cost {
			actual = tariffs[i]
		}
	}

	if defaultTariff != nil && actual.Cost < c.cfg.DefaultTariffThreshold {
		return *defaultTariff
	}
	return actual
}

func (c *Calculator) applyPolicy(tariff *dpd.Tariff, sh *dpd.Shipment, currency string) {
	c.applyCommission(tariff, sh)
	c.applyMarkup(tariff)
	c.convertCurrency(tariff, currency)
}

// applyCommission applies the fixed price override and, for shipments paid
// on delivery, the cash-on-delivery commission.
func (c *Calculator) applyCommission(tariff *dpd.Tariff, sh *dpd.Shipment) {
	if price, ok := c.defaultPrice(sh); ok {
		tariff.Cost = price
	}

	if !sh.PaymentOnDelivery || !c.cfg.CommissionEnabled {
		return
	}

	commission := sh.Price * c.cfg.CommissionPercent / 100
	tariff.Cost += math.Max(commission, c.cfg.CommissionMinSum)
}

// defaultPrice resolves the configured price override for the shipment's
// delivery mode. The "courier|pickup" form picks the half matching the
// self-delivery flag; either half may be left empty.
func (c *Calculator) defaultPrice(sh *dpd.Shipment) (float64, bool) {
	raw := strings.TrimSpace(c.cfg.DefaultPrice)
	if raw == "" {
		return 0, false
	}

	if price, err := strconv.ParseFloat(raw, 64); err == nil {
		return price, true
	}

	courier, pickup, found := strings.Cut(raw, "|")
	if !found {
		return 0, false
	}

	part := courier
	if sh.SelfDelivery {
		part = pickup
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func (c *Calculator) applyMarkup(tariff *dpd.Tariff) {
	if c.cfg.MarkupValue == 0 {
		return
	}

	switch c.cfg.MarkupType {
	case MarkupFixed:
		tariff.Cost += c.cfg.MarkupValue
	case MarkupPercent:
		tariff.Cost += tariff.Cost * c.cfg.MarkupValue / 100
	}
}

func (c *Calculator) convertCurrency(tariff *dpd.Tariff, currencyTo string) {
	if c.converter == nil {
		return
	}
	if currencyTo == "" {
		currencyTo = c.cfg.ClientCurrency
	}

	tariff.Cost = c.converter.Convert(tariff.Cost, c.cfg.ClientCurrency, currencyTo)
	tariff.Currency = currencyTo
}

func cityRef(loc *dpd.Location) api.CityRef {
	return api.CityRef{
		CityID:      loc.CityID,
		CityName:    loc.CityName,
		RegionCode:  loc.RegionCode,
		CountryCode: loc.CountryCode,
	}
}

func keepOnly(tariffs map[string]string, codes ...string) map[string]string {
	kept := make(map[string]string, len(codes))
	for _, code := range codes {
		if name, ok := tariffs[code]; ok {
			kept[code] = name
		}
	}
	return kept
}

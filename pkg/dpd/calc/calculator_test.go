package calc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/kskby/dpd/pkg/dpd/calc"
)

func location(cityID int64, countryCode string) *dpd.Location {
	return &dpd.Location{CityID: cityID, CountryCode: countryCode, CityName: "Город"}
}

func shipment() *dpd.Shipment {
	return &dpd.Shipment{
		Sender:   location(195455591, "RU"),
		Receiver: location(49694102, "KZ"),
		Weight:   2.5,
		Width:    20,
		Height:   15,
		Length:   30,
		Price:    1000,
	}
}

func newCalculator(cfg calc.Config) (*calc.Calculator, *api.MockClient) {
	client := api.NewMockClient()
	if cfg.ClientCurrency == "" {
		cfg.ClientCurrency = "RUB"
	}
	return calc.NewCalculator(client, nil, cfg), client
}

func TestCalculate_PicksCheapestTariff(t *testing.T) {
	c, _ := newCalculator(calc.Config{})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)

	assert.Equal(t, dpd.TariffEconomy, tariff.ServiceCode)
	assert.InDelta(t, 289.50, tariff.Cost, 0.001)
	assert.Equal(t, "RUB", tariff.Currency)
	assert.Equal(t, tariff, c.LastResult())
}

func TestCalculate_DefaultTariffWinsBelowThreshold(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		DefaultTariff:          dpd.TariffClassic,
		DefaultTariffThreshold: 300,
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)

	assert.Equal(t, dpd.TariffClassic, tariff.ServiceCode)
	assert.InDelta(t, 512.80, tariff.Cost, 0.001)
}

func TestCalculate_DefaultTariffIgnoredAboveThreshold(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		DefaultTariff:          dpd.TariffClassic,
		DefaultTariffThreshold: 100,
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.Equal(t, dpd.TariffEconomy, tariff.ServiceCode)
}

func TestCalculate_SkipsDisabledTariffs(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		DisabledTariffs: []string{dpd.TariffEconomy},
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.Equal(t, dpd.TariffOptimum, tariff.ServiceCode)
}

func TestCalculate_AllTariffsDisabled(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		DisabledTariffs: []string{dpd.TariffOptimum, dpd.TariffClassic, dpd.TariffEconomy},
	})

	_, err := c.Calculate(context.Background(), shipment(), "")
	assert.ErrorIs(t, err, dpd.ErrNoTariffs)
}

func TestCalculate_UnresolvedEndpoint(t *testing.T) {
	c, _ := newCalculator(calc.Config{})

	sh := shipment()
	sh.Receiver = &dpd.Location{}

	_, err := c.Calculate(context.Background(), sh, "")
	assert.ErrorIs(t, err, dpd.ErrDeliveryImpossible)
}

func TestCalculate_RemoteError(t *testing.T) {
	c, client := newCalculator(calc.Config{})
	client.SimulateErrors = true

	_, err := c.Calculate(context.Background(), shipment(), "")
	require.Error(t, err)
	assert.Nil(t, c.LastResult())
}

func TestCalculate_CashOnDeliveryCommission(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		CommissionEnabled: true,
		CommissionMinSum:  50,
	})

	sh := shipment()
	sh.PaymentOnDelivery = true

	// Price 1000 at the default 2% yields 20; the minimum of 50 wins.
	tariff, err := c.Calculate(context.Background(), sh, "")
	require.NoError(t, err)
	assert.InDelta(t, 289.50+50, tariff.Cost, 0.001)

	// Price 10000 yields 200, above the minimum.
	sh.Price = 10000
	tariff, err = c.Calculate(context.Background(), sh, "")
	require.NoError(t, err)
	assert.InDelta(t, 289.50+200, tariff.Cost, 0.001)
}

func TestCalculate_CommissionSkippedWithoutPaymentOnDelivery(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		CommissionEnabled: true,
		CommissionMinSum:  50,
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.InDelta(t, 289.50, tariff.Cost, 0.001)
}

func TestCalculate_FixedMarkup(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		MarkupType:  calc.MarkupFixed,
		MarkupValue: 100,
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.InDelta(t, 389.50, tariff.Cost, 0.001)
}

func TestCalculate_PercentMarkup(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		MarkupType:  calc.MarkupPercent,
		MarkupValue: 10,
	})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.InDelta(t, 318.45, tariff.Cost, 0.001)
}

func TestCalculate_NumericDefaultPrice(t *testing.T) {
	c, _ := newCalculator(calc.Config{DefaultPrice: "199"})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.InDelta(t, 199, tariff.Cost, 0.001)
}

func TestCalculate_SplitDefaultPrice(t *testing.T) {
	c, _ := newCalculator(calc.Config{DefaultPrice: "300|150"})

	tariff, err := c.Calculate(context.Background(), shipment(), "")
	require.NoError(t, err)
	assert.InDelta(t, 300, tariff.Cost, 0.001, "courier half applies by default")

	sh := shipment()
	sh.SelfDelivery = true
	tariff, err = c.Calculate(context.Background(), sh, "")
	require.NoError(t, err)
	assert.InDelta(t, 150, tariff.Cost, 0.001, "pickup half applies on self-delivery")
}

func TestCalculate_CurrencyConversion(t *testing.T) {
	client := api.NewMockClient()
	rates := calc.RateTable{"RUB-KZT": 5.5}
	c := calc.NewCalculator(client, rates, calc.Config{ClientCurrency: "RUB"})

	tariff, err := c.Calculate(context.Background(), shipment(), "KZT")
	require.NoError(t, err)

	assert.Equal(t, "KZT", tariff.Currency)
	assert.InDelta(t, 289.50*5.5, tariff.Cost, 0.001)
}

func TestCalculateAll_AppliesPolicyToEveryTariff(t *testing.T) {
	c, _ := newCalculator(calc.Config{
		MarkupType:  calc.MarkupFixed,
		MarkupValue: 10,
	})

	tariffs, err := c.CalculateAll(context.Background(), shipment(), "")
	require.NoError(t, err)
	require.Len(t, tariffs, 3)

	costs := map[string]float64{}
	for _, tariff := range tariffs {
		costs[tariff.ServiceCode] = tariff.Cost
	}
	assert.InDelta(t, 355.20, costs[dpd.TariffOptimum], 0.001)
	assert.InDelta(t, 522.80, costs[dpd.TariffClassic], 0.001)
	assert.InDelta(t, 299.50, costs[dpd.TariffEconomy], 0.001)
}

func TestCalculateWithTariff(t *testing.T) {
	c, _ := newCalculator(calc.Config{})

	tariff, err := c.CalculateWithTariff(context.Background(), shipment(), dpd.TariffClassic, "")
	require.NoError(t, err)
	assert.Equal(t, dpd.TariffClassic, tariff.ServiceCode)
	assert.InDelta(t, 512.80, tariff.Cost, 0.001)

	_, err = c.CalculateWithTariff(context.Background(), shipment(), "XXX", "")
	assert.ErrorIs(t, err, dpd.ErrNoTariffs)
}

func TestCalculate_ByParcels(t *testing.T) {
	client := api.NewMockClient()

	var captured *api.CostRequest
	client.OnServiceCostByParcels = func(_ context.Context, req *api.CostRequest) ([]api.ServiceCost, error) {
		captured = req
		return []api.ServiceCost{{ServiceCode: dpd.TariffOptimum, ServiceName: "DPD OPTIMUM", Cost: 410, Days: 3}}, nil
	}

	c := calc.NewCalculator(client, nil, calc.Config{
		ClientCurrency:     "RUB",
		CalculateByParcels: true,
	})

	sh := shipment()
	sh.Items = []dpd.ShipmentItem{
		{Weight: 1500, Width: 200, Height: 150, Length: 300, Quantity: 2},
	}

	tariff, err := c.Calculate(context.Background(), sh, "")
	require.NoError(t, err)
	assert.Equal(t, dpd.TariffOptimum, tariff.ServiceCode)

	require.NotNil(t, captured)
	require.Len(t, captured.Parcels, 1)
	// Order units are grams and millimeters, the carrier wants kg and cm.
	assert.InDelta(t, 1.5, captured.Parcels[0].Weight, 0.001)
	assert.InDelta(t, 20, captured.Parcels[0].Width, 0.001)
	assert.InDelta(t, 15, captured.Parcels[0].Height, 0.001)
	assert.InDelta(t, 30, captured.Parcels[0].Length, 0.001)
	assert.Equal(t, 2, captured.Parcels[0].Quantity)
}

func TestCalculate_DeclaredValueRounding(t *testing.T) {
	client := api.NewMockClient()

	var captured *api.CostRequest
	client.OnServiceCost = func(_ context.Context, req *api.CostRequest) ([]api.ServiceCost, error) {
		captured = req
		return []api.ServiceCost{{ServiceCode: dpd.TariffOptimum, Cost: 100}}, nil
	}

	c := calc.NewCalculator(client, nil, calc.Config{ClientCurrency: "RUB"})

	sh := shipment()
	sh.DeclaredValue = true
	sh.Price = 1234.5678

	_, err := c.Calculate(context.Background(), sh, "")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.InDelta(t, 1234.57, captured.DeclaredValue, 0.0001)
}

func TestAllowedTariffs_CashOnDeliveryAcrossBY(t *testing.T) {
	c, _ := newCalculator(calc.Config{})

	toBY := shipment()
	toBY.Receiver = location(12345, "BY")
	toBY.PaymentOnDelivery = true

	tariffs := c.AllowedTariffs(toBY)
	require.Len(t, tariffs, 1)
	assert.Contains(t, tariffs, dpd.TariffOnlineExpress)

	fromBY := shipment()
	fromBY.Sender = location(12345, "BY")
	fromBY.PaymentOnDelivery = true

	tariffs = c.AllowedTariffs(fromBY)
	require.Len(t, tariffs, 2)
	assert.Contains(t, tariffs, dpd.TariffOptimum)
	assert.Contains(t, tariffs, dpd.TariffEconomy)
}

func TestAllowedTariffs_NoRestrictionWithoutCashOnDelivery(t *testing.T) {
	c, _ := newCalculator(calc.Config{})

	sh := shipment()
	sh.Receiver = location(12345, "BY")

	tariffs := c.AllowedTariffs(sh)
	assert.Len(t, tariffs, len(dpd.TariffList()))
}

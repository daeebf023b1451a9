package api

import (
	"context"
	"time"
)

// MockClient is a mock implementation of GeographyClient and
// CalculatorClient for testing.
type MockClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCitiesCashPay         func(ctx context.Context, countryCode string) ([]CashPayCity, error)
	OnTerminalsSelfDelivery func(ctx context.Context) ([]TerminalItem, error)
	OnParcelShops           func(ctx context.Context, countryCode string) ([]TerminalItem, error)
	OnServiceCost           func(ctx context.Context, req *CostRequest) ([]ServiceCost, error)
	OnServiceCostByParcels  func(ctx context.Context, req *CostRequest) ([]ServiceCost, error)
}

// NewMockClient creates a new mock client with default behavior.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &MockError{}
	}
	return nil
}

// MockError is the error returned when SimulateErrors is set.
type MockError struct{}

func (e *MockError) Error() string { return "MOCK_ERROR: simulated API error" }

// CitiesCashPay returns mock cash-on-delivery cities.
func (m *MockClient) CitiesCashPay(ctx context.Context, countryCode string) ([]CashPayCity, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCitiesCashPay != nil {
		return m.OnCitiesCashPay(ctx, countryCode)
	}

	if countryCode != "RU" {
		return nil, nil
	}
	return []CashPayCity{
		{
			CityID:       195455591,
			CityCode:     "RU77000000000",
			CityName:     "Москва",
			Abbreviation: "г",
			RegionName:   "Московская",
			CountryName:  "Россия",
		},
		{
			CityID:       195455613,
			CityCode:     "RU78000000000",
			CityName:     "Санкт-Петербург",
			Abbreviation: "г",
			RegionName:   "Ленинградская",
			CountryName:  "Россия",
		},
	}, nil
}

// TerminalsSelfDelivery returns mock unlimited terminals.
func (m *MockClient) TerminalsSelfDelivery(ctx context.Context) ([]TerminalItem, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnTerminalsSelfDelivery != nil {
		return m.OnTerminalsSelfDelivery(ctx)
	}

	return []TerminalItem{
		{
			TerminalCode: "M10",
			Address: TerminalAddress{
				CityID:     195455591,
				Index:      "115230",
				RegionName: "Москва",
				CityName:   "Москва",
				Street:     "Каширское шоссе",
				StreetAbbr: "ш",
				HouseNo:    "19",
			},
			Schedule: []ScheduleItem{
				{Operation: "SelfPickup", Timetable: []Timetable{
					{WeekDays: "Пн,Вт,Ср,Чт,Пт", WorkTime: "09:00-19:00"},
					{WeekDays: "Сб", WorkTime: "10:00-16:00"},
				}},
				{Operation: "SelfDelivery", Timetable: []Timetable{
					{WeekDays: "Пн,Вт,Ср,Чт,Пт", WorkTime: "09:00-19:00"},
				}},
				{Operation: "Payment", Timetable: []Timetable{
					{WeekDays: "Пн,Вт,Ср,Чт,Пт", WorkTime: "09:00-19:00"},
				}},
				{Operation: "PaymentByBankCard", Timetable: []Timetable{
					{WeekDays: "Пн,Вт,Ср,Чт,Пт,Сб", WorkTime: "09:00-19:00"},
				}},
			},
			Geo: GeoCoordinates{Latitude: 55.654, Longitude: 37.621},
			ExtraServices: []ExtraService{
				{Code: "НПП", Params: &ServiceParams{Name: "sum_npp", Value: "300000"}},
				{Code: "ТРМ"},
			},
		},
	}, nil
}

// ParcelShops returns mock limited pickup points.
func (m *MockClient) ParcelShops(ctx context.Context, countryCode string) ([]TerminalItem, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnParcelShops != nil {
		return m.OnParcelShops(ctx, countryCode)
	}

	if countryCode != "RU" {
		return nil, nil
	}
	return []TerminalItem{
		{
			TerminalCode:   "PVZ1",
			ParcelShopType: "ПВП",
			Address: TerminalAddress{
				CityID:     195455591,
				Index:      "117036",
				RegionName: "Москва",
				CityName:   "Москва",
				Street:     "Профсоюзная",
				StreetAbbr: "ул",
				HouseNo:    "4",
			},
			Geo: GeoCoordinates{Latitude: 55.678, Longitude: 37.571},
			Limits: &TerminalLimits{
				MaxShipmentWeight: 31,
				MaxWeight:         31,
				MaxLength:         100,
				MaxWidth:          60,
				MaxHeight:         60,
				DimensionSum:      200,
			},
		},
	}, nil
}

// ServiceCost returns mock tariff quotes.
func (m *MockClient) ServiceCost(ctx context.Context, req *CostRequest) ([]ServiceCost, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnServiceCost != nil {
		return m.OnServiceCost(ctx, req)
	}

	return []ServiceCost{
		{ServiceCode: "PCL", ServiceName: "DPD OPTIMUM", Cost: 345.20, Days: 2},
		{ServiceCode: "CUR", ServiceName: "DPD CLASSIC", Cost: 512.80, Days: 1},
		{ServiceCode: "ECN", ServiceName: "DPD ECONOMY", Cost: 289.50, Days: 4},
	}, nil
}

// ServiceCostByParcels returns mock tariff quotes for by-parcel requests.
func (m *MockClient) ServiceCostByParcels(ctx context.Context, req *CostRequest) ([]ServiceCost, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnServiceCostByParcels != nil {
		return m.OnServiceCostByParcels(ctx, req)
	}
	return m.ServiceCost(ctx, req)
}

// Package api provides clients for the carrier's remote geography and
// calculator services and for the bulk geography feed.
package api

import (
	"context"
)

// GeographyClient defines the geography service operations the sync
// pipeline consumes. This abstraction allows for mock implementations
// during testing and the SOAP implementation in production.
type GeographyClient interface {
	// CitiesCashPay returns the cities of one country where
	// cash-on-delivery is available. The list is not paginated.
	CitiesCashPay(ctx context.Context, countryCode string) ([]CashPayCity, error)

	// TerminalsSelfDelivery returns every terminal without parcel
	// dimension/weight limits.
	TerminalsSelfDelivery(ctx context.Context) ([]TerminalItem, error)

	// ParcelShops returns the dimension-limited pickup points of one country.
	ParcelShops(ctx context.Context, countryCode string) ([]TerminalItem, error)
}

// CalculatorClient defines the cost calculation operations.
type CalculatorClient interface {
	// ServiceCost quotes every applicable tariff for total weight/volume.
	ServiceCost(ctx context.Context, req *CostRequest) ([]ServiceCost, error)

	// ServiceCostByParcels quotes using per-parcel dimensions.
	ServiceCostByParcels(ctx context.Context, req *CostRequest) ([]ServiceCost, error)
}

// ============================================================================
// Wire types (match the carrier SOAP service structures)
// ============================================================================

// CashPayCity is one row of the per-country cash-on-delivery city list.
type CashPayCity struct {
	CityID       int64  `xml:"cityId"`
	CityCode     string `xml:"cityCode"`
	CityName     string `xml:"cityName"`
	Abbreviation string `xml:"abbreviation"`
	RegionName   string `xml:"regionName"`
	CountryName  string `xml:"countryName"`
}

// TerminalItem is one terminal or parcel shop as returned by the remote
// service. TerminalCode is the current identifier; Code is the legacy one
// still used by some endpoints.
type TerminalItem struct {
	Code           string          `xml:"code"`
	TerminalCode   string          `xml:"terminalCode"`
	State          string          `xml:"state"`
	ParcelShopType string          `xml:"parcelShopType"`
	Address        TerminalAddress `xml:"address"`
	Schedule       []ScheduleItem  `xml:"schedule"`
	Geo            GeoCoordinates  `xml:"geoCoordinates"`
	Limits         *TerminalLimits `xml:"limits"`
	ExtraServices  []ExtraService  `xml:"extraService"`
}

// TerminalAddress is the structured address of a terminal.
type TerminalAddress struct {
	CityID     int64  `xml:"cityId"`
	Index      string `xml:"index"`
	RegionName string `xml:"regionName"`
	CityName   string `xml:"cityName"`
	Street     string `xml:"street"`
	StreetAbbr string `xml:"streetAbbr"`
	HouseNo    string `xml:"houseNo"`
	Building   string `xml:"building"`
	Structure  string `xml:"structure"`
	Ownership  string `xml:"ownership"`
	Descript   string `xml:"descript"`
}

// ScheduleItem is the working schedule for one operation kind.
type ScheduleItem struct {
	Operation string      `xml:"operation"`
	Timetable []Timetable `xml:"timetable"`
}

// Timetable binds a comma-separated weekday list to a work time window.
type Timetable struct {
	WeekDays string `xml:"weekDays"`
	WorkTime string `xml:"workTime"`
}

// GeoCoordinates holds the terminal position.
type GeoCoordinates struct {
	Latitude  float64 `xml:"latitude"`
	Longitude float64 `xml:"longitude"`
}

// TerminalLimits declares parcel capacity constraints. Dimensions are
// centimeters, weights are kilograms.
type TerminalLimits struct {
	MaxShipmentWeight float64 `xml:"maxShipmentWeight"`
	MaxWeight         float64 `xml:"maxWeight"`
	MaxLength         float64 `xml:"maxLength"`
	MaxWidth          float64 `xml:"maxWidth"`
	MaxHeight         float64 `xml:"maxHeight"`
	DimensionSum      float64 `xml:"dimensionSum"`
}

// ExtraService is an additional service offered at a terminal. Params is
// nil when the service carries no parameter element.
type ExtraService struct {
	Code   string         `xml:"esCode"`
	Params *ServiceParams `xml:"params"`
}

// ServiceParams is the parameter payload of an extra service. Value may be
// empty for services that are declared but unvalued.
type ServiceParams struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// CostRequest carries the shipment parameters for a cost calculation.
type CostRequest struct {
	Pickup        CityRef
	Delivery      CityRef
	SelfPickup    bool
	SelfDelivery  bool
	Weight        float64 // kg
	Volume        float64 // m3, omitted from the request when <= 0
	DeclaredValue float64
	Parcels       []Parcel
}

// CityRef identifies a city for the calculator, by id when known or by
// name otherwise.
type CityRef struct {
	CityID      int64
	CityName    string
	RegionCode  string
	CountryCode string
}

// Parcel is one package of a by-parcel cost request. Dimensions are
// centimeters, weight is kilograms.
type Parcel struct {
	Weight   float64
	Width    float64
	Height   float64
	Length   float64
	Quantity int
}

// ServiceCost is one tariff quote from the calculator service.
type ServiceCost struct {
	ServiceCode string  `xml:"serviceCode"`
	ServiceName string  `xml:"serviceName"`
	Cost        float64 `xml:"cost"`
	Days        int     `xml:"days"`
}

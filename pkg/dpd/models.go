// Package dpd defines the domain model for the DPD carrier integration:
// serviceable locations, pickup/drop-off terminals, shipments and tariffs.
package dpd

import (
	"encoding/json"
	"strings"
)

// ScheduleSeparator joins compressed schedule lines inside a single stored
// string. Accessors split on it to recover the per-window lines.
const ScheduleSeparator = "<br>"

// Location is a serviceable city or settlement imported from the carrier's
// geography data. CityID is the carrier-assigned natural key.
type Location struct {
	ID          int64
	CountryCode string // ISO 3166-1 alpha-2, empty when unresolved
	CountryName string
	RegionCode  string // empty when unresolved
	RegionName  string
	CityID      int64
	CityCode    string
	CityName    string
	CityAbbr    string
	IsCashPay   bool
	OrigName    string
	OrigNameLC  string
	IsCity      bool
}

// Resolved reports whether the location was matched against the carrier's
// reference tables well enough to be used for cost calculation.
func (l *Location) Resolved() bool {
	return l != nil && l.CityID > 0
}

// Terminal is a pickup/drop-off point. Code is the carrier-assigned natural
// key; LocationID links back to Location.CityID.
type Terminal struct {
	ID             int64
	LocationID     int64
	Code           string
	Name           string
	AddressFull    string
	AddressShort   string
	AddressDescr   string
	ParcelShopType string

	ScheduleSelfPickup      string
	ScheduleSelfDelivery    string
	SchedulePaymentCash     string
	SchedulePaymentCashless string
	// SchedulePayments keeps all payment-like schedules together as a JSON
	// object keyed by operation kind.
	SchedulePayments string

	Latitude  float64
	Longitude float64

	IsLimited              bool
	LimitMaxShipmentWeight float64
	LimitMaxWeight         float64
	LimitMaxLength         float64
	LimitMaxWidth          float64
	LimitMaxHeight         float64
	LimitMaxVolume         float64
	LimitSumDimension      float64

	NppAmount    float64
	NppAvailable bool

	// Services is a pipe-delimited service-code list with leading and
	// trailing delimiters so HasService can match on substrings safely.
	Services string
}

// SelfPickupSchedule returns the self-pickup schedule as per-window lines.
func (t *Terminal) SelfPickupSchedule() []string {
	return splitSchedule(t.ScheduleSelfPickup)
}

// SelfDeliverySchedule returns the self-delivery schedule as per-window lines.
func (t *Terminal) SelfDeliverySchedule() []string {
	return splitSchedule(t.ScheduleSelfDelivery)
}

// PaymentCashSchedule returns the cash payment schedule as per-window lines.
func (t *Terminal) PaymentCashSchedule() []string {
	return splitSchedule(t.SchedulePaymentCash)
}

// PaymentCashlessSchedule returns the card payment schedule as per-window lines.
func (t *Terminal) PaymentCashlessSchedule() []string {
	return splitSchedule(t.SchedulePaymentCashless)
}

// PaymentSchedules decodes the structured payment schedule blob.
func (t *Terminal) PaymentSchedules() map[string]string {
	out := map[string]string{}
	if t.SchedulePayments == "" {
		return out
	}
	if err := json.Unmarshal([]byte(t.SchedulePayments), &out); err != nil {
		return map[string]string{}
	}
	return out
}

// HasService reports whether the terminal offers the given extra-service
// code (optionally a code_parameter entry).
func (t *Terminal) HasService(code string) bool {
	return strings.Contains(t.Services, "|"+code+"|")
}

// CheckDimensions reports whether the shipment fits the terminal's declared
// capacity limits. Unlimited terminals accept everything. The three linear
// dimensions are compared axis by axis after sorting both sides, so a parcel
// may be rotated to fit.
func (t *Terminal) CheckDimensions(sh *Shipment) bool {
	if !t.IsLimited {
		return true
	}

	if t.LimitMaxWeight > 0 && sh.Weight > t.LimitMaxWeight {
		return false
	}
	if t.LimitMaxVolume > 0 && sh.Volume() > t.LimitMaxVolume {
		return false
	}
	if t.LimitSumDimension > 0 && sh.DimensionSum() > t.LimitSumDimension {
		return false
	}

	dims := sort3(sh.Width, sh.Height, sh.Length)
	max := sort3(t.LimitMaxWidth, t.LimitMaxHeight, t.LimitMaxLength)
	for i := range dims {
		if dims[i] > max[i] {
			return false
		}
	}
	return true
}

// MatchesLocation reports whether the terminal serves the given city.
func (t *Terminal) MatchesLocation(cityID int64) bool {
	return t.LocationID == cityID
}

func splitSchedule(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ScheduleSeparator)
}

func sort3(a, b, c float64) [3]float64 {
	v := [3]float64{a, b, c}
	if v[0] > v[1] {
		v[0], v[1] = v[1], v[0]
	}
	if v[1] > v[2] {
		v[1], v[2] = v[2], v[1]
	}
	if v[0] > v[1] {
		v[0], v[1] = v[1], v[0]
	}
	return v
}

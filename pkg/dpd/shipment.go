package dpd

// Shipment describes one parcel (or a set of parcels) to be quoted.
// Dimensions are centimeters, weight is kilograms, volume is cubic meters.
type Shipment struct {
	Sender   *Location
	Receiver *Location

	Weight float64
	Width  float64
	Height float64
	Length float64

	// Price is the order value. It backs both the declared value and the
	// cash-on-delivery amount check.
	Price         float64
	DeclaredValue bool
	Currency      string

	SelfPickup        bool
	SelfDelivery      bool
	PaymentOnDelivery bool

	Items []ShipmentItem
}

// ShipmentItem is one parcel of a multi-parcel shipment, used by the
// by-parcel cost calculation. Weight is grams, dimensions are millimeters
// (upstream order units); the API layer converts to kg/cm.
type ShipmentItem struct {
	Weight   float64
	Width    float64
	Height   float64
	Length   float64
	Quantity int
}

// Volume returns the shipment volume in cubic meters.
func (s *Shipment) Volume() float64 {
	return s.Width * s.Height * s.Length / 1000000
}

// DimensionSum returns the sum of the three linear dimensions.
func (s *Shipment) DimensionSum() float64 {
	return s.Width + s.Height + s.Length
}

// PossibleDelivery reports whether both endpoints resolve to known
// serviceable locations.
func (s *Shipment) PossibleDelivery() bool {
	return s.Sender.Resolved() && s.Receiver.Resolved()
}

package calc

import "github.com/kskby/dpd/pkg/dpd"

// CheckShipment reports whether the terminal can accept the shipment:
// it must serve the receiver's city, take the cash-on-delivery amount when
// payment happens on delivery, and fit the parcel within its limits.
// terminalCurrency is the currency of the terminal's country.
func CheckShipment(t *dpd.Terminal, sh *dpd.Shipment, conv Converter, terminalCurrency string) bool {
	if sh.Receiver == nil || !t.MatchesLocation(sh.Receiver.CityID) {
		return false
	}
	if sh.PaymentOnDelivery && !CheckPayment(t, sh, conv, terminalCurrency) {
		return false
	}
	return t.CheckDimensions(sh)
}

// CheckPayment reports whether the terminal can collect the shipment's
// cash-on-delivery amount. Without a converter the comparison across
// currencies is undecidable and the terminal is rejected.
func CheckPayment(t *dpd.Terminal, sh *dpd.Shipment, conv Converter, terminalCurrency string) bool {
	if !t.NppAvailable {
		return false
	}
	if conv == nil {
		return false
	}

	ceiling := conv.Convert(t.NppAmount, terminalCurrency, sh.Currency)
	return ceiling >= sh.Price
}

package dpd

// Tariff service codes supported by the carrier.
const (
	TariffOptimum       = "PCL"
	TariffClassic       = "CUR"
	TariffOnlineExpress = "CSM"
	TariffEconomy       = "ECN"
	TariffEconomyCU     = "ECU"
	TariffExpress       = "NDY"
	Tariff18            = "BZP"
	TariffStandard      = "MXO"
	TariffMaxDomestic   = "MAX"
	TariffShop          = "PUP"
	TariffSameDay       = "DAY"
)

// TariffList returns the supported tariff codes with their display names.
func TariffList() map[string]string {
	return map[string]string{
		TariffOptimum:       "DPD OPTIMUM",
		TariffClassic:       "DPD CLASSIC",
		TariffOnlineExpress: "DPD Online Express",
		TariffEconomy:       "DPD ECONOMY",
		TariffEconomyCU:     "DPD ECONOMY CU",
		TariffExpress:       "DPD EXPRESS",
		Tariff18:            "DPD 18:00",
		TariffStandard:      "MXO DPD STANDARD",
		TariffMaxDomestic:   "DPD MAX domestic",
		TariffShop:          "DPD SHOP",
		TariffSameDay:       "DPD Same Day",
	}
}

// Tariff is one priced delivery option.
type Tariff struct {
	ServiceCode string
	ServiceName string
	Cost        float64
	Days        int
	Currency    string
}

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DataDir string `envconfig:"DATA_DIR" default:"./data"`
	DBPath  string `envconfig:"DB_PATH" default:"./data/dpd.db"`

	// DPD API
	DPDClientNumber  string `envconfig:"DPD_CLIENT_NUMBER"`
	DPDClientKey     string `envconfig:"DPD_CLIENT_KEY"`
	DPDGeographyURL  string `envconfig:"DPD_GEOGRAPHY_URL" default:"https://ws.dpd.ru/services/geography2?wsdl"`
	DPDCalculatorURL string `envconfig:"DPD_CALCULATOR_URL" default:"https://ws.dpd.ru/services/calculator2?wsdl"`
	DPDUseMock       bool   `envconfig:"DPD_USE_MOCK" default:"false"`
	CitiesFeedURL    string `envconfig:"DPD_CITIES_FEED_URL" default:"https://www.dpd.ru/dpd/f/ecities.csv"`

	// Sync pipeline
	SyncInterval      string   `envconfig:"SYNC_INTERVAL" default:"5m"`
	SyncBudget        string   `envconfig:"SYNC_BUDGET" default:"30s"`
	SyncCountries     []string `envconfig:"SYNC_COUNTRIES" default:"RU,KZ,BY,AM,KG"`
	TerminalCountries []string `envconfig:"TERMINAL_COUNTRIES" default:"RU,KZ,BY,AM,KG"`
	RegionCodesDir    string   `envconfig:"REGION_CODES_DIR"`

	// Pricing
	DisabledTariffs        []string `envconfig:"TARIFF_OFF"`
	DefaultTariff          string   `envconfig:"DEFAULT_TARIFF_CODE"`
	DefaultTariffThreshold float64  `envconfig:"DEFAULT_TARIFF_THRESHOLD" default:"0"`
	DefaultPrice           string   `envconfig:"DEFAULT_PRICE"`
	CalculateByParcels     bool     `envconfig:"CALCULATE_BY_PARCEL" default:"false"`
	CommissionEnabled      bool     `envconfig:"COMMISSION_NPP_CHECK" default:"false"`
	CommissionPercent      float64  `envconfig:"COMMISSION_NPP_PERCENT" default:"2"`
	CommissionMinSum       float64  `envconfig:"COMMISSION_NPP_MINSUM" default:"0"`
	MarkupType             string   `envconfig:"MARKUP_TYPE" default:"FIXED"`
	MarkupValue            float64  `envconfig:"MARKUP_VALUE" default:"0"`

	// Currency
	ClientCurrency    string             `envconfig:"CLIENT_CURRENCY" default:"RUB"`
	CurrencyByCountry map[string]string  `envconfig:"CURRENCY_BY_COUNTRY" default:"RU:RUB,KZ:KZT,BY:BYN,AM:AMD,KG:KGS"`
	CurrencyRates     map[string]float64 `envconfig:"CURRENCY_RATES"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"kskby-dpd"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// TerminalCurrency returns the currency used in the given country, falling
// back to the client currency.
func (c *Config) TerminalCurrency(countryCode string) string {
	if currency, ok := c.CurrencyByCountry[countryCode]; ok {
		return currency
	}
	return c.ClientCurrency
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("dpd.use_mock", c.DPDUseMock),
	}
}

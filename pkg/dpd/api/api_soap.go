package api

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/kskby/dpd/pkg/dpd"
)

// SOAPClient is the production implementation of GeographyClient and
// CalculatorClient against the carrier's SOAP services.
type SOAPClient struct {
	geographyURL  string
	calculatorURL string
	clientNumber  string
	clientKey     string
	httpClient    *http.Client
}

// SOAPClientConfig holds configuration for the SOAP client.
type SOAPClientConfig struct {
	GeographyURL  string
	CalculatorURL string
	ClientNumber  string
	ClientKey     string
	Timeout       time.Duration
}

// NewSOAPClient creates a new SOAP-based client for production use.
func NewSOAPClient(cfg SOAPClientConfig) *SOAPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SOAPClient{
		geographyURL:  strings.TrimSuffix(cfg.GeographyURL, "?wsdl"),
		calculatorURL: strings.TrimSuffix(cfg.CalculatorURL, "?wsdl"),
		clientNumber:  cfg.ClientNumber,
		clientKey:     cfg.ClientKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CitiesCashPay fetches the cash-on-delivery city list for one country.
func (c *SOAPClient) CitiesCashPay(ctx context.Context, countryCode string) ([]CashPayCity, error) {
	body, err := c.buildEnvelope(citiesCashPayTemplate, map[string]string{
		"CountryCode": countryCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.geographyURL, "getCitiesCashPay", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError("geography", resp)
	}

	var out citiesCashPayResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode cities response: %w", err)
	}
	return out.Cities, nil
}

// TerminalsSelfDelivery fetches all terminals without capacity limits.
func (c *SOAPClient) TerminalsSelfDelivery(ctx context.Context) ([]TerminalItem, error) {
	body, err := c.buildEnvelope(terminalsSelfDeliveryTemplate, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.geographyURL, "getTerminalsSelfDelivery2", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError("geography", resp)
	}

	var out terminalsResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode terminals response: %w", err)
	}
	return out.Terminals, nil
}

// ParcelShops fetches the dimension-limited pickup points of one country.
func (c *SOAPClient) ParcelShops(ctx context.Context, countryCode string) ([]TerminalItem, error) {
	body, err := c.buildEnvelope(parcelShopsTemplate, map[string]string{
		"CountryCode": countryCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.geographyURL, "getParcelShops", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError("geography", resp)
	}

	var out parcelShopsResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode parcel shops response: %w", err)
	}
	return out.Shops, nil
}

// ServiceCost quotes every applicable tariff for the shipment totals.
func (c *SOAPClient) ServiceCost(ctx context.Context, req *CostRequest) ([]ServiceCost, error) {
	return c.serviceCost(ctx, "getServiceCost2", serviceCostTemplate, req)
}

// ServiceCostByParcels quotes using per-parcel dimensions.
func (c *SOAPClient) ServiceCostByParcels(ctx context.Context, req *CostRequest) ([]ServiceCost, error) {
	return c.serviceCost(ctx, "getServiceCostByParcels2", serviceCostByParcelsTemplate, req)
}

func (c *SOAPClient) serviceCost(ctx context.Context, action, tmpl string, req *CostRequest) ([]ServiceCost, error) {
	body, err := c.buildEnvelope(tmpl, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, c.calculatorURL, action, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError("calculator", resp)
	}

	var out serviceCostResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode cost response: %w", err)
	}
	return out.Costs, nil
}

// ============================================================================
// SOAP plumbing
// ============================================================================

func (c *SOAPClient) doSOAPRequest(ctx context.Context, endpoint, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("http://dpd.ru/ws/%s", action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dpd.ErrRemoteUnavailable, err)
	}
	return resp, nil
}

const soapEnvelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns="http://dpd.ru/ws/">
  <soap:Body>
    {{.Body}}
  </soap:Body>
</soap:Envelope>`

// buildEnvelope renders the body template and wraps it into the common
// envelope. Authentication travels inside the request body, not headers.
func (c *SOAPClient) buildEnvelope(bodyTmpl string, data interface{}) ([]byte, error) {
	tmpl, err := template.New("body").Funcs(template.FuncMap{
		"clientNumber": func() string { return c.clientNumber },
		"clientKey":    func() string { return c.clientKey },
	}).Parse(bodyTmpl)
	if err != nil {
		return nil, err
	}

	var bodyBuf bytes.Buffer
	if err := tmpl.Execute(&bodyBuf, data); err != nil {
		return nil, err
	}

	envTmpl, err := template.New("envelope").Parse(soapEnvelopeTemplate)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := envTmpl.Execute(&out, map[string]string{"Body": bodyBuf.String()}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

const authFragment = `<auth>
        <clientNumber>{{clientNumber}}</clientNumber>
        <clientKey>{{clientKey}}</clientKey>
      </auth>`

const citiesCashPayTemplate = `<ns:getCitiesCashPay>
      <request>
        ` + authFragment + `
        <countryCode>{{.CountryCode}}</countryCode>
      </request>
    </ns:getCitiesCashPay>`

const terminalsSelfDeliveryTemplate = `<ns:getTerminalsSelfDelivery2>
      <request>
        ` + authFragment + `
      </request>
    </ns:getTerminalsSelfDelivery2>`

const parcelShopsTemplate = `<ns:getParcelShops>
      <request>
        ` + authFragment + `
        <countryCode>{{.CountryCode}}</countryCode>
      </request>
    </ns:getParcelShops>`

const serviceCostTemplate = `<ns:getServiceCost2>
      <request>
        ` + authFragment + `
        <pickup>
          <cityId>{{.Pickup.CityID}}</cityId>
          <cityName>{{.Pickup.CityName}}</cityName>
          <regionCode>{{.Pickup.RegionCode}}</regionCode>
          <countryCode>{{.Pickup.CountryCode}}</countryCode>
        </pickup>
        <delivery>
          <cityId>{{.Delivery.CityID}}</cityId>
          <cityName>{{.Delivery.CityName}}</cityName>
          <regionCode>{{.Delivery.RegionCode}}</regionCode>
          <countryCode>{{.Delivery.CountryCode}}</countryCode>
        </delivery>
        <selfPickup>{{if .SelfPickup}}1{{else}}0{{end}}</selfPickup>
        <selfDelivery>{{if .SelfDelivery}}1{{else}}0{{end}}</selfDelivery>
        <weight>{{.Weight}}</weight>
        {{if gt .Volume 0.0}}<volume>{{.Volume}}</volume>{{end}}
        {{if gt .DeclaredValue 0.0}}<declaredValue>{{.DeclaredValue}}</declaredValue>{{end}}
      </request>
    </ns:getServiceCost2>`

const serviceCostByParcelsTemplate = `<ns:getServiceCostByParcels2>
      <request>
        ` + authFragment + `
        <pickup>
          <cityId>{{.Pickup.CityID}}</cityId>
          <cityName>{{.Pickup.CityName}}</cityName>
          <regionCode>{{.Pickup.RegionCode}}</regionCode>
          <countryCode>{{.Pickup.CountryCode}}</countryCode>
        </pickup>
        <delivery>
          <cityId>{{.Delivery.CityID}}</cityId>
          <cityName>{{.Delivery.CityName}}</cityName>
          <regionCode>{{.Delivery.RegionCode}}</regionCode>
          <countryCode>{{.Delivery.CountryCode}}</countryCode>
        </delivery>
        <selfPickup>{{if .SelfPickup}}1{{else}}0{{end}}</selfPickup>
        <selfDelivery>{{if .SelfDelivery}}1{{else}}0{{end}}</selfDelivery>
        {{if gt .DeclaredValue 0.0}}<declaredValue>{{.DeclaredValue}}</declaredValue>{{end}}
        {{range .Parcels}}<parcel>
          <weight>{{.Weight}}</weight>
          <width>{{.Width}}</width>
          <height>{{.Height}}</height>
          <length>{{.Length}}</length>
          <quantity>{{.Quantity}}</quantity>
        </parcel>
        {{end}}
      </request>
    </ns:getServiceCostByParcels2>`

// ============================================================================
// Response envelopes
// ============================================================================

type citiesCashPayResponse struct {
	XMLName xml.Name      `xml:"Envelope"`
	Cities  []CashPayCity `xml:"Body>getCitiesCashPayResponse>return"`
}

type terminalsResponse struct {
	XMLName   xml.Name       `xml:"Envelope"`
	Terminals []TerminalItem `xml:"Body>getTerminalsSelfDelivery2Response>return>terminal"`
}

type parcelShopsResponse struct {
	XMLName xml.Name       `xml:"Envelope"`
	Shops   []TerminalItem `xml:"Body>getParcelShopsResponse>return>parcelShop"`
}

type serviceCostResponse struct {
	XMLName xml.Name      `xml:"Envelope"`
	Costs   []ServiceCost `xml:"Body>getServiceCost2Response>return"`
}

type soapFault struct {
	XMLName xml.Name `xml:"Envelope"`
	Code    string   `xml:"Body>Fault>faultcode"`
	Message string   `xml:"Body>Fault>faultstring"`
}

func (c *SOAPClient) parseSOAPError(service string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var fault soapFault
	if err := xml.Unmarshal(raw, &fault); err == nil && fault.Message != "" {
		return dpd.NewServiceError(service, fault.Code, fault.Message).
			WithRetryable(resp.StatusCode >= 500)
	}

	return dpd.NewServiceError(service, fmt.Sprintf("HTTP_%d", resp.StatusCode),
		http.StatusText(resp.StatusCode)).
		WithRetryable(resp.StatusCode >= 500).
		WithCause(dpd.ErrRemoteUnavailable)
}

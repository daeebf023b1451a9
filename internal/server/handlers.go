package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kskby/dpd/pkg/dpd"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountTerminals(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   s.cfg.Version,
		"terminals": count,
	})
}

// handleLocationSearch implements GET /api/v1/locations/search?q=&limit=.
func (s *Server) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing q parameter"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	locations, err := s.store.SearchLocations(r.Context(), query, limit)
	if err != nil {
		s.metrics.RecordRequest("location_search", "error", time.Since(start).Seconds())
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.metrics.RecordRequest("location_search", "ok", time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, map[string]any{"locations": locationsJSON(locations)})
}

// handleTerminals implements GET /api/v1/terminals?city_id=.
func (s *Server) handleTerminals(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cityID, err := strconv.ParseInt(r.URL.Query().Get("city_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("missing or invalid city_id parameter"))
		return
	}

	terminals, err := s.store.TerminalsByLocation(r.Context(), cityID)
	if err != nil {
		s.metrics.RecordRequest("terminals", "error", time.Since(start).Seconds())
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.metrics.RecordRequest("terminals", "ok", time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, map[string]any{"terminals": terminalsJSON(terminals)})
}

type quoteEndpoint struct {
	CityID  int64  `json:"city_id,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

type quoteRequest struct {
	Sender   quoteEndpoint `json:"sender"`
	Receiver quoteEndpoint `json:"receiver"`

	Weight float64 `json:"weight"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Length float64 `json:"length"`

	Price         float64 `json:"price"`
	DeclaredValue bool    `json:"declared_value"`
	Currency      string  `json:"currency,omitempty"`

	SelfPickup        bool `json:"self_pickup"`
	SelfDelivery      bool `json:"self_delivery"`
	PaymentOnDelivery bool `json:"payment_on_delivery"`

	TariffCode string `json:"tariff_code,omitempty"`
	All        bool   `json:"all,omitempty"`
}

type tariffJSON struct {
	ServiceCode string  `json:"service_code"`
	ServiceName string  `json:"service_name"`
	Cost        float64 `json:"cost"`
	Days        int     `json:"days"`
	Currency    string  `json:"currency,omitempty"`
}

// handleQuote implements POST /api/v1/quote.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	sender, err := s.resolveEndpoint(r, req.Sender)
	if err != nil {
		s.quoteError(w, start, err)
		return
	}
	receiver, err := s.resolveEndpoint(r, req.Receiver)
	if err != nil {
		s.quoteError(w, start, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = s.cfg.ClientCurrency
	}

	shipment := &dpd.Shipment{
		Sender:            sender,
		Receiver:          receiver,
		Weight:            req.Weight,
		Width:             req.Width,
		Height:            req.Height,
		Length:            req.Length,
		Price:             req.Price,
		DeclaredValue:     req.DeclaredValue,
		Currency:          currency,
		SelfPickup:        req.SelfPickup,
		SelfDelivery:      req.SelfDelivery,
		PaymentOnDelivery: req.PaymentOnDelivery,
	}

	var tariffs []dpd.Tariff
	switch {
	case req.All:
		tariffs, err = s.calculator.CalculateAll(r.Context(), shipment, req.Currency)
	case req.TariffCode != "":
		var tariff *dpd.Tariff
		tariff, err = s.calculator.CalculateWithTariff(r.Context(), shipment, req.TariffCode, req.Currency)
		if tariff != nil {
			tariffs = []dpd.Tariff{*tariff}
		}
	default:
		var tariff *dpd.Tariff
		tariff, err = s.calculator.Calculate(r.Context(), shipment, req.Currency)
		if tariff != nil {
			tariffs = []dpd.Tariff{*tariff}
		}
	}
	if err != nil {
		s.quoteError(w, start, err)
		return
	}

	out := make([]tariffJSON, 0, len(tariffs))
	for _, t := range tariffs {
		out = append(out, tariffJSON{
			ServiceCode: t.ServiceCode,
			ServiceName: t.ServiceName,
			Cost:        t.Cost,
			Days:        t.Days,
			Currency:    t.Currency,
		})
	}

	s.metrics.RecordRequest("quote", "ok", time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"quote_id": uuid.NewString(),
		"tariffs":  out,
	})
}

func (s *Server) quoteError(w http.ResponseWriter, start time.Time, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dpd.ErrLocationNotFound),
		errors.Is(err, dpd.ErrDeliveryImpossible):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, dpd.ErrNoTariffs):
		status = http.StatusNotFound
	case errors.Is(err, dpd.ErrRemoteUnavailable):
		status = http.StatusBadGateway
	}

	s.metrics.RecordRequest("quote", "error", time.Since(start).Seconds())
	s.writeError(w, status, err)
}

// resolveEndpoint maps a quote endpoint to a stored location, by carrier
// city id when given or by normalized address otherwise.
func (s *Server) resolveEndpoint(r *http.Request, ep quoteEndpoint) (*dpd.Location, error) {
	if ep.CityID > 0 {
		return s.store.LocationByCityID(r.Context(), ep.CityID)
	}

	na := s.normalizer.Normalize(ep.Country, ep.Region, ep.City)
	return s.store.LocationByAddress(r.Context(), na.CountryCode, na.RegionName, na.CityName)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.orchestrator.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleSyncTrigger implements POST /api/v1/sync. The invocation runs
// through the scheduler's singleflight group, so a trigger racing a timer
// tick shares its run.
func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	status, err := s.runSync(r.Context())
	if err != nil {
		s.logger.Error("Manual sync failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSyncReset(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Reset(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	status, err := s.orchestrator.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

type locationJSON struct {
	CityID      int64  `json:"city_id"`
	CountryCode string `json:"country_code,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	RegionName  string `json:"region_name,omitempty"`
	CityName    string `json:"city_name"`
	CityAbbr    string `json:"city_abbr,omitempty"`
	IsCashPay   bool   `json:"is_cash_pay"`
	IsCity      bool   `json:"is_city"`
	DisplayName string `json:"display_name"`
}

func locationsJSON(locations []*dpd.Location) []locationJSON {
	out := make([]locationJSON, 0, len(locations))
	for _, loc := range locations {
		out = append(out, locationJSON{
			CityID:      loc.CityID,
			CountryCode: loc.CountryCode,
			CountryName: loc.CountryName,
			RegionName:  loc.RegionName,
			CityName:    loc.CityName,
			CityAbbr:    loc.CityAbbr,
			IsCashPay:   loc.IsCashPay,
			IsCity:      loc.IsCity,
			DisplayName: loc.OrigName,
		})
	}
	return out
}

type terminalJSON struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	AddressFull    string   `json:"address_full"`
	AddressShort   string   `json:"address_short"`
	AddressDescr   string   `json:"address_descr,omitempty"`
	ParcelShopType string   `json:"parcel_shop_type,omitempty"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	SelfPickup     []string `json:"schedule_self_pickup,omitempty"`
	SelfDelivery   []string `json:"schedule_self_delivery,omitempty"`
	IsLimited      bool     `json:"is_limited"`
	MaxWeight      float64  `json:"max_weight,omitempty"`
	MaxVolume      float64  `json:"max_volume,omitempty"`
	NppAmount      float64  `json:"npp_amount,omitempty"`
	NppAvailable   bool     `json:"npp_available"`
	Services       string   `json:"services,omitempty"`
}

func terminalsJSON(terminals []*dpd.Terminal) []terminalJSON {
	out := make([]terminalJSON, 0, len(terminals))
	for _, t := range terminals {
		out = append(out, terminalJSON{
			Code:           t.Code,
			Name:           t.Name,
			AddressFull:    t.AddressFull,
			AddressShort:   t.AddressShort,
			AddressDescr:   t.AddressDescr,
			ParcelShopType: t.ParcelShopType,
			Latitude:       t.Latitude,
			Longitude:      t.Longitude,
			SelfPickup:     t.SelfPickupSchedule(),
			SelfDelivery:   t.SelfDeliverySchedule(),
			IsLimited:      t.IsLimited,
			MaxWeight:      t.LimitMaxWeight,
			MaxVolume:      t.LimitMaxVolume,
			NppAmount:      t.NppAmount,
			NppAvailable:   t.NppAvailable,
			Services:       t.Services,
		})
	}
	return out
}

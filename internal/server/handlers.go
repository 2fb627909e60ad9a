package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atlascommerce/shipping/internal/ratecache"
	"github.com/atlascommerce/shipping/internal/store"
	"github.com/atlascommerce/shipping/pkg/carrier"
)

// Wire types. Canonical model fields are mirrored in camelCase JSON.

type addressJSON struct {
	Name        string `json:"name,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

type moneyJSON struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type lineItemJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitValue float64 `json:"unitValue"`
	SKU       string  `json:"sku,omitempty"`
}

type shipmentRequestJSON struct {
	OrderID       string         `json:"orderId"`
	Origin        addressJSON    `json:"origin"`
	Destination   addressJSON    `json:"destination"`
	WeightGrams   float64        `json:"weightGrams"`
	LengthCM      float64        `json:"lengthCm"`
	WidthCM       float64        `json:"widthCm"`
	HeightCM      float64        `json:"heightCm"`
	DeclaredValue moneyJSON      `json:"declaredValue"`
	Items         []lineItemJSON `json:"items,omitempty"`
	Method        string         `json:"method,omitempty"`
	Instructions  string         `json:"instructions,omitempty"`
}

type shipmentJSON struct {
	ID                  string            `json:"id"`
	OrderID             string            `json:"orderId"`
	Carrier             string            `json:"carrier"`
	Region              string            `json:"region"`
	TrackingNumber      string            `json:"trackingNumber"`
	TrackingPlaceholder bool              `json:"trackingPlaceholder"`
	Status              string            `json:"status"`
	Cost                moneyJSON         `json:"cost"`
	EstimatedDelivery   *time.Time        `json:"estimatedDelivery,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

type updateJSON struct {
	ShipmentID     string            `json:"shipmentId"`
	TrackingNumber string            `json:"trackingNumber"`
	Status         string            `json:"status"`
	Location       string            `json:"location,omitempty"`
	Description    string            `json:"description,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type rateJSON struct {
	Carrier       string    `json:"carrier"`
	Method        string    `json:"method"`
	ServiceName   string    `json:"serviceName"`
	Cost          moneyJSON `json:"cost"`
	EstimatedDays int       `json:"estimatedDays"`
	Available     bool      `json:"available"`
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error(), Kind: carrier.KindValidation})
		return
	}

	rec, err := s.orchestrator.CreateShipment(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordToJSON(rec))
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	rec, err := s.orchestrator.GetShipmentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordToJSON(rec))
}

func (s *Server) handleTrackShipment(w http.ResponseWriter, r *http.Request) {
	updates, err := s.orchestrator.TrackShipment(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]updateJSON, len(updates))
	for i, u := range updates {
		out[i] = updateJSON{
			ShipmentID:     u.ShipmentID,
			TrackingNumber: u.TrackingNumber,
			Status:         string(u.Status),
			Location:       u.Location,
			Description:    u.Description,
			Timestamp:      u.Timestamp,
			Metadata:       u.Metadata,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	// An empty body means cancellation without a stated reason.
	_ = json.NewDecoder(r.Body).Decode(&body)

	cancelled, err := s.orchestrator.CancelShipment(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error(), Kind: carrier.KindValidation})
		return
	}
	all := r.URL.Query().Get("all") == "1"

	key := ratecache.Key(req, all)
	if rates, ok := s.rateCache.Get(r.Context(), key); ok {
		writeJSON(w, http.StatusOK, ratesToJSON(rates))
		return
	}

	var rates []carrier.ShippingRate
	if all {
		rates, err = s.orchestrator.GetRatesAll(r.Context(), req)
	} else {
		rates, err = s.orchestrator.GetRates(r.Context(), req)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.rateCache.Set(r.Context(), key, rates)
	writeJSON(w, http.StatusOK, ratesToJSON(rates))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "unreadable body", Kind: carrier.KindValidation})
		return
	}

	carrierID := chi.URLParam(r, "carrier")
	signature := r.Header.Get(SignatureHeader)

	if err := s.webhooks.Process(r.Context(), carrierID, payload, signature); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hooks, err := s.webhooks.Recent(r.Context(), chi.URLParam(r, "carrier"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type hookJSON struct {
		ID         string    `json:"id"`
		Carrier    string    `json:"carrier"`
		Event      string    `json:"event"`
		ReceivedAt time.Time `json:"receivedAt"`
		Processed  bool      `json:"processed"`
		RetryCount int       `json:"retryCount"`
	}
	out := make([]hookJSON, len(hooks))
	for i, h := range hooks {
		out[i] = hookJSON{
			ID:         h.ID,
			Carrier:    h.Carrier,
			Event:      h.Event,
			ReceivedAt: h.ReceivedAt,
			Processed:  h.Processed,
			RetryCount: h.RetryCount,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeRequest(r *http.Request) (*carrier.ShippingRequest, error) {
	var in shipmentRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, err
	}

	req := &carrier.ShippingRequest{
		OrderID:       in.OrderID,
		Origin:        addressToModel(in.Origin),
		Destination:   addressToModel(in.Destination),
		WeightGrams:   in.WeightGrams,
		LengthCM:      in.LengthCM,
		WidthCM:       in.WidthCM,
		HeightCM:      in.HeightCM,
		DeclaredValue: carrier.Money{Amount: in.DeclaredValue.Amount, Currency: in.DeclaredValue.Currency},
		Method:        carrier.ShippingMethod(in.Method),
		Instructions:  in.Instructions,
	}
	if req.Method == "" {
		req.Method = carrier.MethodStandard
	}
	for _, item := range in.Items {
		req.Items = append(req.Items, carrier.LineItem{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitValue: item.UnitValue,
			SKU:       item.SKU,
		})
	}
	return req, nil
}

func addressToModel(a addressJSON) carrier.Address {
	return carrier.Address{
		Name:        a.Name,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
		Phone:       a.Phone,
		Email:       a.Email,
	}
}

func recordToJSON(rec *store.ShipmentRecord) shipmentJSON {
	return shipmentJSON{
		ID:                  rec.ID,
		OrderID:             rec.OrderID,
		Carrier:             rec.Carrier,
		Region:              string(rec.Region),
		TrackingNumber:      rec.TrackingNumber,
		TrackingPlaceholder: rec.TrackingPlaceholder,
		Status:              string(rec.Status),
		Cost:                moneyJSON{Amount: rec.Cost.Amount, Currency: rec.Cost.Currency},
		EstimatedDelivery:   rec.EstimatedDelivery,
		Metadata:            rec.Metadata,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func ratesToJSON(rates []carrier.ShippingRate) []rateJSON {
	out := make([]rateJSON, len(rates))
	for i, rate := range rates {
		out[i] = rateJSON{
			Carrier:       rate.Carrier,
			Method:        string(rate.Method),
			ServiceName:   rate.ServiceName,
			Cost:          moneyJSON{Amount: rate.Cost.Amount, Currency: rate.Cost.Currency},
			EstimatedDays: rate.EstimatedDays,
			Available:     rate.Available,
		}
	}
	return out
}

// writeError maps the error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := carrier.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case carrier.KindValidation:
		status = http.StatusBadRequest
	case carrier.KindNotFound:
		status = http.StatusNotFound
	case carrier.KindConflict:
		status = http.StatusConflict
	case carrier.KindUnsupportedRegion:
		status = http.StatusUnprocessableEntity
	case carrier.KindInvalidSignature:
		status = http.StatusUnauthorized
	case carrier.KindProvider:
		status = http.StatusBadGateway
	case carrier.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	if status >= 500 {
		s.logger.Ctx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorJSON{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

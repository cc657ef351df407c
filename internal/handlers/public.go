package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cargoline/api/internal/platform/httpx"
	"github.com/cargoline/api/internal/services"
)

// trackingPayload is the unauthenticated tracking view. It deliberately omits
// contact details and amounts.
type trackingPayload struct {
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type publicRatesPayload struct {
	Currency      string            `json:"currency"`
	DrumTiers     []rateTierPayload `json:"drum_tiers"`
	PerKgRate     int64             `json:"per_kg_rate"`
	MinimumCharge int64             `json:"minimum_charge"`
	DoorToDoorFee int64             `json:"door_to_door_fee"`
	SealFee       int64             `json:"seal_fee"`
}

// PublicHandlers exposes unauthenticated tracking and published rate endpoints.
type PublicHandlers struct {
	bookings services.BookingService
	rates    services.RateCardService
}

// NewPublicHandlers constructs a new PublicHandlers instance.
func NewPublicHandlers(bookings services.BookingService, rates services.RateCardService) *PublicHandlers {
	return &PublicHandlers{
		bookings: bookings,
		rates:    rates,
	}
}

// Routes registers the /public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/tracking/{trackingNumber}", h.trackShipment)
	r.Get("/rates", h.publishedRates)
}

func (h *PublicHandlers) trackShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
	if trackingNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tracking number is required", http.StatusBadRequest))
		return
	}

	shipment, err := h.bookings.GetShipmentByTracking(ctx, trackingNumber)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, trackingPayload{
		TrackingNumber: shipment.TrackingNumber,
		Status:         string(shipment.Status),
		UpdatedAt:      shipment.UpdatedAt,
	})
}

func (h *PublicHandlers) publishedRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.rates == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rate_card_service_unavailable", "rate card service unavailable", http.StatusServiceUnavailable))
		return
	}

	card, err := h.rates.GetRateCard(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := publicRatesPayload{
		Currency:      card.Currency,
		PerKgRate:     card.PerKgRate,
		MinimumCharge: card.MinimumCharge,
		DoorToDoorFee: card.DoorToDoorFee,
		SealFee:       card.SealFee,
	}
	for _, tier := range card.DrumTiers {
		payload.DrumTiers = append(payload.DrumTiers, rateTierPayload{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   tier.UnitPrice,
		})
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/platform/auth"
	"github.com/cargoline/api/internal/platform/httpx"
	"github.com/cargoline/api/internal/services"
)

const (
	maxBookingBodySize    = 64 * 1024
	maxSettlementBodySize = 8 * 1024

	idempotencyKeyHeader = "Idempotency-Key"
)

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

func (c contactRequest) toDomain() domain.ContactDetails {
	return domain.ContactDetails{
		Name:     strings.TrimSpace(c.Name),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
		Address1: strings.TrimSpace(c.Address1),
		Address2: strings.TrimSpace(c.Address2),
		City:     strings.TrimSpace(c.City),
		Country:  strings.TrimSpace(c.Country),
	}
}

type createBookingRequest struct {
	Classification  string         `json:"classification"`
	Quantity        int            `json:"quantity"`
	WeightGrams     int            `json:"weight_grams"`
	DoorToDoor      bool           `json:"door_to_door"`
	ItemCategory    string         `json:"item_category"`
	ItemDescription string         `json:"item_description"`
	Sender          contactRequest `json:"sender"`
	Recipient       contactRequest `json:"recipient"`
}

type createBookingResponse struct {
	QuoteRequired bool             `json:"quote_required"`
	Shipment      *shipmentPayload `json:"shipment,omitempty"`
	Pricing       *pricingPayload  `json:"pricing,omitempty"`
}

type settleBookingRequest struct {
	Method         string  `json:"method"`
	SubMethod      *string `json:"sub_method"`
	DisplayedTotal *int64  `json:"displayed_total"`
}

type settlementResponse struct {
	Shipment      shipmentPayload     `json:"shipment"`
	Selection     selectionPayload    `json:"selection"`
	Payment       *paymentPayload     `json:"payment,omitempty"`
	Receipt       receiptPayload      `json:"receipt"`
	CorrelationID string              `json:"correlation_id"`
	Notification  notificationPayload `json:"notification"`
}

// BookingHandlers exposes booking creation, settlement, and lookup endpoints.
// Authentication is optional: unauthenticated walk-in bookings are accepted
// and their confirmations route to the admin placeholder.
type BookingHandlers struct {
	authn    *auth.Authenticator
	bookings services.BookingService
}

// NewBookingHandlers constructs a new BookingHandlers instance.
func NewBookingHandlers(authn *auth.Authenticator, bookings services.BookingService) *BookingHandlers {
	return &BookingHandlers{
		authn:    authn,
		bookings: bookings,
	}
}

// Routes registers the /bookings endpoints.
func (h *BookingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalFirebaseAuth())
	}
	r.Post("/", h.createBooking)
	r.Get("/{shipmentID}", h.getShipment)
	r.Post("/{shipmentID}/settlement", h.settleBooking)
}

func (h *BookingHandlers) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createBookingRequest
	if err := decodeJSONBody(w, r, &req, maxBookingBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a single valid JSON object", http.StatusBadRequest))
		return
	}

	request := domain.ShipmentRequest{
		Classification:  domain.ItemClassification(strings.TrimSpace(req.Classification)),
		Quantity:        req.Quantity,
		WeightGrams:     req.WeightGrams,
		DoorToDoor:      req.DoorToDoor,
		ItemCategory:    strings.TrimSpace(req.ItemCategory),
		ItemDescription: strings.TrimSpace(req.ItemDescription),
		Sender:          req.Sender.toDomain(),
		Recipient:       req.Recipient.toDomain(),
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			request.UserID = &uid
		}
	}

	result, err := h.bookings.CreateBooking(ctx, services.CreateBookingCommand{Request: request})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	if result.QuoteRouted {
		writeJSONResponse(w, http.StatusOK, createBookingResponse{QuoteRequired: true})
		return
	}

	shipment := buildShipmentPayload(result.Shipment)
	pricing := buildPricingPayload(result.Pricing)
	writeJSONResponse(w, http.StatusCreated, createBookingResponse{
		Shipment: &shipment,
		Pricing:  &pricing,
	})
}

func (h *BookingHandlers) getShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	shipment, err := h.bookings.GetShipment(ctx, shipmentID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// Owned shipments are only visible to their owner. Anonymous bookings
	// stay reachable by id so walk-in customers can check their status.
	if shipment.UserID != nil {
		identity, ok := auth.IdentityFromContext(ctx)
		if !ok || identity == nil || strings.TrimSpace(identity.UID) != *shipment.UserID {
			httpx.WriteError(ctx, w, httpx.NewError("not_found", "shipment not found", http.StatusNotFound))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, buildShipmentPayload(shipment))
}

func (h *BookingHandlers) settleBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bookings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("booking_service_unavailable", "booking service unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	var req settleBookingRequest
	if err := decodeJSONBody(w, r, &req, maxSettlementBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a single valid JSON object", http.StatusBadRequest))
		return
	}

	cmd := services.SettleBookingCommand{
		ShipmentID:     shipmentID,
		Method:         domain.SettlementMethod(strings.TrimSpace(req.Method)),
		DisplayedTotal: req.DisplayedTotal,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	}
	if req.SubMethod != nil {
		sub := domain.TermsSubMethod(strings.TrimSpace(*req.SubMethod))
		cmd.SubMethod = &sub
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			cmd.ActorID = &uid
		}
	}

	result, err := h.bookings.SettleBooking(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	response := settlementResponse{
		Shipment:      buildShipmentPayload(result.Shipment),
		Selection:     buildSelectionPayload(result.Selection),
		Receipt:       buildReceiptPayload(result.Receipt),
		CorrelationID: result.CorrelationID,
		Notification:  buildNotificationPayload(result.Notification),
	}
	if result.Payment != nil {
		payment := buildPaymentPayload(*result.Payment)
		response.Payment = &payment
	}
	writeJSONResponse(w, http.StatusOK, response)
}

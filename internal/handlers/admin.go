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

const maxAdminBodySize = 16 * 1024

type rateTierRequest struct {
	MinQuantity int   `json:"min_quantity"`
	UnitPrice   int64 `json:"unit_price"`
}

type updateRateCardRequest struct {
	Currency      string            `json:"currency"`
	DrumTiers     []rateTierRequest `json:"drum_tiers"`
	PerKgRate     int64             `json:"per_kg_rate"`
	MinimumCharge int64             `json:"minimum_charge"`
	DoorToDoorFee int64             `json:"door_to_door_fee"`
	SealFee       int64             `json:"seal_fee"`
}

type priceQuoteRequest struct {
	QuotedAmount int64 `json:"quoted_amount"`
}

type quoteListResponse struct {
	Items         []quotePayload `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// AdminHandlers exposes the back-office rate card and quote pricing endpoints.
type AdminHandlers struct {
	verifier *auth.AdminVerifier
	rates    services.RateCardService
	quotes   services.QuoteService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(verifier *auth.AdminVerifier, rates services.RateCardService, quotes services.QuoteService) *AdminHandlers {
	return &AdminHandlers{
		verifier: verifier,
		rates:    rates,
		quotes:   quotes,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.verifier != nil {
		r.Use(h.verifier.RequireAdminToken())
	}
	r.Get("/rate-card", h.getRateCard)
	r.Put("/rate-card", h.updateRateCard)
	r.Delete("/rate-card", h.deleteRateCard)
	r.Get("/quotes", h.listQuotes)
	r.Post("/quotes/{quoteID}:price", h.priceQuote)
}

func (h *AdminHandlers) requireOperator(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	claims, ok := auth.AdminClaimsFromContext(ctx)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "operator token required", http.StatusUnauthorized))
		return "", false
	}
	return strings.TrimSpace(claims.Subject), true
}

func (h *AdminHandlers) getRateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.rates == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rate_card_service_unavailable", "rate card service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	card, err := h.rates.GetRateCard(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRateCardPayload(card))
}

func (h *AdminHandlers) updateRateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.rates == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rate_card_service_unavailable", "rate card service unavailable", http.StatusServiceUnavailable))
		return
	}
	operator, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	var req updateRateCardRequest
	if err := decodeJSONBody(w, r, &req, maxAdminBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a single valid JSON object", http.StatusBadRequest))
		return
	}

	card := domain.RateCard{
		Currency:      strings.TrimSpace(req.Currency),
		PerKgRate:     req.PerKgRate,
		MinimumCharge: req.MinimumCharge,
		DoorToDoorFee: req.DoorToDoorFee,
		SealFee:       req.SealFee,
	}
	for _, tier := range req.DrumTiers {
		card.DrumTiers = append(card.DrumTiers, domain.RateTier{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   tier.UnitPrice,
		})
	}

	updated, err := h.rates.UpdateRateCard(ctx, services.UpdateRateCardCommand{
		RateCardID: services.DefaultRateCardID,
		Card:       card,
		ActorID:    operator,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRateCardPayload(updated))
}

func (h *AdminHandlers) deleteRateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.rates == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rate_card_service_unavailable", "rate card service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	if err := h.rates.DeleteRateCard(ctx, services.DefaultRateCardID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) listQuotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}
	if _, ok := h.requireOperator(w, r); !ok {
		return
	}

	pager, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.QuoteListFilter{
		Status:     parseFilterValues(r.URL.Query()["status"]),
		Pagination: pager,
	}

	page, err := h.quotes.ListQuotes(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]quotePayload, 0, len(page.Items))
	for _, quote := range page.Items {
		items = append(items, buildQuotePayload(quote))
	}
	writeJSONResponse(w, http.StatusOK, quoteListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *AdminHandlers) priceQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}
	operator, ok := h.requireOperator(w, r)
	if !ok {
		return
	}

	quoteID := strings.TrimSpace(chi.URLParam(r, "quoteID"))
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quote id is required", http.StatusBadRequest))
		return
	}

	var req priceQuoteRequest
	if err := decodeJSONBody(w, r, &req, maxAdminBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a single valid JSON object", http.StatusBadRequest))
		return
	}

	quote, err := h.quotes.PriceQuote(ctx, services.PriceQuoteCommand{
		QuoteID:      quoteID,
		QuotedAmount: req.QuotedAmount,
		ActorID:      operator,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotePayload(quote))
}

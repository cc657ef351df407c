package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/platform/auth"
	"github.com/cargoline/api/internal/platform/httpx"
	"github.com/cargoline/api/internal/services"
)

const (
	maxQuoteFormSize   = 32 << 20
	maxQuoteImageCount = 5
	maxAcceptBodySize  = 8 * 1024
)

type acceptQuoteRequest struct {
	Method    string          `json:"method"`
	SubMethod *string         `json:"sub_method"`
	Recipient *contactRequest `json:"recipient"`
}

type quoteAcceptanceResponse struct {
	Quote         quotePayload    `json:"quote"`
	Shipment      shipmentPayload `json:"shipment"`
	Payment       paymentPayload  `json:"payment"`
	Receipt       receiptPayload  `json:"receipt"`
	CorrelationID string          `json:"correlation_id"`
}

// QuoteHandlers exposes the customer-facing custom quote endpoints.
type QuoteHandlers struct {
	authn  *auth.Authenticator
	quotes services.QuoteService
}

// NewQuoteHandlers constructs a new QuoteHandlers instance.
func NewQuoteHandlers(authn *auth.Authenticator, quotes services.QuoteService) *QuoteHandlers {
	return &QuoteHandlers{
		authn:  authn,
		quotes: quotes,
	}
}

// Routes registers the /quotes endpoints.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalFirebaseAuth())
	}
	r.Post("/", h.submitQuote)
	r.Get("/{quoteID}", h.getQuote)
	r.Post("/{quoteID}:accept", h.acceptQuote)
}

func (h *QuoteHandlers) submitQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := r.ParseMultipartForm(maxQuoteFormSize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request must be multipart form data", http.StatusBadRequest))
		return
	}

	cmd := services.SubmitQuoteCommand{
		Description: r.FormValue("description"),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Contact: domain.ContactDetails{
			Name:     strings.TrimSpace(r.FormValue("contact_name")),
			Email:    strings.TrimSpace(r.FormValue("contact_email")),
			Phone:    strings.TrimSpace(r.FormValue("contact_phone")),
			Address1: strings.TrimSpace(r.FormValue("contact_address1")),
			Address2: strings.TrimSpace(r.FormValue("contact_address2")),
			City:     strings.TrimSpace(r.FormValue("contact_city")),
			Country:  strings.TrimSpace(r.FormValue("contact_country")),
		},
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			cmd.UserID = &uid
		}
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["images"]
	}
	if len(headers) > maxQuoteImageCount {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "at most five images may be attached", http.StatusBadRequest))
		return
	}
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attached image could not be read", http.StatusBadRequest))
			return
		}
		defer file.Close()

		cmd.Images = append(cmd.Images, services.QuoteImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		})
	}

	quote, err := h.quotes.SubmitQuote(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildQuotePayload(quote))
}

func (h *QuoteHandlers) getQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}

	quoteID := strings.TrimSpace(chi.URLParam(r, "quoteID"))
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quote id is required", http.StatusBadRequest))
		return
	}

	quote, err := h.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// Owned quotes are only visible to their owner. Anonymous submissions
	// stay reachable by id.
	if quote.UserID != nil {
		identity, ok := auth.IdentityFromContext(ctx)
		if !ok || identity == nil || strings.TrimSpace(identity.UID) != *quote.UserID {
			httpx.WriteError(ctx, w, httpx.NewError("not_found", "quote not found", http.StatusNotFound))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, buildQuotePayload(quote))
}

func (h *QuoteHandlers) acceptQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}

	quoteID := strings.TrimSpace(chi.URLParam(r, "quoteID"))
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quote id is required", http.StatusBadRequest))
		return
	}

	var req acceptQuoteRequest
	if err := decodeJSONBody(w, r, &req, maxAcceptBodySize); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a single valid JSON object", http.StatusBadRequest))
		return
	}

	cmd := services.AcceptQuoteCommand{
		QuoteID:        quoteID,
		Method:         domain.SettlementMethod(strings.TrimSpace(req.Method)),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	}
	if req.SubMethod != nil {
		sub := domain.TermsSubMethod(strings.TrimSpace(*req.SubMethod))
		cmd.SubMethod = &sub
	}
	if req.Recipient != nil {
		cmd.Recipient = req.Recipient.toDomain()
	}

	result, err := h.quotes.AcceptQuote(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, quoteAcceptanceResponse{
		Quote:         buildQuotePayload(result.Quote),
		Shipment:      buildShipmentPayload(result.Shipment),
		Payment:       buildPaymentPayload(result.Payment),
		Receipt:       buildReceiptPayload(result.Receipt),
		CorrelationID: result.CorrelationID,
	})
}

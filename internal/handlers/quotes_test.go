package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/platform/auth"
	"github.com/cargoline/api/internal/services"
)

type stubQuoteService struct {
	submitFn func(context.Context, services.SubmitQuoteCommand) (services.CustomQuote, error)
	priceFn  func(context.Context, services.PriceQuoteCommand) (services.CustomQuote, error)
	acceptFn func(context.Context, services.AcceptQuoteCommand) (services.QuoteAcceptanceResult, error)
	getFn    func(context.Context, string) (services.CustomQuote, error)
	listFn   func(context.Context, services.QuoteListFilter) (domain.CursorPage[services.CustomQuote], error)
}

func (s *stubQuoteService) SubmitQuote(ctx context.Context, cmd services.SubmitQuoteCommand) (services.CustomQuote, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, cmd)
	}
	return services.CustomQuote{}, errors.New("not implemented")
}

func (s *stubQuoteService) PriceQuote(ctx context.Context, cmd services.PriceQuoteCommand) (services.CustomQuote, error) {
	if s.priceFn != nil {
		return s.priceFn(ctx, cmd)
	}
	return services.CustomQuote{}, errors.New("not implemented")
}

func (s *stubQuoteService) AcceptQuote(ctx context.Context, cmd services.AcceptQuoteCommand) (services.QuoteAcceptanceResult, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, cmd)
	}
	return services.QuoteAcceptanceResult{}, errors.New("not implemented")
}

func (s *stubQuoteService) GetQuote(ctx context.Context, quoteID string) (services.CustomQuote, error) {
	if s.getFn != nil {
		return s.getFn(ctx, quoteID)
	}
	return services.CustomQuote{}, errors.New("not implemented")
}

func (s *stubQuoteService) ListQuotes(ctx context.Context, filter services.QuoteListFilter) (domain.CursorPage[services.CustomQuote], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.CustomQuote]{}, nil
}

func newQuoteRouter(service services.QuoteService) chi.Router {
	handler := NewQuoteHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/quotes", handler.Routes)
	return router
}

func buildQuoteForm(t *testing.T, fields map[string]string, images map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for filename, content := range images {
		part, err := writer.CreateFormFile("images", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestQuoteHandlersSubmitQuoteSuccess(t *testing.T) {
	var captured services.SubmitQuoteCommand
	service := &stubQuoteService{
		submitFn: func(ctx context.Context, cmd services.SubmitQuoteCommand) (services.CustomQuote, error) {
			captured = cmd
			return services.CustomQuote{
				ID:          "quote-1",
				Description: "Carved wooden cabinet",
				Category:    "furniture",
				Status:      domain.QuoteStatusPending,
				CreatedAt:   time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	body, contentType := buildQuoteForm(t, map[string]string{
		"description":   "Carved wooden cabinet",
		"category":      "furniture",
		"contact_name":  "Ama Mensah",
		"contact_email": "ama@example.com",
	}, map[string]string{
		"front.jpg": "jpeg-bytes",
	})

	req := httptest.NewRequest(http.MethodPost, "/quotes/", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Contact.Name != "Ama Mensah" {
		t.Fatalf("expected contact name captured, got %q", captured.Contact.Name)
	}
	if captured.UserID == nil || *captured.UserID != "user-1" {
		t.Fatalf("expected user id user-1, got %#v", captured.UserID)
	}
	if len(captured.Images) != 1 || captured.Images[0].Filename != "front.jpg" {
		t.Fatalf("expected one image front.jpg, got %#v", captured.Images)
	}

	var payload quotePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.ID != "quote-1" || payload.Status != string(domain.QuoteStatusPending) {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestQuoteHandlersSubmitQuoteRejectsTooManyImages(t *testing.T) {
	service := &stubQuoteService{}

	images := map[string]string{
		"a.jpg": "x", "b.jpg": "x", "c.jpg": "x", "d.jpg": "x", "e.jpg": "x", "f.jpg": "x",
	}
	body, contentType := buildQuoteForm(t, map[string]string{
		"description":  "Antique clock",
		"contact_name": "Ama Mensah",
	}, images)

	req := httptest.NewRequest(http.MethodPost, "/quotes/", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestQuoteHandlersSubmitQuoteRequiresMultipart(t *testing.T) {
	service := &stubQuoteService{}
	req := httptest.NewRequest(http.MethodPost, "/quotes/", bytes.NewReader([]byte(`{"description":"x"}`)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestQuoteHandlersAcceptQuoteSuccess(t *testing.T) {
	var captured services.AcceptQuoteCommand
	amount := int64(55000)
	service := &stubQuoteService{
		acceptFn: func(ctx context.Context, cmd services.AcceptQuoteCommand) (services.QuoteAcceptanceResult, error) {
			captured = cmd
			return services.QuoteAcceptanceResult{
				Quote: domain.CustomQuote{
					ID:           "quote-1",
					Status:       domain.QuoteStatusAccepted,
					QuotedAmount: &amount,
				},
				Shipment: domain.Shipment{
					ID:             "ship-9",
					TrackingNumber: "CL-2026-000101",
					Status:         domain.ShipmentStatusPendingCollection,
				},
				Payment: domain.Payment{
					ID:     "pay-9",
					Amount: 55000,
					Method: domain.MethodCard,
					Status: domain.PaymentStatusPending,
				},
				Receipt: domain.Receipt{
					ID:            "rcpt-9",
					ReceiptNumber: "RCT-202608-000055",
					Amount:        55000,
				},
				CorrelationID: "corr-9",
			}, nil
		},
	}

	sub := string(domain.SubMethodBankTransfer)
	body, _ := json.Marshal(acceptQuoteRequest{
		Method:    string(domain.MethodStandard30Day),
		SubMethod: &sub,
		Recipient: &contactRequest{Name: "Kofi Mensah", City: "Accra"},
	})
	req := httptest.NewRequest(http.MethodPost, "/quotes/quote-1:accept", bytes.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-9")

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.QuoteID != "quote-1" {
		t.Fatalf("expected quote id quote-1, got %s", captured.QuoteID)
	}
	if captured.SubMethod == nil || *captured.SubMethod != domain.SubMethodBankTransfer {
		t.Fatalf("expected bank transfer sub-method, got %#v", captured.SubMethod)
	}
	if captured.IdempotencyKey != "key-9" {
		t.Fatalf("expected idempotency key key-9, got %s", captured.IdempotencyKey)
	}
	if captured.Recipient.Name != "Kofi Mensah" {
		t.Fatalf("expected recipient captured, got %q", captured.Recipient.Name)
	}

	var response quoteAcceptanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Shipment.TrackingNumber != "CL-2026-000101" {
		t.Fatalf("unexpected shipment payload: %#v", response.Shipment)
	}
	if response.CorrelationID != "corr-9" {
		t.Fatalf("expected correlation id corr-9, got %s", response.CorrelationID)
	}
}

func TestQuoteHandlersAcceptQuoteNotPriced(t *testing.T) {
	service := &stubQuoteService{
		acceptFn: func(ctx context.Context, cmd services.AcceptQuoteCommand) (services.QuoteAcceptanceResult, error) {
			return services.QuoteAcceptanceResult{}, services.ErrQuoteNotQuoted
		},
	}

	body, _ := json.Marshal(acceptQuoteRequest{Method: string(domain.MethodCard)})
	req := httptest.NewRequest(http.MethodPost, "/quotes/quote-1:accept", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.Error != "quote_not_priced" {
		t.Fatalf("expected error quote_not_priced, got %s", payload.Error)
	}
}

func TestQuoteHandlersAcceptQuoteAlreadyAccepted(t *testing.T) {
	service := &stubQuoteService{
		acceptFn: func(ctx context.Context, cmd services.AcceptQuoteCommand) (services.QuoteAcceptanceResult, error) {
			return services.QuoteAcceptanceResult{}, services.ErrQuoteAlreadyAccepted
		},
	}

	body, _ := json.Marshal(acceptQuoteRequest{Method: string(domain.MethodCard)})
	req := httptest.NewRequest(http.MethodPost, "/quotes/quote-1:accept", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestQuoteHandlersGetQuoteHidesForeignQuotes(t *testing.T) {
	ownerID := "user-1"
	service := &stubQuoteService{
		getFn: func(ctx context.Context, quoteID string) (services.CustomQuote, error) {
			return services.CustomQuote{ID: "quote-1", UserID: &ownerID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/quotes/quote-1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-2"}))

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestQuoteHandlersGetQuoteNotFound(t *testing.T) {
	service := &stubQuoteService{
		getFn: func(ctx context.Context, quoteID string) (services.CustomQuote, error) {
			return services.CustomQuote{}, services.ErrQuoteNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/quotes/missing", nil)

	rr := httptest.NewRecorder()
	newQuoteRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

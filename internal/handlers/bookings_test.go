package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/platform/auth"
	"github.com/cargoline/api/internal/services"
)

type stubBookingService struct {
	createFn        func(context.Context, services.CreateBookingCommand) (services.BookingResult, error)
	settleFn        func(context.Context, services.SettleBookingCommand) (services.SettlementResult, error)
	getFn           func(context.Context, string) (services.Shipment, error)
	getByTrackingFn func(context.Context, string) (services.Shipment, error)
	listFn          func(context.Context, string, services.Pagination) (domain.CursorPage[services.Shipment], error)
}

func (s *stubBookingService) CreateBooking(ctx context.Context, cmd services.CreateBookingCommand) (services.BookingResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.BookingResult{}, errors.New("not implemented")
}

func (s *stubBookingService) SettleBooking(ctx context.Context, cmd services.SettleBookingCommand) (services.SettlementResult, error) {
	if s.settleFn != nil {
		return s.settleFn(ctx, cmd)
	}
	return services.SettlementResult{}, errors.New("not implemented")
}

func (s *stubBookingService) GetShipment(ctx context.Context, shipmentID string) (services.Shipment, error) {
	if s.getFn != nil {
		return s.getFn(ctx, shipmentID)
	}
	return services.Shipment{}, errors.New("not implemented")
}

func (s *stubBookingService) GetShipmentByTracking(ctx context.Context, trackingNumber string) (services.Shipment, error) {
	if s.getByTrackingFn != nil {
		return s.getByTrackingFn(ctx, trackingNumber)
	}
	return services.Shipment{}, errors.New("not implemented")
}

func (s *stubBookingService) ListShipments(ctx context.Context, userID string, pager services.Pagination) (domain.CursorPage[services.Shipment], error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, pager)
	}
	return domain.CursorPage[services.Shipment]{}, nil
}

func testShipment(userID *string) domain.Shipment {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	return domain.Shipment{
		ID:             "ship-1",
		TrackingNumber: "CL-2026-000042",
		Status:         domain.ShipmentStatusAwaitingSettlement,
		UserID:         userID,
		Sender:         domain.ContactDetails{Name: "Ama Mensah", City: "London"},
		Recipient:      domain.ContactDetails{Name: "Kofi Mensah", City: "Accra"},
		Details: domain.ShipmentDetails{
			Classification: domain.ClassificationBulkContainer,
			Services:       []string{"international_shipping", "seal_fee"},
			Quantity:       3,
			QuotedTotal:    73000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newBookingRouter(service services.BookingService) chi.Router {
	handler := NewBookingHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/bookings", handler.Routes)
	return router
}

func TestBookingHandlersCreateBookingSuccess(t *testing.T) {
	var captured services.CreateBookingCommand
	userID := "user-1"
	service := &stubBookingService{
		createFn: func(ctx context.Context, cmd services.CreateBookingCommand) (services.BookingResult, error) {
			captured = cmd
			return services.BookingResult{
				Shipment: testShipment(&userID),
				Pricing: domain.PricingBreakdown{
					Currency: domain.CurrencyGBP,
					Base:     72000,
					AddonCharges: []domain.AddonCharge{
						{Code: "seal_fee", Label: "Seal fee", Amount: 1000},
					},
					TotalBeforeSettlement: 73000,
				},
			}, nil
		},
	}

	body, _ := json.Marshal(createBookingRequest{
		Classification: string(domain.ClassificationBulkContainer),
		Quantity:       3,
		Sender:         contactRequest{Name: "Ama Mensah", City: "London"},
		Recipient:      contactRequest{Name: "Kofi Mensah", City: "Accra"},
	})
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Request.UserID == nil || *captured.Request.UserID != "user-1" {
		t.Fatalf("expected user id user-1 on command, got %#v", captured.Request.UserID)
	}
	if captured.Request.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", captured.Request.Quantity)
	}

	var response createBookingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.QuoteRequired {
		t.Fatal("expected quote_required false")
	}
	if response.Shipment == nil || response.Shipment.TrackingNumber != "CL-2026-000042" {
		t.Fatalf("unexpected shipment payload: %#v", response.Shipment)
	}
	if response.Pricing == nil || response.Pricing.Total != 73000 {
		t.Fatalf("unexpected pricing payload: %#v", response.Pricing)
	}
}

func TestBookingHandlersCreateBookingRoutesToQuote(t *testing.T) {
	service := &stubBookingService{
		createFn: func(ctx context.Context, cmd services.CreateBookingCommand) (services.BookingResult, error) {
			return services.BookingResult{QuoteRouted: true}, nil
		},
	}

	body, _ := json.Marshal(createBookingRequest{
		Classification: string(domain.ClassificationUnclassified),
		Sender:         contactRequest{Name: "Ama Mensah"},
		Recipient:      contactRequest{Name: "Kofi Mensah"},
	})
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response createBookingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !response.QuoteRequired {
		t.Fatal("expected quote_required true")
	}
	if response.Shipment != nil {
		t.Fatal("expected no shipment payload for quote routing")
	}
}

func TestBookingHandlersCreateBookingRejectsMalformedBody(t *testing.T) {
	service := &stubBookingService{}
	req := httptest.NewRequest(http.MethodPost, "/bookings/", bytes.NewReader([]byte("{not json")))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestBookingHandlersSettleBookingSuccess(t *testing.T) {
	var captured services.SettleBookingCommand
	userID := "user-1"
	settled := testShipment(&userID)
	settled.Status = domain.ShipmentStatusPendingPayment

	service := &stubBookingService{
		settleFn: func(ctx context.Context, cmd services.SettleBookingCommand) (services.SettlementResult, error) {
			captured = cmd
			paymentID := "pay-1"
			return services.SettlementResult{
				Shipment: settled,
				Selection: domain.SettlementSelection{
					Method:         domain.MethodCard,
					Adjustment:     domain.AdjustmentNone,
					FinalTotal:     73000,
					Classification: domain.ClassImmediate,
				},
				Payment: &domain.Payment{
					ID:            paymentID,
					ShipmentID:    settled.ID,
					Amount:        73000,
					Currency:      domain.CurrencyGBP,
					Method:        domain.MethodCard,
					Status:        domain.PaymentStatusPending,
					TransactionID: "pi_test",
				},
				Receipt: domain.Receipt{
					ID:            "rcpt-1",
					ShipmentID:    settled.ID,
					PaymentID:     &paymentID,
					ReceiptNumber: "RCT-202608-000007",
					Amount:        73000,
					Currency:      domain.CurrencyGBP,
					Method:        domain.MethodCard,
					Status:        domain.ReceiptStatusPending,
				},
				Notification:  domain.Notification{ID: "ntf-1", UserID: "user-1"},
				CorrelationID: "corr-1",
			}, nil
		},
	}

	displayed := int64(73000)
	body, _ := json.Marshal(settleBookingRequest{
		Method:         string(domain.MethodCard),
		DisplayedTotal: &displayed,
	})
	req := httptest.NewRequest(http.MethodPost, "/bookings/ship-1/settlement", bytes.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ShipmentID != "ship-1" {
		t.Fatalf("expected shipment id ship-1, got %s", captured.ShipmentID)
	}
	if captured.IdempotencyKey != "key-1" {
		t.Fatalf("expected idempotency key key-1, got %s", captured.IdempotencyKey)
	}
	if captured.DisplayedTotal == nil || *captured.DisplayedTotal != 73000 {
		t.Fatalf("expected displayed total 73000, got %#v", captured.DisplayedTotal)
	}
	if captured.ActorID == nil || *captured.ActorID != "user-1" {
		t.Fatalf("expected actor user-1, got %#v", captured.ActorID)
	}

	var response settlementResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Payment == nil || response.Payment.TransactionID != "pi_test" {
		t.Fatalf("unexpected payment payload: %#v", response.Payment)
	}
	if response.Receipt.ReceiptNumber != "RCT-202608-000007" {
		t.Fatalf("unexpected receipt payload: %#v", response.Receipt)
	}
	if response.CorrelationID != "corr-1" {
		t.Fatalf("expected correlation id corr-1, got %s", response.CorrelationID)
	}
}

func TestBookingHandlersSettleBookingPriceMismatch(t *testing.T) {
	service := &stubBookingService{
		settleFn: func(ctx context.Context, cmd services.SettleBookingCommand) (services.SettlementResult, error) {
			return services.SettlementResult{}, &services.SettlementMismatchError{
				Expected: 73000,
				Provided: 70000,
			}
		},
	}

	body, _ := json.Marshal(settleBookingRequest{Method: string(domain.MethodCard)})
	req := httptest.NewRequest(http.MethodPost, "/bookings/ship-1/settlement", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}

	var payload struct {
		Error         string `json:"error"`
		ExpectedTotal int64  `json:"expected_total"`
		ProvidedTotal int64  `json:"provided_total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.Error != "price_mismatch" {
		t.Fatalf("expected error price_mismatch, got %s", payload.Error)
	}
	if payload.ExpectedTotal != 73000 || payload.ProvidedTotal != 70000 {
		t.Fatalf("unexpected mismatch totals: %+v", payload)
	}
}

func TestBookingHandlersSettleBookingAlreadySettled(t *testing.T) {
	service := &stubBookingService{
		settleFn: func(ctx context.Context, cmd services.SettleBookingCommand) (services.SettlementResult, error) {
			return services.SettlementResult{}, services.ErrBookingAlreadySettled
		},
	}

	body, _ := json.Marshal(settleBookingRequest{Method: string(domain.MethodCard)})
	req := httptest.NewRequest(http.MethodPost, "/bookings/ship-1/settlement", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestBookingHandlersGetShipmentHidesForeignShipments(t *testing.T) {
	ownerID := "user-1"
	service := &stubBookingService{
		getFn: func(ctx context.Context, shipmentID string) (services.Shipment, error) {
			return testShipment(&ownerID), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/bookings/ship-1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-2"}))

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestBookingHandlersGetShipmentAnonymousBookingVisible(t *testing.T) {
	service := &stubBookingService{
		getFn: func(ctx context.Context, shipmentID string) (services.Shipment, error) {
			return testShipment(nil), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/bookings/ship-1", nil)

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var payload shipmentPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.TrackingNumber != "CL-2026-000042" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestBookingHandlersGetShipmentNotFound(t *testing.T) {
	service := &stubBookingService{
		getFn: func(ctx context.Context, shipmentID string) (services.Shipment, error) {
			return services.Shipment{}, services.ErrShipmentNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/bookings/missing", nil)

	rr := httptest.NewRecorder()
	newBookingRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestBookingHandlersServiceUnavailable(t *testing.T) {
	router := newBookingRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/bookings/ship-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

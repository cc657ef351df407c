package handlers

import (
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

type stubNotificationService struct {
	notifyFn   func(context.Context, services.BookingConfirmedCommand) (services.Notification, error)
	listFn     func(context.Context, string, services.Pagination) (domain.CursorPage[services.Notification], error)
	markReadFn func(context.Context, string) error
}

func (s *stubNotificationService) NotifyBookingConfirmed(ctx context.Context, cmd services.BookingConfirmedCommand) (services.Notification, error) {
	if s.notifyFn != nil {
		return s.notifyFn(ctx, cmd)
	}
	return services.Notification{}, errors.New("not implemented")
}

func (s *stubNotificationService) ListNotifications(ctx context.Context, userID string, pager services.Pagination) (domain.CursorPage[services.Notification], error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, pager)
	}
	return domain.CursorPage[services.Notification]{}, nil
}

func (s *stubNotificationService) MarkRead(ctx context.Context, notificationID string) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, notificationID)
	}
	return errors.New("not implemented")
}

func newMeRouter(bookings services.BookingService, notifications services.NotificationService) chi.Router {
	handler := NewMeHandlers(nil, bookings, notifications)
	router := chi.NewRouter()
	router.Route("/me", handler.Routes)
	return router
}

func TestMeHandlersListShipments(t *testing.T) {
	var capturedUser string
	var capturedPager services.Pagination
	userID := "user-1"
	bookings := &stubBookingService{
		listFn: func(ctx context.Context, uid string, pager services.Pagination) (domain.CursorPage[services.Shipment], error) {
			capturedUser = uid
			capturedPager = pager
			return domain.CursorPage[services.Shipment]{
				Items:         []services.Shipment{testShipment(&userID)},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/me/shipments?page_size=10&page_token=tok123", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newMeRouter(bookings, &stubNotificationService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedUser != "user-1" {
		t.Fatalf("expected user-1, got %s", capturedUser)
	}
	if capturedPager.PageSize != 10 || capturedPager.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %+v", capturedPager)
	}

	var response shipmentListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].TrackingNumber != "CL-2026-000042" {
		t.Fatalf("unexpected items: %#v", response.Items)
	}
	if response.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %s", response.NextPageToken)
	}
}

func TestMeHandlersListShipmentsRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me/shipments", nil)

	rr := httptest.NewRecorder()
	newMeRouter(&stubBookingService{}, &stubNotificationService{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestMeHandlersListNotifications(t *testing.T) {
	notifications := &stubNotificationService{
		listFn: func(ctx context.Context, uid string, pager services.Pagination) (domain.CursorPage[services.Notification], error) {
			return domain.CursorPage[services.Notification]{
				Items: []services.Notification{
					{
						ID:        "ntf-1",
						UserID:    uid,
						Title:     "Booking confirmed",
						Type:      "booking_confirmed",
						RelatedID: "ship-1",
						CreatedAt: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
					},
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/me/notifications", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newMeRouter(&stubBookingService{}, notifications).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response notificationListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].ID != "ntf-1" {
		t.Fatalf("unexpected items: %#v", response.Items)
	}
	if response.Items[0].IsRead {
		t.Fatal("expected unread notification")
	}
}

func TestMeHandlersMarkNotificationRead(t *testing.T) {
	var markedID string
	notifications := &stubNotificationService{
		markReadFn: func(ctx context.Context, notificationID string) error {
			markedID = notificationID
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/me/notifications/ntf-1:read", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newMeRouter(&stubBookingService{}, notifications).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if markedID != "ntf-1" {
		t.Fatalf("expected ntf-1 marked, got %s", markedID)
	}
}

func TestMeHandlersMarkNotificationReadNotFound(t *testing.T) {
	notifications := &stubNotificationService{
		markReadFn: func(ctx context.Context, notificationID string) error {
			return services.ErrNotificationNotFound
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/me/notifications/missing:read", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	newMeRouter(&stubBookingService{}, notifications).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/cargoline/api/internal/domain"
)

func newTestNotificationService(t *testing.T, repo *notificationRepoStub) NotificationService {
	t.Helper()
	svc, err := NewNotificationService(NotificationServiceDeps{
		Notifications:      repo,
		AdminPlaceholderID: "admin",
		Clock:              fixedClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewNotificationService: %v", err)
	}
	return svc
}

func TestNotifyBookingConfirmedAddressesOwner(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := newTestNotificationService(t, repo)

	userID := "user-1"
	notification, err := svc.NotifyBookingConfirmed(context.Background(), BookingConfirmedCommand{
		UserID:         &userID,
		ShipmentID:     "ship-1",
		TrackingNumber: "CL-2026-000042",
		Method:         domain.MethodCard,
		FinalTotal:     26000,
		Currency:       domain.CurrencyGBP,
	})
	if err != nil {
		t.Fatalf("NotifyBookingConfirmed: %v", err)
	}

	if notification.UserID != "user-1" {
		t.Errorf("userId = %q, want booking owner", notification.UserID)
	}
	if notification.RelatedID != "ship-1" {
		t.Errorf("relatedId = %q, want shipment id", notification.RelatedID)
	}
	if !strings.Contains(notification.Message, "CL-2026-000042") {
		t.Errorf("message = %q, want tracking number included", notification.Message)
	}
	if !strings.Contains(notification.Message, "260.00") {
		t.Errorf("message = %q, want formatted amount included", notification.Message)
	}
	if notification.IsRead {
		t.Error("new notification must be unread")
	}
}

func TestNotifyBookingConfirmedFallsBackToAdminPlaceholder(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := newTestNotificationService(t, repo)

	notification, err := svc.NotifyBookingConfirmed(context.Background(), BookingConfirmedCommand{
		ShipmentID:     "ship-1",
		TrackingNumber: "CL-2026-000042",
		Method:         domain.MethodCashOnCollection,
		FinalTotal:     67000,
		Currency:       domain.CurrencyGBP,
	})
	if err != nil {
		t.Fatalf("NotifyBookingConfirmed: %v", err)
	}
	if notification.UserID != "admin" {
		t.Errorf("userId = %q, want admin placeholder", notification.UserID)
	}
}

func TestNotifyBookingConfirmedValidatesInput(t *testing.T) {
	svc := newTestNotificationService(t, &notificationRepoStub{})

	if _, err := svc.NotifyBookingConfirmed(context.Background(), BookingConfirmedCommand{
		TrackingNumber: "CL-2026-000042",
	}); !errors.Is(err, ErrNotificationInvalidInput) {
		t.Fatalf("err = %v, want ErrNotificationInvalidInput", err)
	}
}

func TestMarkReadMapsNotFound(t *testing.T) {
	repo := &notificationRepoStub{markErr: errStubNotFound}
	svc := newTestNotificationService(t, repo)

	if err := svc.MarkRead(context.Background(), "missing"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("err = %v, want ErrNotificationNotFound", err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		pence int64
		code  string
		want  string
	}{
		{name: "whole pounds", pence: 26000, code: "GBP", want: "260.00"},
		{name: "pence remainder", pence: 4501, code: "GBP", want: "45.01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatAmount(tc.pence, tc.code)
			if !strings.Contains(got, tc.want) {
				t.Errorf("FormatAmount = %q, want it to contain %q", got, tc.want)
			}
		})
	}
}

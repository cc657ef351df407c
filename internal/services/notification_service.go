package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/repositories"
)

var (
	// ErrNotificationInvalidInput signals malformed notification input.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
	// ErrNotificationNotFound is returned when the referenced notification does not exist.
	ErrNotificationNotFound = errors.New("notification: not found")
)

const notificationTypeBookingConfirmed = "booking_confirmed"

// NotificationServiceDeps bundles the collaborators for NewNotificationService.
// AdminPlaceholderID receives confirmations for bookings made without an
// authenticated user.
type NotificationServiceDeps struct {
	Notifications      repositories.NotificationRepository
	AdminPlaceholderID string
	Clock              func() time.Time
	Logger             func(context.Context, string, map[string]any)
}

type notificationService struct {
	notifications    repositories.NotificationRepository
	adminPlaceholder string
	now              func() time.Time
	logger           func(context.Context, string, map[string]any)
}

func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: repository is required")
	}
	placeholder := strings.TrimSpace(deps.AdminPlaceholderID)
	if placeholder == "" {
		return nil, errors.New("notification service: admin placeholder id is required")
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationService{
		notifications:    deps.Notifications,
		adminPlaceholder: placeholder,
		now: func() time.Time {
			return now().UTC()
		},
		logger: logger,
	}, nil
}

// NotifyBookingConfirmed records the confirmation addressed to the booking
// owner, or to the admin placeholder when the booking was made anonymously.
func (s *notificationService) NotifyBookingConfirmed(ctx context.Context, cmd BookingConfirmedCommand) (Notification, error) {
	shipmentID := strings.TrimSpace(cmd.ShipmentID)
	if shipmentID == "" {
		return Notification{}, fmt.Errorf("%w: shipment id is required", ErrNotificationInvalidInput)
	}
	trackingNumber := strings.TrimSpace(cmd.TrackingNumber)
	if trackingNumber == "" {
		return Notification{}, fmt.Errorf("%w: tracking number is required", ErrNotificationInvalidInput)
	}

	userID := s.adminPlaceholder
	if cmd.UserID != nil && strings.TrimSpace(*cmd.UserID) != "" {
		userID = strings.TrimSpace(*cmd.UserID)
	}

	notification := Notification{
		ID:     ulid.Make().String(),
		UserID: userID,
		Title:  "Booking confirmed",
		Message: fmt.Sprintf("Booking %s is confirmed. Amount due: %s via %s.",
			trackingNumber, FormatAmount(cmd.FinalTotal, cmd.Currency), settlementMethodLabel(cmd.Method)),
		Type:      notificationTypeBookingConfirmed,
		RelatedID: shipmentID,
		CreatedAt: s.now(),
	}

	if err := s.notifications.Insert(ctx, notification); err != nil {
		return Notification{}, fmt.Errorf("notification service: insert: %w", err)
	}

	s.logger(ctx, "notifications.booking_confirmed", map[string]any{
		"notificationId": notification.ID,
		"userId":         userID,
		"shipmentId":     shipmentID,
	})
	return notification, nil
}

// ListNotifications pages through a user's notifications, newest first.
func (s *notificationService) ListNotifications(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Notification], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Notification]{}, fmt.Errorf("%w: user id is required", ErrNotificationInvalidInput)
	}
	page, err := s.notifications.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Notification]{}, fmt.Errorf("notification service: list: %w", err)
	}
	return page, nil
}

// MarkRead flags a notification as read.
func (s *notificationService) MarkRead(ctx context.Context, notificationID string) error {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return fmt.Errorf("%w: notification id is required", ErrNotificationInvalidInput)
	}
	if err := s.notifications.MarkRead(ctx, notificationID, s.now()); err != nil {
		if repoErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotificationNotFound, notificationID)
		}
		return fmt.Errorf("notification service: mark read: %w", err)
	}
	return nil
}

func settlementMethodLabel(method SettlementMethod) string {
	switch method {
	case domain.MethodCard:
		return "card payment"
	case domain.MethodCashOnCollection:
		return "cash on collection"
	case domain.MethodPayOnArrival:
		return "payment on arrival"
	case domain.MethodStandard30Day:
		return "30-day account terms"
	default:
		return string(method)
	}
}

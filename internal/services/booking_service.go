package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/payments"
	"github.com/cargoline/api/internal/repositories"
)

var (
	// ErrBookingInvalidInput signals malformed booking input such as a missing shipment id.
	ErrBookingInvalidInput = errors.New("booking: invalid input")
	// ErrShipmentNotFound is returned when the referenced shipment does not exist.
	ErrShipmentNotFound = errors.New("booking: shipment not found")
	// ErrBookingAlreadySettled is returned when a settlement is recorded for a
	// shipment that has already left the awaiting_settlement state.
	ErrBookingAlreadySettled = errors.New("booking: shipment already settled")
)

const serviceCodeShipping = "international_shipping"

// paymentIntentCreator is the slice of the payments manager the booking flow needs.
type paymentIntentCreator interface {
	CreateIntent(ctx context.Context, pctx payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error)
}

// BookingServiceDeps bundles the collaborators for NewBookingService.
type BookingServiceDeps struct {
	Shipments     repositories.ShipmentRepository
	Payments      repositories.PaymentRepository
	Receipts      repositories.ReceiptRepository
	SagaLog       repositories.SagaLogRepository
	Counters      CounterService
	Pricing       RateCardService
	Resolver      SettlementResolver
	PSP           paymentIntentCreator
	Notifications NotificationService
	Events        BookingEventPublisher
	Clock         func() time.Time
	Logger        func(context.Context, string, map[string]any)
}

type bookingService struct {
	shipments     repositories.ShipmentRepository
	payments      repositories.PaymentRepository
	receipts      repositories.ReceiptRepository
	sagaLog       repositories.SagaLogRepository
	counters      CounterService
	pricing       RateCardService
	resolver      SettlementResolver
	psp           paymentIntentCreator
	notifications NotificationService
	events        BookingEventPublisher
	now           func() time.Time
	logger        func(context.Context, string, map[string]any)
}

func NewBookingService(deps BookingServiceDeps) (BookingService, error) {
	if deps.Shipments == nil {
		return nil, errors.New("booking service: shipment repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("booking service: payment repository is required")
	}
	if deps.Receipts == nil {
		return nil, errors.New("booking service: receipt repository is required")
	}
	if deps.SagaLog == nil {
		return nil, errors.New("booking service: saga log repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("booking service: counter service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("booking service: pricing service is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("booking service: settlement resolver is required")
	}
	if deps.PSP == nil {
		return nil, errors.New("booking service: payment provider is required")
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &bookingService{
		shipments:     deps.Shipments,
		payments:      deps.Payments,
		receipts:      deps.Receipts,
		sagaLog:       deps.SagaLog,
		counters:      deps.Counters,
		pricing:       deps.Pricing,
		resolver:      deps.Resolver,
		psp:           deps.PSP,
		notifications: deps.Notifications,
		events:        deps.Events,
		now: func() time.Time {
			return now().UTC()
		},
		logger: logger,
	}, nil
}

// CreateBooking prices a validated request and persists the shipment in the
// awaiting_settlement state. Unclassified items return QuoteRouted instead of
// a shipment so callers can open the custom-quote flow.
func (s *bookingService) CreateBooking(ctx context.Context, cmd CreateBookingCommand) (BookingResult, error) {
	breakdown, err := s.pricing.PriceRequest(ctx, cmd.Request)
	if errors.Is(err, ErrRequiresCustomQuote) {
		s.logger(ctx, "booking.quote_routed", map[string]any{
			"category": cmd.Request.ItemCategory,
		})
		return BookingResult{QuoteRouted: true}, nil
	}
	if err != nil {
		return BookingResult{}, err
	}

	trackingNumber, err := s.counters.NextTrackingNumber(ctx)
	if err != nil {
		return BookingResult{}, fmt.Errorf("booking service: allocate tracking number: %w", err)
	}

	now := s.now()
	shipment := Shipment{
		ID:             ulid.Make().String(),
		TrackingNumber: trackingNumber,
		Status:         domain.ShipmentStatusAwaitingSettlement,
		UserID:         cmd.Request.UserID,
		Sender:         cmd.Request.Sender,
		Recipient:      cmd.Request.Recipient,
		Details: domain.ShipmentDetails{
			Classification:  cmd.Request.Classification,
			Services:        bookedServices(breakdown),
			ItemCategory:    cmd.Request.ItemCategory,
			ItemDescription: cmd.Request.ItemDescription,
			Quantity:        cmd.Request.Quantity,
			WeightGrams:     cmd.Request.WeightGrams,
			DoorToDoor:      cmd.Request.DoorToDoor,
			QuotedTotal:     breakdown.TotalBeforeSettlement,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.shipments.Insert(ctx, shipment); err != nil {
		return BookingResult{}, fmt.Errorf("booking service: insert shipment: %w", err)
	}

	s.logger(ctx, "booking.created", map[string]any{
		"shipmentId":     shipment.ID,
		"trackingNumber": trackingNumber,
		"total":          breakdown.TotalBeforeSettlement,
	})

	return BookingResult{Shipment: shipment, Pricing: breakdown}, nil
}

// SettleBooking records the settlement choice for an awaiting shipment. The
// independent writes are logged to the saga log with a shared correlation id;
// compensating actions are recorded for operators, not replayed automatically.
func (s *bookingService) SettleBooking(ctx context.Context, cmd SettleBookingCommand) (SettlementResult, error) {
	shipmentID := strings.TrimSpace(cmd.ShipmentID)
	if shipmentID == "" {
		return SettlementResult{}, fmt.Errorf("%w: shipment id is required", ErrBookingInvalidInput)
	}

	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		if repoErrNotFound(err) {
			return SettlementResult{}, fmt.Errorf("%w: %s", ErrShipmentNotFound, shipmentID)
		}
		return SettlementResult{}, fmt.Errorf("booking service: load shipment: %w", err)
	}
	if shipment.Status != domain.ShipmentStatusAwaitingSettlement {
		return SettlementResult{}, fmt.Errorf("%w: status %s", ErrBookingAlreadySettled, shipment.Status)
	}

	now := s.now()
	selection, err := s.resolver.Resolve(ResolveSettlementCommand{
		Total:          shipment.Details.QuotedTotal,
		DisplayedTotal: cmd.DisplayedTotal,
		Method:         cmd.Method,
		SubMethod:      cmd.SubMethod,
		Classification: shipment.Details.Classification,
		Quantity:       shipment.Details.Quantity,
		CollectionDate: now,
	})
	if err != nil {
		return SettlementResult{}, err
	}

	if key := strings.TrimSpace(cmd.IdempotencyKey); key != "" {
		if existing, err := s.payments.FindByIdempotencyKey(ctx, key); err == nil {
			return SettlementResult{}, fmt.Errorf("%w: payment %s already recorded for key", ErrBookingAlreadySettled, existing.ID)
		} else if !repoErrNotFound(err) {
			return SettlementResult{}, fmt.Errorf("booking service: check idempotency key: %w", err)
		}
	}

	receiptNumber, err := s.counters.NextReceiptNumber(ctx)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("booking service: allocate receipt number: %w", err)
	}

	correlationID := ulid.Make().String()
	saga := s.sagaRecorder(ctx, correlationID)

	var payment *Payment
	if selection.Classification == domain.ClassImmediate {
		intent, err := s.psp.CreateIntent(ctx, payments.PaymentContext{}, payments.IntentRequest{
			Amount:         selection.FinalTotal,
			Currency:       domain.CurrencyGBP,
			ShipmentID:     shipment.ID,
			ReceiptNumber:  receiptNumber,
			CustomerEmail:  shipment.Sender.Email,
			Description:    "Shipment " + shipment.TrackingNumber,
			IdempotencyKey: cmd.IdempotencyKey,
		})
		if err != nil {
			return SettlementResult{}, fmt.Errorf("booking service: create payment intent: %w", err)
		}

		record := Payment{
			ID:             ulid.Make().String(),
			ShipmentID:     shipment.ID,
			Amount:         selection.FinalTotal,
			Currency:       domain.CurrencyGBP,
			Method:         cmd.Method,
			Status:         domain.PaymentStatusPending,
			TransactionID:  intent.ID,
			IdempotencyKey: strings.TrimSpace(cmd.IdempotencyKey),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.payments.Insert(ctx, record); err != nil {
			if repoErrConflict(err) {
				return SettlementResult{}, fmt.Errorf("%w: payment %s already recorded", ErrBookingAlreadySettled, record.ID)
			}
			return SettlementResult{}, fmt.Errorf("booking service: insert payment: %w", err)
		}
		saga("payment.recorded", record.ID, fmt.Sprintf("void payment %s and cancel PSP intent %s", record.ID, intent.ID))
		payment = &record
	}

	var paymentID *string
	if payment != nil {
		paymentID = &payment.ID
	}
	receipt := Receipt{
		ID:            ulid.Make().String(),
		ShipmentID:    shipment.ID,
		PaymentID:     paymentID,
		ReceiptNumber: receiptNumber,
		Amount:        selection.FinalTotal,
		Currency:      domain.CurrencyGBP,
		Method:        cmd.Method,
		SubMethod:     selection.SubMethod,
		Status:        domain.ReceiptStatusPending,
		Sender:        shipment.Sender,
		Recipient:     shipment.Recipient,
		Details:       shipment.Details,
		CreatedAt:     now,
	}
	if err := s.receipts.Insert(ctx, receipt); err != nil {
		return SettlementResult{}, fmt.Errorf("booking service: insert receipt: %w", err)
	}
	saga("receipt.recorded", receipt.ID, fmt.Sprintf("delete receipt %s", receipt.ID))

	status, err := shipmentStatusForClassification(selection.Classification)
	if err != nil {
		return SettlementResult{}, err
	}
	if err := s.shipments.UpdateStatus(ctx, shipment.ID, status, now); err != nil {
		return SettlementResult{}, fmt.Errorf("booking service: update shipment status: %w", err)
	}
	saga("shipment.status_updated", shipment.ID, fmt.Sprintf("revert shipment %s to %s", shipment.ID, domain.ShipmentStatusAwaitingSettlement))

	shipment.Status = status
	shipment.UpdatedAt = now

	result := SettlementResult{
		Shipment:      shipment,
		Selection:     selection,
		Payment:       payment,
		Receipt:       receipt,
		CorrelationID: correlationID,
	}

	if s.notifications != nil {
		notification, err := s.notifications.NotifyBookingConfirmed(ctx, BookingConfirmedCommand{
			UserID:         actorOrOwner(cmd.ActorID, shipment.UserID),
			ShipmentID:     shipment.ID,
			TrackingNumber: shipment.TrackingNumber,
			Method:         cmd.Method,
			FinalTotal:     selection.FinalTotal,
			Currency:       domain.CurrencyGBP,
		})
		if err != nil {
			s.logger(ctx, "booking.notification_failed", map[string]any{
				"shipmentId": shipment.ID,
				"error":      err.Error(),
			})
		} else {
			result.Notification = notification
		}
	}

	if s.events != nil {
		messageID, err := s.events.PublishBookingEvent(ctx, BookingEventMessage{
			Event:            "booking.confirmed",
			ShipmentID:       shipment.ID,
			TrackingNumber:   shipment.TrackingNumber,
			ReceiptID:        receipt.ID,
			SettlementMethod: string(cmd.Method),
			FinalTotal:       selection.FinalTotal,
			Currency:         domain.CurrencyGBP,
			CorrelationID:    correlationID,
			OccurredAt:       now,
		})
		if err != nil {
			s.logger(ctx, "booking.event_publish_failed", map[string]any{
				"shipmentId": shipment.ID,
				"error":      err.Error(),
			})
		} else {
			s.logger(ctx, "booking.event_published", map[string]any{
				"shipmentId": shipment.ID,
				"messageId":  messageID,
			})
		}
	}

	s.logger(ctx, "booking.settled", map[string]any{
		"shipmentId":     shipment.ID,
		"method":         string(cmd.Method),
		"classification": string(selection.Classification),
		"finalTotal":     selection.FinalTotal,
		"correlationId":  correlationID,
	})

	return result, nil
}

// GetShipment fetches a shipment by id.
func (s *bookingService) GetShipment(ctx context.Context, shipmentID string) (Shipment, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return Shipment{}, fmt.Errorf("%w: shipment id is required", ErrBookingInvalidInput)
	}
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		if repoErrNotFound(err) {
			return Shipment{}, fmt.Errorf("%w: %s", ErrShipmentNotFound, shipmentID)
		}
		return Shipment{}, fmt.Errorf("booking service: load shipment: %w", err)
	}
	return shipment, nil
}

// GetShipmentByTracking fetches a shipment by its public tracking number.
func (s *bookingService) GetShipmentByTracking(ctx context.Context, trackingNumber string) (Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Shipment{}, fmt.Errorf("%w: tracking number is required", ErrBookingInvalidInput)
	}
	shipment, err := s.shipments.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if repoErrNotFound(err) {
			return Shipment{}, fmt.Errorf("%w: tracking %s", ErrShipmentNotFound, trackingNumber)
		}
		return Shipment{}, fmt.Errorf("booking service: load shipment: %w", err)
	}
	return shipment, nil
}

// ListShipments pages through a user's shipments, newest first.
func (s *bookingService) ListShipments(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Shipment], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Shipment]{}, fmt.Errorf("%w: user id is required", ErrBookingInvalidInput)
	}
	page, err := s.shipments.ListByUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Shipment]{}, fmt.Errorf("booking service: list shipments: %w", err)
	}
	return page, nil
}

// sagaRecorder appends completed steps under one correlation id. Append
// failures are logged, not fatal: the saga log is an operator audit trail and
// must not roll back settlement writes that already succeeded.
func (s *bookingService) sagaRecorder(ctx context.Context, correlationID string) func(step, recordRef, compensation string) {
	seq := 0
	return func(step, recordRef, compensation string) {
		seq++
		entry := SagaStep{
			ID:            ulid.Make().String(),
			CorrelationID: correlationID,
			Seq:           seq,
			Step:          step,
			RecordRef:     recordRef,
			Compensation:  compensation,
			CreatedAt:     s.now(),
		}
		if err := s.sagaLog.Append(ctx, entry); err != nil {
			s.logger(ctx, "booking.saga_append_failed", map[string]any{
				"correlationId": correlationID,
				"step":          step,
				"error":         err.Error(),
			})
		}
	}
}

func bookedServices(breakdown PricingBreakdown) []string {
	services := []string{serviceCodeShipping}
	for _, addon := range breakdown.AddonCharges {
		services = append(services, addon.Code)
	}
	return services
}

// actorOrOwner addresses notifications to the booking owner, falling back to
// the authenticated actor when the shipment has no owner on record.
func actorOrOwner(actorID *string, ownerID *string) *string {
	if ownerID != nil && strings.TrimSpace(*ownerID) != "" {
		return ownerID
	}
	return actorID
}

package services

import (
	"context"
	"io"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination               = domain.Pagination
	ItemClassification       = domain.ItemClassification
	SettlementMethod         = domain.SettlementMethod
	TermsSubMethod           = domain.TermsSubMethod
	SettlementClassification = domain.SettlementClassification
	AdjustmentKind           = domain.AdjustmentKind
	ContactDetails           = domain.ContactDetails
	ShipmentRequest          = domain.ShipmentRequest
	PricingBreakdown         = domain.PricingBreakdown
	AddonCharge              = domain.AddonCharge
	SettlementSelection      = domain.SettlementSelection
	Shipment                 = domain.Shipment
	ShipmentStatus           = domain.ShipmentStatus
	Payment                  = domain.Payment
	Receipt                  = domain.Receipt
	CustomQuote              = domain.CustomQuote
	QuoteStatus              = domain.QuoteStatus
	Notification             = domain.Notification
	SagaStep                 = domain.SagaStep
	RateCard                 = domain.RateCard
	RateTier                 = domain.RateTier
	HealthReport             = domain.HealthReport
)

// RateCardService prices validated shipment requests against the active rate
// card and exposes the admin-editable card itself.
type RateCardService interface {
	PriceRequest(ctx context.Context, req ShipmentRequest) (PricingBreakdown, error)
	GetRateCard(ctx context.Context) (RateCard, error)
	UpdateRateCard(ctx context.Context, cmd UpdateRateCardCommand) (RateCard, error)
	DeleteRateCard(ctx context.Context, rateCardID string) error
}

// SettlementResolver turns a chosen settlement method into the single price
// adjustment, final total, and settlement classification for a booking.
type SettlementResolver interface {
	Resolve(cmd ResolveSettlementCommand) (SettlementSelection, error)
}

// CounterService allocates human-readable sequence numbers.
type CounterService interface {
	NextTrackingNumber(ctx context.Context) (string, error)
	NextReceiptNumber(ctx context.Context) (string, error)
}

// BookingService drives the booking state machine from validated form capture
// through settlement recording and confirmation side effects.
type BookingService interface {
	CreateBooking(ctx context.Context, cmd CreateBookingCommand) (BookingResult, error)
	SettleBooking(ctx context.Context, cmd SettleBookingCommand) (SettlementResult, error)
	GetShipment(ctx context.Context, shipmentID string) (Shipment, error)
	GetShipmentByTracking(ctx context.Context, trackingNumber string) (Shipment, error)
	ListShipments(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Shipment], error)
}

// QuoteService owns the three-phase custom-quote flow for unclassified items.
type QuoteService interface {
	SubmitQuote(ctx context.Context, cmd SubmitQuoteCommand) (CustomQuote, error)
	PriceQuote(ctx context.Context, cmd PriceQuoteCommand) (CustomQuote, error)
	AcceptQuote(ctx context.Context, cmd AcceptQuoteCommand) (QuoteAcceptanceResult, error)
	GetQuote(ctx context.Context, quoteID string) (CustomQuote, error)
	ListQuotes(ctx context.Context, filter QuoteListFilter) (domain.CursorPage[CustomQuote], error)
}

// NotificationService records and serves booking notifications.
type NotificationService interface {
	NotifyBookingConfirmed(ctx context.Context, cmd BookingConfirmedCommand) (Notification, error)
	ListNotifications(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Notification], error)
	MarkRead(ctx context.Context, notificationID string) error
}

// SystemService aggregates dependency health for the readiness endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (HealthReport, error)
}

// BookingEventMessage is the payload published when a booking is confirmed.
type BookingEventMessage struct {
	Event            string    `json:"event"`
	ShipmentID       string    `json:"shipmentId"`
	TrackingNumber   string    `json:"trackingNumber"`
	ReceiptID        string    `json:"receiptId,omitempty"`
	SettlementMethod string    `json:"settlementMethod"`
	FinalTotal       int64     `json:"finalTotal"`
	Currency         string    `json:"currency"`
	CorrelationID    string    `json:"correlationId"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// BookingEventPublisher accepts booking lifecycle events for downstream processing.
type BookingEventPublisher interface {
	PublishBookingEvent(ctx context.Context, message BookingEventMessage) (string, error)
}

// QuoteImageStore uploads quote images and returns their public URLs.
type QuoteImageStore interface {
	Upload(ctx context.Context, object, contentType string, content io.Reader) (string, error)
}

// Command and DTO definitions ------------------------------------------------

// UpdateRateCardCommand carries an admin rate card upsert.
type UpdateRateCardCommand struct {
	RateCardID string
	Card       RateCard
	ActorID    string
}

// ResolveSettlementCommand carries everything the resolver needs for one decision.
type ResolveSettlementCommand struct {
	Total          int64
	DisplayedTotal *int64
	Method         SettlementMethod
	SubMethod      *TermsSubMethod
	Classification ItemClassification
	Quantity       int
	CollectionDate time.Time
}

// CreateBookingCommand wraps the validated form capture input.
type CreateBookingCommand struct {
	Request ShipmentRequest
}

// BookingResult reports the outcome of booking creation. Exactly one of
// Shipment or QuoteRouted is meaningful: unclassified requests route to the
// custom-quote branch without persisting a shipment.
type BookingResult struct {
	Shipment    Shipment
	Pricing     PricingBreakdown
	QuoteRouted bool
}

// SettleBookingCommand records the customer's settlement choice for a priced shipment.
type SettleBookingCommand struct {
	ShipmentID     string
	Method         SettlementMethod
	SubMethod      *TermsSubMethod
	DisplayedTotal *int64
	IdempotencyKey string
	ActorID        *string
}

// SettlementResult bundles the records written while settling a booking.
type SettlementResult struct {
	Shipment      Shipment
	Selection     SettlementSelection
	Payment       *Payment
	Receipt       Receipt
	Notification  Notification
	CorrelationID string
}

// QuoteImageUpload is one image attached to a quote submission.
type QuoteImageUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// SubmitQuoteCommand opens the custom-quote flow for an unclassified item.
type SubmitQuoteCommand struct {
	Description string
	Category    string
	Contact     ContactDetails
	Images      []QuoteImageUpload
	UserID      *string
}

// PriceQuoteCommand is the admin action that sets the quoted amount.
type PriceQuoteCommand struct {
	QuoteID      string
	QuotedAmount int64
	ActorID      string
}

// AcceptQuoteCommand is the customer acceptance of a quoted amount.
type AcceptQuoteCommand struct {
	QuoteID        string
	Method         SettlementMethod
	SubMethod      *TermsSubMethod
	Recipient      ContactDetails
	IdempotencyKey string
}

// QuoteAcceptanceResult bundles the records written at quote acceptance.
type QuoteAcceptanceResult struct {
	Quote         CustomQuote
	Shipment      Shipment
	Payment       Payment
	Receipt       Receipt
	CorrelationID string
}

// QuoteListFilter mirrors the repository filter for handler use.
type QuoteListFilter = repositories.QuoteListFilter

// BookingConfirmedCommand carries the notification payload for a confirmed booking.
type BookingConfirmedCommand struct {
	UserID         *string
	ShipmentID     string
	TrackingNumber string
	Method         SettlementMethod
	FinalTotal     int64
	Currency       string
}

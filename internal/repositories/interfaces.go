package repositories

import (
	"context"
	"time"

	domain "github.com/cargoline/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Shipments() ShipmentRepository
	Payments() PaymentRepository
	Receipts() ReceiptRepository
	Quotes() CustomQuoteRepository
	Notifications() NotificationRepository
	RateCards() RateCardRepository
	SagaLog() SagaLogRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShipmentRepository persists booking records and their lifecycle transitions.
type ShipmentRepository interface {
	Insert(ctx context.Context, shipment domain.Shipment) error
	Update(ctx context.Context, shipment domain.Shipment) error
	UpdateStatus(ctx context.Context, shipmentID string, status domain.ShipmentStatus, updatedAt time.Time) error
	FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (domain.Shipment, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Shipment], error)
}

// PaymentRepository stores payment records for immediate settlements. Insert must
// fail with a conflict when the payment id already exists so that idempotent
// resubmissions never produce a second record.
type PaymentRepository interface {
	Insert(ctx context.Context, payment domain.Payment) error
	UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, transactionID string, updatedAt time.Time) error
	FindByID(ctx context.Context, paymentID string) (domain.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (domain.Payment, error)
	ListByShipment(ctx context.Context, shipmentID string) ([]domain.Payment, error)
}

// ReceiptRepository stores the durable order record written for every settlement choice.
type ReceiptRepository interface {
	Insert(ctx context.Context, receipt domain.Receipt) error
	FindByID(ctx context.Context, receiptID string) (domain.Receipt, error)
	FindByShipment(ctx context.Context, shipmentID string) (domain.Receipt, error)
}

// CustomQuoteRepository persists manually priced shipments for unrated items.
type CustomQuoteRepository interface {
	Insert(ctx context.Context, quote domain.CustomQuote) error
	Update(ctx context.Context, quote domain.CustomQuote) error
	FindByID(ctx context.Context, quoteID string) (domain.CustomQuote, error)
	List(ctx context.Context, filter QuoteListFilter) (domain.CursorPage[domain.CustomQuote], error)
}

// NotificationRepository stores booking confirmation notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Notification], error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) error
}

// RateCardRepository maintains the admin-editable pricing policy document.
type RateCardRepository interface {
	Get(ctx context.Context, rateCardID string) (domain.RateCard, error)
	Save(ctx context.Context, card domain.RateCard) error
	Delete(ctx context.Context, rateCardID string) error
}

// SagaLogRepository appends immutable workflow step records for settlement flows.
type SagaLogRepository interface {
	Append(ctx context.Context, step domain.SagaStep) error
	ListByCorrelation(ctx context.Context, correlationID string) ([]domain.SagaStep, error)
}

// CounterRepository provides transaction-safe sequence numbers for tracking and receipt numbering.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}

// QuoteListFilter controls status filtering and pagination for quote listings.
type QuoteListFilter struct {
	Status     []string
	UserID     string
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

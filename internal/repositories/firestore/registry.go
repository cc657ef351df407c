package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/cargoline/api/internal/platform/firestore"
	"github.com/cargoline/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	shipments     *ShipmentRepository
	payments      *PaymentRepository
	receipts      *ReceiptRepository
	quotes        *CustomQuoteRepository
	notifications *NotificationRepository
	rateCards     *RateCardRepository
	sagaLog       *SagaLogRepository
	counters      *CounterRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against the shared provider.
// The health repository is optional; pass nil when probes are wired elsewhere.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	shipments, err := NewShipmentRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentRepository(provider)
	if err != nil {
		return nil, err
	}
	receipts, err := NewReceiptRepository(provider)
	if err != nil {
		return nil, err
	}
	quotes, err := NewCustomQuoteRepository(provider)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationRepository(provider)
	if err != nil {
		return nil, err
	}
	rateCards, err := NewRateCardRepository(provider)
	if err != nil {
		return nil, err
	}
	sagaLog, err := NewSagaLogRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		shipments:     shipments,
		payments:      payments,
		receipts:      receipts,
		quotes:        quotes,
		notifications: notifications,
		rateCards:     rateCards,
		sagaLog:       sagaLog,
		counters:      counters,
		health:        health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside a Firestore transaction boundary.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}

func (r *Registry) Shipments() repositories.ShipmentRepository         { return r.shipments }
func (r *Registry) Payments() repositories.PaymentRepository           { return r.payments }
func (r *Registry) Receipts() repositories.ReceiptRepository           { return r.receipts }
func (r *Registry) Quotes() repositories.CustomQuoteRepository         { return r.quotes }
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }
func (r *Registry) RateCards() repositories.RateCardRepository         { return r.rateCards }
func (r *Registry) SagaLog() repositories.SagaLogRepository            { return r.sagaLog }
func (r *Registry) Counters() repositories.CounterRepository           { return r.counters }
func (r *Registry) Health() repositories.HealthRepository              { return r.health }

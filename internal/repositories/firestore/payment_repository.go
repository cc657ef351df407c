package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/cargoline/api/internal/domain"
	pfirestore "github.com/cargoline/api/internal/platform/firestore"
)

const paymentsCollection = "payments"

type paymentDocument struct {
	ShipmentID     string    `firestore:"shipmentId"`
	Amount         int64     `firestore:"amount"`
	Currency       string    `firestore:"currency"`
	Method         string    `firestore:"method"`
	Status         string    `firestore:"status"`
	TransactionID  string    `firestore:"transactionId,omitempty"`
	IdempotencyKey string    `firestore:"idempotencyKey,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

// PaymentRepository persists payment records backed by Firestore.
type PaymentRepository struct {
	base *pfirestore.BaseRepository[paymentDocument]
}

// NewPaymentRepository constructs a Firestore-backed payment repository.
func NewPaymentRepository(provider *pfirestore.Provider) (*PaymentRepository, error) {
	if provider == nil {
		return nil, errors.New("payment repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[paymentDocument](provider, paymentsCollection, nil, nil)
	return &PaymentRepository{base: base}, nil
}

// Insert stores a new payment record. A duplicate payment id surfaces as a conflict,
// which the booking workflow relies on to keep resubmissions single-writed.
func (r *PaymentRepository) Insert(ctx context.Context, payment domain.Payment) error {
	if r == nil || r.base == nil {
		return errors.New("payment repository not initialised")
	}
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		return errors.New("payment repository: payment id is required")
	}
	if _, err := r.base.Create(ctx, paymentID, encodePaymentDocument(payment)); err != nil {
		return err
	}
	return nil
}

// UpdateStatus records a PSP-driven state transition for the payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, transactionID string, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("payment repository not initialised")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return errors.New("payment repository: payment id is required")
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		updates = append(updates, firestore.Update{Path: "transactionId", Value: transactionID})
	}
	if _, err := r.base.Update(ctx, paymentID, updates); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single payment record.
func (r *PaymentRepository) FindByID(ctx context.Context, paymentID string) (domain.Payment, error) {
	if r == nil || r.base == nil {
		return domain.Payment{}, errors.New("payment repository not initialised")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.Payment{}, errors.New("payment repository: payment id is required")
	}
	doc, err := r.base.Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	return decodePaymentDocument(doc.ID, doc.Data), nil
}

// FindByIdempotencyKey resolves the payment written under a previously used key.
func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (domain.Payment, error) {
	if r == nil || r.base == nil {
		return domain.Payment{}, errors.New("payment repository not initialised")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Payment{}, errors.New("payment repository: idempotency key is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("idempotencyKey", "==", key).Limit(1)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if len(docs) == 0 {
		return domain.Payment{}, pfirestore.NewNotFoundError("payments.find_by_idempotency_key", key)
	}
	return decodePaymentDocument(docs[0].ID, docs[0].Data), nil
}

// ListByShipment returns all payments recorded against a shipment.
func (r *PaymentRepository) ListByShipment(ctx context.Context, shipmentID string) ([]domain.Payment, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("payment repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return nil, errors.New("payment repository: shipment id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("shipmentId", "==", shipmentID).OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	payments := make([]domain.Payment, 0, len(docs))
	for _, doc := range docs {
		payments = append(payments, decodePaymentDocument(doc.ID, doc.Data))
	}
	return payments, nil
}

func encodePaymentDocument(payment domain.Payment) paymentDocument {
	return paymentDocument{
		ShipmentID:     payment.ShipmentID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Method:         string(payment.Method),
		Status:         string(payment.Status),
		TransactionID:  payment.TransactionID,
		IdempotencyKey: payment.IdempotencyKey,
		CreatedAt:      payment.CreatedAt.UTC(),
		UpdatedAt:      payment.UpdatedAt.UTC(),
	}
}

func decodePaymentDocument(id string, doc paymentDocument) domain.Payment {
	return domain.Payment{
		ID:             id,
		ShipmentID:     doc.ShipmentID,
		Amount:         doc.Amount,
		Currency:       doc.Currency,
		Method:         domain.SettlementMethod(doc.Method),
		Status:         domain.PaymentStatus(doc.Status),
		TransactionID:  doc.TransactionID,
		IdempotencyKey: doc.IdempotencyKey,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

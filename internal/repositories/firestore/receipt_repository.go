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

const receiptsCollection = "receipts"

type receiptDocument struct {
	ShipmentID    string                  `firestore:"shipmentId"`
	PaymentID     *string                 `firestore:"paymentId,omitempty"`
	ReceiptNumber string                  `firestore:"receiptNumber"`
	Amount        int64                   `firestore:"amount"`
	Currency      string                  `firestore:"currency"`
	Method        string                  `firestore:"method"`
	SubMethod     *string                 `firestore:"subMethod,omitempty"`
	Status        string                  `firestore:"status"`
	Sender        contactDocument         `firestore:"sender"`
	Recipient     contactDocument         `firestore:"recipient"`
	Details       shipmentDetailsDocument `firestore:"details"`
	CreatedAt     time.Time               `firestore:"createdAt"`
}

// ReceiptRepository persists durable order records backed by Firestore.
type ReceiptRepository struct {
	base *pfirestore.BaseRepository[receiptDocument]
}

// NewReceiptRepository constructs a Firestore-backed receipt repository.
func NewReceiptRepository(provider *pfirestore.Provider) (*ReceiptRepository, error) {
	if provider == nil {
		return nil, errors.New("receipt repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[receiptDocument](provider, receiptsCollection, nil, nil)
	return &ReceiptRepository{base: base}, nil
}

// Insert stores a new receipt. Receipts are immutable once written.
func (r *ReceiptRepository) Insert(ctx context.Context, receipt domain.Receipt) error {
	if r == nil || r.base == nil {
		return errors.New("receipt repository not initialised")
	}
	receiptID := strings.TrimSpace(receipt.ID)
	if receiptID == "" {
		return errors.New("receipt repository: receipt id is required")
	}
	if _, err := r.base.Create(ctx, receiptID, encodeReceiptDocument(receipt)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single receipt.
func (r *ReceiptRepository) FindByID(ctx context.Context, receiptID string) (domain.Receipt, error) {
	if r == nil || r.base == nil {
		return domain.Receipt{}, errors.New("receipt repository not initialised")
	}
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return domain.Receipt{}, errors.New("receipt repository: receipt id is required")
	}
	doc, err := r.base.Get(ctx, receiptID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return decodeReceiptDocument(doc.ID, doc.Data), nil
}

// FindByShipment returns the receipt written for a shipment's settlement.
func (r *ReceiptRepository) FindByShipment(ctx context.Context, shipmentID string) (domain.Receipt, error) {
	if r == nil || r.base == nil {
		return domain.Receipt{}, errors.New("receipt repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return domain.Receipt{}, errors.New("receipt repository: shipment id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("shipmentId", "==", shipmentID).Limit(1)
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	if len(docs) == 0 {
		return domain.Receipt{}, pfirestore.NewNotFoundError("receipts.find_by_shipment", shipmentID)
	}
	return decodeReceiptDocument(docs[0].ID, docs[0].Data), nil
}

func encodeReceiptDocument(receipt domain.Receipt) receiptDocument {
	var subMethod *string
	if receipt.SubMethod != nil {
		value := string(*receipt.SubMethod)
		subMethod = &value
	}
	return receiptDocument{
		ShipmentID:    receipt.ShipmentID,
		PaymentID:     receipt.PaymentID,
		ReceiptNumber: receipt.ReceiptNumber,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		Method:        string(receipt.Method),
		SubMethod:     subMethod,
		Status:        string(receipt.Status),
		Sender:        encodeContact(receipt.Sender),
		Recipient:     encodeContact(receipt.Recipient),
		Details:   encodeShipmentDetails(receipt.Details),
		CreatedAt: receipt.CreatedAt.UTC(),
	}
}

func decodeReceiptDocument(id string, doc receiptDocument) domain.Receipt {
	var subMethod *domain.TermsSubMethod
	if doc.SubMethod != nil {
		value := domain.TermsSubMethod(*doc.SubMethod)
		subMethod = &value
	}
	return domain.Receipt{
		ID:            id,
		ShipmentID:    doc.ShipmentID,
		PaymentID:     doc.PaymentID,
		ReceiptNumber: doc.ReceiptNumber,
		Amount:        doc.Amount,
		Currency:      doc.Currency,
		Method:        domain.SettlementMethod(doc.Method),
		SubMethod:     subMethod,
		Status:        domain.ReceiptStatus(doc.Status),
		Sender:        decodeContact(doc.Sender),
		Recipient:     decodeContact(doc.Recipient),
		Details:   decodeShipmentDetails(doc.Details),
		CreatedAt: doc.CreatedAt,
	}
}

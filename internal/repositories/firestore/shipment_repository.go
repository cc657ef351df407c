package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/cargoline/api/internal/domain"
	pfirestore "github.com/cargoline/api/internal/platform/firestore"
)

const shipmentsCollection = "shipments"

type contactDocument struct {
	Name     string `firestore:"name"`
	Email    string `firestore:"email"`
	Phone    string `firestore:"phone"`
	Address1 string `firestore:"address1"`
	Address2 string `firestore:"address2,omitempty"`
	City     string `firestore:"city"`
	Country  string `firestore:"country"`
}

type shipmentDetailsDocument struct {
	Classification  string   `firestore:"classification"`
	Services        []string `firestore:"services"`
	ItemCategory    string   `firestore:"itemCategory"`
	ItemDescription string   `firestore:"itemDescription"`
	Quantity        int      `firestore:"quantity"`
	WeightGrams     int      `firestore:"weightGrams"`
	DoorToDoor      bool     `firestore:"doorToDoor"`
	QuotedTotal     int64    `firestore:"quotedTotal"`
}

type shipmentDocument struct {
	TrackingNumber string                  `firestore:"trackingNumber"`
	Status         string                  `firestore:"status"`
	UserID         *string                 `firestore:"userId,omitempty"`
	Sender         contactDocument         `firestore:"sender"`
	Recipient      contactDocument         `firestore:"recipient"`
	Details        shipmentDetailsDocument `firestore:"details"`
	CreatedAt      time.Time               `firestore:"createdAt"`
	UpdatedAt      time.Time               `firestore:"updatedAt"`
}

// ShipmentRepository persists booking records backed by Firestore.
type ShipmentRepository struct {
	base *pfirestore.BaseRepository[shipmentDocument]
}

// NewShipmentRepository constructs a Firestore-backed shipment repository.
func NewShipmentRepository(provider *pfirestore.Provider) (*ShipmentRepository, error) {
	if provider == nil {
		return nil, errors.New("shipment repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[shipmentDocument](provider, shipmentsCollection, nil, nil)
	return &ShipmentRepository{base: base}, nil
}

// Insert stores a new shipment. The ID must be unique.
func (r *ShipmentRepository) Insert(ctx context.Context, shipment domain.Shipment) error {
	if r == nil || r.base == nil {
		return errors.New("shipment repository not initialised")
	}
	shipmentID := strings.TrimSpace(shipment.ID)
	if shipmentID == "" {
		return errors.New("shipment repository: shipment id is required")
	}
	if _, err := r.base.Create(ctx, shipmentID, encodeShipmentDocument(shipment)); err != nil {
		return err
	}
	return nil
}

// Update replaces the persisted shipment state with the provided snapshot.
func (r *ShipmentRepository) Update(ctx context.Context, shipment domain.Shipment) error {
	if r == nil || r.base == nil {
		return errors.New("shipment repository not initialised")
	}
	shipmentID := strings.TrimSpace(shipment.ID)
	if shipmentID == "" {
		return errors.New("shipment repository: shipment id is required")
	}
	if _, err := r.base.Set(ctx, shipmentID, encodeShipmentDocument(shipment)); err != nil {
		return err
	}
	return nil
}

// UpdateStatus transitions the shipment status without touching the rest of the record.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, shipmentID string, status domain.ShipmentStatus, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("shipment repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return errors.New("shipment repository: shipment id is required")
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, shipmentID, updates); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single shipment.
func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	if r == nil || r.base == nil {
		return domain.Shipment{}, errors.New("shipment repository not initialised")
	}
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return domain.Shipment{}, errors.New("shipment repository: shipment id is required")
	}
	doc, err := r.base.Get(ctx, shipmentID)
	if err != nil {
		return domain.Shipment{}, err
	}
	return decodeShipmentDocument(doc.ID, doc.Data), nil
}

// FindByTrackingNumber looks up a shipment by its public tracking number.
func (r *ShipmentRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	if r == nil || r.base == nil {
		return domain.Shipment{}, errors.New("shipment repository not initialised")
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return domain.Shipment{}, errors.New("shipment repository: tracking number is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("trackingNumber", "==", trackingNumber).Limit(1)
	})
	if err != nil {
		return domain.Shipment{}, err
	}
	if len(docs) == 0 {
		return domain.Shipment{}, pfirestore.NewNotFoundError("shipments.find_by_tracking_number", trackingNumber)
	}
	return decodeShipmentDocument(docs[0].ID, docs[0].Data), nil
}

// ListByUser returns the user's shipments ordered by most recent creation.
func (r *ShipmentRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Shipment], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Shipment]{}, errors.New("shipment repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Shipment]{}, errors.New("shipment repository: user id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCreatedAtToken(token)
		if err != nil {
			return domain.CursorPage[domain.Shipment]{}, fmt.Errorf("shipment repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("userId", "==", userID)
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Shipment]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeCreatedAtToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Shipment, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeShipmentDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Shipment]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func encodeShipmentDocument(shipment domain.Shipment) shipmentDocument {
	return shipmentDocument{
		TrackingNumber: shipment.TrackingNumber,
		Status:         string(shipment.Status),
		UserID:         shipment.UserID,
		Sender:         encodeContact(shipment.Sender),
		Recipient:      encodeContact(shipment.Recipient),
		Details:   encodeShipmentDetails(shipment.Details),
		CreatedAt: shipment.CreatedAt.UTC(),
		UpdatedAt: shipment.UpdatedAt.UTC(),
	}
}

func decodeShipmentDocument(id string, doc shipmentDocument) domain.Shipment {
	return domain.Shipment{
		ID:             id,
		TrackingNumber: doc.TrackingNumber,
		Status:         domain.ShipmentStatus(doc.Status),
		UserID:         doc.UserID,
		Sender:         decodeContact(doc.Sender),
		Recipient:      decodeContact(doc.Recipient),
		Details:   decodeShipmentDetails(doc.Details),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func encodeShipmentDetails(details domain.ShipmentDetails) shipmentDetailsDocument {
	return shipmentDetailsDocument{
		Classification:  string(details.Classification),
		Services:        details.Services,
		ItemCategory:    details.ItemCategory,
		ItemDescription: details.ItemDescription,
		Quantity:        details.Quantity,
		WeightGrams:     details.WeightGrams,
		DoorToDoor:      details.DoorToDoor,
		QuotedTotal:     details.QuotedTotal,
	}
}

func decodeShipmentDetails(doc shipmentDetailsDocument) domain.ShipmentDetails {
	return domain.ShipmentDetails{
		Classification:  domain.ItemClassification(doc.Classification),
		Services:        doc.Services,
		ItemCategory:    doc.ItemCategory,
		ItemDescription: doc.ItemDescription,
		Quantity:        doc.Quantity,
		WeightGrams:     doc.WeightGrams,
		DoorToDoor:      doc.DoorToDoor,
		QuotedTotal:     doc.QuotedTotal,
	}
}

func encodeContact(contact domain.ContactDetails) contactDocument {
	return contactDocument{
		Name:     contact.Name,
		Email:    contact.Email,
		Phone:    contact.Phone,
		Address1: contact.Address1,
		Address2: contact.Address2,
		City:     contact.City,
		Country:  contact.Country,
	}
}

func decodeContact(doc contactDocument) domain.ContactDetails {
	return domain.ContactDetails{
		Name:     doc.Name,
		Email:    doc.Email,
		Phone:    doc.Phone,
		Address1: doc.Address1,
		Address2: doc.Address2,
		City:     doc.City,
		Country:  doc.Country,
	}
}

// encodeCreatedAtToken packs an ordering timestamp and document id into an opaque cursor.
func encodeCreatedAtToken(ts time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", ts.UTC().UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCreatedAtToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("malformed cursor")
	}
	var nanos int64
	if _, err := fmt.Sscanf(parts[0], "%d", &nanos); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}

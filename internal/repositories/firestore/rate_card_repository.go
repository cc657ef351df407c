package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	pfirestore "github.com/cargoline/api/internal/platform/firestore"
)

const rateCardsCollection = "rate_cards"

type rateTierDocument struct {
	MinQuantity int   `firestore:"minQuantity"`
	UnitPrice   int64 `firestore:"unitPrice"`
}

type rateCardDocument struct {
	Currency      string             `firestore:"currency"`
	DrumTiers     []rateTierDocument `firestore:"drumTiers"`
	PerKgRate     int64              `firestore:"perKgRate"`
	MinimumCharge int64              `firestore:"minimumCharge"`
	DoorToDoorFee int64              `firestore:"doorToDoorFee"`
	SealFee       int64              `firestore:"sealFee"`
	UpdatedBy     string             `firestore:"updatedBy"`
	UpdatedAt     time.Time          `firestore:"updatedAt"`
}

// RateCardRepository persists the admin-editable pricing policy backed by Firestore.
type RateCardRepository struct {
	base *pfirestore.BaseRepository[rateCardDocument]
}

// NewRateCardRepository constructs a Firestore-backed rate card repository.
func NewRateCardRepository(provider *pfirestore.Provider) (*RateCardRepository, error) {
	if provider == nil {
		return nil, errors.New("rate card repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[rateCardDocument](provider, rateCardsCollection, nil, nil)
	return &RateCardRepository{base: base}, nil
}

// Get fetches the rate card by id.
func (r *RateCardRepository) Get(ctx context.Context, rateCardID string) (domain.RateCard, error) {
	if r == nil || r.base == nil {
		return domain.RateCard{}, errors.New("rate card repository not initialised")
	}
	rateCardID = strings.TrimSpace(rateCardID)
	if rateCardID == "" {
		return domain.RateCard{}, errors.New("rate card repository: rate card id is required")
	}
	doc, err := r.base.Get(ctx, rateCardID)
	if err != nil {
		return domain.RateCard{}, err
	}
	return decodeRateCardDocument(doc.ID, doc.Data), nil
}

// Save upserts the rate card document.
func (r *RateCardRepository) Save(ctx context.Context, card domain.RateCard) error {
	if r == nil || r.base == nil {
		return errors.New("rate card repository not initialised")
	}
	rateCardID := strings.TrimSpace(card.ID)
	if rateCardID == "" {
		return errors.New("rate card repository: rate card id is required")
	}
	if _, err := r.base.Set(ctx, rateCardID, encodeRateCardDocument(card)); err != nil {
		return err
	}
	return nil
}

// Delete removes a retired rate card.
func (r *RateCardRepository) Delete(ctx context.Context, rateCardID string) error {
	if r == nil || r.base == nil {
		return errors.New("rate card repository not initialised")
	}
	rateCardID = strings.TrimSpace(rateCardID)
	if rateCardID == "" {
		return errors.New("rate card repository: rate card id is required")
	}
	return r.base.Delete(ctx, rateCardID)
}

func encodeRateCardDocument(card domain.RateCard) rateCardDocument {
	tiers := make([]rateTierDocument, 0, len(card.DrumTiers))
	for _, tier := range card.DrumTiers {
		tiers = append(tiers, rateTierDocument{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   tier.UnitPrice,
		})
	}
	return rateCardDocument{
		Currency:      card.Currency,
		DrumTiers:     tiers,
		PerKgRate:     card.PerKgRate,
		MinimumCharge: card.MinimumCharge,
		DoorToDoorFee: card.DoorToDoorFee,
		SealFee:       card.SealFee,
		UpdatedBy:     card.UpdatedBy,
		UpdatedAt:     card.UpdatedAt.UTC(),
	}
}

func decodeRateCardDocument(id string, doc rateCardDocument) domain.RateCard {
	tiers := make([]domain.RateTier, 0, len(doc.DrumTiers))
	for _, tier := range doc.DrumTiers {
		tiers = append(tiers, domain.RateTier{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   tier.UnitPrice,
		})
	}
	return domain.RateCard{
		ID:            id,
		Currency:      doc.Currency,
		DrumTiers:     tiers,
		PerKgRate:     doc.PerKgRate,
		MinimumCharge: doc.MinimumCharge,
		DoorToDoorFee: doc.DoorToDoorFee,
		SealFee:       doc.SealFee,
		UpdatedBy:     doc.UpdatedBy,
		UpdatedAt:     doc.UpdatedAt,
	}
}

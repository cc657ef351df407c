package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/repositories"
)

var (
	// ErrPricingInvalidInput signals bad request data such as non-positive quantities or weights.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
	// ErrRequiresCustomQuote is returned for unclassified items; callers route them to the quote flow.
	ErrRequiresCustomQuote = errors.New("pricing: item requires a custom quote")
	// ErrRateCardInvalid signals a rate card update that breaks the card's shape rules.
	ErrRateCardInvalid = errors.New("rate card: invalid")
	// ErrRateCardNotFound is returned when the requested rate card does not exist.
	ErrRateCardNotFound = errors.New("rate card: not found")
)

// DefaultRateCardID names the single card the rate table reads until multi-card
// support exists.
const DefaultRateCardID = "default"

const (
	addonCodeDoorToDoor = "door_to_door"
	addonCodeSealFee    = "seal_fee"
)

type rateCardService struct {
	cards    repositories.RateCardRepository
	defaults RateCard
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// RateCardServiceDeps lists the collaborators for NewRateCardService.
// Defaults seeds the card returned (and persisted) when none exists yet.
type RateCardServiceDeps struct {
	Cards    repositories.RateCardRepository
	Defaults RateCard
	Now      func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

func NewRateCardService(deps RateCardServiceDeps) (RateCardService, error) {
	if deps.Cards == nil {
		return nil, errors.New("rate card service: repository is required")
	}
	if err := validateRateCard(deps.Defaults); err != nil {
		return nil, fmt.Errorf("rate card service: defaults: %w", err)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	defaults := deps.Defaults
	if defaults.ID == "" {
		defaults.ID = DefaultRateCardID
	}
	if defaults.Currency == "" {
		defaults.Currency = domain.CurrencyGBP
	}

	return &rateCardService{
		cards:    deps.Cards,
		defaults: defaults,
		now: func() time.Time {
			return now().UTC()
		},
		logger: logger,
	}, nil
}

// PriceRequest runs the rate table for a validated request and returns the
// itemised breakdown. Unclassified items never price; they return
// ErrRequiresCustomQuote so callers can open the quote flow instead.
func (s *rateCardService) PriceRequest(ctx context.Context, req ShipmentRequest) (PricingBreakdown, error) {
	card, err := s.activeCard(ctx)
	if err != nil {
		return PricingBreakdown{}, err
	}

	switch req.Classification {
	case domain.ClassificationBulkContainer:
		return s.priceBulk(ctx, card, req)
	case domain.ClassificationWeightRated:
		return s.priceByWeight(ctx, card, req)
	case domain.ClassificationUnclassified:
		return PricingBreakdown{}, ErrRequiresCustomQuote
	default:
		return PricingBreakdown{}, fmt.Errorf("%w: unknown classification %q", ErrPricingInvalidInput, req.Classification)
	}
}

func (s *rateCardService) priceBulk(ctx context.Context, card RateCard, req ShipmentRequest) (PricingBreakdown, error) {
	if req.Quantity <= 0 {
		return PricingBreakdown{}, fmt.Errorf("%w: quantity must be positive", ErrPricingInvalidInput)
	}

	unitPrice, err := tierUnitPrice(card.DrumTiers, req.Quantity)
	if err != nil {
		return PricingBreakdown{}, err
	}

	base := unitPrice * int64(req.Quantity)
	addons := []AddonCharge{
		{Code: addonCodeSealFee, Label: "Drum seal fee", Amount: card.SealFee},
	}
	if req.DoorToDoor {
		addons = append(addons, AddonCharge{Code: addonCodeDoorToDoor, Label: "Door-to-door delivery", Amount: card.DoorToDoorFee})
	}

	breakdown := assembleBreakdown(card.Currency, base, addons)
	s.logger(ctx, "pricing.bulk.priced", map[string]any{
		"quantity":  req.Quantity,
		"unitPrice": unitPrice,
		"total":     breakdown.TotalBeforeSettlement,
	})
	return breakdown, nil
}

func (s *rateCardService) priceByWeight(ctx context.Context, card RateCard, req ShipmentRequest) (PricingBreakdown, error) {
	if req.WeightGrams <= 0 {
		return PricingBreakdown{}, fmt.Errorf("%w: weight must be positive", ErrPricingInvalidInput)
	}

	// Per-kg rate applied to grams, rounded up to the next penny, floored at
	// the minimum charge.
	base := (int64(req.WeightGrams)*card.PerKgRate + 999) / 1000
	if base < card.MinimumCharge {
		base = card.MinimumCharge
	}

	var addons []AddonCharge
	if req.DoorToDoor {
		addons = append(addons, AddonCharge{Code: addonCodeDoorToDoor, Label: "Door-to-door delivery", Amount: card.DoorToDoorFee})
	}

	breakdown := assembleBreakdown(card.Currency, base, addons)
	s.logger(ctx, "pricing.weight.priced", map[string]any{
		"weightGrams": req.WeightGrams,
		"total":       breakdown.TotalBeforeSettlement,
	})
	return breakdown, nil
}

// GetRateCard returns the active card, seeding the configured defaults into
// the store on first read.
func (s *rateCardService) GetRateCard(ctx context.Context) (RateCard, error) {
	card, err := s.cards.Get(ctx, DefaultRateCardID)
	if err == nil {
		return card, nil
	}
	if !repoErrNotFound(err) {
		return RateCard{}, fmt.Errorf("rate card service: load card: %w", err)
	}

	seeded := s.defaults
	seeded.UpdatedBy = "system"
	seeded.UpdatedAt = s.now()
	if err := s.cards.Save(ctx, seeded); err != nil {
		return RateCard{}, fmt.Errorf("rate card service: seed defaults: %w", err)
	}
	s.logger(ctx, "pricing.rate_card.seeded", map[string]any{"rateCardId": seeded.ID})
	return seeded, nil
}

// UpdateRateCard validates and persists an admin edit of the card.
func (s *rateCardService) UpdateRateCard(ctx context.Context, cmd UpdateRateCardCommand) (RateCard, error) {
	cardID := strings.TrimSpace(cmd.RateCardID)
	if cardID == "" {
		cardID = DefaultRateCardID
	}
	actor := strings.TrimSpace(cmd.ActorID)
	if actor == "" {
		return RateCard{}, fmt.Errorf("%w: actor id is required", ErrRateCardInvalid)
	}

	card := cmd.Card
	card.ID = cardID
	if card.Currency == "" {
		card.Currency = domain.CurrencyGBP
	}
	if err := validateRateCard(card); err != nil {
		return RateCard{}, err
	}

	card.UpdatedBy = actor
	card.UpdatedAt = s.now()
	if err := s.cards.Save(ctx, card); err != nil {
		return RateCard{}, fmt.Errorf("rate card service: save card: %w", err)
	}

	s.logger(ctx, "pricing.rate_card.updated", map[string]any{
		"rateCardId": card.ID,
		"updatedBy":  actor,
	})
	return card, nil
}

// DeleteRateCard removes a card. Deleting the default card reverts pricing to
// the configured defaults on the next read.
func (s *rateCardService) DeleteRateCard(ctx context.Context, rateCardID string) error {
	cardID := strings.TrimSpace(rateCardID)
	if cardID == "" {
		return fmt.Errorf("%w: rate card id is required", ErrRateCardInvalid)
	}
	if err := s.cards.Delete(ctx, cardID); err != nil {
		if repoErrNotFound(err) {
			return fmt.Errorf("%w: %s", ErrRateCardNotFound, cardID)
		}
		return fmt.Errorf("rate card service: delete card: %w", err)
	}
	s.logger(ctx, "pricing.rate_card.deleted", map[string]any{"rateCardId": cardID})
	return nil
}

func (s *rateCardService) activeCard(ctx context.Context) (RateCard, error) {
	card, err := s.cards.Get(ctx, DefaultRateCardID)
	if err == nil {
		return card, nil
	}
	if repoErrNotFound(err) {
		return s.defaults, nil
	}
	return RateCard{}, fmt.Errorf("rate card service: load card: %w", err)
}

// tierUnitPrice picks the tier with the highest MinQuantity not exceeding the
// requested quantity.
func tierUnitPrice(tiers []RateTier, quantity int) (int64, error) {
	if len(tiers) == 0 {
		return 0, fmt.Errorf("%w: rate card has no drum tiers", ErrRateCardInvalid)
	}
	sorted := make([]RateTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity < sorted[j].MinQuantity
	})

	var matched *RateTier
	for i := range sorted {
		if sorted[i].MinQuantity <= quantity {
			matched = &sorted[i]
		}
	}
	if matched == nil {
		return 0, fmt.Errorf("%w: no tier covers quantity %d", ErrRateCardInvalid, quantity)
	}
	return matched.UnitPrice, nil
}

func assembleBreakdown(currency string, base int64, addons []AddonCharge) PricingBreakdown {
	total := base
	for _, addon := range addons {
		total += addon.Amount
	}
	return PricingBreakdown{
		Currency:              currency,
		Base:                  base,
		AddonCharges:          addons,
		TotalBeforeSettlement: total,
	}
}

func validateRateCard(card RateCard) error {
	if len(card.DrumTiers) == 0 {
		return fmt.Errorf("%w: at least one drum tier is required", ErrRateCardInvalid)
	}
	sorted := make([]RateTier, len(card.DrumTiers))
	copy(sorted, card.DrumTiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity < sorted[j].MinQuantity
	})
	if sorted[0].MinQuantity != 1 {
		return fmt.Errorf("%w: drum tiers must start at quantity 1", ErrRateCardInvalid)
	}
	for i, tier := range sorted {
		if tier.UnitPrice <= 0 {
			return fmt.Errorf("%w: drum tier unit prices must be positive", ErrRateCardInvalid)
		}
		if i == 0 {
			continue
		}
		if tier.MinQuantity == sorted[i-1].MinQuantity {
			return fmt.Errorf("%w: duplicate drum tier at quantity %d", ErrRateCardInvalid, tier.MinQuantity)
		}
		if tier.UnitPrice > sorted[i-1].UnitPrice {
			return fmt.Errorf("%w: drum tier unit prices must not increase with quantity", ErrRateCardInvalid)
		}
	}
	if card.PerKgRate <= 0 {
		return fmt.Errorf("%w: per-kg rate must be positive", ErrRateCardInvalid)
	}
	if card.MinimumCharge < 0 {
		return fmt.Errorf("%w: minimum charge must not be negative", ErrRateCardInvalid)
	}
	if card.DoorToDoorFee < 0 {
		return fmt.Errorf("%w: door-to-door fee must not be negative", ErrRateCardInvalid)
	}
	if card.SealFee < 0 {
		return fmt.Errorf("%w: seal fee must not be negative", ErrRateCardInvalid)
	}
	return nil
}

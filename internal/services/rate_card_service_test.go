package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cargoline/api/internal/domain"
)

func testRateCard() domain.RateCard {
	return domain.RateCard{
		ID:       DefaultRateCardID,
		Currency: domain.CurrencyGBP,
		DrumTiers: []domain.RateTier{
			{MinQuantity: 1, UnitPrice: 26000},
			{MinQuantity: 2, UnitPrice: 24000},
			{MinQuantity: 5, UnitPrice: 22000},
		},
		PerKgRate:     150,
		MinimumCharge: 2500,
		DoorToDoorFee: 4000,
		SealFee:       1000,
	}
}

func newTestRateCardService(t *testing.T, repo *rateCardRepoStub) RateCardService {
	t.Helper()
	svc, err := NewRateCardService(RateCardServiceDeps{
		Cards:    repo,
		Defaults: testRateCard(),
		Now:      fixedClock(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewRateCardService: %v", err)
	}
	return svc
}

func TestPriceRequestBulkTiers(t *testing.T) {
	svc := newTestRateCardService(t, newRateCardRepoStub())

	tests := []struct {
		name      string
		quantity  int
		wantBase  int64
		wantTotal int64
	}{
		{name: "single drum", quantity: 1, wantBase: 26000, wantTotal: 27000},
		{name: "lower tier boundary", quantity: 2, wantBase: 48000, wantTotal: 49000},
		{name: "middle of tier", quantity: 4, wantBase: 96000, wantTotal: 97000},
		{name: "upper tier boundary", quantity: 5, wantBase: 110000, wantTotal: 111000},
		{name: "large order", quantity: 10, wantBase: 220000, wantTotal: 221000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			breakdown, err := svc.PriceRequest(context.Background(), domain.ShipmentRequest{
				Classification: domain.ClassificationBulkContainer,
				Quantity:       tc.quantity,
			})
			if err != nil {
				t.Fatalf("PriceRequest: %v", err)
			}
			if breakdown.Base != tc.wantBase {
				t.Errorf("base = %d, want %d", breakdown.Base, tc.wantBase)
			}
			if breakdown.TotalBeforeSettlement != tc.wantTotal {
				t.Errorf("total = %d, want %d", breakdown.TotalBeforeSettlement, tc.wantTotal)
			}
		})
	}
}

func TestPriceRequestBulkAddons(t *testing.T) {
	svc := newTestRateCardService(t, newRateCardRepoStub())

	breakdown, err := svc.PriceRequest(context.Background(), domain.ShipmentRequest{
		Classification: domain.ClassificationBulkContainer,
		Quantity:       2,
		DoorToDoor:     true,
	})
	if err != nil {
		t.Fatalf("PriceRequest: %v", err)
	}

	if len(breakdown.AddonCharges) != 2 {
		t.Fatalf("addons = %d, want seal fee and door-to-door", len(breakdown.AddonCharges))
	}
	var sealFees, doorFees int
	for _, addon := range breakdown.AddonCharges {
		switch addon.Code {
		case addonCodeSealFee:
			sealFees++
		case addonCodeDoorToDoor:
			doorFees++
		}
	}
	if sealFees != 1 || doorFees != 1 {
		t.Errorf("addon counts = seal:%d door:%d, want one of each", sealFees, doorFees)
	}
	if want := int64(48000 + 1000 + 4000); breakdown.TotalBeforeSettlement != want {
		t.Errorf("total = %d, want %d", breakdown.TotalBeforeSettlement, want)
	}
}

func TestPriceRequestByWeight(t *testing.T) {
	svc := newTestRateCardService(t, newRateCardRepoStub())

	tests := []struct {
		name        string
		weightGrams int
		doorToDoor  bool
		wantBase    int64
		wantTotal   int64
	}{
		{name: "below minimum floors at minimum charge", weightGrams: 10000, wantBase: 2500, wantTotal: 2500},
		{name: "above minimum", weightGrams: 30000, wantBase: 4500, wantTotal: 4500},
		{name: "sub-kilo rounding rounds up", weightGrams: 30001, wantBase: 4501, wantTotal: 4501},
		{name: "door to door added once", weightGrams: 30000, doorToDoor: true, wantBase: 4500, wantTotal: 8500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			breakdown, err := svc.PriceRequest(context.Background(), domain.ShipmentRequest{
				Classification: domain.ClassificationWeightRated,
				WeightGrams:    tc.weightGrams,
				DoorToDoor:     tc.doorToDoor,
			})
			if err != nil {
				t.Fatalf("PriceRequest: %v", err)
			}
			if breakdown.Base != tc.wantBase {
				t.Errorf("base = %d, want %d", breakdown.Base, tc.wantBase)
			}
			if breakdown.TotalBeforeSettlement != tc.wantTotal {
				t.Errorf("total = %d, want %d", breakdown.TotalBeforeSettlement, tc.wantTotal)
			}
			for _, addon := range breakdown.AddonCharges {
				if addon.Code == addonCodeSealFee {
					t.Error("weight-rated pricing must not carry the seal fee")
				}
			}
		})
	}
}

func TestPriceRequestRejectsInvalidInput(t *testing.T) {
	svc := newTestRateCardService(t, newRateCardRepoStub())

	tests := []struct {
		name string
		req  domain.ShipmentRequest
	}{
		{name: "zero quantity", req: domain.ShipmentRequest{Classification: domain.ClassificationBulkContainer}},
		{name: "negative quantity", req: domain.ShipmentRequest{Classification: domain.ClassificationBulkContainer, Quantity: -1}},
		{name: "zero weight", req: domain.ShipmentRequest{Classification: domain.ClassificationWeightRated}},
		{name: "negative weight", req: domain.ShipmentRequest{Classification: domain.ClassificationWeightRated, WeightGrams: -200}},
		{name: "unknown classification", req: domain.ShipmentRequest{Classification: "frozen"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.PriceRequest(context.Background(), tc.req); !errors.Is(err, ErrPricingInvalidInput) {
				t.Fatalf("err = %v, want ErrPricingInvalidInput", err)
			}
		})
	}
}

func TestPriceRequestUnclassifiedRoutesToQuote(t *testing.T) {
	svc := newTestRateCardService(t, newRateCardRepoStub())

	_, err := svc.PriceRequest(context.Background(), domain.ShipmentRequest{
		Classification: domain.ClassificationUnclassified,
	})
	if !errors.Is(err, ErrRequiresCustomQuote) {
		t.Fatalf("err = %v, want ErrRequiresCustomQuote", err)
	}
}

func TestPriceRequestUsesStoredCardOverDefaults(t *testing.T) {
	repo := newRateCardRepoStub()
	card := testRateCard()
	card.DrumTiers = []domain.RateTier{{MinQuantity: 1, UnitPrice: 30000}}
	card.SealFee = 500
	repo.cards[DefaultRateCardID] = card

	svc := newTestRateCardService(t, repo)
	breakdown, err := svc.PriceRequest(context.Background(), domain.ShipmentRequest{
		Classification: domain.ClassificationBulkContainer,
		Quantity:       1,
	})
	if err != nil {
		t.Fatalf("PriceRequest: %v", err)
	}
	if want := int64(30500); breakdown.TotalBeforeSettlement != want {
		t.Errorf("total = %d, want %d from stored card", breakdown.TotalBeforeSettlement, want)
	}
}

func TestGetRateCardSeedsDefaults(t *testing.T) {
	repo := newRateCardRepoStub()
	svc := newTestRateCardService(t, repo)

	card, err := svc.GetRateCard(context.Background())
	if err != nil {
		t.Fatalf("GetRateCard: %v", err)
	}
	if card.UpdatedBy != "system" {
		t.Errorf("updatedBy = %q, want system", card.UpdatedBy)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved = %d, want defaults persisted once", len(repo.saved))
	}
	if _, err := svc.GetRateCard(context.Background()); err != nil {
		t.Fatalf("second GetRateCard: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Errorf("saved = %d, want no reseeding on second read", len(repo.saved))
	}
}

func TestUpdateRateCardValidatesShape(t *testing.T) {
	repo := newRateCardRepoStub()
	svc := newTestRateCardService(t, repo)

	base := testRateCard()

	tests := []struct {
		name   string
		mutate func(*domain.RateCard)
		actor  string
	}{
		{name: "missing actor", mutate: func(*domain.RateCard) {}, actor: ""},
		{name: "no tiers", mutate: func(c *domain.RateCard) { c.DrumTiers = nil }, actor: "admin-1"},
		{name: "tiers must start at one", mutate: func(c *domain.RateCard) {
			c.DrumTiers = []domain.RateTier{{MinQuantity: 2, UnitPrice: 24000}}
		}, actor: "admin-1"},
		{name: "increasing unit price", mutate: func(c *domain.RateCard) {
			c.DrumTiers = []domain.RateTier{{MinQuantity: 1, UnitPrice: 20000}, {MinQuantity: 5, UnitPrice: 25000}}
		}, actor: "admin-1"},
		{name: "duplicate tier", mutate: func(c *domain.RateCard) {
			c.DrumTiers = []domain.RateTier{{MinQuantity: 1, UnitPrice: 26000}, {MinQuantity: 1, UnitPrice: 24000}}
		}, actor: "admin-1"},
		{name: "non-positive per-kg rate", mutate: func(c *domain.RateCard) { c.PerKgRate = 0 }, actor: "admin-1"},
		{name: "negative seal fee", mutate: func(c *domain.RateCard) { c.SealFee = -1 }, actor: "admin-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card := base
			card.DrumTiers = append([]domain.RateTier(nil), base.DrumTiers...)
			tc.mutate(&card)
			_, err := svc.UpdateRateCard(context.Background(), UpdateRateCardCommand{Card: card, ActorID: tc.actor})
			if !errors.Is(err, ErrRateCardInvalid) {
				t.Fatalf("err = %v, want ErrRateCardInvalid", err)
			}
		})
	}
	if len(repo.saved) != 0 {
		t.Errorf("saved = %d, want no writes for invalid updates", len(repo.saved))
	}
}

func TestUpdateRateCardPersistsAuditFields(t *testing.T) {
	repo := newRateCardRepoStub()
	svc := newTestRateCardService(t, repo)

	card, err := svc.UpdateRateCard(context.Background(), UpdateRateCardCommand{
		Card:    testRateCard(),
		ActorID: "admin-7",
	})
	if err != nil {
		t.Fatalf("UpdateRateCard: %v", err)
	}
	if card.UpdatedBy != "admin-7" {
		t.Errorf("updatedBy = %q, want admin-7", card.UpdatedBy)
	}
	if card.UpdatedAt.IsZero() {
		t.Error("updatedAt not stamped")
	}
	if card.ID != DefaultRateCardID {
		t.Errorf("id = %q, want default card id", card.ID)
	}
}

func TestDeleteRateCard(t *testing.T) {
	repo := newRateCardRepoStub()
	repo.cards[DefaultRateCardID] = testRateCard()
	svc := newTestRateCardService(t, repo)

	if err := svc.DeleteRateCard(context.Background(), DefaultRateCardID); err != nil {
		t.Fatalf("DeleteRateCard: %v", err)
	}
	if err := svc.DeleteRateCard(context.Background(), DefaultRateCardID); !errors.Is(err, ErrRateCardNotFound) {
		t.Fatalf("err = %v, want ErrRateCardNotFound", err)
	}
}

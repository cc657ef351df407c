package services

import (
	"errors"
	"testing"
	"time"

	domain "github.com/cargoline/api/internal/domain"
)

func newTestResolver(t *testing.T) SettlementResolver {
	t.Helper()
	resolver, err := NewSettlementResolver(SettlementResolverConfig{
		CollectionDiscountPerUnit: 2000,
		ArrivalPremiumPercent:     20,
		TermsDays:                 30,
		MismatchTolerance:         0,
	})
	if err != nil {
		t.Fatalf("NewSettlementResolver: %v", err)
	}
	return resolver
}

func int64ptr(v int64) *int64 { return &v }

func subMethodPtr(sub domain.TermsSubMethod) *domain.TermsSubMethod { return &sub }

func TestResolveCardSettlesImmediately(t *testing.T) {
	resolver := newTestResolver(t)

	selection, err := resolver.Resolve(ResolveSettlementCommand{
		Total:  27000,
		Method: domain.MethodCard,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selection.Adjustment != domain.AdjustmentNone || selection.AdjustmentAmount != 0 {
		t.Errorf("adjustment = %s/%d, want none", selection.Adjustment, selection.AdjustmentAmount)
	}
	if selection.FinalTotal != 27000 {
		t.Errorf("finalTotal = %d, want 27000", selection.FinalTotal)
	}
	if selection.Classification != domain.ClassImmediate {
		t.Errorf("classification = %s, want immediate", selection.Classification)
	}
	if selection.PaymentDeadline != nil {
		t.Error("card settlement must not carry a payment deadline")
	}
}

func TestResolveCashOnCollection(t *testing.T) {
	resolver := newTestResolver(t)

	selection, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          73000,
		Method:         domain.MethodCashOnCollection,
		Classification: domain.ClassificationBulkContainer,
		Quantity:       3,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selection.Adjustment != domain.AdjustmentDiscount {
		t.Errorf("adjustment = %s, want discount", selection.Adjustment)
	}
	if selection.AdjustmentAmount != 6000 {
		t.Errorf("discount = %d, want 6000 for 3 units", selection.AdjustmentAmount)
	}
	if selection.FinalTotal != 67000 {
		t.Errorf("finalTotal = %d, want 67000", selection.FinalTotal)
	}
	if selection.Classification != domain.ClassDeferredCollection {
		t.Errorf("classification = %s, want deferred_collection", selection.Classification)
	}
}

func TestResolveCashOnCollectionClampsDiscount(t *testing.T) {
	resolver := newTestResolver(t)

	selection, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          5000,
		Method:         domain.MethodCashOnCollection,
		Classification: domain.ClassificationBulkContainer,
		Quantity:       3,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selection.AdjustmentAmount != 5000 {
		t.Errorf("discount = %d, want clamped to total", selection.AdjustmentAmount)
	}
	if selection.FinalTotal != 0 {
		t.Errorf("finalTotal = %d, want 0 after clamping", selection.FinalTotal)
	}
}

func TestResolveCashOnCollectionRequiresBulk(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          5000,
		Method:         domain.MethodCashOnCollection,
		Classification: domain.ClassificationWeightRated,
	})
	if !errors.Is(err, ErrSettlementInvalidInput) {
		t.Fatalf("err = %v, want ErrSettlementInvalidInput", err)
	}
}

func TestResolvePayOnArrivalPremium(t *testing.T) {
	resolver := newTestResolver(t)

	selection, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          10000,
		Method:         domain.MethodPayOnArrival,
		Classification: domain.ClassificationWeightRated,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selection.Adjustment != domain.AdjustmentPremium {
		t.Errorf("adjustment = %s, want premium", selection.Adjustment)
	}
	if selection.AdjustmentAmount != 2000 {
		t.Errorf("premium = %d, want 2000", selection.AdjustmentAmount)
	}
	if selection.FinalTotal != 12000 {
		t.Errorf("finalTotal = %d, want 12000", selection.FinalTotal)
	}
	if selection.Classification != domain.ClassDeferredArrival {
		t.Errorf("classification = %s, want deferred_arrival", selection.Classification)
	}
}

func TestResolveStandard30Day(t *testing.T) {
	resolver := newTestResolver(t)
	collection := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	selection, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          42000,
		Method:         domain.MethodStandard30Day,
		SubMethod:      subMethodPtr(domain.SubMethodBankTransfer),
		Classification: domain.ClassificationBulkContainer,
		Quantity:       2,
		CollectionDate: collection,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if selection.Adjustment != domain.AdjustmentNone || selection.FinalTotal != 42000 {
		t.Errorf("selection = %s/%d, want no adjustment at 42000", selection.Adjustment, selection.FinalTotal)
	}
	if selection.Classification != domain.ClassDeferred30Day {
		t.Errorf("classification = %s, want deferred_30day", selection.Classification)
	}
	if selection.PaymentDeadline == nil {
		t.Fatal("expected a payment deadline")
	}
	if want := collection.AddDate(0, 0, 30); !selection.PaymentDeadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", selection.PaymentDeadline, want)
	}
	if selection.SubMethod == nil || *selection.SubMethod != domain.SubMethodBankTransfer {
		t.Error("sub-method not snapshotted onto selection")
	}
}

func TestResolveStandard30DayRequiresSubMethod(t *testing.T) {
	resolver := newTestResolver(t)

	tests := []struct {
		name string
		sub  *domain.TermsSubMethod
	}{
		{name: "missing sub-method", sub: nil},
		{name: "unknown sub-method", sub: subMethodPtr("cheque")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolver.Resolve(ResolveSettlementCommand{
				Total:          1000,
				Method:         domain.MethodStandard30Day,
				SubMethod:      tc.sub,
				CollectionDate: time.Now(),
			})
			if !errors.Is(err, ErrSettlementInvalidInput) {
				t.Fatalf("err = %v, want ErrSettlementInvalidInput", err)
			}
		})
	}
}

func TestResolveRejectsDisplayedTotalMismatch(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          27000,
		DisplayedTotal: int64ptr(26000),
		Method:         domain.MethodCard,
	})

	var mismatch *SettlementMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want SettlementMismatchError", err)
	}
	if mismatch.Expected != 27000 || mismatch.Provided != 26000 {
		t.Errorf("mismatch = %d/%d, want 27000/26000", mismatch.Expected, mismatch.Provided)
	}
}

func TestResolveAllowsMismatchWithinTolerance(t *testing.T) {
	resolver, err := NewSettlementResolver(SettlementResolverConfig{
		CollectionDiscountPerUnit: 2000,
		ArrivalPremiumPercent:     20,
		TermsDays:                 30,
		MismatchTolerance:         100,
	})
	if err != nil {
		t.Fatalf("NewSettlementResolver: %v", err)
	}

	if _, err := resolver.Resolve(ResolveSettlementCommand{
		Total:          27000,
		DisplayedTotal: int64ptr(26950),
		Method:         domain.MethodCard,
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestResolveRejectsUnknownMethod(t *testing.T) {
	resolver := newTestResolver(t)
	if _, err := resolver.Resolve(ResolveSettlementCommand{Total: 100, Method: "barter"}); !errors.Is(err, ErrSettlementInvalidInput) {
		t.Fatalf("err = %v, want ErrSettlementInvalidInput", err)
	}
}

func TestShipmentStatusMappingIsInjective(t *testing.T) {
	classes := []domain.SettlementClassification{
		domain.ClassImmediate,
		domain.ClassDeferredCollection,
		domain.ClassDeferredArrival,
		domain.ClassDeferred30Day,
	}

	seen := make(map[domain.ShipmentStatus]domain.SettlementClassification)
	for _, class := range classes {
		status, err := shipmentStatusForClassification(class)
		if err != nil {
			t.Fatalf("shipmentStatusForClassification(%s): %v", class, err)
		}
		if prior, ok := seen[status]; ok {
			t.Errorf("status %s mapped from both %s and %s", status, prior, class)
		}
		seen[status] = class
	}

	if _, err := shipmentStatusForClassification("unknown"); !errors.Is(err, ErrSettlementInvalidInput) {
		t.Fatalf("err = %v, want ErrSettlementInvalidInput for unknown classification", err)
	}
}

package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	name       string
	intent     Intent
	intentErr  error
	details    PaymentDetails
	detailsErr error
	calls      int
}

func (s *stubProvider) CreateIntent(_ context.Context, _ IntentRequest) (Intent, error) {
	s.calls++
	return s.intent, s.intentErr
}

func (s *stubProvider) LookupPayment(_ context.Context, _ LookupRequest) (PaymentDetails, error) {
	return s.details, s.detailsErr
}

func TestNewManagerRequiresProviders(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatal("expected error for empty provider map")
	}
	if _, err := NewManager(map[string]Provider{"": &stubProvider{}}); err == nil {
		t.Fatal("expected error for blank provider key")
	}
}

func TestManagerDefaultsToStripe(t *testing.T) {
	stripe := &stubProvider{intent: Intent{ID: "pi_1"}}
	manual := &stubProvider{intent: Intent{ID: "man_1"}}
	manager, err := NewManager(map[string]Provider{"stripe": stripe, "manual": manual})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	intent, err := manager.CreateIntent(context.Background(), PaymentContext{}, IntentRequest{Amount: 2600})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.Provider != "stripe" {
		t.Errorf("provider = %q, want stripe", intent.Provider)
	}
	if stripe.calls != 1 || manual.calls != 0 {
		t.Errorf("calls = stripe:%d manual:%d, want stripe only", stripe.calls, manual.calls)
	}
}

func TestManagerHonoursPreferredProvider(t *testing.T) {
	stripe := &stubProvider{intent: Intent{ID: "pi_1"}}
	manual := &stubProvider{intent: Intent{ID: "man_1"}}
	manager, err := NewManager(map[string]Provider{"stripe": stripe, "manual": manual})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	intent, err := manager.CreateIntent(context.Background(), PaymentContext{PreferredProvider: "Manual"}, IntentRequest{Amount: 100})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.Provider != "manual" {
		t.Errorf("provider = %q, want manual", intent.Provider)
	}
}

func TestManagerSingleProviderFallback(t *testing.T) {
	manual := &stubProvider{intent: Intent{ID: "man_1"}}
	manager, err := NewManager(map[string]Provider{"manual": manual})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.CreateIntent(context.Background(), PaymentContext{}, IntentRequest{Amount: 100}); err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if manual.calls != 1 {
		t.Errorf("calls = %d, want 1", manual.calls)
	}
}

func TestManagerUnknownPreferredFallsBackToDefault(t *testing.T) {
	stripe := &stubProvider{intentErr: errors.New("declined")}
	manager, err := NewManager(map[string]Provider{"stripe": stripe, "manual": &stubProvider{}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	_, err = manager.CreateIntent(context.Background(), PaymentContext{PreferredProvider: "paypal"}, IntentRequest{Amount: 100})
	if err == nil || err.Error() != "declined" {
		t.Fatalf("err = %v, want declined from default stripe provider", err)
	}
}

func TestManualProviderRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	provider := NewManualProvider(WithManualClock(func() time.Time { return now }))

	intent, err := provider.CreateIntent(context.Background(), IntentRequest{Amount: 24000, Currency: "gbp"})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.Status != StatusPending {
		t.Errorf("status = %q, want pending", intent.Status)
	}
	if intent.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP", intent.Currency)
	}

	details, err := provider.LookupPayment(context.Background(), LookupRequest{IntentID: intent.ID})
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if details.Amount != 24000 {
		t.Errorf("amount = %d, want 24000", details.Amount)
	}

	if _, err := provider.LookupPayment(context.Background(), LookupRequest{IntentID: "missing"}); err == nil {
		t.Fatal("expected error for unknown intent")
	}
}

func TestManualProviderRejectsNonPositiveAmount(t *testing.T) {
	provider := NewManualProvider()
	if _, err := provider.CreateIntent(context.Background(), IntentRequest{Amount: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

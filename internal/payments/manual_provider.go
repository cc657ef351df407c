package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ManualProvider records intents in memory without contacting a PSP. It backs
// local development and environments where card settlement is reconciled by hand.
type ManualProvider struct {
	mu      sync.Mutex
	intents map[string]PaymentDetails
	clock   func() time.Time
}

// ManualProviderOption customises ManualProvider construction.
type ManualProviderOption func(*ManualProvider)

// WithManualClock injects a custom clock primarily for tests.
func WithManualClock(clock func() time.Time) ManualProviderOption {
	return func(p *ManualProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewManualProvider constructs an in-memory payment provider.
func NewManualProvider(opts ...ManualProviderOption) *ManualProvider {
	provider := &ManualProvider{
		intents: make(map[string]PaymentDetails),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

// CreateIntent allocates a pending intent id for the booking amount.
func (p *ManualProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	if p == nil {
		return Intent{}, errors.New("manual: provider is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, errors.New("manual: amount must be positive")
	}

	now := p.clock().UTC()
	id := "man_" + ulid.Make().String()
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	p.mu.Lock()
	p.intents[id] = PaymentDetails{
		Provider: "manual",
		IntentID: id,
		Status:   StatusPending,
		Amount:   req.Amount,
		Currency: currency,
	}
	p.mu.Unlock()

	return Intent{
		ID:        id,
		Provider:  "manual",
		Status:    StatusPending,
		Amount:    req.Amount,
		Currency:  currency,
		CreatedAt: now,
	}, nil
}

// LookupPayment returns the recorded intent state.
func (p *ManualProvider) LookupPayment(_ context.Context, req LookupRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("manual: provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	details, ok := p.intents[strings.TrimSpace(req.IntentID)]
	if !ok {
		return PaymentDetails{}, errors.New("manual: intent not found")
	}
	return details, nil
}

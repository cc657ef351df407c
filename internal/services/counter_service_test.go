package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargoline/api/internal/repositories"
)

type counterRepoStub struct {
	values  map[string]int64
	configs map[string]int
	nextErr error
}

func newCounterRepoStub() *counterRepoStub {
	return &counterRepoStub{
		values:  make(map[string]int64),
		configs: make(map[string]int),
	}
}

func (s *counterRepoStub) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if s.nextErr != nil {
		return 0, s.nextErr
	}
	if step <= 0 {
		step = 1
	}
	s.values[counterID] += step
	return s.values[counterID], nil
}

func (s *counterRepoStub) Configure(_ context.Context, counterID string, _ repositories.CounterConfig) error {
	s.configs[counterID]++
	return nil
}

func newTestCounterService(t *testing.T, repo *counterRepoStub) CounterService {
	t.Helper()
	svc, err := NewCounterService(CounterServiceDeps{
		Repository: repo,
		Clock:      fixedClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewCounterService: %v", err)
	}
	return svc
}

func TestNextTrackingNumberFormat(t *testing.T) {
	repo := newCounterRepoStub()
	svc := newTestCounterService(t, repo)

	first, err := svc.NextTrackingNumber(context.Background())
	if err != nil {
		t.Fatalf("NextTrackingNumber: %v", err)
	}
	if first != "CL-2026-000001" {
		t.Errorf("tracking = %q, want CL-2026-000001", first)
	}

	second, err := svc.NextTrackingNumber(context.Background())
	if err != nil {
		t.Fatalf("NextTrackingNumber: %v", err)
	}
	if second != "CL-2026-000002" {
		t.Errorf("tracking = %q, want CL-2026-000002", second)
	}
}

func TestNextReceiptNumberFormat(t *testing.T) {
	repo := newCounterRepoStub()
	svc := newTestCounterService(t, repo)

	number, err := svc.NextReceiptNumber(context.Background())
	if err != nil {
		t.Fatalf("NextReceiptNumber: %v", err)
	}
	if number != "RCT-202608-000001" {
		t.Errorf("receipt = %q, want RCT-202608-000001", number)
	}
}

func TestCounterConfigurationAppliedOnce(t *testing.T) {
	repo := newCounterRepoStub()
	svc := newTestCounterService(t, repo)

	for i := 0; i < 3; i++ {
		if _, err := svc.NextReceiptNumber(context.Background()); err != nil {
			t.Fatalf("NextReceiptNumber: %v", err)
		}
	}

	if got := repo.configs["receipts:202608"]; got != 1 {
		t.Errorf("configure calls = %d, want 1", got)
	}
}

func TestCounterExhaustionSurfacesSentinel(t *testing.T) {
	repo := newCounterRepoStub()
	repo.nextErr = repositories.NewCounterError(repositories.CounterErrorExhausted, "counter at max value", nil)
	svc := newTestCounterService(t, repo)

	if _, err := svc.NextTrackingNumber(context.Background()); !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("err = %v, want ErrCounterExhausted", err)
	}
}

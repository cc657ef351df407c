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

const sagaLogCollection = "saga_log"

type sagaStepDocument struct {
	CorrelationID string    `firestore:"correlationId"`
	Seq           int       `firestore:"seq"`
	Step          string    `firestore:"step"`
	RecordRef     string    `firestore:"recordRef"`
	Compensation  string    `firestore:"compensation"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

// SagaLogRepository appends immutable workflow step records backed by Firestore.
type SagaLogRepository struct {
	base *pfirestore.BaseRepository[sagaStepDocument]
}

// NewSagaLogRepository constructs a Firestore-backed saga log repository.
func NewSagaLogRepository(provider *pfirestore.Provider) (*SagaLogRepository, error) {
	if provider == nil {
		return nil, errors.New("saga log repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[sagaStepDocument](provider, sagaLogCollection, nil, nil)
	return &SagaLogRepository{base: base}, nil
}

// Append records one completed workflow step. Steps are never updated or removed.
func (r *SagaLogRepository) Append(ctx context.Context, step domain.SagaStep) error {
	if r == nil || r.base == nil {
		return errors.New("saga log repository not initialised")
	}
	stepID := strings.TrimSpace(step.ID)
	if stepID == "" {
		return errors.New("saga log repository: step id is required")
	}
	if strings.TrimSpace(step.CorrelationID) == "" {
		return errors.New("saga log repository: correlation id is required")
	}
	if _, err := r.base.Create(ctx, stepID, encodeSagaStepDocument(step)); err != nil {
		return err
	}
	return nil
}

// ListByCorrelation returns every step recorded for a workflow in sequence order.
func (r *SagaLogRepository) ListByCorrelation(ctx context.Context, correlationID string) ([]domain.SagaStep, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("saga log repository not initialised")
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return nil, errors.New("saga log repository: correlation id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("correlationId", "==", correlationID).OrderBy("seq", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	steps := make([]domain.SagaStep, 0, len(docs))
	for _, doc := range docs {
		steps = append(steps, decodeSagaStepDocument(doc.ID, doc.Data))
	}
	return steps, nil
}

func encodeSagaStepDocument(step domain.SagaStep) sagaStepDocument {
	return sagaStepDocument{
		CorrelationID: step.CorrelationID,
		Seq:           step.Seq,
		Step:          step.Step,
		RecordRef:     step.RecordRef,
		Compensation:  step.Compensation,
		CreatedAt:     step.CreatedAt.UTC(),
	}
}

func decodeSagaStepDocument(id string, doc sagaStepDocument) domain.SagaStep {
	return domain.SagaStep{
		ID:            id,
		CorrelationID: doc.CorrelationID,
		Seq:           doc.Seq,
		Step:          doc.Step,
		RecordRef:     doc.RecordRef,
		Compensation:  doc.Compensation,
		CreatedAt:     doc.CreatedAt,
	}
}

package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/cargoline/api/internal/domain"
	pfirestore "github.com/cargoline/api/internal/platform/firestore"
	"github.com/cargoline/api/internal/repositories"
)

const quotesCollection = "custom_quotes"

type quoteDocument struct {
	UserID       *string         `firestore:"userId,omitempty"`
	Description  string          `firestore:"description"`
	ImageURLs    []string        `firestore:"imageUrls"`
	Category     string          `firestore:"category"`
	Status       string          `firestore:"status"`
	QuotedAmount *int64          `firestore:"quotedAmount,omitempty"`
	Contact      contactDocument `firestore:"contact"`
	QuotedAt     *time.Time      `firestore:"quotedAt,omitempty"`
	CreatedAt    time.Time       `firestore:"createdAt"`
	UpdatedAt    time.Time       `firestore:"updatedAt"`
}

// CustomQuoteRepository persists manually priced quote requests backed by Firestore.
type CustomQuoteRepository struct {
	base *pfirestore.BaseRepository[quoteDocument]
}

// NewCustomQuoteRepository constructs a Firestore-backed quote repository.
func NewCustomQuoteRepository(provider *pfirestore.Provider) (*CustomQuoteRepository, error) {
	if provider == nil {
		return nil, errors.New("quote repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[quoteDocument](provider, quotesCollection, nil, nil)
	return &CustomQuoteRepository{base: base}, nil
}

// Insert stores a new quote request.
func (r *CustomQuoteRepository) Insert(ctx context.Context, quote domain.CustomQuote) error {
	if r == nil || r.base == nil {
		return errors.New("quote repository not initialised")
	}
	quoteID := strings.TrimSpace(quote.ID)
	if quoteID == "" {
		return errors.New("quote repository: quote id is required")
	}
	if _, err := r.base.Create(ctx, quoteID, encodeQuoteDocument(quote)); err != nil {
		return err
	}
	return nil
}

// Update replaces the persisted quote state with the provided snapshot.
func (r *CustomQuoteRepository) Update(ctx context.Context, quote domain.CustomQuote) error {
	if r == nil || r.base == nil {
		return errors.New("quote repository not initialised")
	}
	quoteID := strings.TrimSpace(quote.ID)
	if quoteID == "" {
		return errors.New("quote repository: quote id is required")
	}
	if _, err := r.base.Set(ctx, quoteID, encodeQuoteDocument(quote)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single quote.
func (r *CustomQuoteRepository) FindByID(ctx context.Context, quoteID string) (domain.CustomQuote, error) {
	if r == nil || r.base == nil {
		return domain.CustomQuote{}, errors.New("quote repository not initialised")
	}
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.CustomQuote{}, errors.New("quote repository: quote id is required")
	}
	doc, err := r.base.Get(ctx, quoteID)
	if err != nil {
		return domain.CustomQuote{}, err
	}
	return decodeQuoteDocument(doc.ID, doc.Data), nil
}

// List returns quotes matching the filter ordered by most recent creation.
func (r *CustomQuoteRepository) List(ctx context.Context, filter repositories.QuoteListFilter) (domain.CursorPage[domain.CustomQuote], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.CustomQuote]{}, errors.New("quote repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCreatedAtToken(token)
		if err != nil {
			return domain.CursorPage[domain.CustomQuote]{}, fmt.Errorf("quote repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := normaliseStatuses(filter.Status)
	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
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
		return domain.CursorPage[domain.CustomQuote]{}, err
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

	items := make([]domain.CustomQuote, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeQuoteDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.CustomQuote]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func encodeQuoteDocument(quote domain.CustomQuote) quoteDocument {
	return quoteDocument{
		UserID:       quote.UserID,
		Description:  quote.Description,
		ImageURLs:    quote.ImageURLs,
		Category:     quote.Category,
		Status:       string(quote.Status),
		QuotedAmount: quote.QuotedAmount,
		Contact:      encodeContact(quote.Contact),
		QuotedAt:     quote.QuotedAt,
		CreatedAt:    quote.CreatedAt.UTC(),
		UpdatedAt:    quote.UpdatedAt.UTC(),
	}
}

func decodeQuoteDocument(id string, doc quoteDocument) domain.CustomQuote {
	return domain.CustomQuote{
		ID:           id,
		UserID:       doc.UserID,
		Description:  doc.Description,
		ImageURLs:    doc.ImageURLs,
		Category:     doc.Category,
		Status:       domain.QuoteStatus(doc.Status),
		QuotedAmount: doc.QuotedAmount,
		Contact:      decodeContact(doc.Contact),
		QuotedAt:     doc.QuotedAt,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func normaliseStatuses(statuses []string) []string {
	out := make([]string, 0, len(statuses))
	seen := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		status = strings.ToLower(strings.TrimSpace(status))
		if status == "" {
			continue
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		out = append(out, status)
	}
	return out
}

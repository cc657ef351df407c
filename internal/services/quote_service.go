package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/payments"
	"github.com/cargoline/api/internal/repositories"
)

var (
	// ErrQuoteInvalidInput signals malformed quote input.
	ErrQuoteInvalidInput = errors.New("quote: invalid input")
	// ErrQuoteNotFound is returned when the referenced quote does not exist.
	ErrQuoteNotFound = errors.New("quote: not found")
	// ErrQuoteNotQuoted is returned when acceptance is attempted before an
	// admin has priced the quote.
	ErrQuoteNotQuoted = errors.New("quote: no quoted amount")
	// ErrQuoteAlreadyAccepted is returned for repeat acceptance attempts.
	ErrQuoteAlreadyAccepted = errors.New("quote: already accepted")
)

const serviceCodeCustomQuote = "custom_quote"

// QuoteServiceDeps bundles the collaborators for NewQuoteService.
type QuoteServiceDeps struct {
	Quotes    repositories.CustomQuoteRepository
	Shipments repositories.ShipmentRepository
	Payments  repositories.PaymentRepository
	Receipts  repositories.ReceiptRepository
	SagaLog   repositories.SagaLogRepository
	Counters  CounterService
	PSP       paymentIntentCreator
	Images    QuoteImageStore
	Sanitizer *bluemonday.Policy
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
}

type quoteService struct {
	quotes    repositories.CustomQuoteRepository
	shipments repositories.ShipmentRepository
	payments  repositories.PaymentRepository
	receipts  repositories.ReceiptRepository
	sagaLog   repositories.SagaLogRepository
	counters  CounterService
	psp       paymentIntentCreator
	images    QuoteImageStore
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Quotes == nil {
		return nil, errors.New("quote service: quote repository is required")
	}
	if deps.Shipments == nil {
		return nil, errors.New("quote service: shipment repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("quote service: payment repository is required")
	}
	if deps.Receipts == nil {
		return nil, errors.New("quote service: receipt repository is required")
	}
	if deps.SagaLog == nil {
		return nil, errors.New("quote service: saga log repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("quote service: counter service is required")
	}
	if deps.PSP == nil {
		return nil, errors.New("quote service: payment provider is required")
	}

	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = bluemonday.StrictPolicy()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &quoteService{
		quotes:    deps.Quotes,
		shipments: deps.Shipments,
		payments:  deps.Payments,
		receipts:  deps.Receipts,
		sagaLog:   deps.SagaLog,
		counters:  deps.Counters,
		psp:       deps.PSP,
		images:    deps.Images,
		sanitizer: sanitizer,
		now: func() time.Time {
			return now().UTC()
		},
		logger: logger,
	}, nil
}

// SubmitQuote opens the quote flow for an unrated item. The description is
// sanitised before storage and images are uploaded to the public bucket.
func (s *quoteService) SubmitQuote(ctx context.Context, cmd SubmitQuoteCommand) (CustomQuote, error) {
	description := strings.TrimSpace(s.sanitizer.Sanitize(cmd.Description))
	if description == "" {
		return CustomQuote{}, fmt.Errorf("%w: description is required", ErrQuoteInvalidInput)
	}
	if strings.TrimSpace(cmd.Contact.Name) == "" || strings.TrimSpace(cmd.Contact.Email) == "" {
		return CustomQuote{}, fmt.Errorf("%w: contact name and email are required", ErrQuoteInvalidInput)
	}

	now := s.now()
	quoteID := ulid.Make().String()

	var imageURLs []string
	for i, image := range cmd.Images {
		if image.Content == nil {
			return CustomQuote{}, fmt.Errorf("%w: image %d has no content", ErrQuoteInvalidInput, i)
		}
		if s.images == nil {
			return CustomQuote{}, fmt.Errorf("%w: image uploads are not enabled", ErrQuoteInvalidInput)
		}
		object := quoteImageObject(quoteID, i, image.Filename)
		url, err := s.images.Upload(ctx, object, image.ContentType, image.Content)
		if err != nil {
			return CustomQuote{}, fmt.Errorf("quote service: upload image %d: %w", i, err)
		}
		imageURLs = append(imageURLs, url)
	}

	quote := CustomQuote{
		ID:          quoteID,
		UserID:      cmd.UserID,
		Description: description,
		ImageURLs:   imageURLs,
		Category:    strings.TrimSpace(cmd.Category),
		Status:      domain.QuoteStatusPending,
		Contact:     cmd.Contact,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.quotes.Insert(ctx, quote); err != nil {
		return CustomQuote{}, fmt.Errorf("quote service: insert quote: %w", err)
	}

	s.logger(ctx, "quotes.submitted", map[string]any{
		"quoteId": quote.ID,
		"images":  len(imageURLs),
	})
	return quote, nil
}

// PriceQuote is the admin action that sets the quoted amount and moves the
// quote to the quoted state.
func (s *quoteService) PriceQuote(ctx context.Context, cmd PriceQuoteCommand) (CustomQuote, error) {
	quoteID := strings.TrimSpace(cmd.QuoteID)
	if quoteID == "" {
		return CustomQuote{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}
	if cmd.QuotedAmount <= 0 {
		return CustomQuote{}, fmt.Errorf("%w: quoted amount must be positive", ErrQuoteInvalidInput)
	}
	if strings.TrimSpace(cmd.ActorID) == "" {
		return CustomQuote{}, fmt.Errorf("%w: actor id is required", ErrQuoteInvalidInput)
	}

	quote, err := s.loadQuote(ctx, quoteID)
	if err != nil {
		return CustomQuote{}, err
	}
	if quote.Status == domain.QuoteStatusAccepted {
		return CustomQuote{}, fmt.Errorf("%w: %s", ErrQuoteAlreadyAccepted, quoteID)
	}

	now := s.now()
	amount := cmd.QuotedAmount
	quote.QuotedAmount = &amount
	quote.Status = domain.QuoteStatusQuoted
	quote.QuotedAt = &now
	quote.UpdatedAt = now

	if err := s.quotes.Update(ctx, quote); err != nil {
		return CustomQuote{}, fmt.Errorf("quote service: update quote: %w", err)
	}

	s.logger(ctx, "quotes.priced", map[string]any{
		"quoteId":      quote.ID,
		"quotedAmount": amount,
		"actorId":      cmd.ActorID,
	})
	return quote, nil
}

// AcceptQuote records the customer's acceptance of a quoted amount. Acceptance
// settles at the quoted amount with no further adjustment and creates the
// shipment, payment, and receipt records in one workflow.
func (s *quoteService) AcceptQuote(ctx context.Context, cmd AcceptQuoteCommand) (QuoteAcceptanceResult, error) {
	quoteID := strings.TrimSpace(cmd.QuoteID)
	if quoteID == "" {
		return QuoteAcceptanceResult{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}

	quote, err := s.loadQuote(ctx, quoteID)
	if err != nil {
		return QuoteAcceptanceResult{}, err
	}
	if quote.Status == domain.QuoteStatusAccepted {
		return QuoteAcceptanceResult{}, fmt.Errorf("%w: %s", ErrQuoteAlreadyAccepted, quoteID)
	}
	if quote.QuotedAmount == nil || quote.Status != domain.QuoteStatusQuoted {
		return QuoteAcceptanceResult{}, fmt.Errorf("%w: %s", ErrQuoteNotQuoted, quoteID)
	}
	if err := validateQuoteSettlementMethod(cmd.Method, cmd.SubMethod); err != nil {
		return QuoteAcceptanceResult{}, err
	}

	if key := strings.TrimSpace(cmd.IdempotencyKey); key != "" {
		if existing, err := s.payments.FindByIdempotencyKey(ctx, key); err == nil {
			return QuoteAcceptanceResult{}, fmt.Errorf("%w: payment %s already recorded for key", ErrQuoteAlreadyAccepted, existing.ID)
		} else if !repoErrNotFound(err) {
			return QuoteAcceptanceResult{}, fmt.Errorf("quote service: check idempotency key: %w", err)
		}
	}

	amount := *quote.QuotedAmount
	trackingNumber, err := s.counters.NextTrackingNumber(ctx)
	if err != nil {
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: allocate tracking number: %w", err)
	}
	receiptNumber, err := s.counters.NextReceiptNumber(ctx)
	if err != nil {
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: allocate receipt number: %w", err)
	}

	now := s.now()
	correlationID := ulid.Make().String()
	saga := s.sagaRecorder(ctx, correlationID)

	shipment := Shipment{
		ID:             ulid.Make().String(),
		TrackingNumber: trackingNumber,
		Status:         domain.ShipmentStatusPendingCollection,
		UserID:         quote.UserID,
		Sender:         quote.Contact,
		Recipient:      cmd.Recipient,
		Details: domain.ShipmentDetails{
			Classification:  domain.ClassificationUnclassified,
			Services:        []string{serviceCodeShipping, serviceCodeCustomQuote},
			ItemCategory:    quote.Category,
			ItemDescription: quote.Description,
			QuotedTotal:     amount,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.shipments.Insert(ctx, shipment); err != nil {
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: insert shipment: %w", err)
	}
	saga("shipment.recorded", shipment.ID, fmt.Sprintf("delete shipment %s", shipment.ID))

	var transactionID string
	if cmd.Method == domain.MethodCard {
		intent, err := s.psp.CreateIntent(ctx, payments.PaymentContext{}, payments.IntentRequest{
			Amount:         amount,
			Currency:       domain.CurrencyGBP,
			ShipmentID:     shipment.ID,
			ReceiptNumber:  receiptNumber,
			CustomerEmail:  quote.Contact.Email,
			Description:    "Shipment " + trackingNumber,
			IdempotencyKey: cmd.IdempotencyKey,
		})
		if err != nil {
			return QuoteAcceptanceResult{}, fmt.Errorf("quote service: create payment intent: %w", err)
		}
		transactionID = intent.ID
	}

	payment := Payment{
		ID:             ulid.Make().String(),
		ShipmentID:     shipment.ID,
		Amount:         amount,
		Currency:       domain.CurrencyGBP,
		Method:         cmd.Method,
		Status:         domain.PaymentStatusPending,
		TransactionID:  transactionID,
		IdempotencyKey: strings.TrimSpace(cmd.IdempotencyKey),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		if repoErrConflict(err) {
			return QuoteAcceptanceResult{}, fmt.Errorf("%w: payment %s already recorded", ErrQuoteAlreadyAccepted, payment.ID)
		}
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: insert payment: %w", err)
	}
	saga("payment.recorded", payment.ID, fmt.Sprintf("void payment %s", payment.ID))

	receipt := Receipt{
		ID:            ulid.Make().String(),
		ShipmentID:    shipment.ID,
		PaymentID:     &payment.ID,
		ReceiptNumber: receiptNumber,
		Amount:        amount,
		Currency:      domain.CurrencyGBP,
		Method:        cmd.Method,
		SubMethod:     cmd.SubMethod,
		Status:        domain.ReceiptStatusPending,
		Sender:        quote.Contact,
		Recipient:     cmd.Recipient,
		Details:       shipment.Details,
		CreatedAt:     now,
	}
	if err := s.receipts.Insert(ctx, receipt); err != nil {
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: insert receipt: %w", err)
	}
	saga("receipt.recorded", receipt.ID, fmt.Sprintf("delete receipt %s", receipt.ID))

	quote.Status = domain.QuoteStatusAccepted
	quote.UpdatedAt = now
	if err := s.quotes.Update(ctx, quote); err != nil {
		return QuoteAcceptanceResult{}, fmt.Errorf("quote service: update quote: %w", err)
	}
	saga("quote.accepted", quote.ID, fmt.Sprintf("revert quote %s to %s", quote.ID, domain.QuoteStatusQuoted))

	s.logger(ctx, "quotes.accepted", map[string]any{
		"quoteId":       quote.ID,
		"shipmentId":    shipment.ID,
		"method":        string(cmd.Method),
		"amount":        amount,
		"correlationId": correlationID,
	})

	return QuoteAcceptanceResult{
		Quote:         quote,
		Shipment:      shipment,
		Payment:       payment,
		Receipt:       receipt,
		CorrelationID: correlationID,
	}, nil
}

// GetQuote fetches a quote by id.
func (s *quoteService) GetQuote(ctx context.Context, quoteID string) (CustomQuote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return CustomQuote{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}
	return s.loadQuote(ctx, quoteID)
}

// ListQuotes pages through quotes matching the filter, newest first.
func (s *quoteService) ListQuotes(ctx context.Context, filter QuoteListFilter) (domain.CursorPage[CustomQuote], error) {
	page, err := s.quotes.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[CustomQuote]{}, fmt.Errorf("quote service: list quotes: %w", err)
	}
	return page, nil
}

func (s *quoteService) loadQuote(ctx context.Context, quoteID string) (CustomQuote, error) {
	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		if repoErrNotFound(err) {
			return CustomQuote{}, fmt.Errorf("%w: %s", ErrQuoteNotFound, quoteID)
		}
		return CustomQuote{}, fmt.Errorf("quote service: load quote: %w", err)
	}
	return quote, nil
}

func (s *quoteService) sagaRecorder(ctx context.Context, correlationID string) func(step, recordRef, compensation string) {
	seq := 0
	return func(step, recordRef, compensation string) {
		seq++
		entry := SagaStep{
			ID:            ulid.Make().String(),
			CorrelationID: correlationID,
			Seq:           seq,
			Step:          step,
			RecordRef:     recordRef,
			Compensation:  compensation,
			CreatedAt:     s.now(),
		}
		if err := s.sagaLog.Append(ctx, entry); err != nil {
			s.logger(ctx, "quotes.saga_append_failed", map[string]any{
				"correlationId": correlationID,
				"step":          step,
				"error":         err.Error(),
			})
		}
	}
}

// validateQuoteSettlementMethod restricts quote acceptance to card, 30-day
// terms by bank transfer, and cash on collection. Pay on arrival is not
// offered for custom-quoted items.
func validateQuoteSettlementMethod(method SettlementMethod, subMethod *TermsSubMethod) error {
	switch method {
	case domain.MethodCard:
		return nil
	case domain.MethodCashOnCollection:
		return nil
	case domain.MethodStandard30Day:
		if subMethod == nil || *subMethod != domain.SubMethodBankTransfer {
			return fmt.Errorf("%w: 30-day terms on quotes require bank transfer", ErrQuoteInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: settlement method %q is not available for quotes", ErrQuoteInvalidInput, method)
	}
}

// quoteImageObject builds a bucket object name that is safe regardless of the
// uploaded filename.
func quoteImageObject(quoteID string, index int, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("quotes/%s/%d-%s", quoteID, index, base)
}

package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/payments"
	"github.com/cargoline/api/internal/repositories"
)

type stubRepoError struct {
	notFound bool
	conflict bool
}

func (e *stubRepoError) Error() string {
	switch {
	case e.notFound:
		return "stub: not found"
	case e.conflict:
		return "stub: conflict"
	default:
		return "stub: repository error"
	}
}

func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return false }

var (
	errStubNotFound = &stubRepoError{notFound: true}
	errStubConflict = &stubRepoError{conflict: true}
)

type shipmentRepoStub struct {
	byID      map[string]domain.Shipment
	inserted  []domain.Shipment
	insertErr error
	statusLog []struct {
		ShipmentID string
		Status     domain.ShipmentStatus
	}
}

func newShipmentRepoStub() *shipmentRepoStub {
	return &shipmentRepoStub{byID: make(map[string]domain.Shipment)}
}

func (s *shipmentRepoStub) Insert(_ context.Context, shipment domain.Shipment) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, shipment)
	s.byID[shipment.ID] = shipment
	return nil
}

func (s *shipmentRepoStub) Update(_ context.Context, shipment domain.Shipment) error {
	s.byID[shipment.ID] = shipment
	return nil
}

func (s *shipmentRepoStub) UpdateStatus(_ context.Context, shipmentID string, status domain.ShipmentStatus, updatedAt time.Time) error {
	shipment, ok := s.byID[shipmentID]
	if !ok {
		return errStubNotFound
	}
	shipment.Status = status
	shipment.UpdatedAt = updatedAt
	s.byID[shipmentID] = shipment
	s.statusLog = append(s.statusLog, struct {
		ShipmentID string
		Status     domain.ShipmentStatus
	}{shipmentID, status})
	return nil
}

func (s *shipmentRepoStub) FindByID(_ context.Context, shipmentID string) (domain.Shipment, error) {
	shipment, ok := s.byID[shipmentID]
	if !ok {
		return domain.Shipment{}, errStubNotFound
	}
	return shipment, nil
}

func (s *shipmentRepoStub) FindByTrackingNumber(_ context.Context, trackingNumber string) (domain.Shipment, error) {
	for _, shipment := range s.byID {
		if shipment.TrackingNumber == trackingNumber {
			return shipment, nil
		}
	}
	return domain.Shipment{}, errStubNotFound
}

func (s *shipmentRepoStub) ListByUser(_ context.Context, userID string, _ domain.Pagination) (domain.CursorPage[domain.Shipment], error) {
	var items []domain.Shipment
	for _, shipment := range s.byID {
		if shipment.UserID != nil && *shipment.UserID == userID {
			items = append(items, shipment)
		}
	}
	return domain.CursorPage[domain.Shipment]{Items: items}, nil
}

type paymentRepoStub struct {
	byID      map[string]domain.Payment
	inserted  []domain.Payment
	insertErr error
}

func newPaymentRepoStub() *paymentRepoStub {
	return &paymentRepoStub{byID: make(map[string]domain.Payment)}
}

func (s *paymentRepoStub) Insert(_ context.Context, payment domain.Payment) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, exists := s.byID[payment.ID]; exists {
		return errStubConflict
	}
	s.byID[payment.ID] = payment
	s.inserted = append(s.inserted, payment)
	return nil
}

func (s *paymentRepoStub) UpdateStatus(_ context.Context, paymentID string, status domain.PaymentStatus, transactionID string, updatedAt time.Time) error {
	payment, ok := s.byID[paymentID]
	if !ok {
		return errStubNotFound
	}
	payment.Status = status
	if transactionID != "" {
		payment.TransactionID = transactionID
	}
	payment.UpdatedAt = updatedAt
	s.byID[paymentID] = payment
	return nil
}

func (s *paymentRepoStub) FindByID(_ context.Context, paymentID string) (domain.Payment, error) {
	payment, ok := s.byID[paymentID]
	if !ok {
		return domain.Payment{}, errStubNotFound
	}
	return payment, nil
}

func (s *paymentRepoStub) FindByIdempotencyKey(_ context.Context, key string) (domain.Payment, error) {
	for _, payment := range s.byID {
		if payment.IdempotencyKey == key {
			return payment, nil
		}
	}
	return domain.Payment{}, errStubNotFound
}

func (s *paymentRepoStub) ListByShipment(_ context.Context, shipmentID string) ([]domain.Payment, error) {
	var items []domain.Payment
	for _, payment := range s.byID {
		if payment.ShipmentID == shipmentID {
			items = append(items, payment)
		}
	}
	return items, nil
}

type receiptRepoStub struct {
	inserted  []domain.Receipt
	insertErr error
}

func (s *receiptRepoStub) Insert(_ context.Context, receipt domain.Receipt) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, receipt)
	return nil
}

func (s *receiptRepoStub) FindByID(_ context.Context, receiptID string) (domain.Receipt, error) {
	for _, receipt := range s.inserted {
		if receipt.ID == receiptID {
			return receipt, nil
		}
	}
	return domain.Receipt{}, errStubNotFound
}

func (s *receiptRepoStub) FindByShipment(_ context.Context, shipmentID string) (domain.Receipt, error) {
	for _, receipt := range s.inserted {
		if receipt.ShipmentID == shipmentID {
			return receipt, nil
		}
	}
	return domain.Receipt{}, errStubNotFound
}

type sagaLogStub struct {
	steps     []domain.SagaStep
	appendErr error
}

func (s *sagaLogStub) Append(_ context.Context, step domain.SagaStep) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.steps = append(s.steps, step)
	return nil
}

func (s *sagaLogStub) ListByCorrelation(_ context.Context, correlationID string) ([]domain.SagaStep, error) {
	var items []domain.SagaStep
	for _, step := range s.steps {
		if step.CorrelationID == correlationID {
			items = append(items, step)
		}
	}
	return items, nil
}

type quoteRepoStub struct {
	byID      map[string]domain.CustomQuote
	insertErr error
	updateErr error
}

func newQuoteRepoStub() *quoteRepoStub {
	return &quoteRepoStub{byID: make(map[string]domain.CustomQuote)}
}

func (s *quoteRepoStub) Insert(_ context.Context, quote domain.CustomQuote) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.byID[quote.ID] = quote
	return nil
}

func (s *quoteRepoStub) Update(_ context.Context, quote domain.CustomQuote) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.byID[quote.ID]; !ok {
		return errStubNotFound
	}
	s.byID[quote.ID] = quote
	return nil
}

func (s *quoteRepoStub) FindByID(_ context.Context, quoteID string) (domain.CustomQuote, error) {
	quote, ok := s.byID[quoteID]
	if !ok {
		return domain.CustomQuote{}, errStubNotFound
	}
	return quote, nil
}

func (s *quoteRepoStub) List(_ context.Context, filter repositories.QuoteListFilter) (domain.CursorPage[domain.CustomQuote], error) {
	var items []domain.CustomQuote
	for _, quote := range s.byID {
		if filter.UserID != "" && (quote.UserID == nil || *quote.UserID != filter.UserID) {
			continue
		}
		items = append(items, quote)
	}
	return domain.CursorPage[domain.CustomQuote]{Items: items}, nil
}

type notificationRepoStub struct {
	inserted  []domain.Notification
	insertErr error
	markedIDs []string
	markErr   error
}

func (s *notificationRepoStub) Insert(_ context.Context, notification domain.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, notification)
	return nil
}

func (s *notificationRepoStub) ListByUser(_ context.Context, userID string, _ domain.Pagination) (domain.CursorPage[domain.Notification], error) {
	var items []domain.Notification
	for _, notification := range s.inserted {
		if notification.UserID == userID {
			items = append(items, notification)
		}
	}
	return domain.CursorPage[domain.Notification]{Items: items}, nil
}

func (s *notificationRepoStub) MarkRead(_ context.Context, notificationID string, _ time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markedIDs = append(s.markedIDs, notificationID)
	return nil
}

type rateCardRepoStub struct {
	cards   map[string]domain.RateCard
	getErr  error
	saveErr error
	saved   []domain.RateCard
}

func newRateCardRepoStub() *rateCardRepoStub {
	return &rateCardRepoStub{cards: make(map[string]domain.RateCard)}
}

func (s *rateCardRepoStub) Get(_ context.Context, rateCardID string) (domain.RateCard, error) {
	if s.getErr != nil {
		return domain.RateCard{}, s.getErr
	}
	card, ok := s.cards[rateCardID]
	if !ok {
		return domain.RateCard{}, errStubNotFound
	}
	return card, nil
}

func (s *rateCardRepoStub) Save(_ context.Context, card domain.RateCard) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cards[card.ID] = card
	s.saved = append(s.saved, card)
	return nil
}

func (s *rateCardRepoStub) Delete(_ context.Context, rateCardID string) error {
	if _, ok := s.cards[rateCardID]; !ok {
		return errStubNotFound
	}
	delete(s.cards, rateCardID)
	return nil
}

type counterServiceStub struct {
	tracking    string
	trackingErr error
	receipt     string
	receiptErr  error
}

func (s *counterServiceStub) NextTrackingNumber(context.Context) (string, error) {
	return s.tracking, s.trackingErr
}

func (s *counterServiceStub) NextReceiptNumber(context.Context) (string, error) {
	return s.receipt, s.receiptErr
}

type pricingServiceStub struct {
	breakdown domain.PricingBreakdown
	err       error
}

func (s *pricingServiceStub) PriceRequest(context.Context, domain.ShipmentRequest) (domain.PricingBreakdown, error) {
	return s.breakdown, s.err
}

func (s *pricingServiceStub) GetRateCard(context.Context) (domain.RateCard, error) {
	return domain.RateCard{}, errors.New("not implemented")
}

func (s *pricingServiceStub) UpdateRateCard(context.Context, UpdateRateCardCommand) (domain.RateCard, error) {
	return domain.RateCard{}, errors.New("not implemented")
}

func (s *pricingServiceStub) DeleteRateCard(context.Context, string) error {
	return errors.New("not implemented")
}

type intentCreatorStub struct {
	intent   payments.Intent
	err      error
	requests []payments.IntentRequest
}

func (s *intentCreatorStub) CreateIntent(_ context.Context, _ payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return payments.Intent{}, s.err
	}
	intent := s.intent
	if intent.ID == "" {
		intent.ID = "pi_test"
	}
	intent.Amount = req.Amount
	intent.Currency = req.Currency
	return intent, nil
}

type eventPublisherStub struct {
	messages []BookingEventMessage
	err      error
}

func (s *eventPublisherStub) PublishBookingEvent(_ context.Context, message BookingEventMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.messages = append(s.messages, message)
	return "msg-1", nil
}

type imageStoreStub struct {
	objects []string
	err     error
}

func (s *imageStoreStub) Upload(_ context.Context, object, _ string, content io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", err
	}
	s.objects = append(s.objects, object)
	return "https://cdn.example.com/" + object, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

package domain

import (
	"time"
)

// CurrencyGBP is the only currency the booking core prices in.
const CurrencyGBP = "GBP"

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// ItemClassification buckets a shipment item for pricing purposes.
type ItemClassification string

const (
	// ClassificationBulkContainer covers drum shipments priced per container with quantity tiers.
	ClassificationBulkContainer ItemClassification = "bulk_container"
	// ClassificationWeightRated covers items priced by weight against a per-kg rate.
	ClassificationWeightRated ItemClassification = "weight_rated"
	// ClassificationUnclassified covers items with no rate table entry; they route to the custom-quote flow.
	ClassificationUnclassified ItemClassification = "unclassified"
)

// SettlementMethod is the customer's chosen way to pay for a booking.
type SettlementMethod string

const (
	// MethodCard settles immediately through the PSP collaborator.
	MethodCard SettlementMethod = "card"
	// MethodCashOnCollection defers payment to the depot hand-off and discounts bulk bookings.
	MethodCashOnCollection SettlementMethod = "cash_on_collection"
	// MethodPayOnArrival defers payment to destination delivery and carries a premium.
	MethodPayOnArrival SettlementMethod = "pay_on_arrival"
	// MethodStandard30Day defers payment to thirty days after collection with no price adjustment.
	MethodStandard30Day SettlementMethod = "standard_30day"
)

// TermsSubMethod records how a 30-day account customer intends to pay.
// It never affects price; it is snapshotted onto the receipt.
type TermsSubMethod string

const (
	SubMethodCash         TermsSubMethod = "cash"
	SubMethodBankTransfer TermsSubMethod = "bank_transfer"
	SubMethodDirectDebit  TermsSubMethod = "direct_debit"
)

// AdjustmentKind names the single price adjustment a settlement choice applies.
type AdjustmentKind string

const (
	AdjustmentDiscount AdjustmentKind = "discount"
	AdjustmentPremium  AdjustmentKind = "premium"
	AdjustmentNone     AdjustmentKind = "none"
)

// SettlementClassification is the internal bucket that decides whether a
// Payment record is created and which shipment status results.
type SettlementClassification string

const (
	// ClassImmediate creates a pending Payment at settlement time.
	ClassImmediate SettlementClassification = "immediate"
	// ClassDeferredCollection waits for cash at the collection depot.
	ClassDeferredCollection SettlementClassification = "deferred_collection"
	// ClassDeferredArrival waits for payment at destination delivery.
	ClassDeferredArrival SettlementClassification = "deferred_arrival"
	// ClassDeferred30Day waits for account settlement within thirty days of collection.
	ClassDeferred30Day SettlementClassification = "deferred_30day"
)

// ShipmentStatus enumerates lifecycle states for shipments.
type ShipmentStatus string

const (
	// ShipmentStatusAwaitingSettlement is the initial status set when pricing completes,
	// before any settlement method has been chosen.
	ShipmentStatusAwaitingSettlement ShipmentStatus = "awaiting_settlement"
	// ShipmentStatusPendingPayment indicates an immediate (card) settlement awaiting PSP completion.
	ShipmentStatusPendingPayment ShipmentStatus = "pending_payment"
	// ShipmentStatusAwaitingCollection indicates a cash-on-collection booking awaiting depot hand-off.
	ShipmentStatusAwaitingCollection ShipmentStatus = "awaiting_collection"
	// ShipmentStatusAwaitingArrival indicates a pay-on-arrival booking awaiting destination delivery.
	ShipmentStatusAwaitingArrival ShipmentStatus = "awaiting_arrival"
	// ShipmentStatusPaymentDue30Day indicates a 30-day terms booking with a recorded payment deadline.
	ShipmentStatusPaymentDue30Day ShipmentStatus = "payment_due_30d"
	// ShipmentStatusPendingCollection indicates an accepted custom quote awaiting item collection.
	ShipmentStatusPendingCollection ShipmentStatus = "pending_collection"
)

// PaymentStatus enumerates payment record states. Completion beyond pending is
// driven by the external PSP collaborator, not the booking core.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ReceiptStatus enumerates receipt record states.
type ReceiptStatus string

const (
	ReceiptStatusPending ReceiptStatus = "pending"
	ReceiptStatusSettled ReceiptStatus = "settled"
)

// QuoteStatus enumerates custom-quote lifecycle states.
type QuoteStatus string

const (
	// QuoteStatusPending means the quote awaits manual pricing.
	QuoteStatusPending QuoteStatus = "pending"
	// QuoteStatusQuoted means an admin has set the quoted amount.
	QuoteStatusQuoted QuoteStatus = "quoted"
	// QuoteStatusAccepted means the customer accepted the quote and settlement was recorded.
	QuoteStatusAccepted QuoteStatus = "accepted"
)

// ContactDetails is the sender/recipient snapshot captured on shipments and receipts.
// Field formats are validated by the form-capture collaborator before they reach the core.
type ContactDetails struct {
	Name     string
	Email    string
	Phone    string
	Address1 string
	Address2 string
	City     string
	Country  string
}

// ShipmentRequest is the transient, already-validated input to pricing.
// It is consumed once and never persisted as-is.
type ShipmentRequest struct {
	Classification  ItemClassification
	Quantity        int
	WeightGrams     int
	DoorToDoor      bool
	ItemCategory    string
	ItemDescription string
	Sender          ContactDetails
	Recipient       ContactDetails
	UserID          *string
}

// AddonCharge itemises a single add-on fee inside a pricing breakdown.
type AddonCharge struct {
	Code   string
	Label  string
	Amount int64
}

// PricingBreakdown is the immutable result of running the rate table for a request.
// Amounts are pence.
type PricingBreakdown struct {
	Currency              string
	Base                  int64
	AddonCharges          []AddonCharge
	TotalBeforeSettlement int64
}

// SettlementSelection is the resolver's decision for a chosen settlement method.
// Exactly one of discount/premium/none applies; FinalTotal is never negative.
type SettlementSelection struct {
	Method           SettlementMethod
	SubMethod        *TermsSubMethod
	Adjustment       AdjustmentKind
	AdjustmentAmount int64
	FinalTotal       int64
	Classification   SettlementClassification
	PaymentDeadline  *time.Time
}

// ShipmentDetails snapshots the priced services and item description on a shipment.
// QuotedTotal is the server-computed total before settlement adjustment; it is
// the figure displayed totals are checked against at settlement time.
type ShipmentDetails struct {
	Classification  ItemClassification
	Services        []string
	ItemCategory    string
	ItemDescription string
	Quantity        int
	WeightGrams     int
	DoorToDoor      bool
	QuotedTotal     int64
}

// Shipment is the persistent booking record created once pricing completes.
type Shipment struct {
	ID             string
	TrackingNumber string
	Status         ShipmentStatus
	UserID         *string
	Sender         ContactDetails
	Recipient      ContactDetails
	Details        ShipmentDetails
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Payment records an immediate settlement awaiting PSP completion.
// Deferred settlement classifications never create one.
type Payment struct {
	ID             string
	ShipmentID     string
	Amount         int64
	Currency       string
	Method         SettlementMethod
	Status         PaymentStatus
	TransactionID  string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Receipt is the durable order record written for every completed settlement
// choice, immediate or deferred, even before any Payment exists.
type Receipt struct {
	ID            string
	ShipmentID    string
	PaymentID     *string
	ReceiptNumber string
	Amount        int64
	Currency      string
	Method        SettlementMethod
	SubMethod     *TermsSubMethod
	Status        ReceiptStatus
	Sender        ContactDetails
	Recipient     ContactDetails
	Details       ShipmentDetails
	CreatedAt     time.Time
}

// CustomQuote tracks a manually priced shipment for an unrated item.
// QuotedAmount stays nil until the admin collaborator prices it.
type CustomQuote struct {
	ID           string
	UserID       *string
	Description  string
	ImageURLs    []string
	Category     string
	Status       QuoteStatus
	QuotedAmount *int64
	Contact      ContactDetails
	QuotedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Notification is the confirmation side effect addressed to the booking owner,
// or to the admin placeholder id when the actor was unauthenticated.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	RelatedID string
	IsRead    bool
	CreatedAt time.Time
}

// SagaStep records one completed persistence step of a settlement workflow,
// tagged with the correlation id and the compensating action an operator would
// run to undo it. There is no automatic rollback across the independent writes.
type SagaStep struct {
	ID            string
	CorrelationID string
	Seq           int
	Step          string
	RecordRef     string
	Compensation  string
	CreatedAt     time.Time
}

// RateTier holds the per-unit drum price applied from MinQuantity upwards.
type RateTier struct {
	MinQuantity int
	UnitPrice   int64
}

// RateCard is the admin-maintained pricing policy document the rate table reads.
// All amounts are pence.
type RateCard struct {
	ID            string
	Currency      string
	DrumTiers     []RateTier
	PerKgRate     int64
	MinimumCharge int64
	DoorToDoorFee int64
	SealFee       int64
	UpdatedBy     string
	UpdatedAt     time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// HealthCheck describes the outcome of an individual dependency probe.
type HealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates dependency status for health endpoints.
type HealthReport struct {
	Status      string
	Checks      map[string]HealthCheck
	Version     string
	Environment string
	GeneratedAt time.Time
}

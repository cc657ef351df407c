package services

import (
	"errors"
	"fmt"

	domain "github.com/cargoline/api/internal/domain"
)

var (
	// ErrSettlementInvalidInput signals a settlement choice the resolver cannot honour,
	// such as cash-on-collection for a non-bulk booking or a missing terms sub-method.
	ErrSettlementInvalidInput = errors.New("settlement: invalid input")
)

// SettlementMismatchError reports a displayed total that disagrees with the
// server-computed total beyond the configured tolerance. The booking must be
// re-priced before it can settle.
type SettlementMismatchError struct {
	Expected  int64
	Provided  int64
	Tolerance int64
}

// Error implements the error interface.
func (e *SettlementMismatchError) Error() string {
	return fmt.Sprintf("settlement: displayed total %d disagrees with computed total %d (tolerance %d)", e.Provided, e.Expected, e.Tolerance)
}

// SettlementResolverConfig carries the tunable settlement policy values.
type SettlementResolverConfig struct {
	CollectionDiscountPerUnit int64
	ArrivalPremiumPercent     int
	TermsDays                 int
	MismatchTolerance         int64
}

type settlementResolver struct {
	cfg SettlementResolverConfig
}

func NewSettlementResolver(cfg SettlementResolverConfig) (SettlementResolver, error) {
	if cfg.CollectionDiscountPerUnit < 0 {
		return nil, errors.New("settlement resolver: collection discount must not be negative")
	}
	if cfg.ArrivalPremiumPercent < 0 {
		return nil, errors.New("settlement resolver: arrival premium must not be negative")
	}
	if cfg.TermsDays <= 0 {
		return nil, errors.New("settlement resolver: terms days must be positive")
	}
	if cfg.MismatchTolerance < 0 {
		return nil, errors.New("settlement resolver: mismatch tolerance must not be negative")
	}
	return &settlementResolver{cfg: cfg}, nil
}

// Resolve maps a settlement choice onto exactly one price adjustment, the
// final total, and the settlement classification. The computation is pure; it
// reads nothing beyond the command and the configured policy.
func (r *settlementResolver) Resolve(cmd ResolveSettlementCommand) (SettlementSelection, error) {
	if cmd.Total < 0 {
		return SettlementSelection{}, fmt.Errorf("%w: total must not be negative", ErrSettlementInvalidInput)
	}
	if cmd.DisplayedTotal != nil {
		diff := cmd.Total - *cmd.DisplayedTotal
		if diff < 0 {
			diff = -diff
		}
		if diff > r.cfg.MismatchTolerance {
			return SettlementSelection{}, &SettlementMismatchError{
				Expected:  cmd.Total,
				Provided:  *cmd.DisplayedTotal,
				Tolerance: r.cfg.MismatchTolerance,
			}
		}
	}

	switch cmd.Method {
	case domain.MethodCard:
		return SettlementSelection{
			Method:         cmd.Method,
			Adjustment:     domain.AdjustmentNone,
			FinalTotal:     cmd.Total,
			Classification: domain.ClassImmediate,
		}, nil

	case domain.MethodCashOnCollection:
		if cmd.Classification != domain.ClassificationBulkContainer {
			return SettlementSelection{}, fmt.Errorf("%w: cash on collection is limited to bulk container bookings", ErrSettlementInvalidInput)
		}
		if cmd.Quantity <= 0 {
			return SettlementSelection{}, fmt.Errorf("%w: quantity must be positive for cash on collection", ErrSettlementInvalidInput)
		}
		discount := r.cfg.CollectionDiscountPerUnit * int64(cmd.Quantity)
		if discount > cmd.Total {
			discount = cmd.Total
		}
		return SettlementSelection{
			Method:           cmd.Method,
			Adjustment:       domain.AdjustmentDiscount,
			AdjustmentAmount: discount,
			FinalTotal:       cmd.Total - discount,
			Classification:   domain.ClassDeferredCollection,
		}, nil

	case domain.MethodPayOnArrival:
		premium := cmd.Total * int64(r.cfg.ArrivalPremiumPercent) / 100
		return SettlementSelection{
			Method:           cmd.Method,
			Adjustment:       domain.AdjustmentPremium,
			AdjustmentAmount: premium,
			FinalTotal:       cmd.Total + premium,
			Classification:   domain.ClassDeferredArrival,
		}, nil

	case domain.MethodStandard30Day:
		if cmd.SubMethod == nil {
			return SettlementSelection{}, fmt.Errorf("%w: a payment sub-method is required for 30-day terms", ErrSettlementInvalidInput)
		}
		if !validSubMethod(*cmd.SubMethod) {
			return SettlementSelection{}, fmt.Errorf("%w: unknown sub-method %q", ErrSettlementInvalidInput, *cmd.SubMethod)
		}
		if cmd.CollectionDate.IsZero() {
			return SettlementSelection{}, fmt.Errorf("%w: collection date is required for 30-day terms", ErrSettlementInvalidInput)
		}
		deadline := cmd.CollectionDate.UTC().AddDate(0, 0, r.cfg.TermsDays)
		return SettlementSelection{
			Method:          cmd.Method,
			SubMethod:       cmd.SubMethod,
			Adjustment:      domain.AdjustmentNone,
			FinalTotal:      cmd.Total,
			Classification:  domain.ClassDeferred30Day,
			PaymentDeadline: &deadline,
		}, nil

	default:
		return SettlementSelection{}, fmt.Errorf("%w: unknown settlement method %q", ErrSettlementInvalidInput, cmd.Method)
	}
}

func validSubMethod(sub TermsSubMethod) bool {
	switch sub {
	case domain.SubMethodCash, domain.SubMethodBankTransfer, domain.SubMethodDirectDebit:
		return true
	default:
		return false
	}
}

// shipmentStatusForClassification maps each settlement classification onto the
// shipment status it produces. The mapping is injective; no two
// classifications collapse into the same status.
func shipmentStatusForClassification(class SettlementClassification) (ShipmentStatus, error) {
	switch class {
	case domain.ClassImmediate:
		return domain.ShipmentStatusPendingPayment, nil
	case domain.ClassDeferredCollection:
		return domain.ShipmentStatusAwaitingCollection, nil
	case domain.ClassDeferredArrival:
		return domain.ShipmentStatusAwaitingArrival, nil
	case domain.ClassDeferred30Day:
		return domain.ShipmentStatusPaymentDue30Day, nil
	default:
		return "", fmt.Errorf("%w: unknown settlement classification %q", ErrSettlementInvalidInput, class)
	}
}

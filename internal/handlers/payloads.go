package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/cargoline/api/internal/domain"
	"github.com/cargoline/api/internal/platform/httpx"
	"github.com/cargoline/api/internal/services"
)

type contactPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
}

type shipmentDetailsPayload struct {
	Classification  string   `json:"classification"`
	Services        []string `json:"services,omitempty"`
	ItemCategory    string   `json:"item_category,omitempty"`
	ItemDescription string   `json:"item_description,omitempty"`
	Quantity        int      `json:"quantity,omitempty"`
	WeightGrams     int      `json:"weight_grams,omitempty"`
	DoorToDoor      bool     `json:"door_to_door,omitempty"`
	QuotedTotal     int64    `json:"quoted_total"`
}

type shipmentPayload struct {
	ID             string                 `json:"id"`
	TrackingNumber string                 `json:"tracking_number"`
	Status         string                 `json:"status"`
	Sender         contactPayload         `json:"sender"`
	Recipient      contactPayload         `json:"recipient"`
	Details        shipmentDetailsPayload `json:"details"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type addonPayload struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type pricingPayload struct {
	Currency string         `json:"currency"`
	Base     int64          `json:"base"`
	Addons   []addonPayload `json:"addons,omitempty"`
	Total    int64          `json:"total"`
}

type selectionPayload struct {
	Method           string     `json:"method"`
	SubMethod        *string    `json:"sub_method,omitempty"`
	Adjustment       string     `json:"adjustment"`
	AdjustmentAmount int64      `json:"adjustment_amount"`
	FinalTotal       int64      `json:"final_total"`
	PaymentDeadline  *time.Time `json:"payment_deadline,omitempty"`
}

type paymentPayload struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type receiptPayload struct {
	ID            string  `json:"id"`
	ReceiptNumber string  `json:"receipt_number"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	Method        string  `json:"method"`
	SubMethod     *string `json:"sub_method,omitempty"`
	Status        string  `json:"status"`
}

type quotePayload struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Category     string     `json:"category,omitempty"`
	ImageURLs    []string   `json:"image_urls,omitempty"`
	Status       string     `json:"status"`
	QuotedAmount *int64     `json:"quoted_amount,omitempty"`
	QuotedAt     *time.Time `json:"quoted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type notificationPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	RelatedID string    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type rateTierPayload struct {
	MinQuantity int   `json:"min_quantity"`
	UnitPrice   int64 `json:"unit_price"`
}

type rateCardPayload struct {
	ID            string            `json:"id"`
	Currency      string            `json:"currency"`
	DrumTiers     []rateTierPayload `json:"drum_tiers"`
	PerKgRate     int64             `json:"per_kg_rate"`
	MinimumCharge int64             `json:"minimum_charge"`
	DoorToDoorFee int64             `json:"door_to_door_fee"`
	SealFee       int64             `json:"seal_fee"`
	UpdatedBy     string            `json:"updated_by,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func buildContactPayload(contact domain.ContactDetails) contactPayload {
	return contactPayload{
		Name:     contact.Name,
		Email:    contact.Email,
		Phone:    contact.Phone,
		Address1: contact.Address1,
		Address2: contact.Address2,
		City:     contact.City,
		Country:  contact.Country,
	}
}

func buildShipmentPayload(shipment domain.Shipment) shipmentPayload {
	return shipmentPayload{
		ID:             shipment.ID,
		TrackingNumber: shipment.TrackingNumber,
		Status:         string(shipment.Status),
		Sender:         buildContactPayload(shipment.Sender),
		Recipient:      buildContactPayload(shipment.Recipient),
		Details: shipmentDetailsPayload{
			Classification:  string(shipment.Details.Classification),
			Services:        shipment.Details.Services,
			ItemCategory:    shipment.Details.ItemCategory,
			ItemDescription: shipment.Details.ItemDescription,
			Quantity:        shipment.Details.Quantity,
			WeightGrams:     shipment.Details.WeightGrams,
			DoorToDoor:      shipment.Details.DoorToDoor,
			QuotedTotal:     shipment.Details.QuotedTotal,
		},
		CreatedAt: shipment.CreatedAt,
		UpdatedAt: shipment.UpdatedAt,
	}
}

func buildPricingPayload(breakdown domain.PricingBreakdown) pricingPayload {
	payload := pricingPayload{
		Currency: breakdown.Currency,
		Base:     breakdown.Base,
		Total:    breakdown.TotalBeforeSettlement,
	}
	for _, addon := range breakdown.AddonCharges {
		payload.Addons = append(payload.Addons, addonPayload{
			Code:   addon.Code,
			Label:  addon.Label,
			Amount: addon.Amount,
		})
	}
	return payload
}

func buildSelectionPayload(selection domain.SettlementSelection) selectionPayload {
	payload := selectionPayload{
		Method:           string(selection.Method),
		Adjustment:       string(selection.Adjustment),
		AdjustmentAmount: selection.AdjustmentAmount,
		FinalTotal:       selection.FinalTotal,
		PaymentDeadline:  selection.PaymentDeadline,
	}
	if selection.SubMethod != nil {
		value := string(*selection.SubMethod)
		payload.SubMethod = &value
	}
	return payload
}

func buildPaymentPayload(payment domain.Payment) paymentPayload {
	return paymentPayload{
		ID:            payment.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Method:        string(payment.Method),
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
	}
}

func buildReceiptPayload(receipt domain.Receipt) receiptPayload {
	payload := receiptPayload{
		ID:            receipt.ID,
		ReceiptNumber: receipt.ReceiptNumber,
		Amount:        receipt.Amount,
		Currency:      receipt.Currency,
		Method:        string(receipt.Method),
		Status:        string(receipt.Status),
	}
	if receipt.SubMethod != nil {
		value := string(*receipt.SubMethod)
		payload.SubMethod = &value
	}
	return payload
}

func buildQuotePayload(quote domain.CustomQuote) quotePayload {
	return quotePayload{
		ID:           quote.ID,
		Description:  quote.Description,
		Category:     quote.Category,
		ImageURLs:    quote.ImageURLs,
		Status:       string(quote.Status),
		QuotedAmount: quote.QuotedAmount,
		QuotedAt:     quote.QuotedAt,
		CreatedAt:    quote.CreatedAt,
	}
}

func buildNotificationPayload(notification domain.Notification) notificationPayload {
	return notificationPayload{
		ID:        notification.ID,
		Title:     notification.Title,
		Message:   notification.Message,
		Type:      notification.Type,
		RelatedID: notification.RelatedID,
		IsRead:    notification.IsRead,
		CreatedAt: notification.CreatedAt,
	}
}

func buildRateCardPayload(card domain.RateCard) rateCardPayload {
	payload := rateCardPayload{
		ID:            card.ID,
		Currency:      card.Currency,
		PerKgRate:     card.PerKgRate,
		MinimumCharge: card.MinimumCharge,
		DoorToDoorFee: card.DoorToDoorFee,
		SealFee:       card.SealFee,
		UpdatedBy:     card.UpdatedBy,
		UpdatedAt:     card.UpdatedAt,
	}
	for _, tier := range card.DrumTiers {
		payload.DrumTiers = append(payload.DrumTiers, rateTierPayload{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   tier.UnitPrice,
		})
	}
	return payload
}

// writeServiceError translates service sentinels into the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var mismatch *services.SettlementMismatchError
	if errors.As(err, &mismatch) {
		httpx.WriteError(ctx, w, httpx.NewError("price_mismatch", "displayed total no longer matches the computed price", http.StatusConflict).
			WithDetails(map[string]any{
				"expected_total": mismatch.Expected,
				"provided_total": mismatch.Provided,
			}))
		return
	}

	switch {
	case errors.Is(err, services.ErrShipmentNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrRateCardNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrBookingAlreadySettled),
		errors.Is(err, services.ErrQuoteAlreadyAccepted):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrQuoteNotQuoted):
		httpx.WriteError(ctx, w, httpx.NewError("quote_not_priced", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPricingInvalidInput),
		errors.Is(err, services.ErrSettlementInvalidInput),
		errors.Is(err, services.ErrBookingInvalidInput),
		errors.Is(err, services.ErrQuoteInvalidInput),
		errors.Is(err, services.ErrRateCardInvalid),
		errors.Is(err, services.ErrNotificationInvalidInput),
		errors.Is(err, services.ErrCounterInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the payment processor's webhook envelope.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object EventObject `json:"object"`
}

// EventObject is the nested payload of a failure event. The processor omits
// most fields depending on the event variant, so everything is optional.
type EventObject struct {
	ID               string          `json:"id"`
	Amount           *int64          `json:"amount"`
	AmountDue        *int64          `json:"amount_due"`
	Currency         string          `json:"currency"`
	Customer         string          `json:"customer"`
	CustomerEmail    string          `json:"customer_email"`
	ReceiptEmail     string          `json:"receipt_email"`
	BillingDetails   *BillingDetails `json:"billing_details"`
	LastPaymentError *PaymentError   `json:"last_payment_error"`
	FailureMessage   string          `json:"failure_message"`
}

type BillingDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type PaymentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FailureRecord is the normalized view of one payment failure, consumed by
// the recorder and the notifier. Amount is in display units, not minor units.
type FailureRecord struct {
	ID            string
	CustomerID    string
	Email         string
	Amount        string
	Currency      string
	FailureReason string
	ObservedAt    time.Time
}

const (
	PlaceholderEmail  = "No email provided"
	PlaceholderReason = "Unknown"
	PlaceholderValue  = "Unknown"
)

var failureTypes = map[string]struct{}{
	"payment_intent.payment_failed": {},
	"charge.failed":                 {},
	"invoice.payment_failed":        {},
}

// IsFailureType reports whether the event type is one of the recognized
// payment-failure variants. Matching is exact.
func IsFailureType(eventType string) bool {
	_, ok := failureTypes[eventType]
	return ok
}

// NewFailureRecord maps a raw event object to a FailureRecord, applying the
// fallback chains for optional fields. It never fails: absent fields degrade
// to placeholders.
func NewFailureRecord(obj EventObject) FailureRecord {
	return FailureRecord{
		ID:            recordID(obj),
		CustomerID:    fallback(obj.Customer, PlaceholderValue),
		Email:         bestEmail(obj),
		Amount:        displayAmount(obj),
		Currency:      displayCurrency(obj.Currency),
		FailureReason: failureReason(obj),
		ObservedAt:    time.Now().UTC(),
	}
}

func recordID(obj EventObject) string {
	if obj.ID != "" {
		return obj.ID
	}
	return "evt_" + uuid.NewString()
}

func bestEmail(obj EventObject) string {
	if obj.BillingDetails != nil && obj.BillingDetails.Email != "" {
		return obj.BillingDetails.Email
	}
	if obj.ReceiptEmail != "" {
		return obj.ReceiptEmail
	}
	if obj.CustomerEmail != "" {
		return obj.CustomerEmail
	}
	return PlaceholderEmail
}

// displayAmount converts the minor-unit amount to a decimal string, e.g.
// 500 -> "5", 9999 -> "99.99". Invoices carry amount_due instead of amount.
func displayAmount(obj EventObject) string {
	minor := obj.Amount
	if minor == nil {
		minor = obj.AmountDue
	}
	if minor == nil {
		return PlaceholderValue
	}
	return decimal.NewFromInt(*minor).Div(decimal.NewFromInt(100)).String()
}

func displayCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	return strings.ToUpper(currency)
}

func failureReason(obj EventObject) string {
	if obj.LastPaymentError != nil && obj.LastPaymentError.Message != "" {
		return obj.LastPaymentError.Message
	}
	if obj.FailureMessage != "" {
		return obj.FailureMessage
	}
	return PlaceholderReason
}

// AmountWithCurrency renders the record's amount for human-facing output.
func (r FailureRecord) AmountWithCurrency() string {
	return fmt.Sprintf("%s %s", r.Amount, r.Currency)
}

func fallback(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}

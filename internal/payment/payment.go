// Package payment talks to the card payment gateway.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayDisabled is returned when no gateway credentials are configured.
	ErrGatewayDisabled = errors.New("payment: gateway disabled")
	// ErrIntentNotFound is returned when the gateway does not know the payment intent.
	ErrIntentNotFound = errors.New("payment: intent not found")
)

// StatusSucceeded is the only intent status treated as a completed payment.
const StatusSucceeded = "succeeded"

// Intent is the subset of a gateway payment intent the store relies on.
type Intent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
}

// Succeeded reports whether the gateway considers the payment complete.
func (i *Intent) Succeeded() bool {
	return i.Status == StatusSucceeded
}

// CreateIntentInput describes a new payment intent.
type CreateIntentInput struct {
	OrderID     string
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
}

// Gateway creates and inspects payment intents.
type Gateway interface {
	Enabled() bool
	CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error)
}

var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// MinorUnits converts an amount to the smallest currency unit, e.g. cents for usd and dong for vnd.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Disabled is a Gateway that rejects every call.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreatePaymentIntent(context.Context, CreateIntentInput) (*Intent, error) {
	return nil, ErrGatewayDisabled
}

func (Disabled) RetrievePaymentIntent(context.Context, string) (*Intent, error) {
	return nil, ErrGatewayDisabled
}

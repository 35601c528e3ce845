// Package payment adapts the external payment processor.  Only payment
// intent creation and cancellation are needed; confirmation happens in the
// buyer's browser with the returned client secret.
package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrDisabled is returned when no processor key is configured.
var ErrDisabled = errors.New("payments are not configured")

// Intent is the part of a created payment intent the API hands back.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentRequest describes a charge in the smallest currency unit.
type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// Processor creates and cancels payment intents.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
}

// Stripe implements Processor on the Stripe API.
type Stripe struct {
	sc *client.API
}

// NewStripe returns nil when secretKey is empty so callers can fall back to
// Disabled.
func NewStripe(secretKey string) *Stripe {
	if secretKey == "" {
		return nil
	}
	return &Stripe{sc: client.New(secretKey, nil)}
}

func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := s.sc.PaymentIntents.Cancel(id, params)
	return err
}

// Disabled rejects every request with ErrDisabled.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, IntentRequest) (*Intent, error) { return nil, ErrDisabled }
func (Disabled) CancelIntent(context.Context, string) error                   { return ErrDisabled }

// FromKey returns the Stripe processor for a configured key and Disabled
// otherwise.
func FromKey(secretKey string) Processor {
	if s := NewStripe(secretKey); s != nil {
		return s
	}
	return Disabled{}
}

// Metadata formats numeric identifiers for intent metadata.
func Metadata(kv map[string]uint64) map[string]string {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		out[k] = strconv.FormatUint(v, 10)
	}
	return out
}

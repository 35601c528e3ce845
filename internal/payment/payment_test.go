package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromKeyWithoutSecretIsDisabled(t *testing.T) {
	p := FromKey("")
	_, err := p.CreateIntent(context.Background(), IntentRequest{AmountCents: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, p.CancelIntent(context.Background(), "pi_1"), ErrDisabled)
}

func TestFromKeyWithSecretIsStripe(t *testing.T) {
	_, ok := FromKey("sk_test_123").(*Stripe)
	assert.True(t, ok)
}

func TestMetadata(t *testing.T) {
	got := Metadata(map[string]uint64{"listing_id": 3, "buyer_id": 18446744073709551615})
	assert.Equal(t, map[string]string{"listing_id": "3", "buyer_id": "18446744073709551615"}, got)
}

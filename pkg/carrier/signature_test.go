package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlascommerce/shipping/pkg/carrier"
)

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"tracking_number":"TRK-1","status":"delivered"}`)
	sig := carrier.SignPayload("secret-1", payload)

	assert.Len(t, sig, 64) // hex SHA-256
	assert.True(t, carrier.VerifySignature("secret-1", payload, sig))
}

func TestVerifySignature_Mismatches(t *testing.T) {
	payload := []byte(`{"tracking_number":"TRK-1"}`)
	sig := carrier.SignPayload("secret-1", payload)

	assert.False(t, carrier.VerifySignature("secret-2", payload, sig), "wrong secret")
	assert.False(t, carrier.VerifySignature("secret-1", []byte(`tampered`), sig), "tampered payload")
	assert.False(t, carrier.VerifySignature("secret-1", payload, "not-hex"), "malformed signature")
	assert.False(t, carrier.VerifySignature("secret-1", payload, ""), "empty signature")
	assert.False(t, carrier.VerifySignature("secret-1", payload, sig[:32]), "truncated signature")
}

func TestSignPayload_Deterministic(t *testing.T) {
	payload := []byte("same bytes")
	assert.Equal(t, carrier.SignPayload("k", payload), carrier.SignPayload("k", payload))
	assert.NotEqual(t, carrier.SignPayload("k", payload), carrier.SignPayload("k2", payload))
}

package carrier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload returns the lowercase hex HMAC-SHA256 of the raw payload under
// the shared secret. Carriers sign the exact request body they send.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a provided hex signature against the HMAC-SHA256 of
// the raw payload using a constant-time comparison.
func VerifySignature(secret string, payload []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

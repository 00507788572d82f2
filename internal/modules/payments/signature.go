package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignVerification computes the client-submitted proof-of-payment digest:
// hex HMAC-SHA256(secret, remoteIntentID + "|" + remotePaymentID).
// The format is fixed by the gateway; do not change the separator.
func SignVerification(secret, remoteIntentID, remotePaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteIntentID + "|" + remotePaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhook computes the webhook body digest: hex HMAC-SHA256 over the
// raw request body, compared against the signature header.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// equalSignature is a constant-time comparison of two hex digests.
func equalSignature(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

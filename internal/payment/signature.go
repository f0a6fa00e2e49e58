// Package payment implements the checkout contract: order creation via
// the external gateway and verification of the signature the gateway
// returns after a successful charge.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the gateway callback signature: hex-encoded
// HMAC-SHA256 over "orderID|paymentID" with the shared secret. A
// mismatch is always surfaced to the caller, never treated as success.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature the gateway would emit for a given order
// and payment pair. Used by tests and by sandbox tooling.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	sig := Sign("order_abc", "pay_123", "secret")
	assert.True(t, VerifySignature("order_abc", "pay_123", sig, "secret"))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	sig := Sign("order_abc", "pay_123", "secret")

	assert.False(t, VerifySignature("order_abc", "pay_456", sig, "secret"))
	assert.False(t, VerifySignature("order_xyz", "pay_123", sig, "secret"))
	assert.False(t, VerifySignature("order_abc", "pay_123", sig, "wrong-secret"))
	assert.False(t, VerifySignature("order_abc", "pay_123", "", "secret"))
	assert.False(t, VerifySignature("order_abc", "pay_123", sig+"00", "secret"))
}

func TestVerifySignatureSeparatorIsPartOfMessage(t *testing.T) {
	// "a|b" + "c" and "a" + "b|c" must not collide.
	sig := Sign("a|b", "c", "secret")
	assert.False(t, VerifySignature("a", "b|c", sig, "secret"))
}

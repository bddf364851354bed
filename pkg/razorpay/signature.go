package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)) in lower case.
func Sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature compares the received signature byte for byte, in constant time, with
// the one computed from the refs. Case or whitespace differences are mismatches.
func VerifyPaymentSignature(secret, orderRef, paymentRef, signature string) bool {
	if secret == "" || orderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, orderRef, paymentRef)), []byte(signature))
}

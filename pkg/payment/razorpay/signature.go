package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signature is the hex HMAC-SHA256 of "<orderID>|<paymentID>" under secret.
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the supplied signature with the expected one byte for byte.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(Signature(secret, orderID, paymentID)), []byte(signature))
}

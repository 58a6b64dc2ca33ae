package paymentgateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/frahmantamala/metro-ticketing/internal"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckoutMessage is the string the gateway signs after a checkout.
func CheckoutMessage(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// VerifySignature checks a checkout signature in constant time. A signature
// that does not match, including malformed hex, is reported as false with no
// error; only missing inputs are errors.
func VerifySignature(orderID, paymentID, signature, secret string) (bool, error) {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false, internal.NewValidationError("order id, payment id, signature and secret are required", internal.ErrCodeInvalidSignature)
	}
	expected := Sign(CheckoutMessage(orderID, paymentID), secret)
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

// VerifyWebhookSignature checks the signature header of a webhook delivery
// against the raw request body.
func VerifyWebhookSignature(body []byte, signature, secret string) (bool, error) {
	if len(body) == 0 || signature == "" || secret == "" {
		return false, internal.NewValidationError("body, signature and secret are required", internal.ErrCodeInvalidSignature)
	}
	expected := Sign(string(body), secret)
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

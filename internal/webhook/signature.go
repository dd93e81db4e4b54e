package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"inboxhook/internal/constants"
)

// Sign returns the X-Hub-Signature-256 value Meta sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return constants.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether header is the HMAC-SHA256 of body under
// secret.
func ValidSignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, constants.SignaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, constants.SignaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

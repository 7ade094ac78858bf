package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Scheme is the signature scheme prefix providers put in front of the
// hex digest, e.g. "sha256=<hex>".
const Scheme = "sha256"

// Sign computes the HMAC-SHA256 tag of payload under secret, formatted
// the way it travels in the webhook signature header.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Scheme + "=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag over the raw payload and compares it against
// the header value in constant time. The "sha256=" prefix is optional.
func Verify(payload []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	header = strings.TrimPrefix(header, Scheme+"=")

	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	want := mac.Sum(nil)

	// hmac.Equal is constant time, so a forged header learns nothing
	// about how many leading bytes matched.
	return hmac.Equal(got, want)
}

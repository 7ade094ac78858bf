package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1","status":"completed"}`)
	header := Sign(payload, "secret")

	assert.True(t, strings.HasPrefix(header, "sha256="))
	assert.True(t, Verify(payload, header, "secret"))
}

func TestVerifyAcceptsBareHexDigest(t *testing.T) {
	payload := []byte("hello")
	header := strings.TrimPrefix(Sign(payload, "secret"), "sha256=")

	assert.True(t, Verify(payload, header, "secret"))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	header := Sign(payload, "secret")

	assert.False(t, Verify([]byte(`{"amount":999}`), header, "secret"))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload := []byte("payload")
	header := Sign(payload, "secret")

	assert.False(t, Verify(payload, header, "other_secret"))
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	payload := []byte("payload")

	assert.False(t, Verify(payload, "", "secret"))
	assert.False(t, Verify(payload, "sha256=not-hex", "secret"))
	assert.False(t, Verify(payload, "sha256=deadbeef", "secret"))
}

package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"testing"
)

func sign(authToken, fullURL string, form url.Values) string {
	// Mirrors Twilio's documented scheme: URL then sorted key+value pairs.
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(fullURL))
	for _, k := range []string{"ErrorCode", "MessageSid", "MessageStatus"} {
		if v := form.Get(k); v != "" || form.Has(k) {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	authToken := "tok"
	fullURL := "https://example.org/v1/webhooks/twilio/status"
	form := url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
	}

	good := sign(authToken, fullURL, form)
	if !VerifySignature(authToken, fullURL, good, form) {
		t.Fatalf("expected valid signature to verify")
	}
	if VerifySignature(authToken, fullURL, "bogus", form) {
		t.Fatalf("expected bogus signature to fail")
	}
	if VerifySignature("other-token", fullURL, good, form) {
		t.Fatalf("expected wrong token to fail")
	}

	form.Set("MessageStatus", "failed")
	if VerifySignature(authToken, fullURL, good, form) {
		t.Fatalf("expected tampered form to fail")
	}
}

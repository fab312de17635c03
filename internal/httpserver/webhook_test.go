package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"floodshield/internal/providers/twilio"
	sqsqueue "floodshield/internal/queue/sqs"
)

type fakeQueue struct {
	events []sqsqueue.WebhookEvent
}

func (f *fakeQueue) Enqueue(ctx context.Context, ev sqsqueue.WebhookEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func twilioSign(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postStatus(t *testing.T, wh *Webhook, form url.Values, signature string) *httptest.ResponseRecorder {
	t.Helper()
	s := New()
	wh.Register(s.Mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, req)
	return rec
}

func TestTwilioStatusWebhookEnqueues(t *testing.T) {
	q := &fakeQueue{}
	publicURL := "https://example.org/v1/webhooks/twilio/status"
	wh := &Webhook{
		Queue:           q,
		VerifySignature: twilio.VerifySignature,
		AuthToken:       "tok",
		PublicURL:       publicURL,
	}

	form := url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
	}
	rec := postStatus(t, wh, form, twilioSign("tok", publicURL, form))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(q.events) != 1 {
		t.Fatalf("expected one enqueued event, got %d", len(q.events))
	}
	ev := q.events[0]
	if ev.Provider != "twilio" || ev.ProviderMsgID != "SM123" || ev.Status != "delivered" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestTwilioStatusWebhookRejectsBadSignature(t *testing.T) {
	q := &fakeQueue{}
	wh := &Webhook{
		Queue:           q,
		VerifySignature: twilio.VerifySignature,
		AuthToken:       "tok",
		PublicURL:       "https://example.org/v1/webhooks/twilio/status",
	}

	form := url.Values{"MessageSid": {"SM123"}, "MessageStatus": {"failed"}}
	rec := postStatus(t, wh, form, "bogus")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(q.events) != 0 {
		t.Fatalf("unverified events must not be enqueued")
	}
}

package broadcast

import (
	"context"
	"strings"
	"sync"
	"testing"

	"floodshield/internal/providers/twilio"
)

type fakeMessageClient struct {
	whatsapp bool
	failTo   map[string]bool

	mu      sync.Mutex
	smsTo   []string
	waTo    []string
	nextSID int
}

func (f *fakeMessageClient) Configured() bool         { return true }
func (f *fakeMessageClient) WhatsAppConfigured() bool { return f.whatsapp }

func (f *fakeMessageClient) SendSMS(ctx context.Context, to, body string) (twilio.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.smsTo = append(f.smsTo, to)
	if f.failTo[to] {
		return twilio.Result{}, &twilio.RejectionError{HTTPStatus: 400, Code: 21211}
	}
	f.nextSID++
	return twilio.Result{SID: "SM" + strings.Repeat("0", f.nextSID), Status: "queued"}, nil
}

func (f *fakeMessageClient) SendWhatsApp(ctx context.Context, to, body string) (twilio.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waTo = append(f.waTo, to)
	f.nextSID++
	return twilio.Result{SID: "WA" + strings.Repeat("0", f.nextSID), Status: "queued"}, nil
}

type unconfiguredClient struct{ fakeMessageClient }

func (*unconfiguredClient) Configured() bool { return false }

func TestSMSBroadcastAllRecipients(t *testing.T) {
	client := &fakeMessageClient{}
	s := &SMSWhatsAppSender{Client: client}

	out := s.Broadcast(context.Background(), []string{"+911", "+912", "+913"}, "flood warning")
	if out.Err != nil {
		t.Fatalf("unexpected channel error: %v", out.Err)
	}
	if out.Attempted != 3 || out.Succeeded != 3 || out.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if len(out.Deliveries) != 3 {
		t.Fatalf("expected 3 delivery records, got %d", len(out.Deliveries))
	}
	if len(client.waTo) != 0 {
		t.Fatalf("whatsapp not configured, no whatsapp sends expected")
	}
}

func TestSMSBroadcastWhatsAppDoublesSends(t *testing.T) {
	client := &fakeMessageClient{whatsapp: true}
	s := &SMSWhatsAppSender{Client: client}

	out := s.Broadcast(context.Background(), []string{"+911", "+912"}, "hi")
	if out.Attempted != 4 || out.Succeeded != 4 {
		t.Fatalf("expected sms+whatsapp per recipient, got %+v", out)
	}
	if len(client.smsTo) != 2 || len(client.waTo) != 2 {
		t.Fatalf("unexpected send split: sms=%d wa=%d", len(client.smsTo), len(client.waTo))
	}
}

func TestSMSBroadcastOneFailureDoesNotBlockOthers(t *testing.T) {
	client := &fakeMessageClient{failTo: map[string]bool{"+912": true}}
	s := &SMSWhatsAppSender{Client: client}

	out := s.Broadcast(context.Background(), []string{"+911", "+912", "+913", "+914", "+915"}, "hi")
	if out.Succeeded != 4 || out.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "+912") {
		t.Fatalf("expected one error naming the failed recipient, got %v", out.Errors)
	}
	if len(client.smsTo) != 5 {
		t.Fatalf("all recipients must be attempted, got %d", len(client.smsTo))
	}
}

func TestSMSBroadcastUnconfigured(t *testing.T) {
	s := &SMSWhatsAppSender{Client: &unconfiguredClient{}}
	out := s.Broadcast(context.Background(), []string{"+911"}, "hi")
	if out.Err == nil {
		t.Fatalf("expected channel-wide failure when credentials are missing")
	}
	if out.Attempted != 0 || out.Succeeded != 0 {
		t.Fatalf("no sends expected: %+v", out)
	}
}

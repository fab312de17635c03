package broadcast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"floodshield/internal/domain"
	"floodshield/internal/store"
)

type fakeResolver struct {
	phones    []string
	phonesErr error
	tokens    []string
	tokensErr error

	phoneCalls int
	tokenCalls int
}

func (f *fakeResolver) PhoneNumbers(ctx context.Context) ([]string, error) {
	f.phoneCalls++
	return f.phones, f.phonesErr
}

func (f *fakeResolver) DeviceTokens(ctx context.Context, platforms []string) ([]string, error) {
	f.tokenCalls++
	return f.tokens, f.tokensErr
}

type fakeChannel struct {
	outcome Outcome
	calls   int
	gotLen  int
}

func (f *fakeChannel) Broadcast(ctx context.Context, recipients []string, message string) Outcome {
	f.calls++
	f.gotLen = len(recipients)
	return f.outcome
}

type fakePush struct {
	outcome Outcome
	calls   int
}

func (f *fakePush) Broadcast(ctx context.Context, tokens []string, title, body string) Outcome {
	f.calls++
	return f.outcome
}

type fakeHistory struct {
	inserted   []store.AlertHistoryInsert
	insertErr  error
	deliveries []store.AlertDelivery
}

func (f *fakeHistory) InsertAlertHistory(ctx context.Context, in store.AlertHistoryInsert) error {
	f.inserted = append(f.inserted, in)
	return f.insertErr
}

func (f *fakeHistory) InsertAlertDeliveries(ctx context.Context, deliveries []store.AlertDelivery, now time.Time) error {
	f.deliveries = append(f.deliveries, deliveries...)
	return nil
}

func newOrchestrator(r *fakeResolver, sms *fakeChannel, push *fakePush, hist *fakeHistory) *Orchestrator {
	return &Orchestrator{
		Resolver:      r,
		SMS:           sms,
		Push:          push,
		PushPlatforms: []string{"android"},
		Store:         hist,
		NewAlertID:    func() string { return "alert_test" },
		Now:           func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestBroadcastValidationMakesNoCalls(t *testing.T) {
	r := &fakeResolver{}
	sms := &fakeChannel{}
	push := &fakePush{}
	hist := &fakeHistory{}
	o := newOrchestrator(r, sms, push, hist)

	cases := []domain.BroadcastRequest{
		{Message: "", Channels: []domain.Channel{domain.ChannelSMSWhatsApp}},
		{Message: "hi"},
		{Message: "hi", Channels: []domain.Channel{domain.ChannelPush}}, // no title
		{Message: "hi", Channels: []domain.Channel{"carrier-pigeon"}},
	}
	for _, req := range cases {
		if _, err := o.Broadcast(context.Background(), "admin1", req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}
	if r.phoneCalls != 0 || r.tokenCalls != 0 || sms.calls != 0 || push.calls != 0 {
		t.Fatalf("rejected requests must not touch resolvers or senders")
	}
	if len(hist.inserted) != 0 {
		t.Fatalf("rejected requests must not be persisted")
	}
}

func TestBroadcastAllCleanIsSent(t *testing.T) {
	r := &fakeResolver{phones: []string{"+911", "+912", "+913"}}
	sms := &fakeChannel{outcome: Outcome{
		Channel: domain.ChannelSMSWhatsApp, Attempted: 3, Succeeded: 3,
		Deliveries: []store.AlertDelivery{
			{Provider: "twilio", ProviderMsgID: "SM1", Recipient: "+911", State: "submitted"},
		},
	}}
	hist := &fakeHistory{}
	o := newOrchestrator(r, sms, &fakePush{}, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusSent {
		t.Fatalf("expected sent, got %s", res.Status)
	}
	if len(res.SuccessMessages) != 1 || !strings.Contains(res.SuccessMessages[0], "Successful sends: 3. Failed: 0.") {
		t.Fatalf("unexpected success messages: %v", res.SuccessMessages)
	}
	if len(res.ErrorMessages) != 0 {
		t.Fatalf("unexpected error messages: %v", res.ErrorMessages)
	}

	if len(hist.inserted) != 1 {
		t.Fatalf("expected one history row, got %d", len(hist.inserted))
	}
	row := hist.inserted[0]
	if row.ID != "alert_test" || row.Status != "sent" || row.SenderID != "admin1" {
		t.Fatalf("unexpected history row: %+v", row)
	}
	counts := row.Details.Channels["sms_whatsapp"]
	if counts.Attempted != 3 || counts.Succeeded != 3 || counts.Failed != 0 {
		t.Fatalf("unexpected channel counts: %+v", counts)
	}
	if len(hist.deliveries) != 1 || hist.deliveries[0].AlertID != "alert_test" {
		t.Fatalf("delivery rows not persisted with alert id: %+v", hist.deliveries)
	}
}

func TestBroadcastPartialSuccess(t *testing.T) {
	push := &fakePush{outcome: Outcome{
		Channel: domain.ChannelPush, Attempted: 2, Succeeded: 1, Failed: 1,
		Errors: []string{"push to device 2: token not registered"},
	}}
	hist := &fakeHistory{}
	o := newOrchestrator(&fakeResolver{tokens: []string{"tok1", "tok2"}}, &fakeChannel{}, push, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Title:    "Alert",
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelPush},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusPartialSuccess {
		t.Fatalf("expected partial_success, got %s", res.Status)
	}
	if len(res.ErrorMessages) != 1 || !strings.Contains(res.ErrorMessages[0], "token not registered") {
		t.Fatalf("unexpected error messages: %v", res.ErrorMessages)
	}
	if len(hist.inserted) != 1 || len(hist.inserted[0].Details.Errors) != 1 {
		t.Fatalf("expected one detail error, got %+v", hist.inserted)
	}
}

func TestBroadcastAllFailedIsFailed(t *testing.T) {
	sms := &fakeChannel{outcome: Outcome{
		Channel: domain.ChannelSMSWhatsApp, Attempted: 2, Failed: 2,
		Errors: []string{"sms to +911: rejected", "sms to +912: rejected"},
	}}
	hist := &fakeHistory{}
	o := newOrchestrator(&fakeResolver{phones: []string{"+911", "+912"}}, sms, &fakePush{}, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
}

func TestBroadcastZeroRecipientChannelIsSent(t *testing.T) {
	sms := &fakeChannel{}
	hist := &fakeHistory{}
	o := newOrchestrator(&fakeResolver{}, sms, &fakePush{}, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusSent {
		t.Fatalf("zero recipients is a clean success, got %s", res.Status)
	}
	if sms.calls != 0 {
		t.Fatalf("sender must not be called with zero recipients")
	}
	if len(res.SuccessMessages) != 1 || !strings.Contains(res.SuccessMessages[0], "no recipients") {
		t.Fatalf("expected no-recipients summary, got %v", res.SuccessMessages)
	}
}

func TestBroadcastMixedChannels(t *testing.T) {
	sms := &fakeChannel{outcome: Outcome{
		Channel: domain.ChannelSMSWhatsApp, Attempted: 2, Succeeded: 2,
	}}
	push := &fakePush{outcome: Outcome{
		Channel: domain.ChannelPush, Attempted: 1, Failed: 1,
		Errors: []string{"push to device 1: unavailable"},
	}}
	hist := &fakeHistory{}
	o := newOrchestrator(&fakeResolver{phones: []string{"+911", "+912"}, tokens: []string{"tok1"}}, sms, push, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Title:    "Alert",
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp, domain.ChannelPush},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusPartialSuccess {
		t.Fatalf("expected partial_success, got %s", res.Status)
	}
	if sms.calls != 1 || push.calls != 1 {
		t.Fatalf("both channels must dispatch: sms=%d push=%d", sms.calls, push.calls)
	}
	row := hist.inserted[0]
	if len(row.ChannelsSent) != 2 {
		t.Fatalf("expected both channels recorded, got %v", row.ChannelsSent)
	}
}

func TestBroadcastResolverFailureIsChannelFailure(t *testing.T) {
	r := &fakeResolver{phonesErr: errors.New("db down")}
	hist := &fakeHistory{}
	o := newOrchestrator(r, &fakeChannel{}, &fakePush{}, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp},
	})
	if err != nil {
		t.Fatalf("dispatch failures must not surface as request errors: %v", err)
	}
	if res.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if len(res.ErrorMessages) != 1 || !strings.Contains(res.ErrorMessages[0], "db down") {
		t.Fatalf("unexpected error messages: %v", res.ErrorMessages)
	}
}

func TestBroadcastHistoryInsertFailureStillReturnsResult(t *testing.T) {
	hist := &fakeHistory{insertErr: errors.New("pg down")}
	o := newOrchestrator(&fakeResolver{phones: []string{"+911"}}, &fakeChannel{outcome: Outcome{
		Channel: domain.ChannelSMSWhatsApp, Attempted: 1, Succeeded: 1,
	}}, &fakePush{}, hist)

	res, err := o.Broadcast(context.Background(), "admin1", domain.BroadcastRequest{
		Message:  "flood warning",
		Channels: []domain.Channel{domain.ChannelSMSWhatsApp},
	})
	if err != nil {
		t.Fatalf("history failure must not fail the broadcast: %v", err)
	}
	if res.Status != domain.StatusSent {
		t.Fatalf("messages already went out, expected sent, got %s", res.Status)
	}
	if len(res.ErrorMessages) != 1 || !strings.Contains(res.ErrorMessages[0], "failed to record alert history") {
		t.Fatalf("expected persistence failure surfaced, got %v", res.ErrorMessages)
	}
}

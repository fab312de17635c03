package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"floodshield/internal/domain"
	"floodshield/internal/observability"
	"floodshield/internal/store"
)

type Resolver interface {
	PhoneNumbers(ctx context.Context) ([]string, error)
	DeviceTokens(ctx context.Context, platforms []string) ([]string, error)
}

type SMSBroadcaster interface {
	Broadcast(ctx context.Context, recipients []string, message string) Outcome
}

type PushBroadcaster interface {
	Broadcast(ctx context.Context, tokens []string, title, body string) Outcome
}

type HistoryStore interface {
	InsertAlertHistory(ctx context.Context, in store.AlertHistoryInsert) error
	InsertAlertDeliveries(ctx context.Context, deliveries []store.AlertDelivery, now time.Time) error
}

// Orchestrator runs one operator broadcast start to finish: validate, resolve
// and dispatch every selected channel concurrently, wait for all of them to
// settle, aggregate, persist exactly one history entry, and return the
// consolidated result. Channels never block or cancel one another.
type Orchestrator struct {
	Resolver      Resolver
	SMS           SMSBroadcaster
	Push          PushBroadcaster
	PushPlatforms []string
	Store         HistoryStore

	NewAlertID func() string
	Now        func() time.Time
}

// Broadcast dispatches req on behalf of senderID. The returned error is only
// non-nil for pre-dispatch validation failures; dispatch-time errors are
// folded into the result and the persisted history entry.
func (o *Orchestrator) Broadcast(ctx context.Context, senderID string, req domain.BroadcastRequest) (domain.BroadcastResult, error) {
	if err := req.Validate(); err != nil {
		return domain.BroadcastResult{}, err
	}

	outcomes := o.dispatch(ctx, req)
	status := aggregate(outcomes)
	observability.Broadcasts.WithLabelValues(string(status)).Inc()

	result := domain.BroadcastResult{
		AlertID: o.NewAlertID(),
		Status:  status,
	}
	details := store.AlertDetails{Channels: make(map[string]store.ChannelCounts, len(outcomes))}
	for _, out := range outcomes {
		details.Channels[string(out.Channel)] = out.Counts()
		if out.Err != nil {
			msg := fmt.Sprintf("%s: %v", out.Channel, out.Err)
			result.ErrorMessages = append(result.ErrorMessages, msg)
			details.Errors = append(details.Errors, msg)
			continue
		}
		result.SuccessMessages = append(result.SuccessMessages, summarize(out))
		for _, e := range out.Errors {
			msg := fmt.Sprintf("%s: %s", out.Channel, e)
			result.ErrorMessages = append(result.ErrorMessages, msg)
			details.Errors = append(details.Errors, msg)
		}
	}

	if err := o.persist(ctx, senderID, req, result, details, outcomes); err != nil {
		result.ErrorMessages = append(result.ErrorMessages, "failed to record alert history: "+err.Error())
	}
	return result, nil
}

// dispatch runs every selected channel as a tagged concurrent task and joins
// on all of them settling, regardless of sibling failures.
func (o *Orchestrator) dispatch(ctx context.Context, req domain.BroadcastRequest) []Outcome {
	outcomes := make([]Outcome, len(req.Channels))

	var wg sync.WaitGroup
	for i, ch := range req.Channels {
		wg.Add(1)
		go func(i int, ch domain.Channel) {
			defer wg.Done()
			outcomes[i] = o.dispatchChannel(ctx, ch, req)
		}(i, ch)
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) dispatchChannel(ctx context.Context, ch domain.Channel, req domain.BroadcastRequest) Outcome {
	switch ch {
	case domain.ChannelSMSWhatsApp:
		recipients, err := o.Resolver.PhoneNumbers(ctx)
		if err != nil {
			return Outcome{Channel: ch, Err: err}
		}
		if len(recipients) == 0 {
			return Outcome{Channel: ch, NoRecipients: true}
		}
		return o.SMS.Broadcast(ctx, recipients, req.Message)

	case domain.ChannelPush:
		tokens, err := o.Resolver.DeviceTokens(ctx, o.PushPlatforms)
		if err != nil {
			return Outcome{Channel: ch, Err: err}
		}
		if len(tokens) == 0 {
			return Outcome{Channel: ch, NoRecipients: true}
		}
		return o.Push.Broadcast(ctx, tokens, req.Title, req.Message)

	default:
		return Outcome{Channel: ch, Err: fmt.Errorf("unknown channel %q", ch)}
	}
}

// aggregate applies the status law: sent iff every attempted channel settled
// without failures, failed iff no attempted channel had any success, and
// partial_success otherwise. A zero-recipient channel is succeeded-with-zero
// and never drags the status down by itself.
func aggregate(outcomes []Outcome) domain.AlertStatus {
	allClean := true
	anySuccess := false
	for _, out := range outcomes {
		if !out.Clean() {
			allClean = false
		}
		if out.anySuccess() {
			anySuccess = true
		}
	}
	switch {
	case allClean:
		return domain.StatusSent
	case !anySuccess:
		return domain.StatusFailed
	default:
		return domain.StatusPartialSuccess
	}
}

func summarize(out Outcome) string {
	switch out.Channel {
	case domain.ChannelSMSWhatsApp:
		if out.NoRecipients {
			return "SMS/WhatsApp: no recipients with a valid phone number."
		}
		return fmt.Sprintf("SMS/WhatsApp broadcast complete. Successful sends: %d. Failed: %d.", out.Succeeded, out.Failed)
	case domain.ChannelPush:
		if out.NoRecipients {
			return "Push: no recipients, no devices are registered."
		}
		return fmt.Sprintf("Push notification broadcast complete. Successful sends: %d. Failed: %d.", out.Succeeded, out.Failed)
	default:
		return fmt.Sprintf("%s broadcast complete. Successful sends: %d. Failed: %d.", out.Channel, out.Succeeded, out.Failed)
	}
}

// persist writes the single append-only history entry (and any provider-
// accepted delivery rows) after all channels settled. Messages are already
// out the door at this point, so persistence failures are reported on the
// result rather than failing the broadcast.
func (o *Orchestrator) persist(ctx context.Context, senderID string, req domain.BroadcastRequest, result domain.BroadcastResult, details store.AlertDetails, outcomes []Outcome) error {
	now := o.Now()

	channelsSent := make([]string, len(req.Channels))
	for i, ch := range req.Channels {
		channelsSent[i] = string(ch)
	}

	historyErr := o.Store.InsertAlertHistory(ctx, store.AlertHistoryInsert{
		ID:           result.AlertID,
		SenderID:     senderID,
		Title:        req.Title,
		Message:      req.Message,
		ChannelsSent: channelsSent,
		Status:       string(result.Status),
		Details:      details,
		Now:          now,
	})
	if historyErr != nil {
		slog.Error("insert alert history failed", "err", historyErr, "alert_id", result.AlertID)
	}

	var deliveries []store.AlertDelivery
	for _, out := range outcomes {
		for _, d := range out.Deliveries {
			d.AlertID = result.AlertID
			deliveries = append(deliveries, d)
		}
	}
	if len(deliveries) > 0 {
		if err := o.Store.InsertAlertDeliveries(ctx, deliveries, now); err != nil {
			slog.Error("insert alert deliveries failed", "err", err, "alert_id", result.AlertID, "count", len(deliveries))
		}
	}
	return historyErr
}

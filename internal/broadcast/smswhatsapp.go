package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"floodshield/internal/domain"
	"floodshield/internal/observability"
	"floodshield/internal/providers/twilio"
	"floodshield/internal/store"
)

// MessageClient is the Twilio surface the SMS/WhatsApp sender needs.
type MessageClient interface {
	Configured() bool
	WhatsAppConfigured() bool
	SendSMS(ctx context.Context, to, body string) (twilio.Result, error)
	SendWhatsApp(ctx context.Context, to, body string) (twilio.Result, error)
}

// SMSWhatsAppSender fans one message out to every recipient over SMS and,
// when a WhatsApp from-identity is configured, over WhatsApp as a second
// independent send. All sends are issued concurrently and collected without
// short-circuiting: one recipient's failure never blocks or cancels the rest.
type SMSWhatsAppSender struct {
	Client  MessageClient
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker

	// CallTimeout bounds each individual provider call.
	CallTimeout time.Duration
}

type smsTask struct {
	subChannel string // "sms" or "whatsapp"
	to         string
}

func (s *SMSWhatsAppSender) Broadcast(ctx context.Context, recipients []string, message string) Outcome {
	out := Outcome{Channel: domain.ChannelSMSWhatsApp}

	if !s.Client.Configured() {
		out.Err = errors.New("twilio credentials are not configured")
		return out
	}

	tasks := make([]smsTask, 0, len(recipients)*2)
	for _, to := range recipients {
		tasks = append(tasks, smsTask{subChannel: "sms", to: to})
		if s.Client.WhatsAppConfigured() {
			tasks = append(tasks, smsTask{subChannel: "whatsapp", to: to})
		}
	}
	out.Attempted = len(tasks)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, task := range tasks {
		wg.Add(1)
		go func(task smsTask) {
			defer wg.Done()
			res, err := s.sendOne(ctx, task, message)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed++
				out.Errors = append(out.Errors, fmt.Sprintf("%s to %s: %v", task.subChannel, task.to, err))
				return
			}
			out.Succeeded++
			out.Deliveries = append(out.Deliveries, store.AlertDelivery{
				Provider:      "twilio",
				ProviderMsgID: res.SID,
				Recipient:     task.to,
				State:         "submitted",
			})
		}(task)
	}
	wg.Wait()

	return out
}

func (s *SMSWhatsAppSender) sendOne(ctx context.Context, task smsTask, message string) (twilio.Result, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			observability.TwilioSend.WithLabelValues(task.subChannel, "rate_limited_local").Inc()
			return twilio.Result{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	call := func() (any, error) {
		callCtx := ctx
		if s.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
			defer cancel()
		}
		if task.subChannel == "whatsapp" {
			return s.Client.SendWhatsApp(callCtx, task.to, message)
		}
		return s.Client.SendSMS(callCtx, task.to, message)
	}

	start := time.Now()
	var (
		resAny any
		err    error
	)
	if s.Breaker != nil {
		resAny, err = s.Breaker.Execute(call)
	} else {
		resAny, err = call()
	}
	observability.TwilioLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.TwilioSend.WithLabelValues(task.subChannel, resultLabel(err)).Inc()
		return twilio.Result{}, err
	}
	observability.TwilioSend.WithLabelValues(task.subChannel, "ok").Inc()
	return resAny.(twilio.Result), nil
}

func resultLabel(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "cb_open"
	}
	var rej *twilio.RejectionError
	if errors.As(err, &rej) {
		return "rejected"
	}
	return "transport_error"
}

package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"floodshield/internal/domain"
	"floodshield/internal/observability"
)

// PushClient is the FCM surface the push sender needs.
type PushClient interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// PushSender delivers one notification to every registered device token,
// concurrently, collecting per-token outcomes. A provider rejection of a
// stale or malformed token is a per-token failure, never a channel failure.
type PushSender struct {
	Client PushClient

	// TokenRejected classifies a send error as a provider-side token
	// rejection (for metrics); optional.
	TokenRejected func(error) bool

	CallTimeout time.Duration
}

func (s *PushSender) Broadcast(ctx context.Context, tokens []string, title, body string) Outcome {
	out := Outcome{Channel: domain.ChannelPush, Attempted: len(tokens)}

	if s.Client == nil {
		out.Err = fmt.Errorf("push provider is not configured")
		out.Attempted = 0
		return out
	}

	data := map[string]string{
		"type":    "alert",
		"message": body,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()

			callCtx := ctx
			if s.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
				defer cancel()
			}
			_, err := s.Client.Send(callCtx, token, title, body, data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed++
				out.Errors = append(out.Errors, fmt.Sprintf("push to device %d: %v", i+1, err))
				if s.TokenRejected != nil && s.TokenRejected(err) {
					observability.PushSend.WithLabelValues("token_rejected").Inc()
				} else {
					observability.PushSend.WithLabelValues("error").Inc()
				}
				return
			}
			out.Succeeded++
			observability.PushSend.WithLabelValues("ok").Inc()
		}(i, token)
	}
	wg.Wait()

	return out
}

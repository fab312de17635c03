package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"floodshield/internal/observability"
	sqsqueue "floodshield/internal/queue/sqs"
	"floodshield/internal/util"
)

type WebhookQueue interface {
	Enqueue(ctx context.Context, ev sqsqueue.WebhookEvent) error
}

// Webhook receives Twilio delivery-status callbacks, verifies their signature
// and hands them off to the queue. Reconciliation against alert_deliveries
// happens in the processor, not here.
type Webhook struct {
	Queue           WebhookQueue
	VerifySignature func(authToken, fullURL, provided string, form url.Values) bool
	AuthToken       string
	PublicURL       string
}

func (w *Webhook) Register(mux *mux.Router) {
	mux.HandleFunc("/v1/webhooks/twilio/status", w.handleTwilioStatus).Methods(http.MethodPost)
}

func (w *Webhook) handleTwilioStatus(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, ErrBadForm, http.StatusBadRequest)
		return
	}
	if w.VerifySignature == nil || !w.VerifySignature(w.AuthToken, w.PublicURL, r.Header.Get("X-Twilio-Signature"), r.PostForm) {
		http.Error(rw, ErrInvalidSignature, http.StatusUnauthorized)
		return
	}

	msgSid := r.PostForm.Get("MessageSid")
	status := r.PostForm.Get("MessageStatus")
	errCode := r.PostForm.Get("ErrorCode")

	observability.WebhookEvents.WithLabelValues(status).Inc()

	err := w.Queue.Enqueue(r.Context(), sqsqueue.WebhookEvent{
		Provider:      "twilio",
		ProviderMsgID: msgSid,
		Status:        status,
		ErrorCode:     errCode,
		Payload:       r.PostForm,
		ReceivedAt:    util.NowUTC(),
	})
	if err != nil {
		slog.Error("webhook enqueue failed", "err", err, "message_sid", msgSid, "status", status)
		http.Error(rw, ErrDependency, http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(http.StatusOK)
}

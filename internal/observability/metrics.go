package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "floodshield_api_requests_total", Help: "API requests"},
		[]string{"route", "status"},
	)
	Broadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "floodshield_broadcasts_total", Help: "Alert broadcasts by overall status"},
		[]string{"status"},
	)
	TwilioSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "twilio_send_total", Help: "Twilio send outcomes"},
		[]string{"sub_channel", "result"},
	)
	TwilioLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "twilio_send_latency_seconds", Help: "Twilio send latency"},
	)
	PushSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fcm_send_total", Help: "FCM send outcomes"},
		[]string{"result"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "twilio_webhook_events_total", Help: "Delivery-status webhook events"},
		[]string{"status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, Broadcasts, TwilioSend, TwilioLatency, PushSend, WebhookEvents)
}

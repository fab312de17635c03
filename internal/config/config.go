package config

import "github.com/kelseyhightower/envconfig"

type APIConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	DBPoolMaxConns          int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBPoolMinConns          int32  `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	DBPoolMaxConnLifetime   string `envconfig:"DB_POOL_MAX_CONN_LIFETIME"`
	DBPoolMaxConnIdleTime   string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME"`
	DBPoolHealthCheckPeriod string `envconfig:"DB_POOL_HEALTH_CHECK_PERIOD"`

	// Phone normalization. India by default.
	DefaultCountryCode string `envconfig:"DEFAULT_COUNTRY_CODE" default:"91"`

	// Twilio (SMS + WhatsApp). The WhatsApp number is optional; when empty the
	// WhatsApp sub-channel is skipped.
	TwilioAccountSID     string  `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string  `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber     string  `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioWhatsAppNumber string  `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	TwilioBaseURL        string  `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`
	TwilioRPS            float64 `envconfig:"TWILIO_RPS" default:"5"`
	TwilioBurst          int     `envconfig:"TWILIO_BURST" default:"10"`

	// FCM v1 push (service-account credentials).
	FCMProjectID       string `envconfig:"FCM_PROJECT_ID"`
	FCMCredentialsJSON string `envconfig:"FCM_CREDENTIALS_JSON"`
	FCMCredentialsPath string `envconfig:"FCM_CREDENTIALS_PATH"`
	PushPlatforms      string `envconfig:"PUSH_PLATFORMS" default:"android"`

	// Status callback URL handed to Twilio on each send. Optional.
	StatusCallbackURL string `envconfig:"STATUS_CALLBACK_URL"`

	// Weather forecast proxy.
	OpenWeatherAPIKey  string `envconfig:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org"`

	// Location validation proxy. Viewbox bounds results to Tamil Nadu.
	NominatimBaseURL string `envconfig:"NOMINATIM_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	GeocodeViewbox   string `envconfig:"GEOCODE_VIEWBOX" default:"76.2,8.0,80.4,13.6"`
}

type WebhookConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// Twilio webhook signature verification. Must match the EXACT URL
	// configured in Twilio.
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN" required:"true"`
	PublicWebhookURL string `envconfig:"PUBLIC_WEBHOOK_URL" required:"true"`

	AWSRegion             string `envconfig:"AWS_REGION" required:"true"`
	WebhookEventsQueueURL string `envconfig:"WEBHOOK_EVENTS_QUEUE_URL" required:"true"`
	LocalstackEndpoint    string `envconfig:"LOCALSTACK_ENDPOINT"`
}

type WebhookProcessorConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	DBPoolMaxConns          int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBPoolMinConns          int32  `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	DBPoolMaxConnLifetime   string `envconfig:"DB_POOL_MAX_CONN_LIFETIME"`
	DBPoolMaxConnIdleTime   string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME"`
	DBPoolHealthCheckPeriod string `envconfig:"DB_POOL_HEALTH_CHECK_PERIOD"`

	AWSRegion             string `envconfig:"AWS_REGION" required:"true"`
	WebhookEventsQueueURL string `envconfig:"WEBHOOK_EVENTS_QUEUE_URL" required:"true"`
	LocalstackEndpoint    string `envconfig:"LOCALSTACK_ENDPOINT"`
	SQSWaitTime           int32  `envconfig:"SQS_WAIT_TIME" default:"20"`
	SQSMaxMsgs            int32  `envconfig:"SQS_MAX_MSGS" default:"10"`
	SQSVizTimeout         int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"60"`
	WorkerConcurrency     int    `envconfig:"WORKER_CONCURRENCY" default:"10"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWebhookProcessor() WebhookProcessorConfig {
	var cfg WebhookProcessorConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"floodshield/internal/auth"
	"floodshield/internal/broadcast"
	"floodshield/internal/config"
	"floodshield/internal/httpserver"
	"floodshield/internal/logging"
	"floodshield/internal/observability"
	"floodshield/internal/providers/fcm"
	"floodshield/internal/providers/nominatim"
	"floodshield/internal/providers/openweather"
	"floodshield/internal/providers/twilio"
	"floodshield/internal/recipients"
	"floodshield/internal/store/pg"
	"floodshield/internal/util"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{
		MaxConns:          cfg.DBPoolMaxConns,
		MinConns:          cfg.DBPoolMinConns,
		MaxConnLifetime:   cfg.DBPoolMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBPoolMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBPoolHealthCheckPeriod,
	})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	dbStore := pg.New(db)

	observability.Register(prometheus.DefaultRegisterer)

	twilioClient := &twilio.Client{
		AccountSID:         cfg.TwilioAccountSID,
		AuthToken:          cfg.TwilioAuthToken,
		FromNumber:         cfg.TwilioFromNumber,
		WhatsAppFromNumber: cfg.TwilioWhatsAppNumber,
		BaseURL:            cfg.TwilioBaseURL,
		StatusCallbackURL:  cfg.StatusCallbackURL,
		HTTP:               &http.Client{Timeout: 15 * time.Second},
	}
	smsSender := &broadcast.SMSWhatsAppSender{
		Client:      twilioClient,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.TwilioRPS), cfg.TwilioBurst),
		Breaker:     gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "twilio"}),
		CallTimeout: 10 * time.Second,
	}

	pushSender := &broadcast.PushSender{
		TokenRejected: fcm.IsTokenRejected,
		CallTimeout:   10 * time.Second,
	}
	fcmCfg := fcm.Config{
		ProjectID:       cfg.FCMProjectID,
		CredentialsJSON: cfg.FCMCredentialsJSON,
		CredentialsPath: cfg.FCMCredentialsPath,
	}
	if fcmCfg.Configured() {
		fcmClient, err := fcm.NewClient(ctx, fcmCfg)
		if err != nil {
			slog.Error("api fcm client init failed", "err", err)
			os.Exit(1)
		}
		pushSender.Client = fcmClient
	}

	orchestrator := &broadcast.Orchestrator{
		Resolver: &recipients.Resolver{
			Store:              dbStore,
			DefaultCountryCode: cfg.DefaultCountryCode,
		},
		SMS:           smsSender,
		Push:          pushSender,
		PushPlatforms: strings.Split(cfg.PushPlatforms, ","),
		Store:         dbStore,
		NewAlertID:    util.NewAlertID,
		Now:           util.NowUTC,
	}

	s := httpserver.New()
	api := &httpserver.API{
		Auth:        &auth.Authenticator{Store: dbStore},
		Broadcaster: orchestrator,
		Store:       dbStore,
		Weather: &openweather.Client{
			APIKey:  cfg.OpenWeatherAPIKey,
			BaseURL: cfg.OpenWeatherBaseURL,
			HTTP:    &http.Client{Timeout: 10 * time.Second},
		},
		Geocoder: &nominatim.Client{
			BaseURL:   cfg.NominatimBaseURL,
			UserAgent: "floodshield-api",
			Viewbox:   cfg.GeocodeViewbox,
			HTTP:      &http.Client{Timeout: 10 * time.Second},
		},
		NewIssueID: util.NewIssueID,
		Now:        util.NowUTC,
	}
	api.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpserver.Healthz()).Methods(http.MethodGet)
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	})).Methods(http.MethodGet)

	s.Mux.Use(httpserver.Metrics(observability.APIRequests))

	handler := httpserver.Logging(s.Mux)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}

	go func() {
		slog.Info("api metrics listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}
}

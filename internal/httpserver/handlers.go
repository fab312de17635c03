package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"floodshield/internal/auth"
	"floodshield/internal/domain"
	"floodshield/internal/providers/nominatim"
	"floodshield/internal/providers/openweather"
	"floodshield/internal/store"
)

const defaultListLimit = 100

type Broadcaster interface {
	Broadcast(ctx context.Context, senderID string, req domain.BroadcastRequest) (domain.BroadcastResult, error)
}

type APIStore interface {
	ListAlertHistory(ctx context.Context, limit int) ([]store.AlertHistoryEntry, error)
	InsertIssue(ctx context.Context, in store.IssueInsert) error
	ListIssues(ctx context.Context, limit int) ([]store.Issue, error)
	UpdateIssueStatus(ctx context.Context, issueID, status string, now time.Time) (bool, error)
	GetSiteConfig(ctx context.Context) (store.SiteConfig, error)
	UpdateSiteConfig(ctx context.Context, active bool, now time.Time) error
	UpsertDeviceToken(ctx context.Context, in store.DeviceTokenUpsert) error
	DeleteDeviceToken(ctx context.Context, userID, token string) (bool, error)
}

type WeatherClient interface {
	Forecast(ctx context.Context, q openweather.Query) (openweather.Forecast, error)
}

type GeocodeClient interface {
	Validate(ctx context.Context, location string) (nominatim.Result, error)
}

type API struct {
	Auth        *auth.Authenticator
	Broadcaster Broadcaster
	Store       APIStore
	Weather     WeatherClient
	Geocoder    GeocodeClient

	NewIssueID func() string
	Now        func() time.Time
}

func (a *API) Register(mux *mux.Router) {
	mux.HandleFunc("/v1/alerts/broadcast", a.handleBroadcast).Methods(http.MethodPost)
	mux.HandleFunc("/v1/alerts/history", a.handleAlertHistory).Methods(http.MethodGet)

	mux.HandleFunc("/v1/issues", a.handleCreateIssue).Methods(http.MethodPost)
	mux.HandleFunc("/v1/issues", a.handleListIssues).Methods(http.MethodGet)
	mux.HandleFunc("/v1/issues/{id}/status", a.handleUpdateIssueStatus).Methods(http.MethodPatch)

	mux.HandleFunc("/v1/site-config", a.handleGetSiteConfig).Methods(http.MethodGet)
	mux.HandleFunc("/v1/site-config", a.handlePutSiteConfig).Methods(http.MethodPut)

	mux.HandleFunc("/v1/device-tokens", a.handleRegisterDeviceToken).Methods(http.MethodPost)
	mux.HandleFunc("/v1/device-tokens", a.handleDeleteDeviceToken).Methods(http.MethodDelete)

	mux.HandleFunc("/v1/weather/forecast", a.handleWeatherForecast).Methods(http.MethodGet)
	mux.HandleFunc("/v1/locations/validate", a.handleValidateLocation).Methods(http.MethodPost)
}

// identify maps auth failures to HTTP and reports whether the caller may proceed.
func (a *API) identify(w http.ResponseWriter, r *http.Request) (store.Profile, bool) {
	profile, err := a.Auth.Identify(r.Context(), r)
	if err != nil {
		writeAuthError(w, err)
		return store.Profile{}, false
	}
	return profile, true
}

func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (store.Profile, bool) {
	profile, err := a.Auth.RequireAdmin(r.Context(), r)
	if err != nil {
		writeAuthError(w, err)
		return store.Profile{}, false
	}
	return profile, true
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, ErrForbidden, http.StatusForbidden)
	default:
		slog.Error("auth lookup failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}

	var req domain.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	result, err := a.Broadcaster.Broadcast(r.Context(), admin.ID, req)
	if err != nil {
		if domain.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("broadcast failed", "err", err, "sender_id", admin.ID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	entries, err := a.Store.ListAlertHistory(r.Context(), listLimit(r))
	if err != nil {
		slog.Error("list alert history failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if entries == nil {
		entries = []store.AlertHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type createIssueRequest struct {
	IssueType   string   `json:"issueType"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	PhotoURL    string   `json:"photoUrl"`
}

func (a *API) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.identify(w, r)
	if !ok {
		return
	}

	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	if len(strings.TrimSpace(req.Location)) < 5 {
		http.Error(w, "location must be at least 5 characters", http.StatusBadRequest)
		return
	}
	switch req.IssueType {
	case "waterlogging", "blocked-drain", "damaged-infra", "other":
	case "flood":
		cfg, err := a.Store.GetSiteConfig(r.Context())
		if err != nil {
			slog.Error("site config lookup failed", "err", err)
			http.Error(w, ErrDependency, http.StatusBadGateway)
			return
		}
		if !cfg.IsFloodSeasonActive {
			http.Error(w, "flood reports are only accepted while flood season is active", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "unknown issue type", http.StatusBadRequest)
		return
	}

	id := a.NewIssueID()
	err := a.Store.InsertIssue(r.Context(), store.IssueInsert{
		ID:          id,
		UserID:      caller.ID,
		IssueType:   req.IssueType,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Lat:         req.Lat,
		Lng:         req.Lng,
		PhotoURL:    req.PhotoURL,
		Now:         a.Now(),
	})
	if err != nil {
		slog.Error("insert issue failed", "err", err, "user_id", caller.ID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "reported"})
}

func (a *API) handleListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := a.Store.ListIssues(r.Context(), listLimit(r))
	if err != nil {
		slog.Error("list issues failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if issues == nil {
		issues = []store.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (a *API) handleUpdateIssueStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	switch req.Status {
	case "reported", "in_progress", "resolved":
	default:
		http.Error(w, "unknown issue status", http.StatusBadRequest)
		return
	}

	updated, err := a.Store.UpdateIssueStatus(r.Context(), id, req.Status, a.Now())
	if err != nil {
		slog.Error("update issue status failed", "err", err, "id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !updated {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

func (a *API) handleGetSiteConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.Store.GetSiteConfig(r.Context())
	if err != nil {
		slog.Error("get site config failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (a *API) handlePutSiteConfig(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var req struct {
		IsFloodSeasonActive bool `json:"isFloodSeasonActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if err := a.Store.UpdateSiteConfig(r.Context(), req.IsFloodSeasonActive, a.Now()); err != nil {
		slog.Error("update site config failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isFloodSeasonActive": req.IsFloodSeasonActive})
}

type deviceTokenRequest struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

func (a *API) handleRegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req deviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	if req.Platform == "" {
		req.Platform = "android"
	}
	err := a.Store.UpsertDeviceToken(r.Context(), store.DeviceTokenUpsert{
		UserID:   caller.ID,
		Platform: req.Platform,
		Token:    req.Token,
		Now:      a.Now(),
	})
	if err != nil {
		slog.Error("upsert device token failed", "err", err, "user_id", caller.ID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteDeviceToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.identify(w, r)
	if !ok {
		return
	}
	var req deviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	deleted, err := a.Store.DeleteDeviceToken(r.Context(), caller.ID, req.Token)
	if err != nil {
		slog.Error("delete device token failed", "err", err, "user_id", caller.ID)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !deleted {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forecastResponse struct {
	City  openweather.City           `json:"city"`
	List  []openweather.Sample       `json:"list"`
	Daily []openweather.DailySummary `json:"daily"`
}

func (a *API) handleWeatherForecast(w http.ResponseWriter, r *http.Request) {
	var q openweather.Query
	if loc := r.URL.Query().Get("location"); loc != "" {
		q.Location = loc
	} else {
		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		if latErr != nil || lngErr != nil {
			http.Error(w, "location or lat/lng query parameters are required", http.StatusBadRequest)
			return
		}
		q.Lat, q.Lng = lat, lng
	}

	forecast, err := a.Weather.Forecast(r.Context(), q)
	if err != nil {
		slog.Error("weather forecast failed", "err", err, "location", q.Location)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, forecastResponse{
		City:  forecast.City,
		List:  forecast.List,
		Daily: openweather.Summarize(forecast.List),
	})
}

func (a *API) handleValidateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	result, err := a.Geocoder.Validate(r.Context(), req.Location)
	if err != nil {
		slog.Error("location validation failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > defaultListLimit {
		return defaultListLimit
	}
	return n
}

package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"floodshield/internal/store"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// UserIDBySessionToken resolves a bearer session token to a user id. Expired
// sessions are treated as not found.
func (s *Store) UserIDBySessionToken(ctx context.Context, token string) (string, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT user_id FROM sessions WHERE token=$1 AND expires_at > now()
	`, token)
	var userID string
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (store.Profile, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT id, COALESCE(first_name,''), COALESCE(last_name,''), COALESCE(phone,''),
		       COALESCE(home_location,''), role, COALESCE(avatar_url,''), created_at
		FROM profiles WHERE id=$1
	`, userID)
	var p store.Profile
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Phone, &p.HomeLocation, &p.Role, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Profile{}, false, nil
		}
		return store.Profile{}, false, err
	}
	return p, true, nil
}

// ProfilePhones returns the raw phone strings of every profile with a
// non-empty phone field. Normalization happens at send time.
func (s *Store) ProfilePhones(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT phone FROM profiles WHERE phone IS NOT NULL AND phone <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, err
		}
		phones = append(phones, phone)
	}
	return phones, rows.Err()
}

func (s *Store) DeviceTokensByPlatform(ctx context.Context, platforms []string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT token FROM device_tokens WHERE platform = ANY($1)
	`, platforms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// UpsertDeviceToken registers a push token. A token value is unique; replacing
// it reassigns it to the upserting user.
func (s *Store) UpsertDeviceToken(ctx context.Context, in store.DeviceTokenUpsert) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO device_tokens (user_id, platform, token, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (token) DO UPDATE SET user_id=$1, platform=$2
	`, in.UserID, in.Platform, in.Token, in.Now)
	return err
}

func (s *Store) DeleteDeviceToken(ctx context.Context, userID, token string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		DELETE FROM device_tokens WHERE user_id=$1 AND token=$2
	`, userID, token)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) InsertAlertHistory(ctx context.Context, in store.AlertHistoryInsert) error {
	details, err := json.Marshal(in.Details)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO alert_history (id, sender_id, title, message, channels_sent, status, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, in.ID, in.SenderID, nullIfEmpty(in.Title), in.Message, in.ChannelsSent, in.Status, details, in.Now)
	return err
}

// ListAlertHistory returns history entries joined with the sender's name
// parts, newest first.
func (s *Store) ListAlertHistory(ctx context.Context, limit int) ([]store.AlertHistoryEntry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT a.id, a.created_at, a.sender_id,
		       COALESCE(p.first_name,''), COALESCE(p.last_name,''),
		       COALESCE(a.title,''), a.message, a.channels_sent, a.status, a.details
		FROM alert_history a
		LEFT JOIN profiles p ON p.id = a.sender_id
		ORDER BY a.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []store.AlertHistoryEntry
	for rows.Next() {
		var e store.AlertHistoryEntry
		var details []byte
		err := rows.Scan(&e.ID, &e.CreatedAt, &e.SenderID, &e.SenderFirstName, &e.SenderLastName,
			&e.Title, &e.Message, &e.ChannelsSent, &e.Status, &details)
		if err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) InsertAlertDeliveries(ctx context.Context, deliveries []store.AlertDelivery, now time.Time) error {
	for _, d := range deliveries {
		_, err := s.DB.Exec(ctx, `
			INSERT INTO alert_deliveries (alert_id, provider, provider_msg_id, recipient, state, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (provider, provider_msg_id) DO NOTHING
		`, d.AlertID, d.Provider, d.ProviderMsgID, d.Recipient, d.State, now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertDeliveryEvent(ctx context.Context, in store.DeliveryEvent) error {
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO delivery_events (provider, provider_msg_id, vendor_status, error_code, payload_json, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, in.Provider, in.ProviderMsgID, in.VendorStatus, nullIfEmpty(in.ErrorCode), payload, in.OccurredAt)
	return err
}

func (s *Store) UpdateDeliveryByProviderMsgID(ctx context.Context, in store.DeliveryStateUpdate) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE alert_deliveries
		SET state=$3, error_code=$4, updated_at=$5
		WHERE provider=$1 AND provider_msg_id=$2
	`, in.Provider, in.ProviderMsgID, in.NewState, nullIfEmpty(in.ErrorCode), in.Now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) InsertIssue(ctx context.Context, in store.IssueInsert) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO issues (id, user_id, issue_type, location, description, lat, lng, photo_url, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'reported',$9,$9)
	`, in.ID, in.UserID, in.IssueType, in.Location, nullIfEmpty(in.Description), in.Lat, in.Lng, nullIfEmpty(in.PhotoURL), in.Now)
	return err
}

func (s *Store) ListIssues(ctx context.Context, limit int) ([]store.Issue, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT i.id, i.user_id, COALESCE(p.first_name,''), COALESCE(p.last_name,''),
		       i.issue_type, i.location, COALESCE(i.description,''), i.lat, i.lng,
		       COALESCE(i.photo_url,''), i.status, i.created_at, i.updated_at
		FROM issues i
		LEFT JOIN profiles p ON p.id = i.user_id
		ORDER BY i.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []store.Issue
	for rows.Next() {
		var i store.Issue
		err := rows.Scan(&i.ID, &i.UserID, &i.ReporterFirstName, &i.ReporterLastName,
			&i.IssueType, &i.Location, &i.Description, &i.Lat, &i.Lng,
			&i.PhotoURL, &i.Status, &i.CreatedAt, &i.UpdatedAt)
		if err != nil {
			return nil, err
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

func (s *Store) UpdateIssueStatus(ctx context.Context, issueID, status string, now time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE issues SET status=$2, updated_at=$3 WHERE id=$1
	`, issueID, status, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) GetSiteConfig(ctx context.Context) (store.SiteConfig, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT is_flood_season_active, updated_at FROM site_config WHERE id=1
	`)
	var cfg store.SiteConfig
	if err := row.Scan(&cfg.IsFloodSeasonActive, &cfg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SiteConfig{}, nil
		}
		return store.SiteConfig{}, err
	}
	return cfg, nil
}

func (s *Store) UpdateSiteConfig(ctx context.Context, active bool, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO site_config (id, is_flood_season_active, updated_at)
		VALUES (1,$1,$2)
		ON CONFLICT (id) DO UPDATE SET is_flood_season_active=$1, updated_at=$2
	`, active, now)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

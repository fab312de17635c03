package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"floodshield/internal/domain"
	"floodshield/internal/store"
)

type Store interface {
	UserIDBySessionToken(ctx context.Context, token string) (string, bool, error)
	GetProfile(ctx context.Context, userID string) (store.Profile, bool, error)
}

// Authenticator resolves bearer session tokens to profiles. There is no
// caching: the admin check runs against the profile record on every call.
type Authenticator struct {
	Store Store
}

// Identify resolves the Authorization header of a request to a profile.
// Returns domain.ErrUnauthorized when the token is missing, unknown or expired.
func (a *Authenticator) Identify(ctx context.Context, r *http.Request) (store.Profile, error) {
	token := bearerToken(r)
	if token == "" {
		return store.Profile{}, domain.ErrUnauthorized
	}

	userID, found, err := a.Store.UserIDBySessionToken(ctx, token)
	if err != nil {
		return store.Profile{}, fmt.Errorf("session lookup: %w", err)
	}
	if !found {
		return store.Profile{}, domain.ErrUnauthorized
	}

	profile, found, err := a.Store.GetProfile(ctx, userID)
	if err != nil {
		return store.Profile{}, fmt.Errorf("profile lookup: %w", err)
	}
	if !found {
		return store.Profile{}, domain.ErrUnauthorized
	}
	return profile, nil
}

// RequireAdmin is Identify plus a role gate. A valid session with a non-admin
// role yields domain.ErrForbidden.
func (a *Authenticator) RequireAdmin(ctx context.Context, r *http.Request) (store.Profile, error) {
	profile, err := a.Identify(ctx, r)
	if err != nil {
		return store.Profile{}, err
	}
	if profile.Role != "admin" {
		return store.Profile{}, domain.ErrForbidden
	}
	return profile, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

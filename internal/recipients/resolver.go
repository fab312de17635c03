package recipients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Store interface {
	ProfilePhones(ctx context.Context) ([]string, error)
	DeviceTokensByPlatform(ctx context.Context, platforms []string) ([]string, error)
}

// Resolver produces the current recipient set for a channel at dispatch time.
type Resolver struct {
	Store Store

	// DefaultCountryCode is the calling code prepended to bare 10-digit
	// numbers, e.g. "91" for India.
	DefaultCountryCode string
}

// PhoneNumbers returns the deduplicated E.164 numbers of every profile with a
// phone on record. Unresolvable entries are logged and dropped; they never
// fail the batch. An empty result means "no recipients", not an error.
func (r *Resolver) PhoneNumbers(ctx context.Context) ([]string, error) {
	raw, err := r.Store.ProfilePhones(ctx)
	if err != nil {
		return nil, fmt.Errorf("query profiles with phone: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	numbers := make([]string, 0, len(raw))
	for _, phone := range raw {
		normalized, ok := NormalizePhone(phone, r.DefaultCountryCode)
		if !ok {
			slog.Warn("dropping unresolvable phone number", "raw_len", len(phone))
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		numbers = append(numbers, normalized)
	}
	return numbers, nil
}

// DeviceTokens returns the raw push tokens registered for the given platform
// tags, no transformation applied.
func (r *Resolver) DeviceTokens(ctx context.Context, platforms []string) ([]string, error) {
	tokens, err := r.Store.DeviceTokensByPlatform(ctx, platforms)
	if err != nil {
		return nil, fmt.Errorf("query device tokens: %w", err)
	}
	return tokens, nil
}

// NormalizePhone converts a free-text phone entry to E.164:
//
//	exactly 10 digits            -> +<countryCode><digits>
//	12 digits with code prefix   -> +<digits>
//	already starts with "+"      -> unchanged
//	anything else                -> unresolvable
func NormalizePhone(raw, countryCode string) (string, bool) {
	digits := stripNonDigits(raw)

	if len(digits) == 10 {
		return "+" + countryCode + digits, true
	}
	if len(digits) == 12 && strings.HasPrefix(digits, countryCode) {
		return "+" + digits, true
	}
	if strings.HasPrefix(raw, "+") {
		return raw, true
	}
	return "", false
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

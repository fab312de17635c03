package recipients

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeStore struct {
	phones    []string
	phonesErr error
	tokens    []string
	tokensErr error

	gotPlatforms []string
}

func (f *fakeStore) ProfilePhones(ctx context.Context) ([]string, error) {
	return f.phones, f.phonesErr
}

func (f *fakeStore) DeviceTokensByPlatform(ctx context.Context, platforms []string) ([]string, error) {
	f.gotPlatforms = platforms
	return f.tokens, f.tokensErr
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"9876543210", "+919876543210", true},
		{"98765 43210", "+919876543210", true},
		{"919876543210", "+919876543210", true},
		{"+919876543210", "+919876543210", true},
		{"+14155552671", "+14155552671", true},
		{"12345", "", false},
		{"", "", false},
		{"not a phone", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizePhone(c.raw, "91")
		if ok != c.ok || got != c.want {
			t.Fatalf("NormalizePhone(%q) = %q, %v; want %q, %v", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	first, ok := NormalizePhone("9876543210", "91")
	if !ok {
		t.Fatalf("expected resolvable number")
	}
	second, ok := NormalizePhone(first, "91")
	if !ok || second != first {
		t.Fatalf("expected idempotent normalization, got %q then %q", first, second)
	}
}

func TestPhoneNumbersDedupesAndDrops(t *testing.T) {
	store := &fakeStore{phones: []string{
		"9876543210",
		"+919876543210", // same number, different spelling
		"919876543210",  // again
		"bad",
		"9000000001",
	}}
	r := &Resolver{Store: store, DefaultCountryCode: "91"}

	got, err := r.PhoneNumbers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"+919876543210", "+919000000001"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPhoneNumbersStoreError(t *testing.T) {
	r := &Resolver{Store: &fakeStore{phonesErr: errors.New("db down")}, DefaultCountryCode: "91"}
	if _, err := r.PhoneNumbers(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDeviceTokensPassesPlatforms(t *testing.T) {
	store := &fakeStore{tokens: []string{"tok1", "tok2"}}
	r := &Resolver{Store: store}

	got, err := r.DeviceTokens(context.Background(), []string{"android", "ios"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(got))
	}
	if !reflect.DeepEqual(store.gotPlatforms, []string{"android", "ios"}) {
		t.Fatalf("platforms not passed through: %v", store.gotPlatforms)
	}
}

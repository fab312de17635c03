package fcm

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Config carries FCM v1 credentials. The service-account credentials drive
// OAuth2 token exchange inside the SDK; no legacy server key is involved.
type Config struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsPath string
}

// Configured reports whether enough credentials are present to build a client.
func (c Config) Configured() bool {
	return c.ProjectID != "" && (c.CredentialsJSON != "" || c.CredentialsPath != "")
}

// Client wraps the Firebase messaging client. Constructed explicitly and
// injected; no ambient module-level state.
type Client struct {
	messaging *messaging.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsPath != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	default:
		return nil, errors.New("fcm credentials not provided")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create fcm messaging client: %w", err)
	}
	return &Client{messaging: client}, nil
}

// Send delivers one notification to one device token and returns the provider
// message id.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	return c.messaging.Send(ctx, msg)
}

// IsTokenRejected reports whether err is a provider-side rejection of the
// token itself (stale or malformed registration) rather than a transport or
// auth failure.
func IsTokenRejected(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err)
}

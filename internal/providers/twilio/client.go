package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	AccountSID string
	AuthToken  string
	HTTP       *http.Client

	FromNumber         string
	WhatsAppFromNumber string
	BaseURL            string

	// StatusCallbackURL, when set, is passed on every send so Twilio posts
	// delivery-status callbacks for it.
	StatusCallbackURL string
}

// Configured reports whether the account credentials and SMS from-number are
// present. Checked before any send attempt.
func (c *Client) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// WhatsAppConfigured reports whether a WhatsApp-capable from identity is set.
func (c *Client) WhatsAppConfigured() bool {
	return c.WhatsAppFromNumber != ""
}

// Result is a successful provider acceptance of one message.
type Result struct {
	SID        string
	Status     string
	HTTPStatus int
}

// RejectionError is a well-formed provider response whose content indicates
// the message was rejected. Distinct from transport failures, which surface
// as plain wrapped errors.
type RejectionError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twilio rejected send (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("twilio rejected send: http %d", e.HTTPStatus)
}

// SendSMS submits one SMS message.
func (c *Client) SendSMS(ctx context.Context, to, body string) (Result, error) {
	return c.send(ctx, to, c.FromNumber, body)
}

// SendWhatsApp submits one WhatsApp message. Twilio addresses WhatsApp
// endpoints as "whatsapp:<E.164>" on both sides.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (Result, error) {
	return c.send(ctx, "whatsapp:"+to, "whatsapp:"+c.WhatsAppFromNumber, body)
}

type apiResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	ErrorCode *int   `json:"error_code"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}

func (c *Client) send(ctx context.Context, to, from, body string) (Result, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)
	if c.StatusCallbackURL != "" {
		form.Set("StatusCallback", c.StatusCallbackURL)
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	endpoint := baseURL + "/2010-04-01/Accounts/" + c.AccountSID + "/Messages.json"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out apiResponse
	_ = json.Unmarshal(raw, &out)

	// Twilio returns 201 for created; treat any 2xx as accepted.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &RejectionError{
			HTTPStatus: resp.StatusCode,
			Code:       out.Code,
			Message:    out.Message,
		}
	}
	return Result{SID: out.Sid, Status: out.Status, HTTPStatus: resp.StatusCode}, nil
}

package domain

import "strings"

// Channel identifies one delivery mechanism for a broadcast.
type Channel string

const (
	ChannelSMSWhatsApp Channel = "sms_whatsapp"
	ChannelPush        Channel = "push"
)

// AlertStatus is the overall outcome of a broadcast across all attempted channels.
type AlertStatus string

const (
	StatusSent           AlertStatus = "sent"
	StatusPartialSuccess AlertStatus = "partial_success"
	StatusFailed         AlertStatus = "failed"
)

// BroadcastRequest is an operator-submitted alert. Title is only required when
// the push channel is selected.
type BroadcastRequest struct {
	Title    string    `json:"title,omitempty"`
	Message  string    `json:"message"`
	Channels []Channel `json:"channels"`
}

func (r BroadcastRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if len(r.Channels) == 0 {
		return ErrNoChannels
	}
	for _, ch := range r.Channels {
		switch ch {
		case ChannelSMSWhatsApp, ChannelPush:
		default:
			return ErrUnknownChannel
		}
		if ch == ChannelPush && strings.TrimSpace(r.Title) == "" {
			return ErrTitleRequired
		}
	}
	return nil
}

// HasChannel reports whether the request selected the given channel.
func (r BroadcastRequest) HasChannel(ch Channel) bool {
	for _, c := range r.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// BroadcastResult is the consolidated response returned to the operator.
type BroadcastResult struct {
	AlertID         string      `json:"alertId"`
	Status          AlertStatus `json:"status"`
	SuccessMessages []string    `json:"successMessages"`
	ErrorMessages   []string    `json:"errorMessages,omitempty"`
}

package store

import "time"

type Profile struct {
	ID           string
	FirstName    string
	LastName     string
	Phone        string
	HomeLocation string
	Role         string
	AvatarURL    string
	CreatedAt    time.Time
}

// DisplayName joins the name parts, falling back to "Unknown" when both are empty.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	default:
		return "Unknown"
	}
}

type DeviceToken struct {
	ID        string
	UserID    string
	Platform  string
	Token     string
	CreatedAt time.Time
}

type DeviceTokenUpsert struct {
	UserID   string
	Platform string
	Token    string
	Now      time.Time
}

// ChannelCounts is the per-channel tally stored in an alert's details blob.
type ChannelCounts struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// AlertDetails is the jsonb details blob persisted with each history entry.
type AlertDetails struct {
	Channels map[string]ChannelCounts `json:"channels"`
	Errors   []string                 `json:"errors,omitempty"`
}

type AlertHistoryInsert struct {
	ID           string
	SenderID     string
	Title        string
	Message      string
	ChannelsSent []string
	Status       string
	Details      AlertDetails
	Now          time.Time
}

// AlertHistoryEntry is a history row joined with the sender's name parts.
type AlertHistoryEntry struct {
	ID              string       `json:"id"`
	CreatedAt       time.Time    `json:"createdAt"`
	SenderID        string       `json:"senderId"`
	SenderFirstName string       `json:"senderFirstName"`
	SenderLastName  string       `json:"senderLastName"`
	Title           string       `json:"title,omitempty"`
	Message         string       `json:"message"`
	ChannelsSent    []string     `json:"channelsSent"`
	Status          string       `json:"status"`
	Details         AlertDetails `json:"details"`
}

// AlertDelivery is one accepted provider send for a broadcast, reconciled
// later by delivery-status callbacks.
type AlertDelivery struct {
	AlertID       string
	Provider      string
	ProviderMsgID string
	Recipient     string
	State         string
}

type DeliveryEvent struct {
	Provider      string
	ProviderMsgID string
	VendorStatus  string
	ErrorCode     string
	Payload       any
	OccurredAt    *time.Time
}

type DeliveryStateUpdate struct {
	Provider      string
	ProviderMsgID string
	NewState      string
	ErrorCode     string
	Now           time.Time
}

type IssueInsert struct {
	ID          string
	UserID      string
	IssueType   string
	Location    string
	Description string
	Lat         *float64
	Lng         *float64
	PhotoURL    string
	Now         time.Time
}

type Issue struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	ReporterFirstName string    `json:"reporterFirstName"`
	ReporterLastName  string    `json:"reporterLastName"`
	IssueType         string    `json:"issueType"`
	Location          string    `json:"location"`
	Description       string    `json:"description,omitempty"`
	Lat               *float64  `json:"lat,omitempty"`
	Lng               *float64  `json:"lng,omitempty"`
	PhotoURL          string    `json:"photoUrl,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type SiteConfig struct {
	IsFloodSeasonActive bool      `json:"isFloodSeasonActive"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

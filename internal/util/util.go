package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewAlertID returns a sortable id for an alert broadcast.
func NewAlertID() string {
	t := time.Now().UTC()
	return "alert_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// NewIssueID returns a sortable id for a reported issue.
func NewIssueID() string {
	t := time.Now().UTC()
	return "issue_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

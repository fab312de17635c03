package broadcast

import (
	"floodshield/internal/domain"
	"floodshield/internal/store"
)

// Outcome is the settled result of one channel's dispatch. A channel-wide
// failure (missing credentials, recipient resolution error) sets Err; per-
// recipient failures only increment Failed and append to Errors.
type Outcome struct {
	Channel      domain.Channel
	Attempted    int
	Succeeded    int
	Failed       int
	Errors       []string
	NoRecipients bool
	Err          error

	// Deliveries are provider-accepted sends, later reconciled against
	// delivery-status callbacks. AlertID is filled by the orchestrator.
	Deliveries []store.AlertDelivery
}

// Counts folds the outcome into the persisted per-channel tally.
func (o Outcome) Counts() store.ChannelCounts {
	return store.ChannelCounts{Attempted: o.Attempted, Succeeded: o.Succeeded, Failed: o.Failed}
}

// Clean reports whether the channel settled without any failure. A channel
// that resolved zero recipients is clean.
func (o Outcome) Clean() bool {
	return o.Err == nil && o.Failed == 0
}

// Succeeded-with-something: used by the aggregation law to decide between
// failed and partial_success.
func (o Outcome) anySuccess() bool {
	return o.Err == nil && (o.Succeeded > 0 || o.Failed == 0)
}

// Package notify delivers "someone was just here" emails.
package notify

import (
	"context"
	"time"
)

// PingEmail is one dispatch worth of mail: a single message body sent to
// each recipient separately.
type PingEmail struct {
	PlaceName  string
	PlaceURL   string
	ExpiresAt  time.Time
	Mood       string
	Recipients []string
}

// Transport attempts delivery to every recipient. A failure for one
// recipient must not stop delivery to the rest; the returned error
// aggregates all per-recipient failures (see multierr.Errors).
type Transport interface {
	Send(ctx context.Context, msg PingEmail) error
}

// RecipientError ties a delivery failure to its address.
type RecipientError struct {
	Recipient string
	Err       error
}

func (e *RecipientError) Error() string { return "deliver to " + e.Recipient + ": " + e.Err.Error() }
func (e *RecipientError) Unwrap() error { return e.Err }

package models

import "time"

const (
	TypeTrial = "trial"
	TypeFull  = "full"
)

// License binds one Product to one Consumer. Key is the opaque token
// presented by clients; Version backs compare-and-swap updates so
// concurrent toggle/upgrade calls on the same record cannot silently
// overwrite each other.
type License struct {
	ID         string     `json:"id"`
	Key        string     `json:"licenseKey"`
	ProductID  string     `json:"productId"`
	ConsumerID string     `json:"consumerId"`
	Type       string     `json:"licenseType"`
	Expires    *time.Time `json:"expires"`
	Active     bool       `json:"active"`
	Version    int64      `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// ValidType reports whether t is one of the two permitted license types.
func ValidType(t string) bool {
	return t == TypeTrial || t == TypeFull
}

// Expired reports whether the license's expiry is set and strictly
// before now. A nil Expires means the license never expires.
func (l *License) Expired(now time.Time) bool {
	return l.Expires != nil && l.Expires.Before(now)
}

// CanUpgrade reports whether the trial-to-full transition is still
// available. The transition is one-way; full never goes back to trial.
func (l *License) CanUpgrade() bool {
	return l.Type == TypeTrial
}

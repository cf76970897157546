package model

import (
	"time"
)

type PinStatus string

const (
	PinStatusActive  PinStatus = "active"
	PinStatusExpired PinStatus = "expired"
	PinStatusLocked  PinStatus = "locked"
)

// PinRecord is the single pending verification of a user. CodeHash holds an
// HMAC of the code, never the code itself.
type PinRecord struct {
	UserID    string    `json:"userId"`
	CodeHash  string    `json:"codeHash"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Attempts  int       `json:"attempts"`
}

func (p *PinRecord) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p *PinRecord) IsLocked(maxAttempts int) bool {
	return p.Attempts >= maxAttempts
}

// Status derives the lifecycle state. Expiry wins over lockout.
func (p *PinRecord) Status(now time.Time, maxAttempts int) PinStatus {
	switch {
	case p.IsExpired(now):
		return PinStatusExpired
	case p.IsLocked(maxAttempts):
		return PinStatusLocked
	default:
		return PinStatusActive
	}
}

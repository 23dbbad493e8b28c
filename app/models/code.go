package models

import "time"

// VerificationCode is a single-use numeric code tied to a user. At most one
// live code exists per user; issuing a new one deletes any prior code.
type VerificationCode struct {
	ID        int64
	UserID    int64
	Code      string
	ExpiresAt time.Time
}

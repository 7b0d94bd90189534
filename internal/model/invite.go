package model

import "time"

// InviteTTL is how long an issued invite code stays reserved
const InviteTTL = 24 * time.Hour

// InviteRecord maps an issued code to its party and creator.
// Stored apart from the party so issued codes can be audited.
type InviteRecord struct {
	Code      InviteCode
	PartyID   PartyID
	CreatedBy UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsLive reports whether the record still reserves its code at time now
func (r *InviteRecord) IsLive(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

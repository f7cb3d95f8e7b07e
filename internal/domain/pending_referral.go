package domain

import "time"

// PendingReferral records an anonymous referral-link click, keyed by source IP.
// Rows are marked redeemed exactly once and never deleted (audit trail).
type PendingReferral struct {
	ID                uint       `gorm:"primaryKey"`     // Primary key
	ReferralCode      string     `gorm:"size:6"`         // Code as clicked, kept for the audit trail
	ReferrerProfileID uint       `gorm:"index;not null"` // Direct link to the referrer; no code re-lookup at redemption
	ReferrerProfile   Profile    // Referrer profile relation
	IPAddress         string     `gorm:"size:45;index"` // Source IP of the click (45 fits IPv6)
	ClickedAt         time.Time  `gorm:"autoCreateTime"` // When the click happened
	RedeemedAt        *time.Time // Set once when the attribution resolver consumes the record
	RedeemedByID      *uint      // User whose signup redeemed the click
}

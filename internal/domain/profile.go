package domain

// Profile Model holds a user's referral identity and game-point accumulators
type Profile struct {
	ID              uint     `gorm:"primaryKey"`              // Primary key
	UserID          uint     `gorm:"uniqueIndex"`             // Foreign key to User
	ReferralCode    string   `gorm:"size:6;uniqueIndex"`      // 6-char uppercase alphanumeric, globally unique
	ReferredByID    *uint    `gorm:"index"`                   // Referrer profile; set at most once, immutable after
	ReferredBy      *Profile `gorm:"foreignKey:ReferredByID"` // Self-referential referrer link
	TotalReferrals  int      `gorm:"not null;default:0"`      // Rewarded referrals, hard-capped by config
	TotalGamePoints int64    `gorm:"not null;default:0"`      // Lifetime game points earned
	UsedGamePoints  int64    `gorm:"not null;default:0"`      // Game points already redeemed into coins
}

// AvailableGamePoints returns the points still redeemable into coins
func (p *Profile) AvailableGamePoints() int64 {
	return p.TotalGamePoints - p.UsedGamePoints
}

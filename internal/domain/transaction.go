package domain

// CoinTransaction Model: one row per wallet mutation (audit ledger)
type CoinTransaction struct {
	ID        uint   `gorm:"primaryKey"` // Primary key
	WalletID  uint   `gorm:"index"`      // Wallet the mutation applied to
	Amount    int64  // Coin amount of the mutation
	Type      string // Mutation type: adjust_increment, adjust_decrement, redeem, referral_bonus, join_bonus
	CreatedAt int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}

package domain

// Wallet Model
type Wallet struct {
	ID         uint  `gorm:"primaryKey"`         // Primary key
	UserID     uint  `gorm:"uniqueIndex"`        // Foreign key to User; unique so racing creates cannot duplicate
	TotalCoins int64 `gorm:"not null;default:0"` // Lifetime coins earned
	UsedCoins  int64 `gorm:"not null;default:0"` // Lifetime coins spent
}

// AvailableCoins returns the spendable balance (total minus used)
func (w *Wallet) AvailableCoins() int64 {
	return w.TotalCoins - w.UsedCoins
}

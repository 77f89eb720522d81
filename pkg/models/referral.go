package models

import (
	"time"
)

// Referral представляет реферальную связь между аккаунтами.
// Связь устанавливается не более одного раза и никогда не перезаписывается.
type Referral struct {
	ID         int64     `json:"id" db:"id"`
	ReferrerID int64     `json:"referrer_id" db:"referrer_id"`
	RefereeID  int64     `json:"referee_id" db:"referee_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// BonusPayout представляет реферальную выплату одного уровня
type BonusPayout struct {
	Level     int   `json:"level"` // уровень реферера, 1..3
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

// RateStep представляет ступень таблицы бонусных ставок: ставка применяется,
// когда число прямых рефералов аккаунта не меньше MinReferrals.
// Для счетчика ниже наименьшей ступени ставка равна нулю.
type RateStep struct {
	MinReferrals int         `json:"min_referrals"`
	Rate         BasisPoints `json:"rate"`
}

package models

import (
	"time"
)

// Role представляет роль аккаунта в системе
type Role string

const (
	RoleAdmin    Role = "admin"    // администратор площадки
	RoleProvider Role = "provider" // владелец площадок (venue provider)
	RoleStaff    Role = "staff"    // персонал, гасящий билеты
	RoleUser     Role = "user"     // обычный аккаунт: покупатель или организатор
)

// IsValid проверяет валидность роли
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProvider, RoleStaff, RoleUser:
		return true
	default:
		return false
	}
}

// Account представляет аккаунт в системе. Таблица аккаунтов одновременно
// служит таблицей назначения ролей и якорем реферального графа:
// referred_by хранит одноразовую неизменяемую привязку к рефереру,
// referral_count — число прямых рефералов, last_active_at — время
// последней покупки (активность для реферальных выплат).
type Account struct {
	ID            int64      `json:"id" db:"id"`
	Username      string     `json:"username" db:"username"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          Role       `json:"role" db:"role"`
	Balance       int64      `json:"balance" db:"balance"` // баланс в минимальных денежных единицах
	ReferralCount int        `json:"referral_count" db:"referral_count"`
	ReferredBy    *int64     `json:"referred_by,omitempty" db:"referred_by"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Identity представляет проверенную личность вызывающего. Каждая операция
// ядра получает Identity параметром и сверяет роль до любых изменений.
type Identity struct {
	AccountID int64 `json:"account_id"`
	Role      Role  `json:"role"`
}

// IsAdmin проверяет, что вызывающий — администратор
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// IsProvider проверяет, что вызывающий — владелец площадок
func (i Identity) IsProvider() bool { return i.Role == RoleProvider }

// IsStaff проверяет, что вызывающий — персонал
func (i Identity) IsStaff() bool { return i.Role == RoleStaff }

// RegisterRequest представляет запрос на регистрацию аккаунта
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

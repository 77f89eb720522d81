package models

import (
	"fmt"
	"time"
)

// ProfileShare представляет долю получателя в профиле распределения
type ProfileShare struct {
	RecipientID int64       `json:"recipient_id" db:"recipient_id"`
	Share       BasisPoints `json:"share" db:"share"`
}

// DistributionProfile представляет профиль распределения выручки:
// упорядоченный список пар (получатель, доля в базисных пунктах) с суммой
// ровно 10000. Профиль может быть профилем по умолчанию или переопределением
// для конкретного события (не более одного на событие).
type DistributionProfile struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Shares    []ProfileShare `json:"shares"`
	IsDefault bool           `json:"is_default" db:"is_default"`
	EventID   *int64         `json:"event_id,omitempty" db:"event_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// ValidateShares проверяет инвариант профиля: список не пуст, каждая доля
// валидна и сумма долей равна ровно 10000 базисных пунктов
func ValidateShares(shares []ProfileShare) error {
	if len(shares) == 0 {
		return fmt.Errorf("%w: список долей пуст", ErrValidation)
	}
	var sum BasisPoints
	for _, s := range shares {
		if !s.Share.IsValid() {
			return fmt.Errorf("%w: доля получателя %d вне диапазона [0, %d]", ErrValidation, s.RecipientID, BpsDenominator)
		}
		sum += s.Share
	}
	if sum != BpsDenominator {
		return fmt.Errorf("%w: сумма долей равна %d, ожидалось %d", ErrInvariant, sum, BpsDenominator)
	}
	return nil
}

// Payout представляет начисление получателю при распределении средств
type Payout struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

// CreateProfileRequest представляет запрос на создание профиля распределения
type CreateProfileRequest struct {
	Name       string  `json:"name"`
	Recipients []int64 `json:"recipients"`
	Shares     []int   `json:"shares"`
}

// UpdateProfileRequest представляет запрос на обновление долей профиля
type UpdateProfileRequest struct {
	Recipients []int64 `json:"recipients"`
	Shares     []int   `json:"shares"`
}

// SetEventProfileRequest представляет запрос на привязку профиля к событию
type SetEventProfileRequest struct {
	EventID int64 `json:"event_id"`
}

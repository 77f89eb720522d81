package models

import (
	"fmt"
	"time"
)

// PlaceStatus представляет статус площадки
type PlaceStatus string

const (
	PlaceStatusRequested PlaceStatus = "requested"
	PlaceStatusApproved  PlaceStatus = "approved"
	PlaceStatusDeclined  PlaceStatus = "declined"
)

// IsValid проверяет валидность статуса площадки
func (s PlaceStatus) IsValid() bool {
	switch s {
	case PlaceStatusRequested, PlaceStatusApproved, PlaceStatusDeclined:
		return true
	default:
		return false
	}
}

// Place представляет площадку (venue). Создается заявкой, изменяется только
// утверждающим провайдером. DepositSize — размер залога, который организатор
// эскроуирует при подаче события и который переходит провайдеру при отмене.
type Place struct {
	ID               int64       `json:"id" db:"id"`
	RequesterID      int64       `json:"requester_id" db:"requester_id"`
	ProviderID       *int64      `json:"provider_id,omitempty" db:"provider_id"`
	MaxTickets       int         `json:"max_tickets" db:"max_tickets"`
	MinTickets       int         `json:"min_tickets" db:"min_tickets"`
	MinPrice         int64       `json:"min_price" db:"min_price"`
	MinDays          int         `json:"min_days" db:"min_days"`
	DaysBeforeCancel int         `json:"days_before_cancel" db:"days_before_cancel"`
	DepositSize      int64       `json:"deposit_size" db:"deposit_size"`
	Available        bool        `json:"available" db:"available"`
	Status           PlaceStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// PlaceParams представляет проверяемые параметры площадки.
// Инварианты: max >= min > 0, min_price > 0, min_days > 0, days_before_cancel > 0.
type PlaceParams struct {
	MaxTickets       int   `json:"max_tickets"`
	MinTickets       int   `json:"min_tickets"`
	MinPrice         int64 `json:"min_price"`
	MinDays          int   `json:"min_days"`
	DaysBeforeCancel int   `json:"days_before_cancel"`
	Available        bool  `json:"available"`
}

// Validate проверяет инварианты параметров площадки
func (p PlaceParams) Validate() error {
	if p.MinTickets <= 0 {
		return fmt.Errorf("%w: минимум билетов должен быть больше нуля", ErrValidation)
	}
	if p.MaxTickets < p.MinTickets {
		return fmt.Errorf("%w: максимум билетов (%d) меньше минимума (%d)", ErrValidation, p.MaxTickets, p.MinTickets)
	}
	if p.MinPrice <= 0 {
		return fmt.Errorf("%w: минимальная цена должна быть больше нуля", ErrValidation)
	}
	if p.MinDays <= 0 {
		return fmt.Errorf("%w: минимальная длительность должна быть больше нуля", ErrValidation)
	}
	if p.DaysBeforeCancel <= 0 {
		return fmt.Errorf("%w: окно уведомления об отмене должно быть больше нуля", ErrValidation)
	}
	return nil
}

// ApprovePlaceRequest представляет запрос на утверждение площадки
type ApprovePlaceRequest struct {
	DepositSize int64 `json:"deposit_size"`
}

package models

import (
	"time"
)

// EventStatus представляет статус события
type EventStatus string

const (
	EventStatusSubmitted EventStatus = "submitted"
	EventStatusApproved  EventStatus = "approved"
	EventStatusDeclined  EventStatus = "declined"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusClosed    EventStatus = "closed"
)

// IsValid проверяет валидность статуса события
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusSubmitted, EventStatusApproved, EventStatusDeclined,
		EventStatusCancelled, EventStatusClosed:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, является ли статус терминальным
func (s EventStatus) IsTerminal() bool {
	switch s {
	case EventStatusDeclined, EventStatusCancelled, EventStatusClosed:
		return true
	default:
		return false
	}
}

// Event представляет событие на площадке. NetWorth — накопленные в эскроу
// средства, причитающиеся организатору на момент закрытия (поступления от
// продаж билетов за вычетом реферальных выплат). ContentRef — непрозрачный
// идентификатор внешних метаданных, ядро хранит его как есть.
type Event struct {
	ID         int64       `json:"id" db:"id"`
	PlaceID    int64       `json:"place_id" db:"place_id"`
	CreatorID  int64       `json:"creator_id" db:"creator_id"`
	Price      int64       `json:"price" db:"price"`
	StartDate  time.Time   `json:"start_date" db:"start_date"`
	Days       int         `json:"days" db:"days"`
	Status     EventStatus `json:"status" db:"status"`
	NetWorth   int64       `json:"net_worth" db:"net_worth"`
	ContentRef string      `json:"content_ref" db:"content_ref"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// EndDate возвращает конец полуоткрытого диапазона [StartDate, StartDate+Days)
func (e *Event) EndDate() time.Time {
	return e.StartDate.AddDate(0, 0, e.Days)
}

// SubmitEventRequest представляет запрос на подачу события
type SubmitEventRequest struct {
	PlaceID    int64     `json:"place_id"`
	Price      int64     `json:"price"`
	StartDate  time.Time `json:"start_date"`
	Days       int       `json:"days"`
	ContentRef string    `json:"content_ref"`
}

// UpdateEventRequest представляет запрос на изменение события
type UpdateEventRequest struct {
	Price      int64     `json:"price"`
	StartDate  time.Time `json:"start_date"`
	Days       int       `json:"days"`
	ContentRef string    `json:"content_ref"`
}

// RangesOverlap проверяет пересечение двух полуоткрытых диапазонов дат
// [s1, s1+d1) и [s2, s2+d2): они пересекаются тогда и только тогда,
// когда s1 < s2+d2 и s2 < s1+d1.
func RangesOverlap(s1 time.Time, d1 int, s2 time.Time, d2 int) bool {
	e1 := s1.AddDate(0, 0, d1)
	e2 := s2.AddDate(0, 0, d2)
	return s1.Before(e2) && s2.Before(e1)
}

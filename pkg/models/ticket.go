package models

import (
	"time"
)

// TicketCategory представляет категорию билетов события.
// Quota = 0 означает неограниченную категорию. Скидка задается в базисных
// пунктах и применяется к цене события с округлением вниз.
type TicketCategory struct {
	ID          int64       `json:"id" db:"id"`
	EventID     int64       `json:"event_id" db:"event_id"`
	Name        string      `json:"name" db:"name"`
	DiscountBps BasisPoints `json:"discount_bps" db:"discount_bps"`
	Quota       int         `json:"quota" db:"quota"`
	Sold        int         `json:"sold" db:"sold"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// HasQuota сообщает, ограничена ли категория квотой
func (c *TicketCategory) HasQuota() bool { return c.Quota > 0 }

// TicketPrice возвращает цену билета категории: цена события минус скидка,
// с округлением вниз на каждом шаге
func (c *TicketCategory) TicketPrice(eventPrice int64) int64 {
	discount := eventPrice * int64(c.DiscountBps) / int64(BpsDenominator)
	return eventPrice - discount
}

// Ticket представляет билет. Погашение — одноразовый флаг: повторное
// погашение отклоняется.
type Ticket struct {
	ID         int64      `json:"id" db:"id"`
	EventID    int64      `json:"event_id" db:"event_id"`
	CategoryID int64      `json:"category_id" db:"category_id"`
	OwnerID    int64      `json:"owner_id" db:"owner_id"`
	Price      int64      `json:"price" db:"price"` // фактически уплаченная цена
	Redeemed   bool       `json:"redeemed" db:"redeemed"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty" db:"redeemed_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// CreateCategoryRequest представляет запрос на создание категории билетов
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	DiscountBps int    `json:"discount_bps"`
	Quota       int    `json:"quota"`
	HasQuota    bool   `json:"has_quota"`
}

// MintTicketsRequest представляет запрос на покупку билетов
type MintTicketsRequest struct {
	CategoryID   int64  `json:"category_id"`
	Quantity     int    `json:"quantity"`
	ReferrerHint *int64 `json:"referrer_hint,omitempty"`
}

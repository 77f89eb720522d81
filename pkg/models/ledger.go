package models

import (
	"time"
)

// LedgerEntryType представляет тип проводки в журнале движения средств
type LedgerEntryType string

const (
	EntryDeposit           LedgerEntryType = "deposit"             // пополнение баланса
	EntryWithdrawal        LedgerEntryType = "withdrawal"          // вывод средств
	EntrySubmissionFeeHold LedgerEntryType = "submission_fee_hold" // эскроу взноса за подачу события
	EntrySubmissionFeeBack LedgerEntryType = "submission_fee_back" // возврат взноса при отклонении
	EntrySubmissionFeeTake LedgerEntryType = "submission_fee_take" // удержание взноса платформой
	EntryDepositHold       LedgerEntryType = "deposit_hold"        // эскроу залога площадки
	EntryDepositBack       LedgerEntryType = "deposit_back"        // возврат залога организатору
	EntryDepositSeize      LedgerEntryType = "deposit_seize"       // передача залога провайдеру при отмене
	EntryTicketSale        LedgerEntryType = "ticket_sale"         // оплата билетов покупателем
	EntryTicketRefund      LedgerEntryType = "ticket_refund"       // возврат за билет при отмене
	EntryReferralBonus     LedgerEntryType = "referral_bonus"      // реферальная выплата
	EntryPlatformCut       LedgerEntryType = "platform_cut"        // фиксированное платформенное отчисление
	EntryRevenueShare      LedgerEntryType = "revenue_share"       // доля гибкого пула по профилю
)

// LedgerEntry представляет неизменяемую проводку журнала. Каждое движение
// средств в системе — отдельная проводка; эскроу и возвраты прослеживаются
// по журналу, а не по неявным балансам. From/To равны nil, когда стороной
// выступает эскроу события (проводка тогда ссылается на событие).
type LedgerEntry struct {
	ID            int64           `json:"id" db:"id"`
	Type          LedgerEntryType `json:"type" db:"type"`
	FromAccountID *int64          `json:"from_account_id,omitempty" db:"from_account_id"`
	ToAccountID   *int64          `json:"to_account_id,omitempty" db:"to_account_id"`
	EventID       *int64          `json:"event_id,omitempty" db:"event_id"`
	Amount        int64           `json:"amount" db:"amount"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// DepositRequest представляет запрос на пополнение баланса аккаунта
type DepositRequest struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

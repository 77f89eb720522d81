// Package share реализует целочисленное разбиение сумм по процентам
// и базисным пунктам. Деление всегда с округлением вниз; остаток ("пыль")
// никогда не теряется — он либо возвращается вызывающему, либо зачисляется
// назначенному сборному получателю. Плавающая точка не используется.
package share

import (
	"fmt"

	"scena-market/pkg/models"
)

// Split делит сумму по простому проценту (знаменатель 100).
// Возвращает долю и остаток; их сумма всегда равна исходной сумме.
func Split(total int64, pct models.Percent) (int64, int64, error) {
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: сумма не может быть отрицательной", models.ErrValidation)
	}
	if !pct.IsValid() {
		return 0, 0, fmt.Errorf("%w: процент %d вне диапазона", models.ErrValidation, pct)
	}
	part := total * int64(pct) / int64(models.PercentDenominator)
	return part, total - part, nil
}

// SplitBps делит сумму по базисным пунктам (знаменатель 10000).
// Возвращает долю и остаток; их сумма всегда равна исходной сумме.
func SplitBps(total int64, bps models.BasisPoints) (int64, int64, error) {
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: сумма не может быть отрицательной", models.ErrValidation)
	}
	if !bps.IsValid() {
		return 0, 0, fmt.Errorf("%w: базисные пункты %d вне диапазона", models.ErrValidation, bps)
	}
	part := total * int64(bps) / int64(models.BpsDenominator)
	return part, total - part, nil
}

// SplitAcrossProfile делит сумму между получателями профиля: каждому — его
// доля с округлением вниз, оставшаяся пыль зачисляется сборному получателю
// catchAll. Сумма всех начислений всегда в точности равна исходной сумме,
// для любого входа и любого числа получателей.
func SplitAcrossProfile(total int64, profile *models.DistributionProfile, catchAll int64) ([]models.Payout, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: сумма не может быть отрицательной", models.ErrValidation)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: профиль распределения не задан", models.ErrValidation)
	}
	if err := models.ValidateShares(profile.Shares); err != nil {
		return nil, err
	}

	payouts := make([]models.Payout, 0, len(profile.Shares)+1)
	var distributed int64
	catchAllIdx := -1

	for _, s := range profile.Shares {
		amount := total * int64(s.Share) / int64(models.BpsDenominator)
		distributed += amount
		if s.RecipientID == catchAll && catchAllIdx == -1 {
			catchAllIdx = len(payouts)
		}
		payouts = append(payouts, models.Payout{AccountID: s.RecipientID, Amount: amount})
	}

	dust := total - distributed
	if dust > 0 {
		if catchAllIdx >= 0 {
			payouts[catchAllIdx].Amount += dust
		} else {
			payouts = append(payouts, models.Payout{AccountID: catchAll, Amount: dust})
		}
	}

	return payouts, nil
}

// Sum возвращает сумму начислений. Вспомогательная проверка инварианта
// "ни единицы не потеряно и не создано".
func Sum(payouts []models.Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

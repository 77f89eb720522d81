package models

import "fmt"

// BasisPoints представляет целочисленную долю из 10000 (базисные пункты).
// Вся процентная арифметика в системе целочисленная с округлением вниз,
// плавающая точка не используется нигде.
type BasisPoints int

// BpsDenominator — знаменатель базисных пунктов
const BpsDenominator BasisPoints = 10000

// NewBasisPoints создает значение в базисных пунктах с проверкой диапазона
func NewBasisPoints(v int) (BasisPoints, error) {
	if v < 0 || v > int(BpsDenominator) {
		return 0, fmt.Errorf("%w: базисные пункты должны быть в диапазоне [0, %d], получено %d", ErrValidation, BpsDenominator, v)
	}
	return BasisPoints(v), nil
}

// IsValid проверяет, что значение находится в диапазоне [0, 10000]
func (b BasisPoints) IsValid() bool {
	return b >= 0 && b <= BpsDenominator
}

// Percent представляет целочисленный процент со знаменателем 100.
// Используется для фиксированных платформенных отчислений.
type Percent int

// PercentDenominator — знаменатель простых процентов
const PercentDenominator Percent = 100

// NewPercent создает процент с проверкой диапазона
func NewPercent(v int) (Percent, error) {
	if v < 0 || v > int(PercentDenominator) {
		return 0, fmt.Errorf("%w: процент должен быть в диапазоне [0, %d], получено %d", ErrValidation, PercentDenominator, v)
	}
	return Percent(v), nil
}

// IsValid проверяет, что значение находится в диапазоне [0, 100]
func (p Percent) IsValid() bool {
	return p >= 0 && p <= PercentDenominator
}

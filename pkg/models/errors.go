package models

import "errors"

// Категории ошибок подсистемы. Каждая ошибка сервисного слоя оборачивает
// одну из этих sentinel-ошибок через fmt.Errorf("%w: ..."), чтобы
// транспортный слой мог сопоставить категорию с HTTP-статусом,
// а вызывающий — проверить её через errors.Is.
var (
	// ErrValidation — некорректные входные данные (нулевые/отрицательные
	// значения, выход за допустимый диапазон, несогласованные массивы долей)
	ErrValidation = errors.New("ошибка валидации")

	// ErrUnauthorized — у вызывающего нет требуемой роли
	ErrUnauthorized = errors.New("недостаточно прав")

	// ErrNotFound — сущность не найдена
	ErrNotFound = errors.New("не найдено")

	// ErrState — операция недопустима из текущего статуса сущности
	ErrState = errors.New("недопустимый статус")

	// ErrInvariant — нарушение бизнес-инварианта (сумма долей не равна 10000,
	// превышение квоты, пересечение дат, недостаточно средств)
	ErrInvariant = errors.New("нарушение бизнес-инварианта")
)

// IsValidation проверяет, относится ли ошибка к категории валидации
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnauthorized проверяет, относится ли ошибка к категории авторизации
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsNotFound проверяет, относится ли ошибка к категории "не найдено"
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsState проверяет, относится ли ошибка к категории статусных переходов
func IsState(err error) bool { return errors.Is(err, ErrState) }

// IsInvariant проверяет, относится ли ошибка к категории бизнес-инвариантов
func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }

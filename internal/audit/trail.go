package audit

import (
	"context"

	"go.uber.org/zap"

	"scena-market/pkg/models"
)

// Repository интерфейс для журнала аудита в базе данных
type Repository interface {
	Append(ctx context.Context, record *models.AuditRecord) error
}

// Trail объединяет журнал аудита в базе и пересылку записей в брокер.
// Record вызывается внутри транзакции операции, Forward — после коммита.
type Trail struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
}

// NewTrail создает новый журнал аудита
func NewTrail(repo Repository, publisher Publisher, logger *zap.Logger) *Trail {
	return &Trail{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Record добавляет запись аудита в рамках текущей транзакции
func (t *Trail) Record(ctx context.Context, record *models.AuditRecord) error {
	return t.repo.Append(ctx, record)
}

// Forward пересылает запись в брокер после коммита транзакции.
// Ошибка публикации логируется и не влияет на результат операции.
func (t *Trail) Forward(ctx context.Context, record *models.AuditRecord) {
	if err := t.publisher.Publish(ctx, record); err != nil {
		t.logger.Error("не удалось переслать запись аудита в брокер",
			zap.String("operation", record.Operation),
			zap.Error(err))
	}
}

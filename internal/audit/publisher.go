// Package audit отвечает за доставку зафиксированных записей аудита
// внешнему индексатору. Записи пишутся в базу в транзакции операции;
// после фиксации они передаются в очередь. Сбой публикации логируется
// и никогда не откатывает уже зафиксированную операцию.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scena-market/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher определяет интерфейс доставки записей аудита индексатору
type Publisher interface {
	Publish(ctx context.Context, record *models.AuditRecord) error
	Close() error
}

// AMQPPublisher публикует записи аудита в очередь RabbitMQ.
// Очередь долговечная, сообщения персистентные: индексатор может
// переиграть их после перезапуска брокера.
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *zap.Logger
}

// NewAMQPPublisher подключается к брокеру и объявляет очередь аудита
func NewAMQPPublisher(url, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к брокеру: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ошибка открытия канала брокера: %w", err)
	}

	// Объявление идемпотентно
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("ошибка объявления очереди %q: %w", queue, err)
	}

	logger.Info("издатель аудита подключен к брокеру", zap.String("queue", queue))

	return &AMQPPublisher{
		conn:   conn,
		ch:     ch,
		queue:  queue,
		logger: logger,
	}, nil
}

// Publish отправляет запись аудита в очередь
func (p *AMQPPublisher) Publish(ctx context.Context, record *models.AuditRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи аудита: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("ошибка публикации записи аудита: %w", err)
	}

	p.logger.Debug("запись аудита опубликована",
		zap.Int64("record_id", record.ID),
		zap.String("operation", record.Operation))

	return nil
}

// Close закрывает канал и подключение к брокеру
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("ошибка закрытия канала брокера", zap.Error(err))
	}
	return p.conn.Close()
}

// NopPublisher отбрасывает записи. Используется, когда публикация
// аудита отключена конфигурацией, и в тестах.
type NopPublisher struct{}

// Publish ничего не делает
func (NopPublisher) Publish(context.Context, *models.AuditRecord) error { return nil }

// Close ничего не делает
func (NopPublisher) Close() error { return nil }

package models

import (
	"encoding/json"
	"time"
)

// AuditRecord представляет запись аудита. Каждая принятая мутация состояния
// добавляет ровно одну запись (тип операции + полный набор аргументов)
// в той же транзакции, в порядке вызовов; внешний индексатор читает записи
// из очереди после фиксации.
type AuditRecord struct {
	ID        int64           `json:"id" db:"id"`
	Operation string          `json:"operation" db:"operation"`
	ActorID   int64           `json:"actor_id" db:"actor_id"`
	Entity    string          `json:"entity" db:"entity"`
	EntityID  int64           `json:"entity_id" db:"entity_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// AuditPayload сериализует аргументы операции для записи аудита.
// Ошибка сериализации здесь невозможна для используемых типов, поэтому
// в таком случае возвращается пустой объект.
func AuditPayload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

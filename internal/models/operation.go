package models

import (
	"fmt"
	"time"
)

// OperationKind тип мутации документа
type OperationKind string

const (
	KindCreate OperationKind = "create"
	KindUpdate OperationKind = "update"
	KindDelete OperationKind = "delete"
)

// Valid проверяет, что тип операции известен
func (k OperationKind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	}
	return false
}

// Priority приоритетная полоса диспетчеризации
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities все полосы в порядке убывания приоритета
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank возвращает порядковый номер полосы: 0 - critical, 3 - low.
// Неизвестная полоса считается medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid проверяет, что полоса известна
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority разбирает строковое имя полосы
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// OperationState состояние операции в outbox
type OperationState string

const (
	StateQueued   OperationState = "queued"
	StateSyncing  OperationState = "syncing"
	StateSynced   OperationState = "synced"
	StateConflict OperationState = "conflict"
	StateResolved OperationState = "resolved"
	StateFailed   OperationState = "failed"
)

// SyncOperation единица репликации: одна мутация одного документа.
// После перехода в synced операция неизменяема и хранится только для аудита и дедупликации.
type SyncOperation struct {
	CreatedAt         time.Time      `json:"created_at"`                // CreatedAt время постановки в outbox
	UpdatedAt         time.Time      `json:"updated_at"`                // UpdatedAt время последнего перехода состояния
	NextAttemptAt     time.Time      `json:"next_attempt_at,omitempty"` // NextAttemptAt не раньше этого времени операция снова готова к отправке
	SyncedAt          *time.Time     `json:"synced_at,omitempty"`       // SyncedAt время подтверждения всеми пирами
	VectorClock       VectorClock    `json:"vector_clock"`              // VectorClock часы устройства-источника в момент создания
	ID                string         `json:"id"`                        // ID ULID, ключ дедупликации
	Collection        string         `json:"collection"`                // Collection логическая группа документов
	DocumentID        string         `json:"document_id"`               // DocumentID идентификатор документа внутри коллекции
	Kind              OperationKind  `json:"kind"`                      // Kind create, update или delete
	Priority          Priority       `json:"priority"`                  // Priority полоса диспетчеризации
	OriginDevice      string         `json:"origin_device"`             // OriginDevice устройство, создавшее операцию
	OriginUser        string         `json:"origin_user,omitempty"`     // OriginUser пользователь, создавший операцию
	Checksum          string         `json:"checksum"`                  // Checksum CRC32 полезной нагрузки (hex)
	State             OperationState `json:"state"`                     // State состояние в outbox
	LastError         string         `json:"last_error,omitempty"`      // LastError причина последней неудачи
	RelayedFrom       string         `json:"relayed_from,omitempty"`    // RelayedFrom пир, от которого получена чужая операция
	Payload           []byte         `json:"payload,omitempty"`         // Payload непрозрачное содержимое
	PhysicalTimestamp int64          `json:"physical_timestamp"`        // PhysicalTimestamp unix ms, только для tie-break
	Attempts          int            `json:"attempts"`                  // Attempts число неудачных попыток отправки
}

// IsRemote возвращает true для копии чужой операции, сохраненной для ретрансляции
func (op *SyncOperation) IsRemote(selfID string) bool {
	return op.OriginDevice != selfID
}

// IsNewerThan сравнивает операции по (PhysicalTimestamp, ID).
// ID - ULID, поэтому порядок полный и одинаковый на всех устройствах.
func (op *SyncOperation) IsNewerThan(other *SyncOperation) bool {
	if op.PhysicalTimestamp != other.PhysicalTimestamp {
		return op.PhysicalTimestamp > other.PhysicalTimestamp
	}
	return op.ID > other.ID
}

// OriginCounter значение счетчика источника в часах операции
func (op *SyncOperation) OriginCounter() uint64 {
	return op.VectorClock[op.OriginDevice]
}

// Clone создает глубокую копию операции
func (op *SyncOperation) Clone() *SyncOperation {
	out := *op
	out.VectorClock = op.VectorClock.Clone()
	if op.Payload != nil {
		out.Payload = make([]byte, len(op.Payload))
		copy(out.Payload, op.Payload)
	}
	if op.SyncedAt != nil {
		t := *op.SyncedAt
		out.SyncedAt = &t
	}
	return &out
}

package models

import "time"

// Head максимальная (не вытесненная) операция документа вместе с содержимым.
// Несколько голов означают конкурентные правки.
type Head struct {
	VectorClock       VectorClock   `json:"vector_clock"`
	OperationID       string        `json:"operation_id"`
	OriginDevice      string        `json:"origin_device"`
	Kind              OperationKind `json:"kind"`
	Payload           []byte        `json:"payload,omitempty"`
	PhysicalTimestamp int64         `json:"physical_timestamp"`
}

// HeadFromOperation строит голову из операции
func HeadFromOperation(op *SyncOperation) Head {
	payload := make([]byte, len(op.Payload))
	copy(payload, op.Payload)

	return Head{
		VectorClock:       op.VectorClock.Clone(),
		OperationID:       op.ID,
		OriginDevice:      op.OriginDevice,
		Kind:              op.Kind,
		Payload:           payload,
		PhysicalTimestamp: op.PhysicalTimestamp,
	}
}

// IsNewerThan сравнивает две головы по алгоритму LWW:
// 1. Сначала сравнивается PhysicalTimestamp (больший выигрывает)
// 2. При равных PhysicalTimestamp сравнивается OperationID (лексикографически)
func (h *Head) IsNewerThan(other *Head) bool {
	if h.PhysicalTimestamp > other.PhysicalTimestamp {
		return true
	}
	if h.PhysicalTimestamp < other.PhysicalTimestamp {
		return false
	}
	// Timestamps равны - сравниваем ID для детерминизма
	return h.OperationID > other.OperationID
}

// Deleted возвращает true для головы-удаления
func (h *Head) Deleted() bool {
	return h.Kind == KindDelete
}

// DocumentState локальный учет примененных операций документа
type DocumentState struct {
	UpdatedAt    time.Time   `json:"updated_at"`
	Clock        VectorClock `json:"clock"` // Clock поэлементный максимум всех примененных часов
	Collection   string      `json:"collection"`
	DocumentID   string      `json:"document_id"`
	Heads        []Head      `json:"heads"`
	MaxTimestamp int64       `json:"max_timestamp"`
}

// NewDocumentState создает пустое состояние документа
func NewDocumentState(collection, documentID string) *DocumentState {
	return &DocumentState{
		Collection: collection,
		DocumentID: documentID,
		Clock:      VectorClock{},
	}
}

// HeadIDs возвращает идентификаторы операций-голов
func (s *DocumentState) HeadIDs() []string {
	ids := make([]string, 0, len(s.Heads))
	for i := range s.Heads {
		ids = append(ids, s.Heads[i].OperationID)
	}
	return ids
}

// FindHead ищет голову по идентификатору операции
func (s *DocumentState) FindHead(operationID string) (*Head, bool) {
	for i := range s.Heads {
		if s.Heads[i].OperationID == operationID {
			return &s.Heads[i], true
		}
	}
	return nil, false
}

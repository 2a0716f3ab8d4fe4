package api

import "time"

// OperationMessage представляет операцию на проводе: все поля SyncOperation,
// кроме локального учета (попытки, состояние)
type OperationMessage struct {
	VectorClock       map[string]uint64 `json:"vector_clock"`
	ID                string            `json:"id"`
	Collection        string            `json:"collection"`
	DocumentID        string            `json:"document_id"`
	Kind              string            `json:"kind"`
	Priority          string            `json:"priority"`
	OriginDevice      string            `json:"origin_device"`
	OriginUser        string            `json:"origin_user,omitempty"`
	Checksum          string            `json:"checksum"`
	Payload           []byte            `json:"payload,omitempty"`
	PhysicalTimestamp int64             `json:"physical_timestamp"`
}

// OpsBatch пакет операций одной отправки
type OpsBatch struct {
	Operations []OperationMessage `json:"operations"`
}

// AckStatus результат обработки операции получателем
type AckStatus string

const (
	AckApplied   AckStatus = "applied"   // применена
	AckDuplicate AckStatus = "duplicate" // уже была известна или модуль выключен у получателя
	AckConflict  AckStatus = "conflict"  // конфликт разрешен автоматически
	AckPending   AckStatus = "pending"   // конфликт ждет ручного решения
	AckResend    AckStatus = "resend"    // повреждена при передаче, нужна повторная отправка
	AckRejected  AckStatus = "rejected"  // некорректна, получатель ее не примет
	AckError     AckStatus = "error"     // внутренняя ошибка получателя
	AckDeferred  AckStatus = "deferred"  // получатель еще не видел ее причинных предшественников
)

// OpResult результат обработки одной операции
type OpResult struct {
	ID     string    `json:"id"`
	Status AckStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// OpsAck ответ на OpsBatch
type OpsAck struct {
	Results []OpResult `json:"results"`
}

// Deferred число операций, отложенных получателем
func (a OpsAck) Deferred() int {
	var n int
	for _, r := range a.Results {
		if r.Status == AckDeferred {
			n++
		}
	}
	return n
}

// CatchUpRequest запрос недостающих операций.
// Watermarks - для каждого источника наибольший непрерывно известный счетчик.
type CatchUpRequest struct {
	Watermarks map[string]uint64 `json:"watermarks"`
	Limit      int               `json:"limit,omitempty"`
}

// CatchUpResponse недостающие операции в порядке создания
type CatchUpResponse struct {
	Operations []OperationMessage `json:"operations"`
	More       bool               `json:"more"`
}

// Heartbeat периодическое объявление устройства и известной ему топологии
type Heartbeat struct {
	SentAt       time.Time `json:"sent_at"`
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name,omitempty"`
	Role         string    `json:"role"`
	LinkType     string    `json:"link_type,omitempty"`
	Primary      string    `json:"primary"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Epoch        uint64    `json:"epoch"`
	Proposing    uint64    `json:"proposing,omitempty"` // эпоха смены primary, которую устройство сейчас предлагает
}

// RolePhase фаза смены primary
type RolePhase string

const (
	PhasePropose RolePhase = "propose"
	PhaseCommit  RolePhase = "commit"
	PhaseAbort   RolePhase = "abort"
)

// RoleChange сообщение двухфазной смены primary
type RoleChange struct {
	Phase    RolePhase `json:"phase"`
	Primary  string    `json:"primary"`
	Proposer string    `json:"proposer"`
	Epoch    uint64    `json:"epoch"`
}

// RoleAck ответ на RoleChange
type RoleAck struct {
	Reason   string `json:"reason,omitempty"`
	Accepted bool   `json:"accepted"`
}

// Presence уведомление relay о подключении или отключении устройства
type Presence struct {
	DeviceID string `json:"device_id"`
	Online   bool   `json:"online"`
}

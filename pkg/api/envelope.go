package api

import "time"

// MessageType тип сообщения в конверте
type MessageType string

const (
	TypeOpsBatch        MessageType = "ops_batch"
	TypeOpsAck          MessageType = "ops_ack"
	TypeCatchUpRequest  MessageType = "catchup_request"
	TypeCatchUpResponse MessageType = "catchup_response"
	TypeHeartbeat       MessageType = "heartbeat"
	TypeRoleChange      MessageType = "role_change"
	TypeRoleAck         MessageType = "role_ack"
	TypePresence        MessageType = "presence"
	TypeError           MessageType = "error"
)

// Envelope транспортный конверт. Body содержит JSON сообщения, после
// кодека транспорта он может быть сжат (Compressed) и зашифрован (Encrypted).
type Envelope struct {
	SentAt     time.Time   `json:"sent_at"`
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	From       string      `json:"from"`
	To         string      `json:"to,omitempty"`       // пусто - всем устройствам
	ReplyTo    string      `json:"reply_to,omitempty"` // ID запроса, на который это ответ
	Body       []byte      `json:"body,omitempty"`
	Compressed bool        `json:"compressed,omitempty"`
	Encrypted  bool        `json:"encrypted,omitempty"`
}

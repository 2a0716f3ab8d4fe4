package models

import "time"

// Device представляет устройство, подключавшееся к relay
type Device struct {
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	DeviceID   string    `json:"device_id"`
	BusinessID string    `json:"business_id"`
	Online     bool      `json:"online"`
}

// RelayFrame запись аудита конверта, прошедшего через relay.
// Тело конверта не сохраняется: relay не видит расшифрованных данных.
type RelayFrame struct {
	ReceivedAt time.Time `json:"received_at"`
	ID         string    `json:"id"` // ID конверта
	BusinessID string    `json:"business_id"`
	FromDevice string    `json:"from_device"`
	ToDevice   string    `json:"to_device,omitempty"` // пусто - рассылка всем
	Type       string    `json:"type"`
	Size       int       `json:"size"` // размер тела в байтах
}

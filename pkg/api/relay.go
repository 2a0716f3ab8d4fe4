package api

import "time"

// DeviceInfo представляет устройство, подключавшееся к relay
type DeviceInfo struct {
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	DeviceID   string    `json:"device_id"`
	BusinessID string    `json:"business_id"`
	Online     bool      `json:"online"`
}

// DevicesResponse представляет ответ со списком устройств бизнеса
type DevicesResponse struct {
	Devices []DeviceInfo `json:"devices"`
}

// HealthResponse представляет ответ проверки состояния relay
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Connected int    `json:"connected"` // количество подключенных устройств
}

// FrameInfo запись аудита конверта с операциями
type FrameInfo struct {
	ReceivedAt time.Time `json:"received_at"`
	ID         string    `json:"id"`
	FromDevice string    `json:"from_device"`
	ToDevice   string    `json:"to_device,omitempty"`
	Type       string    `json:"type"`
	Size       int       `json:"size"`
}

// FramesResponse представляет ответ со списком последних конвертов бизнеса
type FramesResponse struct {
	Frames []FrameInfo `json:"frames"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

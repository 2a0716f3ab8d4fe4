package models

import "time"

// Stats сводка состояния синхронизации устройства
type Stats struct {
	LastSyncAt        *time.Time    `json:"last_sync_at,omitempty"`
	PendingCount      int           `json:"pending_count"`       // queued + syncing собственных операций
	SyncedCount       int           `json:"synced_count"`        // synced + resolved собственных операций
	FailedCount       int           `json:"failed_count"`        // терминально неудачные операции, включая ретрансляции
	ConflictCount     int           `json:"conflict_count"`      // открытые конфликты
	RelayPendingCount int           `json:"relay_pending_count"` // чужие операции, ожидающие ретрансляции
	ReceivedCount     int           `json:"received_count"`      // принятые от пиров операции
	AvgLatency        time.Duration `json:"avg_latency"`
	BytesUp           uint64        `json:"bytes_up"`
	BytesDown         uint64        `json:"bytes_down"`
}

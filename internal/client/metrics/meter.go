package metrics

import (
	"sync/atomic"
	"time"
)

// Meter счетчики трафика и задержки подтверждений. Безопасен для конкурентного использования.
type Meter struct {
	bytesUp      atomic.Uint64
	bytesDown    atomic.Uint64
	latencySum   atomic.Int64
	latencyCount atomic.Int64
	lastSync     atomic.Int64 // unix nano последнего подтвержденного пакета
}

// Snapshot значения счетчиков на момент вызова
type Snapshot struct {
	LastSyncAt time.Time
	BytesUp    uint64
	BytesDown  uint64
	AvgLatency time.Duration
}

// AddUp учитывает отправленные байты
func (m *Meter) AddUp(n int) {
	if n > 0 {
		m.bytesUp.Add(uint64(n))
	}
}

// AddDown учитывает полученные байты
func (m *Meter) AddDown(n int) {
	if n > 0 {
		m.bytesDown.Add(uint64(n))
	}
}

// ObserveAck учитывает задержку отправка -> подтверждение
func (m *Meter) ObserveAck(latency time.Duration, at time.Time) {
	m.latencySum.Add(int64(latency))
	m.latencyCount.Add(1)
	m.lastSync.Store(at.UnixNano())
}

// SetLastSync восстанавливает время последней синхронизации после рестарта
func (m *Meter) SetLastSync(at time.Time) {
	if !at.IsZero() {
		m.lastSync.Store(at.UnixNano())
	}
}

// Snapshot возвращает текущие значения
func (m *Meter) Snapshot() Snapshot {
	s := Snapshot{
		BytesUp:   m.bytesUp.Load(),
		BytesDown: m.bytesDown.Load(),
	}
	if n := m.latencyCount.Load(); n > 0 {
		s.AvgLatency = time.Duration(m.latencySum.Load() / n)
	}
	if ns := m.lastSync.Load(); ns != 0 {
		s.LastSyncAt = time.Unix(0, ns)
	}
	return s
}

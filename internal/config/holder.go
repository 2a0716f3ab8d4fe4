package config

import "sync/atomic"

// Holder хранит текущие параметры синхронизации с атомарной заменой.
// Компоненты читают Get() на каждой итерации, поэтому новые значения
// применяются без перезапуска.
type Holder struct {
	v atomic.Pointer[SyncConfig]
}

// NewHolder создает Holder с начальными параметрами
func NewHolder(cfg SyncConfig) *Holder {
	h := &Holder{}
	h.Set(cfg)
	return h
}

// Get возвращает текущий снимок параметров. Снимок нельзя изменять.
func (h *Holder) Get() *SyncConfig {
	return h.v.Load()
}

// Set атомарно заменяет параметры
func (h *Holder) Set(cfg SyncConfig) {
	h.v.Store(&cfg)
}

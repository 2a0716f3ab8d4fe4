package crdt

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/meshsync/internal/models"
)

// Tracker хранит векторные часы устройства и упорядочивает события
// в mesh без синхронизации физического времени.
type Tracker struct {
	clock  models.VectorClock // счетчик на каждое известное устройство
	nodeID string             // идентификатор локального устройства
	mu     sync.Mutex
}

// NewTracker создает часы с новым идентификатором устройства (UUID).
func NewTracker() *Tracker {
	return NewTrackerWithNodeID(uuid.New().String())
}

// NewTrackerWithNodeID создает часы для заданного устройства.
// Используется при старте узла и в тестах.
func NewTrackerWithNodeID(nodeID string) *Tracker {
	return &Tracker{
		clock:  models.VectorClock{},
		nodeID: nodeID,
	}
}

// Tick увеличивает локальный счетчик и возвращает снимок часов.
// Вызывается ровно один раз на каждую созданную операцию.
func (t *Tracker) Tick() models.VectorClock {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clock[t.nodeID]++
	return t.clock.Clone()
}

// Untick откатывает Tick, если операцию не удалось сохранить.
// Счетчик уменьшается только если он все еще равен counter.
func (t *Tracker) Untick(counter uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if counter > 0 && t.clock[t.nodeID] == counter {
		t.clock[t.nodeID] = counter - 1
	}
}

// Merge сливает полученные часы в локальные (поэлементный максимум).
// Вызывается для каждой полученной операции.
func (t *Tracker) Merge(remote models.VectorClock) models.VectorClock {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, v := range remote {
		if v > t.clock[k] {
			t.clock[k] = v
		}
	}
	return t.clock.Clone()
}

// CanDeliver сообщает, видело ли устройство все причинные предшественники
// операции источника origin с часами clock: предыдущую операцию источника и
// все, что источник видел до нее. Операция с уже увиденным счетчиком тоже
// доставляема (это дубликат).
func (t *Tracker) CanDeliver(origin string, clock models.VectorClock) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, n := range clock {
		seen := t.clock[id]
		if id == origin {
			if n > seen+1 {
				return false
			}
			continue
		}
		if n > seen {
			return false
		}
	}
	return true
}

// Snapshot возвращает копию текущих часов без изменения
func (t *Tracker) Snapshot() models.VectorClock {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clock.Clone()
}

// Counter возвращает значение локального счетчика
func (t *Tracker) Counter() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clock[t.nodeID]
}

// NodeID возвращает идентификатор локального устройства
func (t *Tracker) NodeID() string {
	return t.nodeID
}

// Restore восстанавливает часы из сохраненного состояния (после перезапуска).
// Значения только растут: восстановление не откатывает уже увиденные счетчики.
func (t *Tracker) Restore(clock models.VectorClock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, v := range clock {
		if v > t.clock[k] {
			t.clock[k] = v
		}
	}
}

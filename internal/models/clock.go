package models

import (
	"sort"
	"strconv"
	"strings"
)

// VectorClock отображает идентификатор устройства в монотонно растущий счетчик.
// Используется для частичного упорядочивания операций между устройствами.
type VectorClock map[string]uint64

// Ordering результат сравнения двух векторных часов
type Ordering int

const (
	// OrderingEqual часы совпадают по всем компонентам
	OrderingEqual Ordering = iota
	// OrderingBefore текущие часы причинно предшествуют другим
	OrderingBefore
	// OrderingAfter текущие часы причинно следуют за другими
	OrderingAfter
	// OrderingConcurrent ни одни часы не доминируют - кандидат на конфликт
	OrderingConcurrent
)

// String возвращает читаемое имя отношения
func (o Ordering) String() string {
	switch o {
	case OrderingEqual:
		return "equal"
	case OrderingBefore:
		return "before"
	case OrderingAfter:
		return "after"
	default:
		return "concurrent"
	}
}

// Clone создает глубокую копию часов
func (vc VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(vc))
	for k, v := range vc {
		out[k] = v
	}
	return out
}

// Get возвращает значение счетчика устройства (0, если устройство неизвестно)
func (vc VectorClock) Get(deviceID string) uint64 {
	return vc[deviceID]
}

// Compare сравнивает часы покомпонентно по объединению ключей.
// Отсутствующий ключ трактуется как 0.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	less, greater := false, false

	for k, v := range vc {
		o := other[k]
		if v > o {
			greater = true
		} else if v < o {
			less = true
		}
	}
	for k, o := range other {
		if _, ok := vc[k]; ok {
			continue
		}
		if o > 0 {
			less = true
		}
	}

	switch {
	case less && greater:
		return OrderingConcurrent
	case greater:
		return OrderingAfter
	case less:
		return OrderingBefore
	default:
		return OrderingEqual
	}
}

// Covers возвращает true, если vc[d] >= other[d] для всех d (включая равенство)
func (vc VectorClock) Covers(other VectorClock) bool {
	ord := vc.Compare(other)
	return ord == OrderingEqual || ord == OrderingAfter
}

// Dominates возвращает true, если vc строго доминирует other
func (vc VectorClock) Dominates(other VectorClock) bool {
	return vc.Compare(other) == OrderingAfter
}

// Concurrent возвращает true, если ни одни часы не покрывают другие
func (vc VectorClock) Concurrent(other VectorClock) bool {
	return vc.Compare(other) == OrderingConcurrent
}

// Merge возвращает новые часы - покомпонентный максимум vc и other
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	out := vc.Clone()
	for k, v := range other {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

// String возвращает детерминированное представление вида "a:1,b:2"
func (vc VectorClock) String() string {
	keys := make([]string, 0, len(vc))
	for k := range vc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(vc[k], 10))
	}
	return b.String()
}

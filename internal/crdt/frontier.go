package crdt

import (
	"sort"

	"github.com/iudanet/meshsync/internal/models"
)

// InsertHead добавляет голову h во множество голов документа.
// Возвращает новое множество максимальных элементов и головы,
// с которыми h конкурентна. Головы, которые h доминирует, вытесняются.
// Если h сама покрыта одной из голов, множество не меняется.
func InsertHead(heads []models.Head, h models.Head) (result []models.Head, concurrent []models.Head) {
	for i := range heads {
		if heads[i].OperationID == h.OperationID || heads[i].VectorClock.Covers(h.VectorClock) {
			return cloneHeads(heads), nil
		}
	}

	result = make([]models.Head, 0, len(heads)+1)
	for _, existing := range heads {
		if h.VectorClock.Dominates(existing.VectorClock) {
			continue
		}
		concurrent = append(concurrent, existing)
		result = append(result, existing)
	}
	result = append(result, h)
	SortHeads(result)

	return result, concurrent
}

// SortHeads упорядочивает головы по (PhysicalTimestamp, OperationID) по возрастанию
func SortHeads(heads []models.Head) {
	sort.Slice(heads, func(i, j int) bool {
		return heads[j].IsNewerThan(&heads[i])
	})
}

// Latest возвращает голову с максимальным (PhysicalTimestamp, OperationID).
// Используется стратегией last-write-wins.
func Latest(heads []models.Head) *models.Head {
	var winner *models.Head
	for i := range heads {
		if winner == nil || heads[i].IsNewerThan(winner) {
			winner = &heads[i]
		}
	}
	return winner
}

// Earliest возвращает голову с минимальным (PhysicalTimestamp, OperationID).
// Используется стратегией first-write-wins.
func Earliest(heads []models.Head) *models.Head {
	var winner *models.Head
	for i := range heads {
		if winner == nil || winner.IsNewerThan(&heads[i]) {
			winner = &heads[i]
		}
	}
	return winner
}

// Live возвращает головы, не являющиеся удалениями, в порядке (PhysicalTimestamp, OperationID)
func Live(heads []models.Head) []models.Head {
	out := make([]models.Head, 0, len(heads))
	for _, h := range heads {
		if !h.Deleted() {
			out = append(out, h)
		}
	}
	SortHeads(out)
	return out
}

func cloneHeads(heads []models.Head) []models.Head {
	out := make([]models.Head, len(heads))
	copy(out, heads)
	return out
}

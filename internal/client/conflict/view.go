package conflict

import (
	"fmt"

	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
)

// view видимое значение документа, вычисленное по множеству голов
type view struct {
	Payload    []byte
	WinnerID   string
	Resolution models.Resolution
	Notes      string
	Deleted    bool
	Pending    bool // решение отложено до ручного разбора
}

// materialize вычисляет видимое значение документа.
// Результат зависит только от множества голов и стратегии, а не от порядка
// получения операций, поэтому все устройства приходят к одному значению.
func materialize(strategy models.ConflictStrategy, heads []models.Head, merge recordstore.MergeFunc) view {
	switch strategy {
	case models.StrategyLastWriteWins:
		return winnerView(crdt.Latest(heads), models.ResolutionLWW)

	case models.StrategyFirstWriteWins:
		return winnerView(crdt.Earliest(heads), models.ResolutionDiscard)

	case models.StrategyAdditiveMerge, models.StrategyFieldLevel:
		if strategy == models.StrategyFieldLevel && merge == nil {
			merge = recordstore.FieldMerge
		}
		if merge == nil {
			return view{Pending: true, Notes: "no merge function registered"}
		}

		// удаление уступает живым версиям
		live := crdt.Live(heads)
		if len(live) == 0 {
			return view{Resolution: models.ResolutionMerge, Deleted: true}
		}

		payloads := make([][]byte, 0, len(live))
		for i := range live {
			payloads = append(payloads, live[i].Payload)
		}
		merged, err := recordstore.Fold(merge, payloads)
		if err != nil {
			return view{Pending: true, Notes: fmt.Sprintf("merge failed: %v", err)}
		}
		return view{Resolution: models.ResolutionMerge, Payload: merged}

	default:
		return view{Pending: true}
	}
}

func winnerView(h *models.Head, resolution models.Resolution) view {
	if h == nil {
		return view{Pending: true}
	}
	return view{
		Payload:    h.Payload,
		WinnerID:   h.OperationID,
		Resolution: resolution,
		Deleted:    h.Deleted(),
	}
}

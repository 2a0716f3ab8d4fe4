package conflict

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/client/storage/boltdb"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crypto"
	"github.com/iudanet/meshsync/internal/models"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type indexFunc func(ctx context.Context, id string) (bool, error)

func (f indexFunc) Has(ctx context.Context, id string) (bool, error) { return f(ctx, id) }

type testDevice struct {
	resolver *Resolver
	store    *boltdb.Storage
	mergers  *recordstore.Registry
}

func newTestDevice(t *testing.T, deviceID string, strategies map[string]models.ConflictStrategy) *testDevice {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), deviceID+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultSync()
	cfg.ConflictStrategies = strategies

	mergers := recordstore.NewRegistry()
	return &testDevice{
		resolver: NewResolver(store, store, mergers, nil, config.NewHolder(cfg), deviceID, setupTestLogger()),
		store:    store,
		mergers:  mergers,
	}
}

func (d *testDevice) record(t *testing.T, collection, documentID string) ([]byte, bool) {
	t.Helper()

	data, err := d.store.Get(context.Background(), collection, documentID)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, false
	}
	require.NoError(t, err)
	return data, true
}

func newOp(id, origin string, ts int64, clock models.VectorClock, payload string) *models.SyncOperation {
	return &models.SyncOperation{
		ID:                id,
		Collection:        "products",
		DocumentID:        "p1",
		Kind:              models.KindUpdate,
		Payload:           []byte(payload),
		Priority:          models.PriorityMedium,
		OriginDevice:      origin,
		PhysicalTimestamp: ts,
		VectorClock:       clock,
		Checksum:          crypto.Checksum([]byte(payload)),
	}
}

func TestResolver_ChecksumMismatch(t *testing.T) {
	d := newTestDevice(t, "dev-b", nil)

	op := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	op.Payload = []byte(`{"stock":9}`)

	_, err := d.resolver.Apply(context.Background(), op)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, ok := d.record(t, "products", "p1")
	assert.False(t, ok, "corrupted operation must not be applied")

	// корректная повторная доставка применяется
	op.Payload = []byte(`{"stock":8}`)
	res, err := d.resolver.Apply(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
}

func TestResolver_ApplyAndDuplicate(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-b", nil)

	op1 := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	op2 := newOp("01B", "dev-a", 110, models.VectorClock{"dev-a": 2}, `{"stock":7}`)

	res, err := d.resolver.Apply(ctx, op1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	res, err = d.resolver.Apply(ctx, op2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	// повторная доставка и устаревшая операция ничего не меняют
	for _, op := range []*models.SyncOperation{op2, op1} {
		res, err = d.resolver.Apply(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, res.Outcome)
	}

	data, ok := d.record(t, "products", "p1")
	require.True(t, ok)
	assert.JSONEq(t, `{"stock":7}`, string(data))

	state, err := d.resolver.Document(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.VectorClock{"dev-a": 2}, state.Clock)
	assert.Equal(t, []string{"01B"}, state.HeadIDs())
	assert.Equal(t, int64(110), state.MaxTimestamp)
}

func TestResolver_IndexDuplicate(t *testing.T) {
	d := newTestDevice(t, "dev-b", nil)
	d.resolver.index = indexFunc(func(ctx context.Context, id string) (bool, error) {
		return id == "01A", nil
	})

	res, err := d.resolver.Apply(context.Background(), newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
}

func TestResolver_CausalSuccessorHasNoConflict(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-c", nil)

	op1 := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	op2 := newOp("01B", "dev-b", 90, models.VectorClock{"dev-a": 1, "dev-b": 1}, `{"stock":6}`)

	for _, op := range []*models.SyncOperation{op1, op2} {
		res, err := d.resolver.Apply(ctx, op)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Nil(t, res.Conflict)
	}

	data, _ := d.record(t, "products", "p1")
	assert.JSONEq(t, `{"stock":6}`, string(data), "dominating op wins even with an older timestamp")

	conflicts, err := d.resolver.ListConflicts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestResolver_Strategies(t *testing.T) {
	// A: {stock: 8} раньше, B: {stock: 5} позже, часы конкурентны
	opA := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8,"name":"tea"}`)
	opB := newOp("01B", "dev-b", 200, models.VectorClock{"dev-b": 1}, `{"stock":5}`)

	tests := []struct {
		merge      recordstore.MergeFunc
		name       string
		strategy   models.ConflictStrategy
		expected   string
		resolution models.Resolution
		winner     string
		outcome    Outcome
	}{
		{
			name:       "last write wins",
			strategy:   models.StrategyLastWriteWins,
			expected:   `{"stock":5}`,
			resolution: models.ResolutionLWW,
			winner:     "01B",
			outcome:    OutcomeResolved,
		},
		{
			name:       "first write wins",
			strategy:   models.StrategyFirstWriteWins,
			expected:   `{"stock":8,"name":"tea"}`,
			resolution: models.ResolutionDiscard,
			winner:     "01A",
			outcome:    OutcomeResolved,
		},
		{
			name:       "additive merge",
			strategy:   models.StrategyAdditiveMerge,
			merge:      recordstore.SumMerge,
			expected:   `{"stock":13,"name":"tea"}`,
			resolution: models.ResolutionMerge,
			outcome:    OutcomeResolved,
		},
		{
			name:       "field level merge falls back to field merge",
			strategy:   models.StrategyFieldLevel,
			expected:   `{"stock":5,"name":"tea"}`,
			resolution: models.ResolutionMerge,
			outcome:    OutcomeResolved,
		},
		{
			name:     "additive merge without function waits for a decision",
			strategy: models.StrategyAdditiveMerge,
			outcome:  OutcomePending,
		},
		{
			name:     "manual review",
			strategy: models.StrategyManualReview,
			outcome:  OutcomePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			strategies := map[string]models.ConflictStrategy{"products": tt.strategy}

			// порядок получения на устройствах X и Y противоположный
			x := newTestDevice(t, "dev-x", strategies)
			y := newTestDevice(t, "dev-y", strategies)
			if tt.merge != nil {
				x.mergers.Register("products", tt.merge)
				y.mergers.Register("products", tt.merge)
			}

			var resX, resY *Result
			for _, op := range []*models.SyncOperation{opA, opB} {
				res, err := x.resolver.Apply(ctx, op.Clone())
				require.NoError(t, err)
				resX = res
			}
			for _, op := range []*models.SyncOperation{opB, opA} {
				res, err := y.resolver.Apply(ctx, op.Clone())
				require.NoError(t, err)
				resY = res
			}

			for _, res := range []*Result{resX, resY} {
				assert.Equal(t, tt.outcome, res.Outcome)
				require.NotNil(t, res.Conflict)
				assert.Equal(t, []string{"01A", "01B"}, res.Conflict.OperationIDs)
				assert.Equal(t, tt.strategy, res.Conflict.Strategy)
				assert.Equal(t, tt.resolution, res.Conflict.Resolution)
				assert.Equal(t, tt.winner, res.Conflict.WinnerID)
			}
			assert.Equal(t, resX.Conflict.ID, resY.Conflict.ID, "conflict id is the same on every device")

			if tt.outcome == OutcomePending {
				assert.True(t, resX.Conflict.IsOpen())
				return
			}

			dataX, ok := x.record(t, "products", "p1")
			require.True(t, ok)
			dataY, ok := y.record(t, "products", "p1")
			require.True(t, ok)
			assert.JSONEq(t, tt.expected, string(dataX))
			assert.JSONEq(t, tt.expected, string(dataY))

			stateX, err := x.resolver.Document(ctx, "products", "p1")
			require.NoError(t, err)
			assert.Equal(t, models.VectorClock{"dev-a": 1, "dev-b": 1}, stateX.Clock)
			assert.Len(t, stateX.Heads, 2)
		})
	}
}

func TestResolver_LWWDeleteWins(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-c", nil)

	upd := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	del := newOp("01B", "dev-b", 200, models.VectorClock{"dev-b": 1}, ``)
	del.Kind = models.KindDelete

	_, err := d.resolver.Apply(ctx, upd)
	require.NoError(t, err)
	res, err := d.resolver.Apply(ctx, del)
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)

	_, ok := d.record(t, "products", "p1")
	assert.False(t, ok)
}

func TestResolver_ManualReviewLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-c", map[string]models.ConflictStrategy{"products": models.StrategyManualReview})

	var (
		pending  []*models.ConflictRecord
		resolved []*models.ConflictRecord
	)
	d.resolver.OnConflict(func(rec *models.ConflictRecord) { pending = append(pending, rec) })
	d.resolver.OnResolved(func(rec *models.ConflictRecord) { resolved = append(resolved, rec) })

	opA := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	opB := newOp("01B", "dev-b", 200, models.VectorClock{"dev-b": 1}, `{"stock":5}`)

	_, err := d.resolver.Apply(ctx, opA)
	require.NoError(t, err)
	res, err := d.resolver.Apply(ctx, opB)
	require.NoError(t, err)
	require.Equal(t, OutcomePending, res.Outcome)
	require.Len(t, pending, 1)

	// запись хранится в открытом состоянии до решения
	open, err := d.resolver.ListConflicts(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)

	data, _ := d.record(t, "products", "p1")
	assert.JSONEq(t, `{"stock":8}`, string(data), "nothing is applied while the decision is pending")

	// решение пришло от primary в виде доминирующей операции
	decision := newOp("01C", "dev-p", 300, models.VectorClock{"dev-a": 1, "dev-b": 1, "dev-p": 1}, `{"stock":5}`)
	res, err = d.resolver.Apply(ctx, decision)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	require.Len(t, resolved, 1)
	assert.Equal(t, models.ResolutionManual, resolved[0].Resolution)
	assert.Equal(t, "01C", resolved[0].WinnerID)
	assert.Equal(t, "dev-p", resolved[0].ResolvedBy)

	open, err = d.resolver.ListConflicts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, open)

	data, _ = d.record(t, "products", "p1")
	assert.JSONEq(t, `{"stock":5}`, string(data))
}

func TestResolver_ResolveManual(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-p", map[string]models.ConflictStrategy{"products": models.StrategyManualReview})

	opA := newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{"stock":8}`)
	opB := newOp("01B", "dev-b", 200, models.VectorClock{"dev-b": 1}, `{"stock":5}`)
	_, err := d.resolver.Apply(ctx, opA)
	require.NoError(t, err)
	res, err := d.resolver.Apply(ctx, opB)
	require.NoError(t, err)

	build := func(state *models.DocumentState, rec *models.ConflictRecord) (*models.SyncOperation, error) {
		h, ok := state.FindHead("01A")
		require.True(t, ok)
		clock := state.Clock.Merge(models.VectorClock{"dev-p": 1})
		return newOp("01C", "dev-p", state.MaxTimestamp+1, clock, string(h.Payload)), nil
	}

	op, err := d.resolver.ResolveManual(ctx, res.Conflict.ID, "counted twice", build)
	require.NoError(t, err)
	assert.Equal(t, "01C", op.ID)
	assert.Equal(t, int64(201), op.PhysicalTimestamp)

	rec, err := d.resolver.GetConflict(ctx, res.Conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionManual, rec.Resolution)
	assert.Equal(t, "counted twice", rec.Notes)

	data, _ := d.record(t, "products", "p1")
	assert.JSONEq(t, `{"stock":8}`, string(data))

	_, err = d.resolver.ResolveManual(ctx, res.Conflict.ID, "", build)
	assert.ErrorIs(t, err, ErrConflictClosed)

	_, err = d.resolver.ResolveManual(ctx, "missing", "", build)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestResolver_Local(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, "dev-a", nil)

	_, err := d.resolver.Apply(ctx, newOp("01A", "dev-b", 500, models.VectorClock{"dev-b": 3}, `{"stock":1}`))
	require.NoError(t, err)

	op, err := d.resolver.Local(ctx, "products", "p1", func(state *models.DocumentState) (*models.SyncOperation, error) {
		assert.Equal(t, int64(500), state.MaxTimestamp)
		clock := state.Clock.Merge(models.VectorClock{"dev-a": 1})
		return newOp("01B", "dev-a", state.MaxTimestamp+1, clock, `{"stock":2}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "01B", op.ID)

	state, err := d.resolver.Document(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.VectorClock{"dev-a": 1, "dev-b": 3}, state.Clock)

	// ошибка построения операции ничего не меняет
	_, err = d.resolver.Local(ctx, "products", "p1", func(state *models.DocumentState) (*models.SyncOperation, error) {
		return nil, errors.New("storage full")
	})
	require.Error(t, err)

	data, _ := d.record(t, "products", "p1")
	assert.JSONEq(t, `{"stock":2}`, string(data))
}

func TestResolver_RecordStoreFailure(t *testing.T) {
	d := newTestDevice(t, "dev-b", nil)
	d.resolver.records = &recordstore.RecordStoreMock{
		PutFunc: func(ctx context.Context, collection, documentID string, payload []byte) error {
			return errors.New("disk full")
		},
	}

	_, err := d.resolver.Apply(context.Background(), newOp("01A", "dev-a", 100, models.VectorClock{"dev-a": 1}, `{}`))
	require.Error(t, err)

	// состояние документа не продвинулось: повторная доставка применит операцию
	state, err := d.resolver.Document(context.Background(), "products", "p1")
	require.NoError(t, err)
	assert.Empty(t, state.Clock)
}

func TestKeyedMutex(t *testing.T) {
	locks := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("products/p1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Empty(t, locks.locks, "unused locks are released")
}

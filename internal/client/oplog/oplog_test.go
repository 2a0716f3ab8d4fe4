package oplog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/client/storage/boltdb"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testSyncConfig() config.SyncConfig {
	cfg := config.DefaultSync()
	cfg.RetryAttempts = 3
	cfg.RetryBackoffBaseMs = 1000
	cfg.RetryMaxDelayMs = 60000
	cfg.LaneRetry = nil
	return cfg
}

func newTestLog(t *testing.T, deviceID string) (*Log, *boltdb.Storage) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "oplog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := New(store, crdt.NewTrackerWithNodeID(deviceID), config.NewHolder(testSyncConfig()), setupTestLogger())
	return log, store
}

func appendReq(collection, doc string, p models.Priority) AppendRequest {
	return AppendRequest{
		Kind:       models.KindUpdate,
		Collection: collection,
		DocumentID: doc,
		Priority:   p,
		Payload:    []byte(`{"qty":1}`),
	}
}

func TestLog_Append(t *testing.T) {
	ctx := context.Background()
	log, store := newTestLog(t, "dev-a")

	op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)

	assert.NotEmpty(t, op.ID)
	assert.Equal(t, models.StateQueued, op.State)
	assert.Equal(t, "dev-a", op.OriginDevice)
	assert.Equal(t, uint64(1), op.OriginCounter())
	assert.NotEmpty(t, op.Checksum)

	stored, err := store.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.ID, stored.ID)

	// часы сохранены в той же транзакции
	clock, err := store.LoadClock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), clock["dev-a"])

	second, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.OriginCounter())
	assert.Greater(t, second.ID, op.ID)
}

func TestLog_Append_MinTimestamp(t *testing.T) {
	log, _ := newTestLog(t, "dev-a")
	now := time.UnixMilli(1_000_000)
	log.SetClock(func() time.Time { return now })

	req := appendReq("orders", "o-1", models.PriorityHigh)
	req.MinTimestamp = 2_000_000

	op, err := log.Append(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_001), op.PhysicalTimestamp)
}

func TestLog_Append_Validation(t *testing.T) {
	log, _ := newTestLog(t, "dev-a")

	tests := []struct {
		mutate func(*AppendRequest)
		name   string
	}{
		{name: "bad kind", mutate: func(r *AppendRequest) { r.Kind = "upsert" }},
		{name: "bad priority", mutate: func(r *AppendRequest) { r.Priority = "urgent" }},
		{name: "bad collection", mutate: func(r *AppendRequest) { r.Collection = "Orders!" }},
		{name: "empty document", mutate: func(r *AppendRequest) { r.DocumentID = "" }},
		{name: "payload too large", mutate: func(r *AppendRequest) { r.Payload = make([]byte, 2<<20) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := appendReq("orders", "o-1", models.PriorityHigh)
			tt.mutate(&req)

			_, err := log.Append(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidOperation)
		})
	}
}

func TestLog_Append_StorageFailureRollsBackClock(t *testing.T) {
	tracker := crdt.NewTrackerWithNodeID("dev-a")
	fail := true
	mock := &storage.OperationStorageMock{
		AppendOperationFunc: func(ctx context.Context, op *models.SyncOperation, clock models.VectorClock) error {
			if fail {
				return errors.New("disk full")
			}
			return nil
		},
	}
	log := New(mock, tracker, config.NewHolder(testSyncConfig()), setupTestLogger())

	_, err := log.Append(context.Background(), appendReq("orders", "o-1", models.PriorityHigh))
	require.Error(t, err)
	assert.Equal(t, uint64(0), tracker.Counter())

	fail = false
	op, err := log.Append(context.Background(), appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), op.OriginCounter(), "counters must stay contiguous")
	assert.Len(t, mock.AppendOperationCalls(), 2)
}

func TestLog_StateMachine(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)

	// queued -> synced напрямую запрещен
	assert.ErrorIs(t, log.MarkSynced(ctx, op.ID), ErrInvalidTransition)

	require.NoError(t, log.MarkDispatched(ctx, op.ID))
	assert.ErrorIs(t, log.MarkDispatched(ctx, op.ID), ErrInvalidTransition)

	require.NoError(t, log.MarkSynced(ctx, op.ID))

	got, err := log.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, got.State)
	assert.NotNil(t, got.SyncedAt)

	// synced неизменяема
	assert.ErrorIs(t, log.Requeue(ctx, op.ID), ErrOperationImmutable)
	_, err = log.MarkFailed(ctx, op.ID, "late failure")
	assert.ErrorIs(t, err, ErrOperationImmutable)
	assert.ErrorIs(t, log.RetryFailed(ctx, op.ID), ErrOperationImmutable)
}

func TestLog_ConflictToResolved(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	op, err := log.Append(ctx, appendReq("invoices", "i-1", models.PriorityCritical))
	require.NoError(t, err)
	require.NoError(t, log.MarkDispatched(ctx, op.ID))
	require.NoError(t, log.MarkConflict(ctx, op.ID))

	counts, err := log.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Conflict)

	require.NoError(t, log.MarkResolved(ctx, op.ID))
	// повторное разрешение ничего не делает
	require.NoError(t, log.MarkResolved(ctx, op.ID))

	got, err := log.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, got.State)
}

func TestLog_MarkFailed_BackoffAndTerminal(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	log.SetClock(func() time.Time { return now })

	var failed []*models.SyncOperation
	log.OnFailed(func(op *models.SyncOperation) { failed = append(failed, op) })

	op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)

	expectedDelays := []time.Duration{time.Second, 2 * time.Second}
	for i, delay := range expectedDelays {
		require.NoError(t, log.MarkDispatched(ctx, op.ID))
		got, err := log.MarkFailed(ctx, op.ID, "timeout")
		require.NoError(t, err)

		assert.Equal(t, models.StateQueued, got.State)
		assert.Equal(t, i+1, got.Attempts)
		assert.Equal(t, now.Add(delay), got.NextAttemptAt)

		// до истечения задержки операция не готова
		ready, err := log.Ready(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, ready)

		now = got.NextAttemptAt
	}

	require.NoError(t, log.MarkDispatched(ctx, op.ID))
	got, err := log.MarkFailed(ctx, op.ID, "timeout")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, got.State)
	assert.Equal(t, "timeout", got.LastError)
	require.Len(t, failed, 1)
	assert.Equal(t, op.ID, failed[0].ID)

	list, err := log.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, log.RetryFailed(ctx, op.ID))
	got, err = log.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, got.State)
	assert.Equal(t, 0, got.Attempts)
}

func TestLog_Requeue_DoesNotCountAttempt(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)
	require.NoError(t, log.MarkDispatched(ctx, op.ID))
	require.NoError(t, log.Requeue(ctx, op.ID))

	got, err := log.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, got.State)
	assert.Equal(t, 0, got.Attempts)
}

func TestLog_Recover(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	a, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)
	b, err := log.Append(ctx, appendReq("orders", "o-2", models.PriorityHigh))
	require.NoError(t, err)
	require.NoError(t, log.MarkDispatched(ctx, a.ID))
	require.NoError(t, log.MarkDispatched(ctx, b.ID))
	require.NoError(t, log.MarkSynced(ctx, b.ID))

	n, err := log.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := log.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, got.State)
}

// relayedOp копия чужой операции, ожидающая ретрансляции
func relayedOp(id, origin, doc string, p models.Priority, clock models.VectorClock) *models.SyncOperation {
	return &models.SyncOperation{
		ID:           id,
		Collection:   "orders",
		DocumentID:   doc,
		Kind:         models.KindUpdate,
		Priority:     p,
		OriginDevice: origin,
		VectorClock:  clock,
	}
}

func opIDs(ops []*models.SyncOperation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func TestLog_Ready_Order(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	// независимые операции разных источников идут строго по полосам
	low := relayedOp("01B00000000000000000000001", "dev-b", "o-1", models.PriorityLow, models.VectorClock{"dev-b": 1})
	medium := relayedOp("01C00000000000000000000001", "dev-c", "o-2", models.PriorityMedium, models.VectorClock{"dev-c": 1})
	critical := relayedOp("01D00000000000000000000001", "dev-d", "o-3", models.PriorityCritical, models.VectorClock{"dev-d": 1})
	for _, op := range []*models.SyncOperation{low, medium, critical} {
		require.NoError(t, log.Record(ctx, op, op.OriginDevice, true))
	}

	ready, err := log.Ready(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{critical.ID, medium.ID, low.ID}, opIDs(ready))
}

func TestLog_Ready_DocumentOrderAcrossLanes(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	// ранняя операция документа в низкой полосе, поздняя (от другого
	// источника, видевшего раннюю) - в критической
	early := relayedOp("01B00000000000000000000001", "dev-b", "o-1", models.PriorityLow, models.VectorClock{"dev-b": 1})
	other := relayedOp("01C00000000000000000000001", "dev-c", "o-2", models.PriorityHigh, models.VectorClock{"dev-c": 1})
	late := relayedOp("01D00000000000000000000001", "dev-d", "o-1", models.PriorityCritical, models.VectorClock{"dev-b": 1, "dev-d": 1})
	for _, op := range []*models.SyncOperation{early, other, late} {
		require.NoError(t, log.Record(ctx, op, op.OriginDevice, true))
	}

	ready, err := log.Ready(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID, other.ID}, opIDs(ready))
}

// Поздняя критическая операция источника не обгоняет его раннюю операцию
// низкой полосы, даже по другому документу: иначе получатель, увидевший
// только позднюю, продвинет часы через раннюю.
func TestLog_Ready_OriginOrderAcrossLanes(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	early, err := log.Append(ctx, appendReq("products", "p-1", models.PriorityLow))
	require.NoError(t, err)
	late, err := log.Append(ctx, appendReq("payments", "pay-1", models.PriorityCritical))
	require.NoError(t, err)

	foreign := relayedOp("01B00000000000000000000001", "dev-b", "o-9", models.PriorityMedium, models.VectorClock{"dev-b": 1})
	require.NoError(t, log.Record(ctx, foreign, "dev-b", true))
	stale := relayedOp("01C00000000000000000000001", "dev-c", "o-8", models.PriorityLow, models.VectorClock{"dev-c": 1})
	require.NoError(t, log.Record(ctx, stale, "dev-c", true))

	ready, err := log.Ready(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID, foreign.ID, stale.ID}, opIDs(ready))
}

func TestLog_Ready_HoldsSuccessorsOfDelayed(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	early, err := log.Append(ctx, appendReq("products", "p-1", models.PriorityLow))
	require.NoError(t, err)
	late, err := log.Append(ctx, appendReq("payments", "pay-1", models.PriorityCritical))
	require.NoError(t, err)

	require.NoError(t, log.MarkDispatched(ctx, early.ID))
	require.NoError(t, log.Defer(ctx, early.ID))

	// пока ранняя ждет повтора, поздняя тоже не уходит
	ready, err := log.Ready(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ready)

	ready, err = log.Ready(ctx, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID}, opIDs(ready))
}

func TestLog_Defer(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)

	err = log.Defer(ctx, op.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "only in-flight operations are deferred")

	require.NoError(t, log.MarkDispatched(ctx, op.ID))
	before := time.Now()
	require.NoError(t, log.Defer(ctx, op.ID))

	got, err := log.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, got.State)
	assert.Zero(t, got.Attempts)
	assert.True(t, got.NextAttemptAt.After(before))
	assert.WithinDuration(t, before.Add(time.Second), got.NextAttemptAt, 500*time.Millisecond)
}

func TestLog_RecordAndCounts(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	own, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
	require.NoError(t, err)

	remote := &models.SyncOperation{
		ID:           "01REMOTE0000000000000000001",
		Collection:   "orders",
		DocumentID:   "o-9",
		Kind:         models.KindCreate,
		OriginDevice: "dev-b",
		VectorClock:  models.VectorClock{"dev-b": 1},
		State:        models.StateSynced,
	}
	require.NoError(t, log.Record(ctx, remote, "dev-b", true))
	// повторная запись не ошибка
	require.NoError(t, log.Record(ctx, remote, "dev-b", true))

	relayed := remote.Clone()
	relayed.ID = "01REMOTE0000000000000000002"
	relayed.VectorClock = models.VectorClock{"dev-b": 2}
	require.NoError(t, log.Record(ctx, relayed, "dev-b", false))

	got, err := log.Get(ctx, remote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateQueued, got.State)
	assert.Equal(t, "dev-b", got.RelayedFrom)

	counts, err := log.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 1, RelayPending: 1, Received: 2}, counts)

	has, err := log.Has(ctx, own.ID)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = log.Has(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLog_WatermarksAndSince(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, "dev-a")

	var own []string
	for i := 0; i < 3; i++ {
		op, err := log.Append(ctx, appendReq("orders", "o-1", models.PriorityHigh))
		require.NoError(t, err)
		own = append(own, op.ID)
	}

	// от dev-b известны 1 и 3, но не 2
	for _, n := range []uint64{1, 3} {
		op := &models.SyncOperation{
			ID:           "01B00000000000000000000000" + string(rune('0'+n)),
			Collection:   "orders",
			DocumentID:   "o-2",
			Kind:         models.KindUpdate,
			OriginDevice: "dev-b",
			VectorClock:  models.VectorClock{"dev-b": n},
		}
		require.NoError(t, log.Record(ctx, op, "dev-b", false))
	}

	wm, err := log.Watermarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"dev-a": 3, "dev-b": 1}, wm)

	// собственные операции еще в очереди: их доставит диспетчер
	ops, more, err := log.Since(ctx, map[string]uint64{"dev-a": 1}, 10)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, ops, 2, "only dev-b 1,3")

	for _, id := range own {
		require.NoError(t, log.MarkDispatched(ctx, id))
		require.NoError(t, log.MarkSynced(ctx, id))
	}

	ops, more, err = log.Since(ctx, map[string]uint64{"dev-a": 1}, 10)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, ops, 4, "dev-a 2,3 and dev-b 1,3")

	ops, more, err = log.Since(ctx, map[string]uint64{"dev-a": 1}, 3)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Len(t, ops, 3)
}

func TestBackoffDelay(t *testing.T) {
	policy := config.RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, MaxAttempts: 10}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoffDelay(policy, tt.attempt), "attempt %d", tt.attempt)
	}

	assert.Equal(t, time.Duration(0), backoffDelay(config.RetryPolicy{}, 3))
}

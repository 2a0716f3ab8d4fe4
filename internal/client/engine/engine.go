package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/meshsync/internal/client/conflict"
	"github.com/iudanet/meshsync/internal/client/dispatch"
	"github.com/iudanet/meshsync/internal/client/mesh"
	"github.com/iudanet/meshsync/internal/client/metrics"
	"github.com/iudanet/meshsync/internal/client/oplog"
	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
)

// Options параметры узла
type Options struct {
	Storage   storage.Storage
	Records   recordstore.RecordStore // по умолчанию Storage, если он реализует RecordStore
	Mergers   *recordstore.Registry
	Transport transport.Transport // nil - узел работает только локально
	Config    *config.Holder
	Logger    *slog.Logger
	Self      models.PeerInfo
	Primary   string // primary при первом запуске mesh
	UserID    string
}

// Decision ручное решение конфликта: победившая операция, новое содержимое или удаление
type Decision struct {
	WinnerOperationID string
	Notes             string
	Payload           []byte
	Delete            bool
}

// Engine узел синхронизации одного устройства
type Engine struct {
	store      storage.Storage
	records    recordstore.RecordStore
	transport  transport.Transport
	cfg        *config.Holder
	logger     *slog.Logger
	tracker    *crdt.Tracker
	oplog      *oplog.Log
	resolver   *conflict.Resolver
	registry   *mesh.Registry
	dispatcher *dispatch.Dispatcher
	meter      *metrics.Meter
	deviceID   string
	userID     string
	catchUp    sync.WaitGroup
	catchMu    sync.Mutex
	catchingUp map[string]struct{}
}

// New собирает узел: восстанавливает часы и mesh из хранилища и возвращает
// в очередь операции, прерванные во время отправки
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Self.DeviceID == "" {
		return nil, errors.New("device id is required")
	}
	if opts.Config == nil {
		opts.Config = config.NewHolder(config.DefaultSync())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Records == nil {
		rs, ok := opts.Storage.(recordstore.RecordStore)
		if !ok {
			return nil, errors.New("record store is required")
		}
		opts.Records = rs
	}

	logger := opts.Logger.With("device_id", opts.Self.DeviceID)

	tracker := crdt.NewTrackerWithNodeID(opts.Self.DeviceID)
	clock, err := opts.Storage.LoadClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clock: %w", err)
	}
	tracker.Restore(clock)

	log := oplog.New(opts.Storage, tracker, opts.Config, logger)

	// часы сохраняются только с локальными операциями: полученные после
	// этого учитываются по журналу
	watermarks, err := log.Watermarks(ctx)
	if err != nil {
		return nil, err
	}
	tracker.Merge(models.VectorClock(watermarks))

	resolver := conflict.NewResolver(opts.Storage, opts.Records, opts.Mergers, log, opts.Config, opts.Self.DeviceID, logger)

	registry, err := mesh.NewRegistry(ctx, opts.Storage, opts.Self, opts.Primary, opts.Config, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:      opts.Storage,
		records:    opts.Records,
		transport:  opts.Transport,
		cfg:        opts.Config,
		logger:     logger,
		tracker:    tracker,
		oplog:      log,
		resolver:   resolver,
		registry:   registry,
		meter:      &metrics.Meter{},
		deviceID:   opts.Self.DeviceID,
		userID:     opts.UserID,
		catchingUp: make(map[string]struct{}),
	}

	if opts.Transport != nil {
		registry.SetSender(&roleSender{transport: opts.Transport, cfg: opts.Config, deviceID: e.deviceID})
		e.dispatcher = dispatch.New(log, registry, opts.Transport, opts.Storage, opts.Config, e.meter, e.deviceID, logger)
	}

	resolver.OnResolved(e.handleResolved)

	recovered, err := log.Recover(ctx)
	if err != nil {
		return nil, err
	}
	if recovered > 0 {
		logger.Info("Recovered interrupted operations", "count", recovered)
	}

	return e, nil
}

// DeviceID возвращает идентификатор устройства
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Submit фиксирует локальную мутацию: применяет ее к хранилищу записей и
// ставит операцию в outbox. Пустой priority берется из priority_lanes.
func (e *Engine) Submit(
	ctx context.Context,
	kind models.OperationKind,
	collection, documentID string,
	payload []byte,
	priority models.Priority,
) (string, error) {
	cfg := e.cfg.Get()
	if !cfg.ModuleEnabled(collection) {
		return "", fmt.Errorf("%w: %s", ErrModuleDisabled, collection)
	}
	if priority == "" {
		priority = cfg.PriorityFor(collection)
	}

	op, err := e.resolver.Local(ctx, collection, documentID, func(state *models.DocumentState) (*models.SyncOperation, error) {
		// операция должна доминировать над всем, что уже видно в документе
		e.tracker.Merge(state.Clock)
		return e.oplog.Append(ctx, oplog.AppendRequest{
			Kind:         kind,
			Collection:   collection,
			DocumentID:   documentID,
			Priority:     priority,
			User:         e.userID,
			Payload:      payload,
			MinTimestamp: state.MaxTimestamp,
		})
	})
	if err != nil {
		return "", err
	}

	e.notify()
	return op.ID, nil
}

// Get возвращает видимое содержимое документа из хранилища записей
func (e *Engine) Get(ctx context.Context, collection, documentID string) ([]byte, error) {
	return e.records.Get(ctx, collection, documentID)
}

// Document возвращает служебное состояние документа (часы и головы)
func (e *Engine) Document(ctx context.Context, collection, documentID string) (*models.DocumentState, error) {
	return e.resolver.Document(ctx, collection, documentID)
}

// Operation возвращает операцию журнала
func (e *Engine) Operation(ctx context.Context, id string) (*models.SyncOperation, error) {
	return e.oplog.Get(ctx, id)
}

// GetStats возвращает сводку синхронизации
func (e *Engine) GetStats(ctx context.Context) (*models.Stats, error) {
	counts, err := e.oplog.Counts(ctx)
	if err != nil {
		return nil, err
	}
	open, err := e.resolver.ListConflicts(ctx, true)
	if err != nil {
		return nil, err
	}

	snap := e.meter.Snapshot()
	stats := &models.Stats{
		PendingCount:      counts.Pending,
		SyncedCount:       counts.Synced,
		FailedCount:       counts.Failed,
		ConflictCount:     len(open),
		RelayPendingCount: counts.RelayPending,
		ReceivedCount:     counts.Received,
		AvgLatency:        snap.AvgLatency,
		BytesUp:           snap.BytesUp,
		BytesDown:         snap.BytesDown,
	}

	last, err := e.store.GetLastSyncAt(ctx)
	if err != nil {
		return nil, err
	}
	if !last.IsZero() {
		stats.LastSyncAt = &last
	}
	return stats, nil
}

// OnConflict регистрирует обработчик конфликтов, ожидающих ручного решения
func (e *Engine) OnConflict(cb func(*models.ConflictRecord)) {
	e.resolver.OnConflict(cb)
}

// OnFailed регистрирует обработчик операций, исчерпавших повторы
func (e *Engine) OnFailed(cb func(*models.SyncOperation)) {
	e.oplog.OnFailed(cb)
}

// GetTopology возвращает снимок mesh
func (e *Engine) GetTopology() *models.MeshTopology {
	return e.registry.Topology()
}

// ListConflicts возвращает журнал конфликтов
func (e *Engine) ListConflicts(ctx context.Context, openOnly bool) ([]*models.ConflictRecord, error) {
	return e.resolver.ListConflicts(ctx, openOnly)
}

// ListFailed возвращает терминально неудачные операции
func (e *Engine) ListFailed(ctx context.Context) ([]*models.SyncOperation, error) {
	return e.oplog.ListFailed(ctx)
}

// RetryFailed возвращает неудачную операцию в очередь
func (e *Engine) RetryFailed(ctx context.Context, id string) error {
	if err := e.oplog.RetryFailed(ctx, id); err != nil {
		return err
	}
	e.notify()
	return nil
}

// ResolveConflict применяет ручное решение конфликта. Доступно только на primary.
// Решение оформляется новой локальной операцией, доминирующей над всеми
// конфликтующими, поэтому все устройства сходятся к нему.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, d Decision) (string, error) {
	if !e.registry.IsPrimary() {
		return "", ErrNotPrimary
	}
	if d.WinnerOperationID == "" && d.Payload == nil && !d.Delete {
		return "", ErrEmptyDecision
	}

	op, err := e.resolver.ResolveManual(ctx, conflictID, d.Notes, func(state *models.DocumentState, record *models.ConflictRecord) (*models.SyncOperation, error) {
		kind, payload, err := decisionContent(state, record, d)
		if err != nil {
			return nil, err
		}

		e.tracker.Merge(state.Clock)
		return e.oplog.Append(ctx, oplog.AppendRequest{
			Kind:         kind,
			Collection:   record.Collection,
			DocumentID:   record.DocumentID,
			Priority:     e.cfg.Get().PriorityFor(record.Collection),
			User:         e.userID,
			Payload:      payload,
			MinTimestamp: state.MaxTimestamp,
		})
	})
	if err != nil {
		return "", err
	}

	e.notify()
	return op.ID, nil
}

// PromotePrimary назначает primary-устройство двухфазной сменой роли
func (e *Engine) PromotePrimary(ctx context.Context, deviceID string) error {
	return e.registry.ChangePrimary(ctx, deviceID)
}

// handleResolved переводит собственные операции, ожидавшие решения, в resolved
func (e *Engine) handleResolved(record *models.ConflictRecord) {
	ctx := context.Background()
	for _, id := range record.OperationIDs {
		op, err := e.oplog.Get(ctx, id)
		if err != nil || op.State != models.StateConflict {
			continue
		}
		if err := e.oplog.MarkResolved(ctx, id); err != nil {
			e.logger.Warn("Failed to mark operation resolved", "op_id", id, "error", err)
		}
	}
}

func (e *Engine) notify() {
	if e.dispatcher != nil {
		e.dispatcher.Notify()
	}
}

func decisionContent(state *models.DocumentState, record *models.ConflictRecord, d Decision) (models.OperationKind, []byte, error) {
	switch {
	case d.Delete:
		return models.KindDelete, nil, nil
	case d.Payload != nil:
		return models.KindUpdate, d.Payload, nil
	}

	if !record.Involves(d.WinnerOperationID) {
		return "", nil, fmt.Errorf("%w: %s", conflict.ErrUnknownWinner, d.WinnerOperationID)
	}
	head, ok := state.FindHead(d.WinnerOperationID)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", conflict.ErrUnknownWinner, d.WinnerOperationID)
	}
	if head.Deleted() {
		return models.KindDelete, nil, nil
	}
	return models.KindUpdate, head.Payload, nil
}

package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/crypto"
	"github.com/iudanet/meshsync/internal/models"
)

// Outcome итог обработки полученной операции
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // операция применена напрямую
	OutcomeDuplicate Outcome = "duplicate" // уже известна или устарела
	OutcomeResolved  Outcome = "conflict"  // конфликт разрешен автоматически
	OutcomePending   Outcome = "pending"   // конфликт ждет ручного решения
)

// Result результат Apply
type Result struct {
	Conflict *models.ConflictRecord // созданная запись конфликта, если был конфликт
	Outcome  Outcome
}

// Store хранилище состояния документов и журнала конфликтов
type Store interface {
	storage.DocumentStorage
	storage.ConflictStorage
}

// Index сообщает, известна ли операция устройству
type Index interface {
	Has(ctx context.Context, id string) (bool, error)
}

// BuildFunc создает локальную операцию для текущего состояния документа.
// Вызывается под блокировкой документа.
type BuildFunc func(state *models.DocumentState) (*models.SyncOperation, error)

// Resolver применяет операции к локальному хранилищу записей.
// Работа с одним документом сериализуется, разные документы обрабатываются
// параллельно.
type Resolver struct {
	store      Store
	records    recordstore.RecordStore
	mergers    *recordstore.Registry
	index      Index
	cfg        *config.Holder
	locks      *keyedMutex
	logger     *slog.Logger
	now        func() time.Time
	deviceID   string
	onConflict []func(*models.ConflictRecord)
	onResolved []func(*models.ConflictRecord)
	cbMu       sync.RWMutex
}

// NewResolver создает Resolver. index может быть nil: тогда дубликаты
// определяются только по векторным часам.
func NewResolver(
	store Store,
	records recordstore.RecordStore,
	mergers *recordstore.Registry,
	index Index,
	cfg *config.Holder,
	deviceID string,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		store:    store,
		records:  records,
		mergers:  mergers,
		index:    index,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
		deviceID: deviceID,
	}
}

// OnConflict регистрирует обработчик конфликтов, ожидающих ручного решения
func (r *Resolver) OnConflict(cb func(*models.ConflictRecord)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()

	r.onConflict = append(r.onConflict, cb)
}

// OnResolved регистрирует обработчик закрытия ранее открытых конфликтов
func (r *Resolver) OnResolved(cb func(*models.ConflictRecord)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()

	r.onResolved = append(r.onResolved, cb)
}

// Apply обрабатывает полученную операцию:
//  1. проверяет контрольную сумму;
//  2. отбрасывает уже известные и устаревшие операции;
//  3. применяет напрямую операцию, доминирующую над состоянием документа;
//  4. для конкурентной операции создает ConflictRecord и применяет стратегию коллекции.
//
// В любом случае часы документа становятся покомпонентным максимумом.
func (r *Resolver) Apply(ctx context.Context, op *models.SyncOperation) (*Result, error) {
	if err := crypto.VerifyChecksum(op.Payload, op.Checksum); err != nil {
		return nil, err
	}

	var (
		result *Result
		closed []*models.ConflictRecord
	)

	err := r.withDocument(op.Collection, op.DocumentID, func() error {
		var err error
		result, closed, err = r.apply(ctx, op)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.notifyResolved(closed)
	if result.Outcome == OutcomePending {
		r.notifyConflict(result.Conflict)
	}

	return result, nil
}

// Local создает и применяет локальную операцию под блокировкой документа.
// Операция, построенная build, должна доминировать над часами документа.
func (r *Resolver) Local(ctx context.Context, collection, documentID string, build BuildFunc) (*models.SyncOperation, error) {
	var (
		op     *models.SyncOperation
		closed []*models.ConflictRecord
	)

	err := r.withDocument(collection, documentID, func() error {
		state, err := r.loadState(ctx, collection, documentID)
		if err != nil {
			return err
		}

		op, err = build(state)
		if err != nil {
			return err
		}

		closed, err = r.applyDominating(ctx, state, op, "")
		if err != nil {
			return fmt.Errorf("failed to apply local operation %s: %w", op.ID, err)
		}
		return nil
	})
	if err != nil {
		return op, err
	}

	r.notifyResolved(closed)
	return op, nil
}

// ResolveManual применяет ручное решение открытого конфликта.
// build получает состояние документа и запись конфликта и создает операцию,
// доминирующую над всеми конфликтующими; notes сохраняются в записи.
func (r *Resolver) ResolveManual(
	ctx context.Context,
	conflictID string,
	notes string,
	build func(state *models.DocumentState, record *models.ConflictRecord) (*models.SyncOperation, error),
) (*models.SyncOperation, error) {
	record, err := r.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}

	var (
		op     *models.SyncOperation
		closed []*models.ConflictRecord
	)

	err = r.withDocument(record.Collection, record.DocumentID, func() error {
		// перечитываем под блокировкой: конфликт мог закрыться параллельно
		record, err := r.store.GetConflict(ctx, conflictID)
		if err != nil {
			return err
		}
		if !record.IsOpen() {
			return fmt.Errorf("%w: %s", ErrConflictClosed, conflictID)
		}

		state, err := r.loadState(ctx, record.Collection, record.DocumentID)
		if err != nil {
			return err
		}

		op, err = build(state, record)
		if err != nil {
			return err
		}

		closed, err = r.applyDominating(ctx, state, op, notes)
		if err != nil {
			return fmt.Errorf("failed to apply resolution %s: %w", op.ID, err)
		}
		return nil
	})
	if err != nil {
		return op, err
	}

	r.logger.Info("Conflict resolved manually",
		"conflict_id", conflictID,
		"op_id", op.ID,
		"collection", record.Collection,
		"document_id", record.DocumentID,
	)

	r.notifyResolved(closed)
	return op, nil
}

// Document возвращает состояние документа (пустое, если к нему ничего не применялось)
func (r *Resolver) Document(ctx context.Context, collection, documentID string) (*models.DocumentState, error) {
	return r.loadState(ctx, collection, documentID)
}

// GetConflict возвращает запись конфликта
func (r *Resolver) GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error) {
	return r.store.GetConflict(ctx, id)
}

// ListConflicts возвращает журнал конфликтов; openOnly оставляет только открытые
func (r *Resolver) ListConflicts(ctx context.Context, openOnly bool) ([]*models.ConflictRecord, error) {
	return r.store.ListConflicts(ctx, func(rec *models.ConflictRecord) bool {
		return !openOnly || rec.IsOpen()
	})
}

func (r *Resolver) apply(ctx context.Context, op *models.SyncOperation) (*Result, []*models.ConflictRecord, error) {
	duplicate := &Result{Outcome: OutcomeDuplicate}

	if r.index != nil {
		known, err := r.index.Has(ctx, op.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check operation %s: %w", op.ID, err)
		}
		if known {
			return duplicate, nil, nil
		}
	}

	state, err := r.loadState(ctx, op.Collection, op.DocumentID)
	if err != nil {
		return nil, nil, err
	}

	// Уже примененная или причинно предшествующая операция
	if state.Clock.Covers(op.VectorClock) {
		return duplicate, nil, nil
	}

	if op.VectorClock.Dominates(state.Clock) {
		closed, err := r.applyDominating(ctx, state, op, "")
		if err != nil {
			return nil, nil, err
		}
		return &Result{Outcome: OutcomeApplied}, closed, nil
	}

	record, err := r.applyConcurrent(ctx, state, op)
	if err != nil {
		return nil, nil, err
	}

	outcome := OutcomeResolved
	if record.IsOpen() {
		outcome = OutcomePending
	}
	return &Result{Outcome: outcome, Conflict: record}, nil, nil
}

// applyDominating применяет операцию, доминирующую над часами документа:
// она становится единственной головой, открытые конфликты документа закрываются.
func (r *Resolver) applyDominating(ctx context.Context, state *models.DocumentState, op *models.SyncOperation, notes string) ([]*models.ConflictRecord, error) {
	if err := r.write(ctx, op.Collection, op.DocumentID, op.Kind == models.KindDelete, op.Payload); err != nil {
		return nil, err
	}

	now := r.now()

	open, err := r.store.ListConflicts(ctx, func(rec *models.ConflictRecord) bool {
		return rec.IsOpen() && rec.Collection == op.Collection && rec.DocumentID == op.DocumentID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open conflicts: %w", err)
	}
	for _, rec := range open {
		rec.Close(models.ResolutionManual, op.ID, op.OriginDevice, now)
		if notes != "" {
			rec.Notes = notes
		}
		if err := r.store.SaveConflict(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to close conflict %s: %w", rec.ID, err)
		}
	}

	state.Heads = []models.Head{models.HeadFromOperation(op)}
	r.advance(state, op, now)

	if err := r.store.SaveDocument(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save document state: %w", err)
	}

	return open, nil
}

// applyConcurrent регистрирует конфликт и применяет стратегию коллекции
func (r *Resolver) applyConcurrent(ctx context.Context, state *models.DocumentState, op *models.SyncOperation) (*models.ConflictRecord, error) {
	heads, concurrent := crdt.InsertHead(state.Heads, models.HeadFromOperation(op))

	opIDs := make([]string, 0, len(concurrent)+1)
	opIDs = append(opIDs, op.ID)
	for i := range concurrent {
		opIDs = append(opIDs, concurrent[i].OperationID)
	}
	sort.Strings(opIDs)

	strategy := r.cfg.Get().StrategyFor(op.Collection)
	merge, _ := r.mergers.Lookup(op.Collection)
	v := materialize(strategy, heads, merge)

	now := r.now()
	record := &models.ConflictRecord{
		ID:           conflictID(op.Collection, op.DocumentID, opIDs),
		Collection:   op.Collection,
		DocumentID:   op.DocumentID,
		OperationIDs: opIDs,
		Strategy:     strategy,
		Notes:        v.Notes,
		DetectedAt:   now,
	}

	if !v.Pending {
		if err := r.write(ctx, op.Collection, op.DocumentID, v.Deleted, v.Payload); err != nil {
			return nil, err
		}
		record.Close(v.Resolution, v.WinnerID, r.deviceID, now)
	}

	if err := r.store.SaveConflict(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save conflict: %w", err)
	}

	state.Heads = heads
	r.advance(state, op, now)

	if err := r.store.SaveDocument(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save document state: %w", err)
	}

	r.logger.Info("Conflict detected",
		"conflict_id", record.ID,
		"collection", record.Collection,
		"document_id", record.DocumentID,
		"strategy", strategy,
		"resolution", record.Resolution,
		"operations", strings.Join(opIDs, ","),
	)

	return record, nil
}

func (r *Resolver) advance(state *models.DocumentState, op *models.SyncOperation, now time.Time) {
	state.Clock = state.Clock.Merge(op.VectorClock)
	if op.PhysicalTimestamp > state.MaxTimestamp {
		state.MaxTimestamp = op.PhysicalTimestamp
	}
	state.UpdatedAt = now
}

func (r *Resolver) write(ctx context.Context, collection, documentID string, deleted bool, payload []byte) error {
	if deleted {
		if err := r.records.Delete(ctx, collection, documentID); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	}

	if err := r.records.Put(ctx, collection, documentID, payload); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (r *Resolver) loadState(ctx context.Context, collection, documentID string) (*models.DocumentState, error) {
	state, err := r.store.GetDocument(ctx, collection, documentID)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		return models.NewDocumentState(collection, documentID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document state: %w", err)
	}
	if state.Clock == nil {
		state.Clock = models.VectorClock{}
	}
	return state, nil
}

func (r *Resolver) withDocument(collection, documentID string, fn func() error) error {
	unlock := r.locks.Lock(collection + "/" + documentID)
	defer unlock()

	return fn()
}

func (r *Resolver) notifyConflict(record *models.ConflictRecord) {
	r.cbMu.RLock()
	callbacks := append([]func(*models.ConflictRecord){}, r.onConflict...)
	r.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(record)
	}
}

func (r *Resolver) notifyResolved(records []*models.ConflictRecord) {
	if len(records) == 0 {
		return
	}

	r.cbMu.RLock()
	callbacks := append([]func(*models.ConflictRecord){}, r.onResolved...)
	r.cbMu.RUnlock()

	for _, rec := range records {
		for _, cb := range callbacks {
			cb(rec)
		}
	}
}

// conflictID детерминированный идентификатор конфликта: одинаков на всех
// устройствах, обнаруживших конфликт между одними и теми же операциями
func conflictID(collection, documentID string, opIDs []string) string {
	name := collection + "/" + documentID + "/" + strings.Join(opIDs, ",")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

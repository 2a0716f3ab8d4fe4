package oplog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/client/storage"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/crypto"
	"github.com/iudanet/meshsync/internal/ids"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/validation"
)

// AppendRequest параметры новой локальной операции
type AppendRequest struct {
	Kind       models.OperationKind
	Collection string
	DocumentID string
	Priority   models.Priority
	User       string
	Payload    []byte
	// MinTimestamp физическое время операции будет строго больше этого значения
	MinTimestamp int64
}

// Counts число операций в outbox по категориям
type Counts struct {
	Pending      int // собственные queued + syncing
	Synced       int // собственные synced + resolved
	Conflict     int // собственные в состоянии conflict
	Failed       int // терминально неудачные, включая ретрансляции
	RelayPending int // чужие операции, ожидающие ретрансляции
	Received     int // все принятые чужие операции
}

// Log outbox устройства. Все операции хранятся до конца жизни узла:
// synced - для аудита и дедупликации, failed - до явного повтора.
type Log struct {
	storage  storage.OperationStorage
	tracker  *crdt.Tracker
	cfg      *config.Holder
	logger   *slog.Logger
	now      func() time.Time
	onFailed []func(*models.SyncOperation)
	mu       sync.Mutex // сериализует Append: tick + запись
	cbMu     sync.RWMutex
}

// New создает outbox
func New(st storage.OperationStorage, tracker *crdt.Tracker, cfg *config.Holder, logger *slog.Logger) *Log {
	return &Log{
		storage: st,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock подменяет источник времени (используется в тестах)
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// DeviceID идентификатор локального устройства
func (l *Log) DeviceID() string {
	return l.tracker.NodeID()
}

// OnFailed регистрирует обработчик терминально неудачных операций
func (l *Log) OnFailed(cb func(*models.SyncOperation)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()

	l.onFailed = append(l.onFailed, cb)
}

// Append проверяет операцию, вычисляет checksum, увеличивает часы и
// сохраняет операцию в состоянии queued до возврата ее идентификатора.
func (l *Log) Append(ctx context.Context, req AppendRequest) (*models.SyncOperation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ts := now.UnixMilli()
	if ts <= req.MinTimestamp {
		ts = req.MinTimestamp + 1
	}

	clock := l.tracker.Tick()
	op := &models.SyncOperation{
		ID:                ids.NewULID(now),
		Collection:        req.Collection,
		DocumentID:        req.DocumentID,
		Kind:              req.Kind,
		Payload:           req.Payload,
		Priority:          req.Priority,
		OriginDevice:      l.tracker.NodeID(),
		OriginUser:        req.User,
		PhysicalTimestamp: ts,
		VectorClock:       clock,
		Checksum:          crypto.Checksum(req.Payload),
		State:             models.StateQueued,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := l.storage.AppendOperation(ctx, op, clock); err != nil {
		// операция не сохранена - счетчик не должен остаться занятым
		l.tracker.Untick(clock[l.tracker.NodeID()])
		return nil, fmt.Errorf("failed to append operation: %w", err)
	}

	l.logger.Debug("Operation appended",
		"op_id", op.ID,
		"collection", op.Collection,
		"document_id", op.DocumentID,
		"kind", op.Kind,
		"priority", op.Priority,
	)

	return op.Clone(), nil
}

// Record сохраняет копию чужой операции. При forward копия ставится в очередь
// на ретрансляцию, иначе сразу считается synced. Повторная запись не ошибка.
func (l *Log) Record(ctx context.Context, remote *models.SyncOperation, from string, forward bool) error {
	now := l.now()

	op := remote.Clone()
	op.RelayedFrom = from
	op.Attempts = 0
	op.LastError = ""
	op.NextAttemptAt = time.Time{}
	op.CreatedAt = now
	op.UpdatedAt = now
	op.State = models.StateQueued
	op.SyncedAt = nil
	if !forward {
		op.State = models.StateSynced
		op.SyncedAt = &now
	}

	err := l.storage.AppendOperation(ctx, op, nil)
	if errors.Is(err, storage.ErrOperationExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record remote operation: %w", err)
	}
	return nil
}

// Get возвращает операцию по идентификатору
func (l *Log) Get(ctx context.Context, id string) (*models.SyncOperation, error) {
	return l.storage.GetOperation(ctx, id)
}

// Has проверяет, известна ли операция устройству
func (l *Log) Has(ctx context.Context, id string) (bool, error) {
	_, err := l.storage.GetOperation(ctx, id)
	if errors.Is(err, storage.ErrOperationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkDispatched переводит queued -> syncing
func (l *Log) MarkDispatched(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateQueued {
			return fmt.Errorf("%w: dispatch from %s", ErrInvalidTransition, op.State)
		}
		op.State = models.StateSyncing
		return nil
	})
}

// MarkSynced фиксирует подтверждение всеми пирами
func (l *Log) MarkSynced(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing {
			return fmt.Errorf("%w: synced from %s", ErrInvalidTransition, op.State)
		}
		op.State = models.StateSynced
		op.LastError = ""
		op.SyncedAt = &now
		return nil
	})
}

// MarkConflict фиксирует, что операция ждет ручного разрешения у пира
func (l *Log) MarkConflict(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing {
			return fmt.Errorf("%w: conflict from %s", ErrInvalidTransition, op.State)
		}
		op.State = models.StateConflict
		return nil
	})
}

// MarkResolved фиксирует разрешение конфликта по операции.
// Допустим из syncing (пир разрешил конфликт автоматически) и из conflict.
// Для операций в любом другом состоянии вызов ничего не делает.
func (l *Log) MarkResolved(ctx context.Context, id string) error {
	err := l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing && op.State != models.StateConflict {
			return errNoop
		}
		op.State = models.StateResolved
		op.SyncedAt = &now
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// MarkFailed учитывает неудачную попытку. Ниже потолка полосы операция
// возвращается в queued с отложенной следующей попыткой, на потолке становится
// терминально failed и передается обработчикам OnFailed.
func (l *Log) MarkFailed(ctx context.Context, id, reason string) (*models.SyncOperation, error) {
	var terminal bool

	op, err := l.update(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing {
			return fmt.Errorf("%w: failed from %s", ErrInvalidTransition, op.State)
		}

		policy := l.cfg.Get().RetryPolicy(op.Priority)
		op.Attempts++
		op.LastError = reason

		if op.Attempts >= policy.MaxAttempts {
			op.State = models.StateFailed
			op.NextAttemptAt = time.Time{}
			terminal = true
			return nil
		}

		op.State = models.StateQueued
		op.NextAttemptAt = now.Add(backoffDelay(policy, op.Attempts))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if terminal {
		l.logger.Error("Operation failed permanently",
			"op_id", op.ID,
			"collection", op.Collection,
			"attempts", op.Attempts,
			"error", reason,
		)
		l.notifyFailed(op)
	} else {
		l.logger.Warn("Operation send failed, will retry",
			"op_id", op.ID,
			"attempts", op.Attempts,
			"next_attempt_at", op.NextAttemptAt,
			"error", reason,
		)
	}

	return op, nil
}

// Requeue возвращает syncing -> queued без учета попытки (разрыв связи, нет пиров)
func (l *Log) Requeue(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing {
			return fmt.Errorf("%w: requeue from %s", ErrInvalidTransition, op.State)
		}
		op.State = models.StateQueued
		return nil
	})
}

// Defer возвращает syncing -> queued, если получатель еще не видел причинных
// предшественников операции. Попытка не учитывается; следующая отправка
// откладывается на базовую задержку полосы, за это время предшественники
// доходят отдельно.
func (l *Log) Defer(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateSyncing {
			return fmt.Errorf("%w: defer from %s", ErrInvalidTransition, op.State)
		}
		delay := backoffDelay(l.cfg.Get().RetryPolicy(op.Priority), 1)
		if delay <= 0 {
			delay = minDeferDelay
		}
		op.State = models.StateQueued
		op.NextAttemptAt = now.Add(delay)
		return nil
	})
}

// RetryFailed явно возвращает терминально неудачную операцию в очередь
func (l *Log) RetryFailed(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(op *models.SyncOperation, now time.Time) error {
		if op.State != models.StateFailed {
			return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, op.State)
		}
		op.State = models.StateQueued
		op.Attempts = 0
		op.NextAttemptAt = time.Time{}
		return nil
	})
}

// Recover возвращает в очередь операции, отправка которых прервалась
// остановкой узла. Вызывается при старте.
func (l *Log) Recover(ctx context.Context) (int, error) {
	stuck, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		return op.State == models.StateSyncing
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list in-flight operations: %w", err)
	}

	for _, op := range stuck {
		if err := l.Requeue(ctx, op.ID); err != nil {
			return 0, err
		}
	}
	return len(stuck), nil
}

// Ready возвращает queued операции, у которых истекла задержка, в порядке
// диспетчеризации: полоса (critical первой), затем порядок создания (ULID).
// Операция не уходит раньше своих причинных предшественников из очереди:
// более ранние операции того же источника и того же документа поднимаются в
// полосу своих преемников, а пока предшественник ждет повтора, преемник
// тоже ждет.
func (l *Log) Ready(ctx context.Context, now time.Time) ([]*models.SyncOperation, error) {
	queued, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		return op.State == models.StateQueued
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list queued operations: %w", err)
	}

	groups := causalGroups(queued)
	rank := causalRanks(queued, groups)
	held := heldBack(queued, groups, now)

	ready := make([]*models.SyncOperation, 0, len(queued))
	for _, op := range queued {
		if held[op.ID] {
			continue
		}
		ready = append(ready, op)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		ri, rj := rank[ready[i].ID], rank[ready[j].ID]
		if ri != rj {
			return ri < rj
		}
		return ready[i].ID < ready[j].ID
	})

	return ready, nil
}

// causalGroups делит очередь на цепочки, упорядоченные причинно: операции
// одного источника по его счетчику и операции одного документа по сумме
// часов (причинный преемник всегда имеет большую сумму).
func causalGroups(ops []*models.SyncOperation) [][]*models.SyncOperation {
	byOrigin := make(map[string][]*models.SyncOperation)
	byDocument := make(map[string][]*models.SyncOperation)
	for _, op := range ops {
		byOrigin[op.OriginDevice] = append(byOrigin[op.OriginDevice], op)
		key := op.Collection + "/" + op.DocumentID
		byDocument[key] = append(byDocument[key], op)
	}

	groups := make([][]*models.SyncOperation, 0, len(byOrigin)+len(byDocument))
	for _, g := range byOrigin {
		sort.Slice(g, func(i, j int) bool { return g[i].OriginCounter() < g[j].OriginCounter() })
		groups = append(groups, g)
	}
	for _, g := range byDocument {
		sort.Slice(g, func(i, j int) bool {
			si, sj := clockSum(g[i].VectorClock), clockSum(g[j].VectorClock)
			if si != sj {
				return si < sj
			}
			return g[i].ID < g[j].ID
		})
		groups = append(groups, g)
	}
	return groups
}

// causalRanks вычисляет полосу каждой операции с учетом ее преемников
func causalRanks(ops []*models.SyncOperation, groups [][]*models.SyncOperation) map[string]int {
	rank := make(map[string]int, len(ops))
	for _, op := range ops {
		rank[op.ID] = op.Priority.Rank()
	}

	// полосы только повышаются, поэтому проход до неподвижной точки конечен
	for changed := true; changed; {
		changed = false
		for _, g := range groups {
			best := rank[g[len(g)-1].ID]
			for i := len(g) - 1; i >= 0; i-- {
				r := rank[g[i].ID]
				if r < best {
					best = r
				}
				if best < r {
					rank[g[i].ID] = best
					changed = true
				}
			}
		}
	}

	return rank
}

// heldBack отмечает операции, которые ждут повтора, и всех их преемников
func heldBack(ops []*models.SyncOperation, groups [][]*models.SyncOperation, now time.Time) map[string]bool {
	held := make(map[string]bool, len(ops))
	for _, op := range ops {
		if !op.NextAttemptAt.IsZero() && op.NextAttemptAt.After(now) {
			held[op.ID] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, g := range groups {
			blocked := false
			for _, op := range g {
				if held[op.ID] {
					blocked = true
					continue
				}
				if blocked {
					held[op.ID] = true
					changed = true
				}
			}
		}
	}

	return held
}

func clockSum(vc models.VectorClock) uint64 {
	var sum uint64
	for _, n := range vc {
		sum += n
	}
	return sum
}

// NextWakeup возвращает ближайшее время, когда отложенная операция станет готовой
func (l *Log) NextWakeup(ctx context.Context, now time.Time) (time.Time, bool, error) {
	delayed, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		return op.State == models.StateQueued && op.NextAttemptAt.After(now)
	})
	if err != nil {
		return time.Time{}, false, err
	}

	var next time.Time
	for _, op := range delayed {
		if next.IsZero() || op.NextAttemptAt.Before(next) {
			next = op.NextAttemptAt
		}
	}
	return next, !next.IsZero(), nil
}

// ListFailed возвращает терминально неудачные операции
func (l *Log) ListFailed(ctx context.Context) ([]*models.SyncOperation, error) {
	return l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		return op.State == models.StateFailed
	})
}

// ListByState возвращает операции в заданном состоянии
func (l *Log) ListByState(ctx context.Context, state models.OperationState) ([]*models.SyncOperation, error) {
	return l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		return op.State == state
	})
}

// Counts считает операции по категориям
func (l *Log) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	self := l.tracker.NodeID()

	_, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		remote := op.IsRemote(self)
		if remote {
			c.Received++
		}

		switch op.State {
		case models.StateQueued, models.StateSyncing:
			if remote {
				c.RelayPending++
			} else {
				c.Pending++
			}
		case models.StateSynced, models.StateResolved:
			if !remote {
				c.Synced++
			}
		case models.StateConflict:
			if !remote {
				c.Conflict++
			}
		case models.StateFailed:
			c.Failed++
		}
		return false
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count operations: %w", err)
	}

	return c, nil
}

// Watermarks возвращает для каждого источника наибольший счетчик N, такой что
// все операции источника с номерами 1..N уже известны устройству.
// Используется для догоняющей синхронизации после подключения пира.
func (l *Log) Watermarks(ctx context.Context) (map[string]uint64, error) {
	seen := make(map[string]map[uint64]struct{})

	_, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		n := op.OriginCounter()
		if n == 0 {
			return false
		}
		if seen[op.OriginDevice] == nil {
			seen[op.OriginDevice] = make(map[uint64]struct{})
		}
		seen[op.OriginDevice][n] = struct{}{}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute watermarks: %w", err)
	}

	out := make(map[string]uint64, len(seen))
	for origin, counters := range seen {
		var n uint64
		for {
			if _, ok := counters[n+1]; !ok {
				break
			}
			n++
		}
		out[origin] = n
	}
	return out, nil
}

// Since возвращает до limit операций, которых нет у пира с данными watermarks,
// в причинном порядке: предшественник всегда раньше преемника. more == true,
// если осталось еще.
// Операции в очереди и в отправке не возвращаются: их доставит диспетчер.
func (l *Log) Since(ctx context.Context, watermarks map[string]uint64, limit int) (ops []*models.SyncOperation, more bool, err error) {
	missing, err := l.storage.ListOperations(ctx, func(op *models.SyncOperation) bool {
		if op.State == models.StateQueued || op.State == models.StateSyncing {
			return false
		}
		return op.OriginCounter() > watermarks[op.OriginDevice]
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list missing operations: %w", err)
	}

	sort.SliceStable(missing, func(i, j int) bool {
		si, sj := clockSum(missing[i].VectorClock), clockSum(missing[j].VectorClock)
		if si != sj {
			return si < sj
		}
		return missing[i].ID < missing[j].ID
	})

	if limit > 0 && len(missing) > limit {
		return missing[:limit], true, nil
	}
	return missing, false, nil
}

// minDeferDelay задержка отложенной операции, если у полосы нет базовой задержки
const minDeferDelay = 100 * time.Millisecond

var errNoop = errors.New("noop")

func (l *Log) transition(ctx context.Context, id string, fn func(op *models.SyncOperation, now time.Time) error) error {
	_, err := l.update(ctx, id, fn)
	return err
}

func (l *Log) update(ctx context.Context, id string, fn func(op *models.SyncOperation, now time.Time) error) (*models.SyncOperation, error) {
	now := l.now()

	op, err := l.storage.UpdateOperation(ctx, id, func(op *models.SyncOperation) error {
		if op.State == models.StateSynced {
			return fmt.Errorf("%w: %s", ErrOperationImmutable, op.ID)
		}
		if err := fn(op, now); err != nil {
			return err
		}
		op.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (l *Log) notifyFailed(op *models.SyncOperation) {
	l.cbMu.RLock()
	callbacks := append([]func(*models.SyncOperation){}, l.onFailed...)
	l.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(op.Clone())
	}
}

func validateRequest(req AppendRequest) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, req.Kind)
	}
	if !req.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidOperation, req.Priority)
	}
	if err := validation.ValidateCollection(req.Collection); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if err := validation.ValidateDocumentID(req.DocumentID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if err := validation.ValidatePayload(req.Payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	return nil
}

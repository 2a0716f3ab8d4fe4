package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/client/metrics"
	"github.com/iudanet/meshsync/internal/client/oplog"
	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// Outbox очередь операций, которую опустошает диспетчер
type Outbox interface {
	Ready(ctx context.Context, now time.Time) ([]*models.SyncOperation, error)
	NextWakeup(ctx context.Context, now time.Time) (time.Time, bool, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkSynced(ctx context.Context, id string) error
	MarkConflict(ctx context.Context, id string) error
	MarkResolved(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) (*models.SyncOperation, error)
	Requeue(ctx context.Context, id string) error
	Defer(ctx context.Context, id string) error
}

// Peers источник адресатов рассылки
type Peers interface {
	OnlineTargets() []string
	BeginSync(deviceID string)
	EndSync(deviceID string, latency time.Duration)
}

// SyncRecorder сохраняет время последней успешной отправки
type SyncRecorder interface {
	SaveLastSyncAt(ctx context.Context, at time.Time) error
}

// Dispatcher единственный цикл отправки устройства. Операции уходят строго по
// полосам приоритета, внутри полосы в порядке создания; каждому пиру пакеты
// отправляются последовательно.
type Dispatcher struct {
	outbox    Outbox
	peers     Peers
	transport transport.Transport
	recorder  SyncRecorder
	cfg       *config.Holder
	meter     *metrics.Meter
	logger    *slog.Logger
	now       func() time.Time
	wake      chan struct{}
	deviceID  string
	drainMu   sync.Mutex
}

// New создает диспетчер
func New(
	outbox Outbox,
	peers Peers,
	tr transport.Transport,
	recorder SyncRecorder,
	cfg *config.Holder,
	meter *metrics.Meter,
	deviceID string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		outbox:    outbox,
		peers:     peers,
		transport: tr,
		recorder:  recorder,
		cfg:       cfg,
		meter:     meter,
		logger:    logger,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		deviceID:  deviceID,
	}
}

// Notify будит цикл отправки (новая операция, пир появился в сети)
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run опустошает outbox до отмены ctx: по Notify, по истечении отложенных
// повторов и периодически раз в sync_interval
func (d *Dispatcher) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		case <-timer.C:
		}

		if err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("Dispatch failed", "error", err)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.nextDelay(ctx))
	}
}

// Drain отправляет готовые операции, пока они есть и есть доступные пиры
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	for ctx.Err() == nil {
		targets := d.peers.OnlineTargets()
		if len(targets) == 0 {
			// без пиров операции остаются в очереди
			return nil
		}

		ready, err := d.outbox.Ready(ctx, d.now())
		if err != nil {
			return fmt.Errorf("failed to load ready operations: %w", err)
		}
		if len(ready) == 0 {
			return nil
		}

		batchSize := d.cfg.Get().BatchSize
		if batchSize <= 0 || batchSize > len(ready) {
			batchSize = len(ready)
		}

		progressed, err := d.dispatchBatch(ctx, ready[:batchSize], targets)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
	return nil
}

// outcome итог отправки операции всем адресатам
type outcome struct {
	failure      string
	disconnected bool
	deferred     bool
	pending      bool
	conflict     bool
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, batch []*models.SyncOperation, targets []string) (bool, error) {
	inFlight := make([]*models.SyncOperation, 0, len(batch))
	for _, op := range batch {
		if err := d.outbox.MarkDispatched(ctx, op.ID); err != nil {
			if errors.Is(err, oplog.ErrInvalidTransition) || errors.Is(err, oplog.ErrOperationImmutable) {
				continue
			}
			return false, err
		}
		inFlight = append(inFlight, op)
	}

	outcomes := make(map[string]*outcome, len(inFlight))
	for _, op := range inFlight {
		outcomes[op.ID] = &outcome{}
	}

	for _, peer := range targets {
		ops := opsForPeer(inFlight, peer)
		if len(ops) == 0 {
			continue
		}
		d.sendToPeer(ctx, peer, ops, outcomes)
	}

	var (
		progressed bool
		acked      bool
	)
	for _, op := range inFlight {
		o := outcomes[op.ID]
		if err := d.finalize(ctx, op, o); err != nil {
			return progressed, err
		}
		if !o.disconnected {
			progressed = true
		}
		if o.failure == "" && !o.disconnected {
			acked = true
		}
	}

	if acked && d.recorder != nil {
		if err := d.recorder.SaveLastSyncAt(ctx, d.now()); err != nil {
			d.logger.Warn("Failed to save last sync time", "error", err)
		}
	}

	return progressed, nil
}

// sendToPeer отправляет пакет пиру. Операции с ответом resend отправляются
// повторно, но не более integrity_resends раз.
func (d *Dispatcher) sendToPeer(ctx context.Context, peer string, ops []*models.SyncOperation, outcomes map[string]*outcome) {
	cfg := d.cfg.Get()
	pending := ops

	for resends := 0; len(pending) > 0; resends++ {
		if resends > cfg.IntegrityResends {
			for _, op := range pending {
				outcomes[op.ID].failure = fmt.Sprintf("peer %s: integrity resends exhausted", peer)
			}
			return
		}

		ack, err := d.request(ctx, peer, pending, cfg.SendTimeout())
		if err != nil {
			disconnected := isDisconnect(err) || ctx.Err() != nil
			for _, op := range pending {
				if disconnected {
					outcomes[op.ID].disconnected = true
				} else {
					outcomes[op.ID].failure = fmt.Sprintf("peer %s: %v", peer, err)
				}
			}
			d.logger.Warn("Failed to send batch",
				"peer", peer,
				"operations", len(pending),
				"error", err,
			)
			return
		}

		results := make(map[string]api.OpResult, len(ack.Results))
		for _, r := range ack.Results {
			results[r.ID] = r
		}

		var resend []*models.SyncOperation
		for _, op := range pending {
			o := outcomes[op.ID]
			r, ok := results[op.ID]
			if !ok {
				o.failure = fmt.Sprintf("peer %s: no result for operation", peer)
				continue
			}

			switch r.Status {
			case api.AckApplied, api.AckDuplicate:
			case api.AckDeferred:
				o.deferred = true
			case api.AckConflict:
				o.conflict = true
			case api.AckPending:
				o.pending = true
			case api.AckResend:
				resend = append(resend, op)
			default:
				o.failure = fmt.Sprintf("peer %s: %s", peer, r.Error)
			}
		}

		if len(resend) > 0 {
			d.logger.Warn("Peer requested resend",
				"peer", peer,
				"operations", len(resend),
			)
		}
		pending = resend
	}
}

func (d *Dispatcher) request(ctx context.Context, peer string, ops []*models.SyncOperation, timeout time.Duration) (*api.OpsAck, error) {
	batch := api.OpsBatch{Operations: make([]api.OperationMessage, 0, len(ops))}
	for _, op := range ops {
		batch.Operations = append(batch.Operations, transport.OperationToMessage(op))
	}

	env, err := transport.NewEnvelope(api.TypeOpsBatch, d.deviceID, peer, batch)
	if err != nil {
		return nil, err
	}
	d.meter.AddUp(len(env.Body))

	sendCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	d.peers.BeginSync(peer)
	start := d.now()

	resp, err := d.transport.Request(sendCtx, peer, env)
	if err != nil {
		d.peers.EndSync(peer, 0)
		return nil, err
	}

	now := d.now()
	latency := now.Sub(start)
	d.peers.EndSync(peer, latency)
	d.meter.AddDown(len(resp.Body))

	var ack api.OpsAck
	if err := transport.DecodeBody(resp, api.TypeOpsAck, &ack); err != nil {
		return nil, err
	}
	d.meter.ObserveAck(latency, now)

	return &ack, nil
}

// finalize переводит операцию в итоговое состояние по результатам всех пиров:
// ошибка или отказ -> повтор с задержкой; разрыв -> обратно в очередь;
// получатель ждет предшественников -> отложенный повтор без учета попытки;
// ожидает решения -> conflict; разрешен автоматически -> resolved; иначе synced.
func (d *Dispatcher) finalize(ctx context.Context, op *models.SyncOperation, o *outcome) error {
	var err error
	switch {
	case o.failure != "":
		_, err = d.outbox.MarkFailed(ctx, op.ID, o.failure)
	case o.disconnected:
		err = d.outbox.Requeue(ctx, op.ID)
	case o.deferred:
		err = d.outbox.Defer(ctx, op.ID)
	case o.pending:
		err = d.outbox.MarkConflict(ctx, op.ID)
	case o.conflict:
		err = d.outbox.MarkResolved(ctx, op.ID)
	default:
		err = d.outbox.MarkSynced(ctx, op.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to finalize operation %s: %w", op.ID, err)
	}
	return nil
}

func (d *Dispatcher) nextDelay(ctx context.Context) time.Duration {
	delay := d.cfg.Get().SyncInterval()
	if delay <= 0 {
		delay = 30 * time.Second
	}

	now := d.now()
	next, ok, err := d.outbox.NextWakeup(ctx, now)
	if err == nil && ok {
		if until := next.Sub(now); until < delay {
			delay = until
		}
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// opsForPeer отбирает операции, которые нужно отправить пиру: пиру не
// отправляются его собственные операции и копии, полученные от него же
func opsForPeer(ops []*models.SyncOperation, peer string) []*models.SyncOperation {
	out := make([]*models.SyncOperation, 0, len(ops))
	for _, op := range ops {
		if op.OriginDevice == peer || op.RelayedFrom == peer {
			continue
		}
		out = append(out, op)
	}
	return out
}

func isDisconnect(err error) bool {
	return errors.Is(err, transport.ErrDisconnected) ||
		errors.Is(err, transport.ErrPeerUnknown) ||
		errors.Is(err, transport.ErrClosed) ||
		errors.Is(err, context.Canceled)
}

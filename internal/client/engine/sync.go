package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/meshsync/internal/client/conflict"
	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// maxCatchUpRounds ограничивает число страниц догоняющей синхронизации за одно подключение пира
const maxCatchUpRounds = 10

// Run запускает цикл отправки, обработчик входящих сообщений и heartbeat.
// Возвращается после отмены ctx.
func (e *Engine) Run(ctx context.Context) error {
	if e.transport == nil {
		return ErrNoTransport
	}

	e.logger.Info("Sync engine started",
		"primary", e.registry.Primary(),
		"epoch", e.registry.Epoch(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return e.receiveLoop(gctx)
	})
	g.Go(func() error {
		return e.heartbeatLoop(gctx)
	})

	err := g.Wait()
	e.catchUp.Wait()

	e.logger.Info("Sync engine stopped")
	return err
}

// receiveLoop единственный обработчик входящей очереди и событий транспорта
func (e *Engine) receiveLoop(ctx context.Context) error {
	inbound := e.transport.Inbound()
	events := e.transport.Events()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-inbound:
			if !ok {
				return nil
			}
			e.handleDelivery(ctx, d)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.handleEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev transport.PeerEvent) {
	switch ev.Kind {
	case transport.EventOnline:
		if err := e.registry.PeerOnline(ctx, ev.PeerID); err != nil {
			e.logger.Error("Failed to register peer", "peer", ev.PeerID, "error", err)
		}
		e.peerAvailable(ctx, ev.PeerID)
	case transport.EventOffline:
		if err := e.registry.PeerOffline(ctx, ev.PeerID); err != nil {
			e.logger.Error("Failed to update peer", "peer", ev.PeerID, "error", err)
		}
	}
}

// peerAvailable будит отправку, сообщает пиру текущую топологию и
// запрашивает у него пропущенные операции
func (e *Engine) peerAvailable(ctx context.Context, peerID string) {
	e.notify()
	e.sendHeartbeat(ctx, peerID)
	e.startCatchUp(ctx, peerID)
}

// startCatchUp запускает догоняющую синхронизацию с пиром в фоне, если она
// еще не идет
func (e *Engine) startCatchUp(ctx context.Context, peerID string) {
	e.catchMu.Lock()
	if _, ok := e.catchingUp[peerID]; ok {
		e.catchMu.Unlock()
		return
	}
	e.catchingUp[peerID] = struct{}{}
	e.catchMu.Unlock()

	e.catchUp.Add(1)
	go func() {
		defer e.catchUp.Done()
		defer func() {
			e.catchMu.Lock()
			delete(e.catchingUp, peerID)
			e.catchMu.Unlock()
		}()
		if err := e.CatchUp(ctx, peerID); err != nil && ctx.Err() == nil {
			e.logger.Warn("Catch-up failed", "peer", peerID, "error", err)
		}
	}()
}

func (e *Engine) handleDelivery(ctx context.Context, d *transport.Delivery) {
	env := d.Envelope
	e.meter.AddDown(len(env.Body))

	var (
		resp *api.Envelope
		err  error
	)

	switch env.Type {
	case api.TypeOpsBatch:
		var batch api.OpsBatch
		if err = transport.DecodeBody(env, api.TypeOpsBatch, &batch); err != nil {
			break
		}
		ack := e.receiveBatch(ctx, env.From, batch.Operations)
		resp, err = transport.NewEnvelope(api.TypeOpsAck, e.deviceID, env.From, ack)
		if ack.Deferred() > 0 {
			// предшественники отложенных операций есть у отправителя
			e.startCatchUp(ctx, env.From)
		}

	case api.TypeCatchUpRequest:
		var req api.CatchUpRequest
		if err = transport.DecodeBody(env, api.TypeCatchUpRequest, &req); err != nil {
			break
		}
		var page *api.CatchUpResponse
		if page, err = e.catchUpPage(ctx, req); err != nil {
			break
		}
		resp, err = transport.NewEnvelope(api.TypeCatchUpResponse, e.deviceID, env.From, page)

	case api.TypeHeartbeat:
		var hb api.Heartbeat
		if err = transport.DecodeBody(env, api.TypeHeartbeat, &hb); err != nil {
			break
		}
		wasOnline := e.registry.IsOnline(hb.DeviceID)
		if err = e.registry.Heartbeat(ctx, hb); err != nil {
			break
		}
		if !wasOnline && hb.DeviceID != e.deviceID {
			// пир вернулся после того, как Sweep счел его недоступным
			e.peerAvailable(ctx, hb.DeviceID)
		}
		return

	case api.TypeRoleChange:
		var msg api.RoleChange
		if err = transport.DecodeBody(env, api.TypeRoleChange, &msg); err != nil {
			break
		}
		ack := e.registry.HandleRoleChange(ctx, env.From, msg)
		resp, err = transport.NewEnvelope(api.TypeRoleAck, e.deviceID, env.From, ack)

	default:
		err = fmt.Errorf("unsupported message type %q", env.Type)
	}

	if err != nil {
		e.logger.Warn("Failed to handle message",
			"type", env.Type,
			"peer", env.From,
			"error", err,
		)
		resp, err = transport.NewEnvelope(api.TypeError, e.deviceID, env.From, api.ErrorResponse{Error: err.Error()})
		if err != nil {
			return
		}
	}

	if resp == nil {
		return
	}
	e.meter.AddUp(len(resp.Body))
	if err := d.Reply(ctx, resp); err != nil {
		e.logger.Warn("Failed to reply", "type", env.Type, "peer", env.From, "error", err)
	}
}

// receiveBatch обрабатывает пакет операций. Операция применяется только
// после всех своих причинных предшественников: пакет разбирается раундами,
// в каждом раунде применяются доставляемые операции (одного документа по
// порядку, разные документы параллельно). Операции, предшественников которых
// устройство так и не увидело, получают deferred.
func (e *Engine) receiveBatch(ctx context.Context, from string, msgs []api.OperationMessage) api.OpsAck {
	results := make([]api.OpResult, len(msgs))
	ops := make([]*models.SyncOperation, len(msgs))
	done := make([]bool, len(msgs))
	for i, msg := range msgs {
		ops[i] = transport.MessageToOperation(msg)
	}

	for {
		var round []int
		for i, op := range ops {
			if !done[i] && e.deliverable(op) {
				round = append(round, i)
			}
		}
		if len(round) == 0 {
			break
		}

		e.receiveRound(ctx, from, ops, round, results)
		for _, i := range round {
			done[i] = true
		}
	}

	var forwarded bool
	for i, r := range results {
		if !done[i] {
			results[i] = api.OpResult{ID: msgs[i].ID, Status: api.AckDeferred}
			continue
		}
		switch r.Status {
		case api.AckApplied, api.AckConflict, api.AckPending, api.AckDuplicate:
			forwarded = true
		}
	}
	if forwarded && e.cfg.Get().RelayForwarding {
		e.notify()
	}

	return api.OpsAck{Results: results}
}

// receiveRound применяет причинно независимые операции раунда
func (e *Engine) receiveRound(ctx context.Context, from string, ops []*models.SyncOperation, round []int, results []api.OpResult) {
	groups := make(map[string][]int)
	var order []string
	for _, i := range round {
		key := ops[i].Collection + "/" + ops[i].DocumentID
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var wg sync.WaitGroup
	for _, key := range order {
		idx := groups[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, i := range idx {
				results[i] = e.receive(ctx, from, ops[i])
			}
		}()
	}
	wg.Wait()
}

// deliverable сообщает, можно ли обработать операцию сейчас. Некорректные и
// собственные операции отвечаются сразу.
func (e *Engine) deliverable(op *models.SyncOperation) bool {
	if validateRemote(op) != nil || op.OriginDevice == e.deviceID {
		return true
	}
	return e.tracker.CanDeliver(op.OriginDevice, op.VectorClock)
}

// receive применяет одну полученную операцию и возвращает результат для подтверждения
func (e *Engine) receive(ctx context.Context, from string, op *models.SyncOperation) api.OpResult {
	result := api.OpResult{ID: op.ID}
	cfg := e.cfg.Get()

	if err := validateRemote(op); err != nil {
		result.Status = api.AckRejected
		result.Error = err.Error()
		return result
	}
	if op.OriginDevice == e.deviceID {
		result.Status = api.AckDuplicate
		return result
	}
	if !cfg.ModuleEnabled(op.Collection) {
		// выключенный модуль игнорируется, но операция увидена: следующие
		// операции источника не должны ее ждать
		e.logger.Debug("Operation of disabled module ignored",
			"op_id", op.ID,
			"collection", op.Collection,
		)
		e.tracker.Merge(op.VectorClock)
		result.Status = api.AckDuplicate
		return result
	}

	res, err := e.resolver.Apply(ctx, op)
	if errors.Is(err, conflict.ErrChecksumMismatch) {
		e.logger.Warn("Checksum mismatch, requesting resend",
			"op_id", op.ID,
			"peer", from,
		)
		result.Status = api.AckResend
		return result
	}
	if err != nil {
		e.logger.Error("Failed to apply operation",
			"op_id", op.ID,
			"peer", from,
			"error", err,
		)
		result.Status = api.AckError
		result.Error = err.Error()
		return result
	}

	e.tracker.Merge(op.VectorClock)

	// без записи в журнал операцию нельзя ни ретранслировать, ни отдать при
	// догоняющей синхронизации: отправитель повторит ее. Уже записанные
	// операции Record пропускает, поэтому повтор после сбоя тоже ретранслируется.
	if err := e.oplog.Record(ctx, op, from, cfg.RelayForwarding); err != nil {
		e.logger.Error("Failed to record received operation",
			"op_id", op.ID,
			"peer", from,
			"error", err,
		)
		result.Status = api.AckError
		result.Error = err.Error()
		return result
	}

	switch res.Outcome {
	case conflict.OutcomeApplied:
		result.Status = api.AckApplied
	case conflict.OutcomeResolved:
		result.Status = api.AckConflict
	case conflict.OutcomePending:
		result.Status = api.AckPending
	default:
		result.Status = api.AckDuplicate
	}
	return result
}

// CatchUp запрашивает у пира операции, которых нет в локальном журнале
func (e *Engine) CatchUp(ctx context.Context, peerID string) error {
	for round := 0; round < maxCatchUpRounds; round++ {
		watermarks, err := e.oplog.Watermarks(ctx)
		if err != nil {
			return err
		}

		req := api.CatchUpRequest{Watermarks: watermarks, Limit: e.cfg.Get().CatchUpLimit}
		env, err := transport.NewEnvelope(api.TypeCatchUpRequest, e.deviceID, peerID, req)
		if err != nil {
			return err
		}
		e.meter.AddUp(len(env.Body))

		reqCtx, cancel := context.WithTimeout(ctx, e.requestTimeout())
		resp, err := e.transport.Request(reqCtx, peerID, env)
		cancel()
		if err != nil {
			return fmt.Errorf("catch-up request: %w", err)
		}
		e.meter.AddDown(len(resp.Body))

		var page api.CatchUpResponse
		if err := transport.DecodeBody(resp, api.TypeCatchUpResponse, &page); err != nil {
			return err
		}
		if len(page.Operations) == 0 {
			return nil
		}

		ack := e.receiveBatch(ctx, peerID, page.Operations)
		deferred := ack.Deferred()
		e.logger.Debug("Catch-up page applied",
			"peer", peerID,
			"operations", len(ack.Results),
			"deferred", deferred,
			"more", page.More,
		)

		if !page.More || deferred == len(ack.Results) {
			// остальное дойдет через диспетчер пира
			return nil
		}
	}
	return nil
}

func (e *Engine) catchUpPage(ctx context.Context, req api.CatchUpRequest) (*api.CatchUpResponse, error) {
	limit := req.Limit
	if ceiling := e.cfg.Get().CatchUpLimit; limit <= 0 || (ceiling > 0 && limit > ceiling) {
		limit = ceiling
	}

	ops, more, err := e.oplog.Since(ctx, req.Watermarks, limit)
	if err != nil {
		return nil, err
	}

	page := &api.CatchUpResponse{
		Operations: make([]api.OperationMessage, 0, len(ops)),
		More:       more,
	}
	for _, op := range ops {
		page.Operations = append(page.Operations, transport.OperationToMessage(op))
	}
	return page, nil
}

// heartbeatLoop рассылает heartbeat и отмечает недоступными молчащих пиров
func (e *Engine) heartbeatLoop(ctx context.Context) error {
	interval := e.cfg.Get().HeartbeatInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.sendHeartbeat(ctx, "")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.sendHeartbeat(ctx, "")

			offline, err := e.registry.Sweep(ctx)
			if err != nil {
				e.logger.Error("Failed to sweep peers", "error", err)
			}
			for _, id := range offline {
				e.logger.Info("Peer timed out", "peer", id)
			}
		}
	}
}

// sendHeartbeat отправляет heartbeat пиру; пустой peerID - всем
func (e *Engine) sendHeartbeat(ctx context.Context, peerID string) {
	env, err := transport.NewEnvelope(api.TypeHeartbeat, e.deviceID, peerID, e.registry.HeartbeatMessage())
	if err != nil {
		e.logger.Error("Failed to build heartbeat", "error", err)
		return
	}

	postCtx, cancel := context.WithTimeout(ctx, e.requestTimeout())
	defer cancel()

	if err := e.transport.Post(postCtx, peerID, env); err != nil && ctx.Err() == nil {
		e.logger.Debug("Heartbeat not delivered", "peer", peerID, "error", err)
		return
	}
	e.meter.AddUp(len(env.Body))
}

func (e *Engine) requestTimeout() time.Duration {
	if timeout := e.cfg.Get().SendTimeout(); timeout > 0 {
		return timeout
	}
	return 10 * time.Second
}

func validateRemote(op *models.SyncOperation) error {
	switch {
	case op.ID == "":
		return errors.New("operation id is empty")
	case op.OriginDevice == "":
		return errors.New("origin device is empty")
	case !op.Kind.Valid():
		return fmt.Errorf("unknown kind %q", op.Kind)
	case op.Collection == "" || op.DocumentID == "":
		return errors.New("collection and document id are required")
	case op.OriginCounter() == 0:
		return errors.New("vector clock has no origin counter")
	}
	return nil
}

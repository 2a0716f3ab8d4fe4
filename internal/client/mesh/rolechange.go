package mesh

import (
	"context"
	"fmt"

	"github.com/iudanet/meshsync/pkg/api"
)

// ChangePrimary назначает primary в две фазы: предложение новой эпохи всем
// доступным пирам, затем фиксация. Смена считается состоявшейся только при
// единогласном согласии; иначе согласившимся отправляется отмена,
// локальная топология не меняется и возвращается ErrRoleChangeFailed.
func (r *Registry) ChangePrimary(ctx context.Context, deviceID string) error {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	r.mu.Lock()
	if deviceID != r.self.DeviceID {
		if _, ok := r.peers[deviceID]; !ok {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
		}
	}
	if deviceID == r.primary {
		r.mu.Unlock()
		return nil
	}
	now := r.now()
	if p := r.pending; p != nil && p.proposer != r.self.DeviceID && now.Before(p.expires) {
		r.mu.Unlock()
		return fmt.Errorf("%w: change proposed by %s is in progress", ErrRoleChangeFailed, p.proposer)
	}

	msg := api.RoleChange{
		Phase:    api.PhasePropose,
		Primary:  deviceID,
		Proposer: r.self.DeviceID,
		Epoch:    r.epoch + 1,
	}
	r.pending = &pendingChange{
		proposer: r.self.DeviceID,
		primary:  deviceID,
		epoch:    msg.Epoch,
		expires:  now.Add(pendingTTL),
	}
	sender := r.sender
	r.mu.Unlock()

	targets := r.OnlineTargets()
	if len(targets) > 0 && sender == nil {
		r.clearPending(msg.Epoch)
		return fmt.Errorf("%w: no transport", ErrRoleChangeFailed)
	}

	var (
		accepted []string
		failure  error
	)
	for _, peer := range targets {
		ack, err := sender.SendRoleChange(ctx, peer, msg)
		if err != nil {
			failure = fmt.Errorf("peer %s: %w", peer, err)
			break
		}
		if !ack.Accepted {
			failure = fmt.Errorf("peer %s rejected: %s", peer, ack.Reason)
			break
		}
		accepted = append(accepted, peer)
	}

	if failure != nil {
		abort := msg
		abort.Phase = api.PhaseAbort
		r.broadcast(ctx, sender, accepted, abort)
		r.clearPending(msg.Epoch)

		r.logger.Warn("Primary change aborted",
			"primary", deviceID,
			"epoch", msg.Epoch,
			"error", failure,
		)
		return fmt.Errorf("%w: %w", ErrRoleChangeFailed, failure)
	}

	// Все подтвердили: фиксируем локально, затем рассылаем фиксацию
	r.mu.Lock()
	r.primary = deviceID
	r.epoch = msg.Epoch
	r.pending = nil
	r.lastUpdated = r.now()
	r.mu.Unlock()

	if err := r.persist(ctx); err != nil {
		return err
	}

	commit := msg
	commit.Phase = api.PhaseCommit
	if missed := r.broadcast(ctx, sender, accepted, commit); len(missed) > 0 {
		// согласившиеся не вернут себе роль: они ждут фиксации и примут
		// новую эпоху из heartbeat
		r.logger.Warn("Commit not delivered, peers will adopt it from heartbeats",
			"peers", missed,
			"epoch", msg.Epoch,
		)
	}

	r.logger.Info("Primary changed",
		"primary", deviceID,
		"epoch", msg.Epoch,
		"acknowledged", len(accepted),
	)
	return nil
}

// HandleRoleChange обрабатывает сообщение смены primary от пира
func (r *Registry) HandleRoleChange(ctx context.Context, from string, msg api.RoleChange) api.RoleAck {
	switch msg.Phase {
	case api.PhasePropose:
		return r.handlePropose(ctx, msg)
	case api.PhaseCommit:
		return r.handleCommit(ctx, from, msg)
	case api.PhaseAbort:
		r.mu.Lock()
		var cleared bool
		if p := r.pending; p != nil && p.proposer == msg.Proposer && p.epoch == msg.Epoch {
			r.pending = nil
			cleared = true
		}
		r.mu.Unlock()
		if cleared {
			if err := r.persist(ctx); err != nil {
				r.logger.Error("Failed to persist topology", "error", err)
			}
		}
		return api.RoleAck{Accepted: true}
	default:
		return api.RoleAck{Reason: fmt.Sprintf("unknown phase %q", msg.Phase)}
	}
}

func (r *Registry) handlePropose(ctx context.Context, msg api.RoleChange) api.RoleAck {
	r.mu.Lock()
	now := r.now()
	if p := r.pending; p != nil && p.proposer != msg.Proposer && now.Before(p.expires) {
		r.mu.Unlock()
		return api.RoleAck{Reason: fmt.Sprintf("change proposed by %s is in progress", p.proposer)}
	}
	if msg.Epoch <= r.epoch {
		r.mu.Unlock()
		return api.RoleAck{Reason: fmt.Sprintf("stale epoch %d, current %d", msg.Epoch, r.epoch)}
	}

	r.pending = &pendingChange{
		proposer: msg.Proposer,
		primary:  msg.Primary,
		epoch:    msg.Epoch,
		expires:  now.Add(pendingTTL),
	}
	r.mu.Unlock()

	// согласие переживает перезапуск: до исхода смены роль не возвращается
	if err := r.persist(ctx); err != nil {
		r.logger.Error("Failed to persist topology", "error", err)
		r.mu.Lock()
		if p := r.pending; p != nil && p.proposer == msg.Proposer && p.epoch == msg.Epoch {
			r.pending = nil
		}
		r.mu.Unlock()
		return api.RoleAck{Reason: err.Error()}
	}
	return api.RoleAck{Accepted: true}
}

func (r *Registry) handleCommit(ctx context.Context, from string, msg api.RoleChange) api.RoleAck {
	r.mu.Lock()
	if msg.Epoch <= r.epoch {
		r.mu.Unlock()
		return api.RoleAck{Accepted: true, Reason: "already applied"}
	}
	r.primary = msg.Primary
	r.epoch = msg.Epoch
	if r.pending != nil && r.pending.epoch <= msg.Epoch {
		r.pending = nil
	}
	r.lastUpdated = r.now()
	r.mu.Unlock()

	r.logger.Info("Primary change committed",
		"from", from,
		"primary", msg.Primary,
		"epoch", msg.Epoch,
	)

	if err := r.persist(ctx); err != nil {
		r.logger.Error("Failed to persist topology", "error", err)
		return api.RoleAck{Reason: err.Error()}
	}
	return api.RoleAck{Accepted: true}
}

func (r *Registry) clearPending(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil && r.pending.proposer == r.self.DeviceID && r.pending.epoch == epoch {
		r.pending = nil
	}
}

// broadcast рассылает фазу смены и возвращает пиров, до которых она не
// дошла; ошибки только журналируются
func (r *Registry) broadcast(ctx context.Context, sender RoleSender, peers []string, msg api.RoleChange) []string {
	var missed []string
	for _, peer := range peers {
		ack, err := sender.SendRoleChange(ctx, peer, msg)
		if err != nil {
			r.logger.Warn("Failed to deliver role change",
				"peer", peer,
				"phase", msg.Phase,
				"error", err,
			)
			missed = append(missed, peer)
			continue
		}
		if !ack.Accepted {
			r.logger.Warn("Peer did not accept role change",
				"peer", peer,
				"phase", msg.Phase,
				"reason", ack.Reason,
			)
			missed = append(missed, peer)
		}
	}
	return missed
}

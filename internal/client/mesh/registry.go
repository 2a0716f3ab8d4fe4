package mesh

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
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// pendingTTL время, после которого принятое предложение может быть вытеснено
// новым или снято по heartbeat предложившего. Само по себе истечение срока
// предложение не снимает.
const pendingTTL = 30 * time.Second

//go:generate moq -out rolesender_mock.go . RoleSender

// RoleSender доставляет сообщения смены primary пиру и ждет ответа
type RoleSender interface {
	SendRoleChange(ctx context.Context, peerID string, msg api.RoleChange) (*api.RoleAck, error)
}

type pendingChange struct {
	expires  time.Time
	proposer string
	primary  string
	epoch    uint64
}

// Registry реестр пиров и владелец MeshTopology.
// Все изменения топологии проходят через методы реестра.
type Registry struct {
	discoveredAt time.Time
	lastUpdated  time.Time
	store        storage.MeshStorage
	sender       RoleSender
	cfg          *config.Holder
	logger       *slog.Logger
	now          func() time.Time
	peers        map[string]*models.PeerInfo
	pending      *pendingChange
	self         models.PeerInfo
	primary      string
	epoch        uint64
	mu           sync.RWMutex
	changeMu     sync.Mutex // одна исходящая смена primary за раз
}

// NewRegistry загружает сохраненную топологию или создает новую.
// initialPrimary используется только при первом запуске.
func NewRegistry(ctx context.Context, store storage.MeshStorage, self models.PeerInfo, initialPrimary string, cfg *config.Holder, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		peers:  make(map[string]*models.PeerInfo),
		self:   self,
	}

	topo, err := store.LoadTopology(ctx)
	switch {
	case errors.Is(err, storage.ErrTopologyNotFound):
		now := r.now()
		r.primary = initialPrimary
		r.discoveredAt = now
		r.lastUpdated = now
		if err := r.persist(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load topology: %w", err)
	default:
		r.primary = topo.Primary
		r.epoch = topo.Epoch
		r.discoveredAt = topo.DiscoveredAt
		r.lastUpdated = topo.LastUpdated
		for i := range topo.Peers {
			p := topo.Peers[i]
			if p.DeviceID == self.DeviceID {
				continue
			}
			// после рестарта живость пиров неизвестна
			p.Status = models.PeerOffline
			r.peers[p.DeviceID] = &p
		}
		if pp := topo.Pending; pp != nil && pp.Proposer != self.DeviceID {
			// устройство согласилось на смену до остановки: ждет ее исхода
			r.pending = &pendingChange{
				proposer: pp.Proposer,
				primary:  pp.Primary,
				epoch:    pp.Epoch,
				expires:  r.now().Add(pendingTTL),
			}
		}
	}

	return r, nil
}

// SetSender задает канал доставки сообщений смены primary
func (r *Registry) SetSender(sender RoleSender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sender = sender
}

// SetClock подменяет источник времени (используется в тестах)
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.now = now
}

// Self возвращает описание локального устройства
func (r *Registry) Self() models.PeerInfo {
	return r.self
}

// Primary возвращает текущий primary
func (r *Registry) Primary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.primary
}

// Epoch возвращает номер последней подтвержденной смены primary
func (r *Registry) Epoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.epoch
}

// IsPrimary сообщает, является ли локальное устройство primary.
// Устройство, принявшее предложение передать роль другому, перестает
// считать себя primary до фиксации или отмены смены, сколько бы она ни шла.
func (r *Registry) IsPrimary() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.primary != r.self.DeviceID {
		return false
	}
	if p := r.pending; p != nil && p.primary != r.self.DeviceID {
		return false
	}
	return true
}

// Heartbeat учитывает объявление пира. Более новая эпоха топологии
// принимается: устройство, пропустившее смену primary, догоняет ее.
func (r *Registry) Heartbeat(ctx context.Context, hb api.Heartbeat) error {
	if hb.DeviceID == "" || hb.DeviceID == r.self.DeviceID {
		return nil
	}

	r.mu.Lock()
	now := r.now()
	p, known := r.peers[hb.DeviceID]
	if !known {
		p = &models.PeerInfo{DeviceID: hb.DeviceID, Role: models.RoleSecondary}
		r.peers[hb.DeviceID] = p
	}
	p.Name = hb.Name
	p.Capabilities = append([]string(nil), hb.Capabilities...)
	if hb.LinkType != "" {
		p.LinkType = models.LinkType(hb.LinkType)
	}
	p.LastSeen = now
	wasReachable := p.Reachable()
	if !wasReachable {
		p.Status = models.PeerOnline
	}

	adopted := r.adoptLocked(hb.Primary, hb.Epoch)
	abandoned := r.dropAbandonedLocked(hb, now)
	changed := !known || !wasReachable || adopted || abandoned
	if changed {
		r.lastUpdated = now
	}
	r.mu.Unlock()

	if adopted {
		r.logger.Info("Adopted primary from peer",
			"peer", hb.DeviceID,
			"primary", hb.Primary,
			"epoch", hb.Epoch,
		)
	}
	if abandoned {
		r.logger.Warn("Dropped role change abandoned by proposer",
			"proposer", hb.DeviceID,
			"epoch", hb.Epoch,
		)
	}
	if changed {
		return r.persist(ctx)
	}
	return nil
}

// PeerOnline отмечает пира доступным (событие транспорта)
func (r *Registry) PeerOnline(ctx context.Context, deviceID string) error {
	if deviceID == r.self.DeviceID {
		return nil
	}

	r.mu.Lock()
	now := r.now()
	p, ok := r.peers[deviceID]
	if !ok {
		p = &models.PeerInfo{DeviceID: deviceID, Role: models.RoleSecondary}
		r.peers[deviceID] = p
	}
	p.Status = models.PeerOnline
	p.LastSeen = now
	r.lastUpdated = now
	r.mu.Unlock()

	r.logger.Info("Peer online", "peer", deviceID)
	return r.persist(ctx)
}

// PeerOffline отмечает пира недоступным (событие транспорта)
func (r *Registry) PeerOffline(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	p, ok := r.peers[deviceID]
	if !ok || p.Status == models.PeerOffline {
		r.mu.Unlock()
		return nil
	}
	p.Status = models.PeerOffline
	r.lastUpdated = r.now()
	r.mu.Unlock()

	r.logger.Info("Peer offline", "peer", deviceID)
	return r.persist(ctx)
}

// Sweep отмечает недоступными пиров, молчащих дольше peer_timeout.
// Возвращает идентификаторы пиров, ставших недоступными.
func (r *Registry) Sweep(ctx context.Context) ([]string, error) {
	timeout := r.cfg.Get().PeerTimeout()
	if timeout <= 0 {
		return nil, nil
	}

	r.mu.Lock()
	now := r.now()
	var expired []string
	for id, p := range r.peers {
		if p.Reachable() && now.Sub(p.LastSeen) > timeout {
			p.Status = models.PeerOffline
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		r.lastUpdated = now
	}
	r.mu.Unlock()

	if len(expired) == 0 {
		return nil, nil
	}

	sort.Strings(expired)
	r.logger.Warn("Peers timed out", "peers", expired)
	return expired, r.persist(ctx)
}

// OnlineTargets возвращает доступных пиров (без локального устройства)
// в порядке идентификаторов. Пустой список - не ошибка: операции остаются в очереди.
func (r *Registry) OnlineTargets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]string, 0, len(r.peers))
	for id, p := range r.peers {
		if id != r.self.DeviceID && p.Reachable() {
			targets = append(targets, id)
		}
	}
	sort.Strings(targets)
	return targets
}

// IsOnline проверяет доступность пира
func (r *Registry) IsOnline(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[deviceID]
	return ok && p.Reachable()
}

// BeginSync отмечает начало отправки пиру
func (r *Registry) BeginSync(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.peers[deviceID]; ok && p.Status == models.PeerOnline {
		p.Status = models.PeerSyncing
	}
}

// EndSync отмечает конец отправки пиру и его задержку
func (r *Registry) EndSync(deviceID string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[deviceID]
	if !ok {
		return
	}
	if p.Status == models.PeerSyncing {
		p.Status = models.PeerOnline
	}
	if latency > 0 {
		p.LatencyMs = latency.Milliseconds()
		p.LastSeen = r.now()
	}
}

// Topology возвращает снимок топологии, включая локальное устройство
func (r *Registry) Topology() *models.MeshTopology {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.topologyLocked()
}

// HeartbeatMessage формирует объявление локального устройства
func (r *Registry) HeartbeatMessage() api.Heartbeat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role := models.RoleSecondary
	if r.primary == r.self.DeviceID {
		role = models.RolePrimary
	}
	var proposing uint64
	if p := r.pending; p != nil && p.proposer == r.self.DeviceID {
		proposing = p.epoch
	}

	return api.Heartbeat{
		SentAt:       r.now(),
		DeviceID:     r.self.DeviceID,
		Name:         r.self.Name,
		Role:         string(role),
		LinkType:     string(r.self.LinkType),
		Primary:      r.primary,
		Capabilities: r.self.Capabilities,
		Epoch:        r.epoch,
		Proposing:    proposing,
	}
}

func (r *Registry) topologyLocked() *models.MeshTopology {
	topo := &models.MeshTopology{
		Primary:      r.primary,
		Epoch:        r.epoch,
		DiscoveredAt: r.discoveredAt,
		LastUpdated:  r.lastUpdated,
		Peers:        make([]models.PeerInfo, 0, len(r.peers)+1),
	}
	if p := r.pending; p != nil && p.proposer != r.self.DeviceID {
		topo.Pending = &models.RoleProposal{Proposer: p.proposer, Primary: p.primary, Epoch: p.epoch}
	}

	self := r.self
	self.Status = models.PeerOnline
	self.LastSeen = r.now()
	topo.Peers = append(topo.Peers, self)
	for _, p := range r.peers {
		topo.Peers = append(topo.Peers, *p)
	}

	for i := range topo.Peers {
		topo.Peers[i].Role = models.RoleSecondary
		if topo.Peers[i].DeviceID == r.primary {
			topo.Peers[i].Role = models.RolePrimary
		}
	}
	topo.SortPeers()

	return topo.Clone()
}

// adoptLocked принимает primary из более новой эпохи
func (r *Registry) adoptLocked(primary string, epoch uint64) bool {
	if epoch > r.epoch || (epoch == r.epoch && r.primary == "" && primary != "") {
		r.primary = primary
		r.epoch = epoch
		if r.pending != nil && r.pending.epoch <= epoch {
			r.pending = nil
		}
		return true
	}
	return false
}

// dropAbandonedLocked снимает принятое предложение, если его срок истек, а
// предложивший в своем heartbeat больше его не предлагает и не зафиксировал
// (отмена до устройства не дошла или предложивший перезапустился)
func (r *Registry) dropAbandonedLocked(hb api.Heartbeat, now time.Time) bool {
	p := r.pending
	if p == nil || p.proposer != hb.DeviceID || now.Before(p.expires) {
		return false
	}
	if hb.Proposing == p.epoch || hb.Epoch >= p.epoch {
		return false
	}
	r.pending = nil
	return true
}

func (r *Registry) persist(ctx context.Context) error {
	r.mu.RLock()
	topo := r.topologyLocked()
	r.mu.RUnlock()

	if err := r.store.SaveTopology(ctx, topo); err != nil {
		return fmt.Errorf("failed to save topology: %w", err)
	}
	return nil
}

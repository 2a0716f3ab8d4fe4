package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/pkg/api"
)

const (
	defaultQueueSize = 256
	eventQueueSize   = 256
)

// TamperFunc изменяет закодированный конверт в пути (для тестов целостности)
type TamperFunc func(from, to string, env *api.Envelope)

// Hub соединяет узлы в одном процессе. Поддерживает разрывы связи между парами узлов.
type Hub struct {
	nodes     map[string]*Node
	links     map[string]chan struct{} // закрывается при разрыве связи пары
	cut       map[string]bool
	tamper    TamperFunc
	queueSize int
	mu        sync.RWMutex
}

// NewHub создает hub; queueSize ограничивает входящую очередь каждого узла
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		nodes:     make(map[string]*Node),
		links:     make(map[string]chan struct{}),
		cut:       make(map[string]bool),
		queueSize: queueSize,
	}
}

// Node транспорт одного устройства
type Node struct {
	hub     *Hub
	codec   *transport.Codec
	inbound chan *transport.Delivery
	events  chan transport.PeerEvent
	closed  chan struct{}
	id      string
	once    sync.Once
}

var _ transport.Transport = (*Node)(nil)

// Join подключает устройство к hub
func (h *Hub) Join(id string, codec *transport.Codec) (*Node, error) {
	node := &Node{
		hub:     h,
		codec:   codec,
		id:      id,
		inbound: make(chan *transport.Delivery, h.queueSize),
		events:  make(chan transport.PeerEvent, eventQueueSize),
		closed:  make(chan struct{}),
	}

	h.mu.Lock()
	if _, exists := h.nodes[id]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("node %s already joined", id)
	}
	var peers []*Node
	for peerID, peer := range h.nodes {
		if h.cut[linkKey(id, peerID)] {
			continue
		}
		h.links[linkKey(id, peerID)] = make(chan struct{})
		peers = append(peers, peer)
	}
	h.nodes[id] = node
	h.mu.Unlock()

	for _, peer := range sortNodes(peers) {
		peer.emit(id, transport.EventOnline)
		node.emit(peer.id, transport.EventOnline)
	}
	return node, nil
}

// Leave отключает устройство
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	node, ok := h.nodes[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.nodes, id)
	var peers []*Node
	for peerID, peer := range h.nodes {
		if h.dropLinkLocked(id, peerID) {
			peers = append(peers, peer)
		}
	}
	h.mu.Unlock()

	node.once.Do(func() { close(node.closed) })
	for _, peer := range sortNodes(peers) {
		peer.emit(id, transport.EventOffline)
	}
}

// Partition разрывает связь между a и b; незавершенные запросы получают ErrDisconnected
func (h *Hub) Partition(a, b string) {
	h.mu.Lock()
	h.cut[linkKey(a, b)] = true
	dropped := h.dropLinkLocked(a, b)
	na, nb := h.nodes[a], h.nodes[b]
	h.mu.Unlock()

	if dropped {
		na.emit(b, transport.EventOffline)
		nb.emit(a, transport.EventOffline)
	}
}

// Heal восстанавливает связь между a и b
func (h *Hub) Heal(a, b string) {
	h.mu.Lock()
	delete(h.cut, linkKey(a, b))
	na, aok := h.nodes[a]
	nb, bok := h.nodes[b]
	_, linked := h.links[linkKey(a, b)]
	restore := aok && bok && !linked
	if restore {
		h.links[linkKey(a, b)] = make(chan struct{})
	}
	h.mu.Unlock()

	if restore {
		na.emit(b, transport.EventOnline)
		nb.emit(a, transport.EventOnline)
	}
}

// SetTamper устанавливает функцию порчи конвертов в пути; nil отключает ее
func (h *Hub) SetTamper(fn TamperFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tamper = fn
}

func (h *Hub) dropLinkLocked(a, b string) bool {
	key := linkKey(a, b)
	down, ok := h.links[key]
	if !ok {
		return false
	}
	close(down)
	delete(h.links, key)
	return true
}

// route возвращает узел назначения и канал разрыва связи
func (h *Hub) route(from, to string) (*Node, <-chan struct{}, TamperFunc, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	target, ok := h.nodes[to]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", transport.ErrPeerUnknown, to)
	}
	down, ok := h.links[linkKey(from, to)]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", transport.ErrDisconnected, to)
	}
	return target, down, h.tamper, nil
}

func (h *Hub) connected(from string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for id := range h.nodes {
		if _, ok := h.links[linkKey(from, id)]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ID возвращает идентификатор устройства
func (n *Node) ID() string {
	return n.id
}

// Request отправляет конверт и ждет ответа
func (n *Node) Request(ctx context.Context, peerID string, env *api.Envelope) (*api.Envelope, error) {
	target, down, tamper, err := n.hub.route(n.id, peerID)
	if err != nil {
		return nil, err
	}

	replies := make(chan *api.Envelope, 1)
	reply := func(ctx context.Context, resp *api.Envelope) error {
		decoded, err := n.hub.transfer(target, n, resp, nil)
		if err != nil {
			return err
		}
		select {
		case replies <- decoded:
		default:
		}
		return nil
	}

	if err := n.deliver(ctx, target, down, tamper, env, reply); err != nil {
		return nil, err
	}

	select {
	case resp := <-replies:
		return resp, nil
	case <-down:
		return nil, fmt.Errorf("%w: %s", transport.ErrDisconnected, peerID)
	case <-n.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctxError(ctx)
	}
}

// Post отправляет конверт без ожидания ответа; пустой peerID - всем доступным узлам
func (n *Node) Post(ctx context.Context, peerID string, env *api.Envelope) error {
	if peerID != "" {
		target, down, tamper, err := n.hub.route(n.id, peerID)
		if err != nil {
			return err
		}
		return n.deliver(ctx, target, down, tamper, env, nil)
	}

	var errs []error
	for _, id := range n.hub.connected(n.id) {
		target, down, tamper, err := n.hub.route(n.id, id)
		if err != nil {
			continue
		}
		copyEnv := *env
		copyEnv.To = id
		if err := n.deliver(ctx, target, down, tamper, &copyEnv, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Inbound возвращает очередь полученных конвертов
func (n *Node) Inbound() <-chan *transport.Delivery {
	return n.inbound
}

// Events возвращает события живости пиров
func (n *Node) Events() <-chan transport.PeerEvent {
	return n.events
}

// Close отключает узел от hub
func (n *Node) Close() error {
	n.hub.Leave(n.id)
	return nil
}

func (n *Node) deliver(
	ctx context.Context,
	target *Node,
	down <-chan struct{},
	tamper TamperFunc,
	env *api.Envelope,
	reply func(context.Context, *api.Envelope) error,
) error {
	env.From = n.id
	env.To = target.id

	decoded, err := n.hub.transfer(n, target, env, tamper)
	if err != nil {
		return err
	}

	var replyFn func(context.Context, *api.Envelope) error
	if reply != nil {
		replyFn = func(ctx context.Context, resp *api.Envelope) error {
			resp.From = target.id
			return reply(ctx, resp)
		}
	}

	// входящая очередь ограничена: отправитель ждет освобождения места
	select {
	case target.inbound <- transport.NewDelivery(decoded, replyFn):
		return nil
	case <-down:
		return fmt.Errorf("%w: %s", transport.ErrDisconnected, target.id)
	case <-target.closed:
		return fmt.Errorf("%w: %s", transport.ErrDisconnected, target.id)
	case <-ctx.Done():
		return ctxError(ctx)
	}
}

// transfer кодирует конверт кодеком отправителя и декодирует кодеком получателя
func (h *Hub) transfer(from, to *Node, env *api.Envelope, tamper TamperFunc) (*api.Envelope, error) {
	wire, err := from.codec.Encode(env)
	if err != nil {
		return nil, err
	}
	if wire.Body != nil {
		wire.Body = append([]byte(nil), wire.Body...)
	}
	if tamper != nil {
		tamper(from.id, to.id, wire)
	}

	decoded, err := to.codec.Decode(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope from %s: %w", from.id, err)
	}
	return decoded, nil
}

func (n *Node) emit(peerID string, kind transport.EventKind) {
	if n == nil {
		return
	}
	select {
	case n.events <- transport.PeerEvent{PeerID: peerID, Kind: kind, At: time.Now()}:
	case <-n.closed:
	}
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return transport.ErrTimeout
	}
	return ctx.Err()
}

func linkKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func sortNodes(nodes []*Node) []*Node {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	return nodes
}

package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/meshsync/internal/ids"
	"github.com/iudanet/meshsync/internal/server/storage"
	"github.com/iudanet/meshsync/pkg/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 << 20

	defaultSendQueue = 256

	// relayID отправитель служебных конвертов relay
	relayID = "relay"
)

// Options параметры hub
type Options struct {
	Storage   storage.Storage
	Logger    *slog.Logger
	SendQueue int // размер очереди исходящих конвертов соединения
}

// Hub держит соединения устройств, сгруппированные по бизнесу
type Hub struct {
	store     storage.Storage
	logger    *slog.Logger
	conns     map[string]map[string]*conn // business -> device -> conn
	sendQueue int
	mu        sync.RWMutex
}

// New создает hub
func New(opts Options) *Hub {
	if opts.SendQueue <= 0 {
		opts.SendQueue = defaultSendQueue
	}
	return &Hub{
		store:     opts.Storage,
		logger:    opts.Logger,
		conns:     make(map[string]map[string]*conn),
		sendQueue: opts.SendQueue,
	}
}

type conn struct {
	ws         *websocket.Conn
	send       chan *api.Envelope
	done       chan struct{}
	businessID string
	deviceID   string
	once       sync.Once
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue ставит конверт в очередь записи; переполненная очередь закрывает соединение
func (c *conn) enqueue(env *api.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- env:
		return true
	default:
		c.close()
		return false
	}
}

// Serve обслуживает соединение устройства до его разрыва
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, businessID, deviceID string) {
	c := &conn{
		ws:         ws,
		send:       make(chan *api.Envelope, h.sendQueue),
		done:       make(chan struct{}),
		businessID: businessID,
		deviceID:   deviceID,
	}

	h.register(c)
	if err := h.store.MarkOnline(ctx, businessID, deviceID, time.Now()); err != nil {
		h.logger.Error("Failed to mark device online", "device_id", deviceID, "error", err)
	}

	go h.writePump(c)
	h.readPump(ctx, c)

	c.close()
	if h.unregister(c) {
		// соединение уже закрыто, ctx запроса может быть отменен
		if err := h.store.MarkOffline(context.WithoutCancel(ctx), businessID, deviceID, time.Now()); err != nil {
			h.logger.Error("Failed to mark device offline", "device_id", deviceID, "error", err)
		}
	}
}

// Connected возвращает количество подключенных устройств
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, devices := range h.conns {
		n += len(devices)
	}
	return n
}

// Online возвращает подключенные устройства бизнеса
func (h *Hub) Online(businessID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.conns[businessID]))
	for id := range h.conns[businessID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close разрывает все соединения
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, devices := range h.conns {
		for _, c := range devices {
			c.close()
		}
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices, ok := h.conns[c.businessID]
	if !ok {
		devices = make(map[string]*conn)
		h.conns[c.businessID] = devices
	}

	if old, ok := devices[c.deviceID]; ok {
		h.logger.Info("Replacing device connection", "business_id", c.businessID, "device_id", c.deviceID)
		old.close()
	}
	devices[c.deviceID] = c

	peers := make([]string, 0, len(devices))
	for id := range devices {
		if id != c.deviceID {
			peers = append(peers, id)
		}
	}
	sort.Strings(peers)

	for _, id := range peers {
		c.enqueue(presence(id, true))
		devices[id].enqueue(presence(c.deviceID, true))
	}

	h.logger.Info("Device connected",
		"business_id", c.businessID,
		"device_id", c.deviceID,
		"peers", len(peers),
	)
}

// unregister удаляет соединение, если его еще не заменило новое
func (h *Hub) unregister(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices := h.conns[c.businessID]
	if devices[c.deviceID] != c {
		return false
	}
	delete(devices, c.deviceID)
	if len(devices) == 0 {
		delete(h.conns, c.businessID)
	}

	for _, peer := range devices {
		peer.enqueue(presence(c.deviceID, false))
	}

	h.logger.Info("Device disconnected", "business_id", c.businessID, "device_id", c.deviceID)
	return true
}

func (h *Hub) readPump(ctx context.Context, c *conn) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env api.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Device connection closed", "device_id", c.deviceID, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		h.route(ctx, c, &env)
	}
}

// route пересылает конверт получателю; пустой To - всем устройствам бизнеса
func (h *Hub) route(ctx context.Context, from *conn, env *api.Envelope) {
	if env.Type == api.TypePresence {
		return
	}
	env.From = from.deviceID

	h.audit(ctx, from.businessID, env)

	h.mu.RLock()
	devices := h.conns[from.businessID]
	if env.To == "" {
		for id, peer := range devices {
			if id == from.deviceID {
				continue
			}
			copyEnv := *env
			copyEnv.To = id
			peer.enqueue(&copyEnv)
		}
		h.mu.RUnlock()
		return
	}
	target, ok := devices[env.To]
	h.mu.RUnlock()

	if ok && target.enqueue(env) {
		return
	}

	h.logger.Debug("Recipient is not connected", "from", env.From, "to", env.To, "type", env.Type)
	// на ответы и рассылки ошибку не возвращаем
	if env.ReplyTo == "" {
		from.enqueue(notConnected(env))
	}
}

// audit сохраняет сведения о конвертах с операциями
func (h *Hub) audit(ctx context.Context, businessID string, env *api.Envelope) {
	if env.Type != api.TypeOpsBatch && env.Type != api.TypeCatchUpResponse {
		return
	}

	frame := frameOf(businessID, env)
	if err := h.store.SaveFrame(ctx, frame); err != nil {
		h.logger.Error("Failed to save relay frame", "envelope_id", env.ID, "error", err)
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				h.logger.Warn("Failed to write envelope", "device_id", c.deviceID, "error", err)
				c.close()
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func presence(deviceID string, online bool) *api.Envelope {
	body, _ := json.Marshal(api.Presence{DeviceID: deviceID, Online: online})
	return &api.Envelope{
		ID:     ids.New(),
		Type:   api.TypePresence,
		From:   relayID,
		Body:   body,
		SentAt: time.Now(),
	}
}

func notConnected(env *api.Envelope) *api.Envelope {
	body, _ := json.Marshal(api.ErrorResponse{
		Error:   "recipient is not connected",
		Message: env.To,
	})
	return &api.Envelope{
		ID:      ids.New(),
		Type:    api.TypeError,
		From:    env.To,
		To:      env.From,
		ReplyTo: env.ID,
		Body:    body,
		SentAt:  time.Now(),
	}
}

package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/pkg/api"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	reconnectBase = 500 * time.Millisecond
	reconnectMax  = 30 * time.Second

	eventQueueSize = 256
)

// Options параметры подключения к relay
type Options struct {
	Codec     *transport.Codec
	Logger    *slog.Logger
	URL       string // ws://host:port/api/v1/ws
	Token     string // JWT устройства
	DeviceID  string
	QueueSize int
}

// Client транспорт устройства через relay-сервер.
// Run поддерживает соединение и переподключается с экспоненциальной задержкой.
type Client struct {
	dialer   *websocket.Dialer
	codec    *transport.Codec
	logger   *slog.Logger
	inbound  chan *transport.Delivery
	events   chan transport.PeerEvent
	closed   chan struct{}
	conn     *websocket.Conn
	down     chan struct{} // закрывается при потере текущего соединения
	pending  map[string]chan *api.Envelope
	online   map[string]bool
	url      string
	token    string
	deviceID string
	mu       sync.Mutex
	writeMu  sync.Mutex
	once     sync.Once
}

var _ transport.Transport = (*Client)(nil)

// New создает клиента; соединение устанавливает Run
func New(opts Options) *Client {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Client{
		dialer:   websocket.DefaultDialer,
		codec:    opts.Codec,
		logger:   opts.Logger,
		inbound:  make(chan *transport.Delivery, opts.QueueSize),
		events:   make(chan transport.PeerEvent, eventQueueSize),
		closed:   make(chan struct{}),
		pending:  make(map[string]chan *api.Envelope),
		online:   make(map[string]bool),
		url:      opts.URL,
		token:    opts.Token,
		deviceID: opts.DeviceID,
	}
}

// Run держит соединение с relay до отмены ctx
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		backoff := retry.WithCappedDuration(reconnectMax, retry.NewExponential(reconnectBase))

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			conn, err := c.dial(ctx)
			if err != nil {
				c.logger.Warn("Failed to connect to relay", "url", c.url, "error", err)
				return retry.RetryableError(err)
			}

			c.logger.Info("Connected to relay", "url", c.url)
			c.serve(ctx, conn)
			c.logger.Warn("Disconnected from relay", "url", c.url)
			return nil
		})

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Request отправляет конверт пиру через relay и ждет ответа
func (c *Client) Request(ctx context.Context, peerID string, env *api.Envelope) (*api.Envelope, error) {
	if peerID == "" {
		return nil, fmt.Errorf("%w: request needs a peer", transport.ErrPeerUnknown)
	}

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: not connected to relay", transport.ErrDisconnected)
	}
	if !c.online[peerID] {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", transport.ErrPeerUnknown, peerID)
	}
	down := c.down
	replies := make(chan *api.Envelope, 1)
	c.pending[env.ID] = replies
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, env.ID)
		c.mu.Unlock()
	}()

	if err := c.send(peerID, env); err != nil {
		return nil, err
	}

	select {
	case resp := <-replies:
		return resp, nil
	case <-down:
		return nil, fmt.Errorf("%w: relay connection lost", transport.ErrDisconnected)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, transport.ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// Post отправляет конверт без ожидания ответа; пустой peerID - всем устройствам
func (c *Client) Post(ctx context.Context, peerID string, env *api.Envelope) error {
	return c.send(peerID, env)
}

// Inbound возвращает очередь полученных конвертов
func (c *Client) Inbound() <-chan *transport.Delivery {
	return c.inbound
}

// Events возвращает события живости пиров
func (c *Client) Events() <-chan transport.PeerEvent {
	return c.events
}

// Close закрывает соединение и останавливает Run
func (c *Client) Close() error {
	c.once.Do(func() { close(c.closed) })

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Peers возвращает устройства, о подключении которых сообщил relay
func (c *Client) Peers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.online))
	for id := range c.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay responded %s: %w", resp.Status, err)
		}
		return nil, err
	}
	return conn, nil
}

// serve обслуживает одно соединение до его разрыва
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	down := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.down = down
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.keepalive(conn, stop)

	go func() {
		select {
		case <-ctx.Done():
		case <-c.closed:
		case <-stop:
			return
		}
		conn.Close()
	}()

	c.readLoop(conn)
	close(stop)
	conn.Close()

	c.mu.Lock()
	c.conn = nil
	close(down)
	peers := make([]string, 0, len(c.online))
	for id := range c.online {
		peers = append(peers, id)
	}
	c.online = make(map[string]bool)
	c.mu.Unlock()

	// без relay все пиры недоступны
	sort.Strings(peers)
	for _, id := range peers {
		c.emit(id, transport.EventOffline)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame api.Envelope
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Relay connection closed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		c.handleFrame(&frame)
	}
}

func (c *Client) handleFrame(frame *api.Envelope) {
	if frame.Type == api.TypePresence {
		c.handlePresence(frame)
		return
	}

	env, err := c.codec.Decode(frame)
	if err != nil {
		c.logger.Warn("Dropping undecodable envelope", "from", frame.From, "error", err)
		return
	}

	if env.ReplyTo != "" {
		c.mu.Lock()
		replies, ok := c.pending[env.ReplyTo]
		c.mu.Unlock()
		if ok {
			select {
			case replies <- env:
			default:
			}
		}
		return
	}

	from := env.From
	delivery := transport.NewDelivery(env, func(ctx context.Context, resp *api.Envelope) error {
		return c.send(from, resp)
	})

	select {
	case c.inbound <- delivery:
	case <-c.closed:
	}
}

func (c *Client) handlePresence(frame *api.Envelope) {
	var p api.Presence
	if err := transport.DecodeBody(frame, api.TypePresence, &p); err != nil {
		c.logger.Warn("Malformed presence frame", "error", err)
		return
	}
	if p.DeviceID == c.deviceID {
		return
	}

	c.mu.Lock()
	was := c.online[p.DeviceID]
	if p.Online {
		c.online[p.DeviceID] = true
	} else {
		delete(c.online, p.DeviceID)
	}
	c.mu.Unlock()

	switch {
	case p.Online && !was:
		c.emit(p.DeviceID, transport.EventOnline)
	case !p.Online && was:
		c.emit(p.DeviceID, transport.EventOffline)
	}
}

func (c *Client) send(peerID string, env *api.Envelope) error {
	env.From = c.deviceID
	env.To = peerID

	wire, err := c.codec.Encode(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: not connected to relay", transport.ErrDisconnected)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wire); err != nil {
		return fmt.Errorf("%w: %w", transport.ErrDisconnected, err)
	}
	return nil
}

func (c *Client) keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (c *Client) emit(peerID string, kind transport.EventKind) {
	select {
	case c.events <- transport.PeerEvent{PeerID: peerID, Kind: kind, At: time.Now()}:
	case <-c.closed:
	}
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/meshsync/internal/ids"
	"github.com/iudanet/meshsync/pkg/api"
)

var (
	// ErrTimeout ответ не получен за отведенное время
	ErrTimeout = errors.New("transport timeout")

	// ErrDisconnected связь с пиром потеряна во время отправки
	ErrDisconnected = errors.New("peer disconnected")

	// ErrPeerUnknown пир не подключен к транспорту
	ErrPeerUnknown = errors.New("unknown peer")

	// ErrClosed транспорт закрыт
	ErrClosed = errors.New("transport closed")
)

//go:generate moq -out transport_mock.go . Transport

// Transport delivers envelopes between devices.
// Inbound is a bounded queue consumed by a single actor; Request blocks until
// the peer replies, the context expires or the link goes down.
type Transport interface {
	// Request sends env to peerID and waits for the reply envelope
	Request(ctx context.Context, peerID string, env *api.Envelope) (*api.Envelope, error)
	// Post sends env without waiting for a reply; empty peerID broadcasts
	Post(ctx context.Context, peerID string, env *api.Envelope) error
	// Inbound returns received envelopes
	Inbound() <-chan *Delivery
	// Events returns peer liveness events
	Events() <-chan PeerEvent
	// Close releases the transport
	Close() error
}

// EventKind тип события живости пира
type EventKind string

const (
	EventOnline  EventKind = "online"
	EventOffline EventKind = "offline"
)

// PeerEvent событие живости пира
type PeerEvent struct {
	At     time.Time
	PeerID string
	Kind   EventKind
}

// Delivery полученный конверт с возможностью ответить
type Delivery struct {
	Envelope *api.Envelope
	reply    func(ctx context.Context, env *api.Envelope) error
}

// NewDelivery создает доставку; reply может быть nil для сообщений без ответа
func NewDelivery(env *api.Envelope, reply func(ctx context.Context, env *api.Envelope) error) *Delivery {
	return &Delivery{Envelope: env, reply: reply}
}

// Reply отправляет ответ на полученный конверт
func (d *Delivery) Reply(ctx context.Context, env *api.Envelope) error {
	if d.reply == nil {
		return nil
	}
	env.ReplyTo = d.Envelope.ID
	env.To = d.Envelope.From
	return d.reply(ctx, env)
}

// NewEnvelope упаковывает сообщение в конверт с новым идентификатором
func NewEnvelope(typ api.MessageType, from, to string, body any) (*api.Envelope, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s body: %w", typ, err)
	}

	now := time.Now()
	return &api.Envelope{
		ID:     ids.NewULID(now),
		Type:   typ,
		From:   from,
		To:     to,
		Body:   data,
		SentAt: now,
	}, nil
}

// DecodeBody распаковывает тело конверта ожидаемого типа
func DecodeBody(env *api.Envelope, typ api.MessageType, out any) error {
	if env.Type == api.TypeError {
		var e api.ErrorResponse
		if err := json.Unmarshal(env.Body, &e); err != nil {
			return fmt.Errorf("peer %s returned malformed error: %w", env.From, err)
		}
		return fmt.Errorf("peer %s: %s", env.From, e.Error)
	}
	if env.Type != typ {
		return fmt.Errorf("unexpected message type %q, want %q", env.Type, typ)
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s body: %w", typ, err)
	}
	return nil
}

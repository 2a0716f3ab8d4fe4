package recordstore

import (
	"context"
	"sync"

	"github.com/iudanet/meshsync/internal/client/storage"
)

//go:generate moq -out recordstore_mock.go . RecordStore

// ErrNotFound запись отсутствует в хранилище
var ErrNotFound = storage.ErrRecordNotFound

// RecordStore is the local business data store.
// The engine calls it with the visible value of a document after every applied
// or resolved operation; it never interprets the payload.
type RecordStore interface {
	// Get returns the visible payload or ErrNotFound
	Get(ctx context.Context, collection, documentID string) ([]byte, error)
	// Put replaces the visible payload
	Put(ctx context.Context, collection, documentID string, payload []byte) error
	// Delete removes the document; deleting a missing document is not an error
	Delete(ctx context.Context, collection, documentID string) error
}

// MergeFunc сливает две версии документа. Должна быть детерминированной:
// движок вызывает ее для голов в порядке (timestamp, id) на каждом устройстве.
type MergeFunc func(local, remote []byte) ([]byte, error)

// Registry хранит функции слияния по коллекциям
type Registry struct {
	mergers map[string]MergeFunc
	mu      sync.RWMutex
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{mergers: make(map[string]MergeFunc)}
}

// Register регистрирует функцию слияния коллекции (заменяет предыдущую)
func (r *Registry) Register(collection string, fn MergeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mergers[collection] = fn
}

// Lookup возвращает функцию слияния коллекции
func (r *Registry) Lookup(collection string) (MergeFunc, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.mergers[collection]
	return fn, ok
}

// Fold последовательно сливает версии слева направо.
// Пустой список дает nil.
func Fold(fn MergeFunc, payloads [][]byte) ([]byte, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	acc := payloads[0]
	for _, next := range payloads[1:] {
		merged, err := fn(acc, next)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

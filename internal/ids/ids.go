package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropy io.Reader = ulid.Monotonic(rand.Reader, 0)
	mu      sync.Mutex
)

// NewULID возвращает ULID для момента t.
// Внутри одной миллисекунды значения строго возрастают.
func NewULID(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// New возвращает ULID для текущего момента
func New() string {
	return NewULID(time.Now())
}

// NewDeviceID возвращает случайный идентификатор нового устройства
func NewDeviceID() string {
	return uuid.New().String()
}

// Time извлекает время из ULID. Для некорректного идентификатора возвращает нулевое время.
func Time(id string) time.Time {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(parsed.Time())
}

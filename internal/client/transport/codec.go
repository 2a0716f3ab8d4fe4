package transport

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/iudanet/meshsync/internal/crypto"
	"github.com/iudanet/meshsync/pkg/api"
)

// ErrSealerMissing получен зашифрованный конверт, а ключ не настроен
var ErrSealerMissing = errors.New("encrypted envelope but no mesh key configured")

// Codec сжимает и шифрует тело конверта перед отправкой. Движок синхронизации
// работает только с открытым телом.
type Codec struct {
	sealer   *crypto.Sealer
	compress bool
}

// NewCodec создает кодек. sealer == nil отключает шифрование.
func NewCodec(compress bool, sealer *crypto.Sealer) *Codec {
	return &Codec{compress: compress, sealer: sealer}
}

// Encode возвращает копию конверта с закодированным телом
func (c *Codec) Encode(env *api.Envelope) (*api.Envelope, error) {
	out := *env
	if c == nil || len(env.Body) == 0 {
		return &out, nil
	}

	body := env.Body
	if c.compress {
		body = snappy.Encode(nil, body)
		out.Compressed = true
	}
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to seal envelope: %w", err)
		}
		body = sealed
		out.Encrypted = true
	}

	out.Body = body
	return &out, nil
}

// Decode возвращает копию конверта с открытым телом
func (c *Codec) Decode(env *api.Envelope) (*api.Envelope, error) {
	out := *env
	body := env.Body

	if env.Encrypted {
		if c == nil || c.sealer == nil {
			return nil, ErrSealerMissing
		}
		opened, err := c.sealer.Open(body)
		if err != nil {
			return nil, fmt.Errorf("failed to open envelope: %w", err)
		}
		body = opened
		out.Encrypted = false
	}
	if env.Compressed {
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress envelope: %w", err)
		}
		body = decoded
		out.Compressed = false
	}

	out.Body = body
	return &out, nil
}

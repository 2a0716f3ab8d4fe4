package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
)

// meshSaltContext отделяет соль mesh-ключа от других применений business id
const meshSaltContext = "meshsync/payload-key/"

// DeriveMeshKey выводит общий ключ шифрования сообщений из парольной фразы бизнеса.
// Все устройства одного бизнеса должны получить одинаковый ключ без обмена солью,
// поэтому соль детерминированно выводится из business id.
func DeriveMeshKey(passphrase, businessID string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if businessID == "" {
		return nil, fmt.Errorf("business id cannot be empty")
	}

	salt := sha256.Sum256([]byte(meshSaltContext + businessID))

	return argon2.IDKey([]byte(passphrase), salt[:], Argon2Time, Argon2Memory, Argon2Threads, KeySize), nil
}

// NewMeshSealer выводит ключ и создает Sealer
func NewMeshSealer(passphrase, businessID string) (*Sealer, error) {
	key, err := DeriveMeshKey(passphrase, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive mesh key: %w", err)
	}
	return NewSealer(key)
}

package conflict

import (
	"errors"

	"github.com/iudanet/meshsync/internal/crypto"
)

var (
	// ErrChecksumMismatch полезная нагрузка повреждена при передаче
	ErrChecksumMismatch = crypto.ErrChecksumMismatch

	// ErrConflictClosed конфликт уже разрешен
	ErrConflictClosed = errors.New("conflict is already resolved")

	// ErrUnknownWinner выбранная операция не участвует в конфликте
	ErrUnknownWinner = errors.New("operation is not a head of the conflict")
)

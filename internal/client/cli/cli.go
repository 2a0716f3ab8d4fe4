package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/meshsync/internal/client/engine"
	"github.com/iudanet/meshsync/internal/client/iocli"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// PassphraseEnv переменная окружения с парольной фразой mesh
const PassphraseEnv = "MESHSYNC_PASSPHRASE"

var (
	ErrUsage           = errors.New("invalid arguments")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")
	ErrNoRelayAPI      = errors.New("relay_url is not configured")
)

//go:generate moq -out engine_mock.go . Engine

// Engine операции узла, доступные из командной строки
type Engine interface {
	Run(ctx context.Context) error
	Submit(ctx context.Context, kind models.OperationKind, collection, documentID string, payload []byte, priority models.Priority) (string, error)
	Get(ctx context.Context, collection, documentID string) ([]byte, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	GetTopology() *models.MeshTopology
	ListConflicts(ctx context.Context, openOnly bool) ([]*models.ConflictRecord, error)
	ListFailed(ctx context.Context) ([]*models.SyncOperation, error)
	RetryFailed(ctx context.Context, id string) error
	ResolveConflict(ctx context.Context, conflictID string, d engine.Decision) (string, error)
	PromotePrimary(ctx context.Context, deviceID string) error
}

//go:generate moq -out relayapi_mock.go . RelayAPI

// RelayAPI REST API relay-сервера
type RelayAPI interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
	Devices(ctx context.Context) (*api.DevicesResponse, error)
	Frames(ctx context.Context, limit int) (*api.FramesResponse, error)
}

type Cli struct {
	io     iocli.IO
	engine Engine
	relay  RelayAPI
}

func New(eng Engine, io iocli.IO) *Cli {
	return &Cli{
		io:     io,
		engine: eng,
	}
}

// SetRelay подключает REST API relay для команды relay
func (c *Cli) SetRelay(relay RelayAPI) {
	c.relay = relay
}

// ReadPassphrase возвращает парольную фразу шифрования mesh. Приоритет источников:
// 1. Переменная окружения MESHSYNC_PASSPHRASE
// 2. Файл fromFile
// 3. Интерактивный ввод
func ReadPassphrase(io iocli.IO, fromFile string) (string, error) {
	if env := os.Getenv(PassphraseEnv); env != "" {
		return env, nil
	}

	if fromFile != "" {
		content, err := os.ReadFile(fromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase file: %w", err)
		}
		passphrase := strings.TrimSpace(string(content))
		if passphrase == "" {
			return "", fmt.Errorf("passphrase file is empty: %w", ErrEmptyPassphrase)
		}
		return passphrase, nil
	}

	passphrase, err := io.ReadPassword("Mesh passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	return passphrase, nil
}

// PrintUsage выводит справку по командам
func PrintUsage(io iocli.IO) {
	io.Printf("%s", usageTemplate)
}

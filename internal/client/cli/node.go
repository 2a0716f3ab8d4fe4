package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/meshsync/internal/client/engine"
	"github.com/iudanet/meshsync/internal/client/storage/boltdb"
	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/internal/client/transport/ws"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crypto"
	"github.com/iudanet/meshsync/internal/models"
)

var (
	ErrNoDeviceID = errors.New("device_id is not configured, generate one with 'meshsync device-id'")
	ErrNoRelay    = errors.New("relay_url and relay_token are required to sync")
)

// NodeOptions параметры локального узла
type NodeOptions struct {
	Config     *config.Config
	Logger     *slog.Logger
	ConfigPath string // файл для горячей перезагрузки секции sync; пусто - без наблюдения
	Passphrase string // обязательна при encryption_enabled
	Online     bool   // подключаться к relay
}

// Node устройство mesh: локальное хранилище, движок и, в режиме online,
// websocket-транспорт к relay.
type Node struct {
	*engine.Engine
	store   *boltdb.Storage
	client  *ws.Client
	watcher *config.Watcher
	logger  *slog.Logger
}

var _ Engine = (*Node)(nil)

// OpenNode открывает хранилище и собирает движок
func OpenNode(ctx context.Context, opts NodeOptions) (*Node, error) {
	cfg := opts.Config
	if cfg.DeviceID == "" {
		return nil, ErrNoDeviceID
	}
	if opts.Online && (cfg.RelayURL == "" || cfg.RelayToken == "") {
		return nil, ErrNoRelay
	}

	holder := config.NewHolder(cfg.Sync)
	n := &Node{logger: opts.Logger}

	if opts.Online {
		var sealer *crypto.Sealer
		if cfg.Sync.EncryptionEnabled {
			s, err := crypto.NewMeshSealer(opts.Passphrase, cfg.BusinessID)
			if err != nil {
				return nil, fmt.Errorf("failed to derive mesh key: %w", err)
			}
			sealer = s
		}
		n.client = ws.New(ws.Options{
			Codec:     transport.NewCodec(cfg.Sync.CompressionEnabled, sealer),
			Logger:    opts.Logger,
			URL:       cfg.RelayURL,
			Token:     cfg.RelayToken,
			DeviceID:  cfg.DeviceID,
			QueueSize: cfg.Sync.InboundQueueSize,
		})
	}

	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	n.store = store

	engOpts := engine.Options{
		Storage: store,
		Config:  holder,
		Logger:  opts.Logger,
		Self: models.PeerInfo{
			DeviceID:     cfg.DeviceID,
			Name:         cfg.DeviceName,
			LinkType:     models.LinkType(cfg.LinkType),
			Capabilities: cfg.Capabilities,
		},
		Primary: cfg.Primary,
		UserID:  cfg.UserID,
	}
	if n.client != nil {
		engOpts.Transport = n.client
	}

	eng, err := engine.New(ctx, engOpts)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	n.Engine = eng

	if opts.ConfigPath != "" {
		n.watcher = config.NewWatcher(opts.ConfigPath, holder, opts.Logger)
	}

	return n, nil
}

// Run держит соединение с relay, движок и наблюдение за конфигурацией до отмены ctx
func (n *Node) Run(ctx context.Context) error {
	if n.client == nil {
		return engine.ErrNoTransport
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.client.Run(gctx)
	})
	g.Go(func() error {
		return n.Engine.Run(gctx)
	})
	if n.watcher != nil {
		g.Go(func() error {
			if err := n.watcher.Run(gctx); err != nil {
				// без перезагрузки конфигурации синхронизация продолжается
				n.logger.Warn("Config watcher stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close закрывает транспорт и хранилище
func (n *Node) Close() error {
	var errs []error
	if n.client != nil {
		errs = append(errs, n.client.Close())
	}
	if n.store != nil {
		errs = append(errs, n.store.Close())
	}
	return errors.Join(errs...)
}

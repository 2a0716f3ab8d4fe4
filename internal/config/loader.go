package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// debounceDelay защищает от нескольких перезагрузок на одну запись файла
const debounceDelay = 100 * time.Millisecond

// Load reads the configuration file (YAML or TOML by extension), applies
// environment overrides and validates the result. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	return cfg, nil
}

// Watcher следит за файлом конфигурации и применяет новые параметры
// синхронизации к Holder. Идентичность устройства при перезагрузке не меняется.
type Watcher struct {
	holder   *Holder
	logger   *slog.Logger
	onChange []func(SyncConfig)
	path     string
	mu       sync.Mutex
}

// NewWatcher создает Watcher для файла path
func NewWatcher(path string, holder *Holder, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:   path,
		holder: holder,
		logger: logger,
	}
}

// OnChange регистрирует обработчик, вызываемый после успешной перезагрузки
func (w *Watcher) OnChange(cb func(SyncConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onChange = append(w.onChange, cb)
}

// Run следит за каталогом файла до отмены контекста
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	// Следим за каталогом: редакторы заменяют файл через rename
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.Reload)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// Reload перечитывает файл и применяет секцию sync
func (w *Watcher) Reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("Failed to reload config, keeping previous settings", "path", w.path, "error", err)
		return
	}

	w.holder.Set(cfg.Sync)
	w.logger.Info("Sync config reloaded",
		"path", w.path,
		"batch_size", cfg.Sync.BatchSize,
		"retry_attempts", cfg.Sync.RetryAttempts,
	)

	w.mu.Lock()
	callbacks := append([]func(SyncConfig){}, w.onChange...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg.Sync)
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/meshsync/internal/models"
)

// Config полная конфигурация устройства и relay-сервера
type Config struct {
	DeviceID     string       `yaml:"device_id" toml:"device_id"`
	DeviceName   string       `yaml:"device_name" toml:"device_name"`
	BusinessID   string       `yaml:"business_id" toml:"business_id"`
	UserID       string       `yaml:"user_id" toml:"user_id"`
	DBPath       string       `yaml:"db_path" toml:"db_path"`
	RelayURL     string       `yaml:"relay_url" toml:"relay_url"`
	RelayToken   string       `yaml:"relay_token" toml:"relay_token"` // JWT устройства, выданный relay
	JWTSecret    string       `yaml:"jwt_secret" toml:"jwt_secret"`
	LinkType     string       `yaml:"link_type" toml:"link_type"`
	Primary      string       `yaml:"primary_device" toml:"primary_device"`
	Capabilities []string     `yaml:"capabilities" toml:"capabilities"`
	Log          LogConfig    `yaml:"log" toml:"log"`
	Server       ServerConfig `yaml:"server" toml:"server"`
	Sync         SyncConfig   `yaml:"sync" toml:"sync"`
}

// LogConfig настройки slog
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text, json
}

// ServerConfig настройки relay-сервера
type ServerConfig struct {
	ListenAddr string  `yaml:"listen_addr" toml:"listen_addr"`
	SQLitePath string  `yaml:"sqlite_path" toml:"sqlite_path"`
	RateLimit  float64 `yaml:"rate_limit" toml:"rate_limit"` // запросов в секунду на устройство
	RateBurst  int     `yaml:"rate_burst" toml:"rate_burst"`
	TokenTTL   int     `yaml:"token_ttl_hours" toml:"token_ttl_hours"` // срок действия выпускаемых токенов устройств
}

// TokenLifetime срок действия токена устройства; 0 - бессрочный
func (s *ServerConfig) TokenLifetime() time.Duration {
	return time.Duration(s.TokenTTL) * time.Hour
}

// LaneRetry переопределение политики повторов для полосы
type LaneRetry struct {
	Attempts      int `yaml:"attempts" toml:"attempts"`
	BackoffBaseMs int `yaml:"backoff_base_ms" toml:"backoff_base_ms"`
	MaxDelayMs    int `yaml:"max_delay_ms" toml:"max_delay_ms"`
}

// SyncConfig параметры синхронизации. Поддерживает горячую перезагрузку.
type SyncConfig struct {
	PriorityLanes       map[string]models.Priority         `yaml:"priority_lanes" toml:"priority_lanes"`
	ConflictStrategies  map[string]models.ConflictStrategy `yaml:"conflict_strategies" toml:"conflict_strategies"`
	LaneRetry           map[models.Priority]LaneRetry      `yaml:"lane_retry" toml:"lane_retry"`
	DefaultStrategy     models.ConflictStrategy            `yaml:"default_strategy" toml:"default_strategy"`
	EnabledModules      []string                           `yaml:"enabled_modules" toml:"enabled_modules"`
	BatchSize           int                                `yaml:"batch_size" toml:"batch_size"`
	RetryAttempts       int                                `yaml:"retry_attempts" toml:"retry_attempts"`
	RetryBackoffBaseMs  int                                `yaml:"retry_backoff_base_ms" toml:"retry_backoff_base_ms"`
	RetryMaxDelayMs     int                                `yaml:"retry_max_delay_ms" toml:"retry_max_delay_ms"`
	SendTimeoutMs       int                                `yaml:"send_timeout_ms" toml:"send_timeout_ms"`
	SyncIntervalMs      int                                `yaml:"sync_interval_ms" toml:"sync_interval_ms"`
	HeartbeatIntervalMs int                                `yaml:"heartbeat_interval_ms" toml:"heartbeat_interval_ms"`
	PeerTimeoutMs       int                                `yaml:"peer_timeout_ms" toml:"peer_timeout_ms"`
	IntegrityResends    int                                `yaml:"integrity_resends" toml:"integrity_resends"`
	InboundQueueSize    int                                `yaml:"inbound_queue_size" toml:"inbound_queue_size"`
	CatchUpLimit        int                                `yaml:"catch_up_limit" toml:"catch_up_limit"`
	RelayForwarding     bool                               `yaml:"relay_forwarding" toml:"relay_forwarding"`
	CompressionEnabled  bool                               `yaml:"compression_enabled" toml:"compression_enabled"`
	EncryptionEnabled   bool                               `yaml:"encryption_enabled" toml:"encryption_enabled"`
}

// RetryPolicy итоговая политика повторов полосы
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		DBPath:   "meshsync.db",
		LinkType: string(models.LinkSocket),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
			SQLitePath: "relay.db",
			RateLimit:  50,
			RateBurst:  100,
			TokenTTL:   24 * 30,
		},
		Sync: DefaultSync(),
	}
}

// DefaultSync returns the default sync tuning.
func DefaultSync() SyncConfig {
	return SyncConfig{
		PriorityLanes: map[string]models.Priority{
			"invoices":   models.PriorityCritical,
			"payments":   models.PriorityCritical,
			"orders":     models.PriorityHigh,
			"inventory":  models.PriorityHigh,
			"products":   models.PriorityMedium,
			"customers":  models.PriorityMedium,
			"attendance": models.PriorityLow,
		},
		ConflictStrategies: map[string]models.ConflictStrategy{
			"inventory": models.StrategyAdditiveMerge,
			"invoices":  models.StrategyManualReview,
		},
		LaneRetry: map[models.Priority]LaneRetry{
			models.PriorityCritical: {Attempts: 10, BackoffBaseMs: 250, MaxDelayMs: 60_000},
			models.PriorityHigh:     {Attempts: 8, BackoffBaseMs: 500},
		},
		DefaultStrategy:     models.StrategyLastWriteWins,
		BatchSize:           50,
		RetryAttempts:       5,
		RetryBackoffBaseMs:  1_000,
		RetryMaxDelayMs:     300_000,
		SendTimeoutMs:       10_000,
		SyncIntervalMs:      30_000,
		HeartbeatIntervalMs: 5_000,
		PeerTimeoutMs:       20_000,
		IntegrityResends:    3,
		InboundQueueSize:    256,
		CatchUpLimit:        500,
		RelayForwarding:     true,
		CompressionEnabled:  true,
	}
}

// PriorityFor возвращает полосу коллекции по умолчанию (medium, если не задана)
func (s *SyncConfig) PriorityFor(collection string) models.Priority {
	if p, ok := s.PriorityLanes[collection]; ok && p.Valid() {
		return p
	}
	return models.PriorityMedium
}

// StrategyFor возвращает стратегию разрешения конфликтов коллекции
func (s *SyncConfig) StrategyFor(collection string) models.ConflictStrategy {
	if cs, ok := s.ConflictStrategies[collection]; ok && cs.Valid() {
		return cs
	}
	if s.DefaultStrategy.Valid() {
		return s.DefaultStrategy
	}
	return models.StrategyLastWriteWins
}

// ModuleEnabled проверяет, синхронизируется ли коллекция.
// Пустой список модулей означает, что включены все.
func (s *SyncConfig) ModuleEnabled(collection string) bool {
	if len(s.EnabledModules) == 0 {
		return true
	}
	for _, m := range s.EnabledModules {
		if m == collection {
			return true
		}
	}
	return false
}

// RetryPolicy возвращает политику повторов полосы с учетом переопределений
func (s *SyncConfig) RetryPolicy(p models.Priority) RetryPolicy {
	policy := RetryPolicy{
		MaxAttempts: s.RetryAttempts,
		BaseDelay:   millis(s.RetryBackoffBaseMs),
		MaxDelay:    millis(s.RetryMaxDelayMs),
	}

	if o, ok := s.LaneRetry[p]; ok {
		if o.Attempts > 0 {
			policy.MaxAttempts = o.Attempts
		}
		if o.BackoffBaseMs > 0 {
			policy.BaseDelay = millis(o.BackoffBaseMs)
		}
		if o.MaxDelayMs > 0 {
			policy.MaxDelay = millis(o.MaxDelayMs)
		}
	}

	return policy
}

// SendTimeout таймаут одной отправки пиру
func (s *SyncConfig) SendTimeout() time.Duration { return millis(s.SendTimeoutMs) }

// SyncInterval период фоновой выгрузки outbox
func (s *SyncConfig) SyncInterval() time.Duration { return millis(s.SyncIntervalMs) }

// HeartbeatInterval период рассылки heartbeat
func (s *SyncConfig) HeartbeatInterval() time.Duration { return millis(s.HeartbeatIntervalMs) }

// PeerTimeout время тишины, после которого пир считается offline
func (s *SyncConfig) PeerTimeout() time.Duration { return millis(s.PeerTimeoutMs) }

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ApplyEnvOverrides applies MESHSYNC_* environment variables on top of the file.
func (c *Config) ApplyEnvOverrides() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("MESHSYNC_DEVICE_ID", &c.DeviceID)
	setString("MESHSYNC_DEVICE_NAME", &c.DeviceName)
	setString("MESHSYNC_BUSINESS_ID", &c.BusinessID)
	setString("MESHSYNC_USER_ID", &c.UserID)
	setString("MESHSYNC_DB_PATH", &c.DBPath)
	setString("MESHSYNC_RELAY_URL", &c.RelayURL)
	setString("MESHSYNC_RELAY_TOKEN", &c.RelayToken)
	setString("MESHSYNC_JWT_SECRET", &c.JWTSecret)
	setString("MESHSYNC_PRIMARY_DEVICE", &c.Primary)
	setString("MESHSYNC_LOG_LEVEL", &c.Log.Level)
	setString("MESHSYNC_LOG_FORMAT", &c.Log.Format)
	setString("MESHSYNC_LISTEN_ADDR", &c.Server.ListenAddr)
	setString("MESHSYNC_SQLITE_PATH", &c.Server.SQLitePath)

	if v := os.Getenv("MESHSYNC_ENABLED_MODULES"); v != "" {
		c.Sync.EnabledModules = splitList(v)
	}
	setInt("MESHSYNC_BATCH_SIZE", &c.Sync.BatchSize)
	setInt("MESHSYNC_RETRY_ATTEMPTS", &c.Sync.RetryAttempts)
	setInt("MESHSYNC_SEND_TIMEOUT_MS", &c.Sync.SendTimeoutMs)
	setInt("MESHSYNC_SYNC_INTERVAL_MS", &c.Sync.SyncIntervalMs)
	setBool("MESHSYNC_COMPRESSION_ENABLED", &c.Sync.CompressionEnabled)
	setBool("MESHSYNC_ENCRYPTION_ENABLED", &c.Sync.EncryptionEnabled)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

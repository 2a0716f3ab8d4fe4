package config

import (
	"fmt"
	"strings"

	"github.com/iudanet/meshsync/internal/validation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate проверяет конфигурацию устройства
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.DeviceID != "" {
		if err := validation.ValidateDeviceID(c.DeviceID); err != nil {
			errs = append(errs, ValidationError{Field: "device_id", Message: err.Error()})
		}
	}
	if c.Primary != "" {
		if err := validation.ValidateDeviceID(c.Primary); err != nil {
			errs = append(errs, ValidationError{Field: "primary_device", Message: err.Error()})
		}
	}
	if c.DBPath == "" {
		errs = append(errs, ValidationError{Field: "db_path", Message: "must not be empty"})
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}

	errs = append(errs, c.Sync.validate()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateServer проверяет конфигурацию relay-сервера
func (c *Config) ValidateServer() error {
	var errs ValidationErrors

	if c.JWTSecret == "" {
		errs = append(errs, ValidationError{Field: "jwt_secret", Message: "must not be empty"})
	}
	if c.Server.ListenAddr == "" {
		errs = append(errs, ValidationError{Field: "server.listen_addr", Message: "must not be empty"})
	}
	if c.Server.SQLitePath == "" {
		errs = append(errs, ValidationError{Field: "server.sqlite_path", Message: "must not be empty"})
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must be positive"})
	}
	if c.Server.RateBurst <= 0 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must be positive"})
	}
	if c.Server.TokenTTL < 0 {
		errs = append(errs, ValidationError{Field: "server.token_ttl_hours", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate проверяет только параметры синхронизации (используется при горячей перезагрузке)
func (s *SyncConfig) Validate() error {
	if errs := s.validate(); len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *SyncConfig) validate() ValidationErrors {
	var errs ValidationErrors

	positive := map[string]int{
		"sync.batch_size":            s.BatchSize,
		"sync.retry_attempts":        s.RetryAttempts,
		"sync.retry_backoff_base_ms": s.RetryBackoffBaseMs,
		"sync.send_timeout_ms":       s.SendTimeoutMs,
		"sync.sync_interval_ms":      s.SyncIntervalMs,
		"sync.heartbeat_interval_ms": s.HeartbeatIntervalMs,
		"sync.peer_timeout_ms":       s.PeerTimeoutMs,
		"sync.inbound_queue_size":    s.InboundQueueSize,
		"sync.catch_up_limit":        s.CatchUpLimit,
	}
	for field, v := range positive {
		if v <= 0 {
			errs = append(errs, ValidationError{Field: field, Message: "must be positive"})
		}
	}

	if s.IntegrityResends < 0 {
		errs = append(errs, ValidationError{Field: "sync.integrity_resends", Message: "must not be negative"})
	}
	if s.RetryMaxDelayMs < 0 {
		errs = append(errs, ValidationError{Field: "sync.retry_max_delay_ms", Message: "must not be negative"})
	}

	for collection, p := range s.PriorityLanes {
		if !p.Valid() {
			errs = append(errs, ValidationError{
				Field:   "sync.priority_lanes." + collection,
				Message: fmt.Sprintf("unknown priority %q", p),
			})
		}
	}
	for collection, cs := range s.ConflictStrategies {
		if !cs.Valid() {
			errs = append(errs, ValidationError{
				Field:   "sync.conflict_strategies." + collection,
				Message: fmt.Sprintf("unknown strategy %q", cs),
			})
		}
	}
	if s.DefaultStrategy != "" && !s.DefaultStrategy.Valid() {
		errs = append(errs, ValidationError{
			Field:   "sync.default_strategy",
			Message: fmt.Sprintf("unknown strategy %q", s.DefaultStrategy),
		})
	}
	for p := range s.LaneRetry {
		if !p.Valid() {
			errs = append(errs, ValidationError{Field: "sync.lane_retry", Message: fmt.Sprintf("unknown lane %q", p)})
		}
	}
	for _, m := range s.EnabledModules {
		if err := validation.ValidateCollection(m); err != nil {
			errs = append(errs, ValidationError{Field: "sync.enabled_modules", Message: err.Error()})
		}
	}

	return errs
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/meshsync/pkg/api"
)

// ConnCounter сообщает число подключенных устройств
type ConnCounter interface {
	Connected() int
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	conns   ConnCounter
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, conns ConnCounter, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		conns:   conns,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Connected: h.conns.Connected(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

const (
	defaultFramesLimit = 100
	maxFramesLimit     = 1000
)

//go:generate moq -out registrystore_mock.go . RegistryStore

// RegistryStore источник сведений об устройствах и аудите relay
type RegistryStore interface {
	ListDevices(ctx context.Context, businessID string) ([]*models.Device, error)
	ListFrames(ctx context.Context, businessID string, limit int) ([]*models.RelayFrame, error)
}

// ConnServer обслуживает websocket-соединение устройства до его разрыва
type ConnServer interface {
	Serve(ctx context.Context, conn *websocket.Conn, businessID, deviceID string)
}

// RelayHandler обрабатывает подключения устройств и запросы к реестру relay
type RelayHandler struct {
	logger   *slog.Logger
	conns    ConnServer
	store    RegistryStore
	upgrader websocket.Upgrader
}

// NewRelayHandler создает handler relay
func NewRelayHandler(logger *slog.Logger, conns ConnServer, store RegistryStore) *RelayHandler {
	return &RelayHandler{
		logger: logger,
		conns:  conns,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// устройства - не браузеры, Origin не проверяем
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WebSocket обрабатывает GET /api/v1/ws
func (h *RelayHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	deviceID, businessID, ok := deviceFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("WebSocket upgrade failed", "device_id", deviceID, "error", err)
		return
	}

	h.conns.Serve(r.Context(), conn, businessID, deviceID)
}

// Devices обрабатывает GET /api/v1/devices
func (h *RelayHandler) Devices(w http.ResponseWriter, r *http.Request) {
	_, businessID, ok := deviceFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	devices, err := h.store.ListDevices(r.Context(), businessID)
	if err != nil {
		h.logger.Error("Failed to list devices", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	resp := api.DevicesResponse{Devices: make([]api.DeviceInfo, 0, len(devices))}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, api.DeviceInfo{
			FirstSeen:  d.FirstSeen,
			LastSeen:   d.LastSeen,
			DeviceID:   d.DeviceID,
			BusinessID: d.BusinessID,
			Online:     d.Online,
		})
	}

	h.writeJSON(w, resp)
}

// Frames обрабатывает GET /api/v1/frames?limit=N
func (h *RelayHandler) Frames(w http.ResponseWriter, r *http.Request) {
	_, businessID, ok := deviceFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	limit := defaultFramesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = min(n, maxFramesLimit)
	}

	frames, err := h.store.ListFrames(r.Context(), businessID, limit)
	if err != nil {
		h.logger.Error("Failed to list frames", "business_id", businessID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	resp := api.FramesResponse{Frames: make([]api.FrameInfo, 0, len(frames))}
	for _, f := range frames {
		resp.Frames = append(resp.Frames, api.FrameInfo{
			ReceivedAt: f.ReceivedAt,
			ID:         f.ID,
			FromDevice: f.FromDevice,
			ToDevice:   f.ToDevice,
			Type:       f.Type,
			Size:       f.Size,
		})
	}

	h.writeJSON(w, resp)
}

func (h *RelayHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func deviceFromContext(ctx context.Context) (deviceID, businessID string, ok bool) {
	deviceID, okDevice := GetDeviceID(ctx)
	businessID, okBusiness := GetBusinessID(ctx)
	return deviceID, businessID, okDevice && okBusiness
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg, Message: detail})
}

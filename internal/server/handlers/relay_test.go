package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

func authedRequest(method, target, deviceID, businessID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(WithDevice(req.Context(), deviceID, businessID))
}

func TestRelayHandler_Devices(t *testing.T) {
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &RegistryStoreMock{
		ListDevicesFunc: func(ctx context.Context, businessID string) ([]*models.Device, error) {
			if businessID == "broken" {
				return nil, errors.New("db is down")
			}
			return []*models.Device{
				{DeviceID: "dev-a", BusinessID: businessID, FirstSeen: seen, LastSeen: seen, Online: true},
				{DeviceID: "dev-b", BusinessID: businessID, FirstSeen: seen, LastSeen: seen},
			}, nil
		},
	}
	handler := NewRelayHandler(setupTestLogger(), nil, store)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCount  int
	}{
		{
			name:       "lists devices of the token business",
			req:        authedRequest(http.MethodGet, "/api/v1/devices", "dev-a", "biz-1"),
			wantStatus: http.StatusOK,
			wantCount:  2,
		},
		{
			name:       "missing device in context",
			req:        httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "storage failure",
			req:        authedRequest(http.MethodGet, "/api/v1/devices", "dev-a", "broken"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Devices(w, tt.req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				var errResp api.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
				assert.NotEmpty(t, errResp.Error)
				return
			}

			var resp api.DevicesResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Len(t, resp.Devices, tt.wantCount)
			assert.Equal(t, "dev-a", resp.Devices[0].DeviceID)
			assert.True(t, resp.Devices[0].Online)
			assert.False(t, resp.Devices[1].Online)
		})
	}

	calls := store.ListDevicesCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "biz-1", calls[0].BusinessID)
}

func TestRelayHandler_Frames(t *testing.T) {
	store := &RegistryStoreMock{
		ListFramesFunc: func(ctx context.Context, businessID string, limit int) ([]*models.RelayFrame, error) {
			return []*models.RelayFrame{
				{ID: "env-1", BusinessID: businessID, FromDevice: "dev-a", ToDevice: "dev-b", Type: "ops_batch", Size: 42},
			}, nil
		},
	}
	handler := NewRelayHandler(setupTestLogger(), nil, store)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantLimit  int
	}{
		{name: "default limit", target: "/api/v1/frames", wantStatus: http.StatusOK, wantLimit: defaultFramesLimit},
		{name: "explicit limit", target: "/api/v1/frames?limit=5", wantStatus: http.StatusOK, wantLimit: 5},
		{name: "limit is capped", target: "/api/v1/frames?limit=100000", wantStatus: http.StatusOK, wantLimit: maxFramesLimit},
		{name: "invalid limit", target: "/api/v1/frames?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "negative limit", target: "/api/v1/frames?limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(store.ListFramesCalls())

			w := httptest.NewRecorder()
			handler.Frames(w, authedRequest(http.MethodGet, tt.target, "dev-a", "biz-1"))

			assert.Equal(t, tt.wantStatus, w.Code)
			calls := store.ListFramesCalls()
			if tt.wantStatus != http.StatusOK {
				assert.Len(t, calls, before)
				return
			}

			require.Len(t, calls, before+1)
			assert.Equal(t, tt.wantLimit, calls[before].Limit)

			var resp api.FramesResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Len(t, resp.Frames, 1)
			assert.Equal(t, "env-1", resp.Frames[0].ID)
			assert.Equal(t, 42, resp.Frames[0].Size)
		})
	}
}

// echoServer отвечает на каждый конверт копией с подставленным устройством
type echoServer struct {
	served chan string
}

func (e *echoServer) Serve(ctx context.Context, conn *websocket.Conn, businessID, deviceID string) {
	defer conn.Close()
	e.served <- businessID + "/" + deviceID

	for {
		var env api.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		env.From = deviceID
		if err := conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func TestRelayHandler_WebSocket(t *testing.T) {
	echo := &echoServer{served: make(chan string, 1)}
	handler := NewRelayHandler(setupTestLogger(), echo, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test-Device") != "" {
			r = r.WithContext(WithDevice(r.Context(), r.Header.Get("X-Test-Device"), "biz-1"))
		}
		handler.WebSocket(w, r)
	}))
	defer srv.Close()

	url := "ws" + srv.URL[len("http"):]

	t.Run("upgrades authenticated device", func(t *testing.T) {
		header := http.Header{}
		header.Set("X-Test-Device", "dev-a")

		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()
		resp.Body.Close()

		assert.Equal(t, "biz-1/dev-a", <-echo.served)

		require.NoError(t, conn.WriteJSON(api.Envelope{ID: "1", Type: api.TypeHeartbeat, From: "spoofed"}))
		var got api.Envelope
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "dev-a", got.From)
	})

	t.Run("rejects request without device", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

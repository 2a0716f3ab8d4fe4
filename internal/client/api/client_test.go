package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "token")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestBaseURLFromRelay(t *testing.T) {
	tests := []struct {
		name    string
		relay   string
		want    string
		wantErr bool
	}{
		{name: "ws", relay: "ws://relay:8080/api/v1/ws", want: "http://relay:8080"},
		{name: "wss", relay: "wss://relay.example.com/api/v1/ws", want: "https://relay.example.com"},
		{name: "http passthrough", relay: "http://127.0.0.1:9000", want: "http://127.0.0.1:9000"},
		{name: "unknown scheme", relay: "tcp://relay:8080", wantErr: true},
		{name: "missing host", relay: "ws:///api/v1/ws", wantErr: true},
		{name: "garbage", relay: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BaseURLFromRelay(tt.relay)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestClient_Health проверяет запрос состояния relay
func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/health", r.URL.Path)

		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "1.2.3", Connected: 4})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")

	resp, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Connected)
}

// TestClient_Devices проверяет передачу токена и разбор списка устройств
func TestClient_Devices(t *testing.T) {
	seen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices", r.URL.Path)
		assert.Equal(t, "Bearer device-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(api.DevicesResponse{Devices: []api.DeviceInfo{
			{DeviceID: "dev-a", BusinessID: "shop-1", Online: true, FirstSeen: seen, LastSeen: seen},
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "device-token")

	resp, err := client.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "dev-a", resp.Devices[0].DeviceID)
	assert.True(t, resp.Devices[0].Online)
	assert.True(t, seen.Equal(resp.Devices[0].LastSeen))
}

func TestClient_Frames(t *testing.T) {
	var gotQuery []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/frames", r.URL.Path)
		gotQuery = append(gotQuery, r.URL.RawQuery)

		_ = json.NewEncoder(w).Encode(api.FramesResponse{Frames: []api.FrameInfo{
			{ID: "env-1", FromDevice: "dev-a", ToDevice: "dev-b", Type: "ops_batch", Size: 128},
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "device-token")
	ctx := context.Background()

	resp, err := client.Frames(ctx, 20)
	require.NoError(t, err)
	require.Len(t, resp.Frames, 1)
	assert.Equal(t, "ops_batch", resp.Frames[0].Type)

	_, err = client.Frames(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"limit=20", ""}, gotQuery)
}

// TestClient_Errors проверяет обработку ответов с ошибкой
func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantSubstr string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":"unauthorized"}`,
			wantErr: ErrUnauthorized,
		},
		{
			name:       "json error body",
			status:     http.StatusBadRequest,
			body:       `{"error":"invalid limit","message":"abc"}`,
			wantSubstr: "server error (400): invalid limit",
		},
		{
			name:       "plain error body",
			status:     http.StatusBadGateway,
			body:       "bad gateway",
			wantSubstr: "request failed with status 502: bad gateway",
		},
		{
			name:       "invalid json on success",
			status:     http.StatusOK,
			body:       "not json",
			wantSubstr: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "token").Devices(context.Background())

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantSubstr != "" {
				assert.Contains(t, err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL, "").Health(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

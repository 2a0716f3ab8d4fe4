package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/server/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

func TestNew_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relay.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.MarkOnline(ctx, "biz-1", "dev-a", time.Now()))
	require.NoError(t, s.Close())

	// повторное открытие не применяет миграции заново и сохраняет данные
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	device, err := s.GetDevice(ctx, "biz-1", "dev-a")
	require.NoError(t, err)
	assert.True(t, device.Online)
}

func TestDeviceStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	require.NoError(t, s.MarkOnline(ctx, "biz-1", "dev-a", first))

	device, err := s.GetDevice(ctx, "biz-1", "dev-a")
	require.NoError(t, err)
	assert.True(t, device.Online)
	assert.True(t, first.Equal(device.FirstSeen))

	require.NoError(t, s.MarkOffline(ctx, "biz-1", "dev-a", later))
	device, err = s.GetDevice(ctx, "biz-1", "dev-a")
	require.NoError(t, err)
	assert.False(t, device.Online)
	assert.True(t, later.Equal(device.LastSeen))

	// повторное подключение не меняет first_seen
	require.NoError(t, s.MarkOnline(ctx, "biz-1", "dev-a", later.Add(time.Hour)))
	device, err = s.GetDevice(ctx, "biz-1", "dev-a")
	require.NoError(t, err)
	assert.True(t, device.Online)
	assert.True(t, first.Equal(device.FirstSeen))
	assert.True(t, later.Add(time.Hour).Equal(device.LastSeen))
}

func TestDeviceStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "offline unknown device",
			call: func() error { return s.MarkOffline(ctx, "biz-1", "ghost", time.Now()) },
		},
		{
			name: "get unknown device",
			call: func() error {
				_, err := s.GetDevice(ctx, "biz-1", "ghost")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), storage.ErrDeviceNotFound)
		})
	}
}

func TestDeviceStorage_ListAndReset(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	require.NoError(t, s.MarkOnline(ctx, "biz-1", "dev-b", now))
	require.NoError(t, s.MarkOnline(ctx, "biz-1", "dev-a", now))
	require.NoError(t, s.MarkOnline(ctx, "biz-2", "dev-c", now))

	devices, err := s.ListDevices(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "dev-a", devices[0].DeviceID)
	assert.Equal(t, "dev-b", devices[1].DeviceID)

	empty, err := s.ListDevices(ctx, "biz-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	require.NoError(t, s.ResetOnline(ctx))
	devices, err = s.ListDevices(ctx, "biz-1")
	require.NoError(t, err)
	for _, d := range devices {
		assert.False(t, d.Online, d.DeviceID)
	}
}

func TestFrameStorage(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	frames := []*models.RelayFrame{
		{ID: "env-1", BusinessID: "biz-1", FromDevice: "dev-a", ToDevice: "dev-b", Type: "ops_batch", Size: 120, ReceivedAt: now},
		{ID: "env-2", BusinessID: "biz-1", FromDevice: "dev-b", ToDevice: "dev-a", Type: "catchup_response", Size: 64, ReceivedAt: now.Add(time.Second)},
		{ID: "env-3", BusinessID: "biz-2", FromDevice: "dev-c", Type: "ops_batch", Size: 10, ReceivedAt: now},
	}
	for _, f := range frames {
		require.NoError(t, s.SaveFrame(ctx, f))
	}

	tests := []struct {
		name     string
		business string
		wantIDs  []string
		limit    int
	}{
		{name: "all newest first", business: "biz-1", wantIDs: []string{"env-2", "env-1"}},
		{name: "limited", business: "biz-1", limit: 1, wantIDs: []string{"env-2"}},
		{name: "other business", business: "biz-2", wantIDs: []string{"env-3"}},
		{name: "unknown business", business: "biz-3", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListFrames(ctx, tt.business, tt.limit)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, f := range got {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	got, err := s.ListFrames(ctx, "biz-1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dev-b", got[0].FromDevice)
	assert.Equal(t, "dev-a", got[0].ToDevice)
	assert.Equal(t, 64, got[0].Size)
}

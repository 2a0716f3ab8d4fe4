package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/client/engine"
	"github.com/iudanet/meshsync/internal/client/recordstore"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

func TestCli_runSubmit(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantErr      error
		wantKind     models.OperationKind
		wantPriority models.Priority
		wantPayload  string
	}{
		{
			name:        "create with default lane",
			args:        []string{"create", "products", "p-1", `{"name":"tea"}`},
			wantKind:    models.KindCreate,
			wantPayload: `{"name":"tea"}`,
		},
		{
			name:         "explicit priority",
			args:         []string{"-priority", "critical", "update", "invoices", "inv-1", `{"total":10}`},
			wantKind:     models.KindUpdate,
			wantPriority: models.PriorityCritical,
			wantPayload:  `{"total":10}`,
		},
		{
			name:     "delete without payload",
			args:     []string{"delete", "products", "p-1"},
			wantKind: models.KindDelete,
		},
		{name: "missing args", args: []string{"create", "products"}, wantErr: ErrUsage},
		{name: "unknown kind", args: []string{"upsert", "products", "p-1", `{}`}, wantErr: ErrUsage},
		{name: "unknown priority", args: []string{"-priority", "urgent", "create", "products", "p-1", `{}`}, wantErr: ErrUsage},
		{name: "update without payload", args: []string{"update", "products", "p-1"}, wantErr: ErrUsage},
		{name: "delete with payload", args: []string{"delete", "products", "p-1", `{}`}, wantErr: ErrUsage},
		{name: "invalid json", args: []string{"create", "products", "p-1", `{name`}, wantErr: ErrUsage},
		{name: "unknown flag", args: []string{"-lane", "high", "create", "products", "p-1", `{}`}, wantErr: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := &EngineMock{
				SubmitFunc: func(ctx context.Context, kind models.OperationKind, collection, documentID string, payload []byte, priority models.Priority) (string, error) {
					return "01HVOP", nil
				},
			}
			cli, out := newTestCli(mockEngine)

			err := cli.Run(context.Background(), "submit", tt.args)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, mockEngine.SubmitCalls())
				return
			}
			require.NoError(t, err)
			require.Len(t, mockEngine.SubmitCalls(), 1)
			call := mockEngine.SubmitCalls()[0]
			assert.Equal(t, tt.wantKind, call.Kind)
			assert.Equal(t, tt.wantPriority, call.Priority)
			assert.Equal(t, tt.wantPayload, string(call.Payload))
			assert.Contains(t, out.String(), "Operation 01HVOP queued")
		})
	}
}

func TestCli_runSubmit_EngineError(t *testing.T) {
	mockEngine := &EngineMock{
		SubmitFunc: func(ctx context.Context, kind models.OperationKind, collection, documentID string, payload []byte, priority models.Priority) (string, error) {
			return "", fmt.Errorf("%w: attendance", engine.ErrModuleDisabled)
		},
	}
	cli, _ := newTestCli(mockEngine)

	err := cli.Run(context.Background(), "submit", []string{"create", "attendance", "a-1", `{}`})

	assert.ErrorIs(t, err, engine.ErrModuleDisabled)
}

func TestCli_runGet(t *testing.T) {
	mockEngine := &EngineMock{
		GetFunc: func(ctx context.Context, collection, documentID string) ([]byte, error) {
			if documentID == "p-1" {
				return []byte(`{"name":"tea"}`), nil
			}
			return nil, recordstore.ErrNotFound
		},
	}
	cli, out := newTestCli(mockEngine)
	ctx := context.Background()

	require.NoError(t, cli.Run(ctx, "get", []string{"products", "p-1"}))
	assert.Equal(t, "{\"name\":\"tea\"}\n", out.String())

	err := cli.Run(ctx, "get", []string{"products", "p-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products/p-2 not found")

	assert.ErrorIs(t, cli.Run(ctx, "get", []string{"products"}), ErrUsage)
}

func TestCli_runStatus(t *testing.T) {
	lastSync := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockEngine := &EngineMock{
		GetStatsFunc: func(ctx context.Context) (*models.Stats, error) {
			return &models.Stats{
				LastSyncAt:    &lastSync,
				PendingCount:  3,
				SyncedCount:   10,
				FailedCount:   1,
				ConflictCount: 2,
				AvgLatency:    15 * time.Millisecond,
				BytesUp:       2048,
			}, nil
		},
	}
	cli, out := newTestCli(mockEngine)

	require.NoError(t, cli.Run(context.Background(), "status", nil))

	text := out.String()
	assert.Contains(t, text, "Pending:        3")
	assert.Contains(t, text, "Synced:         10")
	assert.Contains(t, text, "Open conflicts: 2")
	assert.Contains(t, text, "Last sync:      2026-03-01T12:00:00Z")
	assert.Contains(t, text, "Avg latency:    15ms")
	assert.Contains(t, text, "meshsync failed")
	assert.Contains(t, text, "meshsync conflicts")
}

func TestCli_runStatus_Error(t *testing.T) {
	mockEngine := &EngineMock{
		GetStatsFunc: func(ctx context.Context) (*models.Stats, error) {
			return nil, errors.New("db closed")
		},
	}
	cli, _ := newTestCli(mockEngine)

	assert.Error(t, cli.Run(context.Background(), "status", nil))
}

func TestCli_runTopology(t *testing.T) {
	tests := []struct {
		name     string
		topology *models.MeshTopology
		want     []string
	}{
		{
			name:     "no peers",
			topology: &models.MeshTopology{Primary: "dev-a", Epoch: 0},
			want:     []string{"Primary: dev-a", "No peers discovered yet."},
		},
		{
			name: "peers",
			topology: &models.MeshTopology{
				Primary: "dev-b",
				Epoch:   2,
				Peers: []models.PeerInfo{
					{DeviceID: "dev-b", Name: "till", Role: models.RolePrimary, Status: models.PeerOnline, LatencyMs: 12},
					{DeviceID: "dev-c", Role: models.RoleSecondary, Status: models.PeerOffline},
				},
			},
			want: []string{"Epoch:   2", "Found 2 peer(s)", "- dev-b (till)", "Latency:   12 ms", "Status:    offline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := &EngineMock{
				GetTopologyFunc: func() *models.MeshTopology { return tt.topology },
			}
			cli, out := newTestCli(mockEngine)

			require.NoError(t, cli.Run(context.Background(), "topology", nil))
			for _, s := range tt.want {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestCli_runConflicts(t *testing.T) {
	records := []*models.ConflictRecord{{
		ID:           "c-1",
		Collection:   "invoices",
		DocumentID:   "inv-1",
		Strategy:     models.StrategyManualReview,
		OperationIDs: []string{"01A", "01B"},
	}}
	mockEngine := &EngineMock{
		ListConflictsFunc: func(ctx context.Context, openOnly bool) ([]*models.ConflictRecord, error) {
			if openOnly {
				return records, nil
			}
			return nil, nil
		},
	}
	cli, out := newTestCli(mockEngine)
	ctx := context.Background()

	require.NoError(t, cli.Run(ctx, "conflicts", nil))
	assert.Contains(t, out.String(), "Document:   invoices/inv-1")
	assert.Contains(t, out.String(), "Operations: 01A, 01B")
	assert.Contains(t, out.String(), "Resolution: pending")

	out.Reset()
	require.NoError(t, cli.Run(ctx, "conflicts", []string{"-all"}))
	assert.Contains(t, out.String(), "No conflicts found.")

	calls := mockEngine.ListConflictsCalls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].OpenOnly)
	assert.False(t, calls[1].OpenOnly)
}

func TestCli_runResolve(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    engine.Decision
		wantErr error
	}{
		{
			name: "winner",
			args: []string{"-notes", "checked", "c-1", "01B"},
			want: engine.Decision{WinnerOperationID: "01B", Notes: "checked"},
		},
		{
			name: "payload",
			args: []string{"-payload", `{"total":5}`, "c-1"},
			want: engine.Decision{Payload: []byte(`{"total":5}`)},
		},
		{
			name: "delete",
			args: []string{"-delete", "c-1"},
			want: engine.Decision{Delete: true},
		},
		{name: "no decision", args: []string{"c-1"}, wantErr: ErrUsage},
		{name: "two decisions", args: []string{"-delete", "c-1", "01B"}, wantErr: ErrUsage},
		{name: "invalid payload", args: []string{"-payload", "{", "c-1"}, wantErr: ErrUsage},
		{name: "no conflict id", args: nil, wantErr: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := &EngineMock{
				ResolveConflictFunc: func(ctx context.Context, conflictID string, d engine.Decision) (string, error) {
					return "01RES", nil
				},
			}
			cli, out := newTestCli(mockEngine)

			err := cli.Run(context.Background(), "resolve", tt.args)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, mockEngine.ResolveConflictCalls())
				return
			}
			require.NoError(t, err)
			require.Len(t, mockEngine.ResolveConflictCalls(), 1)
			call := mockEngine.ResolveConflictCalls()[0]
			assert.Equal(t, "c-1", call.ConflictID)
			assert.Equal(t, tt.want, call.D)
			assert.Contains(t, out.String(), "resolved by operation 01RES")
		})
	}
}

func TestCli_runResolve_NotPrimary(t *testing.T) {
	mockEngine := &EngineMock{
		ResolveConflictFunc: func(ctx context.Context, conflictID string, d engine.Decision) (string, error) {
			return "", engine.ErrNotPrimary
		},
	}
	cli, _ := newTestCli(mockEngine)

	err := cli.Run(context.Background(), "resolve", []string{"c-1", "01A"})

	assert.ErrorIs(t, err, engine.ErrNotPrimary)
}

func TestCli_runFailedAndRetry(t *testing.T) {
	mockEngine := &EngineMock{
		ListFailedFunc: func(ctx context.Context) ([]*models.SyncOperation, error) {
			return []*models.SyncOperation{{
				ID:          "01F",
				Kind:        models.KindUpdate,
				Collection:  "orders",
				DocumentID:  "o-1",
				Priority:    models.PriorityHigh,
				Attempts:    8,
				LastError:   "timeout",
				RelayedFrom: "dev-c",
			}}, nil
		},
		RetryFailedFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}
	cli, out := newTestCli(mockEngine)
	ctx := context.Background()

	require.NoError(t, cli.Run(ctx, "failed", nil))
	assert.Contains(t, out.String(), "Operation: update orders/o-1")
	assert.Contains(t, out.String(), "Attempts:  8")
	assert.Contains(t, out.String(), "Relayed:   from dev-c")
	assert.Contains(t, out.String(), "Error:     timeout")

	out.Reset()
	require.NoError(t, cli.Run(ctx, "retry", []string{"01F"}))
	assert.Contains(t, out.String(), "Operation 01F requeued")
	require.Len(t, mockEngine.RetryFailedCalls(), 1)
	assert.Equal(t, "01F", mockEngine.RetryFailedCalls()[0].Id)

	assert.ErrorIs(t, cli.Run(ctx, "retry", nil), ErrUsage)
}

func TestCli_runPromote(t *testing.T) {
	mockEngine := &EngineMock{
		PromotePrimaryFunc: func(ctx context.Context, deviceID string) error {
			return nil
		},
		GetTopologyFunc: func() *models.MeshTopology {
			return &models.MeshTopology{Primary: "dev-b", Epoch: 3}
		},
	}
	cli, out := newTestCli(mockEngine)

	require.NoError(t, cli.Run(context.Background(), "promote", []string{"dev-b"}))

	assert.Equal(t, "dev-b", mockEngine.PromotePrimaryCalls()[0].DeviceID)
	assert.Contains(t, out.String(), "Primary is now dev-b (epoch 3)")
}

func TestCli_runSync(t *testing.T) {
	mockEngine := &EngineMock{
		RunFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
	}
	cli, out := newTestCli(mockEngine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, cli.Run(ctx, "run", nil))
	assert.Contains(t, out.String(), "Sync started")
	assert.Contains(t, out.String(), "Sync stopped")

	mockEngine.RunFunc = func(ctx context.Context) error { return engine.ErrNoTransport }
	assert.ErrorIs(t, cli.Run(context.Background(), "run", nil), engine.ErrNoTransport)
}

func TestCli_runRelay(t *testing.T) {
	seen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	relay := &RelayAPIMock{
		HealthFunc: func(ctx context.Context) (*api.HealthResponse, error) {
			return &api.HealthResponse{Status: "ok", Version: "1.0.0", Connected: 1}, nil
		},
		DevicesFunc: func(ctx context.Context) (*api.DevicesResponse, error) {
			return &api.DevicesResponse{Devices: []api.DeviceInfo{
				{DeviceID: "dev-a", Online: true, LastSeen: seen},
				{DeviceID: "dev-b", LastSeen: seen},
			}}, nil
		},
		FramesFunc: func(ctx context.Context, limit int) (*api.FramesResponse, error) {
			return &api.FramesResponse{Frames: []api.FrameInfo{
				{ReceivedAt: seen, Type: "ops_batch", FromDevice: "dev-a", Size: 90},
			}}, nil
		},
	}
	cli, out := newTestCli(&EngineMock{})
	ctx := context.Background()

	assert.ErrorIs(t, cli.Run(ctx, "relay", nil), ErrNoRelayAPI)

	cli.SetRelay(relay)
	require.NoError(t, cli.Run(ctx, "relay", nil))
	assert.Contains(t, out.String(), "Status:    ok (version 1.0.0)")
	assert.Contains(t, out.String(), "- dev-a online, last seen 2026-05-01T10:00:00Z")
	assert.Contains(t, out.String(), "- dev-b offline")
	assert.NotContains(t, out.String(), "Recent frames")
	assert.Empty(t, relay.FramesCalls())

	out.Reset()
	require.NoError(t, cli.Run(ctx, "relay", []string{"-frames", "5"}))
	assert.Contains(t, out.String(), "ops_batch dev-a -> * (90 bytes)")
	require.Len(t, relay.FramesCalls(), 1)
	assert.Equal(t, 5, relay.FramesCalls()[0].Limit)

	assert.ErrorIs(t, cli.Run(ctx, "relay", []string{"-frames", "-1"}), ErrUsage)
}

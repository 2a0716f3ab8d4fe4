package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Equal(t, PriorityMedium.Rank(), Priority("").Rank())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("critical")
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestOperationKind_Valid(t *testing.T) {
	assert.True(t, KindCreate.Valid())
	assert.True(t, KindUpdate.Valid())
	assert.True(t, KindDelete.Valid())
	assert.False(t, OperationKind("upsert").Valid())
}

func TestSyncOperation_IsNewerThan(t *testing.T) {
	tests := []struct {
		self     *SyncOperation
		other    *SyncOperation
		name     string
		expected bool
	}{
		{
			name:     "later timestamp wins",
			self:     &SyncOperation{ID: "01A", PhysicalTimestamp: 200},
			other:    &SyncOperation{ID: "01B", PhysicalTimestamp: 100},
			expected: true,
		},
		{
			name:     "earlier timestamp loses",
			self:     &SyncOperation{ID: "01B", PhysicalTimestamp: 100},
			other:    &SyncOperation{ID: "01A", PhysicalTimestamp: 200},
			expected: false,
		},
		{
			name:     "equal timestamp greater id wins",
			self:     &SyncOperation{ID: "01B", PhysicalTimestamp: 100},
			other:    &SyncOperation{ID: "01A", PhysicalTimestamp: 100},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.self.IsNewerThan(tt.other))
		})
	}
}

func TestSyncOperation_Clone(t *testing.T) {
	synced := time.Now()
	original := &SyncOperation{
		ID:           "01ABC",
		OriginDevice: "dev-a",
		VectorClock:  VectorClock{"dev-a": 3},
		Payload:      []byte(`{"qty":1}`),
		SyncedAt:     &synced,
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.VectorClock["dev-a"] = 10
	clone.Payload[0] = 'x'
	*clone.SyncedAt = synced.Add(time.Hour)

	assert.Equal(t, uint64(3), original.VectorClock["dev-a"])
	assert.Equal(t, byte('{'), original.Payload[0])
	assert.Equal(t, synced, *original.SyncedAt)
	assert.Equal(t, uint64(3), original.OriginCounter())
	assert.True(t, original.IsRemote("dev-b"))
	assert.False(t, original.IsRemote("dev-a"))
}

func TestHead_IsNewerThan(t *testing.T) {
	a := &Head{OperationID: "01A", PhysicalTimestamp: 100}
	b := &Head{OperationID: "01B", PhysicalTimestamp: 100}
	c := &Head{OperationID: "01C", PhysicalTimestamp: 50}

	assert.True(t, b.IsNewerThan(a))
	assert.False(t, a.IsNewerThan(b))
	assert.True(t, a.IsNewerThan(c))
}

func TestDocumentState_FindHead(t *testing.T) {
	state := NewDocumentState("orders", "o-1")
	state.Heads = []Head{{OperationID: "01A"}, {OperationID: "01B", Kind: KindDelete}}

	h, ok := state.FindHead("01B")
	require.True(t, ok)
	assert.True(t, h.Deleted())

	_, ok = state.FindHead("01C")
	assert.False(t, ok)
	assert.Equal(t, []string{"01A", "01B"}, state.HeadIDs())
}

func TestConflictRecord_Close(t *testing.T) {
	rec := &ConflictRecord{ID: "c1", OperationIDs: []string{"01A", "01B"}}
	assert.True(t, rec.IsOpen())
	assert.True(t, rec.Involves("01B"))
	assert.False(t, rec.Involves("01C"))

	now := time.Now()
	rec.Close(ResolutionLWW, "01B", "dev-a", now)

	assert.False(t, rec.IsOpen())
	assert.Equal(t, "01B", rec.WinnerID)
	require.NotNil(t, rec.ResolvedAt)
	assert.Equal(t, now, *rec.ResolvedAt)
}

func TestMeshTopology_Clone(t *testing.T) {
	topo := &MeshTopology{
		Primary: "b",
		Peers: []PeerInfo{
			{DeviceID: "b", Capabilities: []string{"pos"}},
			{DeviceID: "a"},
		},
	}
	topo.SortPeers()
	clone := topo.Clone()
	clone.Peers[1].Capabilities[0] = "changed"

	assert.Equal(t, "a", topo.Peers[0].DeviceID)
	assert.Equal(t, "pos", topo.Peers[1].Capabilities[0])

	p, ok := topo.FindPeer("b")
	require.True(t, ok)
	assert.Equal(t, "b", p.DeviceID)
}

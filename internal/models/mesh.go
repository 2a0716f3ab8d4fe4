package models

import (
	"sort"
	"time"
)

// Role роль устройства в mesh
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// LinkType тип канала связи с пиром
type LinkType string

const (
	LinkSocket    LinkType = "socket"
	LinkWebRTC    LinkType = "webrtc"
	LinkBluetooth LinkType = "bluetooth"
	LinkMemory    LinkType = "memory"
)

// PeerStatus состояние связи с пиром
type PeerStatus string

const (
	PeerOnline  PeerStatus = "online"
	PeerOffline PeerStatus = "offline"
	PeerSyncing PeerStatus = "syncing"
)

// PeerInfo сведения об устройстве mesh
type PeerInfo struct {
	LastSeen     time.Time  `json:"last_seen"`
	DeviceID     string     `json:"device_id"`
	Name         string     `json:"name,omitempty"`
	Role         Role       `json:"role"`
	LinkType     LinkType   `json:"link_type,omitempty"`
	Status       PeerStatus `json:"status"`
	Capabilities []string   `json:"capabilities,omitempty"`
	LatencyMs    int64      `json:"latency_ms"`
}

// Reachable возвращает true, если пиру можно отправлять операции
func (p *PeerInfo) Reachable() bool {
	return p.Status == PeerOnline || p.Status == PeerSyncing
}

// RoleProposal принятое, но еще не зафиксированное предложение смены primary
type RoleProposal struct {
	Proposer string `json:"proposer"`
	Primary  string `json:"primary"`
	Epoch    uint64 `json:"epoch"`
}

// MeshTopology снимок состава mesh и текущего primary
type MeshTopology struct {
	DiscoveredAt time.Time     `json:"discovered_at"`
	LastUpdated  time.Time     `json:"last_updated"`
	Pending      *RoleProposal `json:"pending,omitempty"`
	Primary      string        `json:"primary,omitempty"`
	Peers        []PeerInfo    `json:"peers"`
	Epoch        uint64        `json:"epoch"` // Epoch число зафиксированных смен primary
}

// Clone создает глубокую копию топологии
func (t *MeshTopology) Clone() *MeshTopology {
	out := *t
	out.Peers = make([]PeerInfo, len(t.Peers))
	for i, p := range t.Peers {
		p.Capabilities = append([]string(nil), p.Capabilities...)
		out.Peers[i] = p
	}
	if t.Pending != nil {
		pending := *t.Pending
		out.Pending = &pending
	}
	return &out
}

// FindPeer ищет пира по идентификатору устройства
func (t *MeshTopology) FindPeer(deviceID string) (*PeerInfo, bool) {
	for i := range t.Peers {
		if t.Peers[i].DeviceID == deviceID {
			return &t.Peers[i], true
		}
	}
	return nil, false
}

// SortPeers упорядочивает пиров по идентификатору устройства
func (t *MeshTopology) SortPeers() {
	sort.Slice(t.Peers, func(i, j int) bool {
		return t.Peers[i].DeviceID < t.Peers[j].DeviceID
	})
}

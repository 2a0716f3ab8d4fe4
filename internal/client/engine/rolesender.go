package engine

import (
	"context"

	"github.com/iudanet/meshsync/internal/client/transport"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/pkg/api"
)

// roleSender доставляет сообщения смены primary через транспорт узла
type roleSender struct {
	transport transport.Transport
	cfg       *config.Holder
	deviceID  string
}

func (s *roleSender) SendRoleChange(ctx context.Context, peerID string, msg api.RoleChange) (*api.RoleAck, error) {
	env, err := transport.NewEnvelope(api.TypeRoleChange, s.deviceID, peerID, msg)
	if err != nil {
		return nil, err
	}

	if timeout := s.cfg.Get().SendTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := s.transport.Request(ctx, peerID, env)
	if err != nil {
		return nil, err
	}

	var ack api.RoleAck
	if err := transport.DecodeBody(resp, api.TypeRoleAck, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

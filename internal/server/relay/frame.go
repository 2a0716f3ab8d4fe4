package relay

import (
	"time"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

func frameOf(businessID string, env *api.Envelope) *models.RelayFrame {
	return &models.RelayFrame{
		ReceivedAt: time.Now(),
		ID:         env.ID,
		BusinessID: businessID,
		FromDevice: env.From,
		ToDevice:   env.To,
		Type:       string(env.Type),
		Size:       len(env.Body),
	}
}

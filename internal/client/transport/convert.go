package transport

import (
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

// OperationToMessage готовит операцию к отправке (без локального учета)
func OperationToMessage(op *models.SyncOperation) api.OperationMessage {
	return api.OperationMessage{
		VectorClock:       op.VectorClock.Clone(),
		ID:                op.ID,
		Collection:        op.Collection,
		DocumentID:        op.DocumentID,
		Kind:              string(op.Kind),
		Priority:          string(op.Priority),
		OriginDevice:      op.OriginDevice,
		OriginUser:        op.OriginUser,
		Checksum:          op.Checksum,
		Payload:           op.Payload,
		PhysicalTimestamp: op.PhysicalTimestamp,
	}
}

// MessageToOperation восстанавливает полученную операцию
func MessageToOperation(msg api.OperationMessage) *models.SyncOperation {
	return &models.SyncOperation{
		VectorClock:       models.VectorClock(msg.VectorClock).Clone(),
		ID:                msg.ID,
		Collection:        msg.Collection,
		DocumentID:        msg.DocumentID,
		Kind:              models.OperationKind(msg.Kind),
		Priority:          models.Priority(msg.Priority),
		OriginDevice:      msg.OriginDevice,
		OriginUser:        msg.OriginUser,
		Checksum:          msg.Checksum,
		Payload:           msg.Payload,
		PhysicalTimestamp: msg.PhysicalTimestamp,
	}
}

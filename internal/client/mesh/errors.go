package mesh

import "errors"

var (
	// ErrRoleChangeFailed смена primary не получила единогласного подтверждения
	ErrRoleChangeFailed = errors.New("role change failed")

	// ErrUnknownDevice устройство не известно реестру
	ErrUnknownDevice = errors.New("unknown device")
)

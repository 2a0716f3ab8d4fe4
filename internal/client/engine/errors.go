package engine

import "errors"

var (
	// ErrNotPrimary ручное разрешение конфликтов доступно только primary-устройству
	ErrNotPrimary = errors.New("device is not the primary")

	// ErrModuleDisabled коллекция не входит в enabled_modules
	ErrModuleDisabled = errors.New("module is disabled")

	// ErrNoTransport узел запущен без транспорта
	ErrNoTransport = errors.New("transport is not configured")

	// ErrEmptyDecision решение конфликта не указывает ни победителя, ни содержимое
	ErrEmptyDecision = errors.New("decision must name a winner, a payload or a delete")
)

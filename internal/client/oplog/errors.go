package oplog

import "errors"

var (
	// ErrOperationImmutable операция уже синхронизирована и не может меняться
	ErrOperationImmutable = errors.New("operation is synced and immutable")

	// ErrInvalidTransition недопустимый переход состояния операции
	ErrInvalidTransition = errors.New("invalid operation state transition")

	// ErrInvalidOperation входные данные операции некорректны
	ErrInvalidOperation = errors.New("invalid operation")
)

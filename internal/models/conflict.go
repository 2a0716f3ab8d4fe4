package models

import (
	"fmt"
	"time"
)

// ConflictStrategy политика разрешения конкурентных правок коллекции
type ConflictStrategy string

const (
	StrategyLastWriteWins  ConflictStrategy = "last_write_wins"
	StrategyFirstWriteWins ConflictStrategy = "first_write_wins"
	StrategyAdditiveMerge  ConflictStrategy = "additive_merge"
	StrategyFieldLevel     ConflictStrategy = "field_level_merge"
	StrategyManualReview   ConflictStrategy = "manual_review"
)

// Valid проверяет, что стратегия известна
func (s ConflictStrategy) Valid() bool {
	switch s {
	case StrategyLastWriteWins, StrategyFirstWriteWins, StrategyAdditiveMerge,
		StrategyFieldLevel, StrategyManualReview:
		return true
	}
	return false
}

// ParseConflictStrategy разбирает имя стратегии
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	cs := ConflictStrategy(s)
	if !cs.Valid() {
		return "", fmt.Errorf("unknown conflict strategy %q", s)
	}
	return cs, nil
}

// Resolution исход разрешения конфликта
type Resolution string

const (
	ResolutionLWW     Resolution = "lww"
	ResolutionMerge   Resolution = "merge"
	ResolutionManual  Resolution = "manual"
	ResolutionDiscard Resolution = "discard"
)

// ConflictRecord журнал обнаруженного конфликта.
// Открыт, пока Resolution пуст; после установки не меняется.
type ConflictRecord struct {
	DetectedAt   time.Time        `json:"detected_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	ID           string           `json:"id"`
	Collection   string           `json:"collection"`
	DocumentID   string           `json:"document_id"`
	Strategy     ConflictStrategy `json:"strategy"`
	Resolution   Resolution       `json:"resolution,omitempty"`
	WinnerID     string           `json:"winner_id,omitempty"`
	ResolvedBy   string           `json:"resolved_by,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	OperationIDs []string         `json:"operation_ids"` // OperationIDs отсортированные идентификаторы конкурентных операций
}

// IsOpen возвращает true, если конфликт ждет решения
func (c *ConflictRecord) IsOpen() bool {
	return c.Resolution == ""
}

// Close фиксирует исход конфликта
func (c *ConflictRecord) Close(resolution Resolution, winnerID, resolvedBy string, at time.Time) {
	c.Resolution = resolution
	c.WinnerID = winnerID
	c.ResolvedBy = resolvedBy
	c.ResolvedAt = &at
}

// Involves проверяет участие операции в конфликте
func (c *ConflictRecord) Involves(operationID string) bool {
	for _, id := range c.OperationIDs {
		if id == operationID {
			return true
		}
	}
	return false
}

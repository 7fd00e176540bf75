package models

import "time"

const (
	EventStatusPending    = "pending"
	EventStatusInProgress = "in_progress"
	EventStatusSent       = "sent"
	EventStatusFailed     = "failed"
)

const EventOrderPlaced = "order.placed"

// OutboxEvent - событие, записанное в той же транзакции, что и изменение состояния
type OutboxEvent struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Status        string
	RetryCount    int
	LastError     *string
	CreatedAt     time.Time
}

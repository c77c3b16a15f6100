package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsEvent is recorded once per redirect.
type AnalyticsEvent struct {
	EventID       string    `json:"event_id" db:"event_id" bson:"event_id"`
	ID            string    `json:"id" db:"id" bson:"id"`
	Headers       Headers   `json:"headers" db:"headers" bson:"headers"`
	ClientAddress string    `json:"client_address" db:"client_address" bson:"client_address"`
	Time          time.Time `json:"time" db:"time" bson:"time"`
	SchemaVersion int       `json:"schema_version" db:"schema_version" bson:"schema_version"`
}

func NewAnalyticsEvent(id string, headers Headers, clientAddress string, at time.Time) *AnalyticsEvent {
	if headers == nil {
		headers = Headers{}
	}
	return &AnalyticsEvent{
		EventID:       uuid.NewString(),
		ID:            id,
		Headers:       headers,
		ClientAddress: clientAddress,
		Time:          at.UTC(),
		SchemaVersion: SchemaVersion,
	}
}

// AnalyticsSummary is rebuilt from the stored events on every query.
type AnalyticsSummary struct {
	Count     uint64            `json:"count"`
	Devices   map[string]uint64 `json:"devices"`
	ClientOS  map[string]uint64 `json:"client_os"`
	Countries map[string]uint64 `json:"countries,omitempty"`
}

func NewAnalyticsSummary() *AnalyticsSummary {
	return &AnalyticsSummary{
		Devices:  make(map[string]uint64),
		ClientOS: make(map[string]uint64),
	}
}

package models

import "time"

type ScrapeStatus string

const (
	ScrapeStatusInProgress ScrapeStatus = "in_progress"
	ScrapeStatusCompleted  ScrapeStatus = "completed"
	ScrapeStatusFailed     ScrapeStatus = "failed"
)

// ScrapeLog records one ingestion run for one dealer.
type ScrapeLog struct {
	ID              int64        `json:"id" db:"id"`
	DealerID        int64        `json:"dealer_id" db:"dealer_id"`
	Status          ScrapeStatus `json:"status" db:"status"`
	VehiclesFound   int          `json:"vehicles_found" db:"vehicles_found"`
	VehiclesAdded   int          `json:"vehicles_added" db:"vehicles_added"`
	VehiclesUpdated int          `json:"vehicles_updated" db:"vehicles_updated"`
	ErrorMessage    string       `json:"error_message" db:"error_message"`
	StartedAt       time.Time    `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at" db:"completed_at"`
	DurationMS      int64        `json:"duration_ms" db:"duration_ms"`
}

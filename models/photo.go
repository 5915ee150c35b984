package models

import (
	"time"

	"github.com/google/uuid"
)

type PhotoStatus string

const (
	PhotoStatusPending  PhotoStatus = "pending"
	PhotoStatusUploaded PhotoStatus = "uploaded"
	PhotoStatusFailed   PhotoStatus = "failed"
)

// Photo is a vehicle image queued for mirroring to object storage.
type Photo struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	DealerID    int64       `json:"dealer_id" db:"dealer_id"`
	VehicleVIN  string      `json:"vehicle_vin" db:"vehicle_vin"`
	OriginalURL string      `json:"original_url" db:"original_url"`
	S3Key       *string     `json:"s3_key" db:"s3_key"`
	ContentHash string      `json:"content_hash" db:"content_hash"`
	Position    int         `json:"position" db:"position"`
	Status      PhotoStatus `json:"status" db:"status"`
	Attempts    int         `json:"attempts" db:"attempts"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

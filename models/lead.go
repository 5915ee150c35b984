package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

type CRMSyncStatus string

const (
	CRMSyncStatusPending CRMSyncStatus = "pending"
	CRMSyncStatusSynced  CRMSyncStatus = "synced"
	CRMSyncStatusFailed  CRMSyncStatus = "failed"
)

type Lead struct {
	ID         int64     `json:"id" db:"id"`
	PublicID   uuid.UUID `json:"public_id" db:"public_id"`
	DealerID   int64     `json:"dealer_id" db:"dealer_id"`
	VehicleVIN string    `json:"vehicle_vin" db:"vehicle_vin"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`

	// Pre-qualification answers
	EmploymentStatus     string   `json:"employment_status" db:"employment_status"`
	DownPaymentAvailable *float64 `json:"down_payment_available" db:"down_payment_available"`
	BankruptcyStatus     string   `json:"bankruptcy_status" db:"bankruptcy_status"`
	CreditScoreRange     string   `json:"credit_score_range" db:"credit_score_range"`

	PreferredContactMethod string `json:"preferred_contact_method" db:"preferred_contact_method"`
	PreferredContactTime   string `json:"preferred_contact_time" db:"preferred_contact_time"`
	Comments               string `json:"comments" db:"comments"`
	LeadSource             string `json:"lead_source" db:"lead_source"`
	LeadType               string `json:"lead_type" db:"lead_type"`

	ADFXML string `json:"adf_xml" db:"adf_xml"`

	DeliveryStatus      DeliveryStatus  `json:"delivery_status" db:"delivery_status"`
	DeliveryAttempts    int             `json:"delivery_attempts" db:"delivery_attempts"`
	DeliveryResponse    json.RawMessage `json:"delivery_response" db:"delivery_response"`
	LastDeliveryAttempt *time.Time      `json:"last_delivery_attempt" db:"last_delivery_attempt"`
	DeliveredAt         *time.Time      `json:"delivered_at" db:"delivered_at"`

	CRMSyncStatus CRMSyncStatus `json:"crm_sync_status" db:"crm_sync_status"`
	CRMLeadID     string        `json:"crm_lead_id" db:"crm_lead_id"`
	CRMSyncedAt   *time.Time    `json:"crm_synced_at" db:"crm_synced_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

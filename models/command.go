package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdScrapeNow        CommandType = "scrape_now"
	CmdScrapeDealer     CommandType = "scrape_dealer"
	CmdPause            CommandType = "pause"
	CmdResume           CommandType = "resume"
	CmdRunDeliverySweep CommandType = "run_delivery_sweep"
	CmdRunCRMSweep      CommandType = "run_crm_sweep"
	CmdRunPhotos        CommandType = "run_photos"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	DealerID int64 `json:"dealer_id,omitempty"`
}

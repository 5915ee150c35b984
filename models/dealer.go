package models

import "time"

type Dealer struct {
	ID              int64          `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	Slug            string         `json:"slug" db:"slug"`
	Email           string         `json:"email" db:"email"`
	Phone           string         `json:"phone" db:"phone"`
	City            string         `json:"city" db:"city"`
	WebsiteURL      string         `json:"website_url" db:"website_url"`
	InventoryURL    string         `json:"inventory_url" db:"inventory_url"`
	WebhookURL      string         `json:"webhook_url" db:"webhook_url"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	ScrapingEnabled bool           `json:"scraping_enabled" db:"scraping_enabled"`
	Scraping        ScrapingConfig `json:"scraping_config" db:"scraping_config"`
	VehicleCount    int            `json:"vehicle_count" db:"vehicle_count"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// ScrapingConfig selects and parameterizes the scrape strategy for a dealer.
// A non-empty CaptureBotID selects the managed capture task; otherwise the
// HTML fallback runs against InventoryURL (or WebsiteURL).
type ScrapingConfig struct {
	CaptureBotID    string                 `json:"capture_bot_id" yaml:"capture_bot_id"`
	ListName        string                 `json:"list_name" yaml:"list_name"`
	InputParameters map[string]interface{} `json:"input_parameters" yaml:"input_parameters"`
	FieldMapping    map[string]string      `json:"field_mapping" yaml:"field_mapping"`
	RequiresJS      bool                   `json:"requires_js" yaml:"requires_js"`
}

// InventoryPage returns the URL the HTML fallback should fetch.
func (d *Dealer) InventoryPage() string {
	if d.InventoryURL != "" {
		return d.InventoryURL
	}
	return d.WebsiteURL
}

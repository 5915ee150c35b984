package models

import "time"

// Vehicle is a canonical inventory row, keyed by (dealer_id, vin).
// VINs scraped without one are synthetic (see identity package).
type Vehicle struct {
	ID            int64      `json:"id" db:"id"`
	DealerID      int64      `json:"dealer_id" db:"dealer_id"`
	VIN           string     `json:"vin" db:"vin"`
	Year          int        `json:"year" db:"year"`
	Make          string     `json:"make" db:"make"`
	Model         string     `json:"model" db:"model"`
	Trim          string     `json:"trim" db:"trim"`
	Price         *float64   `json:"price" db:"price"`
	DownPayment   *float64   `json:"down_payment" db:"down_payment"`
	Mileage       *int       `json:"mileage" db:"mileage"`
	StockNumber   string     `json:"stock_number" db:"stock_number"`
	ExteriorColor string     `json:"exterior_color" db:"exterior_color"`
	InteriorColor string     `json:"interior_color" db:"interior_color"`
	Transmission  string     `json:"transmission" db:"transmission"`
	Engine        string     `json:"engine" db:"engine"`
	SourceURL     string     `json:"source_url" db:"source_url"`
	Photos        []string   `json:"photos" db:"photos"`
	IsAvailable   bool       `json:"is_available" db:"is_available"`
	LeadsCount    int        `json:"leads_count" db:"leads_count"`
	LastScrapedAt *time.Time `json:"last_scraped_at" db:"last_scraped_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ScrapedVehicle is a normalized record produced by a scrape strategy,
// before it is reconciled against stored inventory.
type ScrapedVehicle struct {
	VIN           string   `json:"vin"`
	Year          int      `json:"year"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Trim          string   `json:"trim"`
	Price         *float64 `json:"price"`
	DownPayment   *float64 `json:"down_payment"`
	Mileage       *int     `json:"mileage"`
	StockNumber   string   `json:"stock_number"`
	ExteriorColor string   `json:"exterior_color"`
	InteriorColor string   `json:"interior_color"`
	Transmission  string   `json:"transmission"`
	Engine        string   `json:"engine"`
	SourceURL     string   `json:"source_url"`
	Photos        []string `json:"photos"`
}

package scraper

import (
	"context"

	"auto_leads/models"
)

// Strategy fetches and normalizes a dealer's inventory. Implementations:
// the managed capture task (ManagedTaskStrategy) and the direct HTML
// fallback (HTMLFallback).
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, dealer *models.Dealer) ([]models.ScrapedVehicle, error)
}

// NewStrategy is the single dispatch point for strategy selection: a
// dealer with a configured capture bot uses the managed task API, everyone
// else gets the HTML fallback.
func NewStrategy(dealer *models.Dealer, capture *CaptureClient, fallback *HTMLFallback) Strategy {
	if dealer.Scraping.CaptureBotID != "" {
		return &ManagedTaskStrategy{client: capture}
	}
	return fallback
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"auto_leads/models"
)

// VehicleStore is the slice of storage the reconciler needs.
type VehicleStore interface {
	GetDealerVehicle(ctx context.Context, dealerID int64, vin string) (*models.Vehicle, error)
	InsertVehicle(ctx context.Context, v *models.Vehicle) error
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	MarkAbsentVehiclesUnavailable(ctx context.Context, dealerID int64, seenVINs []string) (int64, error)
	RefreshDealerVehicleCount(ctx context.Context, dealerID int64) error
}

// InventoryService reconciles scraped vehicles against stored inventory:
// upsert by (dealer, VIN), soft-delist what a scrape no longer sees.
type InventoryService struct {
	store  VehicleStore
	photos *PhotoService
}

// NewInventoryService builds the reconciler. photos may be nil when photo
// mirroring is disabled.
func NewInventoryService(store VehicleStore, photos *PhotoService) *InventoryService {
	return &InventoryService{store: store, photos: photos}
}

// ProcessResult reports what one scraped vehicle did to inventory.
type ProcessResult struct {
	VehicleID int64
	IsNew     bool
}

// ProcessVehicle upserts one scraped vehicle. Re-running with identical
// input is a no-op update. Vehicles without a stated down payment get the
// standard estimate.
func (s *InventoryService) ProcessVehicle(ctx context.Context, dealerID int64, sv *models.ScrapedVehicle) (*ProcessResult, error) {
	if sv.VIN == "" {
		return nil, fmt.Errorf("scraped vehicle missing VIN")
	}

	if sv.DownPayment == nil {
		dp := DefaultDownPayment(sv.Price)
		sv.DownPayment = &dp
	}

	now := time.Now()
	v := &models.Vehicle{
		DealerID:      dealerID,
		VIN:           sv.VIN,
		Year:          sv.Year,
		Make:          sv.Make,
		Model:         sv.Model,
		Trim:          sv.Trim,
		Price:         sv.Price,
		DownPayment:   sv.DownPayment,
		Mileage:       sv.Mileage,
		StockNumber:   sv.StockNumber,
		ExteriorColor: sv.ExteriorColor,
		InteriorColor: sv.InteriorColor,
		Transmission:  sv.Transmission,
		Engine:        sv.Engine,
		SourceURL:     sv.SourceURL,
		Photos:        sv.Photos,
		IsAvailable:   true,
		LastScrapedAt: &now,
	}

	existing, err := s.store.GetDealerVehicle(ctx, dealerID, sv.VIN)
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}

	result := &ProcessResult{}
	if existing == nil {
		if err := s.store.InsertVehicle(ctx, v); err != nil {
			return nil, fmt.Errorf("insert vehicle: %w", err)
		}
		result.VehicleID = v.ID
		result.IsNew = true
	} else {
		v.ID = existing.ID
		if err := s.store.UpdateVehicle(ctx, v); err != nil {
			return nil, fmt.Errorf("update vehicle: %w", err)
		}
		result.VehicleID = existing.ID
	}

	if s.photos != nil && len(sv.Photos) > 0 {
		if err := s.photos.QueueVehiclePhotos(ctx, dealerID, sv.VIN, sv.Photos); err != nil {
			log.Printf("Warning: failed to queue photos for %s: %v", sv.VIN, err)
		}
	}

	return result, nil
}

// Reconcile soft-delists every available vehicle of the dealer whose VIN
// the scrape didn't see, then refreshes the dealer's vehicle count. An
// empty scrape skips delisting: wiping a whole inventory because a page
// failed to parse is worse than staleness.
func (s *InventoryService) Reconcile(ctx context.Context, dealerID int64, seenVINs []string) (int64, error) {
	var delisted int64
	if len(seenVINs) > 0 {
		var err error
		delisted, err = s.store.MarkAbsentVehiclesUnavailable(ctx, dealerID, seenVINs)
		if err != nil {
			return 0, fmt.Errorf("mark absent vehicles: %w", err)
		}
	} else {
		log.Printf("Warning: dealer %d scrape saw no vehicles, skipping delist", dealerID)
	}

	if err := s.store.RefreshDealerVehicleCount(ctx, dealerID); err != nil {
		log.Printf("Warning: failed to refresh vehicle count for dealer %d: %v", dealerID, err)
	}
	return delisted, nil
}

// DefaultDownPayment estimates a required down payment when the source
// doesn't state one: 10% of price capped at $2,000, or $1,000 when the
// price is unknown.
func DefaultDownPayment(price *float64) float64 {
	if price != nil && *price > 0 {
		est := *price * 0.10
		if est > 2000 {
			est = 2000
		}
		return est
	}
	return 1000
}

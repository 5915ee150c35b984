package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auto_leads/models"
)

// PhotoStore is the slice of storage the photo queue writes through.
type PhotoStore interface {
	UpsertPhoto(ctx context.Context, p *models.Photo) error
}

// PhotoService queues scraped photo URLs for mirroring to object storage.
// The queue is idempotent on original URL, so re-scrapes only refresh the
// photo ordering.
type PhotoService struct {
	store PhotoStore
}

func NewPhotoService(store PhotoStore) *PhotoService {
	return &PhotoService{store: store}
}

func (s *PhotoService) QueueVehiclePhotos(ctx context.Context, dealerID int64, vin string, urls []string) error {
	now := time.Now()
	for i, url := range urls {
		p := &models.Photo{
			ID:          uuid.New(),
			DealerID:    dealerID,
			VehicleVIN:  vin,
			OriginalURL: url,
			Position:    i,
			Status:      models.PhotoStatusPending,
			CreatedAt:   now,
		}
		if err := s.store.UpsertPhoto(ctx, p); err != nil {
			return fmt.Errorf("queue photo %s: %w", url, err)
		}
	}
	return nil
}

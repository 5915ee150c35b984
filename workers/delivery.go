package workers

import (
	"context"
	"log"
	"time"

	"auto_leads/config"
	"auto_leads/models"
	"auto_leads/services"
)

// DeliverySweepStore is the slice of storage the sweep reads from.
type DeliverySweepStore interface {
	GetFailedDeliveries(ctx context.Context, window time.Duration, maxAttempts, limit int) ([]models.Lead, error)
	GetDealer(ctx context.Context, id int64) (*models.Dealer, error)
}

// DeliveryWorker retries webhook deliveries that failed with attempt
// budget left. Only leads from the last 24 hours are swept; older ones are
// dead and stay visible as failed.
type DeliveryWorker struct {
	cfg      *config.Config
	store    DeliverySweepStore
	delivery *services.DeliveryService
	trigger  chan struct{}
}

func NewDeliveryWorker(cfg *config.Config, store DeliverySweepStore, delivery *services.DeliveryService) *DeliveryWorker {
	return &DeliveryWorker{
		cfg:      cfg,
		store:    store,
		delivery: delivery,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate sweep outside the ticker cadence.
func (w *DeliveryWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the delivery sweep loop.
func (w *DeliveryWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Delivery worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx, batchSize)
		case <-w.trigger:
			w.Sweep(ctx, batchSize)
		}
	}
}

// Sweep retries one batch of failed deliveries with pacing between leads
// so a flapping webhook isn't hammered.
func (w *DeliveryWorker) Sweep(ctx context.Context, batchSize int) {
	leads, err := w.store.GetFailedDeliveries(ctx, 24*time.Hour, w.cfg.Delivery.MaxAttempts, batchSize)
	if err != nil {
		log.Printf("Delivery worker: query error: %v", err)
		return
	}
	if len(leads) == 0 {
		return
	}

	log.Printf("Delivery worker: retrying %d failed deliveries", len(leads))

	var delivered int
	for i := range leads {
		lead := &leads[i]

		dealer, err := w.store.GetDealer(ctx, lead.DealerID)
		if err != nil || dealer == nil {
			log.Printf("Delivery worker: dealer %d for lead %d unavailable: %v", lead.DealerID, lead.ID, err)
			continue
		}

		if err := w.delivery.Deliver(ctx, lead, dealer); err != nil {
			log.Printf("Delivery worker: lead %d still failing: %v", lead.ID, err)
		} else {
			delivered++
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}

	if delivered > 0 {
		log.Printf("Delivery worker: recovered %d of %d leads", delivered, len(leads))
	}
}

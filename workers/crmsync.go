package workers

import (
	"context"
	"log"
	"time"

	"auto_leads/models"
	"auto_leads/services"
)

// CRMSweepStore is the slice of storage the CRM sweep reads from.
type CRMSweepStore interface {
	GetFailedCRMSyncs(ctx context.Context, window time.Duration, limit int) ([]models.Lead, error)
	GetDealer(ctx context.Context, id int64) (*models.Dealer, error)
}

// CRMSyncWorker re-runs CRM syncs that failed, for leads from the last 24
// hours.
type CRMSyncWorker struct {
	store   CRMSweepStore
	crm     *services.CRMService
	trigger chan struct{}
}

func NewCRMSyncWorker(store CRMSweepStore, crm *services.CRMService) *CRMSyncWorker {
	return &CRMSyncWorker{
		store:   store,
		crm:     crm,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate sweep outside the ticker cadence.
func (w *CRMSyncWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the CRM sync sweep loop.
func (w *CRMSyncWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("CRM sync worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx, batchSize)
		case <-w.trigger:
			w.Sweep(ctx, batchSize)
		}
	}
}

func (w *CRMSyncWorker) Sweep(ctx context.Context, batchSize int) {
	leads, err := w.store.GetFailedCRMSyncs(ctx, 24*time.Hour, batchSize)
	if err != nil {
		log.Printf("CRM sync worker: query error: %v", err)
		return
	}
	if len(leads) == 0 {
		return
	}

	log.Printf("CRM sync worker: retrying %d failed syncs", len(leads))

	for i := range leads {
		lead := &leads[i]

		dealer, err := w.store.GetDealer(ctx, lead.DealerID)
		if err != nil || dealer == nil {
			log.Printf("CRM sync worker: dealer %d for lead %d unavailable: %v", lead.DealerID, lead.ID, err)
			continue
		}

		if err := w.crm.SyncLead(ctx, lead, dealer); err != nil {
			log.Printf("CRM sync worker: lead %d still failing: %v", lead.ID, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

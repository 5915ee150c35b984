package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"auto_leads/config"
	"auto_leads/models"
	"auto_leads/services"
)

// Store is the slice of storage the orchestrator needs.
type Store interface {
	GetDealer(ctx context.Context, id int64) (*models.Dealer, error)
	ListScrapableDealers(ctx context.Context) ([]models.Dealer, error)
	CreateScrapeLog(ctx context.Context, sl *models.ScrapeLog) error
	UpdateScrapeLog(ctx context.Context, sl *models.ScrapeLog) error
}

// Inventory is the reconciler surface the orchestrator drives.
type Inventory interface {
	ProcessVehicle(ctx context.Context, dealerID int64, sv *models.ScrapedVehicle) (*services.ProcessResult, error)
	Reconcile(ctx context.Context, dealerID int64, seenVINs []string) (int64, error)
}

// Orchestrator runs dealer ingestion: pick a strategy, fetch, reconcile,
// and keep the ScrapeLog honest. A registry of in-flight dealer ids keeps
// concurrent runs for the same dealer from stepping on each other.
type Orchestrator struct {
	cfg       *config.Config
	store     Store
	inventory Inventory
	capture   *CaptureClient
	fallback  *HTMLFallback

	mu         sync.Mutex
	running    map[int64]bool
	runningAll bool
	paused     bool
}

func NewOrchestrator(cfg *config.Config, store Store, inventory Inventory, capture *CaptureClient, fallback *HTMLFallback) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		inventory: inventory,
		capture:   capture,
		fallback:  fallback,
		running:   make(map[int64]bool),
	}
}

// RunAll scrapes every scrapable dealer in concurrent batches. A dealer
// failing never stops its siblings; only one RunAll proceeds at a time.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.IsPaused() {
		log.Println("Scraper is paused, skipping run")
		return nil
	}

	o.mu.Lock()
	if o.runningAll {
		o.mu.Unlock()
		return fmt.Errorf("batch scrape already in progress")
	}
	o.runningAll = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.runningAll = false
		o.mu.Unlock()
	}()

	dealers, err := o.store.ListScrapableDealers(ctx)
	if err != nil {
		return fmt.Errorf("list dealers: %w", err)
	}
	if len(dealers) == 0 {
		log.Println("No scrapable dealers configured")
		return nil
	}

	batchSize := o.cfg.Scraper.MaxConcurrent
	if batchSize <= 0 {
		batchSize = 3
	}
	log.Printf("Scraping %d dealers in batches of %d", len(dealers), batchSize)

	for i := 0; i < len(dealers); i += batchSize {
		end := i + batchSize
		if end > len(dealers) {
			end = len(dealers)
		}

		var wg sync.WaitGroup
		for _, d := range dealers[i:end] {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := o.RunDealer(ctx, id); err != nil {
					log.Printf("Error scraping dealer %d: %v", id, err)
				}
			}(d.ID)
		}
		wg.Wait()
	}

	return nil
}

// RunDealer runs one ingestion cycle for one dealer.
func (o *Orchestrator) RunDealer(ctx context.Context, dealerID int64) error {
	if o.IsPaused() {
		log.Printf("Scraper is paused, skipping dealer %d", dealerID)
		return nil
	}
	if !o.acquire(dealerID) {
		return fmt.Errorf("scrape already running for dealer %d", dealerID)
	}
	defer o.release(dealerID)

	dealer, err := o.store.GetDealer(ctx, dealerID)
	if err != nil {
		return fmt.Errorf("get dealer: %w", err)
	}
	if dealer == nil {
		return &DealerNotScrapableError{DealerID: dealerID, Reason: "dealer not found"}
	}

	sl := &models.ScrapeLog{
		DealerID:  dealerID,
		Status:    models.ScrapeStatusInProgress,
		StartedAt: time.Now(),
	}
	if err := o.store.CreateScrapeLog(ctx, sl); err != nil {
		return fmt.Errorf("create scrape log: %w", err)
	}

	if !dealer.IsActive || !dealer.ScrapingEnabled {
		nsErr := &DealerNotScrapableError{DealerID: dealerID, Reason: "scraping disabled"}
		o.closeLog(ctx, sl, models.ScrapeStatusFailed, nsErr.Error())
		return nsErr
	}

	o.applyOverrides(dealer)

	strategy := NewStrategy(dealer, o.capture, o.fallback)
	log.Printf("Scraping dealer %d (%s) via %s", dealer.ID, dealer.Name, strategy.Name())

	scraped, err := strategy.Fetch(ctx, dealer)
	if err != nil {
		o.closeLog(ctx, sl, models.ScrapeStatusFailed, err.Error())
		return fmt.Errorf("fetch inventory: %w", err)
	}

	sl.VehiclesFound = len(scraped)
	seen := make([]string, 0, len(scraped))
	for i := range scraped {
		sv := &scraped[i]
		result, err := o.inventory.ProcessVehicle(ctx, dealer.ID, sv)
		if err != nil {
			log.Printf("Warning: dealer %d vehicle %s: %v", dealer.ID, sv.VIN, err)
			continue
		}
		seen = append(seen, sv.VIN)
		if result.IsNew {
			sl.VehiclesAdded++
		} else {
			sl.VehiclesUpdated++
		}
	}

	delisted, err := o.inventory.Reconcile(ctx, dealer.ID, seen)
	if err != nil {
		o.closeLog(ctx, sl, models.ScrapeStatusFailed, err.Error())
		return fmt.Errorf("reconcile inventory: %w", err)
	}
	if delisted > 0 {
		log.Printf("Dealer %d: %d vehicles no longer listed", dealer.ID, delisted)
	}

	o.closeLog(ctx, sl, models.ScrapeStatusCompleted, "")
	log.Printf("Dealer %d complete: %d found, %d added, %d updated",
		dealer.ID, sl.VehiclesFound, sl.VehiclesAdded, sl.VehiclesUpdated)
	return nil
}

// applyOverrides merges the ops YAML override for the dealer, if any, into
// its stored scraping config.
func (o *Orchestrator) applyOverrides(dealer *models.Dealer) {
	override, ok := o.cfg.Dealers[dealer.Slug]
	if !ok {
		return
	}
	if override.CaptureBotID != "" {
		dealer.Scraping.CaptureBotID = override.CaptureBotID
	}
	if override.ListName != "" {
		dealer.Scraping.ListName = override.ListName
	}
	if override.RequiresJS != nil {
		dealer.Scraping.RequiresJS = *override.RequiresJS
	}
	if len(override.FieldMapping) > 0 {
		dealer.Scraping.FieldMapping = override.FieldMapping
	}
}

func (o *Orchestrator) closeLog(ctx context.Context, sl *models.ScrapeLog, status models.ScrapeStatus, errMsg string) {
	now := time.Now()
	sl.Status = status
	sl.ErrorMessage = errMsg
	sl.CompletedAt = &now
	sl.DurationMS = now.Sub(sl.StartedAt).Milliseconds()
	if err := o.store.UpdateScrapeLog(ctx, sl); err != nil {
		log.Printf("Warning: failed to update scrape log %d: %v", sl.ID, err)
	}
}

func (o *Orchestrator) acquire(dealerID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[dealerID] {
		return false
	}
	o.running[dealerID] = true
	return true
}

func (o *Orchestrator) release(dealerID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, dealerID)
}

func (o *Orchestrator) Pause() {
	o.mu.Lock()
	o.paused = true
	o.mu.Unlock()
	log.Println("Scraper paused")
}

func (o *Orchestrator) Resume() {
	o.mu.Lock()
	o.paused = false
	o.mu.Unlock()
	log.Println("Scraper resumed")
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

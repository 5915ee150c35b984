package scraper

import (
	"context"
	"log"

	"auto_leads/identity"
	"auto_leads/models"
	"auto_leads/normalize"
)

// ManagedTaskStrategy scrapes through a pre-trained capture bot: submit a
// task, wait for it, then map whichever captured list holds the inventory.
type ManagedTaskStrategy struct {
	client *CaptureClient
}

func (s *ManagedTaskStrategy) Name() string {
	return "managed_task"
}

func (s *ManagedTaskStrategy) Fetch(ctx context.Context, dealer *models.Dealer) ([]models.ScrapedVehicle, error) {
	cfg := dealer.Scraping

	taskID, err := s.client.CreateTask(ctx, cfg.CaptureBotID, cfg.InputParameters)
	if err != nil {
		return nil, err
	}
	log.Printf("Capture task created for dealer %d: %s", dealer.ID, taskID)

	lists, err := s.client.WaitForTask(ctx, cfg.CaptureBotID, taskID)
	if err != nil {
		return nil, err
	}

	records := pickList(lists, cfg.ListName)
	log.Printf("Capture task %s: %d records", taskID, len(records))

	vehicles := make([]models.ScrapedVehicle, 0, len(records))
	for _, rec := range records {
		v, ok := normalize.MapRecord(rec, cfg.FieldMapping)
		if !ok {
			continue
		}
		if v.VIN == "" {
			v.VIN = identity.SyntheticVIN()
		} else {
			v.VIN = identity.NormalizeVIN(v.VIN)
		}
		if v.SourceURL == "" {
			v.SourceURL = dealer.InventoryPage()
		}
		vehicles = append(vehicles, *v)
	}

	log.Printf("Dealer %d: %d of %d captured records mapped to vehicles", dealer.ID, len(vehicles), len(records))
	return vehicles, nil
}

// Bots name their captured lists inconsistently; try the configured name,
// then the usual suspects, then whatever non-empty list exists.
var listNameCandidates = []string{"Car Choice Inventory", "inventory", "cars", "listings", "vehicles"}

func pickList(lists map[string][]normalize.RawRecord, preferred string) []normalize.RawRecord {
	candidates := listNameCandidates
	if preferred != "" {
		candidates = append([]string{preferred}, candidates...)
	}

	for _, name := range candidates {
		if records, ok := lists[name]; ok && len(records) > 0 {
			return records
		}
	}

	for name, records := range lists {
		if len(records) > 0 {
			log.Printf("Using first available captured list: %s (%d records)", name, len(records))
			return records
		}
	}
	return nil
}

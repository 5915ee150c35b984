package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"auto_leads/config"
	"auto_leads/models"
	"auto_leads/scraper"
	"auto_leads/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	store        *storage.SQLiteStore
	cron         *cron.Cron
	stopCh       chan struct{}

	deliveryWorker Triggerable
	crmWorker      Triggerable
	photoWorker    Triggerable
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        store,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetWorkers registers sweep workers for manual triggering
func (s *Scheduler) SetWorkers(delivery, crm, photos Triggerable) {
	s.deliveryWorker = delivery
	s.crmWorker = crm
	s.photoWorker = photos
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			if err := s.orchestrator.RunAll(ctx); err != nil {
				log.Printf("Scheduled run error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdScrapeNow:
		go func() {
			if err := s.orchestrator.RunAll(ctx); err != nil {
				log.Printf("Commanded run error: %v", err)
			}
		}()
		return nil
	case models.CmdScrapeDealer:
		params, err := s.store.ParseCommandParams(cmd)
		if err != nil {
			return fmt.Errorf("parse command params: %w", err)
		}
		if params == nil || params.DealerID == 0 {
			return fmt.Errorf("scrape_dealer command missing dealer_id")
		}
		go func() {
			if err := s.orchestrator.RunDealer(ctx, params.DealerID); err != nil {
				log.Printf("Commanded dealer scrape error: %v", err)
			}
		}()
		return nil
	case models.CmdPause:
		s.orchestrator.Pause()
		return nil
	case models.CmdResume:
		s.orchestrator.Resume()
		return nil
	case models.CmdRunDeliverySweep:
		if s.deliveryWorker != nil {
			s.deliveryWorker.Trigger()
			log.Println("Delivery worker triggered via command")
		}
		return nil
	case models.CmdRunCRMSweep:
		if s.crmWorker != nil {
			s.crmWorker.Trigger()
			log.Println("CRM sync worker triggered via command")
		}
		return nil
	case models.CmdRunPhotos:
		if s.photoWorker != nil {
			s.photoWorker.Trigger()
			log.Println("Photo worker triggered via command")
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.orchestrator.RunAll(ctx)
}

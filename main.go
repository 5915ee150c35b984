package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auto_leads/config"
	"auto_leads/httputil"
	"auto_leads/logging"
	"auto_leads/scheduler"
	"auto_leads/scraper"
	"auto_leads/services"
	"auto_leads/storage"
	"auto_leads/workers"
)

var (
	scrapeNow    = flag.Bool("scrape", false, "Run a full scrape once and exit")
	scrapeDealer = flag.Int64("dealer", 0, "Scrape a single dealer by id and exit")
	leadFile     = flag.String("lead", "", "Submit a lead from a JSON file and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(logging.Options{
		Path:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		Backups:   cfg.Logging.Backups,
	})
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting auto_leads...")
	if len(cfg.Dealers) > 0 {
		log.Printf("Loaded %d dealer overrides", len(cfg.Dealers))
	}

	clients := httputil.NewClients()

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	sqliteStore, err := storage.NewSQLiteStore(cfg.OpsDBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.OpsDBPath)

	// Scraping pipeline
	photoService := services.NewPhotoService(pgStore)
	inventoryService := services.NewInventoryService(pgStore, photoService)
	captureClient := scraper.NewCaptureClient(cfg.Capture.BaseURL, cfg.Capture.APIKey, clients.API)
	renderer := scraper.NewBrowserRenderer(cfg.Scraper.LoadMoreMax)
	defer renderer.Close()
	fallback := scraper.NewHTMLFallback(clients, renderer)
	orchestrator := scraper.NewOrchestrator(cfg, pgStore, inventoryService, captureClient, fallback)

	// Lead pipeline
	jobs := workers.NewBackground(2 * time.Minute)
	deliveryService := services.NewDeliveryService(cfg, pgStore, clients.API)
	crmService := services.NewCRMService(cfg, pgStore, clients.API)
	emailService := services.NewEmailService(cfg, clients.API)
	leadService := services.NewLeadService(pgStore, deliveryService, crmService, emailService, jobs)

	log.Println("Services initialized")

	// One-shot commands
	switch {
	case *scrapeDealer != 0:
		log.Printf("Scraping dealer %d...", *scrapeDealer)
		if err := orchestrator.RunDealer(ctx, *scrapeDealer); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	case *scrapeNow:
		log.Println("Running scrape...")
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	case *leadFile != "":
		submitLead(ctx, leadService, jobs, *leadFile)
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	deliveryWorker := workers.NewDeliveryWorker(cfg, pgStore, deliveryService)
	go deliveryWorker.Run(ctx, 50, 15*time.Minute)
	log.Println("Delivery worker started")

	crmWorker := workers.NewCRMSyncWorker(pgStore, crmService)
	go crmWorker.Run(ctx, 20, 30*time.Minute)
	log.Println("CRM sync worker started")

	var uploader workers.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to configure S3 uploader: %v", err)
		}
		uploader = s3Uploader
	} else {
		log.Println("No S3 bucket configured, photo uploads are skipped")
		uploader = workers.NewNoOpUploader()
	}
	photoWorker := workers.NewPhotoWorker(pgStore, uploader)
	go photoWorker.Run(ctx, 20, 2*time.Minute)
	log.Println("Photo worker started")

	sched.SetWorkers(deliveryWorker, crmWorker, photoWorker)

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	cancel()
	jobs.Wait()
	log.Println("Goodbye!")
}

// submitLead reads a LeadRequest from a JSON file and pushes it through the
// full pipeline, waiting for the delivery jobs before exiting.
func submitLead(ctx context.Context, leadService *services.LeadService, jobs *workers.Background, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read lead file: %v", err)
	}

	var req services.LeadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Fatalf("Failed to parse lead file: %v", err)
	}

	result, err := leadService.CreateLead(ctx, &req)
	if err != nil {
		log.Fatalf("Lead submission failed: %v", err)
	}
	log.Printf("Lead %d accepted, confirmation %s", result.LeadID, result.Confirmation)
	jobs.Wait()
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}

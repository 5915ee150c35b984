package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"auto_leads/adf"
	"auto_leads/config"
	"auto_leads/models"
)

// LeadDeliveryStore is the slice of storage delivery writes through.
type LeadDeliveryStore interface {
	MarkLeadDelivered(ctx context.Context, id int64, attempts int, response []byte) error
	MarkLeadDeliveryFailed(ctx context.Context, id int64, attempts int, response []byte) error
}

// webhookEnvelope is the JSON body posted to a dealer's webhook.
type webhookEnvelope struct {
	Format    string `json:"format"`
	Data      string `json:"data"`
	LeadID    string `json:"lead_id"`
	Timestamp string `json:"timestamp"`
}

// deliveryRecord is what gets persisted as delivery_response.
type deliveryRecord struct {
	StatusCode int           `json:"status_code,omitempty"`
	Body       string        `json:"body,omitempty"`
	ADF        *adf.Response `json:"adf,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// DeliveryService posts ADF-wrapped leads to dealer webhooks. Attempt
// counts are cumulative across the lead's lifetime: a retry sweep picks up
// where intake left off instead of restarting the budget.
type DeliveryService struct {
	cfg    *config.Config
	store  LeadDeliveryStore
	client *http.Client
}

func NewDeliveryService(cfg *config.Config, store LeadDeliveryStore, client *http.Client) *DeliveryService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DeliveryService{cfg: cfg, store: store, client: client}
}

// Deliver pushes the lead's ADF document to the dealer's webhook, retrying
// transient failures with linear backoff until the lifetime attempt budget
// runs out. The lead row is updated either way.
func (s *DeliveryService) Deliver(ctx context.Context, lead *models.Lead, dealer *models.Dealer) error {
	if dealer.WebhookURL == "" {
		rec := encodeRecord(&deliveryRecord{Error: "dealer has no webhook URL"})
		if err := s.store.MarkLeadDeliveryFailed(ctx, lead.ID, lead.DeliveryAttempts, rec); err != nil {
			log.Printf("Warning: failed to mark lead %d delivery failed: %v", lead.ID, err)
		}
		return fmt.Errorf("dealer %d has no webhook URL", dealer.ID)
	}
	if lead.ADFXML == "" {
		return fmt.Errorf("lead %d has no ADF document", lead.ID)
	}

	maxAttempts := s.cfg.Delivery.MaxAttempts
	if lead.DeliveryAttempts >= maxAttempts {
		return fmt.Errorf("lead %d exhausted its %d delivery attempts", lead.ID, maxAttempts)
	}

	envelope, err := json.Marshal(webhookEnvelope{
		Format:    "adf",
		Data:      lead.ADFXML,
		LeadID:    lead.PublicID.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook envelope: %w", err)
	}

	attempts := lead.DeliveryAttempts
	var lastRec *deliveryRecord
	for attempts < maxAttempts {
		attempts++

		rec, err := s.post(ctx, dealer, envelope)
		if err == nil {
			if markErr := s.store.MarkLeadDelivered(ctx, lead.ID, attempts, encodeRecord(rec)); markErr != nil {
				log.Printf("Warning: lead %d delivered but not recorded: %v", lead.ID, markErr)
			}
			log.Printf("Lead %d delivered to dealer %d on attempt %d", lead.ID, dealer.ID, attempts)
			return nil
		}

		lastRec = rec
		log.Printf("Warning: lead %d delivery attempt %d failed: %v", lead.ID, attempts, err)

		if attempts < maxAttempts {
			delay := s.cfg.Delivery.RetryDelay * time.Duration(attempts-lead.DeliveryAttempts)
			select {
			case <-ctx.Done():
				attempts-- // the next attempt never ran
				if markErr := s.store.MarkLeadDeliveryFailed(ctx, lead.ID, attempts, encodeRecord(lastRec)); markErr != nil {
					log.Printf("Warning: failed to mark lead %d delivery failed: %v", lead.ID, markErr)
				}
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if err := s.store.MarkLeadDeliveryFailed(ctx, lead.ID, attempts, encodeRecord(lastRec)); err != nil {
		log.Printf("Warning: failed to mark lead %d delivery failed: %v", lead.ID, err)
	}
	return fmt.Errorf("lead %d delivery failed after %d attempts", lead.ID, attempts)
}

func (s *DeliveryService) post(ctx context.Context, dealer *models.Dealer, envelope []byte) (*deliveryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", dealer.WebhookURL, bytes.NewReader(envelope))
	if err != nil {
		return &deliveryRecord{Error: err.Error()}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AutoLeadsDirectory/1.0")
	req.Header.Set("X-Lead-Source", "autoleadsdirectory.com")

	resp, err := s.client.Do(req)
	if err != nil {
		return &deliveryRecord{Error: err.Error()}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	rec := &deliveryRecord{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if strings.Contains(rec.Body, "<adf") || strings.Contains(rec.Body, "<status") {
		parsed := adf.ParseResponse(rec.Body)
		rec.ADF = &parsed
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rec, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return rec, nil
}

func encodeRecord(rec *deliveryRecord) []byte {
	if rec == nil {
		rec = &deliveryRecord{}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}

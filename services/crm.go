package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"auto_leads/config"
	"auto_leads/models"
)

// CRMStore is the slice of storage CRM sync writes through.
type CRMStore interface {
	GetVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
	MarkLeadCRMSynced(ctx context.Context, id int64, crmLeadID string) error
	MarkLeadCRMFailed(ctx context.Context, id int64) error
}

// CRMService mirrors leads into GoHighLevel as contacts, with a follow-up
// opportunity when the vehicle is known. Sync is a side channel: no API key
// means leads simply stay unsynced.
type CRMService struct {
	cfg    *config.Config
	store  CRMStore
	client *http.Client
}

func NewCRMService(cfg *config.Config, store CRMStore, client *http.Client) *CRMService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CRMService{cfg: cfg, store: store, client: client}
}

type crmContactPayload struct {
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Source       string            `json:"source"`
	Tags         []string          `json:"tags"`
	CustomFields map[string]string `json:"customFields"`
}

type crmContactResponse struct {
	ID      string `json:"id"`
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

func (s *CRMService) SyncLead(ctx context.Context, lead *models.Lead, dealer *models.Dealer) error {
	if s.cfg.CRM.APIKey == "" {
		log.Println("Warning: CRM API key not configured, skipping sync")
		return nil
	}

	vehicle, err := s.store.GetVehicleByVIN(ctx, lead.VehicleVIN)
	if err != nil {
		log.Printf("Warning: CRM sync lead %d: vehicle lookup failed: %v", lead.ID, err)
	}

	payload := crmContactPayload{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Source:    "Auto Leads Directory",
		Tags:      []string{"subprime-lead", "website-lead"},
		CustomFields: map[string]string{
			"lead_id":           strconv.FormatInt(lead.ID, 10),
			"dealer_id":         strconv.FormatInt(lead.DealerID, 10),
			"employment_status": lead.EmploymentStatus,
			"bankruptcy_status": lead.BankruptcyStatus,
			"vin":               lead.VehicleVIN,
		},
	}
	if lead.DownPaymentAvailable != nil {
		payload.CustomFields["down_payment_available"] = strconv.FormatFloat(*lead.DownPaymentAvailable, 'f', -1, 64)
	}
	if vehicle != nil {
		payload.CustomFields["vehicle_of_interest"] = fmt.Sprintf("%d %s %s", vehicle.Year, vehicle.Make, vehicle.Model)
	}

	var result crmContactResponse
	if err := s.postJSON(ctx, "/contacts", payload, &result); err != nil {
		if markErr := s.store.MarkLeadCRMFailed(ctx, lead.ID); markErr != nil {
			log.Printf("Warning: failed to mark lead %d CRM-failed: %v", lead.ID, markErr)
		}
		return fmt.Errorf("sync lead %d to CRM: %w", lead.ID, err)
	}

	crmLeadID := result.Contact.ID
	if crmLeadID == "" {
		crmLeadID = result.ID
	}
	if err := s.store.MarkLeadCRMSynced(ctx, lead.ID, crmLeadID); err != nil {
		log.Printf("Warning: lead %d synced to CRM but not recorded: %v", lead.ID, err)
	}
	log.Printf("Lead %d synced to CRM as contact %s", lead.ID, crmLeadID)

	// Opportunity creation is best effort; the contact already landed.
	if vehicle != nil && crmLeadID != "" {
		s.createOpportunity(ctx, crmLeadID, lead, vehicle)
	}
	return nil
}

func (s *CRMService) createOpportunity(ctx context.Context, contactID string, lead *models.Lead, vehicle *models.Vehicle) {
	value := 15000.0
	if vehicle.Price != nil {
		value = *vehicle.Price
	}
	payload := map[string]interface{}{
		"contactId":  contactID,
		"pipelineId": "default",
		"name": fmt.Sprintf("%d %s %s - %s %s",
			vehicle.Year, vehicle.Make, vehicle.Model, lead.FirstName, lead.LastName),
		"value":  value,
		"stage":  "New Lead",
		"source": "Auto Leads Directory",
	}

	if err := s.postJSON(ctx, "/opportunities", payload, nil); err != nil {
		log.Printf("Warning: failed to create CRM opportunity for contact %s: %v", contactID, err)
		return
	}
	log.Printf("Created CRM opportunity for contact %s", contactID)
}

func (s *CRMService) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.CRM.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.CRM.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("CRM API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode CRM response: %w", err)
		}
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"auto_leads/adf"
	"auto_leads/models"
)

// JobRunner runs side-channel work (delivery, CRM, email) off the intake
// path. Implementations track the job so shutdown can wait for it.
type JobRunner interface {
	Submit(name string, fn func(ctx context.Context) error)
}

// LeadStore is the slice of storage lead intake needs.
type LeadStore interface {
	GetDealer(ctx context.Context, id int64) (*models.Dealer, error)
	GetVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
	InsertLead(ctx context.Context, l *models.Lead) error
	SetLeadADF(ctx context.Context, id int64, adfXML string) error
	IncrementVehicleLeadsCount(ctx context.Context, dealerID int64, vin string) error
}

// LeadRequest is a shopper's submission for a specific vehicle.
type LeadRequest struct {
	VehicleVIN string `json:"vehicle_vin"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	EmploymentStatus     string   `json:"employment_status"`
	DownPaymentAvailable *float64 `json:"down_payment_available"`
	BankruptcyStatus     string   `json:"bankruptcy_status"`
	CreditScoreRange     string   `json:"credit_score_range"`

	PreferredContactMethod string `json:"preferred_contact_method"`
	PreferredContactTime   string `json:"preferred_contact_time"`
	Comments               string `json:"comments"`
	LeadSource             string `json:"lead_source"`
	LeadType               string `json:"lead_type"`
}

// LeadResult is what intake hands back to the caller.
type LeadResult struct {
	LeadID       int64  `json:"lead_id"`
	PublicID     string `json:"public_id"`
	Confirmation string `json:"confirmation_number"`
}

// LeadService takes shopper leads: persist, render ADF, then hand delivery,
// CRM sync and the confirmation email to background jobs. The lead is
// accepted the moment the row and its ADF document exist; everything after
// that is best effort and retried by the sweep workers.
type LeadService struct {
	store    LeadStore
	delivery *DeliveryService
	crm      *CRMService
	email    *EmailService
	jobs     JobRunner
}

func NewLeadService(store LeadStore, delivery *DeliveryService, crm *CRMService, email *EmailService, jobs JobRunner) *LeadService {
	return &LeadService{store: store, delivery: delivery, crm: crm, email: email, jobs: jobs}
}

func (s *LeadService) CreateLead(ctx context.Context, req *LeadRequest) (*LeadResult, error) {
	if req.VehicleVIN == "" {
		return nil, fmt.Errorf("vehicle VIN is required")
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("first and last name are required")
	}
	if req.Email == "" && req.Phone == "" {
		return nil, fmt.Errorf("email or phone is required")
	}

	vehicle, err := s.store.GetVehicleByVIN(ctx, req.VehicleVIN)
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, fmt.Errorf("vehicle %s not found", req.VehicleVIN)
	}

	dealer, err := s.store.GetDealer(ctx, vehicle.DealerID)
	if err != nil {
		return nil, fmt.Errorf("get dealer: %w", err)
	}
	if dealer == nil {
		return nil, fmt.Errorf("dealer %d not found", vehicle.DealerID)
	}

	lead := &models.Lead{
		PublicID:   uuid.New(),
		DealerID:   dealer.ID,
		VehicleVIN: vehicle.VIN,

		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,

		EmploymentStatus:     req.EmploymentStatus,
		DownPaymentAvailable: req.DownPaymentAvailable,
		BankruptcyStatus:     req.BankruptcyStatus,
		CreditScoreRange:     req.CreditScoreRange,

		PreferredContactMethod: defaultString(req.PreferredContactMethod, "phone"),
		PreferredContactTime:   req.PreferredContactTime,
		Comments:               req.Comments,
		LeadSource:             defaultString(req.LeadSource, "website"),
		LeadType:               defaultString(req.LeadType, "price_request"),
	}

	if err := s.store.InsertLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}

	lead.ADFXML = adf.Format(&adf.LeadData{
		LeadID: lead.ID,
		Customer: adf.Customer{
			FirstName: lead.FirstName,
			LastName:  lead.LastName,
			Email:     lead.Email,
			Phone:     lead.Phone,
		},
		Vehicle: adf.VehicleOfInterest{
			VIN:         vehicle.VIN,
			Year:        vehicle.Year,
			Make:        vehicle.Make,
			Model:       vehicle.Model,
			StockNumber: vehicle.StockNumber,
			Price:       vehicle.Price,
			Mileage:     vehicle.Mileage,
		},
		Dealer: dealer.Name,
		PreQual: adf.PreQualification{
			EmploymentStatus:       lead.EmploymentStatus,
			DownPaymentAvailable:   lead.DownPaymentAvailable,
			BankruptcyStatus:       lead.BankruptcyStatus,
			CreditScoreRange:       lead.CreditScoreRange,
			PreferredContactMethod: lead.PreferredContactMethod,
			PreferredContactTime:   lead.PreferredContactTime,
		},
		Comments: lead.Comments,
	})
	if err := s.store.SetLeadADF(ctx, lead.ID, lead.ADFXML); err != nil {
		return nil, fmt.Errorf("store ADF document: %w", err)
	}

	if err := s.store.IncrementVehicleLeadsCount(ctx, dealer.ID, vehicle.VIN); err != nil {
		log.Printf("Warning: failed to bump leads count for %s: %v", vehicle.VIN, err)
	}

	// Side channels run after the lead is durable; their failures never
	// bounce the shopper, the sweep workers pick up the pieces.
	leadCopy := *lead
	dealerCopy := *dealer
	vehicleCopy := *vehicle
	s.jobs.Submit(fmt.Sprintf("deliver_lead_%d", lead.ID), func(ctx context.Context) error {
		return s.delivery.Deliver(ctx, &leadCopy, &dealerCopy)
	})
	s.jobs.Submit(fmt.Sprintf("crm_sync_%d", lead.ID), func(ctx context.Context) error {
		return s.crm.SyncLead(ctx, &leadCopy, &dealerCopy)
	})
	s.jobs.Submit(fmt.Sprintf("lead_email_%d", lead.ID), func(ctx context.Context) error {
		return s.email.SendLeadConfirmation(ctx, &leadCopy, &vehicleCopy, &dealerCopy)
	})

	log.Printf("Lead %d created for dealer %d vehicle %s", lead.ID, dealer.ID, vehicle.VIN)
	return &LeadResult{
		LeadID:       lead.ID,
		PublicID:     lead.PublicID.String(),
		Confirmation: ConfirmationNumber(lead.ID),
	}, nil
}

// ConfirmationNumber is the shopper-facing reference for a lead.
func ConfirmationNumber(leadID int64) string {
	return fmt.Sprintf("AL%06d", leadID)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

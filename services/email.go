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

	"auto_leads/config"
	"auto_leads/models"
)

// EmailService sends the shopper their inquiry confirmation through
// SendGrid. Email is decoration on the lead pipeline: any failure is logged
// and swallowed.
type EmailService struct {
	cfg    *config.Config
	client *http.Client
}

func NewEmailService(cfg *config.Config, client *http.Client) *EmailService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EmailService{cfg: cfg, client: client}
}

type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To      []sendgridAddress `json:"to"`
	Subject string            `json:"subject"`
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *EmailService) SendLeadConfirmation(ctx context.Context, lead *models.Lead, vehicle *models.Vehicle, dealer *models.Dealer) error {
	if lead.Email == "" {
		return nil
	}
	if s.cfg.Email.APIKey == "" {
		log.Println("Warning: email API key not configured, skipping confirmation")
		return nil
	}

	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	vehicleDesc := fmt.Sprintf("%d %s %s", vehicle.Year, vehicle.Make, vehicle.Model)

	payload := sendgridPayload{
		Personalizations: []sendgridPersonalization{{
			To:      []sendgridAddress{{Email: lead.Email, Name: name}},
			Subject: "Your Vehicle Inquiry Confirmation - Auto Leads Directory",
		}},
		From: sendgridAddress{
			Email: s.cfg.Email.From,
			Name:  s.cfg.Email.FromName,
		},
		Content: []sendgridContent{{
			Type:  "text/html",
			Value: confirmationBody(name, vehicleDesc, dealer.Name, ConfirmationNumber(lead.ID)),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.Email.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Email.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	log.Printf("Confirmation email sent to %s for lead %d", lead.Email, lead.ID)
	return nil
}

func confirmationBody(name, vehicle, dealer, confirmation string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; color: #333;">`)
	fmt.Fprintf(&b, "<h2>Thank you, %s!</h2>", name)
	fmt.Fprintf(&b, "<p>We've received your inquiry about the <strong>%s</strong> from <strong>%s</strong>.</p>", vehicle, dealer)
	b.WriteString("<h3>What happens next?</h3><ul>")
	fmt.Fprintf(&b, "<li>A representative from %s will contact you within <strong>24-48 hours</strong></li>", dealer)
	b.WriteString("<li>They'll provide pricing information and answer any questions</li>")
	b.WriteString("<li>You can schedule a test drive and discuss financing options</li>")
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p><strong>Confirmation:</strong> %s</p>", confirmation)
	b.WriteString(`<p>If you don't hear from the dealer within 48 hours, contact us at <a href="mailto:support@autoleadsdirectory.com">support@autoleadsdirectory.com</a></p>`)
	b.WriteString("</body></html>")
	return b.String()
}

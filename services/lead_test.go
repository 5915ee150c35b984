package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_leads/models"
)

// syncRunner runs jobs inline so tests see their effects immediately.
type syncRunner struct {
	names []string
}

func (r *syncRunner) Submit(name string, fn func(ctx context.Context) error) {
	r.names = append(r.names, name)
	fn(context.Background())
}

type fakeLeadStore struct {
	dealer  *models.Dealer
	vehicle *models.Vehicle

	inserted   *models.Lead
	adfXML     string
	bumpedVIN  string
	deliveries deliveryRecorder
}

func (s *fakeLeadStore) GetDealer(ctx context.Context, id int64) (*models.Dealer, error) {
	if s.dealer == nil || s.dealer.ID != id {
		return nil, nil
	}
	return s.dealer, nil
}

func (s *fakeLeadStore) GetVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error) {
	if s.vehicle == nil || s.vehicle.VIN != vin {
		return nil, nil
	}
	return s.vehicle, nil
}

func (s *fakeLeadStore) InsertLead(ctx context.Context, l *models.Lead) error {
	l.ID = 42
	copied := *l
	s.inserted = &copied
	return nil
}

func (s *fakeLeadStore) SetLeadADF(ctx context.Context, id int64, adfXML string) error {
	s.adfXML = adfXML
	return nil
}

func (s *fakeLeadStore) IncrementVehicleLeadsCount(ctx context.Context, dealerID int64, vin string) error {
	s.bumpedVIN = vin
	return nil
}

func (s *fakeLeadStore) MarkLeadDelivered(ctx context.Context, id int64, attempts int, response []byte) error {
	return s.deliveries.MarkLeadDelivered(ctx, id, attempts, response)
}

func (s *fakeLeadStore) MarkLeadDeliveryFailed(ctx context.Context, id int64, attempts int, response []byte) error {
	return s.deliveries.MarkLeadDeliveryFailed(ctx, id, attempts, response)
}

func leadTestFixtures(webhookURL string) (*fakeLeadStore, *LeadRequest) {
	price := 16995.0
	store := &fakeLeadStore{
		dealer: &models.Dealer{
			ID:         1,
			Name:       "Sunrise Auto Sales",
			WebhookURL: webhookURL,
		},
		vehicle: &models.Vehicle{
			ID:       10,
			DealerID: 1,
			VIN:      "2HGFC2F59KH512345",
			Year:     2019,
			Make:     "Honda",
			Model:    "Civic",
			Price:    &price,
		},
	}
	req := &LeadRequest{
		VehicleVIN:       "2HGFC2F59KH512345",
		FirstName:        "Maria",
		LastName:         "O'Brien",
		Email:            "maria@example.com",
		Phone:            "5125551234",
		EmploymentStatus: "employed_full_time",
	}
	return store, req
}

func newTestLeadService(store *fakeLeadStore, client *http.Client, jobs JobRunner) *LeadService {
	cfg := deliveryConfig()
	delivery := NewDeliveryService(cfg, store, client)
	crm := NewCRMService(cfg, nil, client)     // no API key, sync is a no-op
	email := NewEmailService(cfg, client)      // no API key, email is a no-op
	return NewLeadService(store, delivery, crm, email, jobs)
}

func TestCreateLead(t *testing.T) {
	var webhookCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&webhookCalls, 1)
	}))
	defer srv.Close()

	store, req := leadTestFixtures(srv.URL)
	jobs := &syncRunner{}
	svc := newTestLeadService(store, srv.Client(), jobs)

	result, err := svc.CreateLead(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(42), result.LeadID)
	assert.Equal(t, "AL000042", result.Confirmation)
	assert.NotEmpty(t, result.PublicID)

	require.NotNil(t, store.inserted)
	assert.Equal(t, "Maria", store.inserted.FirstName)
	assert.Equal(t, "website", store.inserted.LeadSource)
	assert.Equal(t, "price_request", store.inserted.LeadType)
	assert.Equal(t, "phone", store.inserted.PreferredContactMethod)

	assert.Contains(t, store.adfXML, "<vin>2HGFC2F59KH512345</vin>")
	assert.Contains(t, store.adfXML, `<name part="last">O&apos;Brien</name>`)
	assert.Contains(t, store.adfXML, "<vendorname>Sunrise Auto Sales</vendorname>")

	assert.Equal(t, "2HGFC2F59KH512345", store.bumpedVIN)

	// delivery, CRM sync and confirmation email all go through the runner
	require.Len(t, jobs.names, 3)
	assert.EqualValues(t, 1, atomic.LoadInt32(&webhookCalls))
	assert.Equal(t, int64(42), store.deliveries.deliveredID)
}

func TestCreateLeadValidation(t *testing.T) {
	store, _ := leadTestFixtures("")
	svc := newTestLeadService(store, nil, &syncRunner{})

	cases := []struct {
		name string
		req  LeadRequest
	}{
		{"missing VIN", LeadRequest{FirstName: "A", LastName: "B", Email: "a@b.c"}},
		{"missing name", LeadRequest{VehicleVIN: "2HGFC2F59KH512345", Email: "a@b.c"}},
		{"missing contact", LeadRequest{VehicleVIN: "2HGFC2F59KH512345", FirstName: "A", LastName: "B"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateLead(context.Background(), &tc.req)
			require.Error(t, err)
			assert.Nil(t, store.inserted)
		})
	}
}

func TestCreateLeadUnknownVehicle(t *testing.T) {
	store, req := leadTestFixtures("")
	req.VehicleVIN = "1FTFW1ET5DFC00000"
	svc := newTestLeadService(store, nil, &syncRunner{})

	_, err := svc.CreateLead(context.Background(), req)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}

// A dead webhook must not bounce the shopper; the lead stays accepted and
// marked for the retry sweep.
func TestCreateLeadSurvivesDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store, req := leadTestFixtures(srv.URL)
	svc := newTestLeadService(store, srv.Client(), &syncRunner{})

	result, err := svc.CreateLead(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "AL000042", result.Confirmation)
	assert.Equal(t, int64(42), store.deliveries.failedID)
}

func TestConfirmationNumber(t *testing.T) {
	assert.Equal(t, "AL000007", ConfirmationNumber(7))
	assert.Equal(t, "AL123456", ConfirmationNumber(123456))
	assert.Equal(t, "AL1234567", ConfirmationNumber(1234567))
}

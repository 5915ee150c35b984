package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_leads/config"
	"auto_leads/models"
)

type deliveryRecorder struct {
	deliveredID       int64
	deliveredAttempts int
	deliveredResponse []byte
	failedID          int64
	failedAttempts    int
}

func (r *deliveryRecorder) MarkLeadDelivered(ctx context.Context, id int64, attempts int, response []byte) error {
	r.deliveredID = id
	r.deliveredAttempts = attempts
	r.deliveredResponse = response
	return nil
}

func (r *deliveryRecorder) MarkLeadDeliveryFailed(ctx context.Context, id int64, attempts int, response []byte) error {
	r.failedID = id
	r.failedAttempts = attempts
	return nil
}

func deliveryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Delivery.MaxAttempts = 3
	cfg.Delivery.RetryDelay = time.Millisecond
	return cfg
}

func testLead() *models.Lead {
	return &models.Lead{
		ID:       7,
		PublicID: uuid.New(),
		DealerID: 1,
		ADFXML:   "<adf>...</adf>",
	}
}

func TestDeliverSuccess(t *testing.T) {
	var gotEnvelope map[string]interface{}
	var gotUA, gotSource string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotSource = r.Header.Get("X-Lead-Source")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnvelope))
		fmt.Fprint(w, `<adf><status>accepted</status><leadid>crm-991</leadid></adf>`)
	}))
	defer srv.Close()

	rec := &deliveryRecorder{}
	svc := NewDeliveryService(deliveryConfig(), rec, srv.Client())
	lead := testLead()
	dealer := &models.Dealer{ID: 1, WebhookURL: srv.URL}

	require.NoError(t, svc.Deliver(context.Background(), lead, dealer))

	assert.Equal(t, lead.ID, rec.deliveredID)
	assert.Equal(t, 1, rec.deliveredAttempts)
	assert.Equal(t, "AutoLeadsDirectory/1.0", gotUA)
	assert.NotEmpty(t, gotSource)

	assert.Equal(t, "adf", gotEnvelope["format"])
	assert.Equal(t, lead.ADFXML, gotEnvelope["data"])
	assert.Equal(t, lead.PublicID.String(), gotEnvelope["lead_id"])
	assert.NotEmpty(t, gotEnvelope["timestamp"])

	var stored deliveryRecord
	require.NoError(t, json.Unmarshal(rec.deliveredResponse, &stored))
	require.NotNil(t, stored.ADF)
	assert.Equal(t, "accepted", stored.ADF.Status)
	assert.Equal(t, "crm-991", stored.ADF.LeadID)
}

func TestDeliverRetriesUntilExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := &deliveryRecorder{}
	svc := NewDeliveryService(deliveryConfig(), rec, srv.Client())

	err := svc.Deliver(context.Background(), testLead(), &models.Dealer{ID: 1, WebhookURL: srv.URL})
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, 3, rec.failedAttempts)
}

// A retried lead keeps its lifetime attempt count; a sweep retry gets only
// the budget that intake left over.
func TestDeliverAttemptsAreCumulative(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &deliveryRecorder{}
	svc := NewDeliveryService(deliveryConfig(), rec, srv.Client())
	lead := testLead()
	lead.DeliveryAttempts = 2

	err := svc.Deliver(context.Background(), lead, &models.Dealer{ID: 1, WebhookURL: srv.URL})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, 3, rec.failedAttempts)
}

func TestDeliverRefusesExhaustedLead(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	svc := NewDeliveryService(deliveryConfig(), &deliveryRecorder{}, srv.Client())
	lead := testLead()
	lead.DeliveryAttempts = 3

	err := svc.Deliver(context.Background(), lead, &models.Dealer{ID: 1, WebhookURL: srv.URL})
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDeliverWithoutWebhookFailsLead(t *testing.T) {
	rec := &deliveryRecorder{}
	svc := NewDeliveryService(deliveryConfig(), rec, nil)
	lead := testLead()

	err := svc.Deliver(context.Background(), lead, &models.Dealer{ID: 1})
	require.Error(t, err)
	assert.Equal(t, lead.ID, rec.failedID)
}

func TestDeliverRecoversOnSecondAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &deliveryRecorder{}
	svc := NewDeliveryService(deliveryConfig(), rec, srv.Client())

	require.NoError(t, svc.Deliver(context.Background(), testLead(), &models.Dealer{ID: 1, WebhookURL: srv.URL}))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, rec.deliveredAttempts)
}

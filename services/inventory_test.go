package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_leads/models"
)

type fakeVehicleStore struct {
	existing map[string]*models.Vehicle

	inserted  []*models.Vehicle
	updated   []*models.Vehicle
	delistReq []string
	delisted  int64
	refreshed bool
}

func (s *fakeVehicleStore) GetDealerVehicle(ctx context.Context, dealerID int64, vin string) (*models.Vehicle, error) {
	return s.existing[vin], nil
}

func (s *fakeVehicleStore) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	v.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, v)
	return nil
}

func (s *fakeVehicleStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	s.updated = append(s.updated, v)
	return nil
}

func (s *fakeVehicleStore) MarkAbsentVehiclesUnavailable(ctx context.Context, dealerID int64, seenVINs []string) (int64, error) {
	s.delistReq = append([]string(nil), seenVINs...)
	return s.delisted, nil
}

func (s *fakeVehicleStore) RefreshDealerVehicleCount(ctx context.Context, dealerID int64) error {
	s.refreshed = true
	return nil
}

func TestProcessVehicleInsertsNew(t *testing.T) {
	store := &fakeVehicleStore{}
	svc := NewInventoryService(store, nil)

	price := 16995.0
	result, err := svc.ProcessVehicle(context.Background(), 1, &models.ScrapedVehicle{
		VIN:   "2HGFC2F59KH512345",
		Year:  2019,
		Make:  "Honda",
		Model: "Civic",
		Price: &price,
	})
	require.NoError(t, err)
	assert.True(t, result.IsNew)
	require.Len(t, store.inserted, 1)

	v := store.inserted[0]
	assert.True(t, v.IsAvailable)
	assert.NotNil(t, v.LastScrapedAt)
	require.NotNil(t, v.DownPayment)
	assert.InDelta(t, 1699.5, *v.DownPayment, 0.01)
}

func TestProcessVehicleUpdatesExisting(t *testing.T) {
	store := &fakeVehicleStore{existing: map[string]*models.Vehicle{
		"2HGFC2F59KH512345": {ID: 9, DealerID: 1, VIN: "2HGFC2F59KH512345"},
	}}
	svc := NewInventoryService(store, nil)

	result, err := svc.ProcessVehicle(context.Background(), 1, &models.ScrapedVehicle{
		VIN:   "2HGFC2F59KH512345",
		Year:  2019,
		Make:  "Honda",
		Model: "Civic",
	})
	require.NoError(t, err)
	assert.False(t, result.IsNew)
	assert.Equal(t, int64(9), result.VehicleID)
	require.Len(t, store.updated, 1)
	assert.Equal(t, int64(9), store.updated[0].ID)
}

func TestProcessVehicleRequiresVIN(t *testing.T) {
	svc := NewInventoryService(&fakeVehicleStore{}, nil)
	_, err := svc.ProcessVehicle(context.Background(), 1, &models.ScrapedVehicle{Make: "Honda", Model: "Civic"})
	require.Error(t, err)
}

func TestReconcileDelistsAbsent(t *testing.T) {
	store := &fakeVehicleStore{delisted: 4}
	svc := NewInventoryService(store, nil)

	delisted, err := svc.Reconcile(context.Background(), 1, []string{"VIN1", "VIN2"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), delisted)
	assert.Equal(t, []string{"VIN1", "VIN2"}, store.delistReq)
	assert.True(t, store.refreshed)
}

// An empty scrape is treated as a scrape failure, not an empty lot: nothing
// gets delisted.
func TestReconcileSkipsDelistOnEmptyScrape(t *testing.T) {
	store := &fakeVehicleStore{delisted: 99}
	svc := NewInventoryService(store, nil)

	delisted, err := svc.Reconcile(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Zero(t, delisted)
	assert.Nil(t, store.delistReq)
	assert.True(t, store.refreshed)
}

func TestDefaultDownPayment(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	cases := []struct {
		name  string
		price *float64
		want  float64
	}{
		{"ten percent", price(12000), 1200},
		{"capped at 2000", price(45000), 2000},
		{"exact cap boundary", price(20000), 2000},
		{"unknown price", nil, 1000},
		{"zero price", price(0), 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, DefaultDownPayment(tc.price), 0.01)
		})
	}
}

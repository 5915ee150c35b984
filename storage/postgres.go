package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auto_leads/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Dealers
// =============================================================================

const dealerColumns = `id, name, slug, email, phone, city, website_url, inventory_url, webhook_url,
	is_active, scraping_enabled, scraping_config, vehicle_count, created_at, updated_at`

func scanDealer(row pgx.Row) (*models.Dealer, error) {
	var d models.Dealer
	err := row.Scan(
		&d.ID, &d.Name, &d.Slug, &d.Email, &d.Phone, &d.City, &d.WebsiteURL, &d.InventoryURL, &d.WebhookURL,
		&d.IsActive, &d.ScrapingEnabled, &d.Scraping, &d.VehicleCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) GetDealer(ctx context.Context, id int64) (*models.Dealer, error) {
	query := `SELECT ` + dealerColumns + ` FROM dealers WHERE id = $1`
	return scanDealer(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetDealerBySlug(ctx context.Context, slug string) (*models.Dealer, error) {
	query := `SELECT ` + dealerColumns + ` FROM dealers WHERE slug = $1`
	return scanDealer(s.pool.QueryRow(ctx, query, slug))
}

func (s *PostgresStore) ListScrapableDealers(ctx context.Context) ([]models.Dealer, error) {
	query := `SELECT ` + dealerColumns + ` FROM dealers
		WHERE is_active = TRUE AND scraping_enabled = TRUE
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dealers []models.Dealer
	for rows.Next() {
		var d models.Dealer
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Slug, &d.Email, &d.Phone, &d.City, &d.WebsiteURL, &d.InventoryURL, &d.WebhookURL,
			&d.IsActive, &d.ScrapingEnabled, &d.Scraping, &d.VehicleCount, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		dealers = append(dealers, d)
	}
	return dealers, rows.Err()
}

func (s *PostgresStore) RefreshDealerVehicleCount(ctx context.Context, dealerID int64) error {
	query := `
		UPDATE dealers SET
			vehicle_count = (SELECT COUNT(*) FROM vehicles WHERE dealer_id = $1 AND is_available = TRUE),
			updated_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, dealerID)
	return err
}

// =============================================================================
// Vehicles
// =============================================================================

const vehicleColumns = `id, dealer_id, vin, year, make, model, trim, price, down_payment, mileage,
	stock_number, exterior_color, interior_color, transmission, engine, source_url, photos,
	is_available, leads_count, last_scraped_at, created_at, updated_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(
		&v.ID, &v.DealerID, &v.VIN, &v.Year, &v.Make, &v.Model, &v.Trim, &v.Price, &v.DownPayment, &v.Mileage,
		&v.StockNumber, &v.ExteriorColor, &v.InteriorColor, &v.Transmission, &v.Engine, &v.SourceURL, &v.Photos,
		&v.IsAvailable, &v.LeadsCount, &v.LastScrapedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) GetDealerVehicle(ctx context.Context, dealerID int64, vin string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE dealer_id = $1 AND vin = $2`
	return scanVehicle(s.pool.QueryRow(ctx, query, dealerID, vin))
}

func (s *PostgresStore) GetVehicleByVIN(ctx context.Context, vin string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vin = $1 ORDER BY is_available DESC LIMIT 1`
	return scanVehicle(s.pool.QueryRow(ctx, query, vin))
}

func (s *PostgresStore) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			dealer_id, vin, year, make, model, trim, price, down_payment, mileage,
			stock_number, exterior_color, interior_color, transmission, engine,
			source_url, photos, is_available, last_scraped_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, TRUE, $17, NOW(), NOW()
		)
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, query,
		v.DealerID, v.VIN, v.Year, v.Make, v.Model, v.Trim, v.Price, v.DownPayment, v.Mileage,
		v.StockNumber, v.ExteriorColor, v.InteriorColor, v.Transmission, v.Engine,
		v.SourceURL, v.Photos, v.LastScrapedAt,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// UpdateVehicle refreshes mutable listing fields for an existing row and
// flips it back to available. Absent optional fields keep their stored
// values.
func (s *PostgresStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehicles SET
			year = COALESCE(NULLIF($3, 0), year),
			make = COALESCE(NULLIF($4, ''), make),
			model = COALESCE(NULLIF($5, ''), model),
			trim = COALESCE(NULLIF($6, ''), trim),
			price = COALESCE($7, price),
			down_payment = COALESCE($8, down_payment),
			mileage = COALESCE($9, mileage),
			stock_number = COALESCE(NULLIF($10, ''), stock_number),
			exterior_color = COALESCE(NULLIF($11, ''), exterior_color),
			interior_color = COALESCE(NULLIF($12, ''), interior_color),
			transmission = COALESCE(NULLIF($13, ''), transmission),
			engine = COALESCE(NULLIF($14, ''), engine),
			source_url = COALESCE(NULLIF($15, ''), source_url),
			photos = CASE WHEN $16::jsonb IS NOT NULL AND $16::jsonb != '[]'::jsonb THEN $16::jsonb ELSE photos END,
			is_available = TRUE,
			last_scraped_at = $17,
			updated_at = NOW()
		WHERE dealer_id = $1 AND vin = $2`

	_, err := s.pool.Exec(ctx, query,
		v.DealerID, v.VIN, v.Year, v.Make, v.Model, v.Trim, v.Price, v.DownPayment, v.Mileage,
		v.StockNumber, v.ExteriorColor, v.InteriorColor, v.Transmission, v.Engine,
		v.SourceURL, v.Photos, v.LastScrapedAt,
	)
	return err
}

// MarkAbsentVehiclesUnavailable soft-delists every available vehicle of the
// dealer whose VIN was not seen in the current scrape. Returns the number of
// rows delisted.
func (s *PostgresStore) MarkAbsentVehiclesUnavailable(ctx context.Context, dealerID int64, seenVINs []string) (int64, error) {
	query := `
		UPDATE vehicles SET is_available = FALSE, updated_at = NOW()
		WHERE dealer_id = $1 AND is_available = TRUE AND NOT (vin = ANY($2))`

	tag, err := s.pool.Exec(ctx, query, dealerID, seenVINs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) IncrementVehicleLeadsCount(ctx context.Context, dealerID int64, vin string) error {
	query := `UPDATE vehicles SET leads_count = leads_count + 1, updated_at = NOW() WHERE dealer_id = $1 AND vin = $2`
	_, err := s.pool.Exec(ctx, query, dealerID, vin)
	return err
}

// =============================================================================
// Leads
// =============================================================================

const leadColumns = `id, public_id, dealer_id, vehicle_vin, first_name, last_name, email, phone,
	employment_status, down_payment_available, bankruptcy_status, credit_score_range,
	preferred_contact_method, preferred_contact_time, comments, lead_source, lead_type, adf_xml,
	delivery_status, delivery_attempts, delivery_response, last_delivery_attempt, delivered_at,
	crm_sync_status, crm_lead_id, crm_synced_at, created_at, updated_at`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	err := row.Scan(
		&l.ID, &l.PublicID, &l.DealerID, &l.VehicleVIN, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&l.EmploymentStatus, &l.DownPaymentAvailable, &l.BankruptcyStatus, &l.CreditScoreRange,
		&l.PreferredContactMethod, &l.PreferredContactTime, &l.Comments, &l.LeadSource, &l.LeadType, &l.ADFXML,
		&l.DeliveryStatus, &l.DeliveryAttempts, &l.DeliveryResponse, &l.LastDeliveryAttempt, &l.DeliveredAt,
		&l.CRMSyncStatus, &l.CRMLeadID, &l.CRMSyncedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, l *models.Lead) error {
	query := `
		INSERT INTO leads (
			public_id, dealer_id, vehicle_vin, first_name, last_name, email, phone,
			employment_status, down_payment_available, bankruptcy_status, credit_score_range,
			preferred_contact_method, preferred_contact_time, comments, lead_source, lead_type,
			delivery_status, crm_sync_status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			'pending', 'pending', NOW(), NOW()
		)
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, query,
		l.PublicID, l.DealerID, l.VehicleVIN, l.FirstName, l.LastName, l.Email, l.Phone,
		l.EmploymentStatus, l.DownPaymentAvailable, l.BankruptcyStatus, l.CreditScoreRange,
		l.PreferredContactMethod, l.PreferredContactTime, l.Comments, l.LeadSource, l.LeadType,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) SetLeadADF(ctx context.Context, id int64, adfXML string) error {
	query := `UPDATE leads SET adf_xml = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, adfXML)
	return err
}

func (s *PostgresStore) MarkLeadDelivered(ctx context.Context, id int64, attempts int, response []byte) error {
	query := `
		UPDATE leads SET
			delivery_status = 'delivered', delivery_attempts = $2, delivery_response = $3,
			last_delivery_attempt = NOW(), delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, attempts, response)
	return err
}

func (s *PostgresStore) MarkLeadDeliveryFailed(ctx context.Context, id int64, attempts int, response []byte) error {
	query := `
		UPDATE leads SET
			delivery_status = 'failed', delivery_attempts = $2, delivery_response = $3,
			last_delivery_attempt = NOW(), updated_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, attempts, response)
	return err
}

func (s *PostgresStore) MarkLeadCRMSynced(ctx context.Context, id int64, crmLeadID string) error {
	query := `
		UPDATE leads SET
			crm_sync_status = 'synced', crm_lead_id = $2, crm_synced_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, crmLeadID)
	return err
}

func (s *PostgresStore) MarkLeadCRMFailed(ctx context.Context, id int64) error {
	query := `UPDATE leads SET crm_sync_status = 'failed', updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	return err
}

// GetFailedDeliveries returns recently failed leads that still have retry
// budget, oldest first.
func (s *PostgresStore) GetFailedDeliveries(ctx context.Context, window time.Duration, maxAttempts, limit int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE delivery_status = 'failed' AND delivery_attempts < $2 AND created_at > $1
		ORDER BY created_at
		LIMIT $3`

	return s.queryLeads(ctx, query, time.Now().Add(-window), maxAttempts, limit)
}

func (s *PostgresStore) GetFailedCRMSyncs(ctx context.Context, window time.Duration, limit int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE crm_sync_status = 'failed' AND created_at > $1
		ORDER BY created_at
		LIMIT $2`

	return s.queryLeads(ctx, query, time.Now().Add(-window), limit)
}

func (s *PostgresStore) queryLeads(ctx context.Context, query string, args ...interface{}) ([]models.Lead, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(
			&l.ID, &l.PublicID, &l.DealerID, &l.VehicleVIN, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
			&l.EmploymentStatus, &l.DownPaymentAvailable, &l.BankruptcyStatus, &l.CreditScoreRange,
			&l.PreferredContactMethod, &l.PreferredContactTime, &l.Comments, &l.LeadSource, &l.LeadType, &l.ADFXML,
			&l.DeliveryStatus, &l.DeliveryAttempts, &l.DeliveryResponse, &l.LastDeliveryAttempt, &l.DeliveredAt,
			&l.CRMSyncStatus, &l.CRMLeadID, &l.CRMSyncedAt, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// =============================================================================
// Scrape logs
// =============================================================================

func (s *PostgresStore) CreateScrapeLog(ctx context.Context, sl *models.ScrapeLog) error {
	query := `
		INSERT INTO scrape_logs (dealer_id, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, sl.DealerID, sl.Status, sl.StartedAt).Scan(&sl.ID)
}

func (s *PostgresStore) UpdateScrapeLog(ctx context.Context, sl *models.ScrapeLog) error {
	query := `
		UPDATE scrape_logs SET
			status = $2, vehicles_found = $3, vehicles_added = $4, vehicles_updated = $5,
			error_message = $6, completed_at = $7, duration_ms = $8
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		sl.ID, sl.Status, sl.VehiclesFound, sl.VehiclesAdded, sl.VehiclesUpdated,
		sl.ErrorMessage, sl.CompletedAt, sl.DurationMS,
	)
	return err
}

// =============================================================================
// Photos
// =============================================================================

func (s *PostgresStore) UpsertPhoto(ctx context.Context, p *models.Photo) error {
	query := `
		INSERT INTO photos (id, dealer_id, vehicle_vin, original_url, position, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (original_url) DO UPDATE SET position = EXCLUDED.position
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		p.ID, p.DealerID, p.VehicleVIN, p.OriginalURL, p.Position, p.Status, p.Attempts, p.CreatedAt,
	).Scan(&p.ID)
}

func (s *PostgresStore) GetPendingPhotos(ctx context.Context, limit int) ([]models.Photo, error) {
	query := `
		SELECT id, dealer_id, vehicle_vin, original_url, s3_key, content_hash, position, status, attempts, created_at
		FROM photos
		WHERE status = 'pending' AND attempts < 3
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(
			&p.ID, &p.DealerID, &p.VehicleVIN, &p.OriginalURL, &p.S3Key, &p.ContentHash,
			&p.Position, &p.Status, &p.Attempts, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *PostgresStore) UpdatePhotoStatus(ctx context.Context, id uuid.UUID, status models.PhotoStatus, s3Key *string, contentHash string, attempts int) error {
	query := `UPDATE photos SET status = $2, s3_key = COALESCE($3, s3_key), content_hash = COALESCE(NULLIF($4, ''), content_hash), attempts = $5 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, s3Key, contentHash, attempts)
	return err
}

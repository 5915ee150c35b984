package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"auto_leads/models"
)

// PhotoSweepStore is the slice of storage the photo worker needs.
type PhotoSweepStore interface {
	GetPendingPhotos(ctx context.Context, limit int) ([]models.Photo, error)
	UpdatePhotoStatus(ctx context.Context, id uuid.UUID, status models.PhotoStatus, s3Key *string, contentHash string, attempts int) error
}

// Uploader pushes photo bytes to S3-compatible storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// PhotoWorker downloads queued vehicle photos, hashes them, and mirrors
// them to object storage so listings don't depend on dealer CDNs.
type PhotoWorker struct {
	store      PhotoSweepStore
	uploader   Uploader
	httpClient *http.Client
	trigger    chan struct{}
}

func NewPhotoWorker(store PhotoSweepStore, uploader Uploader) *PhotoWorker {
	return &PhotoWorker{
		store:      store,
		uploader:   uploader,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an immediate batch outside the ticker cadence.
func (w *PhotoWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the photo worker loop.
func (w *PhotoWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Photo worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *PhotoWorker) processBatch(ctx context.Context, batchSize int) {
	photos, err := w.store.GetPendingPhotos(ctx, batchSize)
	if err != nil {
		log.Printf("Photo worker: query error: %v", err)
		return
	}
	if len(photos) == 0 {
		return
	}

	log.Printf("Photo worker: processing %d photos", len(photos))

	var uploaded, failed int
	for i := range photos {
		p := &photos[i]

		s3Key, hash, err := w.process(ctx, p)
		if err != nil {
			log.Printf("Photo worker: failed %s: %v", p.OriginalURL, err)
			failed++

			newAttempts := p.Attempts + 1
			status := models.PhotoStatusPending
			if newAttempts >= 3 {
				status = models.PhotoStatusFailed
			}
			w.store.UpdatePhotoStatus(ctx, p.ID, status, nil, "", newAttempts)
			continue
		}

		if err := w.store.UpdatePhotoStatus(ctx, p.ID, models.PhotoStatusUploaded, &s3Key, hash, p.Attempts); err != nil {
			log.Printf("Photo worker: failed to update %s: %v", p.ID, err)
			failed++
			continue
		}
		uploaded++

		// Rate limit between downloads
		time.Sleep(200 * time.Millisecond)
	}

	if uploaded > 0 || failed > 0 {
		log.Printf("Photo worker: uploaded %d, failed %d", uploaded, failed)
	}
}

// process downloads one photo and uploads it under a content-addressed
// key, so the same image shared across listings is stored once.
func (w *PhotoWorker) process(ctx context.Context, p *models.Photo) (s3Key, contentHash string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.OriginalURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}

	hash := sha256.Sum256(data)
	contentHash = hex.EncodeToString(hash[:])

	ext := guessExtension(p.OriginalURL, resp.Header.Get("Content-Type"))
	s3Key = fmt.Sprintf("photos/%s/%s%s", contentHash[:2], contentHash, ext)

	if w.uploader != nil {
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		if err := w.uploader.Upload(ctx, s3Key, bytes.NewReader(data), contentType); err != nil {
			return "", "", fmt.Errorf("upload: %w", err)
		}
	}

	return s3Key, contentHash, nil
}

func guessExtension(url, contentType string) string {
	ext := strings.ToLower(path.Ext(url))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if isImageExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".avif":
		return true
	}
	return false
}

// NoOpUploader skips the actual upload; useful without S3 credentials.
type NoOpUploader struct{}

func (u *NoOpUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	io.Copy(io.Discard, data)
	return nil
}

func NewNoOpUploader() *NoOpUploader {
	return &NoOpUploader{}
}

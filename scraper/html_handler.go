package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auto_leads/httputil"
	"auto_leads/identity"
	"auto_leads/models"
	"auto_leads/normalize"
)

const (
	minSanePrice  = 5000
	maxSanePrice  = 100000
	maxCandidates = 20
	priceWindow   = 600 // bytes of context around a price token
)

// PageRenderer produces the HTML of a page after JavaScript ran. Dealers
// flagged requires_js go through it instead of a plain GET.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// HTMLFallback scrapes dealers without a capture bot straight off their
// inventory page: structured data (JSON-LD) when present, otherwise
// price-anchored text heuristics.
type HTMLFallback struct {
	clients  *httputil.Clients
	renderer PageRenderer
}

func NewHTMLFallback(clients *httputil.Clients, renderer PageRenderer) *HTMLFallback {
	return &HTMLFallback{clients: clients, renderer: renderer}
}

func (s *HTMLFallback) Name() string {
	return "html_fallback"
}

func (s *HTMLFallback) Fetch(ctx context.Context, dealer *models.Dealer) ([]models.ScrapedVehicle, error) {
	pageURL := dealer.InventoryPage()
	if pageURL == "" {
		return nil, &DealerNotScrapableError{DealerID: dealer.ID, Reason: "no inventory URL configured"}
	}

	var html string
	var err error
	if dealer.Scraping.RequiresJS && s.renderer != nil {
		html, err = s.renderer.Render(ctx, pageURL)
	} else {
		html, err = s.fetchPage(ctx, pageURL)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	return s.Extract(html, pageURL), nil
}

func (s *HTMLFallback) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	httputil.BrowserHeaders(req)

	resp, err := s.clients.Scraping.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Extract pulls vehicle candidates out of raw page HTML. JSON-LD wins when
// a page has it; the text pass is the last resort and is capped to avoid
// flooding inventory with junk from a misread page.
func (s *HTMLFallback) Extract(html, pageURL string) []models.ScrapedVehicle {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if vehicles := extractJSONLD(doc, pageURL); len(vehicles) > 0 {
			log.Printf("HTML fallback: %d vehicles from JSON-LD", len(vehicles))
			return vehicles
		}
	}

	vehicles := extractFromText(html, pageURL)
	log.Printf("HTML fallback: %d vehicles from text heuristics", len(vehicles))
	return vehicles
}

type jsonLDVehicle struct {
	Type                        interface{} `json:"@type"`
	Name                        string      `json:"name"`
	VehicleIdentificationNumber string      `json:"vehicleIdentificationNumber"`
	Image                       interface{} `json:"image"`
	URL                         string      `json:"url"`
	Offers                      struct {
		Price interface{} `json:"price"`
	} `json:"offers"`
	MileageFromOdometer struct {
		Value interface{} `json:"value"`
	} `json:"mileageFromOdometer"`
}

func extractJSONLD(doc *goquery.Document, pageURL string) []models.ScrapedVehicle {
	var vehicles []models.ScrapedVehicle

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var nodes []json.RawMessage
		if strings.HasPrefix(raw, "[") {
			if json.Unmarshal([]byte(raw), &nodes) != nil {
				return
			}
		} else {
			nodes = []json.RawMessage{json.RawMessage(raw)}
		}

		for _, node := range nodes {
			var item jsonLDVehicle
			if json.Unmarshal(node, &item) != nil {
				continue
			}
			if !isVehicleType(item.Type) {
				continue
			}

			d, ok := normalize.ParseDescription(item.Name)
			if !ok {
				continue
			}

			v := models.ScrapedVehicle{
				Year:      d.Year,
				Make:      d.Make,
				Model:     d.Model,
				Trim:      d.Trim,
				VIN:       identity.NormalizeVIN(item.VehicleIdentificationNumber),
				Price:     normalize.ParsePrice(item.Offers.Price),
				Mileage:   normalize.ParseMileage(item.MileageFromOdometer.Value),
				Photos:    normalize.NormalizePhotos(item.Image),
				SourceURL: item.URL,
			}
			if v.VIN == "" {
				v.VIN = identity.SyntheticVIN()
			}
			if v.SourceURL == "" {
				v.SourceURL = pageURL
			}
			vehicles = append(vehicles, v)
		}
	})

	return vehicles
}

func isVehicleType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Car" || v == "Vehicle"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && (s == "Car" || s == "Vehicle") {
				return true
			}
		}
	}
	return false
}

var (
	currencyRe = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*|\d+)`)
	mileageRe  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*)\s*(?:miles?|mi)\b`)
	stockRe    = regexp.MustCompile(`(?i)(?:stock|stk)\s*[#:]?\s*([A-Za-z0-9][A-Za-z0-9-]+)`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// extractFromText scans for currency tokens with a sane used-car price and
// reads the surrounding text window for a year, make and model. Duplicate
// windows (same vehicle, price repeated in markup) collapse to one
// candidate.
func extractFromText(html, pageURL string) []models.ScrapedVehicle {
	var vehicles []models.ScrapedVehicle
	seen := make(map[string]bool)

	for _, loc := range currencyRe.FindAllStringIndex(html, -1) {
		price := normalize.ParsePrice(html[loc[0]:loc[1]])
		if price == nil || *price < minSanePrice || *price > maxSanePrice {
			continue
		}

		start := loc[0] - priceWindow
		if start < 0 {
			start = 0
		}
		end := loc[1] + priceWindow
		if end > len(html) {
			end = len(html)
		}
		window := stripMarkup(html[start:end])

		d, ok := normalize.ParseDescription(window)
		if !ok || d.Model == "" {
			continue
		}

		key := fmt.Sprintf("%d|%s|%s|%.0f", d.Year, d.Make, d.Model, *price)
		if seen[key] {
			continue
		}
		seen[key] = true

		v := models.ScrapedVehicle{
			VIN:       identity.SyntheticVIN(),
			Year:      d.Year,
			Make:      d.Make,
			Model:     d.Model,
			Trim:      d.Trim,
			Price:     price,
			SourceURL: pageURL,
		}
		if m := mileageRe.FindStringSubmatch(window); m != nil {
			v.Mileage = normalize.ParseMileage(m[1])
		}
		if m := stockRe.FindStringSubmatch(window); m != nil {
			v.StockNumber = m[1]
		}

		vehicles = append(vehicles, v)
		if len(vehicles) >= maxCandidates {
			break
		}
	}

	return vehicles
}

func stripMarkup(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

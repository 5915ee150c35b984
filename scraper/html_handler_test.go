package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadPage(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	return string(data)
}

func TestExtractJSONLD(t *testing.T) {
	fallback := NewHTMLFallback(nil, nil)
	html := loadPage(t, "inventory_jsonld.html")

	vehicles := fallback.Extract(html, "https://www.sunriseautosales.com/inventory")
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}

	civic := vehicles[0]
	if civic.Year != 2019 || civic.Make != "Honda" || civic.Model != "Civic" {
		t.Errorf("unexpected first vehicle: %d %s %s", civic.Year, civic.Make, civic.Model)
	}
	if civic.VIN != "2HGFC2F59KH512345" {
		t.Errorf("expected normalized VIN, got %q", civic.VIN)
	}
	if civic.Price == nil || *civic.Price != 16995 {
		t.Errorf("unexpected price: %v", civic.Price)
	}
	if civic.Mileage == nil || *civic.Mileage != 42350 {
		t.Errorf("unexpected mileage: %v", civic.Mileage)
	}
	if len(civic.Photos) != 2 {
		t.Errorf("expected 2 photos, got %d", len(civic.Photos))
	}
	if civic.SourceURL != "https://www.sunriseautosales.com/inventory/2019-honda-civic" {
		t.Errorf("unexpected source URL: %s", civic.SourceURL)
	}

	escape := vehicles[1]
	if escape.Make != "Ford" || escape.Model != "Escape" {
		t.Errorf("unexpected second vehicle: %s %s", escape.Make, escape.Model)
	}
	if escape.VIN == "" {
		t.Error("expected a synthetic VIN for vehicle without one")
	}
	if escape.SourceURL != "https://www.sunriseautosales.com/inventory" {
		t.Errorf("expected page URL as source, got %s", escape.SourceURL)
	}
}

func TestExtractFromText(t *testing.T) {
	fallback := NewHTMLFallback(nil, nil)
	html := loadPage(t, "inventory_text.html")

	vehicles := fallback.Extract(html, "https://hillsidemotors.example/inventory")
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}

	camry := vehicles[0]
	if camry.Year != 2018 || camry.Make != "Toyota" || camry.Model != "Camry" {
		t.Errorf("unexpected first vehicle: %d %s %s", camry.Year, camry.Make, camry.Model)
	}
	if camry.Price == nil || *camry.Price != 15995 {
		t.Errorf("unexpected price: %v", camry.Price)
	}
	if camry.Mileage == nil || *camry.Mileage != 45123 {
		t.Errorf("unexpected mileage: %v", camry.Mileage)
	}
	if camry.StockNumber != "A1234" {
		t.Errorf("unexpected stock number: %q", camry.StockNumber)
	}
	if camry.VIN == "" {
		t.Error("expected a synthetic VIN")
	}

	malibu := vehicles[1]
	if malibu.Year != 2016 || malibu.Make != "Chevrolet" || malibu.Model != "Malibu" {
		t.Errorf("unexpected second vehicle: %d %s %s", malibu.Year, malibu.Make, malibu.Model)
	}
	if malibu.StockNumber != "B5678" {
		t.Errorf("unexpected stock number: %q", malibu.StockNumber)
	}
}

// The $99-down promo and the $250,000 lease in the fixture must never
// produce inventory.
func TestExtractFromTextIgnoresImplausiblePrices(t *testing.T) {
	fallback := NewHTMLFallback(nil, nil)
	html := loadPage(t, "inventory_text.html")

	for _, v := range fallback.Extract(html, "https://hillsidemotors.example/inventory") {
		if v.Price == nil {
			continue
		}
		if *v.Price < minSanePrice || *v.Price > maxSanePrice {
			t.Errorf("extracted implausible price %v for %s %s", *v.Price, v.Make, v.Model)
		}
	}
}

func TestExtractCapsCandidates(t *testing.T) {
	fallback := NewHTMLFallback(nil, nil)

	var html string
	for i := 0; i < 40; i++ {
		html += pad(i)
	}

	vehicles := fallback.Extract(html, "https://example.com")
	if len(vehicles) > maxCandidates {
		t.Fatalf("expected at most %d candidates, got %d", maxCandidates, len(vehicles))
	}
}

// pad emits one listing card followed by enough filler markup to keep
// price windows from bleeding into neighbouring cards.
func pad(i int) string {
	filler := fmt.Sprintf("<div class=%q data-filler=%q></div>", "spacer", strings.Repeat("x", 700))
	return fmt.Sprintf("<div class=%q>%d Honda Accord LX <span>$%d</span></div>%s",
		"card", 2010+(i%10), 8000+i*137, filler)
}

package normalize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func loadRecords(t *testing.T, name string) []RawRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	var recs []RawRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return recs
}

func TestMapRecordWithMapping(t *testing.T) {
	recs := loadRecords(t, "captured_records.json")

	mapping := map[string]string{"description": "Title"}
	v, ok := MapRecord(recs[0], mapping)
	if !ok {
		t.Fatal("expected record to map")
	}
	if v.Year != 2015 || v.Make != "Honda" || v.Model != "Civic" || v.Trim != "LX" {
		t.Errorf("title parse mismatch: %+v", v)
	}
	if v.VIN != "2HGFB2F5XFH509999" {
		t.Errorf("unexpected vin: %s", v.VIN)
	}
	if v.Price == nil || *v.Price != 12995 {
		t.Errorf("unexpected price: %v", v.Price)
	}
	if v.Mileage == nil || *v.Mileage != 45000 {
		t.Errorf("unexpected mileage: %v", v.Mileage)
	}
	if v.StockNumber != "P4821" {
		t.Errorf("unexpected stock number: %s", v.StockNumber)
	}
	if v.ExteriorColor != "Crystal Black Pearl" {
		t.Errorf("unexpected color: %s", v.ExteriorColor)
	}
	if len(v.Photos) != 2 {
		t.Errorf("placeholder photo not filtered: %v", v.Photos)
	}
}

func TestMapRecordFallbackKeys(t *testing.T) {
	recs := loadRecords(t, "captured_records.json")

	v, ok := MapRecord(recs[1], nil)
	if !ok {
		t.Fatal("expected record to map")
	}
	if v.Year != 2018 || v.Make != "Jeep" || v.Model != "Grand Cherokee" {
		t.Errorf("fallback extraction mismatch: %+v", v)
	}
	if v.Price == nil || *v.Price != 23500 {
		t.Errorf("unexpected price: %v", v.Price)
	}
	if v.Mileage == nil || *v.Mileage != 61250 {
		t.Errorf("unexpected mileage: %v", v.Mileage)
	}
	if v.StockNumber != "J1182" {
		t.Errorf("unexpected stock number: %s", v.StockNumber)
	}
	if len(v.Photos) != 1 {
		t.Errorf("single string photo not normalized: %v", v.Photos)
	}
}

func TestMapRecordRejectsNonVehicle(t *testing.T) {
	recs := loadRecords(t, "captured_records.json")
	if _, ok := MapRecord(recs[2], nil); ok {
		t.Error("marketing row should not map to a vehicle")
	}
}

func TestMapRecordRejectsIncompleteVehicle(t *testing.T) {
	cases := map[string]RawRecord{
		"missing year":  {"make": "Honda", "model": "Accord", "price": "$12,995"},
		"missing make":  {"year": 2019, "model": "Accord"},
		"missing model": {"year": 2019, "make": "Honda"},
	}
	for name, rec := range cases {
		if _, ok := MapRecord(rec, nil); ok {
			t.Errorf("%s: record should not map to a vehicle", name)
		}
	}
}

func TestNormalizePhotos(t *testing.T) {
	got := NormalizePhotos([]interface{}{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/onepix.png",
		"https://cdn.example.com/placeholder-vehicle.jpg",
		map[string]interface{}{"src": "https://cdn.example.com/b.jpg"},
		"/relative/path.jpg",
		"  ",
	})
	want := []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}
	if len(got) != len(want) {
		t.Fatalf("expected %d photos, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("photo %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if got := NormalizePhotos("https://cdn.example.com/only.jpg"); len(got) != 1 {
		t.Errorf("single string photo not normalized: %v", got)
	}
	if got := NormalizePhotos(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
}

func TestParsePrice(t *testing.T) {
	if p := ParsePrice("$8,450"); p == nil || *p != 8450 {
		t.Errorf("unexpected: %v", p)
	}
	if p := ParsePrice(float64(9999)); p == nil || *p != 9999 {
		t.Errorf("unexpected: %v", p)
	}
	if p := ParsePrice("From $12,995 USD"); p == nil || *p != 12995 {
		t.Errorf("surrounding text should be stripped, got %v", p)
	}
	if p := ParsePrice("call for price"); p != nil {
		t.Errorf("expected nil, got %v", p)
	}
	if p := ParsePrice("$0"); p != nil {
		t.Errorf("expected nil for zero price, got %v", p)
	}
}

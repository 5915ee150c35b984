package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"auto_leads/models"
)

// RawRecord is one row captured from a dealer site, keys as the source
// named them.
type RawRecord map[string]interface{}

// Fallback key candidates per canonical field, tried in order when the
// dealer's field mapping doesn't name a key (or the named key is absent).
var fieldFallbacks = map[string][]string{
	"vin":            {"vin", "vin_number"},
	"year":           {"year", "model_year", "yr"},
	"make":           {"make", "brand", "manufacturer"},
	"model":          {"model", "model_name"},
	"trim":           {"trim", "trim_level"},
	"price":          {"price", "cost", "amount"},
	"mileage":        {"mileage", "miles", "odometer"},
	"stock_number":   {"stock_number", "stock", "sku"},
	"exterior_color": {"exterior_color", "color", "ext_color"},
	"interior_color": {"interior_color", "int_color"},
	"transmission":   {"transmission", "trans"},
	"engine":         {"engine", "motor"},
	"url":            {"url", "link", "href", "detail_url"},
	"photos":         {"photos", "images", "pictures", "gallery", "Image", "image", "photo", "picture", "img"},
	"description":    {"Vehicle Info", "description", "title", "name", "vehicle", "car", "listing"},
}

// MapRecord converts a captured row into a ScrapedVehicle using the
// dealer's field mapping with generic fallbacks. A free-text title field is
// parsed for year/make/model/trim when the structured fields are missing.
// Returns false when no year, make, or model could be recovered.
func MapRecord(rec RawRecord, mapping map[string]string) (*models.ScrapedVehicle, bool) {
	v := &models.ScrapedVehicle{}

	if s := asString(extract(rec, mapping, "description")); LooksLikeVehicleInfo(s) {
		if d, ok := ParseDescription(s); ok {
			v.Year = d.Year
			v.Make = d.Make
			v.Model = d.Model
			v.Trim = d.Trim
		}
	} else {
		// captures sometimes put the title under an arbitrary column name
		for _, val := range rec {
			s, ok := val.(string)
			if !ok || !LooksLikeVehicleInfo(s) {
				continue
			}
			if d, ok := ParseDescription(s); ok {
				v.Year = d.Year
				v.Make = d.Make
				v.Model = d.Model
				v.Trim = d.Trim
				break
			}
		}
	}

	if v.Year == 0 {
		v.Year = asYear(extract(rec, mapping, "year"))
	}
	if s := asString(extract(rec, mapping, "make")); s != "" {
		v.Make = s
	}
	if s := asString(extract(rec, mapping, "model")); s != "" {
		v.Model = s
	}
	if s := asString(extract(rec, mapping, "trim")); s != "" {
		v.Trim = s
	}

	v.VIN = asString(extract(rec, mapping, "vin"))
	v.Price = ParsePrice(extract(rec, mapping, "price"))
	v.Mileage = ParseMileage(extract(rec, mapping, "mileage"))
	v.StockNumber = asString(extract(rec, mapping, "stock_number"))
	v.ExteriorColor = asString(extract(rec, mapping, "exterior_color"))
	v.InteriorColor = asString(extract(rec, mapping, "interior_color"))
	v.Transmission = asString(extract(rec, mapping, "transmission"))
	v.Engine = asString(extract(rec, mapping, "engine"))
	v.SourceURL = asString(extract(rec, mapping, "url"))
	v.Photos = NormalizePhotos(extract(rec, mapping, "photos"))

	if v.Year == 0 || v.Make == "" || v.Model == "" {
		return nil, false
	}
	return v, true
}

func extract(rec RawRecord, mapping map[string]string, field string) interface{} {
	if mapping != nil {
		if key, ok := mapping[field]; ok && key != "" {
			if val, ok := rec[key]; ok && val != nil {
				return val
			}
		}
	}
	for _, key := range fieldFallbacks[field] {
		if val, ok := rec[key]; ok && val != nil {
			return val
		}
	}
	// capture bots are inconsistent about key casing ("Price", "VIN")
	lowered := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		lowered[strings.ToLower(k)] = v
	}
	for _, key := range fieldFallbacks[field] {
		if val, ok := lowered[strings.ToLower(key)]; ok && val != nil {
			return val
		}
	}
	return nil
}

var nonNumericRe = regexp.MustCompile(`[^0-9.]`)
var digitsRe = regexp.MustCompile(`\d+`)

// ParsePrice coerces a raw price value (number or "$12,995") to a float.
// Everything except digits and the decimal point is stripped first, so
// currency markers and surrounding text don't lose the price.
// Non-positive and unparseable values map to nil.
func ParsePrice(val interface{}) *float64 {
	switch p := val.(type) {
	case float64:
		if p > 0 {
			return &p
		}
	case int:
		if p > 0 {
			f := float64(p)
			return &f
		}
	case string:
		s := nonNumericRe.ReplaceAllString(p, "")
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return &f
		}
	}
	return nil
}

// ParseMileage coerces a raw mileage value (number or "45,000 miles").
func ParseMileage(val interface{}) *int {
	switch m := val.(type) {
	case float64:
		if m > 0 {
			n := int(m)
			return &n
		}
	case int:
		if m > 0 {
			return &m
		}
	case string:
		s := strings.ReplaceAll(m, ",", "")
		if d := digitsRe.FindString(s); d != "" {
			if n, err := strconv.Atoi(d); err == nil && n > 0 {
				return &n
			}
		}
	}
	return nil
}

// NormalizePhotos flattens a raw photo value (single URL or list) into a
// slice of usable URLs, dropping tracking pixels and placeholder art.
func NormalizePhotos(val interface{}) []string {
	var photos []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || !strings.HasPrefix(u, "http") {
			return
		}
		lower := strings.ToLower(u)
		if strings.Contains(lower, "onepix.png") || strings.Contains(lower, "placeholder") {
			return
		}
		photos = append(photos, u)
	}

	switch p := val.(type) {
	case string:
		add(p)
	case []string:
		for _, u := range p {
			add(u)
		}
	case []interface{}:
		for _, item := range p {
			if u, ok := item.(string); ok {
				add(u)
			} else if m, ok := item.(map[string]interface{}); ok {
				// some captures wrap photos as {"src": "..."} objects
				for _, key := range []string{"src", "url", "href"} {
					if u, ok := m[key].(string); ok {
						add(u)
						break
					}
				}
			}
		}
	}
	return photos
}

func asString(val interface{}) string {
	switch s := val.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	}
	return ""
}

func asYear(val interface{}) int {
	switch y := val.(type) {
	case float64:
		return validYear(int(y))
	case int:
		return validYear(y)
	case string:
		return FindYear(y)
	}
	return 0
}

func validYear(y int) int {
	if y >= 1900 && y <= 2100 {
		return y
	}
	return 0
}

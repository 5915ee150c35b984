package identity

import "testing"

func TestSyntheticVIN(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		vin := SyntheticVIN()
		if len(vin) != 17 {
			t.Fatalf("expected 17 chars, got %d (%s)", len(vin), vin)
		}
		if !IsPlausibleVIN(vin) {
			t.Fatalf("generated VIN outside alphabet: %s", vin)
		}
		if seen[vin] {
			t.Fatalf("duplicate VIN in 100 draws: %s", vin)
		}
		seen[vin] = true
	}
}

func TestIsPlausibleVIN(t *testing.T) {
	cases := []struct {
		vin string
		ok  bool
	}{
		{"1HGBH41JXMN109186", true},
		{"1HGBH41JXMN10918", false},  // too short
		{"1HGBH41JXMN1091860", false}, // too long
		{"1HGBH41JXMN10918O", false},  // O not in alphabet
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPlausibleVIN(tc.vin); got != tc.ok {
			t.Errorf("IsPlausibleVIN(%q) = %v, want %v", tc.vin, got, tc.ok)
		}
	}
}

func TestNormalizeVIN(t *testing.T) {
	if got := NormalizeVIN("  1hgbh41jxmn109186 "); got != "1HGBH41JXMN109186" {
		t.Errorf("unexpected normalization: %s", got)
	}
}

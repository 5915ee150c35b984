package identity

import (
	"crypto/rand"
	"strings"
)

// VIN alphabet excludes I, O and Q like real VINs.
const vinAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

const vinLength = 17

// SyntheticVIN generates a random placeholder VIN for scraped vehicles
// whose source never exposes one. Uniqueness is probabilistic: a collision
// surfaces as a constraint error on insert and fails only that record.
func SyntheticVIN() string {
	buf := make([]byte, vinLength)
	if _, err := rand.Read(buf); err != nil {
		panic("identity: rand.Read failed: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = vinAlphabet[int(b)%len(vinAlphabet)]
	}
	return string(buf)
}

// NormalizeVIN uppercases and trims a VIN-ish string.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// IsPlausibleVIN reports whether vin has the standard 17-char shape.
func IsPlausibleVIN(vin string) bool {
	if len(vin) != vinLength {
		return false
	}
	for _, r := range vin {
		if !strings.ContainsRune(vinAlphabet, r) {
			return false
		}
	}
	return true
}

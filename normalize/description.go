package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// makes we recognize in free-text listing titles. Order matters only for
// canonical casing; matching is case-insensitive on word boundaries.
var makes = []string{
	"Audi", "BMW", "Buick", "Cadillac", "Chevrolet", "Chrysler", "Dodge",
	"Ford", "GMC", "Honda", "Hyundai", "Infiniti", "Jeep", "Kia", "Lexus",
	"Lincoln", "Mazda", "Mercedes", "Mitsubishi", "Nissan", "Ram", "Subaru",
	"Toyota", "Volkswagen", "Volvo", "Acura",
}

// Models whose names span two words. Checked before the generic
// second-word heuristic so "Grand Cherokee Limited" splits correctly.
var multiWordModels = []string{
	"Outlander Sport", "Range Rover", "Continental Flying", "Town Country",
	"Grand Cherokee", "Grand Caravan", "Santa Fe", "Land Cruiser",
}

// Common trim abbreviations. A second capitalized word that matches one of
// these is a trim level, not part of the model name.
var trimAbbrevRe = regexp.MustCompile(`^(SE|LE|LX|EX|LT|LS|SL|S|L|XL)$`)

var makeRe = regexp.MustCompile(`(?i)\b(` + strings.Join(makes, "|") + `)\b`)

// Description is the result of parsing a free-text vehicle title like
// "2015 Honda Civic LX - Low Mileage!".
type Description struct {
	Year  int
	Make  string
	Model string
	Trim  string
}

// LooksLikeVehicleInfo reports whether s is plausibly a vehicle title:
// long enough, contains a model year and a known make.
func LooksLikeVehicleInfo(s string) bool {
	return len(s) > 10 && yearRe.MatchString(s) && makeRe.MatchString(s)
}

// ParseDescription extracts year, make, model and trim from a free-text
// vehicle string. Returns false when no year or no known make is present.
func ParseDescription(s string) (Description, bool) {
	var d Description

	if y := yearRe.FindString(s); y != "" {
		d.Year, _ = strconv.Atoi(y)
	}

	loc := makeRe.FindStringIndex(s)
	if loc == nil || d.Year == 0 {
		return d, false
	}
	d.Make = canonicalMake(s[loc[0]:loc[1]])

	rest := strings.TrimLeft(s[loc[1]:], " -")
	words := strings.Fields(rest)
	// Mercedes-Benz titles leave a dangling "Benz" token after the match
	if len(words) > 0 && strings.EqualFold(words[0], "benz") {
		words = words[1:]
	}
	words = trimNoise(words)
	if len(words) == 0 {
		return d, true
	}

	for _, mw := range multiWordModels {
		parts := strings.Fields(mw)
		if len(words) >= len(parts) && strings.EqualFold(strings.Join(words[:len(parts)], " "), mw) {
			d.Model = mw
			d.Trim = strings.Join(trimNoise(words[len(parts):]), " ")
			return d, true
		}
	}

	d.Model = words[0]
	words = words[1:]
	if len(words) > 0 && isCapitalized(words[0]) && !trimAbbrevRe.MatchString(words[0]) {
		d.Model += " " + words[0]
		words = words[1:]
	}
	d.Trim = strings.Join(trimNoise(words), " ")
	return d, true
}

func canonicalMake(found string) string {
	for _, m := range makes {
		if strings.EqualFold(m, found) {
			return m
		}
	}
	return found
}

// trimNoise drops trailing marketing junk: tokens after a separator like
// "-", "|", "!" or a price token end the useful portion of the title.
func trimNoise(words []string) []string {
	out := words[:0:0]
	for _, w := range words {
		if w == "-" || w == "|" || w == "–" || strings.HasPrefix(w, "$") {
			break
		}
		w = strings.Trim(w, ",.!")
		if w == "" {
			break
		}
		out = append(out, w)
	}
	return out
}

func isCapitalized(w string) bool {
	return len(w) > 0 && w[0] >= 'A' && w[0] <= 'Z'
}

// FindYear returns the first plausible model year in s, or 0.
func FindYear(s string) int {
	if y := yearRe.FindString(s); y != "" {
		n, _ := strconv.Atoi(y)
		return n
	}
	return 0
}

// FindMake returns the first known make in s with canonical casing, or "".
func FindMake(s string) string {
	if m := makeRe.FindString(s); m != "" {
		return canonicalMake(m)
	}
	return ""
}

// Package parser decides whether a chat message is a battery-pack
// specification or a follow-up question. A miss is a routing signal, never
// an error: anything that does not parse cleanly belongs to the chat path.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/YichunLL/gGPT/internal/domain"
)

// numberPattern matches the first plain or scientific-notation number in a
// run of text, with or without units attached.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`)

// delimiterReplacer folds the alternate separators bilingual input arrives
// with onto the plain comma: full-width comma, ideographic comma, semicolon
// (full-width and ASCII), and pipe.
var delimiterReplacer = strings.NewReplacer("，", ",", "、", ",", "；", ",", ";", ",", "|", ",")

// fieldKeywords are the accepted labels of the five pack-spec quantities, in
// length, width, height, energy, voltage order. Each field also matches a
// looser alternate so phrasing like "60 kwh capacity" still resolves;
// "voltage" covers "total voltage" as a substring.
var fieldKeywords = [5][]string{
	{"length", "long"},
	{"width", "wide"},
	{"height", "tall"},
	{"energy", "capacity"},
	{"voltage"},
}

// Classify reports whether text is a pack specification and, if so, returns
// the extracted values. Labeled quantities win over the positional form; the
// positional form requires exactly five comma-separated finite numbers.
func Classify(text string) (domain.PackSpec, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return domain.PackSpec{}, false
	}
	if spec, ok := labeled(normalized); ok {
		return spec, true
	}
	return positional(normalized)
}

// normalize trims and lowercases text and funnels the alternate delimiters
// into plain commas so both extraction passes see one canonical shape.
func normalize(text string) string {
	return delimiterReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// labeled extracts one value per field, taking the first number after the
// field's earliest keyword occurrence. All five fields must resolve.
func labeled(normalized string) (domain.PackSpec, bool) {
	var values [5]float64
	for i, keywords := range fieldKeywords {
		v, ok := labeledValue(normalized, keywords)
		if !ok {
			return domain.PackSpec{}, false
		}
		values[i] = v
	}
	return packSpecFrom(values), true
}

// labeledValue locates the earliest occurrence of any of the field's
// keywords and parses the first number anywhere after it. Keywords match as
// bare substrings: recall is preferred over word boundaries for loose and
// bilingual phrasing.
func labeledValue(normalized string, keywords []string) (float64, bool) {
	at, end := -1, 0
	for _, keyword := range keywords {
		if idx := strings.Index(normalized, keyword); idx >= 0 && (at < 0 || idx < at) {
			at, end = idx, idx+len(keyword)
		}
	}
	if at < 0 {
		return 0, false
	}
	match := numberPattern.FindString(normalized[end:])
	if match == "" {
		return 0, false
	}
	return parseFinite(match)
}

// positional splits the normalized text on commas and accepts only exactly
// five finite numbers in length, width, height, energy, voltage order.
func positional(normalized string) (domain.PackSpec, bool) {
	pieces := strings.Split(normalized, ",")
	if len(pieces) != 5 {
		return domain.PackSpec{}, false
	}
	var values [5]float64
	for i, piece := range pieces {
		v, ok := parseFinite(strings.TrimSpace(piece))
		if !ok {
			return domain.PackSpec{}, false
		}
		values[i] = v
	}
	return packSpecFrom(values), true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func packSpecFrom(values [5]float64) domain.PackSpec {
	return domain.PackSpec{
		PackLength:   values[0],
		PackWidth:    values[1],
		PackHeight:   values[2],
		Energy:       values[3],
		TotalVoltage: values[4],
	}
}

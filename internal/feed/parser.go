package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sebhoos/iss-illumination/internal/transform"
)

// document mirrors the open-notify iss-now payload:
//
//	{"message": "success", "timestamp": 1729370000,
//	 "iss_position": {"longitude": "6.0000", "latitude": "51.0000"}}
type document struct {
	Message  string                     `json:"message"`
	Position map[string]json.RawMessage `json:"iss_position"`
}

// ParsePosition decodes a feed document into a GeoPoint. Coordinates may be
// string-encoded floats (as open-notify sends them) or plain JSON numbers.
// Every failure is a *ParseError.
func ParsePosition(raw []byte) (transform.GeoPoint, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return transform.GeoPoint{}, &ParseError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if doc.Message != "" && doc.Message != "success" {
		return transform.GeoPoint{}, &ParseError{Field: "message", Err: fmt.Errorf("feed reported %q", doc.Message)}
	}
	if doc.Position == nil {
		return transform.GeoPoint{}, &ParseError{Field: "iss_position", Err: errors.New("missing")}
	}

	lat, err := coordinate(doc.Position, "latitude")
	if err != nil {
		return transform.GeoPoint{}, err
	}
	lon, err := coordinate(doc.Position, "longitude")
	if err != nil {
		return transform.GeoPoint{}, err
	}

	return transform.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func coordinate(fields map[string]json.RawMessage, key string) (float64, error) {
	field := "iss_position." + key

	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return 0, &ParseError{Field: field, Err: errors.New("missing")}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		// Not a string; accept a bare number.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, &ParseError{Field: field, Err: fmt.Errorf("expected number or numeric string, got %s", raw)}
		}
		text = n.String()
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Err: fmt.Errorf("non-finite value %q", text)}
	}
	return v, nil
}

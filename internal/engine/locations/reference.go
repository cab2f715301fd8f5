package locations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

// DefaultReferencePath is where the US zip code table ships.
const DefaultReferencePath = "data/zip_code/uszips.xlsx"

var requiredColumns = []string{"state_name", "state_id", "city", "zip"}

// LoadReference reads the zip code table from an .xlsx (first sheet) or .csv
// file. Columns are found by header name; lat and lng are optional.
func LoadReference(path string) ([]model.LocationRow, error) {
	t, err := export.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference table: %w", err)
	}
	return ParseReference(t)
}

// ParseReference converts an already loaded table.
func ParseReference(t export.Table) ([]model.LocationRow, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("reference table has no %q column", col)}
		}
	}
	latIdx, hasLat := idx["lat"]
	lngIdx, hasLng := idx["lng"]

	rows := make([]model.LocationRow, 0, len(t.Rows))
	for _, rec := range t.Rows {
		r := model.LocationRow{
			StateName: strings.TrimSpace(rec[idx["state_name"]]),
			StateID:   strings.TrimSpace(rec[idx["state_id"]]),
			City:      strings.TrimSpace(rec[idx["city"]]),
			Zip:       NormalizeZip(rec[idx["zip"]]),
		}
		if hasLat && hasLng {
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
			lng, errLng := strconv.ParseFloat(strings.TrimSpace(rec[lngIdx]), 64)
			if errLat == nil && errLng == nil {
				r.Lat, r.Lng, r.HasCoords = lat, lng, true
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// NormalizeZip restores leading zeros spreadsheets drop from numeric zips,
// so 501 becomes "00501". Anything non-numeric is returned trimmed.
func NormalizeZip(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if s == "" || len(s) >= 5 {
		return s
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return s
		}
	}
	return strings.Repeat("0", 5-len(s)) + s
}

// Package locations turns the zip code reference table into fan-out search inputs.
package locations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/tctsung/google-maps-scraper/internal/model"
)

// ConfigurationError reports input that makes a fan-out run impossible.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Filter selects reference rows. Cities and StateIDs are ANDed when both are
// set; at least one is required. Near and RadiusKm narrow further.
type Filter struct {
	Cities   []string
	StateIDs []string
	Near     *orb.Point // [lng, lat]
	RadiusKm float64
}

// Expand builds one SearchInput per matching row, in table order.
func Expand(rows []model.LocationRow, keyword string, f Filter) ([]model.SearchInput, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, &ConfigurationError{Reason: "search keyword is required"}
	}
	cities := foldSet(f.Cities)
	states := foldSet(f.StateIDs)
	if len(cities) == 0 && len(states) == 0 {
		return nil, &ConfigurationError{Reason: "at least one city or state_id filter is required"}
	}
	radius := f.Near != nil && f.RadiusKm > 0

	var inputs []model.SearchInput
	for _, r := range rows {
		if len(cities) > 0 && !cities[fold(r.City)] {
			continue
		}
		if len(states) > 0 && !states[fold(r.StateID)] {
			continue
		}
		if radius && !within(r, *f.Near, f.RadiusKm) {
			continue
		}
		inputs = append(inputs, model.SearchInput{
			StateName: strings.TrimSpace(r.StateName),
			StateID:   strings.TrimSpace(r.StateID),
			City:      strings.TrimSpace(r.City),
			Zip:       strings.TrimSpace(r.Zip),
			Keyword:   keyword,
		})
	}
	if len(inputs) == 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("no location matches city=%v state_id=%v", f.Cities, f.StateIDs)}
	}
	return inputs, nil
}

// ParseList splits "Los Angeles, San Diego" into trimmed, non-empty items.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func within(r model.LocationRow, center orb.Point, km float64) bool {
	if !r.HasCoords {
		return false
	}
	return geo.DistanceHaversine(center, orb.Point{r.Lng, r.Lat}) <= km*1000
}

// Casers are stateful; build one per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func foldSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		if k := fold(it); k != "" {
			set[k] = true
		}
	}
	return set
}

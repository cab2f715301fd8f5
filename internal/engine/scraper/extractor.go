package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

var errNoMatch = errors.New("no element matched")

// textField maps one string column to its locator. Absent fields are set to "".
type textField struct {
	name    string
	locator string
	set     func(b *model.Business, v string)
}

var textFields = []textField{
	{"address", AddressSelector, func(b *model.Business, v string) { b.Address = v }},
	{"website", WebsiteSelector, func(b *model.Business, v string) { b.Website = v }},
	{"phone_number", PhoneSelector, func(b *model.Business, v string) { b.PhoneNumber = v }},
	{"category", CategorySelector, func(b *model.Business, v string) { b.Category = v }},
	{"price", PriceSelector, func(b *model.Business, v string) { b.Price = v }},
}

// Extract reads one opened place panel into a Business. index is the
// listing's position in discovery order and only labels errors.
// Any failure returns an *ExtractionError and no partial Business.
func Extract(ctx context.Context, page browser.Page, index int) (model.Business, error) {
	var b model.Business
	fail := func(field string, err error) (model.Business, error) {
		return model.Business{}, &ExtractionError{Index: index, Field: field, Err: err}
	}

	title, err := page.Title(ctx)
	if err != nil {
		return fail("name", err)
	}
	name, _, _ := strings.Cut(title, " - ")
	b.Name = strings.TrimSpace(name)
	if b.Name == "" {
		return fail("name", fmt.Errorf("empty page title %q", title))
	}

	for _, f := range textFields {
		v, ok, err := firstText(ctx, page, f.locator)
		if err != nil {
			return fail(f.name, err)
		}
		if !ok {
			v = ""
		}
		f.set(&b, v)
	}

	avgText, ok, err := firstText(ctx, page, ReviewsAverageSelector)
	if err != nil {
		return fail("reviews_average", err)
	}
	if ok {
		avg, err := ParseRating(avgText)
		if err != nil {
			return fail("reviews_average", err)
		}
		countText, ok, err := firstText(ctx, page, ReviewsCountSelector)
		if err != nil {
			return fail("reviews_count", err)
		}
		if !ok {
			return fail("reviews_count", errNoMatch)
		}
		count, err := ParseReviewCount(countText)
		if err != nil {
			return fail("reviews_count", err)
		}
		b.ReviewsAverage = &avg
		b.ReviewsCount = &count
	}

	link, err := page.URL(ctx)
	if err != nil {
		return fail("link", err)
	}
	b.Link = link

	return b, nil
}

// firstText returns the text of the first element matching locator.
func firstText(ctx context.Context, page browser.Page, locator string) (string, bool, error) {
	elems, err := page.FindAll(ctx, locator)
	if err != nil {
		return "", false, err
	}
	if len(elems) == 0 {
		return "", false, nil
	}
	text, err := elems[0].Text(ctx)
	if err != nil {
		return "", false, fmt.Errorf("reading text: %w", err)
	}
	return strings.TrimSpace(text), true, nil
}

// ParseRating parses a star average such as "4.6" or "4,6".
func ParseRating(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing rating %q: %w", s, err)
	}
	if v < 0 || v > 5 {
		return 0, fmt.Errorf("rating %v outside 0-5", v)
	}
	return v, nil
}

// ParseReviewCount turns "(8,822)" into 8822.
func ParseReviewCount(s string) (int, error) {
	cleaned := strings.Trim(strings.TrimSpace(s), "()")
	cleaned = strings.NewReplacer(",", "", ".", "", " ", "", "\u00a0", "", "\u202f", "").Replace(cleaned)
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parsing review count %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative review count %d", n)
	}
	return n, nil
}

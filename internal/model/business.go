package model

import (
	"strconv"
	"strings"
	"time"
)

// Business represents one listing extracted from a Google Maps place panel.
// ReviewsCount and ReviewsAverage are nil when the place has no rating block.
type Business struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Category       string   `json:"category"`
	ReviewsCount   *int     `json:"reviews_count"`
	ReviewsAverage *float64 `json:"reviews_average"`
	Price          string   `json:"price"`
	PhoneNumber    string   `json:"phone_number"`
	Website        string   `json:"website"`
	Link           string   `json:"link"`
}

// BusinessColumns is the column order of every session output table.
var BusinessColumns = []string{
	"name", "address", "category", "reviews_count", "reviews_average",
	"price", "phone_number", "website", "link",
}

// Row renders the business in BusinessColumns order. Absent ratings become empty cells.
func (b Business) Row() []string {
	var count, average string
	if b.ReviewsCount != nil {
		count = strconv.Itoa(*b.ReviewsCount)
	}
	if b.ReviewsAverage != nil {
		average = strconv.FormatFloat(*b.ReviewsAverage, 'f', -1, 64)
	}
	return []string{
		b.Name, b.Address, b.Category, count, average,
		b.Price, b.PhoneNumber, b.Website, b.Link,
	}
}

// SearchInput is one fan-out task: a location from the reference table plus the base keyword.
type SearchInput struct {
	StateName string
	StateID   string
	City      string
	Zip       string
	Keyword   string
}

// String returns the text typed into the Maps search box,
// e.g. "California Los Angeles 90001 boutique".
func (s SearchInput) String() string {
	return strings.Join([]string{s.StateName, s.City, s.Zip, s.Keyword}, " ")
}

// LocationRow is one record of the zip code reference table.
type LocationRow struct {
	StateName string
	StateID   string
	City      string
	Zip       string
	Lat       float64
	Lng       float64
	HasCoords bool
}

// OverwritePolicy decides what happens when a session output file already exists.
type OverwritePolicy string

const (
	// OverwriteReplace rewrites same-day outputs of the same keyword.
	OverwriteReplace OverwritePolicy = "overwrite"
	// OverwriteUnique appends a short session id to every file name.
	OverwriteUnique OverwritePolicy = "unique"
)

// SessionParams holds the configuration of one scrape session.
type SessionParams struct {
	Keyword     string
	Total       int    // 0 = no limit
	OutputDir   string // destination of the .xlsx/.csv pair
	Overwrite   OverwritePolicy
	Headless    bool
	ChromePath  string
	NavTimeout  time.Duration
	SettleDelay time.Duration
	Debug       bool // dump each listing's HTML next to the outputs
}

// FanOutParams holds the configuration of a parallel run across search inputs.
type FanOutParams struct {
	Session    SessionParams // template; Keyword and OutputDir are set per input
	OutputRoot string
	Workers    int
	Rate       float64 // session launches per second, 0 = unlimited
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCriteria = errors.New("invalid search criteria")

const (
	SortRelevancy = "relevancy desc"
	SortUpdated   = "updated desc"
	SortDistance  = "distance asc"

	DefaultQuantity = 25
)

var validSortOrders = map[string]bool{
	SortRelevancy: true,
	SortUpdated:   true,
	SortDistance:  true,
}

// SearchCriteria is what a single session searches for.
type SearchCriteria struct {
	Keywords []string `json:"keywords"`
	Location string   `json:"location,omitempty"`
	Quantity int      `json:"quantity"`

	SalaryMin  int      `json:"salary_min,omitempty"`
	SalaryMax  int      `json:"salary_max,omitempty"`
	JobTypes   []string `json:"job_types,omitempty"`
	Industries []string `json:"industries,omitempty"`
	Distance   int      `json:"distance,omitempty"`
	// TimePeriod limits results to CVs updated in the last N days.
	TimePeriod int `json:"time_period,omitempty"`

	WillingToRelocate  bool     `json:"willing_to_relocate,omitempty"`
	UKDrivingLicence   bool     `json:"uk_driving_licence,omitempty"`
	HideRecentlyViewed bool     `json:"hide_recently_viewed,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	MinimumMatch       int      `json:"minimum_match,omitempty"`
	SortOrder          string   `json:"sort_order,omitempty"`

	MustHaveKeywords string `json:"must_have_keywords,omitempty"`
	AnyKeywords      string `json:"any_keywords,omitempty"`
	NoneKeywords     string `json:"none_keywords,omitempty"`
}

func trimList(xs []string) []string {
	var out []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

// Normalize trims list fields and fills defaults in place.
func (c *SearchCriteria) Normalize() {
	c.Keywords = trimList(c.Keywords)
	c.JobTypes = trimList(c.JobTypes)
	c.Industries = trimList(c.Industries)
	c.Languages = trimList(c.Languages)
	c.Location = strings.TrimSpace(c.Location)
	c.SortOrder = strings.ToLower(strings.TrimSpace(c.SortOrder))
	if c.SortOrder == "" {
		c.SortOrder = SortRelevancy
	}
	if c.Quantity == 0 {
		c.Quantity = DefaultQuantity
	}
}

func (c SearchCriteria) Validate() error {
	if len(trimList(c.Keywords)) == 0 {
		return fmt.Errorf("%w: at least one non-empty keyword is required", ErrInvalidCriteria)
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be > 0, got %d", ErrInvalidCriteria, c.Quantity)
	}
	if c.SalaryMin < 0 || c.SalaryMax < 0 {
		return fmt.Errorf("%w: salary bounds must not be negative", ErrInvalidCriteria)
	}
	if c.SalaryMin > 0 && c.SalaryMax > 0 && c.SalaryMin > c.SalaryMax {
		return fmt.Errorf("%w: salary min (%d) is greater than salary max (%d)", ErrInvalidCriteria, c.SalaryMin, c.SalaryMax)
	}
	if c.Distance < 0 {
		return fmt.Errorf("%w: distance must be positive", ErrInvalidCriteria)
	}
	if c.TimePeriod < 0 {
		return fmt.Errorf("%w: time period must be positive", ErrInvalidCriteria)
	}
	if c.MinimumMatch < 0 || c.MinimumMatch > 100 {
		return fmt.Errorf("%w: minimum match must be between 0 and 100", ErrInvalidCriteria)
	}
	if c.SortOrder != "" && !validSortOrders[c.SortOrder] {
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidCriteria, c.SortOrder)
	}
	return nil
}

// KeywordQuery is the text typed into the portal's keyword box.
func (c SearchCriteria) KeywordQuery() string {
	return strings.Join(trimList(c.Keywords), " ")
}

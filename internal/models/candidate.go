package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ExtractorVersion is stamped into every record's metadata.
const ExtractorVersion = "go-1"

// SearchResult is one row of a candidate search listing.
type SearchResult struct {
	CVID                   string   `json:"cv_id"`
	Name                   string   `json:"name"`
	ProfileURL             string   `json:"profile_url,omitempty"`
	SearchRank             int      `json:"search_rank"`
	ProfileMatchPercentage *string  `json:"profile_match_percentage"`
	ProfileCVLastUpdated   *string  `json:"profile_cv_last_updated"`
	LastViewedDate         *string  `json:"last_viewed_date"`
	SearchKeywords         []string `json:"search_keywords"`
}

type PersonalJobDetails struct {
	Town              *string  `json:"town"`
	County            *string  `json:"county"`
	Location          *string  `json:"location"`
	MainPhone         *string  `json:"main_phone"`
	OptionalPhone     *string  `json:"optional_phone"`
	Email             *string  `json:"email"`
	CurrentJobTitle   *string  `json:"current_job_title"`
	DesiredJobTitle   *string  `json:"desired_job_title"`
	JobType           *string  `json:"job_type"`
	WillingToTravel   *string  `json:"willing_to_travel"`
	WillingToRelocate *string  `json:"willing_to_relocate"`
	UKDrivingLicence  *string  `json:"uk_driving_licence"`
	DateAvailable     *string  `json:"date_available"`
	FluentLanguages   []string `json:"fluent_languages"`
	ExpectedSalary    *string  `json:"expected_salary"`
}

// CandidateInfo is everything read from a candidate's profile page.
type CandidateInfo struct {
	Name               string             `json:"name"`
	QuickviewRef       *string            `json:"quickview_ref"`
	DateRegistered     *string            `json:"date_registered"`
	ProfileLastUpdated *string            `json:"profile_last_updated"`
	LastActive         *string            `json:"last_active"`
	PersonalJobDetails PersonalJobDetails `json:"personal_job_details"`
	LinkedInURL        *string            `json:"linkedin_url,omitempty"`
	GitHubURL          *string            `json:"github_url,omitempty"`
	WebsiteURL         *string            `json:"website_url,omitempty"`
	ChosenIndustries   []string           `json:"candidates_chosen_industries"`
	MainSkills         []string           `json:"candidates_main_skills"`
	// CVDocument is set only when document download is enabled.
	CVDocument *CVDocument `json:"cv_document,omitempty"`
}

const (
	DownloadCompleted = "completed"
	DownloadFailed    = "failed"
	DownloadNotFound  = "not_found"
)

// CVDocument describes the CV file offered on a profile page.
type CVDocument struct {
	Status       string     `json:"download_status"`
	FilePath     *string    `json:"file_path"`
	DownloadedAt *time.Time `json:"download_timestamp"`
	Error        string     `json:"error,omitempty"`
}

// Metadata is the provenance block of a record.
type Metadata struct {
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	DataCompleteness    float64   `json:"data_completeness"`
	SessionID           string    `json:"session_id,omitempty"`
	ExtractorVersion    string    `json:"extractor_version"`
}

// CandidateRecord is the unit written to disk, one file per candidate.
type CandidateRecord struct {
	SearchResult  SearchResult  `json:"search_result"`
	CandidateInfo CandidateInfo `json:"candidate_info"`
	Metadata      Metadata      `json:"metadata"`
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileName returns candidate_<cv_id>_<unix>.json.
func (r CandidateRecord) FileName() string {
	id := unsafeFileChars.ReplaceAllString(r.SearchResult.CVID, "_")
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("candidate_%s_%d.json", id, r.Metadata.ExtractionTimestamp.Unix())
}

// HasContact reports whether an email or any phone number was captured.
func (c CandidateInfo) HasContact() bool {
	d := c.PersonalJobDetails
	return d.Email != nil || d.MainPhone != nil || d.OptionalPhone != nil
}

// Title prefers the current job title over the desired one.
func (c CandidateInfo) Title() string {
	if t := c.PersonalJobDetails.CurrentJobTitle; t != nil {
		return *t
	}
	if t := c.PersonalJobDetails.DesiredJobTitle; t != nil {
		return *t
	}
	return ""
}

var emptyMarkers = map[string]bool{
	"":              true,
	"n/a":           true,
	"na":            true,
	"not specified": true,
	"none":          true,
	"-":             true,
}

// OptionalText trims s and returns nil for the portal's placeholder values.
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if emptyMarkers[strings.ToLower(s)] {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package filter

import (
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/stretchr/testify/assert"
)

func str(s string) *string { return &s }

func TestCompletenessScore(t *testing.T) {
	tests := []struct {
		name     string
		info     *models.CandidateInfo
		expected float64
	}{
		{name: "nil", info: nil, expected: 0},
		{name: "name only", info: &models.CandidateInfo{Name: "Jane"}, expected: 0.17},
		{
			name: "everything",
			info: &models.CandidateInfo{
				Name:       "Jane",
				MainSkills: []string{"Go"},
				PersonalJobDetails: models.PersonalJobDetails{
					DesiredJobTitle: str("Engineer"),
					Town:            str("Leeds"),
					ExpectedSalary:  str("£50,000"),
					MainPhone:       str("07700 900123"),
				},
			},
			expected: 1,
		},
		{
			name: "four of six",
			info: &models.CandidateInfo{
				Name: "Jane",
				PersonalJobDetails: models.PersonalJobDetails{
					CurrentJobTitle: str("Engineer"),
					Location:        str("Leeds, West Yorkshire"),
					Email:           str("jane@example.com"),
				},
			},
			expected: 0.67,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompletenessScore(tt.info))
		})
	}
}

func TestMatchPercent(t *testing.T) {
	n, ok := MatchPercent(str("87% match"))
	assert.True(t, ok)
	assert.Equal(t, 87, n)

	_, ok = MatchPercent(str("no score"))
	assert.False(t, ok)
	_, ok = MatchPercent(nil)
	assert.False(t, ok)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"recruitment", "sales manager", "php"}, SplitKeywords(`recruitment, "sales manager" php`))
	assert.Empty(t, SplitKeywords("  "))
}

func TestShouldIncludeCandidate(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	info := &models.CandidateInfo{
		Name:       "Jane",
		MainSkills: []string{"JavaScript", "React"},
		PersonalJobDetails: models.PersonalJobDetails{
			CurrentJobTitle: str("Frontend Developer"),
		},
	}

	tests := []struct {
		name     string
		result   models.SearchResult
		criteria models.SearchCriteria
		want     bool
	}{
		{name: "no filters", want: true},
		{
			name:     "below minimum match",
			result:   models.SearchResult{ProfileMatchPercentage: str("40% match")},
			criteria: models.SearchCriteria{MinimumMatch: 60},
			want:     false,
		},
		{
			name:     "unknown match passes",
			criteria: models.SearchCriteria{MinimumMatch: 60},
			want:     true,
		},
		{
			name:     "excluded keyword",
			criteria: models.SearchCriteria{NoneKeywords: "react, angular"},
			want:     false,
		},
		{
			name:     "word boundary",
			criteria: models.SearchCriteria{NoneKeywords: "java"},
			want:     true,
		},
		{
			name:     "stale CV",
			result:   models.SearchResult{ProfileCVLastUpdated: str("01/01/2026")},
			criteria: models.SearchCriteria{TimePeriod: 30},
			want:     false,
		},
		{
			name:     "fresh CV",
			result:   models.SearchResult{ProfileCVLastUpdated: str("Yesterday")},
			criteria: models.SearchCriteria{TimePeriod: 7},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldIncludeCandidate(tt.result, info, tt.criteria, now)
			assert.Equal(t, tt.want, got)
			if !got {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

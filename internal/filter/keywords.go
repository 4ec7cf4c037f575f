package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/utils"
)

var matchPercentRegex = regexp.MustCompile(`(\d{1,3})\s*%`)

// MatchPercent pulls the number out of "87% match"; ok is false when the card
// showed no score.
func MatchPercent(s *string) (int, bool) {
	if s == nil {
		return 0, false
	}
	m := matchPercentRegex.FindStringSubmatch(*s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// SplitKeywords splits the portal's free-text keyword boxes on commas and
// whitespace, keeping quoted phrases together.
func SplitKeywords(s string) []string {
	var out []string
	var cur strings.Builder
	quoted := false
	flush := func() {
		if w := strings.TrimSpace(cur.String()); w != "" {
			out = append(out, w)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			if quoted {
				flush()
			}
			quoted = !quoted
		case !quoted && (r == ',' || r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// ShouldIncludeCandidate re-checks the search filters the portal is expected
// to have applied. A false result carries a short reason for the log.
func ShouldIncludeCandidate(result models.SearchResult, info *models.CandidateInfo, c models.SearchCriteria, now time.Time) (bool, string) {
	if c.MinimumMatch > 0 {
		if pct, ok := MatchPercent(result.ProfileMatchPercentage); ok && pct < c.MinimumMatch {
			return false, "match " + strconv.Itoa(pct) + "% below minimum " + strconv.Itoa(c.MinimumMatch) + "%"
		}
	}

	if words := SplitKeywords(c.NoneKeywords); len(words) > 0 && info != nil {
		text := profileText(info)
		for _, w := range words {
			if containsWord(text, utils.NormalizeText(w)) {
				return false, "profile mentions excluded keyword " + strconv.Quote(w)
			}
		}
	}

	if c.TimePeriod > 0 {
		updated := models.Deref(result.ProfileCVLastUpdated)
		if info != nil && info.ProfileLastUpdated != nil {
			updated = *info.ProfileLastUpdated
		}
		if !IsRecentActivity(updated, c.TimePeriod, now) {
			return false, "CV last updated " + updated + ", outside " + strconv.Itoa(c.TimePeriod) + " days"
		}
	}
	return true, ""
}

func profileText(info *models.CandidateInfo) string {
	d := info.PersonalJobDetails
	parts := []string{
		models.Deref(d.CurrentJobTitle),
		models.Deref(d.DesiredJobTitle),
		models.Deref(d.JobType),
	}
	parts = append(parts, info.MainSkills...)
	parts = append(parts, info.ChosenIndustries...)
	return " " + utils.NormalizeText(strings.Join(parts, " ")) + " "
}

// containsWord matches w on word boundaries so "java" does not hit
// "javascript".
func containsWord(text, w string) bool {
	if w == "" {
		return false
	}
	re := regexp.MustCompile(`(^|[^\pL\pN])` + regexp.QuoteMeta(w) + `($|[^\pL\pN])`)
	return re.MatchString(text)
}

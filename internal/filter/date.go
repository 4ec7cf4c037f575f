package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	ukDateRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
	agoRegex     = regexp.MustCompile(`(?i)^(\d+)\s+(day|week|month)s?\s+ago`)
)

// ParseActivityDate reads the date formats the portal shows next to a CV:
// "14/10/2026" (dd/mm/yyyy), "2026-10-14", "Today", "Yesterday" and
// "N days/weeks/months ago". ok is false for anything else.
func ParseActivityDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(s) {
	case "":
		return time.Time{}, false
	case "today":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}

	if isoDateRegex.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02", s[:10], now.Location()); err == nil {
			return t, true
		}
	}

	if m := ukDateRegex.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
	}

	if m := agoRegex.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "day":
			return today.AddDate(0, 0, -n), true
		case "week":
			return today.AddDate(0, 0, -7*n), true
		case "month":
			return today.AddDate(0, -n, 0), true
		}
	}
	return time.Time{}, false
}

// IsRecentActivity reports whether date falls within the last days days.
// Unknown formats and days <= 0 pass; dates more than two days in the future
// are rejected.
func IsRecentActivity(date string, days int, now time.Time) bool {
	if days <= 0 {
		return true
	}
	t, ok := ParseActivityDate(date, now)
	if !ok {
		return true
	}

	diff := now.Sub(t)
	if diff < -2*24*time.Hour {
		return false
	}
	return diff <= time.Duration(days+1)*24*time.Hour
}

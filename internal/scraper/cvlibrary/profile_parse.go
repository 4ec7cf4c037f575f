package cvlibrary

import (
	"fmt"
	"regexp"
	"strings"

	"go-cvlibrary-scraper/internal/models"

	"github.com/PuerkitoBio/goquery"
)

const maxSkills = 15

var (
	emailPattern     = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9._%+-]*@[A-Za-z0-9][A-Za-z0-9.-]*\.[A-Za-z]{2,}`)
	phonePattern     = regexp.MustCompile(`(?:\+44\s?\(?0?\)?\s?\d{2,4}|\(?0\d{2,4}\)?)[\s-]?\d{3,4}[\s-]?\d{3,4}`)
	linkedInPattern  = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/[A-Za-z0-9_%-]+`)
	gitHubPattern    = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_-]+`)
	websitePattern   = regexp.MustCompile(`(?i)(?:website|portfolio)\s*:\s*(https?://[^\s<>"']+)`)
	quickviewPattern = regexp.MustCompile(`(?i)quickview\s+ref\s*#?\s*:?\s*(\d+)`)
	yearPrefix       = regexp.MustCompile(`^20\d{2}`)
	nonPhoneChars    = regexp.MustCompile(`[^\d+]`)
)

var systemEmailMarkers = []string{"cv-library", "aspirepeople", "noreply", "no-reply", "system", "admin"}

var placeholderPhones = map[string]bool{"01012345678": true, "07123456789": true}

var skillNoise = map[string]bool{
	"recruiter options": true, "download cv": true, "video interview": true,
	"email cv": true, "add note": true, "save cv": true, "print cv": true,
	"report": true, "document": true, "plain text": true, "notes": true,
	"view contact": true, "view contact details": true,
}

var sectionEnds = []string{"Recruiter Options", "Download CV", "Document", "Plain Text", "CV Keywords"}

// ParseProfile reads a candidate profile page snapshot. title is the page
// title as reported by the browser; when empty the <title> element is used.
func ParseProfile(htmlDoc, title string) (*models.CandidateInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return nil, fmt.Errorf("parse profile html: %w", err)
	}
	if title == "" {
		title = doc.Find("title").First().Text()
	}

	text := visibleText(doc.Selection)
	lines := splitLines(text)
	field := func(label string) *string { return models.OptionalText(labelValue(lines, label)) }

	info := &models.CandidateInfo{
		Name:               profileName(doc, title),
		DateRegistered:     field("Date Registered"),
		ProfileLastUpdated: field("Profile/CV Last Updated"),
		LastActive:         field("Last Active"),
	}
	if m := quickviewPattern.FindStringSubmatch(text); m != nil {
		info.QuickviewRef = models.OptionalText(m[1])
	}

	d := &info.PersonalJobDetails
	d.CurrentJobTitle = field("Current Job Title")
	d.DesiredJobTitle = field("Desired Job Title")
	d.Town = field("Town")
	d.County = field("County")
	d.Location = joinLocation(d.Town, d.County)
	d.JobType = field("Job Type")
	d.WillingToTravel = field("Willing to Travel")
	d.WillingToRelocate = field("Willing to Relocate")
	d.UKDrivingLicence = field("UK Driving Licence")
	d.DateAvailable = field("Date Available")
	d.ExpectedSalary = field("Expected Salary")
	d.FluentLanguages = splitList(labelValue(lines, "Fluent Languages"))

	extractContact(doc, lines, text, d)

	if m := linkedInPattern.FindString(text + " " + hrefs(doc, "a[href*='linkedin.com/in/']")); m != "" {
		info.LinkedInURL = models.OptionalText(withScheme(m))
	}
	if m := gitHubPattern.FindString(text + " " + hrefs(doc, "a[href*='github.com/']")); m != "" {
		info.GitHubURL = models.OptionalText(withScheme(m))
	}
	if m := websitePattern.FindStringSubmatch(text); m != nil {
		info.WebsiteURL = models.OptionalText(m[1])
	}

	info.ChosenIndustries = industries(lines)
	info.MainSkills = mainSkills(lines)
	return info, nil
}

func profileName(doc *goquery.Document, title string) string {
	if before, _, ok := strings.Cut(title, " - "); ok {
		name := strings.TrimSpace(before)
		if len(name) > 3 && len(name) < 50 && !strings.Contains(strings.ToLower(name), "cv-library") {
			return name
		}
	}

	var name string
	doc.Find("h1, h2, .candidate-name, .profile-name").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.TrimSpace(h.Text())
		lower := strings.ToLower(text)
		if len(text) > 3 && len(text) < 60 &&
			!strings.HasPrefix(lower, "cv for") &&
			!strings.HasPrefix(lower, "profile") &&
			!strings.HasPrefix(lower, "candidate") {
			name = text
			return false
		}
		return true
	})
	return name
}

func joinLocation(town, county *string) *string {
	switch {
	case town != nil && county != nil:
		return models.OptionalText(*town + ", " + *county)
	case town != nil:
		return models.OptionalText(*town)
	case county != nil:
		return models.OptionalText(*county)
	}
	return nil
}

func extractContact(doc *goquery.Document, lines []string, text string, d *models.PersonalJobDetails) {
	d.Email = models.OptionalText(firstEmail(labelValue(lines, "Email")))
	if d.Email == nil {
		d.Email = models.OptionalText(firstEmail(strings.TrimPrefix(hrefs(doc, "a[href^='mailto:']"), "mailto:")))
	}
	if d.Email == nil {
		d.Email = models.OptionalText(firstEmail(text))
	}

	d.MainPhone = models.OptionalText(firstPhone(labelValue(lines, "Main Phone"), ""))
	if d.MainPhone == nil {
		d.MainPhone = models.OptionalText(firstPhone(strings.TrimPrefix(hrefs(doc, "a[href^='tel:']"), "tel:"), ""))
	}
	d.OptionalPhone = models.OptionalText(firstPhone(labelValue(lines, "Optional Phone"), models.Deref(d.MainPhone)))

	if d.MainPhone == nil && d.OptionalPhone == nil && d.Email == nil {
		d.MainPhone = models.OptionalText(firstPhone(text, ""))
	}
}

func firstEmail(s string) string {
	for _, m := range emailPattern.FindAllString(s, -1) {
		lower := strings.ToLower(m)
		blocked := false
		for _, marker := range systemEmailMarkers {
			if strings.Contains(lower, marker) {
				blocked = true
				break
			}
		}
		if !blocked && len(m) > 5 && len(m) < 100 {
			return m
		}
	}
	return ""
}

// firstPhone returns the first plausible UK/international number in s that
// differs from exclude.
func firstPhone(s, exclude string) string {
	for _, m := range phonePattern.FindAllString(s, -1) {
		m = strings.TrimSpace(m)
		digits := nonPhoneChars.ReplaceAllString(m, "")
		n := len(strings.TrimPrefix(digits, "+"))
		if n < 10 || n > 15 || yearPrefix.MatchString(m) || placeholderPhones[digits] {
			continue
		}
		if exclude != "" && nonPhoneChars.ReplaceAllString(exclude, "") == digits {
			continue
		}
		return m
	}
	return ""
}

func hrefs(doc *goquery.Document, sel string) string {
	var out []string
	doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			out = append(out, href)
		}
	})
	return strings.Join(out, " ")
}

func withScheme(u string) string {
	if strings.HasPrefix(strings.ToLower(u), "http") {
		return u
	}
	return "https://" + u
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
		if v := models.OptionalText(part); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func industries(lines []string) []string {
	out := []string{}
	ends := append([]string{"Candidates Main Skills"}, sectionEnds...)
	for _, l := range section(lines, "Candidates Chosen Industries", ends...) {
		for _, v := range splitList(l) {
			if len(v) > 2 {
				out = append(out, v)
			}
		}
	}
	return out
}

func mainSkills(lines []string) []string {
	out := []string{}
	for _, l := range section(lines, "Candidates Main Skills", sectionEnds...) {
		for _, skill := range splitList(l) {
			lower := strings.ToLower(skill)
			if len(skill) <= 2 || len(skill) >= 50 || skillNoise[lower] ||
				strings.HasPrefix(lower, "http") || strings.HasPrefix(lower, "www") ||
				strings.HasPrefix(skill, "The contact") {
				continue
			}
			out = append(out, skill)
			if len(out) == maxSkills {
				return out
			}
		}
	}
	return out
}

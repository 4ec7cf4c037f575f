package cvlibrary

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	cvIDPattern  = regexp.MustCompile(`/cv/(\d+)`)
	matchPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*%\s*match`)
	totalPattern = regexp.MustCompile(`(?i)\bof\s+([\d,]+)\s+(?:candidates|results|cvs)\b`)
)

// ResultsPage is one parsed page of search results.
type ResultsPage struct {
	Results      []models.SearchResult
	NextURL      string
	TotalResults int
}

// ParseResultsPage extracts every result card from a results page snapshot.
// Ranks start at 1 for the first card of the page. Cards without a CV id or
// name keep them empty; withListingIdentity fills both once the card's rank in
// the whole listing is known.
func ParseResultsPage(htmlDoc, baseURL string, keywords []string) (*ResultsPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlDoc))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}

	page := &ResultsPage{
		NextURL:      nextPageURL(doc, baseURL),
		TotalResults: totalResults(doc),
	}
	if rows := findResultRows(doc); rows != nil {
		rows.Each(func(i int, row *goquery.Selection) {
			page.Results = append(page.Results, parseCard(row, i+1, baseURL, keywords))
		})
	}
	return page, nil
}

func findResultRows(doc *goquery.Document) *goquery.Selection {
	for _, sel := range resultRowSelectors {
		rows := doc.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find("a[href*='/cv/']").Length() > 0
		})
		if rows.Length() > 0 {
			return rows
		}
	}
	return nil
}

func parseCard(row *goquery.Selection, rank int, baseURL string, keywords []string) models.SearchResult {
	res := models.SearchResult{
		SearchRank:     rank,
		SearchKeywords: keywords,
	}

	links := row.Find("a[href*='/cv/']")
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := cvIDPattern.FindStringSubmatch(href); m != nil {
			res.CVID = m[1]
			res.ProfileURL = resolveURL(baseURL, href)
			return false
		}
		return true
	})

	res.Name = strings.TrimSpace(row.Find("h2 a[href*='/cv/']").First().Text())
	if res.Name == "" {
		links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := strings.TrimSpace(a.Text())
			if len(text) > 3 && !strings.HasPrefix(strings.ToLower(text), "view") {
				res.Name = text
				return false
			}
			return true
		})
	}
	row.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(strings.ToLower(text), "match") && strings.Contains(text, "%") {
			res.ProfileMatchPercentage = models.OptionalText(text)
			return false
		}
		return true
	})

	text := visibleText(row)
	if res.ProfileMatchPercentage == nil {
		if m := matchPattern.FindStringSubmatch(text); m != nil {
			res.ProfileMatchPercentage = models.OptionalText(m[1] + "% match")
		}
	}

	lines := splitLines(text)
	res.ProfileCVLastUpdated = models.OptionalText(labelValue(lines, "Profile/CV Last Updated"))
	res.LastViewedDate = models.OptionalText(labelValue(lines, "Last Viewed"))
	return res
}

// withListingIdentity sets the rank across all pages and gives unidentified
// cards a placeholder id and name built from that rank.
func withListingIdentity(r models.SearchResult, rank int, now time.Time) models.SearchResult {
	r.SearchRank = rank
	if r.CVID == "" {
		r.CVID = fmt.Sprintf("card_%d_%d", rank, now.Unix())
	}
	if r.Name == "" {
		r.Name = fmt.Sprintf("Candidate_%d", rank)
	}
	return r
}

func nextPageURL(doc *goquery.Document, baseURL string) string {
	for _, sel := range nextPageSelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" && href != "#" {
			return resolveURL(baseURL, href)
		}
	}

	var next string
	doc.Find(".pagination a, .pager a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(strings.Trim(strings.TrimSpace(a.Text()), "»›> "))
		if text == "next" || text == "next page" {
			if href, ok := a.Attr("href"); ok && href != "#" {
				next = resolveURL(baseURL, href)
				return false
			}
		}
		return true
	})
	return next
}

func totalResults(doc *goquery.Document) int {
	m := totalPattern.FindStringSubmatch(doc.Text())
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func resolveURL(baseURL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// CVIDFromURL returns the numeric CV id embedded in a profile URL.
func CVIDFromURL(u string) (string, bool) {
	m := cvIDPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

package cvlibrary

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/browser"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/scraper"

	"github.com/playwright-community/playwright-go"
)

// Search submits the candidate search form and walks the result pages until
// limit eligible candidates are collected or the listing runs out. Cards the
// eligible func rejects do not count toward limit.
func (s *CVLibraryScraper) Search(ctx context.Context, criteria models.SearchCriteria, limit int, eligible scraper.Eligible) ([]models.SearchResult, error) {
	page := s.pages.Page()
	slog.Info("🔍 searching candidates", "keywords", criteria.KeywordQuery(), "location", criteria.Location, "limit", limit)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := browser.Retry(ctx, s.cfg.Browser.Retries, "open search form", func() error {
		return s.navigate(page, s.url(searchFormPath))
	}); err != nil {
		return nil, err
	}
	if !isAuthenticatedURL(page.URL()) {
		return nil, scraper.ErrSessionExpired
	}
	s.acceptCookies(page)

	formURL := page.URL()
	if err := s.fillSearchForm(page, criteria); err != nil {
		s.screenshot(page, "search_form", "could not fill search form")
		return nil, err
	}
	s.waitForURLChange(ctx, page, formURL)
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(s.timeoutMs()),
	}); err != nil {
		return nil, fmt.Errorf("results page did not load: %w", err)
	}

	var results []models.SearchResult
	seen := make(map[string]bool)
	rank := 0
	for pageNum := 1; ; pageNum++ {
		html, err := page.Content()
		if err != nil {
			return results, fmt.Errorf("read results page %d: %w", pageNum, err)
		}
		parsed, err := ParseResultsPage(html, s.baseURL, criteria.Keywords)
		if err != nil {
			return results, err
		}
		if pageNum == 1 && parsed.TotalResults > 0 {
			slog.Info("📊 search matched candidates", "total", parsed.TotalResults)
		}

		fresh, added := 0, 0
		for _, r := range parsed.Results {
			if r.CVID != "" {
				if seen[r.CVID] {
					continue
				}
				seen[r.CVID] = true
			}
			fresh++
			rank++
			r = withListingIdentity(r, rank, s.now())
			if eligible != nil && !eligible(r) {
				continue
			}
			results = append(results, r)
			added++
			if len(results) >= limit {
				break
			}
		}
		slog.Info("📄 parsed results page", "page", pageNum, "cards", len(parsed.Results), "new", fresh, "eligible", added, "total", len(results))

		if len(results) >= limit || parsed.NextURL == "" || fresh == 0 {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return results, err
		}
		next := parsed.NextURL
		if err := browser.Retry(ctx, s.cfg.Browser.Retries, "open results page", func() error {
			return s.navigate(page, next)
		}); err != nil {
			slog.Warn("stopping pagination", "page", pageNum+1, "err", err)
			break
		}
	}

	if len(results) == 0 && !isAuthenticatedURL(page.URL()) {
		return nil, scraper.ErrSessionExpired
	}
	return results, nil
}

func (s *CVLibraryScraper) fillSearchForm(page playwright.Page, c models.SearchCriteria) error {
	if toggle := page.Locator(advancedToggle).First(); visible(toggle) {
		if err := toggle.Click(); err != nil {
			slog.Debug("advanced search toggle failed", "err", err)
		}
	}

	kw := page.Locator(keywordsInput).First()
	if err := kw.Fill(c.KeywordQuery()); err != nil {
		return fmt.Errorf("fill keywords: %w", err)
	}
	if c.Location != "" {
		if err := page.Locator(locationInput).First().Fill(c.Location); err != nil {
			slog.Warn("location field not available", "err", err)
		}
	}

	s.applyFilters(page, c)

	submit := page.Locator(searchSubmit).First()
	if err := submit.Click(); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	return nil
}

// applyFilters sets every optional filter the form exposes. Missing controls
// are logged and skipped.
func (s *CVLibraryScraper) applyFilters(page playwright.Page, c models.SearchCriteria) {
	f := filterSelectors
	setValue := func(name, sel, value string) {
		if value == "" || value == "0" {
			return
		}
		loc := page.Locator(sel).First()
		if n, _ := loc.Count(); n == 0 {
			slog.Debug("filter not available on search form", "filter", name)
			return
		}
		tag, _ := loc.Evaluate("el => el.tagName.toLowerCase()", nil)
		var err error
		if tag == "select" {
			vals := []string{value}
			_, err = loc.SelectOption(playwright.SelectOptionValues{ValuesOrLabels: &vals})
		} else {
			err = loc.Fill(value)
		}
		if err != nil {
			slog.Debug("could not set filter", "filter", name, "value", value, "err", err)
		}
	}
	check := func(name, sel string, on bool) {
		if !on {
			return
		}
		loc := page.Locator(sel).First()
		if n, _ := loc.Count(); n == 0 {
			slog.Debug("filter not available on search form", "filter", name)
			return
		}
		if err := loc.Check(); err != nil {
			slog.Debug("could not tick filter", "filter", name, "err", err)
		}
	}
	checkValues := func(name, sel string, values []string) {
		for _, v := range values {
			loc := page.Locator(withValue(sel, v))
			if n, _ := loc.Count(); n == 0 {
				loc = page.Locator(fmt.Sprintf("label:has-text(%q) >> %s", v, sel))
			}
			if n, _ := loc.Count(); n == 0 {
				slog.Debug("filter option not available", "filter", name, "value", v)
				continue
			}
			if err := loc.First().Check(); err != nil {
				slog.Debug("could not tick filter option", "filter", name, "value", v, "err", err)
			}
		}
	}

	setValue("salary_min", f.SalaryMin, strconv.Itoa(c.SalaryMin))
	setValue("salary_max", f.SalaryMax, strconv.Itoa(c.SalaryMax))
	setValue("distance", f.Distance, strconv.Itoa(c.Distance))
	setValue("time_period", f.TimePeriod, strconv.Itoa(c.TimePeriod))
	setValue("minimum_match", f.MinimumMatch, strconv.Itoa(c.MinimumMatch))
	if c.SortOrder != "" && c.SortOrder != models.SortRelevancy {
		setValue("sort_order", f.SortOrder, c.SortOrder)
	}
	setValue("must_have", f.MustHave, strings.TrimSpace(c.MustHaveKeywords))
	setValue("any_keywords", f.AnyWords, strings.TrimSpace(c.AnyKeywords))
	setValue("none_keywords", f.NoneWords, strings.TrimSpace(c.NoneKeywords))

	check("willing_to_relocate", f.Relocate, c.WillingToRelocate)
	check("uk_driving_licence", f.DrivingLicence, c.UKDrivingLicence)
	check("hide_recently_viewed", f.HideViewed, c.HideRecentlyViewed)

	checkValues("job_type", f.JobType, c.JobTypes)
	checkValues("industry", f.Industry, c.Industries)
	checkValues("languages", f.Language, c.Languages)
}

// waitForURLChange polls until the page has navigated away from from, or the
// browser timeout passes. A form that re-renders in place simply times out.
func (s *CVLibraryScraper) waitForURLChange(ctx context.Context, page playwright.Page, from string) {
	deadline := time.Now().Add(s.cfg.Browser.Timeout())
	for time.Now().Before(deadline) && page.URL() == from {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func visible(loc playwright.Locator) bool {
	ok, err := loc.IsVisible()
	return err == nil && ok
}

// withValue narrows every selector in a comma list to elements with value v.
func withValue(sel, v string) string {
	parts := strings.Split(sel, ",")
	for i, p := range parts {
		parts[i] = fmt.Sprintf("%s[value=%q]", strings.TrimSpace(p), v)
	}
	return strings.Join(parts, ", ")
}

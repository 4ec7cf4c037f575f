package cvlibrary

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/utils"

	"github.com/playwright-community/playwright-go"
)

// PageProvider hands out the current main page; it may change between calls
// when the browser context is recycled.
type PageProvider interface {
	Page() playwright.Page
}

// Waiter paces navigation.
type Waiter interface {
	Wait(ctx context.Context) error
}

type noWait struct{}

func (noWait) Wait(ctx context.Context) error { return ctx.Err() }

// CVLibraryScraper drives the recruiter area of cv-library.co.uk.
type CVLibraryScraper struct {
	cfg     *config.Config
	baseURL string
	pages   PageProvider
	limiter Waiter
	shots   *utils.ScreenShotDebugger
	now     func() time.Time
}

func NewCVLibraryScraper(cfg *config.Config, pages PageProvider, limiter Waiter) *CVLibraryScraper {
	if limiter == nil {
		limiter = noWait{}
	}
	return &CVLibraryScraper{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		pages:   pages,
		limiter: limiter,
		shots:   utils.NewScreenShotDebugger(cfg.ScreenshotPath),
		now:     time.Now,
	}
}

func (s *CVLibraryScraper) Name() string {
	return "CV-Library"
}

func (s *CVLibraryScraper) url(path string) string {
	return s.baseURL + path
}

func (s *CVLibraryScraper) timeoutMs() float64 {
	return float64(s.cfg.Browser.Timeout().Milliseconds())
}

func (s *CVLibraryScraper) navigate(page playwright.Page, url string) error {
	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(s.timeoutMs()),
	})
	return err
}

// acceptCookies dismisses the consent banner when it is showing.
func (s *CVLibraryScraper) acceptCookies(page playwright.Page) {
	btn := page.Locator(cookieBannerSelector).First()
	if visible, _ := btn.IsVisible(); !visible {
		return
	}
	if err := btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)}); err != nil {
		slog.Debug("cookie banner click failed", "err", err)
		return
	}
	slog.Debug("🍪 accepted cookie banner")
}

func (s *CVLibraryScraper) screenshot(page playwright.Page, name, message string) {
	if page == nil {
		return
	}
	_, _ = s.shots.CaptureAndLog(page, name, message)
}

func isAuthenticatedURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "recruiter") && !strings.Contains(lower, "login")
}

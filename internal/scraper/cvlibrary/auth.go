package cvlibrary

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/browser"
	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/scraper"

	"github.com/playwright-community/playwright-go"
)

// CookieFile is where the recruiter session cookies are kept between runs.
func CookieFile(cfg *config.Config) string {
	return filepath.Join(cfg.CookiesPath, "cookies-cvlibrary.json")
}

// Login reuses a saved session when the dashboard opens without a redirect,
// otherwise submits the login form. Any failure wraps scraper.ErrLoginFailed.
func (s *CVLibraryScraper) Login(ctx context.Context, creds config.Credentials) error {
	page := s.pages.Page()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.navigate(page, s.url(dashboardPath)); err == nil && isAuthenticatedURL(page.URL()) {
		slog.Info("✅ reusing saved recruiter session", "url", page.URL())
		return nil
	}

	slog.Info("🔐 logging in to CV-Library", "user", creds.Username)
	if err := s.navigate(page, s.url(loginPath)); err != nil {
		return fmt.Errorf("%w: could not open login page: %v", scraper.ErrLoginFailed, err)
	}
	s.acceptCookies(page)

	if _, err := page.WaitForSelector(emailInput, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(s.timeoutMs()),
	}); err != nil {
		s.screenshot(page, "login_form_missing", "login form not found")
		return fmt.Errorf("%w: login form not found", scraper.ErrLoginFailed)
	}

	if err := page.Locator(emailInput).First().Fill(creds.Username); err != nil {
		return fmt.Errorf("%w: fill username: %v", scraper.ErrLoginFailed, err)
	}
	if err := page.Locator(passwordInput).First().Fill(creds.Password); err != nil {
		return fmt.Errorf("%w: fill password: %v", scraper.ErrLoginFailed, err)
	}
	if err := browser.MouseJiggle(ctx, page); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("mouse move failed", "err", err)
	}
	if err := page.Locator(loginSubmit).First().Click(); err != nil {
		return fmt.Errorf("%w: submit login form: %v", scraper.ErrLoginFailed, err)
	}

	if !s.waitForAuthenticated(ctx, page) {
		reason := s.loginErrorText(page)
		s.screenshot(page, "login_failed", "login did not reach the recruiter area")
		if reason == "" {
			reason = "still on " + page.URL()
		}
		return fmt.Errorf("%w: %s", scraper.ErrLoginFailed, reason)
	}
	slog.Info("✅ login confirmed", "url", page.URL())

	if err := s.saveCookies(page); err != nil {
		slog.Warn("could not save session cookies", "err", err)
	}
	return nil
}

// waitForAuthenticated polls the page URL until it leaves the login page or
// the browser timeout passes.
func (s *CVLibraryScraper) waitForAuthenticated(ctx context.Context, page playwright.Page) bool {
	deadline := time.Now().Add(s.cfg.Browser.Timeout())
	for time.Now().Before(deadline) {
		if isAuthenticatedURL(page.URL()) {
			return true
		}
		if visible, _ := page.Locator(loginError).First().IsVisible(); visible {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return isAuthenticatedURL(page.URL())
}

func (s *CVLibraryScraper) loginErrorText(page playwright.Page) string {
	loc := page.Locator(loginError).First()
	if n, _ := loc.Count(); n == 0 {
		return ""
	}
	text, err := loc.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *CVLibraryScraper) saveCookies(page playwright.Page) error {
	cookies, err := page.Context().Cookies()
	if err != nil {
		return err
	}
	path := CookieFile(s.cfg)
	if err := browser.SaveCookies(path, cookies, s.now()); err != nil {
		return err
	}
	slog.Debug("💾 saved session cookies", "path", path, "count", len(cookies))
	return nil
}

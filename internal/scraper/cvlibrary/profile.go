package cvlibrary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/browser"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/scraper"
	"go-cvlibrary-scraper/utils"

	"github.com/playwright-community/playwright-go"
)

// Extract opens the candidate profile in its own tab, reveals the contact
// block and parses the page. The tab is always closed.
func (s *CVLibraryScraper) Extract(ctx context.Context, result models.SearchResult) (*models.CandidateInfo, error) {
	if result.ProfileURL == "" {
		return nil, scraper.ErrNoProfileURL
	}

	tab, err := s.pages.Page().Context().NewPage()
	if err != nil {
		return nil, fmt.Errorf("open profile tab: %w", err)
	}
	defer tab.Close()

	if err := browser.Retry(ctx, s.cfg.Browser.Retries, "open profile "+result.CVID, func() error {
		return s.navigate(tab, result.ProfileURL)
	}); err != nil {
		return nil, err
	}
	if !isAuthenticatedURL(tab.URL()) && !isProfileURL(tab.URL()) {
		return nil, scraper.ErrSessionExpired
	}

	if err := browser.HumanScroll(ctx, tab); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("profile scroll failed", "cv_id", result.CVID, "err", err)
	}
	s.revealContact(ctx, tab)

	html, err := tab.Content()
	if err != nil {
		return nil, fmt.Errorf("read profile page: %w", err)
	}
	title, _ := tab.Title()

	info, err := ParseProfile(html, title)
	if err != nil {
		s.screenshot(tab, "profile_"+result.CVID, "profile could not be parsed")
		return nil, err
	}
	if info.Name == "" {
		info.Name = result.Name
	}
	if s.cfg.Download.DownloadCV {
		info.CVDocument = s.downloadCV(tab, result)
	}
	slog.Debug("extracted profile", "cv_id", result.CVID, "name", info.Name, "skills", len(info.MainSkills))
	return info, nil
}

// revealContact clicks "View contact details" when present. One click reveals
// every contact field.
func (s *CVLibraryScraper) revealContact(ctx context.Context, tab playwright.Page) {
	link := tab.Locator(contactReveal).First()
	if n, _ := link.Count(); n == 0 {
		return
	}
	if err := link.ScrollIntoViewIfNeeded(); err != nil {
		slog.Debug("scroll to contact link failed", "err", err)
	}
	if err := link.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		slog.Debug("contact details click failed", "err", err)
		return
	}
	_ = tab.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(5000),
	})
	_ = browser.RandomDelay(ctx, 500*time.Millisecond, 1500*time.Millisecond)
}

// downloadCV clicks the profile's download link and saves the file into the
// download directory as cv_<cv_id>_<name>. A missing link or failed transfer
// is recorded on the document and never fails the extraction.
func (s *CVLibraryScraper) downloadCV(tab playwright.Page, result models.SearchResult) *models.CVDocument {
	link := tab.Locator(downloadCVLink).First()
	if n, _ := link.Count(); n == 0 {
		slog.Debug("no CV download link on profile", "cv_id", result.CVID)
		return &models.CVDocument{Status: models.DownloadNotFound}
	}

	failed := func(err error) *models.CVDocument {
		slog.Warn("⚠️ CV download failed", "cv_id", result.CVID, "err", err)
		return &models.CVDocument{Status: models.DownloadFailed, Error: err.Error()}
	}

	dl, err := tab.ExpectDownload(func() error {
		return link.Click()
	}, playwright.PageExpectDownloadOptions{Timeout: playwright.Float(s.timeoutMs())})
	if err != nil {
		return failed(fmt.Errorf("wait for download: %w", err))
	}

	if err := os.MkdirAll(s.cfg.Download.Path, 0o755); err != nil {
		return failed(err)
	}
	path := filepath.Join(s.cfg.Download.Path, documentFileName(result.CVID, dl.SuggestedFilename()))
	if err := dl.SaveAs(path); err != nil {
		return failed(fmt.Errorf("save download: %w", err))
	}

	at := s.now().UTC()
	slog.Info("📎 CV document saved", "cv_id", result.CVID, "path", path)
	return &models.CVDocument{Status: models.DownloadCompleted, FilePath: &path, DownloadedAt: &at}
}

func documentFileName(cvID, suggested string) string {
	ext := strings.ToLower(filepath.Ext(suggested))
	base := strings.TrimSuffix(suggested, filepath.Ext(suggested))
	if base == "" {
		base = "cv"
	}
	return fmt.Sprintf("cv_%s_%s%s", utils.CleanFilename(cvID, 40), utils.CleanFilename(base, 60), ext)
}

func isProfileURL(u string) bool {
	_, ok := CVIDFromURL(u)
	return ok
}

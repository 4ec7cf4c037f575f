// Package app wires the live pipeline: browser, portal, stores and runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-cvlibrary-scraper/internal/browser"
	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/database"
	"go-cvlibrary-scraper/internal/dedup"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/monitor"
	"go-cvlibrary-scraper/internal/ratelimit"
	"go-cvlibrary-scraper/internal/reporter"
	"go-cvlibrary-scraper/internal/runner"
	"go-cvlibrary-scraper/internal/scraper/cvlibrary"
	"go-cvlibrary-scraper/internal/session"
)

// Scrape runs one complete session against the live portal. index may be nil
// when the caller wants Scrape to open (and close) its own.
func Scrape(ctx context.Context, cfg *config.Config, criteria models.SearchCriteria, opts runner.Options, index database.Index, rep reporter.Reporter) (*models.SessionRecord, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withRunLimit(ctx, cfg.Session)
	defer cancel()

	pm, err := browser.NewPlaywright(ctx, browser.Options{
		Headless:  cfg.Browser.Headless,
		Timeout:   cfg.Browser.Timeout(),
		UserAgent: cfg.Browser.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	defer pm.Close()

	// Cookies older than the session timeout are ignored and a fresh login is made.
	cookieFile := cvlibrary.CookieFile(cfg)
	cookies, err := browser.LoadCookies(cookieFile, cfg.Session.Timeout(), time.Now())
	switch {
	case err == nil:
		slog.Info("🍪 loaded saved session cookies", "count", len(cookies))
	case errors.Is(err, os.ErrNotExist):
	case errors.Is(err, browser.ErrCookiesExpired):
		slog.Info("🍪 saved cookies expired, logging in fresh")
	default:
		slog.Warn("⚠️ could not load saved cookies, logging in fresh", "err", err)
	}

	sess, err := pm.OpenSession(cookies)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	limiter := ratelimit.New(cfg.RateLimit)
	portal := cvlibrary.NewCVLibraryScraper(cfg, sess, limiter)

	if index == nil {
		index, err = database.Open(ctx, cfg.Index)
		if err != nil {
			slog.Warn("⚠️ index unavailable, continuing without it", "driver", cfg.Index.Driver, "err", err)
		} else if index != nil {
			defer index.Close()
		}
	}

	seen := dedup.NewSeenCache(cfg.CachePath)
	slog.Debug("👀 seen cache loaded", "entries", seen.Len(), "dir", cfg.CachePath)

	mem := monitor.NewMemory()
	deps := runner.Deps{
		Portal:      portal,
		Credentials: creds,
		Pacer:       limiter,
		Sessions:    session.NewStore(cfg.Session.Path),
		Index:       index,
		Seen:        seen,
		Reporter:    rep,
		Recycler:    sess,
		Memory:      mem,
	}

	rec, runErr := runner.New(deps, opts).Run(ctx, criteria)

	if live, err := sess.Cookies(); err == nil && len(live) > 0 {
		if err := browser.SaveCookies(cookieFile, live, time.Now()); err != nil {
			slog.Warn("could not persist session cookies", "err", err)
		}
	}
	return rec, runErr
}

// withRunLimit bounds the whole run by session.max_run_seconds. The cookie
// lifetime in session.timeout_seconds does not limit the run.
func withRunLimit(ctx context.Context, s config.SessionConfig) (context.Context, context.CancelFunc) {
	limit := s.MaxRun()
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	slog.Info("⏰ run time limit set", "limit", limit)
	return context.WithTimeout(ctx, limit)
}

// Reporters builds the console reporter plus Telegram when configured.
func Reporters(cfg *config.Config, console bool) reporter.Reporter {
	var rs reporter.Multi
	if console {
		rs = append(rs, reporter.NewTableReporter(os.Stdout))
	}
	tg, err := reporter.NewTelegramReporter(cfg)
	if err != nil {
		slog.Warn("⚠️ telegram disabled", "err", err)
	} else if tg != nil {
		rs = append(rs, tg)
	}
	return rs
}

// ResumeFrom loads the session to resume, or returns nil for an empty id.
func ResumeFrom(cfg *config.Config, id string) (*models.SessionRecord, error) {
	if id == "" {
		return nil, nil
	}
	rec, err := session.NewStore(cfg.Session.Path).Load(id)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	return rec, nil
}

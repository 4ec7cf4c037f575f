package browser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Session is the context and main page a run works in. Recycle swaps both
// for fresh ones; callers must fetch Page() again afterwards.
type Session struct {
	mu       sync.Mutex
	manager  *PlaywrightManager
	bctx     playwright.BrowserContext
	page     playwright.Page
	recycles int
}

func (m *PlaywrightManager) OpenSession(cookies []playwright.OptionalCookie) (*Session, error) {
	bctx, err := m.NewContext(cookies)
	if err != nil {
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &Session{manager: m, bctx: bctx, page: page}, nil
}

func (s *Session) Page() playwright.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Recycle replaces the browser context, keeping its cookies.
func (s *Session) Recycle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bctx, err := s.manager.Recycle(s.bctx)
	if err != nil {
		return err
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return fmt.Errorf("could not create page after recycle: %w", err)
	}
	s.bctx, s.page = bctx, page
	s.recycles++
	slog.Info("♻️ browser context recycled", "count", s.recycles)
	return nil
}

func (s *Session) Recycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recycles
}

// Cookies returns the live cookies, e.g. to persist them at the end of a run.
func (s *Session) Cookies() ([]playwright.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bctx.Cookies()
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bctx == nil {
		return nil
	}
	err := s.bctx.Close()
	s.bctx, s.page = nil, nil
	return err
}

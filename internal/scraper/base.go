// Define the interface the runner drives
// Ensure every portal exposes login, search and extraction the same way

package scraper

import (
	"context"
	"errors"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/models"
)

var (
	// ErrLoginFailed aborts a run.
	ErrLoginFailed = errors.New("login failed")
	// ErrSessionExpired means the portal bounced an authenticated page back to login.
	ErrSessionExpired = errors.New("portal session expired")
	ErrNoProfileURL   = errors.New("search result has no profile url")
)

// Eligible decides whether a listed candidate should be returned by Search.
type Eligible func(models.SearchResult) bool

// Portal is a recruiting site that candidates can be pulled from.
type Portal interface {
	//Name is the portal name (CV-Library, ...)
	Name() string

	Login(ctx context.Context, creds config.Credentials) error

	// Search returns up to limit eligible results across as many listing pages
	// as needed, unique by CV id. SearchRank is the position in the listing,
	// so ineligible cards still take up a rank. A nil eligible accepts all.
	Search(ctx context.Context, criteria models.SearchCriteria, limit int, eligible Eligible) ([]models.SearchResult, error)

	Extract(ctx context.Context, result models.SearchResult) (*models.CandidateInfo, error)
}

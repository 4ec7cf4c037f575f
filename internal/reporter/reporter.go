package reporter

import (
	"context"
	"errors"

	"go-cvlibrary-scraper/internal/models"
)

// Reporter is told about every finished session.
type Reporter interface {
	Report(ctx context.Context, rec *models.SessionRecord) error
}

// Multi fans a session out to several reporters and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, rec *models.SessionRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package app

import (
	"context"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/reporter"
	"go-cvlibrary-scraper/internal/runner"
	"go-cvlibrary-scraper/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrape_MissingCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Username = ""

	rec, err := Scrape(context.Background(), cfg, models.SearchCriteria{Keywords: []string{"go"}}, runner.OptionsFromConfig(cfg), nil, nil)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Nil(t, rec)
}

func TestWithRunLimit(t *testing.T) {
	tests := []struct {
		name    string
		session config.SessionConfig
		want    time.Duration
	}{
		{name: "cookie lifetime alone sets no deadline", session: config.SessionConfig{TimeoutSeconds: 3600}},
		{name: "run limit", session: config.SessionConfig{TimeoutSeconds: 3600, MaxRunSeconds: 90}, want: 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := withRunLimit(context.Background(), tt.session)
			defer cancel()

			deadline, ok := ctx.Deadline()
			if tt.want == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(tt.want), deadline, 5*time.Second)
		})
	}
}

func TestResumeFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Path = t.TempDir()

	rec, err := ResumeFrom(cfg, "")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ResumeFrom(cfg, "session_20261017_090000_ab12cd")
	assert.ErrorIs(t, err, session.ErrNotFound)

	saved := models.NewSessionRecord("session_20261017_090000_ab12cd", models.SearchCriteria{Keywords: []string{"go"}}, time.Now())
	saved.Results.ProcessedCVIDs = []string{"41870012"}
	require.NoError(t, session.NewStore(cfg.Session.Path).Save(saved))

	rec, err = ResumeFrom(cfg, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"41870012"}, rec.Results.ProcessedCVIDs)
}

func TestReporters_WithoutTelegram(t *testing.T) {
	cfg := config.Default()

	rs, ok := Reporters(cfg, true).(reporter.Multi)
	require.True(t, ok)
	assert.Len(t, rs, 1)

	rs, ok = Reporters(cfg, false).(reporter.Multi)
	require.True(t, ok)
	assert.Empty(t, rs)
}

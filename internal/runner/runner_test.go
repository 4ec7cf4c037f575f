package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/database"
	"go-cvlibrary-scraper/internal/dedup"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/monitor"
	"go-cvlibrary-scraper/internal/scraper"
	"go-cvlibrary-scraper/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	mu        sync.Mutex
	loginErr  error
	searchErr error
	results   []models.SearchResult
	extract   func(res models.SearchResult) (*models.CandidateInfo, error)

	logins    int
	searches  int
	extracted []string
}

func (f *fakePortal) Name() string { return "fake" }

func (f *fakePortal) Login(context.Context, config.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

// Search walks the whole listing the way the portal pages through it,
// offering every card to eligible and stopping once limit are accepted.
func (f *fakePortal) Search(_ context.Context, _ models.SearchCriteria, limit int, eligible scraper.Eligible) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []models.SearchResult
	for _, res := range f.results {
		if len(out) >= limit {
			break
		}
		if eligible != nil && !eligible(res) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (f *fakePortal) Extract(_ context.Context, res models.SearchResult) (*models.CandidateInfo, error) {
	f.mu.Lock()
	f.extracted = append(f.extracted, res.CVID)
	f.mu.Unlock()
	if f.extract != nil {
		return f.extract(res)
	}
	return okProfile(res)
}

func okProfile(res models.SearchResult) (*models.CandidateInfo, error) {
	title := "Engineer"
	return &models.CandidateInfo{
		Name:               res.Name,
		MainSkills:         []string{"Go"},
		PersonalJobDetails: models.PersonalJobDetails{CurrentJobTitle: &title},
	}, nil
}

type countingPacer struct {
	waits, successes, errors int
}

func (p *countingPacer) Wait(ctx context.Context) error { p.waits++; return ctx.Err() }
func (p *countingPacer) OnSuccess()                     { p.successes++ }
func (p *countingPacer) OnError()                       { p.errors++ }

type fakeMemory struct {
	over    bool
	peak    float64
	samples int
}

func (m *fakeMemory) Sample() (float64, error)     { m.samples++; return m.peak, nil }
func (m *fakeMemory) Exceeded(int) (bool, float64) { m.samples++; return m.over, m.peak }
func (m *fakeMemory) PeakMB() float64              { return m.peak }

type countingRecycler struct{ n int }

func (r *countingRecycler) Recycle() error { r.n++; return nil }
func (r *countingRecycler) Recycles() int  { return r.n }

func results(n int) []models.SearchResult {
	out := make([]models.SearchResult, n)
	for i := range out {
		id := fmt.Sprintf("%d", 1000+i)
		out[i] = models.SearchResult{
			CVID:       id,
			Name:       "Candidate " + id,
			ProfileURL: "https://www.cv-library.co.uk/recruiter/cv/" + id,
			SearchRank: i + 1,
		}
	}
	return out
}

func newTestRunner(t *testing.T, deps Deps, opts Options) *Runner {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	if deps.Pacer == nil {
		deps.Pacer = &countingPacer{}
	}
	r := New(deps, opts)
	r.pause = 0
	return r
}

func candidateFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "candidate_*.json"))
	require.NoError(t, err)
	return matches
}

func criteria(quantity int) models.SearchCriteria {
	return models.SearchCriteria{Keywords: []string{"golang"}, Quantity: quantity}
}

func TestRun_FailureDoesNotStopLaterCandidates(t *testing.T) {
	portal := &fakePortal{
		results: results(4),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			if res.CVID == "1001" {
				return nil, errors.New("profile timed out")
			}
			return okProfile(res)
		},
	}
	pacer := &countingPacer{}
	dir := t.TempDir()
	r := newTestRunner(t, Deps{Portal: portal, Pacer: pacer}, Options{OutputDir: dir, SaveSummary: true})

	rec, err := r.Run(context.Background(), criteria(10))
	require.NoError(t, err)

	assert.True(t, rec.Success)
	assert.Equal(t, []string{"1000", "1001", "1002", "1003"}, portal.extracted)
	assert.Equal(t, 4, rec.Statistics.Attempted)
	assert.Equal(t, 3, rec.Statistics.Succeeded)
	assert.Equal(t, 1, rec.Statistics.Failed)
	assert.Equal(t, 75.0, rec.Statistics.SuccessRate)
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, "1001", rec.Errors[0].CVID)

	assert.Len(t, candidateFiles(t, dir), rec.Statistics.Succeeded)
	assert.Len(t, rec.Results.DownloadedFiles, rec.Statistics.Succeeded)
	assert.FileExists(t, filepath.Join(dir, "session_summary_"+rec.ID+".json"))

	assert.Equal(t, 1, pacer.errors)
	assert.Equal(t, 3, pacer.successes)
}

func TestRun_LoginFailureAbortsBeforeSearch(t *testing.T) {
	portal := &fakePortal{loginErr: fmt.Errorf("%w: bad password", scraper.ErrLoginFailed), results: results(3)}
	dir := t.TempDir()
	r := newTestRunner(t, Deps{Portal: portal}, Options{OutputDir: dir, SaveSummary: true})

	rec, err := r.Run(context.Background(), criteria(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, scraper.ErrLoginFailed))
	assert.Zero(t, portal.searches)
	require.NotNil(t, rec)
	assert.False(t, rec.Success)
	assert.Contains(t, rec.Error, "bad password")
	assert.Empty(t, candidateFiles(t, dir))
	assert.FileExists(t, filepath.Join(dir, "session_summary_"+rec.ID+".json"))
}

func TestRun_SearchFailure(t *testing.T) {
	portal := &fakePortal{searchErr: scraper.ErrSessionExpired}
	r := newTestRunner(t, Deps{Portal: portal}, Options{})

	rec, err := r.Run(context.Background(), criteria(3))
	assert.True(t, errors.Is(err, scraper.ErrSessionExpired))
	assert.False(t, rec.Success)
}

func TestRun_InvalidCriteria(t *testing.T) {
	r := newTestRunner(t, Deps{Portal: &fakePortal{}}, Options{})
	rec, err := r.Run(context.Background(), models.SearchCriteria{Keywords: []string{"  "}})
	assert.True(t, errors.Is(err, models.ErrInvalidCriteria))
	assert.Nil(t, rec)
}

func TestRun_StopsAtQuantity(t *testing.T) {
	portal := &fakePortal{
		results: results(5),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			if res.CVID == "1000" {
				return nil, errors.New("boom")
			}
			return okProfile(res)
		},
	}
	dir := t.TempDir()
	r := newTestRunner(t, Deps{Portal: &overfetchPortal{portal}}, Options{OutputDir: dir})

	rec, err := r.Run(context.Background(), criteria(2))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Statistics.Succeeded)
	assert.Equal(t, []string{"1000", "1001", "1002"}, portal.extracted)
	assert.Len(t, candidateFiles(t, dir), 2)
}

// overfetchPortal ignores the search limit.
type overfetchPortal struct{ *fakePortal }

func (o *overfetchPortal) Search(ctx context.Context, c models.SearchCriteria, _ int, eligible scraper.Eligible) ([]models.SearchResult, error) {
	return o.fakePortal.Search(ctx, c, len(o.results), eligible)
}

func TestRun_SkipsResumedAndSeen(t *testing.T) {
	portal := &fakePortal{results: results(4)}
	cacheDir := t.TempDir()
	seen := dedup.NewSeenCache(cacheDir)
	require.NoError(t, seen.Add("https://www.cv-library.co.uk/recruiter/cv/1001?search=old"))

	resume := models.NewSessionRecord("session_20261016_090000_aaaaaa", criteria(4), time.Now())
	resume.Results.ProcessedCVIDs = []string{"1000"}

	r := newTestRunner(t, Deps{Portal: portal, Seen: seen}, Options{Resume: resume})
	rec, err := r.Run(context.Background(), criteria(4))
	require.NoError(t, err)

	assert.Equal(t, []string{"1002", "1003"}, portal.extracted)
	assert.Equal(t, 2, rec.Statistics.Skipped)
	assert.Equal(t, 2, rec.Statistics.Succeeded)
	assert.True(t, seen.IsSeen("https://www.cv-library.co.uk/recruiter/cv/1003"), "saved candidates are remembered")
}

func TestRun_PagesPastSkippedCandidatesToReachQuantity(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		resumed   []string
		seen      []int
		quantity  int
		extracted []string
		skipped   int
	}{
		{
			name:      "resumed session covers the first cards",
			total:     6,
			resumed:   []string{"1000", "1001", "1002"},
			quantity:  3,
			extracted: []string{"1003", "1004", "1005"},
			skipped:   3,
		},
		{
			name:      "seen cache covers the first cards",
			total:     5,
			seen:      []int{0, 1},
			quantity:  3,
			extracted: []string{"1002", "1003", "1004"},
			skipped:   2,
		},
		{
			name:      "listing runs out",
			total:     4,
			resumed:   []string{"1000", "1001"},
			quantity:  3,
			extracted: []string{"1002", "1003"},
			skipped:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakePortal{results: results(tt.total)}
			seen := dedup.NewSeenCache(t.TempDir())
			for _, i := range tt.seen {
				require.NoError(t, seen.Add(portal.results[i].ProfileURL))
			}
			resume := models.NewSessionRecord("session_20261016_090000_bbbbbb", criteria(tt.quantity), time.Now())
			resume.Results.ProcessedCVIDs = tt.resumed

			r := newTestRunner(t, Deps{Portal: portal, Seen: seen}, Options{Resume: resume})
			rec, err := r.Run(context.Background(), criteria(tt.quantity))
			require.NoError(t, err)

			assert.Equal(t, tt.extracted, portal.extracted)
			assert.Equal(t, len(tt.extracted), rec.Statistics.Succeeded)
			assert.Equal(t, tt.skipped, rec.Statistics.Skipped)
		})
	}
}

func TestRun_SearchesAgainAfterFailures(t *testing.T) {
	portal := &fakePortal{
		results: results(5),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			if res.CVID == "1000" {
				return nil, errors.New("profile timed out")
			}
			return okProfile(res)
		},
	}
	r := newTestRunner(t, Deps{Portal: portal}, Options{})

	rec, err := r.Run(context.Background(), criteria(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "1001", "1002"}, portal.extracted, "failed and saved candidates are not retried")
	assert.Equal(t, 2, portal.searches)
	assert.Equal(t, 2, rec.Statistics.Succeeded)
	assert.Equal(t, 1, rec.Statistics.Failed)
	assert.Zero(t, rec.Statistics.Skipped)
}

func TestRun_SearchRoundsAreBounded(t *testing.T) {
	portal := &fakePortal{
		results: results(20),
		extract: func(models.SearchResult) (*models.CandidateInfo, error) {
			return nil, errors.New("profile timed out")
		},
	}
	r := newTestRunner(t, Deps{Portal: portal}, Options{})

	rec, err := r.Run(context.Background(), criteria(2))
	require.NoError(t, err)
	assert.Equal(t, maxSearchRounds, portal.searches)
	assert.Equal(t, 2*maxSearchRounds, rec.Statistics.Failed)
	assert.Zero(t, rec.Statistics.Succeeded)
}

func TestRun_UnlinkableCardsAreSkipped(t *testing.T) {
	portal := &fakePortal{results: results(4)}
	portal.results[1].CVID = "card_2_1760000000"
	portal.results[1].ProfileURL = ""

	r := newTestRunner(t, Deps{Portal: portal}, Options{})
	rec, err := r.Run(context.Background(), criteria(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"1000", "1002", "1003"}, portal.extracted)
	assert.Equal(t, 3, rec.Statistics.Succeeded)
	assert.Equal(t, 1, rec.Statistics.Skipped)
	assert.Zero(t, rec.Statistics.Failed)
}

func TestRun_IncludeSeen(t *testing.T) {
	portal := &fakePortal{results: results(2)}
	seen := dedup.NewSeenCache(t.TempDir())
	require.NoError(t, seen.Add(portal.results[0].ProfileURL, portal.results[1].ProfileURL))

	r := newTestRunner(t, Deps{Portal: portal, Seen: seen}, Options{IncludeSeen: true})
	rec, err := r.Run(context.Background(), criteria(2))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Statistics.Succeeded)
}

func TestRun_FilteredCandidatesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "cv_1000_resume.pdf")
	require.NoError(t, os.WriteFile(docPath, []byte("%PDF"), 0o644))

	portal := &fakePortal{
		results: results(2),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			info, err := okProfile(res)
			if res.CVID == "1000" {
				info.CVDocument = &models.CVDocument{Status: models.DownloadCompleted, FilePath: &docPath}
			}
			return info, err
		},
	}
	match := "30% match"
	portal.results[0].ProfileMatchPercentage = &match

	c := criteria(2)
	c.MinimumMatch = 50
	r := newTestRunner(t, Deps{Portal: portal}, Options{OutputDir: dir})

	rec, err := r.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Statistics.Skipped, "a filtered candidate is counted once across search rounds")
	assert.Equal(t, 1, rec.Statistics.Succeeded)
	assert.Len(t, candidateFiles(t, dir), 1)
	assert.NoFileExists(t, docPath, "documents of filtered candidates are removed")
}

func TestRun_WriteFailureBacksOff(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	blocked := models.CandidateRecord{
		SearchResult: models.SearchResult{CVID: "1000"},
		Metadata:     models.Metadata{ExtractionTimestamp: fixed},
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, blocked.FileName()+".tmp"), 0o755))

	portal := &fakePortal{results: results(1)}
	pacer := &countingPacer{}
	r := newTestRunner(t, Deps{Portal: portal, Pacer: pacer}, Options{OutputDir: dir})
	r.now = func() time.Time { return fixed }

	rec, err := r.Run(context.Background(), criteria(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Statistics.Failed)
	assert.Equal(t, 1, pacer.errors)
	assert.Zero(t, pacer.successes)
}

func TestRun_ReloginOnExpiredSession(t *testing.T) {
	calls := 0
	portal := &fakePortal{
		results: results(1),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			calls++
			if calls == 1 {
				return nil, scraper.ErrSessionExpired
			}
			return okProfile(res)
		},
	}
	r := newTestRunner(t, Deps{Portal: portal}, Options{})

	rec, err := r.Run(context.Background(), criteria(1))
	require.NoError(t, err)
	assert.Equal(t, 2, portal.logins)
	assert.Equal(t, 1, rec.Statistics.Succeeded)
}

func TestRun_CancelledRunStillWritesSummary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	portal := &fakePortal{
		results: results(5),
		extract: func(res models.SearchResult) (*models.CandidateInfo, error) {
			if res.CVID == "1001" {
				cancel()
			}
			return okProfile(res)
		},
	}
	dir := t.TempDir()
	store := session.NewStore(t.TempDir())
	r := newTestRunner(t, Deps{Portal: portal, Sessions: store}, Options{OutputDir: dir, SaveSummary: true, SaveSession: true})

	rec, err := r.Run(ctx, criteria(5))
	require.NoError(t, err)
	assert.Less(t, rec.Statistics.Succeeded, 5)
	assert.FileExists(t, filepath.Join(dir, "session_summary_"+rec.ID+".json"))

	saved, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Statistics.Succeeded, saved.Statistics.Succeeded)
	assert.Empty(t, rec.Error, "a cancelled run is not an error")
}

func TestRun_RunDeadlineIsRecorded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	dir := t.TempDir()
	portal := &fakePortal{results: results(3)}
	r := newTestRunner(t, Deps{Portal: portal}, Options{OutputDir: dir, SaveSummary: true})

	rec, err := r.Run(ctx, criteria(3))
	require.NoError(t, err)
	assert.Equal(t, "run time limit reached", rec.Error)
	assert.Empty(t, portal.extracted)
	assert.FileExists(t, filepath.Join(dir, "session_summary_"+rec.ID+".json"))
}

func TestRun_MemoryRecycle(t *testing.T) {
	portal := &fakePortal{results: results(3)}
	mem := &fakeMemory{over: true, peak: 2048}
	rc := &countingRecycler{}
	r := newTestRunner(t, Deps{Portal: portal, Memory: mem, Recycler: rc}, Options{MemoryLimitMB: 1024})

	rec, err := r.Run(context.Background(), criteria(3))
	require.NoError(t, err)
	assert.Equal(t, 3, rc.n)
	assert.Equal(t, 3, rec.Resources.PageRecycles)
	assert.Equal(t, 2048.0, rec.Resources.PeakMemoryMB)
}

func TestRun_MemoryCheckedAfterEveryAttempt(t *testing.T) {
	tests := []struct {
		name     string
		results  int
		extract  func(models.SearchResult) (*models.CandidateInfo, error)
		limitMB  int
		recycles int
	}{
		{
			name:    "failed candidates",
			results: 3,
			extract: func(models.SearchResult) (*models.CandidateInfo, error) {
				return nil, errors.New("profile timed out")
			},
			limitMB:  1,
			recycles: 3,
		},
		{
			name:     "no candidates found",
			results:  0,
			limitMB:  1,
			recycles: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakePortal{results: results(tt.results), extract: tt.extract}
			rc := &countingRecycler{}
			r := newTestRunner(t, Deps{Portal: portal, Memory: monitor.NewMemory(), Recycler: rc}, Options{MemoryLimitMB: tt.limitMB})

			rec, err := r.Run(context.Background(), criteria(3))
			require.NoError(t, err)
			assert.Equal(t, tt.recycles, rc.n)
			assert.Equal(t, tt.recycles, rec.Resources.PageRecycles)
			assert.Greater(t, rec.Resources.PeakMemoryMB, 0.0, "the peak is sampled before the session closes")
		})
	}
}

func TestRun_IndexesSessionAndCandidates(t *testing.T) {
	ctx := context.Background()
	idx, err := database.Open(ctx, config.IndexConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	defer idx.Close()

	portal := &fakePortal{results: results(2)}
	r := newTestRunner(t, Deps{Portal: portal, Index: idx}, Options{})
	rec, err := r.Run(ctx, criteria(2))
	require.NoError(t, err)

	got, err := idx.GetSession(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Succeeded)

	seen, err := idx.CandidateSeen(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, seen)

	// a second run skips what the index already holds
	portal2 := &fakePortal{results: results(2)}
	rec2, err := newTestRunner(t, Deps{Portal: portal2, Index: idx}, Options{}).Run(ctx, criteria(2))
	require.NoError(t, err)
	assert.Empty(t, portal2.extracted)
	assert.Equal(t, 2, rec2.Statistics.Skipped)
}

func TestRun_OutputLocked(t *testing.T) {
	dir := t.TempDir()
	first := newTestRunner(t, Deps{Portal: &fakePortal{}}, Options{OutputDir: dir})
	blocker := &fakePortal{results: results(1)}
	blocker.extract = func(res models.SearchResult) (*models.CandidateInfo, error) {
		_, err := first.Run(context.Background(), criteria(1))
		assert.ErrorContains(t, err, "in use")
		return okProfile(res)
	}

	rec, err := newTestRunner(t, Deps{Portal: blocker}, Options{OutputDir: dir}).Run(context.Background(), criteria(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Statistics.Succeeded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"))
	}
}

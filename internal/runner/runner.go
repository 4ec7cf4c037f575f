package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/database"
	"go-cvlibrary-scraper/internal/filter"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/output"
	"go-cvlibrary-scraper/internal/ratelimit"
	"go-cvlibrary-scraper/internal/reporter"
	"go-cvlibrary-scraper/internal/scraper"
	"go-cvlibrary-scraper/internal/session"
)

// Pacer spaces out portal requests and backs off after failures.
type Pacer interface {
	Wait(ctx context.Context) error
	OnSuccess()
	OnError()
}

// Recycler swaps the browser context for a fresh one and counts the swaps.
type Recycler interface {
	Recycle() error
	Recycles() int
}

type MemoryMonitor interface {
	Sample() (float64, error)
	Exceeded(limitMB int) (bool, float64)
	PeakMB() float64
}

type SeenStore interface {
	IsSeen(profileURL string) bool
	Add(profileURLs ...string) error
}

// Deps are the collaborators of a run. Only Portal and Pacer are required.
type Deps struct {
	Portal      scraper.Portal
	Credentials config.Credentials
	Pacer       Pacer
	Sessions    *session.Store
	Index       database.Index
	Seen        SeenStore
	Reporter    reporter.Reporter
	Recycler    Recycler
	Memory      MemoryMonitor
}

type Options struct {
	OutputDir     string
	SaveSummary   bool
	SaveSession   bool
	IncludeSeen   bool
	MemoryLimitMB int
	// Resume skips every cv_id the earlier session already processed.
	Resume *models.SessionRecord
}

// OptionsFromConfig maps the config file onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:     cfg.Download.Path,
		SaveSummary:   cfg.Download.SaveSummary,
		SaveSession:   cfg.Session.Save,
		IncludeSeen:   cfg.Download.IncludeSeen,
		MemoryLimitMB: cfg.MemoryLimitMB,
	}
}

type Runner struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	pause time.Duration
}

func New(deps Deps, opts Options) *Runner {
	return &Runner{deps: deps, opts: opts, now: time.Now, pause: 500 * time.Millisecond}
}

// Run logs in, searches and saves up to criteria.Quantity candidates,
// searching again when earlier picks fail or are filtered out. The
// returned record is never nil once the output directory is locked; it is
// finalised, saved and reported even when ctx is cancelled mid-run.
func (r *Runner) Run(ctx context.Context, criteria models.SearchCriteria) (*models.SessionRecord, error) {
	criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	out, err := output.Open(r.opts.OutputDir)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	rec := models.NewSessionRecord(session.NewID(r.now()), criteria, r.now())
	log := slog.With("session", rec.ID)
	log.Info("🚀 starting scrape", "portal", r.deps.Portal.Name(), "keywords", criteria.KeywordQuery(),
		"location", criteria.Location, "quantity", criteria.Quantity)

	runErr := r.scrape(ctx, log, rec, out, criteria)
	r.finish(ctx, log, rec, out)
	return rec, runErr
}

// maxSearchRounds bounds how often the listing is searched again when
// candidates fail or are filtered out after their profile was read.
const maxSearchRounds = 3

func (r *Runner) scrape(ctx context.Context, log *slog.Logger, rec *models.SessionRecord, out *output.Writer, criteria models.SearchCriteria) error {
	if err := r.deps.Portal.Login(ctx, r.deps.Credentials); err != nil {
		rec.Error = err.Error()
		log.Error("❌ authentication failed, aborting", "err", err)
		return fmt.Errorf("login: %w", err)
	}

	passed := make(map[string]bool)
	eligible := r.eligibility(ctx, log, rec, passed)
	relogged := false

	for round := 1; round <= maxSearchRounds; round++ {
		want := criteria.Quantity - rec.Statistics.Succeeded
		if want <= 0 {
			break
		}
		results, err := r.deps.Portal.Search(ctx, criteria, want, eligible)
		if err != nil {
			if round == 1 {
				rec.Error = err.Error()
				log.Error("❌ search failed, aborting", "err", err)
				return fmt.Errorf("search: %w", err)
			}
			if ctx.Err() != nil {
				return r.interrupted(ctx, log, rec)
			}
			log.Warn("⚠️ follow-up search failed, keeping what was saved", "round", round, "err", err)
			break
		}
		rec.Success = true
		log.Info("📋 search returned candidates", "round", round, "count", len(results), "wanted", want)

		for _, res := range results {
			if ctx.Err() != nil {
				return r.interrupted(ctx, log, rec)
			}
			if rec.Statistics.Succeeded >= criteria.Quantity {
				break
			}
			stop := r.process(ctx, log, rec, out, criteria, res, &relogged, passed)
			r.checkMemory(log)
			if stop {
				return r.interrupted(ctx, log, rec)
			}
		}
		if len(results) < want {
			break
		}
	}
	return nil
}

// eligibility decides during the search which cards are worth opening.
// Cards rejected for a reason count as skipped once; cards this session has
// already handled are dropped silently so a later search round moves on.
func (r *Runner) eligibility(ctx context.Context, log *slog.Logger, rec *models.SessionRecord, passed map[string]bool) scraper.Eligible {
	resumed := r.resumedIDs()
	return func(res models.SearchResult) bool {
		key := skipKey(res)
		if passed[key] || rec.Processed(res.CVID) {
			return false
		}
		var reason string
		switch {
		case res.ProfileURL == "":
			reason = "no profile link"
		case resumed[res.CVID]:
			reason = "processed in resumed session"
		case r.alreadySeen(ctx, res):
			reason = "seen in an earlier run"
		default:
			return true
		}
		passed[key] = true
		rec.RecordSkip()
		log.Debug("⏭ skipping candidate", "cv_id", res.CVID, "rank", res.SearchRank, "reason", reason)
		return false
	}
}

// skipKey identifies a card across search rounds. Cards without a profile
// link only carry a generated id, so their listing position is used.
func skipKey(res models.SearchResult) string {
	if res.ProfileURL == "" {
		return fmt.Sprintf("rank:%d", res.SearchRank)
	}
	return res.CVID
}

// process extracts, filters and saves one candidate. It reports true when
// ctx ended and the run should stop.
func (r *Runner) process(ctx context.Context, log *slog.Logger, rec *models.SessionRecord, out *output.Writer,
	criteria models.SearchCriteria, res models.SearchResult, relogged *bool, passed map[string]bool) bool {
	if err := r.deps.Pacer.Wait(ctx); err != nil {
		return true
	}

	info, err := r.deps.Portal.Extract(ctx, res)
	if errors.Is(err, scraper.ErrSessionExpired) && !*relogged {
		*relogged = true
		log.Warn("🔐 portal session expired, logging in again")
		if lerr := r.deps.Portal.Login(ctx, r.deps.Credentials); lerr == nil {
			info, err = r.deps.Portal.Extract(ctx, res)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.Warn("⚠️ candidate failed", "cv_id", res.CVID, "name", res.Name, "err", err)
		rec.RecordFailure(res, err, r.now())
		r.deps.Pacer.OnError()
		return false
	}

	if ok, reason := filter.ShouldIncludeCandidate(res, info, criteria, r.now()); !ok {
		log.Info("🚫 candidate filtered out", "cv_id", res.CVID, "reason", reason)
		rec.RecordSkip()
		passed[skipKey(res)] = true
		discardDocument(log, info)
		r.deps.Pacer.OnSuccess()
		return false
	}

	record := models.CandidateRecord{
		SearchResult:  res,
		CandidateInfo: *info,
		Metadata: models.Metadata{
			ExtractionTimestamp: r.now().UTC(),
			DataCompleteness:    filter.CompletenessScore(info),
			SessionID:           rec.ID,
			ExtractorVersion:    models.ExtractorVersion,
		},
	}
	path, err := out.WriteCandidate(&record)
	if err != nil {
		log.Error("could not write candidate file", "cv_id", res.CVID, "err", err)
		rec.RecordFailure(res, err, r.now())
		r.deps.Pacer.OnError()
		return false
	}
	rec.RecordSuccess(record, path)
	r.deps.Pacer.OnSuccess()
	log.Info("✅ saved candidate", "cv_id", res.CVID, "name", info.Name,
		"completeness", record.Metadata.DataCompleteness, "progress", fmt.Sprintf("%d/%d", rec.Statistics.Succeeded, criteria.Quantity))

	r.remember(ctx, log, record, path)
	return ratelimit.Pause(ctx, r.pause) != nil
}

// interrupted records why the run stopped early. A hit run deadline is
// reported as the session error; a cancellation is not.
func (r *Runner) interrupted(ctx context.Context, log *slog.Logger, rec *models.SessionRecord) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		rec.Error = "run time limit reached"
		log.Warn("⏰ run time limit reached, finishing session", "processed", rec.Statistics.Attempted)
		return nil
	}
	log.Warn("⏹ interrupted, finishing session", "processed", rec.Statistics.Attempted)
	return nil
}

func discardDocument(log *slog.Logger, info *models.CandidateInfo) {
	doc := info.CVDocument
	if doc == nil || doc.FilePath == nil {
		return
	}
	if err := os.Remove(*doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove document of filtered candidate", "path", *doc.FilePath, "err", err)
	}
}

func (r *Runner) resumedIDs() map[string]bool {
	ids := make(map[string]bool)
	if r.opts.Resume == nil {
		return ids
	}
	for _, id := range r.opts.Resume.Results.ProcessedCVIDs {
		ids[id] = true
	}
	slog.Info("↩️ resuming session", "from", r.opts.Resume.ID, "skip", len(ids))
	return ids
}

func (r *Runner) alreadySeen(ctx context.Context, res models.SearchResult) bool {
	if r.opts.IncludeSeen {
		return false
	}
	if r.deps.Seen != nil && res.ProfileURL != "" && r.deps.Seen.IsSeen(res.ProfileURL) {
		return true
	}
	if r.deps.Index != nil {
		seen, err := r.deps.Index.CandidateSeen(ctx, res.CVID)
		if err != nil {
			slog.Debug("index lookup failed", "cv_id", res.CVID, "err", err)
			return false
		}
		return seen
	}
	return false
}

func (r *Runner) remember(ctx context.Context, log *slog.Logger, record models.CandidateRecord, path string) {
	if r.deps.Index != nil {
		if err := r.deps.Index.SaveCandidate(ctx, models.NewIndexedCandidate(record, path)); err != nil {
			log.Warn("could not index candidate", "cv_id", record.SearchResult.CVID, "err", err)
		}
	}
	if r.deps.Seen != nil && record.SearchResult.ProfileURL != "" {
		if err := r.deps.Seen.Add(record.SearchResult.ProfileURL); err != nil {
			log.Warn("could not update seen cache", "err", err)
		}
	}
}

func (r *Runner) checkMemory(log *slog.Logger) {
	if r.deps.Memory == nil {
		return
	}
	over, mb := r.deps.Memory.Exceeded(r.opts.MemoryLimitMB)
	if !over {
		return
	}
	log.Warn("🧠 memory above limit, recycling browser context", "mb", fmt.Sprintf("%.0f", mb), "limit_mb", r.opts.MemoryLimitMB)
	if r.deps.Recycler != nil {
		if err := r.deps.Recycler.Recycle(); err != nil {
			log.Warn("browser recycle failed", "err", err)
			return
		}
	}
	runtime.GC()
}

// finish runs with a context that survives cancellation so an interrupted
// session is still written.
func (r *Runner) finish(ctx context.Context, log *slog.Logger, rec *models.SessionRecord, out *output.Writer) {
	ctx = context.WithoutCancel(ctx)
	rec.Finish(r.now())
	if r.deps.Memory != nil {
		if _, err := r.deps.Memory.Sample(); err != nil {
			log.Debug("memory sample failed", "err", err)
		}
		rec.Resources.PeakMemoryMB = r.deps.Memory.PeakMB()
	}
	if r.deps.Recycler != nil {
		rec.Resources.PageRecycles = r.deps.Recycler.Recycles()
	}

	if r.opts.SaveSummary {
		if path, err := out.WriteSession(rec); err != nil {
			log.Error("could not write session summary", "err", err)
		} else {
			log.Info("📄 session summary written", "path", path)
		}
	}
	if r.opts.SaveSession && r.deps.Sessions != nil {
		if err := r.deps.Sessions.Save(rec); err != nil {
			log.Warn("could not save session", "err", err)
		}
	}
	if r.deps.Index != nil {
		if err := r.deps.Index.SaveSession(ctx, models.NewIndexedSession(rec)); err != nil {
			log.Warn("could not index session", "err", err)
		}
	}
	if r.deps.Reporter != nil {
		if err := r.deps.Reporter.Report(ctx, rec); err != nil {
			log.Warn("reporter failed", "err", err)
		}
	}

	st := rec.Statistics
	log.Info("🏁 session finished", "success", rec.Success, "saved", st.Succeeded, "failed", st.Failed,
		"skipped", st.Skipped, "success_rate", st.SuccessRate, "duration_s", st.DurationSeconds)
}

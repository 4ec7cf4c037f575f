package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-cvlibrary-scraper/internal/app"
	"go-cvlibrary-scraper/internal/logging"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/runner"

	"github.com/spf13/cobra"
)

var (
	criteria models.SearchCriteria

	headless      bool
	outputDir     string
	resumeSession string
	saveSession   bool
	saveSummary   bool
	includeSeen   bool
	downloadCV    bool
	maxRunSeconds int
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringArrayVar(&criteria.Keywords, "keywords", nil, "search keywords (repeatable)")
	f.StringVar(&criteria.Location, "location", "", "town, city or postcode")
	f.IntVar(&criteria.Quantity, "quantity", models.DefaultQuantity, "number of candidates to save")

	f.IntVar(&criteria.SalaryMin, "salary-min", 0, "minimum expected salary")
	f.IntVar(&criteria.SalaryMax, "salary-max", 0, "maximum expected salary")
	f.StringSliceVar(&criteria.JobTypes, "job-type", nil, "permanent, contract, temporary, part time (repeatable)")
	f.StringSliceVar(&criteria.Industries, "industry", nil, "industry filter (repeatable)")
	f.IntVar(&criteria.Distance, "distance", 0, "search radius in miles")
	f.IntVar(&criteria.TimePeriod, "time-period", 0, "only CVs updated in the last N days")
	f.BoolVar(&criteria.WillingToRelocate, "relocate", false, "only candidates willing to relocate")
	f.BoolVar(&criteria.UKDrivingLicence, "driving-licence", false, "only candidates with a UK driving licence")
	f.BoolVar(&criteria.HideRecentlyViewed, "hide-recently-viewed", false, "hide CVs viewed recently on the portal")
	f.StringSliceVar(&criteria.Languages, "language", nil, "spoken language filter (repeatable)")
	f.IntVar(&criteria.MinimumMatch, "minimum-match", 0, "drop results below this match percentage")
	f.StringVar(&criteria.SortOrder, "sort", models.SortRelevancy, `"relevancy desc", "updated desc" or "distance asc"`)
	f.StringVar(&criteria.MustHaveKeywords, "must-have", "", "keywords every CV must contain")
	f.StringVar(&criteria.AnyKeywords, "any-keywords", "", "keywords of which a CV must contain at least one")
	f.StringVar(&criteria.NoneKeywords, "none-keywords", "", "keywords that exclude a CV")

	f.BoolVar(&headless, "headless", true, "run the browser without a window")
	f.StringVar(&outputDir, "output-dir", "", "directory for candidate JSON files (default from config)")
	f.StringVar(&resumeSession, "resume-session", "", "skip candidates already processed by this session id")
	f.BoolVar(&saveSession, "save-session", true, "persist the session record for later resume")
	f.BoolVar(&saveSummary, "save-summary", true, "write session_summary_<id>.json into the output directory")
	f.BoolVar(&includeSeen, "include-seen", false, "also save candidates seen in earlier runs")
	f.BoolVar(&downloadCV, "download-cv", false, "also save the CV document offered on each profile")
	f.IntVar(&maxRunSeconds, "max-run-seconds", 0, "stop the run after this many seconds (0 = no limit)")

	_ = runCmd.MarkFlagRequired("keywords")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Logs in, searches and saves candidate profiles.",
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		if flags.Changed("headless") {
			cfg.Browser.Headless = headless
		}
		if outputDir != "" {
			cfg.Download.Path = outputDir
		}
		if flags.Changed("save-session") {
			cfg.Session.Save = saveSession
		}
		if flags.Changed("save-summary") {
			cfg.Download.SaveSummary = saveSummary
		}
		if flags.Changed("include-seen") {
			cfg.Download.IncludeSeen = includeSeen
		}
		if flags.Changed("download-cv") {
			cfg.Download.DownloadCV = downloadCV
		}
		if flags.Changed("max-run-seconds") {
			cfg.Session.MaxRunSeconds = maxRunSeconds
		}

		v := cfg.Validate(true)
		for _, w := range v.Warnings {
			slog.Warn("⚠️ " + w)
		}
		if err := v.Err(); err != nil {
			logging.Fatal("❌ invalid configuration", err)
		}

		if limit := cfg.Download.MaxPerSession; limit > 0 && criteria.Quantity > limit {
			slog.Warn("⚠️ quantity capped by download.max_per_session", "requested", criteria.Quantity, "max", limit)
			criteria.Quantity = limit
		}

		opts := runner.OptionsFromConfig(cfg)
		resume, err := app.ResumeFrom(cfg, resumeSession)
		if err != nil {
			logging.Fatal("❌ cannot resume", err)
		}
		opts.Resume = resume

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rec, err := app.Scrape(ctx, cfg, criteria, opts, nil, app.Reporters(cfg, true))
		if err != nil {
			stop()
			logging.Fatal("❌ scrape failed", err)
		}
		slog.Info("🏁 done", "session", rec.ID, "saved", rec.Statistics.Succeeded, "output", cfg.Download.Path)
	},
}

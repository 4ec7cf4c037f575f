package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go-cvlibrary-scraper/internal/session"
	"go-cvlibrary-scraper/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cleanupDays int

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsCleanupCmd)

	sessionsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "remove sessions older than this many days (default session.retention_days)")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Lists, shows and cleans up saved scrape sessions.",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints saved sessions, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := session.NewStore(cfg.Session.Path).List()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No saved sessions in", cfg.Session.Path)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Session", "Started", "Keywords", "Saved", "Failed", "Skipped", "OK"})
		for _, r := range recs {
			t.AppendRow(table.Row{
				r.ID,
				r.Statistics.StartTime.Local().Format(time.DateTime),
				strings.Join(r.Criteria.Keywords, ", "),
				r.Statistics.Succeeded,
				r.Statistics.Failed,
				r.Statistics.Skipped,
				r.Success,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Prints one saved session with its failures.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := session.NewStore(cfg.Session.Path).Load(args[0])
		if err != nil {
			return err
		}
		st := rec.Statistics

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(rec.ID)
		t.AppendRows([]table.Row{
			{"Keywords", strings.Join(rec.Criteria.Keywords, ", ")},
			{"Location", rec.Criteria.Location},
			{"Quantity", rec.Criteria.Quantity},
			{"Started", st.StartTime.Local().Format(time.DateTime)},
			{"Duration", utils.FormatDuration(time.Duration(st.DurationSeconds * float64(time.Second)))},
			{"Attempted", st.Attempted},
			{"Succeeded", st.Succeeded},
			{"Failed", st.Failed},
			{"Skipped", st.Skipped},
			{"Success rate", fmt.Sprintf("%.1f%%", st.SuccessRate)},
			{"Peak memory", fmt.Sprintf("%.1f MB", rec.Resources.PeakMemoryMB)},
			{"Page recycles", rec.Resources.PageRecycles},
		})
		if rec.Error != "" {
			t.AppendRow(table.Row{"Error", rec.Error})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if len(rec.Errors) == 0 {
			return nil
		}
		e := table.NewWriter()
		e.SetOutputMirror(os.Stdout)
		e.AppendHeader(table.Row{"CV ID", "Name", "Error"})
		for _, ce := range rec.Errors {
			e.AppendRow(table.Row{ce.CVID, ce.Name, ce.Message})
		}
		e.SetStyle(table.StyleRounded)
		e.Render()
		return nil
	},
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deletes saved sessions older than the retention period.",
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cleanupDays
		if days <= 0 {
			days = cfg.Session.RetentionDays
		}
		n, err := session.NewStore(cfg.Session.Path).Cleanup(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return err
		}
		slog.Info("🧹 removed old sessions", "count", n, "older_than_days", days)
		return nil
	},
}

package reporter

import (
	"context"
	"fmt"
	"io"

	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/utils"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableReporter prints a console summary of the session.
type TableReporter struct {
	out io.Writer
}

func NewTableReporter(out io.Writer) *TableReporter {
	return &TableReporter{out: out}
}

func (r *TableReporter) Report(_ context.Context, rec *models.SessionRecord) error {
	st := rec.Statistics

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("Session " + rec.ID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Keywords", rec.Criteria.KeywordQuery()},
		{"Location", rec.Criteria.Location},
		{"Status", status(rec)},
		{"Attempted", st.Attempted},
		{"Saved", st.Succeeded},
		{"Failed", st.Failed},
		{"Skipped", st.Skipped},
		{"Success rate", fmt.Sprintf("%.1f%%", st.SuccessRate)},
		{"Avg per candidate", fmt.Sprintf("%.2fs", st.AverageSecondsPerCandidate)},
		{"Duration", utils.FormatDuration(st.EndTime.Sub(st.StartTime))},
		{"Peak memory", fmt.Sprintf("%.0f MB", rec.Resources.PeakMemoryMB)},
		{"Page recycles", rec.Resources.PageRecycles},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(rec.Errors) > 0 {
		et := table.NewWriter()
		et.SetOutputMirror(r.out)
		et.SetTitle("Failures")
		et.AppendHeader(table.Row{"CV", "Name", "Error"})
		for _, e := range rec.Errors {
			et.AppendRow(table.Row{e.CVID, e.Name, e.Message})
		}
		et.SetStyle(table.StyleRounded)
		et.Render()
	}
	return nil
}

func status(rec *models.SessionRecord) string {
	if rec.Success {
		return "success"
	}
	if rec.Error != "" {
		return "failed: " + rec.Error
	}
	return "failed"
}

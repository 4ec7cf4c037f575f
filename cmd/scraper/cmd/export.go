package cmd

import (
	"context"
	"log/slog"

	"go-cvlibrary-scraper/internal/browser"
	"go-cvlibrary-scraper/internal/pdf"

	"github.com/spf13/cobra"
)

var exportDir string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "export every candidate_*.json in this directory (default download.path)")
}

var exportCmd = &cobra.Command{
	Use:   "export-pdf [candidate.json ...]",
	Short: "Renders saved candidate records as PDF sheets next to the JSON files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		files := args
		if len(files) == 0 {
			dir := exportDir
			if dir == "" {
				dir = cfg.Download.Path
			}
			found, err := pdf.CandidateFiles(dir)
			if err != nil {
				return err
			}
			files = found
		}
		if len(files) == 0 {
			slog.Info("no candidate files to export")
			return nil
		}

		pm, err := browser.NewPlaywright(context.Background(), browser.Options{
			Headless: true,
			Timeout:  cfg.Browser.Timeout(),
		})
		if err != nil {
			return err
		}
		defer pm.Close()
		bctx, err := pm.NewContext(nil)
		if err != nil {
			return err
		}
		defer bctx.Close()

		gen, err := pdf.NewGenerator(bctx.NewPage)
		if err != nil {
			return err
		}

		exported := 0
		for _, f := range files {
			out, err := gen.ExportFile(f)
			if err != nil {
				slog.Error("❌ export failed", "file", f, "err", err)
				continue
			}
			exported++
			slog.Debug("📄 exported", "pdf", out)
		}
		slog.Info("📄 PDF export finished", "exported", exported, "total", len(files))
		return nil
	},
}

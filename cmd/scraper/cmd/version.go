package cmd

import (
	"fmt"
	"runtime"

	"go-cvlibrary-scraper/internal/models"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the build version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cvscraper %s (extractor %s, %s %s/%s)\n",
			Version, models.ExtractorVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks the config file and that portal credentials resolve.",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := cfg.Validate(true)
		if _, err := cfg.Credentials(); err != nil {
			v.Errors = append(v.Errors, err.Error())
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Level", "Message"})
		for _, e := range v.Errors {
			t.AppendRow(table.Row{"error", e})
		}
		for _, w := range v.Warnings {
			t.AppendRow(table.Row{"warning", w})
		}
		if len(v.Errors)+len(v.Warnings) > 0 {
			t.SetStyle(table.StyleRounded)
			t.Render()
		}

		if err := v.Err(); err != nil {
			return err
		}
		fmt.Printf("✅ configuration OK (%s)\n", configPath)
		return nil
	},
}

package main

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/TimeCyber/DeepManus/app"
	"github.com/TimeCyber/DeepManus/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg, app.WithLogger(newLogger(cfg.Debug)))
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Name", "Description")
	for _, tool := range tools.List() {
		table.Append([]string{tool.Name, tool.Description})
	}
	return table.Render()
}

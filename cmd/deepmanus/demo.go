package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TimeCyber/DeepManus/app"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in scripted research graph",
	Long: `Run a scripted coordinator, planner, researcher and reporter graph in-process.
With --url the researcher crawls the page through crawl_tool.`,
	RunE: runDemo,
}

var (
	demoFlags requestFlags
	demoURL   string
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoFlags.register(demoCmd)
	demoCmd.Flags().StringVar(&demoURL, "url", "", "page for the researcher to crawl")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Upstream.Endpoint = ""

	req := demoFlags.request()
	if len(req.Messages) == 0 {
		return errNoMessages
	}
	return execute(ctx, cfg, newPrinter(cmd.OutOrStdout(), demoFlags.summary), req, app.WithDemoURL(demoURL))
}

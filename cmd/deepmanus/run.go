package main

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TimeCyber/DeepManus/app"
	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/server"
	"github.com/TimeCyber/DeepManus/source"
	"github.com/TimeCyber/DeepManus/workflow"
)

var errNoMessages = errors.New("at least one --message is required")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one workflow and print its events",
	Long: `Run a workflow against a recorded event log (--replay), a remote graph
(--upstream) or a remote deepmanus server (--connect), printing each normalized
event as a JSON line or, with --summary, a table of event counts.`,
	RunE: runRun,
}

type requestFlags struct {
	messages     []string
	team         []string
	deepThinking bool
	search       bool
	summary      bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.messages, "message", "m", nil, "user message (repeatable)")
	cmd.Flags().StringSliceVar(&f.team, "team", nil, "team members whose events are forwarded")
	cmd.Flags().BoolVar(&f.deepThinking, "deep-thinking", false, "enable deep thinking mode")
	cmd.Flags().BoolVar(&f.search, "search-before-planning", false, "search before planning")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "print an event count table instead of events")
}

func (f *requestFlags) request() workflow.Request {
	req := workflow.Request{
		DeepThinking:         f.deepThinking,
		SearchBeforePlanning: f.search,
		TeamMembers:          f.team,
	}
	for _, m := range f.messages {
		req.Messages = append(req.Messages, protocol.NewMessage(protocol.RoleUser, m))
	}
	return req
}

var (
	runFlags    requestFlags
	replayPath  string
	upstreamURL string
	connectURL  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&replayPath, "replay", "", "JSON-lines file of recorded raw events")
	runCmd.Flags().StringVar(&upstreamURL, "upstream", "", "SSE endpoint of a remote execution graph")
	runCmd.Flags().StringVar(&connectURL, "connect", "", "base URL of a deepmanus server")
	runCmd.MarkFlagsMutuallyExclusive("replay", "upstream", "connect")
	runCmd.MarkFlagsOneRequired("replay", "upstream", "connect")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrinter(cmd.OutOrStdout(), runFlags.summary)
	req := runFlags.request()
	if len(req.Messages) == 0 {
		return errNoMessages
	}

	if connectURL != "" {
		client := server.NewStreamClient(http.DefaultClient, connectURL)
		if err := printAll(p, client.Stream(ctx, req)); err != nil {
			return err
		}
		return p.flush()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []app.Option
	switch {
	case replayPath != "":
		opts = append(opts, app.WithSource(source.ReplayFile(replayPath)))
	case upstreamURL != "":
		cfg.Upstream.Endpoint = upstreamURL
	}
	return execute(ctx, cfg, p, req, opts...)
}

// execute runs req on a fresh app and prints every event. An interrupted
// run is reported as an error once its cleanup is done.
func execute(ctx context.Context, cfg *app.Config, p *printer, req workflow.Request, opts ...app.Option) error {
	logger := newLogger(cfg.Debug)
	a, err := app.New(ctx, cfg, append([]app.Option{app.WithLogger(logger)}, opts...)...)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	stream, err := a.Runner().Run(ctx, req)
	if err != nil {
		return err
	}
	for ev := range stream.Events() {
		if err := p.print(ev); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return p.flush()
}

func printAll(p *printer, events iter.Seq2[protocol.Event, error]) error {
	for ev, err := range events {
		if err != nil {
			return err
		}
		if err := p.print(ev); err != nil {
			return err
		}
	}
	return nil
}

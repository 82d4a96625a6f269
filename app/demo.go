package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/crawler"
	"github.com/TimeCyber/DeepManus/graph"
)

const demoModel = "demo-model"

// DemoGraph builds a scripted coordinator, planner, researcher, reporter
// graph that streams canned model output. When url is set the researcher
// crawls it through the registered crawl tool.
func DemoGraph(cfg graph.Config, url string, opts ...graph.Option) (*graph.Graph, error) {
	g := graph.New(cfg, opts...)

	nodes := []struct {
		name string
		node graph.Node
	}{
		{"coordinator", graph.NodeFunc(coordinate)},
		{"planner", graph.NodeFunc(plan)},
		{"researcher", graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
			return research(ctx, s, url)
		})},
		{"reporter", graph.NodeFunc(report)},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	edges := []struct{ from, to string }{
		{"coordinator", "planner"},
		{"planner", "researcher"},
		{"researcher", "reporter"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.from, e.to, graph.Goto(e.to)); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntryPoint("coordinator"); err != nil {
		return nil, err
	}
	if err := g.SetExitPoint("reporter"); err != nil {
		return nil, err
	}
	return g, nil
}

// say streams text word by word as one model call and returns it.
func say(ctx context.Context, text string) (string, error) {
	if err := graph.ModelStart(ctx, demoModel); err != nil {
		return "", err
	}
	id := "run-" + uuid.New().String()
	for _, word := range strings.SplitAfter(text, " ") {
		if err := graph.ModelChunk(ctx, demoModel, event.Chunk{ID: id, Content: word}); err != nil {
			return "", err
		}
	}
	return text, graph.ModelEnd(ctx, demoModel)
}

func question(s graph.State) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m.Role == protocol.RoleUser {
			if text, ok := m.Content.(string); ok {
				return text
			}
		}
	}
	return ""
}

func coordinate(ctx context.Context, s graph.State) (graph.State, error) {
	if _, err := say(ctx, "handoff_to_planner"); err != nil {
		return s, err
	}
	return s.Set(graph.NextKey, "planner"), nil
}

func plan(ctx context.Context, s graph.State) (graph.State, error) {
	steps := []map[string]string{
		{"agent_name": "researcher", "title": "Gather sources", "description": "Collect material on: " + question(s)},
		{"agent_name": "reporter", "title": "Write report", "description": "Summarize the findings."},
	}
	body, err := json.Marshal(map[string]any{
		"thought": "The request needs research before a report.",
		"title":   question(s),
		"steps":   steps,
	})
	if err != nil {
		return s, err
	}

	text, err := say(ctx, string(body))
	if err != nil {
		return s, err
	}
	s = s.Append(protocol.NewMessage(protocol.RoleAssistant, text))
	return s.Set("full_plan", text).Set(graph.NextKey, "researcher"), nil
}

func research(ctx context.Context, s graph.State, url string) (graph.State, error) {
	findings := "No page was given, so the findings rest on the question alone."
	if url != "" {
		args, err := json.Marshal(map[string]string{"url": url})
		if err != nil {
			return s, err
		}
		result, err := graph.CallTool(ctx, crawler.ToolName, args)
		if err != nil {
			return s, err
		}
		s = s.Append(protocol.Message{Role: protocol.RoleTool, Name: crawler.ToolName, Content: result.Content})
		findings = fmt.Sprintf("Crawled %s (%d characters).", url, len(result.Content))
	}

	text, err := say(ctx, findings)
	if err != nil {
		return s, err
	}
	s = s.Append(protocol.NewMessage(protocol.RoleAssistant, text))
	return s.Set("findings", text).Set(graph.NextKey, "reporter"), nil
}

func report(ctx context.Context, s graph.State) (graph.State, error) {
	text, err := say(ctx, fmt.Sprintf("# Report\n\n%s\n\n%s", question(s), s.Text("findings")))
	if err != nil {
		return s, err
	}
	return s.Append(protocol.NewMessage(protocol.RoleAssistant, text)), nil
}

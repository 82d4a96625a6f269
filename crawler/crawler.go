package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/tools"
)

const ToolName = "crawl_tool"

// Crawler turns a URL into an Article.
type Crawler struct {
	client *Client
}

func New(client *Client) *Crawler {
	return &Crawler{client: client}
}

func (c *Crawler) Crawl(ctx context.Context, url string) (Article, error) {
	page, err := c.client.Fetch(ctx, url, "html")
	if err != nil {
		return Article{}, err
	}

	article, err := Extract(page)
	if err != nil {
		return Article{}, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	article.URL = url
	return article, nil
}

// Tool describes the crawl tool.
func Tool() protocol.Tool {
	return protocol.Tool{
		Name:        ToolName,
		Description: "Use this to crawl a url and get a readable content in markdown format.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The url to crawl.",
				},
			},
			"required": []string{"url"},
		},
	}
}

type args struct {
	URL string `json:"url"`
}

// Register adds the crawl tool to the global registry, replacing any
// earlier binding.
func (c *Crawler) Register() error {
	return tools.Upsert(Tool(), c.Handle)
}

// Handle is the tools.Handler of the crawl tool.
func (c *Crawler) Handle(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	in, err := tools.DecodeArgs[args](raw)
	if err != nil {
		return tools.Errorf("Failed to crawl. Error: %v", err), nil
	}
	if in.URL == "" {
		return tools.Errorf("Failed to crawl. Error: url is required"), nil
	}

	article, err := c.Crawl(ctx, in.URL)
	if err != nil {
		if ctx.Err() != nil {
			return tools.Result{}, ctx.Err()
		}
		return tools.Errorf("Failed to crawl. Error: %v", err), nil
	}
	return tools.Text(article.ToMarkdown()), nil
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TimeCyber/DeepManus/resource"
	"github.com/TimeCyber/DeepManus/retry"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Provider launches browsers on a websocket automation server. It is the
// resource.Provider behind the browser tool.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

var _ resource.Provider = (*Provider)(nil)

func NewProvider(cfg Config) *Provider {
	c := DefaultConfig()
	c.Merge(&cfg)
	return &Provider{
		cfg: c,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

func (p *Provider) Config() Config {
	return p.cfg
}

// Create ensures the history directory exists, connects and launches a
// browser. Connection failures and launch errors are transient; a launch
// error returns the open session so the manager can close it.
func (p *Provider) Create(ctx context.Context) (resource.Handle, error) {
	if err := os.MkdirAll(p.cfg.HistoryDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}

	conn, _, err := p.dialer.DialContext(ctx, p.cfg.Endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Retryable(fmt.Errorf("failed to connect to browser server: %w", err), 0)
	}
	session := newSession(conn)

	launchCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.LaunchWait))
	defer cancel()

	if err := session.write(launchCtx, p.launchMessage()); err != nil {
		return session, retry.Retryable(err, 0)
	}

	for {
		msg, err := session.read(launchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return session, retry.Retryable(fmt.Errorf("browser did not become ready within %s", time.Duration(p.cfg.LaunchWait)), 0)
			}
			return session, err
		}
		switch msg.Type {
		case TypeReady:
			return session, nil
		case TypeError:
			return session, retry.Retryable(&RemoteError{Stage: "launch", Message: msg.Error}, 0)
		}
	}
}

// Close shuts the session down.
func (p *Provider) Close(_ context.Context, h resource.Handle) error {
	session, ok := h.(*Session)
	if !ok {
		return fmt.Errorf("unexpected browser handle %T", h)
	}
	return session.Close()
}

func (p *Provider) launchMessage() Message {
	headless := p.cfg.IsHeadless()
	msg := Message{
		Type:       TypeLaunch,
		Headless:   &headless,
		ChromePath: p.cfg.ChromePath,
		Viewport:   &Viewport{Width: 1920, Height: 1080},
		UserAgent:  userAgent,
	}
	if p.cfg.Proxy.Server != "" {
		proxy := p.cfg.Proxy
		msg.Proxy = &proxy
	}
	return msg
}

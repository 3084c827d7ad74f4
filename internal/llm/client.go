package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
)

// Call bounds.
const (
	// DefaultTimeout is the per-call deadline. Exceeding it degrades the
	// task rather than failing the request.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxInFlight bounds concurrent chat completions.
	DefaultMaxInFlight = 16

	// DefaultQueueLimit bounds callers waiting for a slot. Beyond it,
	// calls fail fast.
	DefaultQueueLimit = 64

	// DefaultTemperature keeps task output near-deterministic.
	DefaultTemperature = 0.1
)

// Config configures the chat client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxInFlight int
	QueueLimit  int
}

// Client implements Service against an OpenAI-compatible endpoint.
type Client struct {
	api   openai.Client
	cfg   Config
	slots chan struct{}

	mu      sync.Mutex
	waiting int
}

var _ Service = (*Client)(nil)

// NewClient creates the chat client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:   openai.NewClient(opts...),
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxInFlight),
	}
}

// Available reports whether the client has credentials to call with.
func (c *Client) Available() bool {
	return c.cfg.APIKey != "" || c.cfg.BaseURL != ""
}

// acquire claims an in-flight slot, queueing up to the queue limit.
func (c *Client) acquire(ctx context.Context) (func(), error) {
	release := func() { <-c.slots }

	select {
	case c.slots <- struct{}{}:
		return release, nil
	default:
	}

	c.mu.Lock()
	if c.waiting >= c.cfg.QueueLimit {
		c.mu.Unlock()
		return nil, sqerrors.Degraded("llm", errors.New("request queue full"))
	}
	c.waiting++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()

	select {
	case c.slots <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, sqerrors.Degraded("llm", ctx.Err())
	}
}

// complete runs one chat completion under the task deadline. All failures
// come back as dependency degradations.
func (c *Client) complete(ctx context.Context, task, system, user string, maxTokens int64) (string, int64, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return "", 0, err
	}
	defer release()

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: param.NewOpt(DefaultTemperature),
		MaxTokens:   param.NewOpt(maxTokens),
	})
	if err != nil {
		if cctx.Err() != nil && ctx.Err() == nil {
			slog.Warn("llm call timed out",
				slog.String("task", task),
				slog.Duration("after", time.Since(started)))
		}
		return "", 0, sqerrors.Degraded("llm", err)
	}
	if len(resp.Choices) == 0 {
		return "", resp.Usage.TotalTokens, sqerrors.Degraded("llm", errors.New("empty completion"))
	}
	slog.Debug("llm call completed",
		slog.String("task", task),
		slog.Int64("tokens", resp.Usage.TotalTokens),
		slog.Duration("took", time.Since(started)))
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

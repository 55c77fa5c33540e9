package completion

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	platformerrors "snapquiz-server-go/internal/platform/errors"
	"snapquiz-server-go/internal/platform/logging"
)

const op = "completion.answer"

// Client asks the hosted chat-completion service for a short answer token.
// The API key arrives per call because it lives in the user settings, so
// underlying SDK clients are cached per key.
type Client struct {
	baseURL   string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// Options configures the completion client.
type Options struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *logging.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.Model == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "completion.new", "model is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   opts.BaseURL,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		clients:   make(map[string]*openai.Client),
	}, nil
}

func (c *Client) clientFor(apiKey string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[apiKey]; ok {
		return client
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: c.timeout}

	client := openai.NewClientWithConfig(cfg)
	c.clients[apiKey] = client
	return client
}

// Answer sends the extracted text as the user turn under the configured
// system instruction and returns the trimmed first-choice content.
func (c *Client) Answer(ctx context.Context, text, prompt, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", platformerrors.New(platformerrors.KindCompletion, op, "missing API key")
	}
	if strings.TrimSpace(text) == "" {
		return "", platformerrors.New(platformerrors.KindCompletion, op, "empty question text")
	}

	resp, err := c.clientFor(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindCompletion, op, "chat completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", platformerrors.New(platformerrors.KindCompletion, op, "response contains no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if c.logger != nil {
		c.logger.DebugTag("LLM", "answer token %q", answer)
	}
	return answer, nil
}

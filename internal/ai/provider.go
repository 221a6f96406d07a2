package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

var ErrUnavailable = errors.New("ai provider unavailable")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IProvider is one embedding + chat-completion backend.
type IProvider interface {
	Name() string
	Chat(ctx context.Context, model string, messages []Message) (string, error)
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

type IChatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// Every error leaving a chatter or embedder is an ErrUpstream; the call is
// bounded by timeout when it is positive. Nothing is retried.
type chatter struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewChatter(p IProvider, model string, timeout time.Duration) IChatter {
	return &chatter{provider: p, model: model, timeout: timeout}
}

func (c *chatter) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.provider.Chat(ctx, c.model, messages)
	if err != nil {
		return "", upstream(c.provider.Name(), "chat", err)
	}
	text := strings.TrimSpace(res)
	if text == "" {
		return "", upstream(c.provider.Name(), "chat", fmt.Errorf("empty ai response"))
	}
	return text, nil
}

type embedder struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewEmbedder(p IProvider, model string, timeout time.Duration) IEmbedder {
	return &embedder{provider: p, model: model, timeout: timeout}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	res, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, upstream(e.provider.Name(), "embed", err)
	}
	if len(res) == 0 {
		return nil, upstream(e.provider.Name(), "embed", fmt.Errorf("empty embedding"))
	}
	return res, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func upstream(provider, op string, err error) error {
	if errors.Is(err, appErr.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %w", provider, op, appErr.ErrUpstream, err)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}

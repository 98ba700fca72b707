package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/seenimoa/newsimpact/internal/config"
	"github.com/seenimoa/newsimpact/internal/logging"
)

// TransportError is returned by Client.Call once every attempt has failed.
// Network, auth and rate-limit failures all collapse into it.
type TransportError struct {
	Attempts int
	Err      error // last attempt's error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm: model call failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client sends one prompt to a single provider with bounded retries.
// The provider, model and endpoint are fixed at construction.
type Client struct {
	provider    LLMProvider
	model       string
	system      string
	temperature float64
	maxTokens   int
	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration
	jsonOutput  bool
	limiter     *rate.Limiter
	logger      *log.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithSystemPrompt sets the system instruction sent before every prompt.
func WithSystemPrompt(s string) ClientOption {
	return func(c *Client) { c.system = s }
}

// WithSampling sets temperature and the output token cap.
func WithSampling(temperature float64, maxTokens int) ClientOption {
	return func(c *Client) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

// WithMaxAttempts sets the total number of attempts per call.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay; attempt n waits delay*n before attempt n+1.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.retryDelay = d }
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithJSONOutput asks the provider to constrain replies to one JSON object.
// Anthropic has no such switch and relies on the prompt alone.
func WithJSONOutput() ClientOption {
	return func(c *Client) { c.jsonOutput = true }
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the logger used for attempt failures.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps provider. model is the name stamped into results.
func NewClient(provider LLMProvider, model string, opts ...ClientOption) *Client {
	c := &Client{
		provider:    provider,
		model:       model,
		temperature: 0.3,
		maxTokens:   1000,
		maxAttempts: 3,
		retryDelay:  time.Second,
		timeout:     60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// NewClientFromConfig builds the configured provider and wraps it.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, logger *log.Logger, opts ...ClientOption) (*Client, error) {
	provider, err := NewProviderFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := []ClientOption{
		WithSampling(cfg.Temperature, cfg.MaxTokens),
		WithMaxAttempts(cfg.MaxAttempts),
		WithRetryDelay(cfg.RetryDelay),
		WithTimeout(cfg.Timeout),
		WithRateLimit(cfg.RequestsPerSecond),
		WithLogger(logger),
	}
	return NewClient(provider, cfg.Model, append(base, opts...)...), nil
}

// Model returns the model name used for every call.
func (c *Client) Model() string { return c.model }

// Provider returns the underlying provider.
func (c *Client) Provider() LLMProvider { return c.provider }

// Ping checks that the provider is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

// Call sends prompt and returns the raw reply text. It retries every
// failure, including an empty reply, until maxAttempts is reached and
// then returns a *TransportError.
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if c.system != "" {
		messages = append(messages, SystemMessage(c.system))
	}
	messages = append(messages, UserMessage(prompt))

	opts := &ChatOptions{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		JSON:        c.jsonOutput,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.attempt(ctx, messages, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		c.logger.Warn().
			Str("provider", c.provider.Name()).
			Str("model", c.model).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Err(err).
			Msg("model call failed")

		if ctx.Err() != nil {
			return "", &TransportError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", &TransportError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	return "", &TransportError{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, messages []Message, opts *ChatOptions) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.provider.Chat(callCtx, messages, opts)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: attempt timed out after %v", ErrProviderDown, c.timeout)
		}
		return "", err
	}
	c.logger.Debug().Stringer("reply", resp).Msg("model replied")
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

// NewProviderFromConfig builds the single provider named by cfg.Provider.
// BaseURL, when set, replaces the provider's default endpoint.
func NewProviderFromConfig(ctx context.Context, cfg config.LLMConfig) (LLMProvider, error) {
	httpClient := &http.Client{Timeout: providerHTTPTimeout(cfg.Timeout)}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIKey,
			WithOpenAIModel(cfg.Model),
			WithOpenAIBaseURL(cfg.BaseURL),
			WithOpenAIHTTPClient(httpClient),
		)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.AnthropicKey,
			WithAnthropicModel(cfg.Model),
			WithAnthropicBaseURL(cfg.BaseURL),
			WithAnthropicHTTPClient(httpClient),
		)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiKey,
			WithGeminiModel(cfg.Model),
			WithGeminiBaseURL(cfg.BaseURL),
			WithGeminiHTTPClient(httpClient),
		)
	case ProviderOllama:
		url := cfg.OllamaURL
		if cfg.BaseURL != "" {
			url = cfg.BaseURL
		}
		return NewOllamaProvider(url,
			WithOllamaModel(cfg.Model),
			WithOllamaHTTPClient(httpClient),
		)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

// providerHTTPTimeout leaves headroom over the per-attempt context deadline.
func providerHTTPTimeout(attempt time.Duration) time.Duration {
	if attempt <= 0 {
		return 120 * time.Second
	}
	return attempt + 5*time.Second
}

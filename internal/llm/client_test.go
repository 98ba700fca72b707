package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns the scripted replies in order, one per Chat call.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []scriptedReply
	calls    int
	messages [][]Message
	opts     []*ChatOptions
}

type scriptedReply struct {
	content string
	err     error
}

func (s *scriptedProvider) Name() string                 { return "scripted" }
func (s *scriptedProvider) Models() []string             { return nil }
func (s *scriptedProvider) Ping(ctx context.Context) error { return nil }

func (s *scriptedProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages)
	s.opts = append(s.opts, opts)
	idx := s.calls
	s.calls++
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	r := s.replies[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &Response{Content: r.content}, nil
}

func TestClientCallSucceedsFirstAttempt(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{content: judgment}}}
	c := NewClient(p, "gpt-4o-mini",
		WithSystemPrompt("你是专业的金融分析师"),
		WithSampling(0.3, 1000),
		WithRetryDelay(0),
	)

	out, err := c.Call(context.Background(), "新闻标题：央行降准")
	require.NoError(t, err)
	assert.Equal(t, judgment, out)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "gpt-4o-mini", c.Model())

	require.Len(t, p.messages[0], 2)
	assert.Equal(t, RoleSystem, p.messages[0][0].Role)
	assert.Equal(t, "新闻标题：央行降准", p.messages[0][1].Content)
	assert.Equal(t, "gpt-4o-mini", p.opts[0].Model)
	assert.InDelta(t, 0.3, p.opts[0].Temperature, 1e-9)
	assert.Equal(t, 1000, p.opts[0].MaxTokens)
}

func TestClientCallRetriesThenSucceeds(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{
		{err: ErrProviderDown},
		{err: ErrRateLimit},
		{content: judgment},
	}}
	c := NewClient(p, "m", WithRetryDelay(time.Millisecond))

	out, err := c.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, judgment, out)
	assert.Equal(t, 3, p.calls)
}

func TestClientCallExhaustsAttempts(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{err: ErrNoAPIKey}}}
	c := NewClient(p, "m", WithMaxAttempts(3), WithRetryDelay(0))

	_, err := c.Call(context.Background(), "prompt")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, 3, p.calls, "every failure is retried until attempts run out")
}

func TestClientCallEmptyReplyCountsAsFailure(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{content: "   "}}}
	c := NewClient(p, "m", WithMaxAttempts(2), WithRetryDelay(0))

	_, err := c.Call(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 2, p.calls)
}

func TestClientCallBackoffGrowsWithAttempt(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{err: errors.New("boom")}}}
	delay := 20 * time.Millisecond
	c := NewClient(p, "m", WithMaxAttempts(3), WithRetryDelay(delay))

	start := time.Now()
	_, err := c.Call(context.Background(), "prompt")
	elapsed := time.Since(start)

	require.Error(t, err)
	// delay*1 + delay*2; no sleep after the last attempt
	assert.GreaterOrEqual(t, elapsed, 3*delay)
	assert.Less(t, elapsed, 3*delay+500*time.Millisecond)
}

func TestClientCallStopsOnCancelledContext(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{err: ErrProviderDown}}}
	c := NewClient(p, "m", WithMaxAttempts(5), WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, "prompt")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// slowProvider blocks until its context is done.
type slowProvider struct{ scriptedProvider }

func (s *slowProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClientCallPerAttemptTimeout(t *testing.T) {
	c := NewClient(&slowProvider{}, "m",
		WithMaxAttempts(2),
		WithRetryDelay(0),
		WithTimeout(10*time.Millisecond),
	)

	_, err := c.Call(context.Background(), "prompt")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Attempts)
	assert.ErrorIs(t, err, ErrProviderDown)
}

func TestClientRateLimit(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{content: "ok"}}}
	c := NewClient(p, "m", WithRateLimit(20)) // one token every 50ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Call(context.Background(), "prompt")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{Attempts: 3, Err: ErrRateLimit}
	assert.Contains(t, err.Error(), "3 attempt(s)")
	assert.Contains(t, err.Error(), "rate limit")
}

func TestClientJSONOutput(t *testing.T) {
	p := &scriptedProvider{replies: []scriptedReply{{content: judgment}}}

	_, err := NewClient(p, "m", WithRetryDelay(0)).Call(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, p.opts[0].JSON)

	_, err = NewClient(p, "m", WithRetryDelay(0), WithJSONOutput()).Call(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, p.opts[1].JSON)
}

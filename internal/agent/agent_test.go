package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplens/shoplens/internal/log"
)

// newTestAgent builds an Agent whose generate function is replaced by
// gen, so no model or API key is involved.
func newTestAgent(t *testing.T, gen generateFunc, cfg Config) *Agent {
	t.Helper()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	if cfg.Tools == nil {
		echo := genkit.DefineTool(g, "echo", "echoes input",
			func(ctx *ai.ToolContext, input struct {
				Text string `json:"text"`
			}) (string, error) {
				return input.Text, nil
			})
		cfg.Tools = []ai.ToolRef{echo}
	}
	cfg.Genkit = g
	cfg.Logger = log.NewNop()
	if cfg.RetryConfig.MaxRetries == 0 {
		cfg.RetryConfig = RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	}

	a, err := New(cfg)
	require.NoError(t, err)
	a.generate = gen
	return a
}

// modelAnswer builds a response carrying the given final text.
func modelAnswer(text string) *ai.ModelResponse {
	return &ai.ModelResponse{Message: ai.NewModelMessage(ai.NewTextPart(text))}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Genkit: genkit.Init(context.Background()), Logger: log.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool")
}

func TestRun_ParsesModelAnswer(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return modelAnswer(`{"text": "You have 2 products.", "tables": [{"title": "Products", "data": [{"id": 1}, {"id": 2}]}], "chart_data": []}`), nil
	}, Config{})

	res, err := a.Run(context.Background(), "x.myshopify.com", "list 2 products")
	require.NoError(t, err)
	assert.Equal(t, "You have 2 products.", res.Text)
	require.Len(t, res.Tables, 1)
	assert.Equal(t, "Products", res.Tables[0].Title)
	assert.Empty(t, res.ChartData)
}

func TestRun_InvalidInput(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		t.Fatal("generate must not be called")
		return nil, nil
	}, Config{})

	_, err := a.Run(context.Background(), "", "query")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.Run(context.Background(), "x.myshopify.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_TimeoutSurfacesAsErrTimeout(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Config{Timeout: 30 * time.Millisecond})

	start := time.Now()
	res, err := a.Run(context.Background(), "x.myshopify.com", "slow query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, res, "no partial success on timeout")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_CallerCancelPassesThrough(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Run(ctx, "x.myshopify.com", "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

// Caller cancellations say nothing about provider health and must not
// trip the breaker.
func TestRun_CancelDoesNotCountAsBreakerFailure(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Config{CircuitBreakerConfig: CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
	}})

	for range 3 {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()

		_, err := a.Run(ctx, "x.myshopify.com", "query")
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, CircuitClosed, a.circuitBreaker.State())
	require.NoError(t, a.circuitBreaker.Allow(), "breaker must still admit requests")
}

func TestRun_ProviderFailureDegradesToText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantSub string
	}{
		{
			name:    "quota",
			err:     errors.New("rpc error: RESOURCE_EXHAUSTED: quota exceeded"),
			wantSub: "quota",
		},
		{
			name:    "auth",
			err:     errors.New("PERMISSION_DENIED: invalid credentials"),
			wantSub: "authentication",
		},
		{
			name:    "model missing",
			err:     errors.New("NOT_FOUND: model does not exist"),
			wantSub: "unavailable",
		},
		{
			name:    "generic",
			err:     errors.New("something odd happened"),
			wantSub: "try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
				return nil, tt.err
			}, Config{})

			res, err := a.Run(context.Background(), "x.myshopify.com", "query")
			require.NoError(t, err, "provider failures must degrade, not propagate")
			assert.Contains(t, res.Text, tt.wantSub)
			assert.NotNil(t, res.Tables)
			assert.NotNil(t, res.ChartData)
		})
	}
}

func TestRun_RetriesRetryableErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("HTTP 429: rate limit exceeded")
		}
		return modelAnswer(`{"text": "ok", "tables": [], "chart_data": []}`), nil
	}, Config{})

	res, err := a.Run(context.Background(), "x.myshopify.com", "query")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRun_NonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		calls.Add(1)
		return nil, errors.New("PERMISSION_DENIED")
	}, Config{})

	_, err := a.Run(context.Background(), "x.myshopify.com", "query")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRun_OpenBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	a := newTestAgent(t, func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		calls.Add(1)
		return nil, errors.New("weird failure")
	}, Config{CircuitBreakerConfig: CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
	}})

	for range 2 {
		_, err := a.Run(context.Background(), "x.myshopify.com", "query")
		require.NoError(t, err)
	}
	require.Equal(t, CircuitOpen, a.circuitBreaker.State())

	res, err := a.Run(context.Background(), "x.myshopify.com", "query")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "temporarily unavailable")
	assert.EqualValues(t, 2, calls.Load(), "open breaker must not reach the model")
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("rate limit exceeded"), true},
		{errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{errors.New("HTTP 503 Service Unavailable"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("PERMISSION_DENIED"), false},
		{errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryableError(tt.err), "error: %v", tt.err)
	}
}

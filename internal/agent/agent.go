// Package agent implements the invocation shim between the HTTP layer
// and the hosted reasoning service.
//
// The shim does not implement any reasoning or tool-selection logic:
// the agentic loop runs inside the hosted model, driven by Genkit. This
// package wires prompts and tool descriptors to the model, enforces a
// wall-clock budget, guards the provider with a rate limiter, retry and
// circuit breaker, and parses the untrusted final answer into the
// structured result the UI renders.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/shoplens/shoplens/internal/log"
)

const (
	// DefaultTimeout is the wall-clock budget for one invocation,
	// including every tool call the model makes.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTurns bounds the agentic loop to keep a confused model
	// from burning the request budget on tool calls.
	DefaultMaxTurns = 10
)

var (
	// ErrTimeout indicates the invocation exceeded its wall-clock budget.
	ErrTimeout = errors.New("agent: request timed out")

	// ErrInvalidInput indicates a missing store URL or query.
	ErrInvalidInput = errors.New("agent: invalid input")
)

// Config contains all required parameters for the Agent.
type Config struct {
	Genkit *genkit.Genkit
	Logger log.Logger

	// Tools are the pre-registered tool refs exposed to the model.
	Tools []ai.ToolRef

	// ModelName selects the model (e.g. "googleai/gemini-2.5-flash").
	ModelName string

	// MaxTurns bounds the agentic loop. Zero uses DefaultMaxTurns.
	MaxTurns int

	// Timeout is the wall-clock budget. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Resilience configuration (zero values use defaults).
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent runs one store-analytics query against the hosted model.
// It is stateless across invocations and safe for concurrent use.
type Agent struct {
	g         *genkit.Genkit
	logger    log.Logger
	tools     []ai.ToolRef
	modelName string
	maxTurns  int
	timeout   time.Duration

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	// generate is genkit.Generate, injectable for tests.
	generate generateFunc
}

// New creates an Agent with the given configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30.
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	a := &Agent{
		g:              cfg.Genkit,
		logger:         cfg.Logger,
		tools:          cfg.Tools,
		modelName:      cfg.ModelName,
		maxTurns:       maxTurns,
		timeout:        timeout,
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,
		generate:       defaultGenerate,
	}

	a.logger.Info("agent initialized",
		"model", a.modelName,
		"tools", len(a.tools),
		"maxTurns", a.maxTurns,
		"timeout", a.timeout)

	return a, nil
}

// Run executes one query against the store and returns the structured
// answer. Provider failures degrade to a friendly Result.Text; only an
// exceeded budget surfaces as ErrTimeout, and a caller-side cancel is
// passed through unchanged.
func (a *Agent) Run(ctx context.Context, storeURL, query string) (*Result, error) {
	if storeURL == "" {
		return nil, fmt.Errorf("%w: store_url is required", ErrInvalidInput)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	logger := a.logger.With("invocation_id", uuid.NewString())
	logger.Debug("running agent", "store", storeURL, "queryLength", len(query))

	if err := a.rateLimiter.Wait(ctx); err != nil {
		return nil, a.mapContextErr(ctx, fmt.Errorf("rate limit wait: %w", err))
	}

	if err := a.circuitBreaker.Allow(); err != nil {
		logger.Warn("circuit breaker open, rejecting invocation",
			"state", a.circuitBreaker.State().String())
		return (&Result{
			Text: "⚠️ The AI service is temporarily unavailable. Please try again in a moment.",
		}).normalize(), nil
	}

	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(userPrompt(storeURL, query)))),
		ai.WithTools(a.tools...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		mapped := a.mapContextErr(ctx, err)

		// A caller walking away says nothing about provider health,
		// so it must not count against the breaker.
		if errors.Is(mapped, context.Canceled) {
			return nil, mapped
		}

		a.circuitBreaker.Failure()
		if errors.Is(mapped, ErrTimeout) {
			return nil, mapped
		}

		logger.Error("model invocation failed", "error", err)
		return friendlyFailure(err), nil
	}
	a.circuitBreaker.Success()

	result := ParseResult(resp.Text())
	logger.Debug("agent finished",
		"tables", len(result.Tables),
		"charts", len(result.ChartData),
		"textLength", len(result.Text))

	return result, nil
}

// mapContextErr translates context expiry into the shim's error kinds:
// the deadline becomes ErrTimeout, a caller cancel passes through.
func (a *Agent) mapContextErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %v", ErrTimeout, a.timeout)
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		return context.Canceled
	default:
		return err
	}
}

// friendlyFailure turns a provider failure into a user-facing answer,
// hiding internal detail. The reasoning service is an external system;
// its failures are data to explain, not faults to propagate.
func friendlyFailure(err error) *Result {
	msg := err.Error()

	var text string
	switch {
	case containsAny(msg, "resource_exhausted", "quota", "429"):
		text = "⚠️ API quota exceeded. Please wait a moment and try again, or upgrade your API plan."
	case containsAny(msg, "not_found", "404"):
		text = "⚠️ AI model unavailable. Please try again later."
	case containsAny(msg, "permission_denied", "401", "403", "api key"):
		text = "⚠️ API authentication failed. Please check your API key."
	case containsAny(msg, "connection", "timeout", "unavailable"):
		text = "⚠️ Connection error. Please check your internet and try again."
	default:
		text = "⚠️ Unable to process your request. Please try again or simplify your query."
	}

	return (&Result{Text: text}).normalize()
}

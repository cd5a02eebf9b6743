// Package app wires configuration, the Shopify client, the Genkit
// runtime, and the agent into a ready-to-serve application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/shoplens/shoplens/internal/agent"
	"github.com/shoplens/shoplens/internal/agent/tools"
	"github.com/shoplens/shoplens/internal/config"
	"github.com/shoplens/shoplens/internal/log"
	"github.com/shoplens/shoplens/internal/shopify"
)

// App holds the assembled application components.
type App struct {
	Config  *config.Config
	Logger  log.Logger
	Genkit  *genkit.Genkit
	Shopify *shopify.Client
	Agent   *agent.Agent
}

// Setup creates and initializes the application. Components are built
// in dependency order: Genkit runtime, Shopify client, tools, agent.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	client, err := provideShopify(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Shopify = client

	refs := provideTools(g, client, logger)

	ag, err := provideAgent(cfg, g, refs, logger)
	if err != nil {
		return nil, err
	}
	a.Agent = ag

	logger.Info("application initialized",
		"model", cfg.FullModelName(),
		"shopify_api_version", cfg.ShopifyAPIVersion,
		"tools", len(refs))

	return a, nil
}

// provideGenkit initializes the Genkit runtime with the GoogleAI plugin.
// The plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai plugin")
	}
	return g, nil
}

// provideShopify creates the Shopify Admin API client.
func provideShopify(cfg *config.Config, logger log.Logger) (*shopify.Client, error) {
	client, err := shopify.New(shopify.Config{
		AccessToken:    cfg.ShopifyAccessToken,
		APIVersion:     cfg.ShopifyAPIVersion,
		DefaultStore:   cfg.ShopifyShopName,
		MaxRetries:     cfg.ShopifyMaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxPages:       cfg.MaxPages,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating shopify client: %w", err)
	}
	return client, nil
}

// provideTools registers the Shopify data tools with Genkit.
func provideTools(g *genkit.Genkit, client *shopify.Client, logger log.Logger) []ai.ToolRef {
	return tools.NewToolset(client, logger).Register(g)
}

// provideAgent creates the analytics agent.
func provideAgent(cfg *config.Config, g *genkit.Genkit, refs []ai.ToolRef, logger log.Logger) (*agent.Agent, error) {
	ag, err := agent.New(agent.Config{
		Genkit:    g,
		Logger:    logger,
		Tools:     refs,
		ModelName: cfg.FullModelName(),
		MaxTurns:  cfg.MaxTurns,
		Timeout:   cfg.AgentTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	return ag, nil
}

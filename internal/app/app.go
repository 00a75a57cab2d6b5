// Package app wires configuration into a runnable consensus stack. Both the
// server and the CLI build their engine here so the transport decoration
// order stays in one place.
package app

import (
	"fmt"
	"net/http"
	"time"

	"accord/internal/attachments"
	"accord/internal/config"
	"accord/internal/consensus"
	accorderrors "accord/internal/errors"
	"accord/internal/llm"
	"accord/internal/logging"
	serverhttp "accord/internal/server/http"
)

// App is the assembled consensus stack.
type App struct {
	Config    *config.Config
	Engine    *consensus.Engine
	Extractor *attachments.Extractor
	Metrics   *serverhttp.Metrics
	Logger    logging.Logger
}

// New builds the full stack from validated configuration. Clients are
// decorated inside out: HTTP transport, then retry with backoff, then the
// per-agent concurrency limit. The limiter registry is process-wide state
// shared by every session.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewComponentLogger("App")

	metrics := serverhttp.NewMetrics()
	registry := llm.NewLimiterRegistry()

	clients := make(map[consensus.AgentID]llm.Client, 2)
	configs := make(map[consensus.AgentID]consensus.AgentConfig, 2)
	for _, binding := range []struct {
		id       consensus.AgentID
		settings config.AgentSettings
		build    func(model string, cfg llm.Config) (llm.Client, error)
	}{
		{consensus.AgentPrimary, cfg.OpenAI, llm.NewOpenAIClient},
		{consensus.AgentSecondary, cfg.Anthropic, llm.NewAnthropicClient},
	} {
		client, err := buildClient(binding.id, binding.settings, binding.build, registry, metrics)
		if err != nil {
			return nil, err
		}
		clients[binding.id] = client
		configs[binding.id] = agentConfig(binding.id, binding.settings)
	}

	engine, err := consensus.NewEngine(clients, configs, logging.NewComponentLogger("Consensus"))
	if err != nil {
		return nil, err
	}

	cache, err := attachments.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Engine:    engine,
		Extractor: attachments.NewExtractor(cache),
		Metrics:   metrics,
		Logger:    logger,
	}, nil
}

func buildClient(id consensus.AgentID, settings config.AgentSettings, build func(string, llm.Config) (llm.Client, error), registry *llm.LimiterRegistry, metrics *serverhttp.Metrics) (llm.Client, error) {
	client, err := build(settings.Model, llm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Timeout: int(settings.Timeout / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("build %s client: %w", id, err)
	}

	calls := metrics.AgentCalls.WithLabelValues(string(id))
	client = llm.NewRetryClient(client, retryConfig(settings), func() { calls.Inc() })
	return llm.WrapWithConcurrencyLimit(client, registry, string(id), settings.MaxConcurrent), nil
}

func retryConfig(settings config.AgentSettings) accorderrors.RetryConfig {
	rc := accorderrors.DefaultRetryConfig()
	if settings.MaxRetries > 0 {
		rc.MaxAttempts = settings.MaxRetries
	}
	return rc
}

func agentConfig(id consensus.AgentID, settings config.AgentSettings) consensus.AgentConfig {
	base := consensus.DefaultAgentConfigs()[id]
	base.Temperature = settings.Temperature
	base.MaxConcurrent = settings.MaxConcurrent
	base.Retry = retryConfig(settings)
	return base
}

// SessionOptions converts the configured defaults into engine options.
func (a *App) SessionOptions() consensus.SessionOptions {
	return consensus.SessionOptions{
		Mode:       consensus.Mode(a.Config.Mode),
		Iterations: a.Config.Iterations,
	}
}

// Router builds the HTTP surface over the engine.
func (a *App) Router() http.Handler {
	handler := serverhttp.NewConsensusHandler(
		a.Engine,
		a.Extractor,
		a.Metrics,
		logging.NewComponentLogger("ConsensusHandler"),
		a.Config.Server.MaxStreams,
		a.Config.Server.MaxStreamDuration,
	)
	return serverhttp.NewRouter(handler, a.Metrics, serverhttp.RouterConfig{
		AllowedOrigins:    a.Config.Server.AllowedOrigins,
		MaxStreams:        a.Config.Server.MaxStreams,
		MaxStreamDuration: a.Config.Server.MaxStreamDuration,
	}, logging.NewComponentLogger("Router"))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/answer"
	"github.com/pdiddy/inquiry-engine/internal/clarify"
	"github.com/pdiddy/inquiry-engine/internal/graphrag"
	"github.com/pdiddy/inquiry-engine/internal/knowledge"
	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/internal/orchestrator"
	"github.com/pdiddy/inquiry-engine/internal/research"
	"github.com/pdiddy/inquiry-engine/internal/router"
	"github.com/pdiddy/inquiry-engine/internal/secrets"
	"github.com/pdiddy/inquiry-engine/internal/verify"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// engine holds the fully wired pipeline for one CLI invocation.
type engine struct {
	store  *knowledge.Store
	router *router.Router
	orch   *orchestrator.Orchestrator
}

// newEngine opens the corpus store and wires every stage against it.
func newEngine(cfg types.EngineConfig, sec secrets.Store, log *zap.Logger) (*engine, error) {
	store, err := knowledge.NewStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	gw, rt, err := newGateway(cfg, sec, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	graph := graphrag.New(store, graphrag.OptionsFromConfig(cfg.Graph), log)

	stages := orchestrator.Stages{
		Clarifier:  clarify.New(gw, log),
		Researcher: research.New(store, store, graph, gw, research.Options{MaxFindings: cfg.Research.MaxFindings}, log),
		Verifier:   verify.New(gw, verify.OptionsFromConfig(cfg.Verification), log),
		Answerer:   answer.New(gw, answer.OptionsFromConfig(cfg.Answer), log),
		Audit:      store.RecordAccess,
	}

	return &engine{
		store:  store,
		router: rt,
		orch:   orchestrator.New(stages, orchestrator.OptionsFromConfig(cfg), log),
	}, nil
}

// Close releases the corpus store.
func (e *engine) Close() error {
	return e.store.Close()
}

// newGateway builds the router and both model backends.
func newGateway(cfg types.EngineConfig, sec secrets.Store, log *zap.Logger) (*llm.Gateway, *router.Router, error) {
	var pii router.PIIDetector
	if cfg.Router.DetectPII {
		pii = router.NewPatternDetector()
	}
	rt := router.New(pii, log)

	local, err := llm.NewOllamaBackend(cfg.Models.LocalHost, cfg.Models.LocalModel, &http.Client{})
	if err != nil {
		return nil, nil, err
	}

	cloud, err := cloudBackend(cfg.Models, sec)
	if err != nil {
		// Public content then fails over to the stage fallbacks; local
		// routing still works.
		log.Warn("cloud backend disabled", zap.Error(err))
	}

	gw := llm.NewGateway(rt, cloud, local,
		llm.WithTimeout(cfg.Models.CallTimeout),
		llm.WithRetries(cfg.Models.MaxRetries),
		llm.WithLogger(log),
	)
	return gw, rt, nil
}

// cloudBackend selects the configured cloud provider. The API key comes
// from configuration, then from .secrets/ or the provider's environment
// variable. A missing key yields a nil backend and an error.
func cloudBackend(cfg types.ModelConfig, sec secrets.Store) (llm.Backend, error) {
	key := cfg.CloudAPIKey
	switch cfg.CloudProvider {
	case types.ProviderOpenRouter:
		if key == "" {
			key = sec.Get(secrets.OpenRouterAPIKey)
		}
		if key == "" {
			return nil, fmt.Errorf("no %s found in config, environment, or .secrets/", secrets.OpenRouterAPIKey)
		}
		return llm.NewOpenRouterBackend(key, cfg.CloudModel), nil
	default:
		if key == "" {
			key = sec.Get(secrets.AnthropicAPIKey)
		}
		if key == "" {
			return nil, fmt.Errorf("no %s found in config, environment, or .secrets/", secrets.AnthropicAPIKey)
		}
		return &llm.ClaudeBackend{APIKey: key, Model: cfg.CloudModel, Client: &http.Client{}}, nil
	}
}

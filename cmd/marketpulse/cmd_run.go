// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AleutianAI/MarketPulse/cmd/marketpulse/config"
	"github.com/AleutianAI/MarketPulse/pkg/logging"
	"github.com/AleutianAI/MarketPulse/pkg/telemetry"
	"github.com/AleutianAI/MarketPulse/pkg/ux"
	"github.com/AleutianAI/MarketPulse/services/embedding"
	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/llm"
	"github.com/AleutianAI/MarketPulse/services/survey"
	"github.com/AleutianAI/MarketPulse/services/workflow"
	"github.com/spf13/cobra"
)

// runWorkflow executes the full loop for one seed idea.
func runWorkflow(cmd *cobra.Command, args []string) {
	cfg := config.Global
	seedIdea := strings.Join(args, " ")

	logger, closeLog, err := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		LogDir: cfg.Logging.Dir,
		JSON:   cfg.Logging.JSON,
	})
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to initialize logging: %v", err))
		os.Exit(1)
	}
	defer closeLog()
	logging.SetDefault(logger)

	// CLI flags override the config file
	if iterations > 0 {
		cfg.Workflow.MaxIterations = iterations
	}
	if personaCount > 0 {
		cfg.Workflow.Personas = personaCount
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if backendType != "" {
		cfg.ModelBackend.Type = backendType
	}
	if err := config.Validate(cfg); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if shutdown, err := initTelemetry(ctx, cfg); err != nil {
		ux.Warning(fmt.Sprintf("Telemetry disabled: %v", err))
	} else {
		defer shutdown(context.Background())
	}

	client, err := buildLLMClient(cfg)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to build the model backend: %v", err))
		os.Exit(1)
	}

	raters, err := buildRaters(ctx, cfg)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to prepare the survey raters: %v", err))
		os.Exit(1)
	}

	ideator, err := ideation.NewIdeator(client, logger)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	personas, err := ideation.NewPersonaGenerator(client, logger)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	var personaSource workflow.PersonaSource = personas
	if targetMarket != "" {
		personaSource = &targetedPersonaSource{gen: personas, market: targetMarket}
	}
	simulator, err := ideation.NewSimulator(client, logger,
		ideation.WithConcurrency(cfg.Workflow.SimulationConcurrency))
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	critic, err := ideation.NewCritic(client, logger)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	aggregator, err := survey.NewAggregator(
		cfg.Workflow.MinRespondents,
		cfg.Workflow.Personas,
		cfg.Thresholds.Thresholds(),
		logger,
	)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	retry := workflow.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Workflow.RetryAttempts

	orch, err := workflow.NewOrchestrator(
		workflow.Config{
			MaxIterations:     cfg.Workflow.MaxIterations,
			PersonaCount:      cfg.Workflow.Personas,
			IterationTimeout:  time.Duration(cfg.Workflow.IterationTimeoutMinutes) * time.Minute,
			RatingConcurrency: cfg.Workflow.RatingConcurrency,
			Retry:             retry,
		},
		workflow.Collaborators{
			Ideator:   ideator,
			Personas:  personaSource,
			Simulator: simulator,
			Critic:    critic,
			Raters:    raters,
		},
		aggregator,
		logger,
	)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ux.Title("MarketPulse")
	ux.Info(fmt.Sprintf("Seed idea: %s", seedIdea))
	ux.Info(fmt.Sprintf("Up to %d iterations, %d personas each, %s backend",
		cfg.Workflow.MaxIterations, cfg.Workflow.Personas, cfg.ModelBackend.Type))

	result, err := orch.Run(ctx, seedIdea)
	if err != nil && result == nil {
		ux.Error(fmt.Sprintf("Run aborted: %v", err))
		os.Exit(1)
	}

	printRunResult(result)

	path, err := result.Save(cfg.OutputDir)
	if err != nil {
		ux.Warning(fmt.Sprintf("Could not save the run result: %v", err))
	} else {
		ux.Muted(fmt.Sprintf("Result saved to %s", path))
	}

	if result.Status == workflow.StatusFailed {
		os.Exit(1)
	}
}

// targetedPersonaSource narrows the respondent population to one market
// segment named on the command line.
type targetedPersonaSource struct {
	gen    *ideation.PersonaGenerator
	market string
}

func (s *targetedPersonaSource) GeneratePersonas(ctx context.Context, count int) ([]ideation.Persona, error) {
	return s.gen.GenerateTargetedPersonas(ctx, s.market, count)
}

// initTelemetry starts the configured exporters and, when the Prometheus
// exporter is on, serves /metrics in the background.
func initTelemetry(ctx context.Context, cfg config.MarketPulseConfig) (func(context.Context) error, error) {
	tcfg := telemetry.DefaultConfig()
	if cfg.Telemetry.TraceExporter != "" {
		tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	}
	if cfg.Telemetry.MetricExporter != "" {
		tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	if handler := telemetry.MetricsHandler(); handler != nil && cfg.Telemetry.PrometheusPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Telemetry.PrometheusPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			if err := http.ListenAndServe(addr, mux); err != nil {
				ux.Warning(fmt.Sprintf("Metrics endpoint stopped: %v", err))
			}
		}()
	}
	return shutdown, nil
}

// buildLLMClient constructs the configured backend, rate limited when the
// config asks for it. The concrete clients read their endpoints from the
// environment, so config values are exported before construction.
func buildLLMClient(cfg config.MarketPulseConfig) (llm.LLMClient, error) {
	var (
		client llm.LLMClient
		err    error
	)
	switch cfg.ModelBackend.Type {
	case "ollama":
		if cfg.ModelBackend.BaseURL != "" {
			os.Setenv("OLLAMA_BASE_URL", cfg.ModelBackend.BaseURL)
		}
		if cfg.ModelBackend.Model != "" {
			os.Setenv("OLLAMA_MODEL", cfg.ModelBackend.Model)
		}
		client, err = llm.NewOllamaClient()
	case "openai":
		if cfg.ModelBackend.Model != "" {
			os.Setenv("OPENAI_MODEL", cfg.ModelBackend.Model)
		}
		client, err = llm.NewOpenAIClient()
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Workflow.RateLimitRPS > 0 {
		burst := cfg.Workflow.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		return llm.NewRateLimitedClient(client, cfg.Workflow.RateLimitRPS, burst)
	}
	return client, nil
}

// buildEmbeddingProvider constructs the configured embedding backend.
func buildEmbeddingProvider(cfg config.MarketPulseConfig) (embedding.Provider, error) {
	switch cfg.Embeddings.Type {
	case "http":
		return embedding.NewHTTPClient(cfg.Embeddings.BaseURL), nil
	case "openai":
		return embedding.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), cfg.Embeddings.Model)
	default:
		return nil, fmt.Errorf("unknown embeddings backend %q", cfg.Embeddings.Type)
	}
}

// buildRaters creates one calibrated rater per survey dimension and warms
// the anchor embeddings up front so a dead embeddings backend fails the
// run before any LLM spend.
func buildRaters(ctx context.Context, cfg config.MarketPulseConfig) (map[survey.Dimension]workflow.ResponseRater, error) {
	provider, err := buildEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}

	sets := survey.DefaultReferenceSets()
	raters := make(map[survey.Dimension]workflow.ResponseRater, len(sets))
	for _, dim := range survey.AllDimensions() {
		rater, err := survey.NewRater(provider, sets[dim],
			survey.WithTemperature(cfg.Survey.Temperature),
			survey.WithEpsilon(cfg.Survey.Epsilon),
		)
		if err != nil {
			return nil, fmt.Errorf("rater for %s: %w", dim, err)
		}
		if err := rater.Warm(ctx); err != nil {
			return nil, fmt.Errorf("warm %s anchors: %w", dim, err)
		}
		raters[dim] = rater
	}
	return raters, nil
}

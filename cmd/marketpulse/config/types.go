// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/MarketPulse/services/survey"
)

type MarketPulseConfig struct {
	// Workflow: the refinement loop parameters
	Workflow WorkflowConfig `yaml:"workflow"`

	// Survey: SSR rating parameters
	Survey SurveyConfig `yaml:"survey"`

	// Thresholds: decision-table thresholds, as percentages 0-100
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// ModelBackend: decides which LLM serves the agents
	ModelBackend BackendConfig `yaml:"model_backend"`

	// Embeddings: which embedding backend rates survey answers
	Embeddings EmbeddingConfig `yaml:"embeddings"`

	// Logging: level and optional log directory
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: OpenTelemetry exporters, off by default for CLI use
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// OutputDir is where run results are written as JSON
	OutputDir string `yaml:"output_dir"`
}

type WorkflowConfig struct {
	MaxIterations           int     `yaml:"max_iterations" validate:"min=1,max=10"`
	Personas                int     `yaml:"personas" validate:"min=10,max=500"`
	IterationTimeoutMinutes int     `yaml:"iteration_timeout_minutes" validate:"min=0"`
	RatingConcurrency       int     `yaml:"rating_concurrency" validate:"min=1,max=64"`
	SimulationConcurrency   int     `yaml:"simulation_concurrency" validate:"min=1,max=64"`
	RetryAttempts           int     `yaml:"retry_attempts" validate:"min=1,max=10"`
	MinRespondents          int     `yaml:"min_respondents" validate:"min=1"`
	RateLimitRPS            float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst          int     `yaml:"rate_limit_burst" validate:"gte=0"`
}

type SurveyConfig struct {
	Temperature float64 `yaml:"temperature" validate:"gt=0"`
	Epsilon     float64 `yaml:"epsilon" validate:"gte=0,lt=1"`
}

// ThresholdConfig carries the decision thresholds as percentages because
// that is how they read in a config file ("superfan: 10" means 10%). The
// survey layer works in fractions; Thresholds() converts.
type ThresholdConfig struct {
	Superfan           float64 `yaml:"superfan" validate:"gte=0,lte=100"`
	Enthusiast         float64 `yaml:"enthusiast" validate:"gte=0,lte=100"`
	ModerateEnthusiast float64 `yaml:"moderate_enthusiast" validate:"gte=0,lte=100"`
	Traditional        float64 `yaml:"traditional" validate:"gte=0,lte=100"`
}

// Thresholds converts the percentage config values to the fractional
// thresholds the aggregator consumes.
func (t ThresholdConfig) Thresholds() survey.Thresholds {
	return survey.Thresholds{
		Superfan:           t.Superfan / 100.0,
		Enthusiast:         t.Enthusiast / 100.0,
		ModerateEnthusiast: t.ModerateEnthusiast / 100.0,
		Traditional:        t.Traditional / 100.0,
	}
}

type BackendConfig struct {
	// Type can be "ollama" or "openai".
	Type    string `yaml:"type" validate:"oneof=ollama openai"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type EmbeddingConfig struct {
	// Type can be "http" (local embeddings sidecar) or "openai".
	Type    string `yaml:"type" validate:"oneof=http openai"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
	PrometheusPort int    `yaml:"prometheus_port" validate:"min=0,max=65535"`
}

func DefaultConfig() MarketPulseConfig {
	defaults := survey.DefaultThresholds()
	return MarketPulseConfig{
		Workflow: WorkflowConfig{
			MaxIterations:           3,
			Personas:                100,
			IterationTimeoutMinutes: 15,
			RatingConcurrency:       8,
			SimulationConcurrency:   8,
			RetryAttempts:           3,
			MinRespondents:          10,
			RateLimitRPS:            2.0,
			RateLimitBurst:          4,
		},
		Survey: SurveyConfig{
			Temperature: survey.DefaultTemperature,
			Epsilon:     survey.DefaultEpsilon,
		},
		Thresholds: ThresholdConfig{
			Superfan:           defaults.Superfan * 100.0,
			Enthusiast:         defaults.Enthusiast * 100.0,
			ModerateEnthusiast: defaults.ModerateEnthusiast * 100.0,
			Traditional:        defaults.Traditional * 100.0,
		},
		ModelBackend: BackendConfig{
			Type:    "ollama",
			BaseURL: "http://localhost:11434",
		},
		Embeddings: EmbeddingConfig{
			Type:    "http",
			BaseURL: "http://localhost:8000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			PrometheusPort: 9090,
		},
		OutputDir: "~/.marketpulse/runs",
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ideation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/MarketPulse/services/llm"
)

// DefaultSimulationConcurrency bounds the persona fan-out. Sized for
// typical provider rate limits; the shared llm.RateLimitedClient is the
// second line of defense.
const DefaultSimulationConcurrency = 8

// Simulator asks each persona the survey questions about a concept.
type Simulator struct {
	client      llm.LLMClient
	concurrency int
	temperature float32
	logger      *slog.Logger
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithConcurrency bounds the number of in-flight persona calls.
func WithConcurrency(n int) SimulatorOption {
	return func(s *Simulator) { s.concurrency = n }
}

// NewSimulator creates a simulator over the given backend.
func NewSimulator(client llm.LLMClient, logger *slog.Logger, opts ...SimulatorOption) (*Simulator, error) {
	if client == nil {
		return nil, fmt.Errorf("simulator: llm client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulator{
		client:      client,
		concurrency: DefaultSimulationConcurrency,
		temperature: 0.7,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		return nil, fmt.Errorf("simulator: concurrency must be >= 1, got %d", s.concurrency)
	}
	return s, nil
}

// SimulateResponses collects survey answers from every persona.
//
// Calls fan out concurrently up to the configured limit. A persona whose
// call or parse fails is logged and skipped; downstream respondent-count
// checks decide whether the surviving sample is usable. The error return
// fires only when the context dies or every persona fails.
func (s *Simulator) SimulateResponses(ctx context.Context, concept *Concept, personas []Persona) ([]PersonaResponse, error) {
	if concept == nil {
		return nil, fmt.Errorf("simulator: concept is nil")
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("simulator: no personas to simulate")
	}
	s.logger.Info("Simulating market response", "concept", concept.Name, "personas", len(personas))

	results := make([]*PersonaResponse, len(personas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, persona := range personas {
		i, persona := i, persona
		g.Go(func() error {
			resp, err := s.simulateOne(gctx, concept, persona)
			if err != nil {
				// Context death aborts the whole fan-out; anything else
				// costs only this respondent.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Persona simulation failed", "persona", persona.Name, "error", err)
				return nil
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: simulation aborted: %v", ErrCollaborator, err)
	}

	responses := make([]PersonaResponse, 0, len(personas))
	for _, r := range results {
		if r != nil {
			responses = append(responses, *r)
		}
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: every persona simulation failed", ErrCollaborator)
	}
	s.logger.Info("Simulation complete", "responses", len(responses), "failed", len(personas)-len(responses))
	return responses, nil
}

func (s *Simulator) simulateOne(ctx context.Context, concept *Concept, persona Persona) (*PersonaResponse, error) {
	messages := []llm.Message{
		{Role: "system", Content: persona.PromptContext() + "\n" + simulatorSystemPreamble},
		{Role: "user", Content: fmt.Sprintf(simulatorResponsePrompt, concept.Summary())},
	}
	out, err := s.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(s.temperature),
		MaxTokens:   llm.IntPtr(1000),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaborator, err)
	}

	var resp PersonaResponse
	if err := decodeModelJSON(out, &resp); err != nil {
		return nil, err
	}
	if resp.Interest == "" || resp.Disappointment == "" || resp.Recommendation == "" {
		return nil, fmt.Errorf("%w: survey answers incomplete", ErrMalformedOutput)
	}
	resp.PersonaName = persona.Name
	return &resp, nil
}

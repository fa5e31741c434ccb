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
	"sync"

	"github.com/AleutianAI/MarketPulse/services/llm"
)

const (
	// personaBatchSize keeps each structured-output request small enough
	// that models return parseable JSON reliably.
	personaBatchSize = 5

	// maxFailedBatches is the consecutive-failure budget before giving up.
	maxFailedBatches = 3
)

// PersonaGenerator creates diverse synthetic consumer personas.
//
// Personas are cached per generator: repeated iterations of one run reuse
// the same population, which keeps iteration-over-iteration metric changes
// attributable to the concept rather than to respondent churn.
type PersonaGenerator struct {
	client      llm.LLMClient
	temperature float32
	logger      *slog.Logger

	mu    sync.Mutex
	cache []Persona
}

// NewPersonaGenerator creates a generator over the given backend.
func NewPersonaGenerator(client llm.LLMClient, logger *slog.Logger) (*PersonaGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("persona generator: llm client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonaGenerator{
		client:      client,
		temperature: 0.8,
		logger:      logger,
	}, nil
}

// GeneratePersonas returns count personas, generating in small batches.
//
// Failed batches are skipped; maxFailedBatches consecutive failures abort
// with ErrPersonaGeneration.
func (g *PersonaGenerator) GeneratePersonas(ctx context.Context, count int) ([]Persona, error) {
	if count < 1 {
		return nil, fmt.Errorf("persona generator: count must be >= 1, got %d", count)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.cache) >= count {
		g.logger.Info("Using cached personas", "count", count)
		return append([]Persona(nil), g.cache[:count]...), nil
	}

	g.logger.Info("Generating personas", "count", count)
	personas := make([]Persona, 0, count)
	failed := 0

	for len(personas) < count {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersonaGeneration, err)
		}

		remaining := count - len(personas)
		batchSize := personaBatchSize
		if remaining < batchSize {
			batchSize = remaining
		}

		batch, err := g.generateBatch(ctx, fmt.Sprintf(personaBatchPrompt, batchSize))
		if err != nil || len(batch) == 0 {
			failed++
			g.logger.Warn("Persona batch failed", "attempt", failed, "budget", maxFailedBatches, "error", err)
			if failed >= maxFailedBatches {
				return nil, fmt.Errorf("%w: %d consecutive batch failures, %d personas generated before giving up",
					ErrPersonaGeneration, failed, len(personas))
			}
			continue
		}
		failed = 0
		personas = append(personas, batch...)
	}

	personas = personas[:count]
	g.cache = personas
	g.logger.Info("Personas ready", "count", len(personas))
	return append([]Persona(nil), personas...), nil
}

// GenerateTargetedPersonas generates personas focused on one market
// segment. Targeted populations are not cached; each concept revision may
// target a different segment.
func (g *PersonaGenerator) GenerateTargetedPersonas(ctx context.Context, targetMarket string, count int) ([]Persona, error) {
	if count < 1 {
		return nil, fmt.Errorf("persona generator: count must be >= 1, got %d", count)
	}
	g.logger.Info("Generating targeted personas", "target_market", targetMarket, "count", count)

	personas := make([]Persona, 0, count)
	failed := 0
	for len(personas) < count {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersonaGeneration, err)
		}
		remaining := count - len(personas)
		batchSize := personaBatchSize
		if remaining < batchSize {
			batchSize = remaining
		}
		batch, err := g.generateBatch(ctx, fmt.Sprintf(personaTargetedPrompt, batchSize, targetMarket))
		if err != nil || len(batch) == 0 {
			failed++
			g.logger.Warn("Targeted persona batch failed", "attempt", failed, "error", err)
			if failed >= maxFailedBatches {
				return nil, fmt.Errorf("%w: targeted generation exhausted failure budget", ErrPersonaGeneration)
			}
			continue
		}
		failed = 0
		personas = append(personas, batch...)
	}
	return personas[:count], nil
}

// ClearCache drops the cached population.
func (g *PersonaGenerator) ClearCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = nil
}

func (g *PersonaGenerator) generateBatch(ctx context.Context, prompt string) ([]Persona, error) {
	messages := []llm.Message{
		{Role: "system", Content: personaSystemPrompt},
		{Role: "user", Content: prompt},
	}
	out, err := g.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(g.temperature),
		MaxTokens:   llm.IntPtr(4000),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persona batch: %v", ErrCollaborator, err)
	}

	var envelope struct {
		Personas []Persona `json:"personas"`
	}
	if err := decodeModelJSON(out, &envelope); err == nil && len(envelope.Personas) > 0 {
		return validPersonas(envelope.Personas, g.logger), nil
	}

	// Some models return a bare array despite the envelope instruction.
	var bare []Persona
	if err := decodeModelJSON(out, &bare); err != nil {
		return nil, err
	}
	return validPersonas(bare, g.logger), nil
}

// validPersonas filters out entries too thin to role-play.
func validPersonas(personas []Persona, logger *slog.Logger) []Persona {
	out := make([]Persona, 0, len(personas))
	for _, p := range personas {
		if p.Name == "" || p.Age <= 0 || p.Occupation == "" {
			logger.Warn("Skipping incomplete persona", "name", p.Name)
			continue
		}
		out = append(out, p)
	}
	return out
}

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
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/MarketPulse/services/llm"
)

// Ideator generates and refines product concepts.
type Ideator struct {
	client      llm.LLMClient
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewIdeator creates an ideator over the given backend.
func NewIdeator(client llm.LLMClient, logger *slog.Logger) (*Ideator, error) {
	if client == nil {
		return nil, fmt.Errorf("ideator: llm client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ideator{
		client:      client,
		temperature: 0.9, // creative end of the dial
		maxTokens:   4000,
		logger:      logger,
	}, nil
}

// GenerateConcept turns a seed idea into an initial product concept.
// Optional market signals are folded into the prompt.
func (a *Ideator) GenerateConcept(ctx context.Context, seedIdea string, marketSignals []string) (*Concept, error) {
	if strings.TrimSpace(seedIdea) == "" {
		return nil, fmt.Errorf("ideator: seed idea is empty")
	}
	a.logger.Info("Generating concept", "seed", seedIdea)

	var signals string
	if len(marketSignals) > 0 {
		var b strings.Builder
		b.WriteString("\nMarket signals:\n")
		for _, s := range marketSignals {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		signals = b.String()
	}

	prompt := fmt.Sprintf(ideatorGeneratePrompt, seedIdea, signals)
	return a.generate(ctx, prompt)
}

// RefineConcept revises a concept using the critic's feedback.
func (a *Ideator) RefineConcept(ctx context.Context, current *Concept, feedback string) (*Concept, error) {
	if current == nil {
		return nil, fmt.Errorf("ideator: current concept is nil")
	}
	a.logger.Info("Refining concept", "concept", current.Name)

	prompt := fmt.Sprintf(ideatorRefinePrompt, current.Summary(), feedback)
	refined, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	// A refinement is a new revision of the same concept lineage.
	refined.ID = uuid.NewString()
	return refined, nil
}

func (a *Ideator) generate(ctx context.Context, prompt string) (*Concept, error) {
	messages := []llm.Message{
		{Role: "system", Content: ideatorSystemPrompt},
		{Role: "user", Content: prompt},
	}
	out, err := a.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(a.temperature),
		MaxTokens:   llm.IntPtr(a.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ideator: %v", ErrCollaborator, err)
	}

	var concept Concept
	if err := decodeModelJSON(out, &concept); err != nil {
		return nil, fmt.Errorf("%w: concept: %v", ErrCollaborator, err)
	}
	if concept.Name == "" || concept.ProblemSolved == "" {
		return nil, fmt.Errorf("%w: concept missing name or problem statement", ErrCollaborator)
	}
	if concept.ID == "" {
		concept.ID = uuid.NewString()
	}
	a.logger.Info("Concept ready", "concept", concept.Name, "id", concept.ID)
	return &concept, nil
}

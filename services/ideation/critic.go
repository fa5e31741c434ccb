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
	"sort"
	"strings"

	"github.com/AleutianAI/MarketPulse/services/llm"
	"github.com/AleutianAI/MarketPulse/services/survey"
)

// feedbackSampleSize is how many raw responses the critic sees verbatim.
const feedbackSampleSize = 5

// Critic digests survey metrics and raw feedback into refinement guidance
// for the ideator.
type Critic struct {
	client      llm.LLMClient
	temperature float32
	logger      *slog.Logger
}

// NewCritic creates a critic over the given backend.
func NewCritic(client llm.LLMClient, logger *slog.Logger) (*Critic, error) {
	if client == nil {
		return nil, fmt.Errorf("critic: llm client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Critic{
		client:      client,
		temperature: 0.4, // analysis, not creativity
		logger:      logger,
	}, nil
}

// Critique produces refinement guidance from one iteration's results.
func (c *Critic) Critique(ctx context.Context, concept *Concept, report *survey.SegmentationReport, responses []PersonaResponse) (string, error) {
	if concept == nil || report == nil {
		return "", fmt.Errorf("critic: concept and report are required")
	}
	c.logger.Info("Critiquing concept", "concept", concept.Name, "respondents", report.Respondents)

	prompt := fmt.Sprintf(criticFeedbackPrompt,
		concept.Summary(),
		report.Respondents,
		report.SuperfanRatio*100,
		report.EnthusiastRatio*100,
		report.TraditionalRatio*100,
		report.NPS,
		report.Recommendation,
		bulleted(TopBenefits(responses, 5)),
		bulleted(TopConcerns(responses, 5)),
		SampleFeedback(responses, feedbackSampleSize),
	)

	messages := []llm.Message{
		{Role: "system", Content: criticSystemPrompt},
		{Role: "user", Content: prompt},
	}
	out, err := c.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(c.temperature),
		MaxTokens:   llm.IntPtr(2000),
	})
	if err != nil {
		return "", fmt.Errorf("%w: critic: %v", ErrCollaborator, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: critic returned empty feedback", ErrCollaborator)
	}
	return out, nil
}

// TopBenefits tallies the most frequently cited main benefits.
func TopBenefits(responses []PersonaResponse, n int) []string {
	counts := make(map[string]int)
	for _, r := range responses {
		if b := strings.TrimSpace(r.MainBenefit); b != "" {
			counts[b]++
		}
	}
	return topN(counts, n)
}

// TopConcerns tallies the most frequently raised concerns.
func TopConcerns(responses []PersonaResponse, n int) []string {
	counts := make(map[string]int)
	for _, r := range responses {
		for _, concern := range r.Concerns {
			if c := strings.TrimSpace(concern); c != "" {
				counts[c]++
			}
		}
	}
	return topN(counts, n)
}

// SampleFeedback renders the first n responses as a readable digest.
func SampleFeedback(responses []PersonaResponse, n int) string {
	if n > len(responses) {
		n = len(responses)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		r := responses[i]
		fmt.Fprintf(&b, "%d. %s:\n", i+1, r.PersonaName)
		fmt.Fprintf(&b, "   - Interest: %s\n", r.Interest)
		fmt.Fprintf(&b, "   - Disappointment: %s\n", r.Disappointment)
		fmt.Fprintf(&b, "   - Recommendation: %s\n", r.Recommendation)
		fmt.Fprintf(&b, "   - Main Benefit: %s\n", r.MainBenefit)
		fmt.Fprintf(&b, "   - Concerns: %s\n", strings.Join(r.Concerns, ", "))
	}
	return b.String()
}

// topN returns the n highest-count keys, ties broken alphabetically so
// the digest is deterministic.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > len(keys) {
		n = len(keys)
	}
	return keys[:n]
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return "- (none reported)\n"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

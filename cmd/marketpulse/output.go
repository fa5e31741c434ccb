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
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/MarketPulse/pkg/ux"
	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/survey"
	"github.com/AleutianAI/MarketPulse/services/workflow"
)

const gaugeWidth = 24

// printRunResult renders one run's outcome: per-iteration metric lines,
// the final concept, and the verdict.
func printRunResult(result *workflow.RunResult) {
	fmt.Println()

	switch result.Status {
	case workflow.StatusThresholdMet:
		ux.Success(fmt.Sprintf("Viability threshold met after %d iteration(s)", len(result.History)))
	case workflow.StatusIterationsExhausted:
		ux.Warning(fmt.Sprintf("Iteration budget exhausted after %d iteration(s)", len(result.History)))
	case workflow.StatusFailed:
		where := "before the first iteration"
		if result.FailedIteration != nil {
			where = fmt.Sprintf("in iteration %d, phase %s", *result.FailedIteration+1, result.FailedPhase)
		}
		ux.Error(fmt.Sprintf("Run failed %s: %s", where, result.Error))
	}

	for _, record := range result.History {
		printIteration(&record)
	}

	if best := result.BestIteration(); best != nil && best.Report != nil {
		printVerdict(best)
	}

	if result.FinalConcept != nil {
		ux.Box("Final Concept", formatConcept(result.FinalConcept))
	}

	ux.Muted(fmt.Sprintf(
		"run %s | %d ideator, %d simulator, %d critic, %d rating calls | %d retries | %s",
		result.RunID,
		result.Usage.IdeatorCalls, result.Usage.SimulatorCalls,
		result.Usage.CriticCalls, result.Usage.RatingCalls,
		result.Usage.Retries,
		result.Usage.Elapsed.Round(time.Second),
	))
}

func printIteration(record *workflow.IterationRecord) {
	fmt.Println()
	ux.Title(fmt.Sprintf("Iteration %d: %s", record.Index+1, record.Concept.Name))
	if record.Report == nil {
		return
	}
	r := record.Report

	ux.Metric("Superfans", r.SuperfanRatio, gaugeWidth)
	ux.Metric("Enthusiasts", r.EnthusiastRatio, gaugeWidth)
	ux.Metric("Would miss it (PMF)", r.TraditionalRatio, gaugeWidth)
	ux.Info(fmt.Sprintf("NPS %+.0f (promoters %.0f%%, detractors %.0f%%) across %d respondents",
		r.NPS, r.PromoterRatio*100, r.DetractorRatio*100, r.Respondents))

	if record.Feedback != "" {
		ux.Muted("Critic: " + firstLine(record.Feedback))
	}
}

func printVerdict(best *workflow.IterationRecord) {
	r := best.Report
	var body strings.Builder
	switch r.Recommendation {
	case survey.RecommendationMassMarket:
		body.WriteString("Strong superfan core with broad appeal. Build for the mass market.")
	case survey.RecommendationNicheFirst:
		body.WriteString("A passionate niche exists. Nail it before going broad.")
	case survey.RecommendationRefine:
		body.WriteString("Moderate interest but no passionate advocates yet. Keep refining.")
	case survey.RecommendationPivot:
		body.WriteString("Weak market fit. The concept needs a major change in direction.")
	}
	body.WriteString(fmt.Sprintf("\n\nSuggested business model: %s", r.BusinessModel))

	ux.Box(fmt.Sprintf("Verdict: %s", r.Recommendation), body.String())
}

func formatConcept(c *ideation.Concept) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.Tagline != "" {
		b.WriteString(" - " + c.Tagline)
	}
	if c.TargetMarket != "" {
		b.WriteString("\nTarget market: " + c.TargetMarket)
	}
	if c.ProblemSolved != "" {
		b.WriteString("\nProblem: " + c.ProblemSolved)
	}
	for _, f := range c.Features {
		b.WriteString("\n  " + string(ux.IconBullet) + " " + f)
	}
	if c.PricingModel != "" {
		b.WriteString("\nPricing: " + c.PricingModel)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

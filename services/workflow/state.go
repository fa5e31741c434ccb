// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow drives the iterative refinement loop: ideate a concept,
// simulate the market, evaluate viability, then refine or stop.
package workflow

import (
	"time"

	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/survey"
)

// Phase names one stage of an iteration.
type Phase string

const (
	PhaseIdeate   Phase = "IDEATE"
	PhaseSimulate Phase = "SIMULATE"
	PhaseEvaluate Phase = "EVALUATE"
	PhaseRefine   Phase = "REFINE"
	PhaseFinalize Phase = "FINALIZE"
)

// RunStatus is the terminal status of a run. The three outcomes are
// distinct on purpose: "good enough", "ran out of budget", and "broke".
type RunStatus string

const (
	// StatusThresholdMet: an iteration cleared a viability threshold.
	StatusThresholdMet RunStatus = "threshold_met"

	// StatusIterationsExhausted: the iteration budget ran out before any
	// threshold was met. The best concept so far is still reported.
	StatusIterationsExhausted RunStatus = "iterations_exhausted"

	// StatusFailed: a phase failed after exhausting retries.
	StatusFailed RunStatus = "failed"
)

// Usage counts the external work a run performed.
type Usage struct {
	IdeatorCalls   int           `json:"ideator_calls"`
	SimulatorCalls int           `json:"simulator_calls"`
	CriticCalls    int           `json:"critic_calls"`
	RatingCalls    int           `json:"rating_calls"`
	Retries        int           `json:"retries"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// IterationRecord is the immutable snapshot of one completed iteration.
// History is append-only; records are never revised by later iterations.
type IterationRecord struct {
	// Index is the zero-based iteration index.
	Index int `json:"index"`

	Concept     ideation.Concept           `json:"concept"`
	Respondents int                        `json:"respondents"`
	Report      *survey.SegmentationReport `json:"report"`

	// Feedback is the critic's guidance that produced the NEXT revision.
	// Empty on the final iteration.
	Feedback string `json:"feedback,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// RunResult is the full outcome of one workflow run.
type RunResult struct {
	RunID    string    `json:"run_id"`
	SeedIdea string    `json:"seed_idea"`
	Status   RunStatus `json:"status"`

	// FinalConcept is the last fully evaluated concept, nil when the run
	// failed before any iteration completed.
	FinalConcept *ideation.Concept `json:"final_concept,omitempty"`

	// History holds one record per completed iteration, in order.
	History []IterationRecord `json:"history"`

	// FailedIteration is the zero-based index of the iteration that broke,
	// set only when Status is StatusFailed.
	FailedIteration *int `json:"failed_iteration,omitempty"`

	// FailedPhase names the phase that broke, set with FailedIteration.
	FailedPhase Phase `json:"failed_phase,omitempty"`

	// Error is the failure message, set only when Status is StatusFailed.
	Error string `json:"error,omitempty"`

	Usage Usage `json:"usage"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// BestIteration returns the completed iteration with the highest superfan
// ratio, or nil when no iteration completed.
func (r *RunResult) BestIteration() *IterationRecord {
	var best *IterationRecord
	for i := range r.History {
		rec := &r.History[i]
		if rec.Report == nil {
			continue
		}
		if best == nil || rec.Report.SuperfanRatio > best.Report.SuperfanRatio {
			best = rec
		}
	}
	return best
}

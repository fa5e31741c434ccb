// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/survey"
)

type fakeIdeator struct {
	mu      sync.Mutex
	gens    int
	refines int
	genErr  error
}

func (f *fakeIdeator) GenerateConcept(_ context.Context, seed string, _ []string) (*ideation.Concept, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gens++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &ideation.Concept{ID: "c0", Name: "Concept v1", ProblemSolved: seed}, nil
}

func (f *fakeIdeator) RefineConcept(_ context.Context, current *ideation.Concept, feedback string) (*ideation.Concept, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refines++
	if feedback == "" {
		return nil, errors.New("refine called without feedback")
	}
	return &ideation.Concept{
		ID:            fmt.Sprintf("c%d", f.refines),
		Name:          fmt.Sprintf("Concept v%d", f.refines+1),
		ProblemSolved: current.ProblemSolved,
	}, nil
}

type fakePersonas struct {
	err   error
	calls int
}

func (f *fakePersonas) GeneratePersonas(_ context.Context, count int) ([]ideation.Persona, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	personas := make([]ideation.Persona, count)
	for i := range personas {
		personas[i] = ideation.Persona{Name: fmt.Sprintf("p%d", i), Age: 30, Occupation: "tester"}
	}
	return personas, nil
}

// fakeSimulator calls fn with the 1-based call count.
type fakeSimulator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, personas []ideation.Persona) ([]ideation.PersonaResponse, error)
}

func (f *fakeSimulator) SimulateResponses(_ context.Context, _ *ideation.Concept, personas []ideation.Persona) ([]ideation.PersonaResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fn(f.calls, personas)
}

func allRespond(_ int, personas []ideation.Persona) ([]ideation.PersonaResponse, error) {
	responses := make([]ideation.PersonaResponse, len(personas))
	for i, p := range personas {
		responses[i] = ideation.PersonaResponse{
			PersonaName:    p.Name,
			Interest:       "interest answer",
			Disappointment: "disappointment answer",
			Recommendation: "recommendation answer",
		}
	}
	return responses, nil
}

type fakeCritic struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCritic) Critique(_ context.Context, _ *ideation.Concept, _ *survey.SegmentationReport, _ []ideation.PersonaResponse) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "sharpen the niche", nil
}

// fakeRater returns a fixed PMF for every answer.
type fakeRater struct {
	pmf survey.PMF
	err error
}

func (f *fakeRater) Rate(_ context.Context, _ string) (survey.PMF, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pmf.Clone(), nil
}

// hotRaters make every respondent a superfan; coldRaters make nobody one.
func hotRaters() map[survey.Dimension]ResponseRater {
	return map[survey.Dimension]ResponseRater{
		survey.DimensionInterest:       &fakeRater{pmf: survey.PointMass(5, 5)},
		survey.DimensionDisappointment: &fakeRater{pmf: survey.PointMass(5, 5)},
		survey.DimensionRecommendation: &fakeRater{pmf: survey.PointMass(5, 5)},
	}
}

func coldRaters() map[survey.Dimension]ResponseRater {
	return map[survey.Dimension]ResponseRater{
		survey.DimensionInterest:       &fakeRater{pmf: survey.PointMass(5, 2)},
		survey.DimensionDisappointment: &fakeRater{pmf: survey.PointMass(5, 1)},
		survey.DimensionRecommendation: &fakeRater{pmf: survey.PointMass(5, 2)},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PersonaCount = 20
	cfg.Retry = RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
		JitterFactor:   0,
	}
	return cfg
}

func testAggregator(t *testing.T) *survey.Aggregator {
	t.Helper()
	a, err := survey.NewAggregator(10, 20, survey.DefaultThresholds(), nil)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func newTestOrchestrator(t *testing.T, cfg Config, collab Collaborators) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg, collab, testAggregator(t), nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func TestRunThresholdMetFirstIteration(t *testing.T) {
	ideator := &fakeIdeator{}
	critic := &fakeCritic{}
	sim := &fakeSimulator{fn: allRespond}
	collab := Collaborators{
		Ideator:   ideator,
		Personas:  &fakePersonas{},
		Simulator: sim,
		Critic:    critic,
		Raters:    hotRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StatusThresholdMet {
		t.Errorf("Status = %s, want threshold_met", result.Status)
	}
	if len(result.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(result.History))
	}
	if result.History[0].Index != 0 {
		t.Errorf("iteration index = %d, want 0", result.History[0].Index)
	}
	if critic.calls != 0 {
		t.Errorf("critic calls = %d, want 0 when first iteration already passes", critic.calls)
	}
	if ideator.refines != 0 {
		t.Errorf("refines = %d, want 0", ideator.refines)
	}
	if result.FinalConcept == nil || result.FinalConcept.Name != "Concept v1" {
		t.Errorf("FinalConcept = %+v", result.FinalConcept)
	}
	if result.Usage.RatingCalls != 20*3 {
		t.Errorf("rating calls = %d, want 60", result.Usage.RatingCalls)
	}
}

func TestRunIterationsExhausted(t *testing.T) {
	ideator := &fakeIdeator{}
	critic := &fakeCritic{}
	collab := Collaborators{
		Ideator:   ideator,
		Personas:  &fakePersonas{},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    critic,
		Raters:    coldRaters(),
	}

	cfg := testConfig()
	cfg.MaxIterations = 3
	o := newTestOrchestrator(t, cfg, collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != StatusIterationsExhausted {
		t.Errorf("Status = %s, want iterations_exhausted", result.Status)
	}
	if len(result.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(result.History))
	}
	for i, rec := range result.History {
		if rec.Index != i {
			t.Errorf("record %d has index %d", i, rec.Index)
		}
		if rec.Report == nil {
			t.Errorf("record %d missing report", i)
		}
	}
	// The critic runs after iterations 0 and 1; the final iteration has
	// no successor to guide.
	if critic.calls != 2 {
		t.Errorf("critic calls = %d, want 2", critic.calls)
	}
	if ideator.gens != 1 || ideator.refines != 2 {
		t.Errorf("gens/refines = %d/%d, want 1/2", ideator.gens, ideator.refines)
	}
	if result.History[2].Feedback != "" {
		t.Error("last record should carry no feedback")
	}
}

func TestRunSecondSimulateFails(t *testing.T) {
	// The second SIMULATE fails persistently; the run must end failed at
	// iteration index 1 with exactly one completed record.
	sim := &fakeSimulator{fn: func(call int, personas []ideation.Persona) ([]ideation.PersonaResponse, error) {
		if call >= 2 {
			return nil, fmt.Errorf("%w: provider outage", ideation.ErrCollaborator)
		}
		return allRespond(call, personas)
	}}
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: sim,
		Critic:    &fakeCritic{},
		Raters:    coldRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err == nil {
		t.Fatal("Run should return the failure")
	}

	if result.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if result.FailedIteration == nil || *result.FailedIteration != 1 {
		t.Errorf("FailedIteration = %v, want 1", result.FailedIteration)
	}
	if result.FailedPhase != PhaseSimulate {
		t.Errorf("FailedPhase = %s, want SIMULATE", result.FailedPhase)
	}
	if len(result.History) != 1 {
		t.Errorf("history length = %d, want 1 completed iteration", len(result.History))
	}
	if result.Error == "" {
		t.Error("Error message not recorded")
	}
	// The retryable failure was retried to exhaustion.
	if sim.calls != 1+testConfig().Retry.MaxAttempts {
		t.Errorf("simulator calls = %d, want %d", sim.calls, 1+testConfig().Retry.MaxAttempts)
	}
}

func TestRunRetriesTransientFailure(t *testing.T) {
	sim := &fakeSimulator{fn: func(call int, personas []ideation.Persona) ([]ideation.PersonaResponse, error) {
		if call == 1 {
			return nil, fmt.Errorf("%w: blip", ideation.ErrCollaborator)
		}
		return allRespond(call, personas)
	}}
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: sim,
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusThresholdMet {
		t.Errorf("Status = %s", result.Status)
	}
	if result.Usage.Retries == 0 {
		t.Error("retry not accounted in usage")
	}
}

func TestRunNonRetryableFailsFast(t *testing.T) {
	ideator := &fakeIdeator{genErr: errors.New("prompt template missing")}
	collab := Collaborators{
		Ideator:   ideator,
		Personas:  &fakePersonas{},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err == nil {
		t.Fatal("Run should fail")
	}
	if ideator.gens != 1 {
		t.Errorf("generate attempts = %d, want 1 (no retry for non-retryable)", ideator.gens)
	}
	if result.FailedPhase != PhaseIdeate {
		t.Errorf("FailedPhase = %s, want IDEATE", result.FailedPhase)
	}
	if result.FailedIteration == nil || *result.FailedIteration != 0 {
		t.Errorf("FailedIteration = %v, want 0", result.FailedIteration)
	}
}

func TestRunInsufficientRespondents(t *testing.T) {
	// Simulator loses most respondents; below the aggregator floor the
	// EVALUATE phase must fail without retry.
	sim := &fakeSimulator{fn: func(call int, personas []ideation.Persona) ([]ideation.PersonaResponse, error) {
		return allRespond(call, personas[:3])
	}}
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: sim,
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if !errors.Is(err, survey.ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
	if result.FailedPhase != PhaseEvaluate {
		t.Errorf("FailedPhase = %s, want EVALUATE", result.FailedPhase)
	}
}

func TestRunPersonaGenerationFailure(t *testing.T) {
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{err: fmt.Errorf("%w: no parseable personas", ideation.ErrPersonaGeneration)},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}

	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err == nil {
		t.Fatal("Run should fail")
	}
	if result.Status != StatusFailed {
		t.Errorf("Status = %s", result.Status)
	}
	if result.FailedIteration != nil {
		t.Errorf("FailedIteration = %v, want nil for pre-iteration failure", result.FailedIteration)
	}
	if len(result.History) != 0 {
		t.Errorf("history length = %d, want 0", len(result.History))
	}
}

func TestNewOrchestratorValidation(t *testing.T) {
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}
	agg := testAggregator(t)

	bad := testConfig()
	bad.MaxIterations = 0
	if _, err := NewOrchestrator(bad, collab, agg, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("max iterations 0: error = %v", err)
	}

	bad = testConfig()
	bad.MaxIterations = 11
	if _, err := NewOrchestrator(bad, collab, agg, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("max iterations 11: error = %v", err)
	}

	missingRater := collab
	missingRater.Raters = map[survey.Dimension]ResponseRater{
		survey.DimensionInterest: &fakeRater{pmf: survey.Uniform(5)},
	}
	if _, err := NewOrchestrator(testConfig(), missingRater, agg, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing rater: error = %v", err)
	}

	noCritic := collab
	noCritic.Critic = nil
	if _, err := NewOrchestrator(testConfig(), noCritic, agg, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing critic: error = %v", err)
	}

	if _, err := NewOrchestrator(testConfig(), collab, nil, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing aggregator: error = %v", err)
	}
}

func TestSaveAndLoadRunResult(t *testing.T) {
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    &fakeCritic{},
		Raters:    hotRaters(),
	}
	o := newTestOrchestrator(t, testConfig(), collab)
	result, err := o.Run(context.Background(), "seed idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := t.TempDir()
	path, err := result.Save(dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadRunResult(path)
	if err != nil {
		t.Fatalf("LoadRunResult: %v", err)
	}
	if loaded.RunID != result.RunID || loaded.Status != result.Status {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.History) != len(result.History) {
		t.Errorf("history length mismatch: %d vs %d", len(loaded.History), len(result.History))
	}
}

func TestTerminalTransitionLogsFinalizePhase(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	collab := Collaborators{
		Ideator:   &fakeIdeator{},
		Personas:  &fakePersonas{},
		Simulator: &fakeSimulator{fn: allRespond},
		Critic:    &fakeCritic{},
		Raters:    coldRaters(),
	}

	cfg := testConfig()
	cfg.MaxIterations = 1
	o, err := NewOrchestrator(cfg, collab, testAggregator(t), logger)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	result, err := o.Run(context.Background(), "seed idea")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusIterationsExhausted {
		t.Fatalf("Status = %s, want iterations_exhausted", result.Status)
	}
	if !strings.Contains(buf.String(), string(PhaseFinalize)) {
		t.Errorf("terminal transition log missing phase %s:\n%s", PhaseFinalize, buf.String())
	}
}

func TestSaveExpandsHomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	result := &RunResult{RunID: "run-1", Status: StatusThresholdMet}
	path, err := result.Save("~/.marketpulse/runs")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := filepath.Join(home, ".marketpulse", "runs", "run-1.json")
	if path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("saved file missing under home: %v", err)
	}
	// a literal ~ directory must never appear
	if _, err := os.Stat("~"); err == nil {
		t.Error("Save created a literal ~ directory in the working directory")
	}
}

func TestBestIteration(t *testing.T) {
	result := &RunResult{History: []IterationRecord{
		{Index: 0, Report: &survey.SegmentationReport{SuperfanRatio: 0.05}},
		{Index: 1, Report: &survey.SegmentationReport{SuperfanRatio: 0.14}},
		{Index: 2, Report: &survey.SegmentationReport{SuperfanRatio: 0.09}},
	}}
	best := result.BestIteration()
	if best == nil || best.Index != 1 {
		t.Errorf("BestIteration = %+v, want index 1", best)
	}

	empty := &RunResult{}
	if empty.BestIteration() != nil {
		t.Error("empty history should yield nil")
	}
}

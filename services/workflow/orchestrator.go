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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/survey"
)

var (
	tracer = otel.Tracer("marketpulse.workflow")
	meter  = otel.Meter("marketpulse.workflow")
)

// ConceptGenerator produces and refines product concepts.
type ConceptGenerator interface {
	GenerateConcept(ctx context.Context, seedIdea string, marketSignals []string) (*ideation.Concept, error)
	RefineConcept(ctx context.Context, current *ideation.Concept, feedback string) (*ideation.Concept, error)
}

// PersonaSource supplies the synthetic respondent population.
type PersonaSource interface {
	GeneratePersonas(ctx context.Context, count int) ([]ideation.Persona, error)
}

// MarketSimulator collects survey answers from personas.
type MarketSimulator interface {
	SimulateResponses(ctx context.Context, concept *ideation.Concept, personas []ideation.Persona) ([]ideation.PersonaResponse, error)
}

// FeedbackCritic digests one iteration's results into guidance.
type FeedbackCritic interface {
	Critique(ctx context.Context, concept *ideation.Concept, report *survey.SegmentationReport, responses []ideation.PersonaResponse) (string, error)
}

// ResponseRater converts one free-text answer into a PMF.
type ResponseRater interface {
	Rate(ctx context.Context, text string) (survey.PMF, error)
}

// Collaborators bundles the agents the orchestrator drives.
type Collaborators struct {
	Ideator   ConceptGenerator
	Personas  PersonaSource
	Simulator MarketSimulator
	Critic    FeedbackCritic

	// Raters maps each survey dimension to its calibrated rater.
	Raters map[survey.Dimension]ResponseRater
}

// Config holds the run parameters.
type Config struct {
	// MaxIterations bounds the refinement loop. Must be in [1, 10].
	MaxIterations int

	// PersonaCount is the respondent population size per iteration.
	PersonaCount int

	// IterationTimeout bounds one full iteration; zero disables it.
	IterationTimeout time.Duration

	// RatingConcurrency bounds the rating fan-out.
	RatingConcurrency int

	// Retry governs transient collaborator failures.
	Retry RetryConfig
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     3,
		PersonaCount:      100,
		IterationTimeout:  15 * time.Minute,
		RatingConcurrency: 8,
		Retry:             DefaultRetryConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxIterations < 1 || c.MaxIterations > 10 {
		return fmt.Errorf("%w: max iterations must be in [1, 10], got %d", ErrConfiguration, c.MaxIterations)
	}
	if c.PersonaCount < 1 {
		return fmt.Errorf("%w: persona count must be >= 1, got %d", ErrConfiguration, c.PersonaCount)
	}
	if c.IterationTimeout < 0 {
		return fmt.Errorf("%w: iteration timeout must be >= 0", ErrConfiguration)
	}
	if c.RatingConcurrency < 1 {
		return fmt.Errorf("%w: rating concurrency must be >= 1, got %d", ErrConfiguration, c.RatingConcurrency)
	}
	return c.Retry.Validate()
}

// Orchestrator runs the refinement loop.
//
// # Description
//
// One run: generate the persona population once, then iterate
// IDEATE -> SIMULATE -> EVALUATE until a viability threshold is met, the
// iteration budget runs out, or a phase fails after retries. Each
// completed iteration appends an immutable IterationRecord; the three
// terminal statuses are never conflated.
//
// # Thread Safety
//
// Orchestrator is safe for concurrent use; each Run carries its own state.
type Orchestrator struct {
	config     Config
	collab     Collaborators
	aggregator *survey.Aggregator
	logger     *slog.Logger

	// Metrics (initialized lazily)
	metricsOnce       sync.Once
	runsTotal         metric.Int64Counter
	iterationsTotal   metric.Int64Counter
	runDuration       metric.Float64Histogram
	iterationDuration metric.Float64Histogram
}

// NewOrchestrator wires the loop together.
func NewOrchestrator(config Config, collab Collaborators, aggregator *survey.Aggregator, logger *slog.Logger) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if collab.Ideator == nil || collab.Personas == nil || collab.Simulator == nil || collab.Critic == nil {
		return nil, fmt.Errorf("%w: all collaborators are required", ErrConfiguration)
	}
	for _, dim := range survey.AllDimensions() {
		if collab.Raters[dim] == nil {
			return nil, fmt.Errorf("%w: missing rater for dimension %s", ErrConfiguration, dim)
		}
	}
	if aggregator == nil {
		return nil, fmt.Errorf("%w: aggregator is required", ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config:     config,
		collab:     collab,
		aggregator: aggregator,
		logger:     logger,
	}, nil
}

// initMetrics lazily initializes metrics.
// Logs errors if metric creation fails but continues execution (graceful degradation).
func (o *Orchestrator) initMetrics() {
	o.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		o.runsTotal, err = meter.Int64Counter("workflow_runs_total",
			metric.WithDescription("Number of workflow runs by terminal status"),
		)
		if err != nil {
			initErrors = append(initErrors, "runs_total: "+err.Error())
		}

		o.iterationsTotal, err = meter.Int64Counter("workflow_iterations_total",
			metric.WithDescription("Number of completed refinement iterations"),
		)
		if err != nil {
			initErrors = append(initErrors, "iterations_total: "+err.Error())
		}

		o.runDuration, err = meter.Float64Histogram("workflow_run_duration_seconds",
			metric.WithDescription("Total run duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "run_duration: "+err.Error())
		}

		o.iterationDuration, err = meter.Float64Histogram("workflow_iteration_duration_seconds",
			metric.WithDescription("Per-iteration duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "iteration_duration: "+err.Error())
		}

		if len(initErrors) > 0 {
			o.logger.Error("failed to initialize some workflow metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Run executes the full refinement loop for one seed idea.
//
// The returned RunResult is always populated, including on failure; the
// error return is non-nil only when Status is StatusFailed.
func (o *Orchestrator) Run(ctx context.Context, seedIdea string) (*RunResult, error) {
	o.initMetrics()

	ctx, span := tracer.Start(ctx, "Orchestrator.Run")
	defer span.End()

	result := &RunResult{
		RunID:     uuid.NewString(),
		SeedIdea:  seedIdea,
		StartedAt: time.Now(),
	}
	span.SetAttributes(attribute.String("workflow.run_id", result.RunID))
	o.logger.Info("Starting workflow run", "run_id", result.RunID, "seed", seedIdea,
		"max_iterations", o.config.MaxIterations, "personas", o.config.PersonaCount)

	err := o.run(ctx, seedIdea, result)

	result.CompletedAt = time.Now()
	result.Usage.Elapsed = result.CompletedAt.Sub(result.StartedAt)
	if o.runDuration != nil {
		o.runDuration.Record(ctx, result.Usage.Elapsed.Seconds())
	}
	if o.runsTotal != nil {
		o.runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(result.Status))))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error("Workflow run failed", "run_id", result.RunID,
			"iteration", result.FailedIteration, "phase", result.FailedPhase, "error", err)
		return result, err
	}
	span.SetAttributes(attribute.String("workflow.status", string(result.Status)))
	o.logger.Info("Workflow run complete", "run_id", result.RunID,
		"status", result.Status, "iterations", len(result.History))
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, seedIdea string, result *RunResult) error {
	personas, err := o.generatePersonas(ctx, result)
	if err != nil {
		return o.fail(result, -1, PhaseIdeate, err)
	}

	var concept *ideation.Concept
	var feedback string

	for iter := 0; iter < o.config.MaxIterations; iter++ {
		record, err := o.runIteration(ctx, iter, seedIdea, personas, &concept, &feedback, result)
		if err != nil {
			return err
		}

		result.History = append(result.History, *record)
		result.FinalConcept = concept
		if o.iterationsTotal != nil {
			o.iterationsTotal.Add(ctx, 1)
		}
		if o.iterationDuration != nil {
			o.iterationDuration.Record(ctx, record.Elapsed.Seconds())
		}

		if o.aggregator.MeetsAnyThreshold(record.Report) {
			o.logger.Info("Viability threshold met", "phase", PhaseFinalize,
				"iteration", iter,
				"superfan", record.Report.SuperfanRatio,
				"enthusiast", record.Report.EnthusiastRatio)
			result.Status = StatusThresholdMet
			return nil
		}
	}

	o.logger.Warn("Iteration budget exhausted without meeting a threshold",
		"phase", PhaseFinalize, "iterations", o.config.MaxIterations)
	result.Status = StatusIterationsExhausted
	return nil
}

// runIteration performs one IDEATE -> SIMULATE -> EVALUATE pass, plus the
// REFINE critique when another iteration will follow. concept and feedback
// are carried across iterations in place.
func (o *Orchestrator) runIteration(ctx context.Context, iter int, seedIdea string,
	personas []ideation.Persona, concept **ideation.Concept, feedback *string,
	result *RunResult) (*IterationRecord, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.Iteration")
	defer span.End()
	span.SetAttributes(attribute.Int("workflow.iteration", iter))

	if o.config.IterationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.IterationTimeout)
		defer cancel()
	}

	record := &IterationRecord{Index: iter, StartedAt: time.Now()}

	// IDEATE
	next, err := o.ideate(ctx, iter, seedIdea, *concept, *feedback, result)
	if err != nil {
		return nil, o.fail(result, iter, PhaseIdeate, err)
	}
	*concept = next
	record.Concept = *next

	// SIMULATE
	responses, err := o.simulate(ctx, next, personas, result)
	if err != nil {
		return nil, o.fail(result, iter, PhaseSimulate, err)
	}
	record.Respondents = len(responses)

	// EVALUATE
	report, err := o.evaluate(ctx, responses, result)
	if err != nil {
		return nil, o.fail(result, iter, PhaseEvaluate, err)
	}
	record.Report = report

	o.logger.Info("Iteration evaluated", "iteration", iter, "concept", next.Name,
		"respondents", record.Respondents,
		"superfan", report.SuperfanRatio, "enthusiast", report.EnthusiastRatio,
		"nps", report.NPS, "verdict", report.Recommendation)

	// REFINE: only worth a critic call if another iteration can use it.
	if !o.aggregator.MeetsAnyThreshold(report) && iter+1 < o.config.MaxIterations {
		fb, err := o.critique(ctx, next, report, responses, result)
		if err != nil {
			return nil, o.fail(result, iter, PhaseRefine, err)
		}
		*feedback = fb
		record.Feedback = fb
	}

	record.CompletedAt = time.Now()
	record.Elapsed = record.CompletedAt.Sub(record.StartedAt)
	return record, nil
}

func (o *Orchestrator) generatePersonas(ctx context.Context, result *RunResult) ([]ideation.Persona, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.GeneratePersonas")
	defer span.End()

	var personas []ideation.Persona
	res, err := Retry(ctx, o.config.Retry, func(ctx context.Context, attempt int) error {
		var err error
		personas, err = o.collab.Personas.GeneratePersonas(ctx, o.config.PersonaCount)
		return err
	})
	result.Usage.Retries += res.Attempts - 1
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return personas, nil
}

func (o *Orchestrator) ideate(ctx context.Context, iter int, seedIdea string,
	current *ideation.Concept, feedback string, result *RunResult) (*ideation.Concept, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.Ideate")
	defer span.End()

	if iter > 0 && current == nil {
		return nil, fmt.Errorf("%w: refinement requested without a prior concept", ErrWorkflow)
	}

	var concept *ideation.Concept
	res, err := Retry(ctx, o.config.Retry, func(ctx context.Context, attempt int) error {
		var err error
		if iter == 0 {
			concept, err = o.collab.Ideator.GenerateConcept(ctx, seedIdea, nil)
		} else {
			concept, err = o.collab.Ideator.RefineConcept(ctx, current, feedback)
		}
		return err
	})
	result.Usage.IdeatorCalls += res.Attempts
	result.Usage.Retries += res.Attempts - 1
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return concept, nil
}

func (o *Orchestrator) simulate(ctx context.Context, concept *ideation.Concept,
	personas []ideation.Persona, result *RunResult) ([]ideation.PersonaResponse, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.Simulate")
	defer span.End()
	span.SetAttributes(attribute.Int("workflow.personas", len(personas)))

	var responses []ideation.PersonaResponse
	res, err := Retry(ctx, o.config.Retry, func(ctx context.Context, attempt int) error {
		var err error
		responses, err = o.collab.Simulator.SimulateResponses(ctx, concept, personas)
		return err
	})
	result.Usage.SimulatorCalls += res.Attempts
	result.Usage.Retries += res.Attempts - 1
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("workflow.responses", len(responses)))
	return responses, nil
}

// evaluate rates every response on every dimension concurrently, then
// aggregates. The aggregation is order-invariant, so the unordered join
// of the fan-out is safe.
func (o *Orchestrator) evaluate(ctx context.Context, responses []ideation.PersonaResponse,
	result *RunResult) (*survey.SegmentationReport, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int("workflow.respondents", len(responses)))

	ratings := make([]survey.RespondentRating, len(responses))
	for i := range ratings {
		ratings[i] = make(survey.RespondentRating, 3)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.RatingConcurrency)

	for i, resp := range responses {
		answers := map[survey.Dimension]string{
			survey.DimensionInterest:       resp.Interest,
			survey.DimensionDisappointment: resp.Disappointment,
			survey.DimensionRecommendation: resp.Recommendation,
		}
		for dim, text := range answers {
			i, dim, text := i, dim, text
			g.Go(func() error {
				var pmf survey.PMF
				res, err := Retry(gctx, o.config.Retry, func(ctx context.Context, attempt int) error {
					var err error
					pmf, err = o.collab.Raters[dim].Rate(ctx, text)
					return err
				})
				mu.Lock()
				result.Usage.RatingCalls += res.Attempts
				result.Usage.Retries += res.Attempts - 1
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("respondent %d dimension %s: %w", i, dim, err)
				}
				mu.Lock()
				ratings[i][dim] = pmf
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report, err := o.aggregator.Aggregate(ratings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return report, nil
}

func (o *Orchestrator) critique(ctx context.Context, concept *ideation.Concept,
	report *survey.SegmentationReport, responses []ideation.PersonaResponse,
	result *RunResult) (string, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.Critique")
	defer span.End()

	var feedback string
	res, err := Retry(ctx, o.config.Retry, func(ctx context.Context, attempt int) error {
		var err error
		feedback, err = o.collab.Critic.Critique(ctx, concept, report, responses)
		return err
	})
	result.Usage.CriticCalls += res.Attempts
	result.Usage.Retries += res.Attempts - 1
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return feedback, nil
}

// fail stamps the terminal failure onto the result and returns the error.
// iter is -1 for failures before the first iteration.
func (o *Orchestrator) fail(result *RunResult, iter int, phase Phase, err error) error {
	result.Status = StatusFailed
	if iter >= 0 {
		idx := iter
		result.FailedIteration = &idx
	}
	result.FailedPhase = phase
	result.Error = err.Error()
	return err
}

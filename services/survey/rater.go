// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package survey

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/AleutianAI/MarketPulse/services/embedding"
)

// Default rater parameters, calibrated for sentence-transformer embeddings.
const (
	// DefaultTemperature is the softmax temperature for similarity scores.
	DefaultTemperature = 1.0

	// DefaultEpsilon is the additive smoothing mass per level. Keeps every
	// level strictly positive so small-sample tail probabilities never hit
	// exact zeros.
	DefaultEpsilon = 0.01

	// hardMaxTemperature is the temperature at or below which the softmax
	// degenerates to a hard argmax. Exact similarity ties then resolve via
	// the configured TieBreak instead of splitting mass.
	hardMaxTemperature = 1e-6
)

// TieBreak selects which level wins an exact similarity tie when the
// temperature is low enough that the softmax is effectively an argmax.
type TieBreak int

const (
	// TieBreakLowest assigns tied mass to the lowest ordinal level.
	TieBreakLowest TieBreak = iota

	// TieBreakHighest assigns tied mass to the highest ordinal level.
	TieBreakHighest
)

// ResponseKind tags the input variant at the rater boundary.
//
// The rating payload evolved from numeric Likert scores to free text;
// numeric inputs remain supported as an explicit variant rather than a
// silent coercion.
type ResponseKind int

const (
	// KindFreeText is a natural-language response rated via embeddings.
	KindFreeText ResponseKind = iota

	// KindNumeric is a direct Likert level, mapped to a point mass.
	KindNumeric
)

// RawResponse is one respondent's answer for one dimension.
type RawResponse struct {
	Kind  ResponseKind
	Text  string
	Level int
}

// FreeText wraps a natural-language answer.
func FreeText(text string) RawResponse {
	return RawResponse{Kind: KindFreeText, Text: text}
}

// NumericLevel wraps a direct Likert level.
func NumericLevel(level int) RawResponse {
	return RawResponse{Kind: KindNumeric, Level: level}
}

// RaterOption configures a Rater.
type RaterOption func(*Rater)

// WithTemperature sets the softmax temperature. Must be > 0.
func WithTemperature(t float64) RaterOption {
	return func(r *Rater) { r.temperature = t }
}

// WithEpsilon sets the additive smoothing mass. Must be >= 0.
func WithEpsilon(e float64) RaterOption {
	return func(r *Rater) { r.epsilon = e }
}

// WithTieBreak sets the exact-tie policy for near-zero temperatures.
func WithTieBreak(tb TieBreak) RaterOption {
	return func(r *Rater) { r.tieBreak = tb }
}

// Rater converts one free-text answer into a PMF over ordinal levels.
//
// # Description
//
// Rater embeds the response once, computes cosine similarity against each
// anchor sentence of each reference set, converts the per-set similarities
// to distributions via temperature-scaled softmax, averages the per-set
// distributions elementwise, and applies additive smoothing. The output
// sums to 1 within SumTolerance and every entry is at least eps/(1+K*eps).
//
// Anchor embeddings are computed once per Rater and reused across all
// rating calls; anchors are fixed for the life of a run.
//
// # Thread Safety
//
// Rater is safe for concurrent use. Concurrent first calls serialize on
// the anchor warm-up; everything afterward is read-only.
type Rater struct {
	provider    embedding.Provider
	sets        []ReferenceSet
	levels      int
	temperature float64
	epsilon     float64
	tieBreak    TieBreak

	mu         sync.Mutex
	anchorVecs [][][]float32 // [set][level] -> vector, nil until warmed
}

// NewRater creates a rater for one dimension's reference sets.
//
// # Inputs
//
//   - provider: Embedding backend. Must not be nil.
//   - sets: One or more reference sets sharing the same scale size K >= 2.
//   - opts: Optional temperature, epsilon, and tie-break overrides.
//
// # Outputs
//
//   - *Rater: Ready for Rate calls; anchors embed lazily on first use.
//   - error: ErrConfiguration for invalid parameters.
func NewRater(provider embedding.Provider, sets []ReferenceSet, opts ...RaterOption) (*Rater, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is nil", ErrConfiguration)
	}
	k, err := ValidateReferenceSets(sets)
	if err != nil {
		return nil, err
	}

	r := &Rater{
		provider:    provider,
		sets:        sets,
		levels:      k,
		temperature: DefaultTemperature,
		epsilon:     DefaultEpsilon,
		tieBreak:    TieBreakLowest,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.temperature <= 0 || math.IsNaN(r.temperature) || math.IsInf(r.temperature, 0) {
		return nil, fmt.Errorf("%w: temperature must be > 0, got %f", ErrConfiguration, r.temperature)
	}
	if r.epsilon < 0 || math.IsNaN(r.epsilon) || math.IsInf(r.epsilon, 0) {
		return nil, fmt.Errorf("%w: epsilon must be >= 0, got %f", ErrConfiguration, r.epsilon)
	}

	return r, nil
}

// Levels returns the scale size K.
func (r *Rater) Levels() int {
	return r.levels
}

// Warm embeds all anchor sentences now instead of on first Rate call.
//
// One batch request covers every set and level. Calling Warm is optional
// but lets the orchestrator fail fast on a dead embedding backend before
// spending money on persona simulation.
func (r *Rater) Warm(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warmLocked(ctx)
}

func (r *Rater) warmLocked(ctx context.Context) error {
	if r.anchorVecs != nil {
		return nil
	}

	texts := make([]string, 0, len(r.sets)*r.levels)
	for _, s := range r.sets {
		texts = append(texts, s.Sentences...)
	}

	vectors, err := r.provider.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: anchors: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: anchors: got %d vectors for %d sentences", ErrEmbedding, len(vectors), len(texts))
	}

	anchorVecs := make([][][]float32, len(r.sets))
	for i := range r.sets {
		anchorVecs[i] = vectors[i*r.levels : (i+1)*r.levels]
	}
	r.anchorVecs = anchorVecs
	return nil
}

// ensureAnchors returns the anchor vectors, warming them if needed.
func (r *Rater) ensureAnchors(ctx context.Context) ([][][]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.warmLocked(ctx); err != nil {
		return nil, err
	}
	return r.anchorVecs, nil
}

// Rate converts a free-text answer into a PMF.
//
// # Outputs
//
//   - PMF: Sums to 1 within SumTolerance; every entry >= eps/(1+K*eps).
//   - error: ErrEmbedding for empty text or backend failure.
//
// Deterministic given identical text, anchors, model version, temperature,
// and epsilon.
func (r *Rater) Rate(ctx context.Context, text string) (PMF, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: response text is empty", ErrEmbedding)
	}

	anchors, err := r.ensureAnchors(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := r.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: response: %v", ErrEmbedding, err)
	}

	// Average the per-set softmax distributions, then smooth.
	mean := make(PMF, r.levels)
	for _, setVecs := range anchors {
		sims := make([]float64, r.levels)
		for i, anchorVec := range setVecs {
			sims[i] = embedding.CosineSimilarity(vec, anchorVec)
		}
		p := r.softmax(sims)
		for i, v := range p {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(anchors))
	}

	return r.smooth(mean), nil
}

// RateResponse rates a tagged response variant.
//
// Free-text answers go through the embedding pipeline; numeric Likert
// levels map to a point mass at the level, then pass through the same
// smoothing so the positive-floor guarantee holds for both variants.
func (r *Rater) RateResponse(ctx context.Context, resp RawResponse) (PMF, error) {
	switch resp.Kind {
	case KindFreeText:
		return r.Rate(ctx, resp.Text)
	case KindNumeric:
		if resp.Level < 1 || resp.Level > r.levels {
			return nil, fmt.Errorf("%w: numeric level %d outside scale 1..%d", ErrConfiguration, resp.Level, r.levels)
		}
		return r.smooth(PointMass(r.levels, resp.Level)), nil
	default:
		return nil, fmt.Errorf("%w: unknown response kind %d", ErrConfiguration, resp.Kind)
	}
}

// softmax converts similarities to a distribution at the configured
// temperature. Stabilized by max subtraction so tiny temperatures saturate
// to one-hot instead of overflowing.
func (r *Rater) softmax(sims []float64) PMF {
	maxSim := sims[0]
	for _, s := range sims[1:] {
		if s > maxSim {
			maxSim = s
		}
	}

	// Degenerate limit: treat as hard argmax with deterministic tie-break.
	if r.temperature <= hardMaxTemperature {
		return PointMass(len(sims), r.argmaxLevel(sims, maxSim))
	}

	p := make(PMF, len(sims))
	var sum float64
	for i, s := range sims {
		p[i] = math.Exp((s - maxSim) / r.temperature)
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

// argmaxLevel returns the 1-based level holding maxSim, resolving exact
// ties via the configured policy.
func (r *Rater) argmaxLevel(sims []float64, maxSim float64) int {
	if r.tieBreak == TieBreakHighest {
		for i := len(sims) - 1; i >= 0; i-- {
			if sims[i] == maxSim {
				return i + 1
			}
		}
	}
	for i, s := range sims {
		if s == maxSim {
			return i + 1
		}
	}
	return 1
}

// smooth applies additive smoothing: (p_i + eps) / (1 + K*eps).
func (r *Rater) smooth(p PMF) PMF {
	if r.epsilon == 0 {
		return p
	}
	out := make(PMF, len(p))
	denom := 1.0 + float64(len(p))*r.epsilon
	for i, v := range p {
		out[i] = (v + r.epsilon) / denom
	}
	return out
}

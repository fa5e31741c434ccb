// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package survey converts free-text opinions into probability distributions
// over an ordinal rating scale and aggregates them into population-level
// viability metrics.
//
// The method follows semantic similarity rating (SSR): each ordinal level
// has one or more anchor sentences; a response is embedded and compared to
// the anchors; similarities are converted to a PMF via temperature-scaled
// softmax with additive smoothing. Aggregation averages PMFs rather than
// rounding to point scores, so respondent uncertainty survives into the
// survey-level metrics.
package survey

import (
	"fmt"
	"math"
)

// SumTolerance is the allowed deviation of a PMF's total mass from 1.
const SumTolerance = 1e-6

// PMF is a probability mass function over ordinal levels 1..K.
//
// Index i holds the probability of level i+1. A valid PMF is non-negative
// and sums to 1 within SumTolerance. PMFs are treated as immutable once
// produced; operations return new slices.
type PMF []float64

// Levels returns the number of ordinal levels K.
func (p PMF) Levels() int {
	return len(p)
}

// Sum returns the total probability mass.
func (p PMF) Sum() float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}

// Validate checks that p is a proper distribution.
func (p PMF) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("%w: pmf needs at least 2 levels, got %d", ErrMalformedRatings, len(p))
	}
	for i, v := range p {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: pmf entry %d is %f", ErrMalformedRatings, i, v)
		}
	}
	if d := math.Abs(p.Sum() - 1.0); d > SumTolerance {
		return fmt.Errorf("%w: pmf sums to %f", ErrMalformedRatings, p.Sum())
	}
	return nil
}

// ExpectedValue returns E[X] with levels numbered 1..K.
func (p PMF) ExpectedValue() float64 {
	var e float64
	for i, v := range p {
		e += float64(i+1) * v
	}
	return e
}

// UpperTail returns the mass at levels >= minLevel (1-based).
//
// Out-of-range levels clamp: minLevel <= 1 returns the full mass,
// minLevel > K returns 0.
func (p PMF) UpperTail(minLevel int) float64 {
	var s float64
	for i, v := range p {
		if i+1 >= minLevel {
			s += v
		}
	}
	return s
}

// Entropy returns the Shannon entropy in nats.
//
// Zero entries contribute nothing. Entropy grows with rating temperature,
// which the tests use to verify the softmax sharpness contract.
func (p PMF) Entropy() float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

// Clone returns a copy of p.
func (p PMF) Clone() PMF {
	out := make(PMF, len(p))
	copy(out, p)
	return out
}

// Uniform returns the uniform distribution over k levels.
func Uniform(k int) PMF {
	p := make(PMF, k)
	for i := range p {
		p[i] = 1.0 / float64(k)
	}
	return p
}

// PointMass returns a one-hot distribution at the given level (1-based).
func PointMass(k, level int) PMF {
	p := make(PMF, k)
	if level >= 1 && level <= k {
		p[level-1] = 1.0
	}
	return p
}

// MeanPMF returns the elementwise arithmetic mean of the given PMFs.
//
// This is the survey-level distribution for one dimension. Averaging
// happens on full distributions; collapsing to point scores first would
// discard respondent uncertainty, which is the defining correctness
// property of SSR aggregation.
func MeanPMF(pmfs []PMF) (PMF, error) {
	if len(pmfs) == 0 {
		return nil, fmt.Errorf("%w: no pmfs to average", ErrMalformedRatings)
	}
	k := len(pmfs[0])
	mean := make(PMF, k)
	for _, p := range pmfs {
		if len(p) != k {
			return nil, fmt.Errorf("%w: mixed scale sizes %d and %d", ErrMalformedRatings, k, len(p))
		}
		for i, v := range p {
			mean[i] += v
		}
	}
	n := float64(len(pmfs))
	for i := range mean {
		mean[i] /= n
	}
	return mean, nil
}

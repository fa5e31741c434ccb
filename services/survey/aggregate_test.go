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
	"errors"
	"math"
	"math/rand"
	"testing"
)

func rating(interest, disappointment, recommendation PMF) RespondentRating {
	return RespondentRating{
		DimensionInterest:       interest,
		DimensionDisappointment: disappointment,
		DimensionRecommendation: recommendation,
	}
}

func mustAggregator(t *testing.T, min, recommended int) *Aggregator {
	t.Helper()
	a, err := NewAggregator(min, recommended, DefaultThresholds(), nil)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func TestNewAggregatorConfiguration(t *testing.T) {
	if _, err := NewAggregator(0, 10, DefaultThresholds(), nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("min=0 error = %v, want ErrConfiguration", err)
	}
	if _, err := NewAggregator(10, 5, DefaultThresholds(), nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("recommended < min error = %v, want ErrConfiguration", err)
	}
	bad := DefaultThresholds()
	bad.Superfan = 1.5
	if _, err := NewAggregator(1, 1, bad, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("threshold > 1 error = %v, want ErrConfiguration", err)
	}
}

func TestAggregateRespondentFloor(t *testing.T) {
	a := mustAggregator(t, 10, 50)

	ratings := make([]RespondentRating, 9)
	for i := range ratings {
		ratings[i] = rating(Uniform(5), Uniform(5), Uniform(5))
	}
	if _, err := a.Aggregate(ratings); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("9 respondents error = %v, want ErrInsufficientData", err)
	}

	ratings = append(ratings, rating(Uniform(5), Uniform(5), Uniform(5)))
	if _, err := a.Aggregate(ratings); err != nil {
		t.Fatalf("10 respondents should aggregate, got %v", err)
	}
}

func TestAggregateMalformedRatings(t *testing.T) {
	a := mustAggregator(t, 1, 1)

	missing := RespondentRating{
		DimensionInterest:       Uniform(5),
		DimensionDisappointment: Uniform(5),
	}
	if _, err := a.Aggregate([]RespondentRating{missing}); !errors.Is(err, ErrMalformedRatings) {
		t.Errorf("missing dimension error = %v, want ErrMalformedRatings", err)
	}

	mixed := []RespondentRating{
		rating(Uniform(5), Uniform(5), Uniform(5)),
		rating(Uniform(4), Uniform(5), Uniform(5)),
	}
	if _, err := a.Aggregate(mixed); !errors.Is(err, ErrMalformedRatings) {
		t.Errorf("mixed scale sizes error = %v, want ErrMalformedRatings", err)
	}

	invalid := rating(PMF{0.9, 0.9, 0, 0, 0}, Uniform(5), Uniform(5))
	if _, err := a.Aggregate([]RespondentRating{invalid}); !errors.Is(err, ErrMalformedRatings) {
		t.Errorf("invalid PMF error = %v, want ErrMalformedRatings", err)
	}
}

// randomPMF draws a valid random distribution over k levels.
func randomPMF(rng *rand.Rand, k int) PMF {
	p := make(PMF, k)
	var sum float64
	for i := range p {
		p[i] = rng.Float64()
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

func TestAggregatePermutationInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 50

	ratings := make([]RespondentRating, n)
	for i := range ratings {
		ratings[i] = rating(randomPMF(rng, 5), randomPMF(rng, 5), randomPMF(rng, 5))
	}

	a := mustAggregator(t, 10, 50)
	base, err := a.Aggregate(ratings)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	shuffled := make([]RespondentRating, n)
	copy(shuffled, ratings)
	rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	got, err := a.Aggregate(shuffled)
	if err != nil {
		t.Fatalf("Aggregate(shuffled): %v", err)
	}

	const tol = 1e-9
	if math.Abs(base.SuperfanRatio-got.SuperfanRatio) > tol {
		t.Errorf("superfan ratio changed under permutation: %f vs %f", base.SuperfanRatio, got.SuperfanRatio)
	}
	if math.Abs(base.EnthusiastRatio-got.EnthusiastRatio) > tol {
		t.Errorf("enthusiast ratio changed under permutation: %f vs %f", base.EnthusiastRatio, got.EnthusiastRatio)
	}
	if math.Abs(base.NPS-got.NPS) > tol {
		t.Errorf("NPS changed under permutation: %f vs %f", base.NPS, got.NPS)
	}
	if base.Recommendation != got.Recommendation {
		t.Errorf("recommendation changed under permutation: %s vs %s", base.Recommendation, got.Recommendation)
	}
	for _, dim := range AllDimensions() {
		for i := range base.SurveyPMFs[dim] {
			if math.Abs(base.SurveyPMFs[dim][i]-got.SurveyPMFs[dim][i]) > tol {
				t.Errorf("survey PMF %s[%d] changed under permutation", dim, i)
			}
		}
	}
}

func TestRecommendationDecisionTable(t *testing.T) {
	thresholds := Thresholds{
		Superfan:           0.10,
		Enthusiast:         0.40,
		ModerateEnthusiast: 0.30,
		Traditional:        0.40,
	}
	a, err := NewAggregator(1, 1, thresholds, nil)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	tests := []struct {
		superfan   float64
		enthusiast float64
		want       Recommendation
	}{
		{0.12, 0.28, RecommendationNicheFirst},
		{0.15, 0.45, RecommendationMassMarket},
		{0.04, 0.32, RecommendationRefine},
		{0.03, 0.18, RecommendationPivot},
		// Boundary: exactly at threshold counts as meeting it.
		{0.10, 0.40, RecommendationMassMarket},
		{0.10, 0.39, RecommendationNicheFirst},
		{0.09, 0.30, RecommendationRefine},
	}

	for _, tt := range tests {
		if got := a.recommend(tt.superfan, tt.enthusiast); got != tt.want {
			t.Errorf("recommend(%f, %f) = %s, want %s", tt.superfan, tt.enthusiast, got, tt.want)
		}
	}
}

func TestAggregateSuperfanEndToEnd(t *testing.T) {
	// 12 of 100 respondents are certain superfans: interest pinned at the
	// top level and disappointment in the top two levels. The rest are
	// lukewarm. Superfan ratio must come out at 0.12 and the verdict
	// NICHE_FIRST under default thresholds.
	ratings := make([]RespondentRating, 0, 100)
	for i := 0; i < 12; i++ {
		ratings = append(ratings, rating(
			PointMass(5, 5),
			PointMass(5, 5),
			PointMass(5, 5),
		))
	}
	for i := 0; i < 88; i++ {
		ratings = append(ratings, rating(
			PointMass(5, 2),
			PointMass(5, 1),
			PointMass(5, 2),
		))
	}

	a := mustAggregator(t, 10, 50)
	report, err := a.Aggregate(ratings)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if math.Abs(report.SuperfanRatio-0.12) > 1e-9 {
		t.Errorf("SuperfanRatio = %f, want 0.12", report.SuperfanRatio)
	}
	if math.Abs(report.EnthusiastRatio-0.12) > 1e-9 {
		t.Errorf("EnthusiastRatio = %f, want 0.12", report.EnthusiastRatio)
	}
	if report.Recommendation != RecommendationNicheFirst {
		t.Errorf("Recommendation = %s, want NICHE_FIRST", report.Recommendation)
	}
	if !a.MeetsAnyThreshold(report) {
		t.Error("superfan ratio above threshold should clear the viability bar")
	}
}

func TestAggregateNPS(t *testing.T) {
	// All respondents share one recommendation PMF, so the survey mean
	// equals it: promoter 0.4, passive 0.3, detractor 0.3 -> NPS 10.
	rec := PMF{0.05, 0.1, 0.15, 0.3, 0.4}
	ratings := make([]RespondentRating, 10)
	for i := range ratings {
		ratings[i] = rating(Uniform(5), Uniform(5), rec.Clone())
	}

	a := mustAggregator(t, 10, 10)
	report, err := a.Aggregate(ratings)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if math.Abs(report.PromoterRatio-0.4) > 1e-9 {
		t.Errorf("PromoterRatio = %f, want 0.4", report.PromoterRatio)
	}
	if math.Abs(report.PassiveRatio-0.3) > 1e-9 {
		t.Errorf("PassiveRatio = %f, want 0.3", report.PassiveRatio)
	}
	if math.Abs(report.DetractorRatio-0.3) > 1e-9 {
		t.Errorf("DetractorRatio = %f, want 0.3", report.DetractorRatio)
	}
	if math.Abs(report.NPS-10.0) > 1e-9 {
		t.Errorf("NPS = %f, want 10.0", report.NPS)
	}
}

func TestAggregateScoreSegments(t *testing.T) {
	// Expected interest: point mass at 5 -> enthusiast bucket; point mass
	// at 3 -> interested; point mass at 1 -> skeptical.
	ratings := []RespondentRating{
		rating(PointMass(5, 5), PointMass(5, 5), Uniform(5)),
		rating(PointMass(5, 3), PointMass(5, 3), Uniform(5)),
		rating(PointMass(5, 3), PointMass(5, 3), Uniform(5)),
		rating(PointMass(5, 1), PointMass(5, 1), Uniform(5)),
	}

	a := mustAggregator(t, 1, 1)
	report, err := a.Aggregate(ratings)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	seg := report.Segments
	if math.Abs(seg.EnthusiastRatio-0.25) > 1e-9 {
		t.Errorf("segment enthusiast = %f, want 0.25", seg.EnthusiastRatio)
	}
	if math.Abs(seg.InterestedRatio-0.5) > 1e-9 {
		t.Errorf("segment interested = %f, want 0.5", seg.InterestedRatio)
	}
	if math.Abs(seg.SkepticalRatio-0.25) > 1e-9 {
		t.Errorf("segment skeptical = %f, want 0.25", seg.SkepticalRatio)
	}
	if math.Abs(seg.VeryDisappointedRatio-0.25) > 1e-9 {
		t.Errorf("segment very disappointed = %f, want 0.25", seg.VeryDisappointedRatio)
	}
}

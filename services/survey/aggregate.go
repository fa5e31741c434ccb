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
	"fmt"
	"log/slog"
)

// Thresholds are the viability cutoffs for the strategic recommendation,
// expressed as fractions in [0, 1].
type Thresholds struct {
	// Superfan is the minimum superfan ratio for a viable niche.
	Superfan float64 `json:"superfan" yaml:"superfan"`

	// Enthusiast is the minimum enthusiast tail mass for mass-market appeal.
	Enthusiast float64 `json:"enthusiast" yaml:"enthusiast"`

	// ModerateEnthusiast is the floor below which a concept is a pivot
	// rather than a refinement candidate.
	ModerateEnthusiast float64 `json:"moderate_enthusiast" yaml:"moderate_enthusiast"`

	// Traditional is the classic Sean Ellis cutoff on the disappointment
	// tail ("would be very disappointed").
	Traditional float64 `json:"traditional" yaml:"traditional"`
}

// DefaultThresholds returns the standard cutoffs: 10% superfans, 40%
// enthusiasts, 30% moderate-enthusiasm floor, 40% very-disappointed.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Superfan:           0.10,
		Enthusiast:         0.40,
		ModerateEnthusiast: 0.30,
		Traditional:        0.40,
	}
}

// Validate checks all thresholds are fractions in [0, 1].
func (t Thresholds) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: threshold %s must be in [0,1], got %f", ErrConfiguration, name, v)
		}
		return nil
	}
	if err := check("superfan", t.Superfan); err != nil {
		return err
	}
	if err := check("enthusiast", t.Enthusiast); err != nil {
		return err
	}
	if err := check("moderate_enthusiast", t.ModerateEnthusiast); err != nil {
		return err
	}
	return check("traditional", t.Traditional)
}

// Recommendation is the categorical strategic verdict for one iteration.
type Recommendation string

const (
	// RecommendationMassMarket: strong superfan core plus broad appeal.
	RecommendationMassMarket Recommendation = "MASS_MARKET"

	// RecommendationNicheFirst: viable superfan segment, nail the niche.
	RecommendationNicheFirst Recommendation = "NICHE_FIRST"

	// RecommendationRefine: moderate interest but no passionate advocates.
	RecommendationRefine Recommendation = "REFINE"

	// RecommendationPivot: weak fit, major changes needed.
	RecommendationPivot Recommendation = "PIVOT"
)

// RespondentRating holds one respondent's PMFs, keyed by dimension.
type RespondentRating map[Dimension]PMF

// ScoreSegments buckets respondents by their expected scores. These are
// the coarse market-segmentation counts reported alongside the PMF-tail
// metrics; they discretize on purpose and are descriptive only.
type ScoreSegments struct {
	EnthusiastRatio float64 `json:"enthusiast_ratio"` // expected interest >= 4.0
	InterestedRatio float64 `json:"interested_ratio"` // 2.5 <= expected interest < 4.0
	SkepticalRatio  float64 `json:"skeptical_ratio"`  // expected interest < 2.5

	VeryDisappointedRatio     float64 `json:"very_disappointed_ratio"`     // expected disappointment >= 4.0
	SomewhatDisappointedRatio float64 `json:"somewhat_disappointed_ratio"` // 2.5 <= expected < 4.0
	NotDisappointedRatio      float64 `json:"not_disappointed_ratio"`      // expected < 2.5
}

// SegmentationReport is the full set of derived viability metrics for one
// iteration. All ratio fields are fractions in [0, 1]; NPS is in [-100, 100].
type SegmentationReport struct {
	Respondents int `json:"respondents"`

	// SurveyPMFs are the respondent-averaged distributions per dimension.
	SurveyPMFs map[Dimension]PMF `json:"survey_pmfs"`

	// ExpectedValues are E[X] of each survey PMF, levels 1..K.
	ExpectedValues map[Dimension]float64 `json:"expected_values"`

	// EnthusiastRatio is the interest upper-tail mass (top two levels).
	EnthusiastRatio float64 `json:"enthusiast_ratio"`

	// TraditionalRatio is the disappointment upper-tail mass, the classic
	// "% would be very disappointed" product-market-fit score.
	TraditionalRatio float64 `json:"traditional_ratio"`

	// SuperfanRatio is the mean over respondents of
	// P(interest = top) * P(disappointment >= top two), computed from each
	// respondent's own PMFs before any averaging.
	SuperfanRatio float64 `json:"superfan_ratio"`

	// NPS-analog buckets on the recommendation dimension.
	PromoterRatio  float64 `json:"promoter_ratio"`
	PassiveRatio   float64 `json:"passive_ratio"`
	DetractorRatio float64 `json:"detractor_ratio"`
	NPS            float64 `json:"nps"`

	Segments ScoreSegments `json:"segments"`

	Recommendation Recommendation `json:"recommendation"`

	// BusinessModel is a monetization hint keyed off the same metrics.
	BusinessModel string `json:"business_model"`
}

// Aggregator combines per-respondent PMFs into a SegmentationReport.
//
// # Description
//
// The aggregator averages full distributions; it never collapses a PMF to
// a rounded score before averaging. All derived metrics are sums and means
// over the respondent set, so the output is invariant under permutation of
// the input order. That invariance is what allows the rating fan-out to run
// concurrently without an ordered join.
//
// # Thread Safety
//
// Aggregator is immutable after construction and safe for concurrent use.
type Aggregator struct {
	minRespondents         int
	recommendedRespondents int
	thresholds             Thresholds
	logger                 *slog.Logger
}

// NewAggregator creates an aggregator.
//
// # Inputs
//
//   - minRespondents: Hard floor; fewer respondents fail aggregation.
//   - recommendedRespondents: Soft floor; fewer respondents log a warning.
//   - thresholds: Viability cutoffs as fractions.
//   - logger: May be nil; defaults to slog.Default().
func NewAggregator(minRespondents, recommendedRespondents int, thresholds Thresholds, logger *slog.Logger) (*Aggregator, error) {
	if minRespondents < 1 {
		return nil, fmt.Errorf("%w: min respondents must be >= 1, got %d", ErrConfiguration, minRespondents)
	}
	if recommendedRespondents < minRespondents {
		return nil, fmt.Errorf("%w: recommended respondents %d below minimum %d", ErrConfiguration, recommendedRespondents, minRespondents)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		minRespondents:         minRespondents,
		recommendedRespondents: recommendedRespondents,
		thresholds:             thresholds,
		logger:                 logger,
	}, nil
}

// Aggregate derives the SegmentationReport for one iteration.
//
// # Inputs
//
//   - ratings: One RespondentRating per respondent, each holding a valid
//     PMF for every survey dimension.
//
// # Outputs
//
//   - *SegmentationReport: Immutable snapshot for the iteration.
//   - error: ErrInsufficientData below the respondent floor;
//     ErrMalformedRatings when a respondent is missing a dimension or
//     scale sizes disagree.
func (a *Aggregator) Aggregate(ratings []RespondentRating) (*SegmentationReport, error) {
	n := len(ratings)
	if n < a.minRespondents {
		return nil, fmt.Errorf("%w: need at least %d respondents, got %d", ErrInsufficientData, a.minRespondents, n)
	}
	if n < a.recommendedRespondents {
		a.logger.Warn("respondent count below recommended sample size",
			"respondents", n,
			"recommended", a.recommendedRespondents,
		)
	}

	dims := AllDimensions()
	perDim := make(map[Dimension][]PMF, len(dims))
	for _, dim := range dims {
		perDim[dim] = make([]PMF, 0, n)
	}

	for i, rating := range ratings {
		for _, dim := range dims {
			p, ok := rating[dim]
			if !ok {
				return nil, fmt.Errorf("%w: respondent %d missing dimension %s", ErrMalformedRatings, i, dim)
			}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("respondent %d dimension %s: %w", i, dim, err)
			}
			if len(perDim[dim]) > 0 && len(p) != len(perDim[dim][0]) {
				return nil, fmt.Errorf("%w: respondent %d dimension %s has %d levels, expected %d",
					ErrMalformedRatings, i, dim, len(p), len(perDim[dim][0]))
			}
			perDim[dim] = append(perDim[dim], p)
		}
	}

	report := &SegmentationReport{
		Respondents:    n,
		SurveyPMFs:     make(map[Dimension]PMF, len(dims)),
		ExpectedValues: make(map[Dimension]float64, len(dims)),
	}

	for _, dim := range dims {
		mean, err := MeanPMF(perDim[dim])
		if err != nil {
			return nil, err
		}
		report.SurveyPMFs[dim] = mean
		report.ExpectedValues[dim] = mean.ExpectedValue()
	}

	interest := report.SurveyPMFs[DimensionInterest]
	disappointment := report.SurveyPMFs[DimensionDisappointment]
	recommendation := report.SurveyPMFs[DimensionRecommendation]

	// Tail masses on the averaged distributions. "Upper" means the top two
	// levels of the scale.
	report.EnthusiastRatio = interest.UpperTail(interest.Levels() - 1)
	report.TraditionalRatio = disappointment.UpperTail(disappointment.Levels() - 1)

	// Superfan joint probability is per-respondent: each respondent's own
	// P(interest = top) * P(disappointment >= top two), then averaged.
	// Computing it on the survey means instead would conflate distinct
	// respondents' tails. The product assumes the two dimensions are
	// independent within a respondent; see DESIGN.md for the caveat.
	var superfanSum float64
	for i := range ratings {
		pi := perDim[DimensionInterest][i]
		pd := perDim[DimensionDisappointment][i]
		superfanSum += pi[pi.Levels()-1] * pd.UpperTail(pd.Levels()-1)
	}
	report.SuperfanRatio = superfanSum / float64(n)

	// NPS buckets on the recommendation scale: top level promotes, the
	// level below is passive, everything else detracts (the 1..5 scale
	// maps to NPS 0-10 as 1,3,5,7,9).
	k := recommendation.Levels()
	report.PromoterRatio = recommendation[k-1]
	report.PassiveRatio = recommendation[k-2]
	report.DetractorRatio = 1.0 - report.PromoterRatio - report.PassiveRatio
	report.NPS = 100.0 * (report.PromoterRatio - report.DetractorRatio)

	report.Segments = a.scoreSegments(perDim, n)
	report.Recommendation = a.recommend(report.SuperfanRatio, report.EnthusiastRatio)
	report.BusinessModel = a.businessModel(report.SuperfanRatio, report.EnthusiastRatio)

	return report, nil
}

// MeetsAnyThreshold reports whether the iteration clears a viability bar:
// superfan, enthusiast, or traditional.
func (a *Aggregator) MeetsAnyThreshold(r *SegmentationReport) bool {
	return r.SuperfanRatio >= a.thresholds.Superfan ||
		r.EnthusiastRatio >= a.thresholds.Enthusiast ||
		r.TraditionalRatio >= a.thresholds.Traditional
}

// recommend applies the strategic decision table in precedence order.
func (a *Aggregator) recommend(superfan, enthusiast float64) Recommendation {
	switch {
	case superfan >= a.thresholds.Superfan && enthusiast >= a.thresholds.Enthusiast:
		return RecommendationMassMarket
	case superfan >= a.thresholds.Superfan:
		return RecommendationNicheFirst
	case enthusiast >= a.thresholds.ModerateEnthusiast:
		return RecommendationRefine
	default:
		return RecommendationPivot
	}
}

// businessModel maps segmentation onto a monetization hint.
func (a *Aggregator) businessModel(superfan, enthusiast float64) string {
	// A superfan concentration half again above the niche bar supports
	// premium pricing.
	premiumBar := a.thresholds.Superfan * 1.5

	switch {
	case superfan >= premiumBar && enthusiast >= a.thresholds.Enthusiast:
		return "Freemium/Mass Market: wide adoption with a premium tier for superfans"
	case superfan >= premiumBar:
		return "Premium/Niche: target superfans willing to pay a premium"
	case superfan >= a.thresholds.Superfan && enthusiast >= a.thresholds.Enthusiast:
		return "Value-Based Pricing: broad appeal with tiered pricing"
	case superfan >= a.thresholds.Superfan:
		return "Premium/Community: target the niche with a strong community"
	case enthusiast >= a.thresholds.ModerateEnthusiast:
		return "Mid-Market/SaaS: balance accessibility and value"
	default:
		return "Needs refinement: insufficient enthusiasm for a clear monetization strategy"
	}
}

// scoreSegments buckets respondents by expected score per dimension.
func (a *Aggregator) scoreSegments(perDim map[Dimension][]PMF, n int) ScoreSegments {
	var seg ScoreSegments
	for _, p := range perDim[DimensionInterest] {
		switch e := p.ExpectedValue(); {
		case e >= 4.0:
			seg.EnthusiastRatio++
		case e >= 2.5:
			seg.InterestedRatio++
		default:
			seg.SkepticalRatio++
		}
	}
	for _, p := range perDim[DimensionDisappointment] {
		switch e := p.ExpectedValue(); {
		case e >= 4.0:
			seg.VeryDisappointedRatio++
		case e >= 2.5:
			seg.SomewhatDisappointedRatio++
		default:
			seg.NotDisappointedRatio++
		}
	}
	f := float64(n)
	seg.EnthusiastRatio /= f
	seg.InterestedRatio /= f
	seg.SkepticalRatio /= f
	seg.VeryDisappointedRatio /= f
	seg.SomewhatDisappointedRatio /= f
	seg.NotDisappointedRatio /= f
	return seg
}

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

import "fmt"

// Dimension identifies one rating dimension of the market survey.
type Dimension string

const (
	// DimensionInterest measures purchase interest (1=none, 5=extreme).
	DimensionInterest Dimension = "interest"

	// DimensionDisappointment measures how disappointed the respondent
	// would be if the product disappeared (1=not at all, 5=devastated).
	// This is the Sean Ellis product-market-fit question.
	DimensionDisappointment Dimension = "disappointment"

	// DimensionRecommendation measures likelihood to recommend, the
	// NPS-analog dimension (1=definitely not, 5=absolutely).
	DimensionRecommendation Dimension = "recommendation"
)

// AllDimensions returns the survey dimensions in canonical order.
func AllDimensions() []Dimension {
	return []Dimension{DimensionInterest, DimensionDisappointment, DimensionRecommendation}
}

// ReferenceSet is one phrasing variant of the anchor sentences for a
// dimension: Sentences[i] is the canonical utterance for level i+1.
//
// A dimension may carry several reference sets with different wording.
// The rater averages the per-set distributions, which reduces sensitivity
// to any single phrasing's wording bias.
type ReferenceSet struct {
	Name      string   `json:"name" yaml:"name"`
	Sentences []string `json:"sentences" yaml:"sentences"`
}

// Levels returns the scale size K of the set.
func (s ReferenceSet) Levels() int {
	return len(s.Sentences)
}

// ValidateReferenceSets checks that sets form a usable anchor collection:
// at least one set, every set K >= 2, and all sets sharing the same K.
func ValidateReferenceSets(sets []ReferenceSet) (int, error) {
	if len(sets) == 0 {
		return 0, fmt.Errorf("%w: at least one reference set is required", ErrConfiguration)
	}
	k := sets[0].Levels()
	for _, s := range sets {
		if s.Levels() < 2 {
			return 0, fmt.Errorf("%w: reference set %q has %d levels, need >= 2", ErrConfiguration, s.Name, s.Levels())
		}
		if s.Levels() != k {
			return 0, fmt.Errorf("%w: reference set %q has %d levels, others have %d", ErrConfiguration, s.Name, s.Levels(), k)
		}
		for i, sentence := range s.Sentences {
			if sentence == "" {
				return 0, fmt.Errorf("%w: reference set %q has an empty sentence at level %d", ErrConfiguration, s.Name, i+1)
			}
		}
	}
	return k, nil
}

// DefaultReferenceSets returns the calibrated anchor sets for every survey
// dimension. Each dimension carries two phrasing variants: the primary
// wording and a conversational restatement.
func DefaultReferenceSets() map[Dimension][]ReferenceSet {
	return map[Dimension][]ReferenceSet{
		DimensionInterest: {
			{
				Name: "primary",
				Sentences: []string{
					"Not interested at all",
					"Slightly interested",
					"Moderately interested",
					"Very interested",
					"Extremely interested",
				},
			},
			{
				Name: "conversational",
				Sentences: []string{
					"This does nothing for me",
					"I might glance at it",
					"I could see myself trying this",
					"I would definitely want this",
					"I need this right now",
				},
			},
		},
		DimensionDisappointment: {
			{
				Name: "primary",
				Sentences: []string{
					"Wouldn't care at all",
					"Slightly disappointed",
					"Moderately disappointed",
					"Very disappointed",
					"Would be devastated",
				},
			},
			{
				Name: "conversational",
				Sentences: []string{
					"I wouldn't even notice it was gone",
					"I'd shrug and move on",
					"I'd miss it a little",
					"Losing it would really hurt",
					"I couldn't live without it",
				},
			},
		},
		DimensionRecommendation: {
			{
				Name: "primary",
				Sentences: []string{
					"Definitely would not recommend",
					"Probably would not recommend",
					"Might recommend",
					"Probably would recommend",
					"Absolutely would recommend",
				},
			},
			{
				Name: "conversational",
				Sentences: []string{
					"I'd warn people away from this",
					"I wouldn't bring it up",
					"I'd mention it if asked",
					"I'd suggest it to friends",
					"I'd tell everyone I know about this",
				},
			},
		},
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ideation holds the generative agents of the pipeline: concept
// ideation and refinement, synthetic persona generation, persona market
// simulation, and the critic that digests survey results into actionable
// feedback.
package ideation

import (
	"fmt"
	"strings"
)

// Concept is one product concept under evaluation.
type Concept struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Tagline       string   `json:"tagline"`
	TargetMarket  string   `json:"target_market"`
	ProblemSolved string   `json:"problem_solved"`
	Features      []string `json:"features"`
	PricingModel  string   `json:"pricing_model"`
}

// Summary renders the concept as prompt context.
func (c Concept) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", c.Name)
	fmt.Fprintf(&b, "Tagline: %s\n", c.Tagline)
	fmt.Fprintf(&b, "Target Market: %s\n", c.TargetMarket)
	fmt.Fprintf(&b, "Problem Solved: %s\n", c.ProblemSolved)
	b.WriteString("Features:\n")
	for _, f := range c.Features {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "Pricing: %s\n", c.PricingModel)
	return b.String()
}

// Persona is one synthetic consumer profile.
type Persona struct {
	Name          string   `json:"name"`
	Age           int      `json:"age"`
	Occupation    string   `json:"occupation"`
	IncomeBracket string   `json:"income_bracket"`
	Location      string   `json:"location"`
	Values        []string `json:"values"`
	PainPoints    []string `json:"pain_points"`
	TechSavviness string   `json:"tech_savviness"`
	Bio           string   `json:"bio"`
}

// PromptContext renders the persona as a system-prompt profile for
// role-played survey answers.
func (p Persona) PromptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %d-year-old %s", p.Name, p.Age, p.Occupation)
	if p.Location != "" {
		fmt.Fprintf(&b, " living in %s", p.Location)
	}
	b.WriteString(".\n")
	if p.IncomeBracket != "" {
		fmt.Fprintf(&b, "Income bracket: %s\n", p.IncomeBracket)
	}
	if len(p.Values) > 0 {
		fmt.Fprintf(&b, "You value: %s\n", strings.Join(p.Values, ", "))
	}
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(&b, "Your daily frustrations: %s\n", strings.Join(p.PainPoints, ", "))
	}
	if p.TechSavviness != "" {
		fmt.Fprintf(&b, "Tech savviness: %s\n", p.TechSavviness)
	}
	if p.Bio != "" {
		fmt.Fprintf(&b, "%s\n", p.Bio)
	}
	return b.String()
}

// PersonaResponse is one persona's free-text survey answers for a concept.
type PersonaResponse struct {
	PersonaName string `json:"persona_name"`

	// Natural-language answers to the three survey questions. These feed
	// the semantic rater; no numeric scores are extracted here.
	Interest       string `json:"interest_response"`
	Disappointment string `json:"disappointment_response"`
	Recommendation string `json:"recommendation_response"`

	MainBenefit string   `json:"main_benefit"`
	Concerns    []string `json:"concerns"`
}

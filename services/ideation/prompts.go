// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ideation

// Prompt texts for the generative agents. Kept as constants rather than
// config so prompt and parser evolve together; the JSON shapes below are
// load-bearing for the extractors in json.go.

const ideatorSystemPrompt = `You are a seasoned product strategist who turns raw ideas into
sharp, differentiated product concepts. You think about real consumer
problems first and features second. Always answer with a single JSON
object with these keys: name, tagline, target_market, problem_solved,
features (array of strings), pricing_model.`

const ideatorGeneratePrompt = `Create a product concept from this seed idea.

Seed idea: %s
%s
Make the concept concrete: a memorable name, a one-line tagline, a
specific target market, the core problem it solves, 3-6 distinguishing
features, and a pricing model.

Return only the JSON object.`

const ideatorRefinePrompt = `Refine this product concept using the market feedback below. Keep what
works, change what the market rejected, and stay recognizable as the
same product unless the feedback demands a pivot.

Current concept:
%s
Market feedback:
%s

Return only the refined JSON object.`

const personaSystemPrompt = `You create diverse, realistic consumer personas for market research.
Cover a wide spread of ages, incomes, occupations, locations, values,
pain points, and tech savviness. Answer with a JSON object holding a
"personas" array; each persona has keys: name, age, occupation,
income_bracket, location, values (array), pain_points (array),
tech_savviness, bio.`

const personaBatchPrompt = `Generate %d diverse consumer personas. Make them feel like real
individuals, not demographic averages. Return a JSON object with a
"personas" array.`

const personaTargetedPrompt = `Generate %d diverse consumer personas specifically for this target
market:

Target Market: %s

While focusing on this target market, still ensure diversity in age,
income, occupation, values, pain points, and tech savviness. Return a
JSON object with a "personas" array.`

const simulatorSystemPreamble = `Answer the survey as this person would, in their own voice. Be honest:
indifference and skepticism are valid answers. Do not give numeric
scores; answer each question in one or two natural sentences. Respond
with a JSON object with keys: interest_response,
disappointment_response, recommendation_response, main_benefit,
concerns (array of strings).`

const simulatorResponsePrompt = `A company shows you this product:

%s
Survey questions:
1. How interested would you be in using this product?
2. How disappointed would you be if this product disappeared tomorrow?
3. How likely are you to recommend it to a friend?

Also name the main benefit you personally see, and any concerns.

Return only the JSON object.`

const criticSystemPrompt = `You are a blunt market analyst. Given survey metrics and raw consumer
feedback for a product concept, produce specific, actionable guidance
for the next revision: what resonated, what fell flat, and the 2-3
changes most likely to move the metrics. Plain prose, no JSON.`

const criticFeedbackPrompt = `Concept under test:

%s
Survey results (%d simulated respondents):
- Superfan ratio: %.1f%%
- Enthusiast ratio: %.1f%%
- Very-disappointed ratio: %.1f%%
- NPS analog: %.0f
- Verdict: %s

Top benefits heard:
%s
Top concerns heard:
%s
Sample feedback:
%s

Write the refinement guidance.`

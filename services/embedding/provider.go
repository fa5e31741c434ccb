// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding provides text embedding backends and vector math for
// semantic similarity rating.
//
// Two backends are supported: a local HTTP embeddings service (the same
// wire contract as the Aleutian embeddings sidecar) and the OpenAI
// embeddings API. Both are deterministic for a fixed model version, which
// the survey rater relies on for reproducible PMFs.
package embedding

import (
	"context"
	"math"
)

// Provider maps text to a fixed-length real vector.
//
// # Description
//
// Provider is the narrow contract the survey rater consumes. Implementations
// must be deterministic for a fixed model version and safe for concurrent
// use: anchor embeddings are computed once per run and shared read-only
// across concurrent rating calls.
type Provider interface {
	// Embed computes a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed computes embeddings for multiple texts in one call.
	// The returned slice has one vector per input text, in input order.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// CosineSimilarity computes the cosine similarity between two vectors.
//
// # Description
//
// Returns the cosine of the angle between a and b, in [-1, 1]. Mismatched
// lengths or zero vectors yield 0 rather than an error: a degenerate
// similarity is handled downstream by the softmax, which maps it to a
// uniform contribution.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

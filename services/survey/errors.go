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

import "errors"

// Sentinel errors for the survey package.
//
// The orchestrator classifies these with errors.Is: ErrEmbedding is
// retryable (collaborator failure), everything else is fatal for the run.
var (
	// ErrConfiguration indicates invalid rater or aggregator parameters.
	// Checked once before a run starts; never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbedding indicates the embedding backend failed or the input
	// text was empty. Retry policy belongs to the caller, not this layer.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInsufficientData indicates fewer respondents than the configured
	// minimum. Retrying without changing the simulator would not help.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMalformedRatings indicates respondent ratings that violate the
	// aggregation contract (missing dimensions, mismatched scale sizes).
	// Always fatal: it means a caller or collaborator broke its contract.
	ErrMalformedRatings = errors.New("malformed ratings")
)

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
	"errors"

	"github.com/AleutianAI/MarketPulse/services/embedding"
	"github.com/AleutianAI/MarketPulse/services/ideation"
	"github.com/AleutianAI/MarketPulse/services/survey"
)

var (
	// ErrConfiguration indicates invalid orchestrator configuration.
	ErrConfiguration = errors.New("invalid workflow configuration")

	// ErrWorkflow indicates an internal state machine violation, such as
	// refining before any concept exists. Always a bug, never retried.
	ErrWorkflow = errors.New("workflow state violation")
)

// IsRetryable reports whether an error is a transient collaborator
// failure worth retrying.
//
// Retryable: LLM backend failures (including malformed structured output,
// which is nondeterministic) and embedding backend failures. Everything
// else — configuration, insufficient data, malformed ratings, state
// violations — is deterministic and fails the run immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ideation.ErrCollaborator) ||
		errors.Is(err, ideation.ErrMalformedOutput) ||
		errors.Is(err, survey.ErrEmbedding) ||
		errors.Is(err, embedding.ErrBackendUnavailable)
}

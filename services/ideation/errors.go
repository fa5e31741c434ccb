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

import "errors"

var (
	// ErrCollaborator indicates an LLM backend failure. Transient by
	// nature; the workflow retry policy handles it.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrMalformedOutput indicates the model returned text that could not
	// be parsed into the expected structure even after repair. Treated as
	// a collaborator failure for retry purposes by callers that wrap it.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrPersonaGeneration indicates repeated batch failures exhausted the
	// persona generator's failure budget.
	ErrPersonaGeneration = errors.New("persona generation failed")
)

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

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object or array out of model output,
// tolerating markdown code fences and surrounding prose.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if strings.Contains(s, "```") {
		start := strings.Index(s, "```")
		rest := s[start+3:]
		// Drop an optional language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexAny(s, "{[")
	if objStart < 0 {
		return "", fmt.Errorf("%w: no JSON found in output", ErrMalformedOutput)
	}
	open := s[objStart]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	objEnd := strings.LastIndexByte(s, close)
	if objEnd <= objStart {
		return "", fmt.Errorf("%w: unterminated JSON in output", ErrMalformedOutput)
	}
	return s[objStart : objEnd+1], nil
}

// decodeModelJSON unmarshals model output into v, retrying once after
// stripping trailing commas, the most common structured-output defect.
func decodeModelJSON(raw string, v any) error {
	payload, err := extractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err == nil {
		return nil
	}
	repaired := strings.ReplaceAll(payload, ",]", "]")
	repaired = strings.ReplaceAll(repaired, ",}", "}")
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

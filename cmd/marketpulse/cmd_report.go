// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/AleutianAI/MarketPulse/pkg/ux"
	"github.com/AleutianAI/MarketPulse/services/workflow"
	"github.com/spf13/cobra"
)

// runReport re-renders a previously saved run result.
func runReport(cmd *cobra.Command, args []string) {
	result, err := workflow.LoadRunResult(args[0])
	if err != nil {
		ux.Error(fmt.Sprintf("Could not load %s: %v", args[0], err))
		os.Exit(1)
	}

	ux.Title("MarketPulse")
	ux.Info(fmt.Sprintf("Seed idea: %s", result.SeedIdea))
	printRunResult(result)
}

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

	"github.com/AleutianAI/MarketPulse/cmd/marketpulse/config"
	"github.com/AleutianAI/MarketPulse/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	iterations       int
	personaCount     int
	targetMarket     string
	outputDir        string
	backendType      string
	rateDimension    string
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "marketpulse",
		Short: "A cli that pressure-tests product ideas against a synthetic market",
		Long: `MarketPulse simulates a market survey for a product idea: it drafts a
concept, polls a population of LLM personas, scores their free-text answers
with semantic similarity rating, and refines the concept until the numbers
say ship it, niche it, or pivot.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
			if err := config.Load(); err != nil {
				ux.Error(fmt.Sprintf("Failed to load configuration: %v", err))
				os.Exit(1)
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [seed idea]",
		Short: "Run the full ideate-simulate-evaluate-refine loop for a seed idea",
		Args:  cobra.MinimumNArgs(1),
		Run:   runWorkflow, // Defined in cmd_run.go
	}

	rateCmd = &cobra.Command{
		Use:   "rate [text]",
		Short: "Rate one free-text survey answer on a dimension (debug utility)",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRate, // Defined in cmd_rate.go
	}

	reportCmd = &cobra.Command{
		Use:   "report [result.json]",
		Short: "Pretty-print a saved run result",
		Args:  cobra.ExactArgs(1),
		Run:   runReport, // Defined in cmd_report.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output personality: full, standard, minimal, machine")
	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "",
		"Override the model backend (ollama, openai)")

	runCmd.Flags().IntVarP(&iterations, "iterations", "i", 0,
		"Maximum refinement iterations (overrides config)")
	runCmd.Flags().IntVarP(&personaCount, "personas", "p", 0,
		"Synthetic respondent population size (overrides config)")
	runCmd.Flags().StringVarP(&targetMarket, "target", "t", "",
		"Restrict the respondent population to one market segment")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"Directory for the run result JSON (overrides config)")

	rateCmd.Flags().StringVarP(&rateDimension, "dimension", "d", "interest",
		"Survey dimension: interest, disappointment, recommendation")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(reportCmd)
}

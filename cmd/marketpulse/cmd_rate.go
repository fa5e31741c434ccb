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
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/MarketPulse/cmd/marketpulse/config"
	"github.com/AleutianAI/MarketPulse/pkg/ux"
	"github.com/AleutianAI/MarketPulse/services/survey"
	"github.com/spf13/cobra"
)

// runRate rates one answer text on one dimension and prints the PMF.
// Useful for sanity-checking the embeddings backend and anchor sets
// without burning a full run.
func runRate(cmd *cobra.Command, args []string) {
	cfg := config.Global
	text := strings.Join(args, " ")

	dim := survey.Dimension(rateDimension)
	sets, ok := survey.DefaultReferenceSets()[dim]
	if !ok {
		ux.Error(fmt.Sprintf("Unknown dimension %q (want interest, disappointment, or recommendation)", rateDimension))
		os.Exit(1)
	}

	provider, err := buildEmbeddingProvider(cfg)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	rater, err := survey.NewRater(provider, sets,
		survey.WithTemperature(cfg.Survey.Temperature),
		survey.WithEpsilon(cfg.Survey.Epsilon),
	)
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pmf, err := rater.Rate(ctx, text)
	if err != nil {
		ux.Error(fmt.Sprintf("Rating failed: %v", err))
		os.Exit(1)
	}

	ux.Title(fmt.Sprintf("%s rating", dim))
	for i, p := range pmf {
		ux.Metric(fmt.Sprintf("Level %d", i+1), p, gaugeWidth)
	}
	ux.Info(fmt.Sprintf("Expected value %.2f of %d", pmf.ExpectedValue(), pmf.Levels()))
}

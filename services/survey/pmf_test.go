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

import (
	"errors"
	"math"
	"testing"
)

func TestPMFValidate(t *testing.T) {
	tests := []struct {
		name    string
		pmf     PMF
		wantErr bool
	}{
		{"valid uniform", Uniform(5), false},
		{"valid point mass", PointMass(5, 3), false},
		{"too few levels", PMF{1.0}, true},
		{"negative entry", PMF{0.5, 0.7, -0.2}, true},
		{"does not sum to one", PMF{0.2, 0.2, 0.2}, true},
		{"nan entry", PMF{math.NaN(), 0.5, 0.5}, true},
		{"within tolerance", PMF{0.5, 0.5 + 5e-7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pmf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedRatings) {
				t.Errorf("Validate() error should wrap ErrMalformedRatings, got %v", err)
			}
		})
	}
}

func TestPMFExpectedValue(t *testing.T) {
	if got := PointMass(5, 4).ExpectedValue(); got != 4.0 {
		t.Errorf("point mass at 4: ExpectedValue() = %f, want 4.0", got)
	}
	if got := Uniform(5).ExpectedValue(); math.Abs(got-3.0) > 1e-12 {
		t.Errorf("uniform over 5: ExpectedValue() = %f, want 3.0", got)
	}
}

func TestPMFUpperTail(t *testing.T) {
	p := PMF{0.1, 0.2, 0.3, 0.25, 0.15}

	if got := p.UpperTail(4); math.Abs(got-0.4) > 1e-12 {
		t.Errorf("UpperTail(4) = %f, want 0.4", got)
	}
	if got := p.UpperTail(1); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("UpperTail(1) = %f, want 1.0", got)
	}
	if got := p.UpperTail(0); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("UpperTail(0) = %f, want full mass", got)
	}
	if got := p.UpperTail(6); got != 0 {
		t.Errorf("UpperTail(6) = %f, want 0", got)
	}
}

func TestPMFEntropy(t *testing.T) {
	// Point mass has zero entropy; uniform has log(K).
	if got := PointMass(5, 1).Entropy(); got != 0 {
		t.Errorf("point mass entropy = %f, want 0", got)
	}
	want := math.Log(5)
	if got := Uniform(5).Entropy(); math.Abs(got-want) > 1e-12 {
		t.Errorf("uniform entropy = %f, want %f", got, want)
	}
}

func TestMeanPMF(t *testing.T) {
	mean, err := MeanPMF([]PMF{PointMass(3, 1), PointMass(3, 3)})
	if err != nil {
		t.Fatalf("MeanPMF() error = %v", err)
	}
	want := PMF{0.5, 0, 0.5}
	for i := range want {
		if math.Abs(mean[i]-want[i]) > 1e-12 {
			t.Errorf("mean[%d] = %f, want %f", i, mean[i], want[i])
		}
	}

	if _, err := MeanPMF(nil); !errors.Is(err, ErrMalformedRatings) {
		t.Errorf("MeanPMF(nil) error = %v, want ErrMalformedRatings", err)
	}
	if _, err := MeanPMF([]PMF{Uniform(5), Uniform(4)}); !errors.Is(err, ErrMalformedRatings) {
		t.Errorf("mixed scale sizes error = %v, want ErrMalformedRatings", err)
	}
}

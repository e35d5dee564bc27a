// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conv

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// Tolerance is the largest sum of absolute differences at which two outputs
// are considered equivalent.
const Tolerance = 0.0625

// Equivalence is the outcome of CheckEquivalence.
type Equivalence struct {
	WithinTolerance bool
	SumAbsDiff      float64
	MaxAbsDiff      float64
	Tolerance       float64
}

// String renders the result as a one-line COMMENT (pass) or WARNING (fail).
func (e Equivalence) String() string {
	if e.WithinTolerance {
		return fmt.Sprintf("COMMENT: sum of absolute differences (%f)  within acceptable range (%f)", e.SumAbsDiff, e.Tolerance)
	}
	return fmt.Sprintf("WARNING: sum of absolute differences (%f) > EPSILON (%f)", e.SumAbsDiff, e.Tolerance)
}

// Report logs e at Info when within tolerance and at Warn otherwise.
func (e Equivalence) Report(logger *slog.Logger) {
	if logger == nil {
		return
	}
	attrs := []any{"sad", e.SumAbsDiff, "max_abs_diff", e.MaxAbsDiff, "tolerance", e.Tolerance}
	if e.WithinTolerance {
		logger.Info("outputs match", attrs...)
		return
	}
	logger.Warn("outputs diverge", attrs...)
}

// CheckEquivalence sums |got - want| over every element of two
// (kernels, width, height) outputs. Divergence is reported in the result, not
// as an error; errors are reserved for mismatched shapes. A NaN anywhere makes
// the result fail.
func CheckEquivalence[T hwy.Floats](got, want *tensor.Tensor[T], s Shape) (Equivalence, error) {
	if s.Width < 1 || s.Height < 1 || s.Kernels < 1 {
		return Equivalence{}, fmt.Errorf("%w: %v", ErrShape, s)
	}
	if err := checkOutput(got, s, "got"); err != nil {
		return Equivalence{}, err
	}
	if err := checkOutput(want, s, "want"); err != nil {
		return Equivalence{}, err
	}

	var sum, maxDiff float64
	g, w := got.Data(), want.Data()
	for i := range g {
		d := math.Abs(float64(w[i]) - float64(g[i]))
		sum += d
		if d > maxDiff || math.IsNaN(d) {
			maxDiff = d
		}
	}
	return Equivalence{
		WithinTolerance: sum <= Tolerance,
		SumAbsDiff:      sum,
		MaxAbsDiff:      maxDiff,
		Tolerance:       Tolerance,
	}, nil
}

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

import "math"

// Parallel dispatch thresholds, in multiply-accumulate operations of the
// dense problem (width*height*channels*kernels*order*order). Measured with
// 3x3 kernels and 32 channels and kernels: below the lower bound the
// single-threaded vector path always won, above the upper bound the pool
// always won.
const (
	ParallelLowerWork = 232 * 232 * 32 * 32 * 3 * 3
	ParallelUpperWork = 340 * 340 * 32 * 32 * 3 * 3
)

// parallelMidWork splits the band between the bounds. Sparse kernels do less
// work than the dense estimate suggests; the estimate is divided by the log of
// the density ratio before the comparison.
var parallelMidWork = float64(288*288*32*32*3*3) / math.Log(500)

// EstimateWork returns the dense multiply-accumulate count of s.
func EstimateWork(s Shape) int64 {
	return int64(s.Width) * int64(s.Height) * int64(s.Channels) *
		int64(s.Kernels) * int64(s.Order) * int64(s.Order)
}

// ShouldParallelize reports whether a convolution of shape s with the given
// density ratio is expected to run faster on a worker pool. It only affects
// speed, never results.
func ShouldParallelize(s Shape, densityRatio float64) bool {
	work := EstimateWork(s)
	switch {
	case work < ParallelLowerWork:
		return false
	case work >= ParallelUpperWork:
		return true
	}
	return float64(work)/densityDivisor(densityRatio) > parallelMidWork
}

// densityDivisor is ln(ratio) clamped to at least 1, so that dense or nearly
// dense kernels (ratio below e) are judged on the raw estimate.
func densityDivisor(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio <= math.E {
		return 1
	}
	return math.Log(ratio)
}

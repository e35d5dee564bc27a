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
	"testing"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/stretchr/testify/require"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/internal/randgen"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/sparse"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// smallValues keeps every partial sum an exactly representable float32
// integer for the shapes used in these tests, so differently ordered sums
// agree exactly.
func smallValues(ratio int) randgen.Config {
	return randgen.Config{NonZeroRatio: ratio, Range: 8, Signed: true}
}

type problem[T hwy.Floats] struct {
	image   *tensor.Tensor[T]
	kernels *tensor.Tensor[T]
	set     *sparse.KernelSet[T]
}

func newProblem[T hwy.Floats](t testing.TB, seed uint64, s Shape, ratio int) problem[T] {
	t.Helper()
	g := randgen.New(seed)
	image, err := randgen.NewTensor[T](g, smallValues(1), s.ImageDims()...)
	require.NoError(t, err)
	kernels, err := randgen.NewTensor[T](g, smallValues(ratio), s.KernelDims()...)
	require.NoError(t, err)
	set, err := sparse.BuildKernelSet(kernels, s.Order, s.Kernels, s.Channels)
	require.NoError(t, err)
	return problem[T]{image: image, kernels: kernels, set: set}
}

// naiveConv evaluates the convolution formula through the bounds-checked
// accessors, independently of Reference's index arithmetic.
func naiveConv[T hwy.Floats](image, kernels *tensor.Tensor[T], s Shape) *tensor.Tensor[T] {
	out := tensor.MustNew[T](s.OutputDims()...)
	for m := range s.Kernels {
		for w := range s.Width {
			for h := range s.Height {
				var sum float64
				for x := range s.Order {
					for y := range s.Order {
						for c := range s.Channels {
							sum += float64(image.At(w+x, h+y, c)) * float64(kernels.At(x, y, m, c))
						}
					}
				}
				out.Set(T(sum), m, w, h)
			}
		}
	}
	return out
}

func requireEquivalent[T hwy.Floats](t testing.TB, got, want *tensor.Tensor[T], s Shape) {
	t.Helper()
	eq, err := CheckEquivalence(got, want, s)
	require.NoError(t, err)
	require.True(t, eq.WithinTolerance, "%v: %s", s, eq)
}

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

package sparse

import (
	"fmt"
	"math"
	"slices"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// KernelOrders lists the supported kernel footprints (order x order taps).
var KernelOrders = []int{1, 3, 5, 7}

// ValidOrder reports whether order is one of KernelOrders.
func ValidOrder(order int) bool {
	return slices.Contains(KernelOrders, order)
}

// KernelSet is the compressed form of a dense (order, order, numKernels,
// numChannels) kernel tensor: one Matrix per tap offset (x, y).
// A KernelSet is immutable after construction and safe for concurrent reads.
type KernelSet[T hwy.Floats] struct {
	order       int
	numKernels  int
	numChannels int
	taps        []*Matrix[T] // indexed x*order + y
}

// BuildKernelSet compresses every tap of a dense rank 4 kernel tensor shaped
// (order, order, numKernels, numChannels).
func BuildKernelSet[T hwy.Floats](kernels *tensor.Tensor[T], order, numKernels, numChannels int) (*KernelSet[T], error) {
	if !ValidOrder(order) {
		return nil, fmt.Errorf("%w: kernel order must be 1, 3, 5 or 7, not %d", tensor.ErrShape, order)
	}
	if numKernels < 1 || numChannels < 1 {
		return nil, fmt.Errorf("%w: %d kernels, %d channels", tensor.ErrShape, numKernels, numChannels)
	}
	// Channel indices and kernel starts are stored as int32.
	if int64(numKernels)*int64(numChannels) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d kernels x %d channels exceeds the int32 index range",
			tensor.ErrTooLarge, numKernels, numChannels)
	}
	if kernels == nil || !kernels.HasDims(order, order, numKernels, numChannels) {
		var got []int
		if kernels != nil {
			got = kernels.Dims()
		}
		return nil, fmt.Errorf("%w: kernel tensor dims %v, want %v",
			tensor.ErrShape, got, []int{order, order, numKernels, numChannels})
	}

	set := &KernelSet[T]{
		order:       order,
		numKernels:  numKernels,
		numChannels: numChannels,
		taps:        make([]*Matrix[T], order*order),
	}
	for x := range order {
		for y := range order {
			set.taps[x*order+y] = FromDense(kernels.Slab(x, y), numKernels, numChannels)
		}
	}
	return set, nil
}

// NewKernelSet assembles a set from already-compressed tap matrices given in
// x-major order. Every matrix is validated.
func NewKernelSet[T hwy.Floats](order int, taps []*Matrix[T]) (*KernelSet[T], error) {
	if !ValidOrder(order) {
		return nil, fmt.Errorf("%w: kernel order must be 1, 3, 5 or 7, not %d", tensor.ErrShape, order)
	}
	if len(taps) != order*order || taps[0] == nil {
		return nil, fmt.Errorf("%w: %d taps for order %d", ErrCorrupt, len(taps), order)
	}
	set := &KernelSet[T]{
		order:       order,
		numKernels:  taps[0].NumKernels,
		numChannels: taps[0].NumChannels,
		taps:        slices.Clone(taps),
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Order returns the kernel footprint size.
func (s *KernelSet[T]) Order() int { return s.order }

// NumKernels returns the number of output kernels.
func (s *KernelSet[T]) NumKernels() int { return s.numKernels }

// NumChannels returns the number of input channels.
func (s *KernelSet[T]) NumChannels() int { return s.numChannels }

// At returns the compressed weights of tap (x, y).
func (s *KernelSet[T]) At(x, y int) *Matrix[T] {
	if x < 0 || x >= s.order || y < 0 || y >= s.order {
		panic(fmt.Sprintf("sparse: tap (%d,%d) outside order %d", x, y, s.order))
	}
	return s.taps[x*s.order+y]
}

// NonZeros returns the number of stored weights across all taps.
func (s *KernelSet[T]) NonZeros() int {
	n := 0
	for _, m := range s.taps {
		n += m.NonZeros()
	}
	return n
}

// Density returns the fraction of kernel weights that are non-zero.
func (s *KernelSet[T]) Density() float64 {
	total := s.order * s.order * s.numKernels * s.numChannels
	return float64(s.NonZeros()) / float64(total)
}

// DensityRatio is the reciprocal of Density: 1 for fully dense kernels and
// +Inf when every weight is zero.
func (s *KernelSet[T]) DensityRatio() float64 {
	nz := s.NonZeros()
	if nz == 0 {
		return math.Inf(1)
	}
	total := s.order * s.order * s.numKernels * s.numChannels
	return float64(total) / float64(nz)
}

// Validate checks the grid shape and every tap matrix.
func (s *KernelSet[T]) Validate() error {
	if len(s.taps) != s.order*s.order {
		return fmt.Errorf("%w: %d taps for order %d", ErrCorrupt, len(s.taps), s.order)
	}
	for i, m := range s.taps {
		if m == nil {
			return fmt.Errorf("%w: tap (%d,%d) missing", ErrCorrupt, i/s.order, i%s.order)
		}
		if m.NumKernels != s.numKernels || m.NumChannels != s.numChannels {
			return fmt.Errorf("%w: tap (%d,%d) is %dx%d, want %dx%d", ErrCorrupt,
				i/s.order, i%s.order, m.NumKernels, m.NumChannels, s.numKernels, s.numChannels)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("tap (%d,%d): %w", i/s.order, i%s.order, err)
		}
	}
	return nil
}

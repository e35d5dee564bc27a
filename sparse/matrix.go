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

// Package sparse stores convolution kernel weights in a compressed,
// kernel-major layout that keeps only non-zero weights.
//
// A Matrix holds one numKernels x numChannels weight matrix (the weights of a
// single kernel tap offset). Non-zeros of kernel m live in
// Values[KernelStarts[m]:KernelStarts[m+1]], with their channel numbers in the
// parallel Channels slice. A KernelSet is the order x order grid of such
// matrices, one per tap offset.
package sparse

import (
	"errors"
	"fmt"
	"math"

	"github.com/ajroetker/go-highway/hwy"
)

// ErrCorrupt is returned when a sparse structure violates its invariants.
var ErrCorrupt = errors.New("sparse: corrupt matrix")

// Matrix is a compressed numKernels x numChannels weight matrix.
type Matrix[T hwy.Floats] struct {
	NumKernels  int
	NumChannels int

	// KernelStarts has NumKernels+1 non-decreasing entries; the last one
	// equals len(Values).
	KernelStarts []int32

	// Values and Channels are parallel. Channels are strictly increasing
	// within one kernel's range.
	Values   []T
	Channels []int32
}

// FromDense compresses a row-major numKernels x numChannels matrix.
//
// A weight is dropped iff it compares equal to zero, so both +0 and -0 are
// dropped and NaN is kept. The dense slice is not modified.
func FromDense[T hwy.Floats](dense []T, numKernels, numChannels int) *Matrix[T] {
	if numKernels < 0 || numChannels < 0 {
		panic("sparse: negative matrix dimensions")
	}
	if int64(numKernels)*int64(numChannels) > math.MaxInt32 {
		panic("sparse: matrix too large for int32 indices")
	}
	if len(dense) < numKernels*numChannels {
		panic("sparse: dense slice too short")
	}
	dense = dense[:numKernels*numChannels]

	nonZeros := 0
	for _, v := range dense {
		if v != 0 {
			nonZeros++
		}
	}

	m := &Matrix[T]{
		NumKernels:   numKernels,
		NumChannels:  numChannels,
		KernelStarts: make([]int32, numKernels+1),
		Values:       make([]T, 0, nonZeros),
		Channels:     make([]int32, 0, nonZeros),
	}
	for k := range numKernels {
		m.KernelStarts[k] = int32(len(m.Values))
		row := dense[k*numChannels : (k+1)*numChannels]
		for c, v := range row {
			if v != 0 {
				m.Values = append(m.Values, v)
				m.Channels = append(m.Channels, int32(c))
			}
		}
	}
	m.KernelStarts[numKernels] = int32(len(m.Values))
	return m
}

// NonZeros returns the number of stored weights.
func (m *Matrix[T]) NonZeros() int {
	return len(m.Values)
}

// Row returns the channel numbers and weights of kernel k. The returned
// slices alias m and must not be modified.
func (m *Matrix[T]) Row(k int) (channels []int32, values []T) {
	start, end := m.KernelStarts[k], m.KernelStarts[k+1]
	return m.Channels[start:end], m.Values[start:end]
}

// ToDense scatters the stored weights into dst (row-major, numKernels x
// numChannels) and zero-fills every other entry.
func (m *Matrix[T]) ToDense(dst []T) {
	n := m.NumKernels * m.NumChannels
	if len(dst) < n {
		panic("sparse: dst slice too short")
	}
	clear(dst[:n])
	for k := range m.NumKernels {
		channels, values := m.Row(k)
		base := k * m.NumChannels
		for i, c := range channels {
			dst[base+int(c)] = values[i]
		}
	}
}

// Validate checks every structural invariant of m.
func (m *Matrix[T]) Validate() error {
	if m.NumKernels < 0 || m.NumChannels < 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrCorrupt, m.NumKernels, m.NumChannels)
	}
	if len(m.KernelStarts) != m.NumKernels+1 {
		return fmt.Errorf("%w: %d kernel starts for %d kernels", ErrCorrupt, len(m.KernelStarts), m.NumKernels)
	}
	if len(m.Values) != len(m.Channels) {
		return fmt.Errorf("%w: %d values but %d channel numbers", ErrCorrupt, len(m.Values), len(m.Channels))
	}
	if m.KernelStarts[0] != 0 {
		return fmt.Errorf("%w: first kernel starts at %d", ErrCorrupt, m.KernelStarts[0])
	}
	if int(m.KernelStarts[m.NumKernels]) != len(m.Values) {
		return fmt.Errorf("%w: kernel starts end at %d, have %d values",
			ErrCorrupt, m.KernelStarts[m.NumKernels], len(m.Values))
	}
	for k := range m.NumKernels {
		start, end := m.KernelStarts[k], m.KernelStarts[k+1]
		if end < start || int(end) > len(m.Values) {
			return fmt.Errorf("%w: kernel %d range [%d,%d) invalid for %d values", ErrCorrupt, k, start, end, len(m.Values))
		}
		prev := int32(-1)
		for _, c := range m.Channels[start:end] {
			if c < 0 || int(c) >= m.NumChannels {
				return fmt.Errorf("%w: kernel %d channel %d outside [0,%d)", ErrCorrupt, k, c, m.NumChannels)
			}
			if c <= prev {
				return fmt.Errorf("%w: kernel %d channels not increasing (%d after %d)", ErrCorrupt, k, c, prev)
			}
			prev = c
		}
	}
	return nil
}

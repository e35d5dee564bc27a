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

// Package tensor provides owned, contiguous, row-major buffers of floats with
// explicit shape metadata.
//
// A Tensor replaces nested pointer-to-pointer arrays with one allocation plus
// per-axis strides. Rank 3 tensors hold images and convolution outputs, rank 4
// tensors hold dense convolution kernels:
//
//	img := tensor.MustNew[float32](width+order-1, height+order-1, channels)
//	img.Set(1, w, h, c)
//	run := img.Slab(w, h) // the channels of pixel (w, h), no copy
package tensor

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ajroetker/go-highway/hwy"
)

// MaxElements bounds the number of elements a single Tensor may hold.
// Requests above it fail with ErrTooLarge before anything is allocated.
const MaxElements = 1 << 33

var (
	// ErrRank is returned when a tensor is requested with a rank other than 3 or 4.
	ErrRank = errors.New("tensor: rank must be 3 or 4")

	// ErrShape is returned for non-positive dimensions or mismatched shapes.
	ErrShape = errors.New("tensor: invalid shape")

	// ErrTooLarge is returned when the element count overflows or exceeds MaxElements.
	ErrTooLarge = errors.New("tensor: too many elements")
)

// Tensor is a fixed-shape, row-major array of floating point values.
// The zero value is not usable; create tensors with New or MustNew.
type Tensor[T hwy.Floats] struct {
	data    []T
	dims    []int
	strides []int
}

// New allocates a zero-filled tensor with the given dimensions.
func New[T hwy.Floats](dims ...int) (*Tensor[T], error) {
	size, err := checkDims(dims)
	if err != nil {
		return nil, err
	}
	d := append([]int(nil), dims...)
	return &Tensor[T]{
		data:    make([]T, size),
		dims:    d,
		strides: rowMajorStrides(d),
	}, nil
}

// MustNew is like New but panics if the dimensions are invalid.
func MustNew[T hwy.Floats](dims ...int) *Tensor[T] {
	t, err := New[T](dims...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSlice wraps a copy of data in a tensor with the given dimensions.
// len(data) must equal the product of dims.
func FromSlice[T hwy.Floats](data []T, dims ...int) (*Tensor[T], error) {
	t, err := New[T](dims...)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("%w: %d values for dims %v (want %d)", ErrShape, len(data), dims, len(t.data))
	}
	copy(t.data, data)
	return t, nil
}

func checkDims(dims []int) (int, error) {
	if len(dims) != 3 && len(dims) != 4 {
		return 0, fmt.Errorf("%w: got %d dims", ErrRank, len(dims))
	}
	size := uint64(1)
	for i, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("%w: dim %d is %d", ErrShape, i, d)
		}
		hi, lo := bits.Mul64(size, uint64(d))
		if hi != 0 || lo > MaxElements {
			return 0, fmt.Errorf("%w: dims %v exceed %d elements", ErrTooLarge, dims, uint64(MaxElements))
		}
		size = lo
	}
	return int(size), nil
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	s := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = s
		s *= dims[i]
	}
	return strides
}

// Dims returns a copy of the tensor's dimensions.
func (t *Tensor[T]) Dims() []int {
	return append([]int(nil), t.dims...)
}

// Dim returns the size of a single axis.
func (t *Tensor[T]) Dim(axis int) int {
	return t.dims[axis]
}

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int {
	return len(t.dims)
}

// Len returns the total number of elements.
func (t *Tensor[T]) Len() int {
	return len(t.data)
}

// Stride returns the number of elements between consecutive indices of axis.
func (t *Tensor[T]) Stride(axis int) int {
	return t.strides[axis]
}

// Data returns the backing slice. Writes through it are visible in t.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// Offset returns the linear offset of the element at idx.
// It panics if idx has the wrong length or any index is out of range.
func (t *Tensor[T]) Offset(idx ...int) int {
	if len(idx) != len(t.dims) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.dims)))
	}
	return t.prefixOffset(idx)
}

func (t *Tensor[T]) prefixOffset(idx []int) int {
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.dims[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0,%d) on axis %d", v, t.dims[i], i))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at idx.
func (t *Tensor[T]) At(idx ...int) T {
	return t.data[t.Offset(idx...)]
}

// Set stores v at idx.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.data[t.Offset(idx...)] = v
}

// Slab returns the contiguous block addressed by the leading indices.
// For a rank 4 kernel tensor shaped (K, K, M, C), Slab(x, y) is the M x C
// weight matrix of tap (x, y). The returned slice aliases t.
func (t *Tensor[T]) Slab(lead ...int) []T {
	if len(lead) > len(t.dims) {
		panic(fmt.Sprintf("tensor: %d leading indices for rank %d", len(lead), len(t.dims)))
	}
	off := t.prefixOffset(lead)
	n := len(t.data)
	if len(lead) > 0 {
		n = t.strides[len(lead)-1]
	}
	return t.data[off : off+n]
}

// Fill sets every element to v.
func (t *Tensor[T]) Fill(v T) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zero sets every element to zero.
func (t *Tensor[T]) Zero() {
	clear(t.data)
}

// Clone returns a deep copy of t.
func (t *Tensor[T]) Clone() *Tensor[T] {
	return &Tensor[T]{
		data:    append([]T(nil), t.data...),
		dims:    append([]int(nil), t.dims...),
		strides: append([]int(nil), t.strides...),
	}
}

// SameShape reports whether t and u have identical dimensions.
func (t *Tensor[T]) SameShape(u *Tensor[T]) bool {
	if len(t.dims) != len(u.dims) {
		return false
	}
	for i := range t.dims {
		if t.dims[i] != u.dims[i] {
			return false
		}
	}
	return true
}

// HasDims reports whether t has exactly the given dimensions.
func (t *Tensor[T]) HasDims(dims ...int) bool {
	if len(t.dims) != len(dims) {
		return false
	}
	for i := range dims {
		if t.dims[i] != dims[i] {
			return false
		}
	}
	return true
}

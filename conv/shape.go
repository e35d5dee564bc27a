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
	"errors"
	"fmt"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/sparse"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// ErrShape is returned when arguments violate the convolution preconditions.
var ErrShape = errors.New("conv: invalid shape")

// Shape describes one convolution problem.
type Shape struct {
	Width    int // output columns
	Height   int // output rows
	Channels int // input channels
	Kernels  int // output kernels
	Order    int // kernel footprint, one of sparse.KernelOrders
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d order=%d channels=%d kernels=%d", s.Width, s.Height, s.Order, s.Channels, s.Kernels)
}

// Validate checks the scalar preconditions shared by every entry point.
func (s Shape) Validate() error {
	if !sparse.ValidOrder(s.Order) {
		return fmt.Errorf("%w: kernel order must be 1, 3, 5 or 7, not %d", ErrShape, s.Order)
	}
	if s.Width < 1 || s.Height < 1 || s.Channels < 1 || s.Kernels < 1 {
		return fmt.Errorf("%w: %v", ErrShape, s)
	}
	return nil
}

// ImageDims returns the padded image dimensions required by s.
func (s Shape) ImageDims() []int {
	return []int{s.Width + s.Order - 1, s.Height + s.Order - 1, s.Channels}
}

// KernelDims returns the dense kernel tensor dimensions of s.
func (s Shape) KernelDims() []int {
	return []int{s.Order, s.Order, s.Kernels, s.Channels}
}

// OutputDims returns the output tensor dimensions of s.
func (s Shape) OutputDims() []int {
	return []int{s.Kernels, s.Width, s.Height}
}

// checkImage accepts images at least as large as ImageDims in the two
// spatial axes, with exactly s.Channels channels.
func checkImage[T hwy.Floats](image *tensor.Tensor[T], s Shape) error {
	if image == nil {
		return fmt.Errorf("%w: nil image", ErrShape)
	}
	want := s.ImageDims()
	d := image.Dims()
	if len(d) != 3 || d[0] < want[0] || d[1] < want[1] || d[2] != want[2] {
		return fmt.Errorf("%w: image dims %v, want at least %v", ErrShape, d, want)
	}
	return nil
}

func checkOutput[T hwy.Floats](out *tensor.Tensor[T], s Shape, name string) error {
	if out == nil {
		return fmt.Errorf("%w: nil %s", ErrShape, name)
	}
	if !out.HasDims(s.OutputDims()...) {
		return fmt.Errorf("%w: %s dims %v, want %v", ErrShape, name, out.Dims(), s.OutputDims())
	}
	return nil
}

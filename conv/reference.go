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

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// Reference computes the convolution from the dense kernel tensor.
//
// The loop order is kernel, column, row, tap x, tap y, channel, accumulating
// straight into the zero-initialized output element. It is deliberately
// unoptimized.
func Reference[T hwy.Floats](image, kernels *tensor.Tensor[T], s Shape) (*tensor.Tensor[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := checkImage(image, s); err != nil {
		return nil, err
	}
	if kernels == nil || !kernels.HasDims(s.KernelDims()...) {
		var got []int
		if kernels != nil {
			got = kernels.Dims()
		}
		return nil, fmt.Errorf("%w: kernel dims %v, want %v", ErrShape, got, s.KernelDims())
	}
	out, err := tensor.New[T](s.OutputDims()...)
	if err != nil {
		return nil, err
	}

	img := image.Data()
	is0, is1 := image.Stride(0), image.Stride(1)
	ker := kernels.Data()
	ks0, ks1, ks2 := kernels.Stride(0), kernels.Stride(1), kernels.Stride(2)
	o := out.Data()

	for m := range s.Kernels {
		for w := range s.Width {
			for h := range s.Height {
				oi := (m*s.Width+w)*s.Height + h
				for x := range s.Order {
					for y := range s.Order {
						ib := (w+x)*is0 + (h+y)*is1
						kb := x*ks0 + y*ks1 + m*ks2
						for c := range s.Channels {
							o[oi] += img[ib+c] * ker[kb+c]
						}
					}
				}
			}
		}
	}
	return out, nil
}

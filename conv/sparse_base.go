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

import "github.com/ajroetker/go-highway/hwy"

//go:generate go tool hwygen -input sparse_base.go -output . -targets avx2,avx512,neon,fallback

// BaseSparseColumn computes one column run of a sparse output tile:
//
//	out[k] = sum over i of img[base+offsets[i]+k] * values[i],  k < lanes
//
// where lanes is the vector width of the current target. offsets[i] is the
// plane offset c*size + x*height + y of the i-th non-zero weight relative to
// the output pixel at base, so every i reads a contiguous run of rows.
// Products are added in the order of offsets.
func BaseSparseColumn[T hwy.Floats](img []T, base int, offsets []int, values []T, out []T) {
	if len(offsets) != len(values) {
		panic("conv: offsets and values differ in length")
	}
	lanes := hwy.Zero[T]().NumLanes()
	if len(out) < lanes {
		panic("conv: out slice too short")
	}

	acc := hwy.Zero[T]()
	for i, off := range offsets {
		px := hwy.Load(img[base+off:])
		acc = hwy.MulAdd(px, hwy.Set(values[i]), acc)
	}
	hwy.Store(acc, out)
}

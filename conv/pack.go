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
	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

// planes is the image repacked channel-major: channel c occupies
// data[c*size : (c+1)*size] laid out [w][h], so a run of rows at a fixed
// column is contiguous and can feed hwy.Load directly.
type planes[T hwy.Floats] struct {
	data   []T
	width  int // padded columns
	height int // padded rows, also the column stride
	size   int // width*height
}

func (p *planes[T]) index(c, w, h int) int {
	return c*p.size + w*p.height + h
}

// packPlanes copies the padded region of image used by s into planes. When
// pool is non-nil, columns are packed in parallel; each column writes a
// disjoint set of elements.
func packPlanes[T hwy.Floats](pool *workerpool.Pool, image *tensor.Tensor[T], s Shape) *planes[T] {
	pw, ph := s.Width+s.Order-1, s.Height+s.Order-1
	p := &planes[T]{
		data:   make([]T, s.Channels*pw*ph),
		width:  pw,
		height: ph,
		size:   pw * ph,
	}
	img := image.Data()
	is0, is1 := image.Stride(0), image.Stride(1)

	packColumns := func(start, end int) {
		for w := start; w < end; w++ {
			for h := range ph {
				src := img[w*is0+h*is1 : w*is0+h*is1+s.Channels]
				base := w*ph + h
				for c, v := range src {
					p.data[c*p.size+base] = v
				}
			}
		}
	}
	if pool == nil {
		packColumns(0, pw)
	} else {
		pool.ParallelFor(pw, packColumns)
	}
	return p
}

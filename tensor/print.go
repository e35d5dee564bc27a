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

package tensor

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ajroetker/go-highway/hwy"
)

// Fprint writes a rank 3 tensor as text, one block per outer index and one
// line per middle index:
//
//	Outer dimension number 0
//	1.000000, 2.000000, 3.000000
//	...
func Fprint[T hwy.Floats](w io.Writer, t *Tensor[T]) error {
	if t.Rank() != 3 {
		return fmt.Errorf("%w: Fprint needs rank 3, got %d", ErrRank, t.Rank())
	}
	bw := bufio.NewWriter(w)
	d0, d1, d2 := t.dims[0], t.dims[1], t.dims[2]
	for i := range d0 {
		fmt.Fprintf(bw, "Outer dimension number %d\n", i)
		for j := range d1 {
			row := t.Slab(i, j)
			for k := range d2 - 1 {
				fmt.Fprintf(bw, "%f, ", float64(row[k]))
			}
			fmt.Fprintf(bw, "%f\n", float64(row[d2-1]))
		}
	}
	return bw.Flush()
}

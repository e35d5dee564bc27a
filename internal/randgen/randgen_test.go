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

package randgen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseHasNoZeros(t *testing.T) {
	g := New(1)
	ten, err := NewTensor[float32](g, Config{NonZeroRatio: 1}, 8, 8, 4)
	require.NoError(t, err)
	for i, v := range ten.Data() {
		if v <= 0 || v >= DefaultRange {
			t.Fatalf("data[%d] = %v, want in [1,%d)", i, v, DefaultRange)
		}
		if v != float32(math.Trunc(float64(v))) {
			t.Fatalf("data[%d] = %v, want an integer", i, v)
		}
	}
}

func TestSparseRatio(t *testing.T) {
	g := New(42)
	ten, err := NewTensor[float32](g, Config{NonZeroRatio: 4}, 32, 32, 16)
	require.NoError(t, err)

	nz := 0
	for _, v := range ten.Data() {
		if v != 0 {
			nz++
		}
	}
	frac := float64(nz) / float64(ten.Len())
	assert.InDelta(t, 0.25, frac, 0.03)
}

func TestRangeAndSign(t *testing.T) {
	g := New(7)
	ten, err := NewTensor[float64](g, Config{NonZeroRatio: 1, Range: 4, Signed: true}, 16, 16, 4)
	require.NoError(t, err)

	var neg, pos int
	for _, v := range ten.Data() {
		a := math.Abs(v)
		if a < 1 || a >= 4 {
			t.Fatalf("value %v outside +-[1,4)", v)
		}
		if v < 0 {
			neg++
		} else {
			pos++
		}
	}
	assert.Positive(t, neg)
	assert.Positive(t, pos)
}

func TestReproducible(t *testing.T) {
	a, err := NewTensor[float32](New(99), Config{NonZeroRatio: 3}, 4, 5, 6)
	require.NoError(t, err)
	b, err := NewTensor[float32](New(99), Config{NonZeroRatio: 3}, 4, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestInvalidConfig(t *testing.T) {
	g := New(0)
	_, err := NewTensor[float32](g, Config{NonZeroRatio: 0}, 1, 1, 1)
	assert.Error(t, err)
	_, err = NewTensor[float32](g, Config{NonZeroRatio: 1, Range: 1}, 1, 1, 1)
	assert.Error(t, err)
}

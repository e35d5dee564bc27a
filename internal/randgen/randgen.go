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

// Package randgen produces pseudo-random test tensors for the convolution
// harness and tests. Every Generator owns its own source, so runs are
// reproducible from a seed and no process-wide state is touched.
package randgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
)

// DefaultRange is the exclusive upper bound of generated magnitudes.
// Values stay small so float32 round-off does not swamp the comparison
// between differently ordered sums.
const DefaultRange = 1 << 10

// Config controls how values are drawn.
type Config struct {
	// NonZeroRatio is the reciprocal of the fraction of non-zero values:
	// 1 means dense, 3 means roughly one value in three is non-zero.
	NonZeroRatio int

	// Range bounds magnitudes to [1, Range). Zero means DefaultRange.
	Range int

	// Signed makes roughly half of the non-zero values negative.
	Signed bool
}

func (c Config) validate() error {
	if c.NonZeroRatio < 1 {
		return fmt.Errorf("randgen: non-zero ratio must be >= 1, got %d", c.NonZeroRatio)
	}
	if c.Range < 0 || c.Range == 1 {
		return fmt.Errorf("randgen: range must be 0 or >= 2, got %d", c.Range)
	}
	return nil
}

// Generator draws values from a seeded PCG source.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// draw returns one value following cfg. The same draw decides whether the
// value is zero and, if not, its magnitude; a zero magnitude is re-rolled.
func (g *Generator) draw(cfg Config) float64 {
	r := g.rng.Uint32() >> 1
	if int(r%uint32(cfg.NonZeroRatio)) != 0 {
		return 0
	}
	span := uint32(cfg.Range)
	if span == 0 {
		span = DefaultRange
	}
	mag := r % span
	for mag == 0 {
		mag = (g.rng.Uint32() >> 1) % span
	}
	v := float64(mag)
	if cfg.Signed && g.rng.IntN(2) == 1 {
		v = -v
	}
	return v
}

// Fill overwrites every element of t.
func Fill[T hwy.Floats](g *Generator, t *tensor.Tensor[T], cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	data := t.Data()
	for i := range data {
		data[i] = T(g.draw(cfg))
	}
	return nil
}

// NewTensor allocates a tensor with the given dims and fills it.
func NewTensor[T hwy.Floats](g *Generator, cfg Config, dims ...int) (*tensor.Tensor[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t, err := tensor.New[T](dims...)
	if err != nil {
		return nil, err
	}
	if err := Fill(g, t, cfg); err != nil {
		return nil, err
	}
	return t, nil
}

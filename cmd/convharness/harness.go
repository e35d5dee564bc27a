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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/conv"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/internal/randgen"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/sparse"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

// problem is one harness configuration: a convolution shape plus the
// kernel non-zero ratio used to generate its weights.
type problem struct {
	shape conv.Shape
	ratio int
}

// String renders p in positional argument order.
func (p problem) String() string {
	s := p.shape
	return fmt.Sprintf("%d %d %d %d %d %d", s.Width, s.Height, s.Order, s.Channels, s.Kernels, p.ratio)
}

var argNames = []string{"width", "height", "kernel_order", "channels", "kernels", "nz_ratio"}

// parseProblem reads the six positional arguments of the run command.
func parseProblem(args []string) (problem, error) {
	if len(args) != len(argNames) {
		return problem{}, fmt.Errorf("want %d arguments (%v), got %d", len(argNames), argNames, len(args))
	}
	vals := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return problem{}, fmt.Errorf("%s: %q is not an integer", argNames[i], a)
		}
		vals[i] = v
	}
	p := problem{
		shape: conv.Shape{Width: vals[0], Height: vals[1], Order: vals[2], Channels: vals[3], Kernels: vals[4]},
		ratio: vals[5],
	}
	return p, p.validate()
}

func (p problem) validate() error {
	s := p.shape
	if !lo.Contains(sparse.KernelOrders, s.Order) {
		return fmt.Errorf("kernel_order must be 1, 3, 5 or 7, not %d", s.Order)
	}
	for i, v := range []int{s.Width, s.Height, s.Order, s.Channels, s.Kernels, p.ratio} {
		if v < 1 {
			return fmt.Errorf("%s must be >= 1, not %d", argNames[i], v)
		}
	}
	return nil
}

// settings are the knobs shared by every problem of one invocation.
type settings struct {
	seed        uint64
	dispatch    conv.Dispatch
	forceSparse bool
}

// outcome is the result of one harness run.
type outcome struct {
	problem
	path     string // "sparse" or "dense"
	nonZeros int    // kernel weights kept by the sparse path, -1 on the dense path
	elapsed  time.Duration
	eq       conv.Equivalence
	output   *tensor.Tensor[float32]
}

// execute generates random data for p, computes the control output with the
// reference routine and times the production routine against it. The image
// is one column and one row larger than needed, as the sparse routine
// accepts oversized images.
func execute(ctx context.Context, pool *workerpool.Pool, p problem, st settings, logger *slog.Logger) (*outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := p.shape

	var image, dense *tensor.Tensor[float32]
	var g errgroup.Group
	g.Go(func() (err error) {
		image, err = randgen.NewTensor[float32](randgen.New(st.seed), randgen.Config{NonZeroRatio: 1},
			s.Width+s.Order, s.Height+s.Order, s.Channels)
		return err
	})
	g.Go(func() (err error) {
		dense, err = randgen.NewTensor[float32](randgen.New(st.seed+1), randgen.Config{NonZeroRatio: p.ratio},
			s.KernelDims()...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	control, err := conv.Reference(image, dense, s)
	if err != nil {
		return nil, err
	}

	res := &outcome{problem: p, path: "dense", nonZeros: -1}
	var set *sparse.KernelSet[float32]
	if p.ratio > 1 || st.forceSparse {
		res.path = "sparse"
		if set, err = sparse.BuildKernelSet(dense, s.Order, s.Kernels, s.Channels); err != nil {
			return nil, err
		}
		res.nonZeros = set.NonZeros()
	}

	start := time.Now()
	if set != nil {
		res.output, err = conv.Sparse(pool, image, set, s, conv.Options{
			DensityRatio: float64(p.ratio),
			Dispatch:     st.dispatch,
			Logger:       logger,
		})
	} else {
		res.output, err = conv.Reference(image, dense, s)
	}
	res.elapsed = time.Since(start)
	if err != nil {
		return nil, err
	}

	if res.eq, err = conv.CheckEquivalence(res.output, control, s); err != nil {
		return nil, err
	}
	logger.Debug("harness run",
		"problem", p.String(),
		"seed", st.seed,
		"path", res.path,
		"non_zeros", res.nonZeros,
		"elapsed", res.elapsed)
	return res, nil
}

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
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ajroetker/go-highway/hwy"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/sparse"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

// Dispatch selects how Sparse uses its worker pool.
type Dispatch int

const (
	// DispatchAuto parallelizes when ShouldParallelize says so.
	DispatchAuto Dispatch = iota
	// DispatchSerial always runs on the calling goroutine.
	DispatchSerial
	// DispatchParallel always spreads kernel indices over the pool.
	DispatchParallel
)

func (d Dispatch) String() string {
	switch d {
	case DispatchAuto:
		return "auto"
	case DispatchSerial:
		return "serial"
	case DispatchParallel:
		return "parallel"
	default:
		return fmt.Sprintf("Dispatch(%d)", int(d))
	}
}

// ParseDispatch parses the String form of a Dispatch.
func ParseDispatch(s string) (Dispatch, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return DispatchAuto, nil
	case "serial":
		return DispatchSerial, nil
	case "parallel":
		return DispatchParallel, nil
	}
	return DispatchAuto, fmt.Errorf("conv: unknown dispatch %q (want auto, serial or parallel)", s)
}

// Options tunes Sparse. The zero value is ready to use.
type Options struct {
	// DensityRatio feeds the dispatch heuristic. Values <= 0 mean "measure
	// it from the kernel set".
	DensityRatio float64

	Dispatch Dispatch

	// Logger receives debug records about each call. Nil discards them.
	Logger *slog.Logger
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return discardLogger
	}
	return o.Logger
}

// Sparse computes the convolution from a compressed kernel set.
//
// The result matches Reference up to floating point reassociation. Every
// precondition (shape, image size, kernel set integrity) is checked before
// any work starts. A nil pool runs serially regardless of opts.Dispatch.
func Sparse[T hwy.Floats](pool *workerpool.Pool, image *tensor.Tensor[T], kernels *sparse.KernelSet[T], s Shape, opts Options) (*tensor.Tensor[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := checkImage(image, s); err != nil {
		return nil, err
	}
	if kernels == nil {
		return nil, fmt.Errorf("%w: nil kernel set", ErrShape)
	}
	if kernels.Order() != s.Order || kernels.NumKernels() != s.Kernels || kernels.NumChannels() != s.Channels {
		return nil, fmt.Errorf("%w: kernel set is order=%d kernels=%d channels=%d, want %v",
			ErrShape, kernels.Order(), kernels.NumKernels(), kernels.NumChannels(), s)
	}
	if err := kernels.Validate(); err != nil {
		return nil, err
	}
	out, err := tensor.New[T](s.OutputDims()...)
	if err != nil {
		return nil, err
	}

	ratio := opts.DensityRatio
	if ratio <= 0 {
		ratio = kernels.DensityRatio()
	}
	parallel := decideParallel(pool, s, ratio, opts.Dispatch)
	logger := opts.logger()
	start := time.Now()

	var packPool *workerpool.Pool
	if parallel {
		packPool = pool
	}
	e := newEngine(packPlanes(packPool, image, s), kernels, s, out.Data(), hwy.MaxLanes[T]())
	e.run(pool, parallel)

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		logger.Debug("sparse convolution",
			"shape", s.String(),
			"work", EstimateWork(s),
			"density_ratio", ratio,
			"parallel", parallel,
			"lanes", e.lanes,
			"regions", regionSummary(e.regions),
			"elapsed", time.Since(start))
	}
	return out, nil
}

func decideParallel(pool *workerpool.Pool, s Shape, ratio float64, d Dispatch) bool {
	if pool == nil || pool.NumWorkers() < 2 || s.Kernels < 2 {
		return false
	}
	switch d {
	case DispatchSerial:
		return false
	case DispatchParallel:
		return true
	}
	return ShouldParallelize(s, ratio)
}

func regionSummary(regions []region) string {
	parts := make([]string, len(regions))
	for i, r := range regions {
		parts[i] = fmt.Sprintf("%s[%d:%d,%d:%d]", r.kind, r.w0, r.w1, r.h0, r.h1)
	}
	return strings.Join(parts, " ")
}

// engine holds the read-only state of one Sparse call. Kernel index m writes
// only out[m*width*height : (m+1)*width*height], so disjoint kernel ranges
// can run concurrently.
type engine[T hwy.Floats] struct {
	s       Shape
	lanes   int
	img     *planes[T]
	plans   []kernelPlan[T]
	out     []T
	regions []region

	// onStore, when set, is told about every output run written: count
	// consecutive rows starting at (m, w, h).
	onStore func(m, w, h, count int)
}

// kernelPlan lists the non-zero weights of one kernel in x, y, c order, the
// order Reference sums them in. offsets[i] is the plane offset of weight i
// relative to the output pixel: c*size + x*height + y.
type kernelPlan[T hwy.Floats] struct {
	offsets []int
	values  []T
}

func newEngine[T hwy.Floats](img *planes[T], kernels *sparse.KernelSet[T], s Shape, out []T, lanes int) *engine[T] {
	if len(out) < s.Kernels*s.Width*s.Height {
		panic("conv: output slice too short")
	}
	if lanes < 1 {
		panic("conv: lanes must be positive")
	}
	return &engine[T]{
		s:       s,
		lanes:   lanes,
		img:     img,
		plans:   planKernels(img, kernels, s),
		out:     out,
		regions: planRegions(s.Width, s.Height, lanes),
	}
}

// planKernels flattens the per-tap rows of every kernel into one kernelPlan.
// All plans share two backing slices sized by the total non-zero count.
func planKernels[T hwy.Floats](img *planes[T], kernels *sparse.KernelSet[T], s Shape) []kernelPlan[T] {
	taps := make([]*sparse.Matrix[T], 0, s.Order*s.Order)
	nnz := 0
	for x := range s.Order {
		for y := range s.Order {
			tap := kernels.At(x, y)
			taps = append(taps, tap)
			nnz += tap.NonZeros()
		}
	}
	offsets := make([]int, 0, nnz)
	values := make([]T, 0, nnz)
	plans := make([]kernelPlan[T], s.Kernels)
	for m := range s.Kernels {
		start := len(offsets)
		for x := range s.Order {
			for y := range s.Order {
				channels, vals := taps[x*s.Order+y].Row(m)
				for i, c := range channels {
					offsets = append(offsets, img.index(int(c), x, y))
					values = append(values, vals[i])
				}
			}
		}
		plans[m] = kernelPlan[T]{
			offsets: offsets[start:len(offsets):len(offsets)],
			values:  values[start:len(values):len(values)],
		}
	}
	return plans
}

func (e *engine[T]) run(pool *workerpool.Pool, parallel bool) {
	if parallel {
		pool.ParallelFor(e.s.Kernels, e.kernelRange)
		return
	}
	e.kernelRange(0, e.s.Kernels)
}

// kernelRange computes every output pixel of kernels [start, end). The tile
// accumulators are allocated once per call and reused for every tile.
func (e *engine[T]) kernelRange(start, end int) {
	acc := make([]T, e.lanes*e.lanes)
	for m := start; m < end; m++ {
		for _, r := range e.regions {
			if r.kind == regionBulk {
				e.bulk(m, r, acc)
			} else {
				e.strip(m, r)
			}
		}
	}
}

// bulk computes r in lanes x lanes tiles. acc[j*lanes+k] accumulates output
// pixel (w+j, h+k).
func (e *engine[T]) bulk(m int, r region, acc []T) {
	lanes := e.lanes
	colStride := e.img.height
	data := e.img.data
	plan := e.plans[m]
	for w := r.w0; w < r.w1; w += lanes {
		for h := r.h0; h < r.h1; h += lanes {
			clear(acc)
			origin := w*colStride + h
			for i, off := range plan.offsets {
				v := plan.values[i]
				src := data[origin+off:]
				for j := range lanes {
					col := src[j*colStride : j*colStride+lanes]
					a := acc[j*lanes : (j+1)*lanes]
					for k, px := range col {
						a[k] += px * v
					}
				}
			}
			for j := range lanes {
				off := (m*e.s.Width+w+j)*e.s.Height + h
				copy(e.out[off:off+lanes], acc[j*lanes:(j+1)*lanes])
				if e.onStore != nil {
					e.onStore(m, w+j, h, lanes)
				}
			}
		}
	}
}

// strip computes r one pixel at a time.
func (e *engine[T]) strip(m int, r region) {
	colStride := e.img.height
	data := e.img.data
	plan := e.plans[m]
	for w := r.w0; w < r.w1; w++ {
		for h := r.h0; h < r.h1; h++ {
			origin := w*colStride + h
			var sum T
			for i, off := range plan.offsets {
				sum += data[origin+off] * plan.values[i]
			}
			e.out[(m*e.s.Width+w)*e.s.Height+h] = sum
			if e.onStore != nil {
				e.onStore(m, w, h, 1)
			}
		}
	}
}

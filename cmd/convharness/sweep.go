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
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/conv"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

type sweepFlags struct {
	commonFlags
	jobs     int
	sizes    []string
	orders   []int
	ratios   []int
	channels int
	kernels  int
}

// size is a width x height pair such as "64x32".
type size struct{ width, height int }

func parseSize(s string) (size, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return size{}, fmt.Errorf("size %q: want <width>x<height>", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return size{}, fmt.Errorf("size %q: bad width: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return size{}, fmt.Errorf("size %q: bad height: %w", s, err)
	}
	return size{w, h}, nil
}

// grid expands the sweep flags into the cross product of sizes, orders and
// ratios, dropping duplicates and keeping flag order.
func (f *sweepFlags) grid() ([]problem, error) {
	sizes := make([]size, 0, len(f.sizes))
	for _, s := range f.sizes {
		sz, err := parseSize(s)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, sz)
	}
	sizes = lo.Uniq(sizes)
	orders, ratios := lo.Uniq(f.orders), lo.Uniq(f.ratios)

	grid := lo.FlatMap(sizes, func(sz size, _ int) []problem {
		return lo.FlatMap(orders, func(order, _ int) []problem {
			return lo.Map(ratios, func(ratio, _ int) problem {
				return problem{
					shape: conv.Shape{
						Width: sz.width, Height: sz.height, Order: order,
						Channels: f.channels, Kernels: f.kernels,
					},
					ratio: ratio,
				}
			})
		})
	})
	for _, p := range grid {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("%v: %w", p, err)
		}
	}
	return grid, nil
}

func newSweepCmd() *cobra.Command {
	var f sweepFlags
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a grid of configurations and tabulate timings and agreement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			grid, err := f.grid()
			if err != nil {
				return err
			}
			if len(grid) == 0 {
				return fmt.Errorf("empty sweep grid")
			}
			level := slog.LevelWarn
			if f.verbose {
				level = slog.LevelDebug
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			pool := workerpool.New(f.workers)
			defer pool.Close()

			seed := f.resolveSeed()
			results := make([]*outcome, len(grid))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(1, f.jobs))
			for i, p := range grid {
				g.Go(func() error {
					st := settings{seed: seed + 2*uint64(i), dispatch: conv.Dispatch(f.dispatch)}
					res, err := execute(ctx, pool, p, st, logger)
					if err != nil {
						return fmt.Errorf("%v: %w", p, err)
					}
					res.eq.Report(logger.With("problem", p.String()))
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if err := writeTable(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			diverged := lo.CountBy(results, func(r *outcome) bool { return !r.eq.WithinTolerance })
			if diverged > 0 {
				return fmt.Errorf("%d of %d configurations diverged from the reference", diverged, len(results))
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	fs := cmd.Flags()
	fs.IntVarP(&f.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "configurations run concurrently")
	fs.StringSliceVar(&f.sizes, "sizes", []string{"16x16", "64x64", "100x37"}, "image sizes as <width>x<height>")
	fs.IntSliceVar(&f.orders, "orders", []int{1, 3, 5, 7}, "kernel orders")
	fs.IntSliceVar(&f.ratios, "ratios", []int{1, 20, 100}, "kernel non-zero ratios")
	fs.IntVar(&f.channels, "channels", 32, "input channels")
	fs.IntVar(&f.kernels, "kernels", 32, "output kernels")
	return cmd
}

func writeTable(w io.Writer, results []*outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "width\theight\torder\tchannels\tkernels\tnz-ratio\tpath\tnon-zeros\ttime(us)\tsad\tstatus\t")
	for _, r := range results {
		s := r.shape
		status := "ok"
		if !r.eq.WithinTolerance {
			status = "DIVERGED"
		}
		nz := "-"
		if r.nonZeros >= 0 {
			nz = strconv.Itoa(r.nonZeros)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%d\t%g\t%s\t\n",
			s.Width, s.Height, s.Order, s.Channels, s.Kernels, r.ratio,
			r.path, nz, r.elapsed.Microseconds(), r.eq.SumAbsDiff, status)
	}
	return tw.Flush()
}

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
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/conv"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestParseProblem(t *testing.T) {
	p, err := parseProblem([]string{"16", "12", "3", "32", "8", "20"})
	require.NoError(t, err)
	assert.Equal(t, conv.Shape{Width: 16, Height: 12, Order: 3, Channels: 32, Kernels: 8}, p.shape)
	assert.Equal(t, 20, p.ratio)
	assert.Equal(t, "16 12 3 32 8 20", p.String())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"even order", []string{"16", "16", "4", "32", "32", "1"}, "kernel_order must be 1, 3, 5 or 7, not 4"},
		{"order nine", []string{"16", "16", "9", "32", "32", "1"}, "not 9"},
		{"zero width", []string{"0", "16", "3", "32", "32", "1"}, "width must be >= 1"},
		{"zero channels", []string{"16", "16", "3", "0", "32", "1"}, "channels must be >= 1"},
		{"zero ratio", []string{"16", "16", "3", "32", "32", "0"}, "nz_ratio must be >= 1"},
		{"not a number", []string{"16", "x", "3", "32", "32", "1"}, `height: "x" is not an integer`},
		{"too few", []string{"16", "16"}, "want 6 arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProblem(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDispatchValue(t *testing.T) {
	var d dispatchValue
	assert.Equal(t, "auto", d.String())
	assert.Equal(t, "dispatch", d.Type())

	require.NoError(t, d.Set("parallel"))
	assert.Equal(t, conv.DispatchParallel, conv.Dispatch(d))
	require.NoError(t, d.Set("Serial"))
	assert.Equal(t, "serial", d.String())
	assert.Error(t, d.Set("fastest"))
	assert.Equal(t, conv.DispatchSerial, conv.Dispatch(d), "failed Set keeps the old value")
}

func TestExecute(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, d := range []conv.Dispatch{conv.DispatchSerial, conv.DispatchParallel} {
		t.Run(d.String(), func(t *testing.T) {
			p := problem{shape: conv.Shape{Width: 9, Height: 6, Order: 3, Channels: 4, Kernels: 3}, ratio: 3}
			res, err := execute(context.Background(), pool, p, settings{seed: 7, dispatch: d}, logger)
			require.NoError(t, err)
			assert.Equal(t, "sparse", res.path)
			assert.True(t, res.eq.WithinTolerance, res.eq.String())
			assert.Zero(t, res.eq.SumAbsDiff)
			assert.True(t, res.output.HasDims(p.shape.OutputDims()...))
			assert.GreaterOrEqual(t, res.nonZeros, 0)
		})
	}

	t.Run("dense", func(t *testing.T) {
		p := problem{shape: conv.Shape{Width: 5, Height: 5, Order: 1, Channels: 2, Kernels: 2}, ratio: 1}
		res, err := execute(context.Background(), pool, p, settings{seed: 1}, logger)
		require.NoError(t, err)
		assert.Equal(t, "dense", res.path)
		assert.Equal(t, -1, res.nonZeros)
		assert.True(t, res.eq.WithinTolerance)
	})

	t.Run("force sparse", func(t *testing.T) {
		p := problem{shape: conv.Shape{Width: 5, Height: 5, Order: 1, Channels: 2, Kernels: 2}, ratio: 1}
		res, err := execute(context.Background(), pool, p, settings{seed: 1, forceSparse: true}, logger)
		require.NoError(t, err)
		assert.Equal(t, "sparse", res.path)
		assert.Equal(t, 2*2, res.nonZeros)
		assert.True(t, res.eq.WithinTolerance)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := problem{shape: conv.Shape{Width: 5, Height: 5, Order: 1, Channels: 2, Kernels: 2}, ratio: 1}
		_, err := execute(ctx, pool, p, settings{seed: 1}, logger)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunCommand(t *testing.T) {
	stdout, stderr, err := runCLI(t, "run", "8", "6", "3", "4", "4", "5", "--seed", "11", "--dispatch", "parallel", "--workers", "2")
	require.NoError(t, err, stderr)
	assert.Regexp(t, `^conv time: \d+ microseconds\n`, stdout)
	assert.Contains(t, stdout, "COMMENT: sum of absolute differences (0.000000)  within acceptable range (0.062500)")
	assert.Empty(t, stderr)
}

func TestRunCommandDumpAndVerbose(t *testing.T) {
	stdout, stderr, err := runCLI(t, "run", "3", "2", "1", "2", "2", "2", "--seed", "5", "--dump", "-v")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Outer dimension number 0")
	assert.Contains(t, stdout, "Outer dimension number 1")
	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, "harness run")
}

func TestRunCommandErrors(t *testing.T) {
	_, _, err := runCLI(t, "run", "16", "16", "2", "32", "32", "1")
	require.Error(t, err)
	assert.Equal(t, "kernel_order must be 1, 3, 5 or 7, not 2", err.Error())

	_, _, err = runCLI(t, "run", "16", "16", "3")
	assert.Error(t, err)

	_, _, err = runCLI(t, "run", "16", "16", "3", "32", "32", "1", "--dispatch", "eager")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dispatch")
}

func TestSweepGrid(t *testing.T) {
	f := sweepFlags{
		sizes:    []string{"8x8", "10X11", "8x8"},
		orders:   []int{1, 3},
		ratios:   []int{1, 4, 4},
		channels: 2,
		kernels:  3,
	}
	grid, err := f.grid()
	require.NoError(t, err)
	require.Len(t, grid, 2*2*2)
	assert.Equal(t, "8 8 1 2 3 1", grid[0].String())
	assert.Equal(t, "10 11 3 2 3 4", grid[len(grid)-1].String())

	f.orders = []int{2}
	_, err = f.grid()
	assert.ErrorContains(t, err, "kernel_order must be 1, 3, 5 or 7")

	f.sizes = []string{"8by8"}
	_, err = f.grid()
	assert.ErrorContains(t, err, "want <width>x<height>")
}

func TestSweepCommand(t *testing.T) {
	stdout, stderr, err := runCLI(t, "sweep",
		"--sizes", "6x5,9x4", "--orders", "1,3", "--ratios", "1,3",
		"--channels", "3", "--kernels", "2", "--jobs", "3", "--workers", "2", "--seed", "9")
	require.NoError(t, err, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1+2*2*2)
	assert.Contains(t, lines[0], "status")
	for _, l := range lines[1:] {
		assert.True(t, strings.HasSuffix(strings.TrimSpace(l), "ok"), l)
	}
	assert.NotContains(t, stderr, "level=WARN")
}

func TestInfoCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "simd target:")
	assert.Contains(t, stdout, "float32 lanes:")
}

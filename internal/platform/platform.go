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

// Package platform describes the host the convolution runs on: the SIMD
// target selected at start-up, the vector lane counts that target implies,
// and the CPU features and topology reported by the processor.
package platform

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

// Report is a snapshot of the host.
type Report struct {
	GOOS, GOARCH string
	MaxProcs     int

	// SIMD target in use.
	Target       string
	Level        hwy.DispatchLevel
	WidthBytes   int
	LanesFloat32 int
	LanesFloat64 int
	NoSIMD       bool // HWY_NO_SIMD forced the scalar fallback

	// Processor.
	Brand         string
	PhysicalCores int
	LogicalCores  int
	L1DataCache   int // bytes, -1 when unknown
	Features      []string
}

// Detect builds a Report for the running process.
func Detect() Report {
	r := Report{
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		MaxProcs:      runtime.GOMAXPROCS(0),
		Target:        hwy.CurrentName(),
		Level:         hwy.CurrentLevel(),
		WidthBytes:    hwy.CurrentWidth(),
		LanesFloat32:  hwy.MaxLanes[float32](),
		LanesFloat64:  hwy.MaxLanes[float64](),
		NoSIMD:        hwy.NoSimdEnv(),
		Brand:         cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		L1DataCache:   cpuid.CPU.Cache.L1D,
		Features:      vectorFeatures(),
	}
	if r.Brand == "" {
		r.Brand = "unknown"
	}
	return r
}

// vectorFeatures lists the vector extensions relevant to the bulk kernels.
func vectorFeatures() []string {
	var fs []string
	add := func(ok bool, name string) {
		if ok {
			fs = append(fs, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
		add(cpuid.CPU.Supports(cpuid.AVX512DQ), "avx512dq")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	return fs
}

// Lanes returns the lane count for an element of the given size in bytes.
func (r Report) Lanes(elemSize int) int {
	if elemSize <= 0 {
		return 0
	}
	return r.WidthBytes / elemSize
}

// WriteTo prints r as an aligned two-column table.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)
	cache := "unknown"
	if r.L1DataCache > 0 {
		cache = fmt.Sprintf("%d KiB", r.L1DataCache/1024)
	}
	features := "none"
	if len(r.Features) > 0 {
		features = strings.Join(r.Features, " ")
	}
	rows := [][2]string{
		{"platform", r.GOOS + "/" + r.GOARCH},
		{"gomaxprocs", fmt.Sprint(r.MaxProcs)},
		{"simd target", r.Target},
		{"simd width", fmt.Sprintf("%d bytes", r.WidthBytes)},
		{"float32 lanes", fmt.Sprint(r.LanesFloat32)},
		{"float64 lanes", fmt.Sprint(r.LanesFloat64)},
		{"HWY_NO_SIMD", fmt.Sprint(r.NoSIMD)},
		{"cpu", r.Brand},
		{"cores", fmt.Sprintf("%d physical, %d logical", r.PhysicalCores, r.LogicalCores)},
		{"L1d cache", cache},
		{"vector features", features},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return cw.n, err
		}
	}
	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

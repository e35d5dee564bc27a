// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, parts int
		want     int // number of ranges
	}{
		{0, 4, 0},
		{1, 4, 1},
		{3, 4, 3},
		{4, 4, 4},
		{10, 4, 4},
		{10, 0, 1},
		{97, 8, 8},
	}
	for _, tt := range tests {
		ranges := Partition(tt.n, tt.parts)
		if len(ranges) != tt.want {
			t.Fatalf("Partition(%d, %d) gave %d ranges, want %d", tt.n, tt.parts, len(ranges), tt.want)
		}
		next := 0
		for i, r := range ranges {
			if r.Start != next {
				t.Fatalf("Partition(%d, %d)[%d].Start = %d, want %d", tt.n, tt.parts, i, r.Start, next)
			}
			if r.Len() <= 0 {
				t.Fatalf("Partition(%d, %d)[%d] is empty", tt.n, tt.parts, i)
			}
			if r.Len()-ranges[0].Len() > 1 || ranges[0].Len()-r.Len() > 1 {
				t.Fatalf("Partition(%d, %d) unbalanced: %v", tt.n, tt.parts, ranges)
			}
			next = r.End
		}
		if next != max(tt.n, 0) {
			t.Fatalf("Partition(%d, %d) ends at %d", tt.n, tt.parts, next)
		}
	}
}

func TestParallelForDisjoint(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	for _, n := range []int{1, 3, 4, 5, 100, 1001} {
		visits := make([]int32, n)
		pool.ParallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&visits[i], 1)
			}
		})
		for i, v := range visits {
			if v != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, v)
			}
		}
	}
}

func TestParallelForUsesWorkers(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var mu sync.Mutex
	var calls [][2]int
	pool.ParallelFor(16, func(start, end int) {
		mu.Lock()
		calls = append(calls, [2]int{start, end})
		mu.Unlock()
	})
	if len(calls) != 4 {
		t.Errorf("got %d range calls, want 4: %v", len(calls), calls)
	}
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestClosedPoolRunsSequentially(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close()

	var calls int
	pool.ParallelFor(10, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("got range [%d,%d), want [0,10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}

	sum := 0
	pool.ParallelForAtomic(5, func(i int) { sum += i })
	if sum != 10 {
		t.Errorf("sum = %d, want 10", sum)
	}
}

func TestPanicPropagates(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if !strings.Contains(r.(string), "boom") {
			t.Errorf("panic %q does not mention the task panic", r)
		}
	}()
	pool.ParallelFor(8, func(start, end int) {
		if start == 0 {
			panic("boom")
		}
	})
}

func BenchmarkParallelFor(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	data := make([]float32, 1<<16)
	b.ResetTimer()
	for range b.N {
		pool.ParallelFor(len(data), func(start, end int) {
			for i := start; i < end; i++ {
				data[i] += 1
			}
		})
	}
}

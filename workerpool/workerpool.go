// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a fixed-size, reusable fork-join pool.
//
// Workers are spawned once by New and live until Close. Each ParallelFor call
// splits an index space into disjoint half-open ranges, hands one range to
// each worker and returns only after every range has been processed (the join
// barrier). Ranges never overlap, so callers that write only to storage owned
// by their indices need no locking.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelFor(numKernels, func(start, end int) {
//	    for m := start; m < end; m++ {
//	        convolveKernel(m)
//	    }
//	})
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent set of worker goroutines.
type Pool struct {
	numWorkers int
	workC      chan task
	closeOnce  sync.Once
	closed     atomic.Bool
}

type task struct {
	fn   func()
	join *joinBarrier
}

// joinBarrier waits for a batch of tasks and remembers the first panic raised
// by any of them so it can be re-raised on the calling goroutine.
type joinBarrier struct {
	wg        sync.WaitGroup
	panicOnce sync.Once
	panicVal  any
}

func (b *joinBarrier) run(fn func()) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.panicOnce.Do(func() { b.panicVal = r })
		}
	}()
	fn()
}

func (b *joinBarrier) wait() {
	b.wg.Wait()
	if b.panicVal != nil {
		panic(fmt.Sprintf("workerpool: task panicked: %v", b.panicVal))
	}
}

// New starts a pool with numWorkers goroutines.
// If numWorkers <= 0, GOMAXPROCS workers are started.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan task, numWorkers),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for t := range p.workC {
		t.join.run(t.fn)
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers once queued work has drained.
// Calls after the first are no-ops; a closed pool runs work sequentially.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Range is a half-open interval [Start, End) of indices.
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits [0, n) into at most parts contiguous, disjoint, non-empty
// ranges whose lengths differ by at most one.
func Partition(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	parts = max(1, min(parts, n))
	ranges := make([]Range, parts)
	base, extra := n/parts, n%parts
	start := 0
	for i := range parts {
		size := base
		if i < extra {
			size++
		}
		ranges[i] = Range{Start: start, End: start + size}
		start += size
	}
	return ranges
}

// ParallelFor calls fn once per range of Partition(n, NumWorkers()) and
// blocks until all calls return. A panic in fn is re-raised here.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	ranges := Partition(n, p.numWorkers)
	if len(ranges) == 1 || p.closed.Load() {
		fn(0, n)
		return
	}

	join := &joinBarrier{}
	join.wg.Add(len(ranges))
	for _, r := range ranges {
		p.workC <- task{
			fn:   func() { fn(r.Start, r.End) },
			join: join,
		}
	}
	join.wait()
}

// ParallelForAtomic calls fn(i) for every i in [0, n). Workers claim indices
// one at a time, which balances uneven per-index cost. Blocks until done.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := min(p.numWorkers, n)
	if workers == 1 || p.closed.Load() {
		for i := range n {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	join := &joinBarrier{}
	join.wg.Add(workers)
	for range workers {
		p.workC <- task{
			fn: func() {
				for {
					i := int(next.Add(1)) - 1
					if i >= n {
						return
					}
					fn(i)
				}
			},
			join: join,
		}
	}
	join.wait()
}

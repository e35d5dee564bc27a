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

// Package conv computes multichannel, multi-kernel 2D convolutions.
//
// Two implementations produce the same (numKernels, width, height) output:
//
//   - Reference walks the dense kernel tensor with the plainest possible loop
//     nest. It is the correctness oracle and the production path when kernels
//     carry no sparsity.
//   - Sparse walks a sparse.KernelSet, touching only non-zero weights. Output
//     tiles of L x L pixels (L is hwy.MaxLanes for the element type) are
//     accumulated in a reusable block over a flattened per-kernel list of
//     weights and plane offsets, the remaining right and bottom
//     strips are computed per pixel, and kernel indices are optionally spread
//     over a workerpool.Pool.
//
// CheckEquivalence compares two outputs by their sum of absolute differences.
// The two paths add the same products in different orders, so they are
// compared against Tolerance rather than for bit equality.
//
// # Layouts
//
//	image   (width+order-1, height+order-1, channels)   padded, no halo logic
//	kernels (order, order, kernels, channels)
//	output  (kernels, width, height)
//
//	output[m][w][h] = sum over x, y < order and c < channels of
//	                  image[w+x][h+y][c] * kernels[x][y][m][c]
//
// # Example
//
//	set, err := sparse.BuildKernelSet(kernels, order, numKernels, numChannels)
//	pool := workerpool.New(0)
//	defer pool.Close()
//	got, err := conv.Sparse(pool, image, set, shape, conv.Options{})
//	want, err := conv.Reference(image, kernels, shape)
//	eq, err := conv.CheckEquivalence(got, want, shape)
package conv

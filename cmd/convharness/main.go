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

// Command convharness times the sparse multichannel convolution against the
// dense reference on random data and checks that both agree.
//
// Usage:
//
//	convharness run <width> <height> <kernel-order> <channels> <kernels> <nz-ratio>
//	convharness run 16 16 1 32 32 20 --dispatch parallel --verbose
//	convharness sweep --jobs 4
//	convharness info
//
// A nz-ratio of 1 generates dense kernels and times the reference routine,
// any larger value keeps roughly one kernel weight in nz-ratio and times the
// sparse routine.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

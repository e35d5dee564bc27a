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
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/conv"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/tensor"
	"github.com/Can-ZHOU/CS3014-Concurrent-Systems-I/workerpool"
)

// dispatchValue adapts conv.Dispatch to a pflag.Value.
type dispatchValue conv.Dispatch

var _ pflag.Value = (*dispatchValue)(nil)

func (d *dispatchValue) String() string { return conv.Dispatch(*d).String() }

func (d *dispatchValue) Set(s string) error {
	v, err := conv.ParseDispatch(s)
	if err != nil {
		return err
	}
	*d = dispatchValue(v)
	return nil
}

func (d *dispatchValue) Type() string { return "dispatch" }

// commonFlags are the flags shared by run and sweep.
type commonFlags struct {
	seed     uint64
	workers  int
	dispatch dispatchValue
	verbose  bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.Uint64Var(&c.seed, "seed", 0, "random seed; 0 picks one from the clock")
	fs.IntVar(&c.workers, "workers", 0, "worker goroutines for the sparse routine; 0 means GOMAXPROCS")
	fs.Var(&c.dispatch, "dispatch", "parallel dispatch: auto, serial or parallel")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug records")
}

func (c *commonFlags) resolveSeed() uint64 {
	if c.seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return c.seed
}

type runFlags struct {
	commonFlags
	forceSparse bool
	dump        bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <width> <height> <kernel-order> <channels> <kernels> <nz-ratio>",
		Short: "Time one convolution and check it against the reference",
		Args:  cobra.ExactArgs(len(argNames)),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProblem(args)
			if err != nil {
				return err
			}
			level := slog.LevelInfo
			if f.verbose {
				level = slog.LevelDebug
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			pool := workerpool.New(f.workers)
			defer pool.Close()

			st := settings{seed: f.resolveSeed(), dispatch: conv.Dispatch(f.dispatch), forceSparse: f.forceSparse}
			res, err := execute(cmd.Context(), pool, p, st, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "conv time: %d microseconds\n", res.elapsed.Microseconds())
			if f.dump {
				if err := tensor.Fprint(out, res.output); err != nil {
					return err
				}
			}
			if res.eq.WithinTolerance {
				fmt.Fprintln(out, res.eq)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), res.eq)
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&f.forceSparse, "force-sparse", false, "time the sparse routine even when nz-ratio is 1")
	cmd.Flags().BoolVar(&f.dump, "dump", false, "print the output tensor")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/heapline/allocore/heap"
	"github.com/heapline/allocore/internal/tracefile"
	"github.com/heapline/allocore/simheap"
)

var (
	runCapacity int
	runPageSize int
	runNoCheck  bool
)

var runCmd = &cobra.Command{
	Use:   "run <trace>",
	Short: "Replay an allocation trace against a fresh heap",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().IntVar(&runCapacity, "capacity", 64<<20, "heap capacity in bytes")
	runCmd.Flags().IntVar(&runPageSize, "page-size", simheap.DefaultPageSize, "heap growth granularity in bytes")
	runCmd.Flags().BoolVar(&runNoCheck, "no-check", false, "skip the post-replay consistency check")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	ops, err := tracefile.Parse(f)
	if err != nil {
		return fmt.Errorf("parse trace: %w", err)
	}
	logrus.Debugf("parsed %d operations from %s", len(ops), path)

	sim, err := simheap.NewWithPageSize(runCapacity, runPageSize)
	if err != nil {
		return fmt.Errorf("build heap: %w", err)
	}
	defer sim.Close()

	a, err := heap.New(sim)
	if err != nil {
		return fmt.Errorf("init allocator: %w", err)
	}

	res, err := tracefile.Replay(a, ops)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	if !runNoCheck {
		if err := a.Check(); err != nil {
			return fmt.Errorf("consistency check failed: %w", err)
		}
		logrus.Debug("consistency check passed")
	}

	fmt.Printf("allocations=%d frees=%d peak_live=%d heap_size=%d\n",
		res.Allocations, res.Frees, res.PeakLive, sim.Size())
	return nil
}

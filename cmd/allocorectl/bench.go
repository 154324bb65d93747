package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/heapline/allocore/heap"
	"github.com/heapline/allocore/simheap"
)

var (
	benchCapacity int
	benchOps      int
	benchMaxSize  int
	benchSeed     int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a synthetic randomized allocate/free workload and report throughput",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchCapacity, "capacity", 64<<20, "heap capacity in bytes")
	benchCmd.Flags().IntVar(&benchOps, "ops", 200000, "number of allocate/free operations to perform")
	benchCmd.Flags().IntVar(&benchMaxSize, "max-size", 512, "maximum request size in bytes")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	sim, err := simheap.New(benchCapacity)
	if err != nil {
		return fmt.Errorf("build heap: %w", err)
	}
	defer sim.Close()

	a, err := heap.New(sim)
	if err != nil {
		return fmt.Errorf("init allocator: %w", err)
	}

	rng := rand.New(rand.NewSource(benchSeed))
	live := make([]uintptr, 0, benchOps)

	start := time.Now()
	for i := 0; i < benchOps; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			a.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		size := rng.Intn(benchMaxSize) + 1
		addr, err := a.Allocate(size)
		if err != nil {
			logrus.Debugf("allocate %d failed after %d ops: %v", size, i, err)
			break
		}
		live = append(live, addr)
	}
	elapsed := time.Since(start)

	opsPerSec := float64(benchOps) / elapsed.Seconds()
	fmt.Printf("ops=%d elapsed=%s ops_per_sec=%.0f live_at_end=%d heap_size=%d\n",
		benchOps, elapsed, opsPerSec, len(live), sim.Size())
	return nil
}

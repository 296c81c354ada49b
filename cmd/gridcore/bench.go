package main

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chalkan3-sloth/gridcore/conc"
	"github.com/chalkan3-sloth/gridcore/rtime"
)

func newBenchCmd() *cobra.Command {
	var (
		threads int
		items   int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Push items through an ActiveQueue and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()
			pterm.Info.Printfln("bench run %s: %d items, %d threads", runID, items, threads)

			var sum atomic.Int64
			q := conc.NewActiveQueue[int](threads, func(v int) {
				sum.Add(int64(v))
			})
			defer q.Stop()

			clock := rtime.New()
			for i := 1; i <= items; i++ {
				q.Push(i)
			}
			drained := q.WaitEmpty(5 * time.Second)
			elapsed := clock.Microseconds()

			if !drained {
				pterm.Warning.Printfln("queue stalled: %d of %d done", q.NDone(), q.NEnqueued())
				return nil
			}
			pterm.Success.Printfln("drained %d items in %.2f ms (sum=%d)",
				items, float64(elapsed)/1000.0, sum.Load())
			return nil
		},
	}
	cmd.Flags().IntVar(&threads, "threads", 4, "worker pool size")
	cmd.Flags().IntVar(&items, "items", 100000, "items to push")
	return cmd
}

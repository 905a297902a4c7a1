// Command distmaxflow computes the maximum s-t flow of a directed
// capacitated graph, distributing the search across a fixed set of
// simulated peer processes (see internal/transport) and a labeling worker
// pool per process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rpi-parallel/distmaxflow/internal/bootstrap"
	"github.com/rpi-parallel/distmaxflow/internal/engine"
	"github.com/rpi-parallel/distmaxflow/internal/graphstore"
	"github.com/rpi-parallel/distmaxflow/internal/loader"
	"github.com/rpi-parallel/distmaxflow/internal/partition"
	"github.com/rpi-parallel/distmaxflow/internal/transport"
	"github.com/rpi-parallel/distmaxflow/mathutils"
	"github.com/rpi-parallel/distmaxflow/utils"
)

func info(args ...any) {
	log.Println("[DistMaxFlow]\t", fmt.Sprint(args...))
}

func main() {
	ranks := flag.Int("ranks", 1, "Number of simulated peer processes")
	verbose := flag.Int("v", 0, "Verbosity (0=info, 1=debug, 2=trace)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: distmaxflow <input_path> <thread_count> [-ranks P] [-v level]")
		os.Exit(1)
	}
	inputPath := args[0]
	var threadCount int
	if _, err := fmt.Sscanf(args[1], "%d", &threadCount); err != nil || threadCount <= 0 {
		fmt.Fprintf(os.Stderr, "distmaxflow: invalid thread_count %q\n", args[1])
		os.Exit(1)
	}

	utils.SetLoggerConsole(false)
	utils.SetLevel(*verbose)

	if err := run(inputPath, threadCount, *ranks); err != nil {
		fmt.Fprintln(os.Stderr, "distmaxflow:", err)
		os.Exit(1)
	}
}

func run(inputPath string, threadCount, numRanks int) error {
	watch := &mathutils.Watch{}
	watch.Start()

	g, err := loader.Load(inputPath)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if g.NumVertices < 2 {
		return fmt.Errorf("graph needs at least a source and a sink, got %d vertices", g.NumVertices)
	}
	sourceID := graphstore.GlobalID(0)
	sinkID := graphstore.GlobalID(g.NumVertices - 1)

	partitionWatch := &mathutils.Watch{}
	partitionWatch.Start()

	var plan partition.Plan
	if numRanks == 1 {
		plan = bootstrap.SingleRankPlan(g)
	} else {
		balancer := &partition.Greedy{}
		plan, err = balancer.Partition(context.Background(), bootstrap.NewLoaderSource(g), numRanks)
		if err != nil {
			return fmt.Errorf("partition: %w", err)
		}
	}
	fmt.Println("Partition time:", partitionWatch.Elapsed())

	perRankVertices, globalIDToRank, err := bootstrap.BuildVertices(g, plan, numRanks)
	if err != nil {
		return fmt.Errorf("build vertices: %w", err)
	}

	transports := transport.NewCluster(int32(numRanks), 0)
	cfg := engine.Config{ThreadCount: threadCount, SourceGlobalID: sourceID, SinkGlobalID: sinkID}

	// Each rank confirms its copy of the global_id -> rank table through an
	// actual Broadcast collective (§6: "rank 0 broadcasts the global_id ->
	// rank table to all ranks"), even though the bootstrap goroutine above
	// already computed it once for every rank -- see DESIGN.md.
	group, ctx := errgroup.WithContext(context.Background())
	results := make([]engine.Result, numRanks)
	for r := 0; r < numRanks; r++ {
		r := r
		group.Go(func() error {
			tr := transports[r]
			table, err := tr.Broadcast(ctx, 0, globalIDToRank)
			if err != nil {
				return err
			}
			store := graphstore.NewStore(int32(r), perRankVertices[r], table)
			rank := engine.NewRank(cfg, store, tr, zlog.Logger)
			res, err := rank.Run(ctx)
			if err != nil {
				return err
			}
			results[r] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Println("Max flow:", results[0].FlowValue)
	fmt.Println("Runtime:", watch.Elapsed())
	return nil
}

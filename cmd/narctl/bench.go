package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"narengine/pkg/nar"
	"narengine/pkg/types"
)

type benchFlags struct {
	runFlags
	requests    int
	concurrency int
	prompt      string
}

// benchReport summarizes a bench run.
type benchReport struct {
	Requests        int            `json:"requests"`
	Concurrency     int            `json:"concurrency"`
	Completed       int            `json:"completed"`
	Succeeded       int            `json:"succeeded"`
	Codes           map[string]int `json:"codes"`
	Tokens          uint64         `json:"tokens"`
	WallSeconds     float64        `json:"wall_seconds"`
	TokensPerSecond float64        `json:"tokens_per_second"`
	MeanLatency     float64        `json:"mean_latency_seconds"`
	MaxLatency      float64        `json:"max_latency_seconds"`
}

func newBenchCmd(opts *options) *cobra.Command {
	f := &benchFlags{}
	cmd := &cobra.Command{
		Use:     "bench",
		Short:   "Run concurrent generations and report throughput",
		Example: "  narctl bench -m models/tiny.gguf --requests 32 --concurrency 4",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.initEngine(cfg); err != nil {
				return err
			}
			defer opts.shutdownEngine()
			rep, err := runBench(cmd.Context(), f)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return opts.printJSON(rep)
			}
			fmt.Fprintf(opts.out, "requests: %d (ok %d) concurrency: %d\n", rep.Requests, rep.Succeeded, rep.Concurrency)
			fmt.Fprintf(opts.out, "tokens: %d in %.2fs (%.1f tok/s)\n", rep.Tokens, rep.WallSeconds, rep.TokensPerSecond)
			fmt.Fprintf(opts.out, "latency: mean %.3fs max %.3fs\n", rep.MeanLatency, rep.MaxLatency)
			for desc, n := range rep.Codes {
				if desc != types.Success.Description() {
					fmt.Fprintf(opts.out, "  %s: %d\n", desc, n)
				}
			}
			return nil
		},
	}
	addGenerateFlags(cmd, &f.runFlags)
	cmd.Flags().IntVar(&f.requests, "requests", 16, "Total number of generations")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 4, "Generations in flight at once")
	cmd.Flags().StringVar(&f.prompt, "prompt", "The quick brown fox", "Prompt used for every request")
	return cmd
}

// runBench fans the requests out over an errgroup limited to the
// configured concurrency. Per-request failures are counted, not returned.
func runBench(ctx context.Context, f *benchFlags) (benchReport, error) {
	if f.requests <= 0 || f.concurrency <= 0 {
		return benchReport{}, fmt.Errorf("requests and concurrency must be positive")
	}
	rep := benchReport{Requests: f.requests, Concurrency: f.concurrency, Codes: map[string]int{}}
	var (
		mu        sync.Mutex
		latencies time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	start := time.Now()
	for i := 0; i < f.requests; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			t0 := time.Now()
			res, code := nar.Generate(f.params(f.prompt))
			lat := time.Since(t0)
			var tokens uint32
			if res != nil {
				tokens = res.TokenCount
			}
			nar.FreeGeneratedText(&res)
			mu.Lock()
			defer mu.Unlock()
			rep.Completed++
			rep.Codes[code.Description()]++
			if code == types.Success {
				rep.Succeeded++
			}
			rep.Tokens += uint64(tokens)
			latencies += lat
			if s := lat.Seconds(); s > rep.MaxLatency {
				rep.MaxLatency = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	wall := time.Since(start)
	rep.WallSeconds = wall.Seconds()
	if wall > 0 {
		rep.TokensPerSecond = float64(rep.Tokens) / wall.Seconds()
	}
	if rep.Completed > 0 {
		rep.MeanLatency = latencies.Seconds() / float64(rep.Completed)
	}
	return rep, ctx.Err()
}

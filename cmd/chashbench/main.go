// Command chashbench drives a configurable soak/benchmark workload against
// a chash.Map: N goroutines hammering Put/Get/Remove against a
// shared key space while a resize storm is provoked by ramping the key
// count past the table's growth thresholds. It exists to exercise the
// concurrency properties spec.md §8 describes, not as a correctness test
// (those live in chash's _test.go files).
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
	"github.com/pborman/uuid"
	"github.com/tilinna/clock"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/holisticode/chashmap/chash"
	"github.com/holisticode/chashmap/debug"
	"github.com/holisticode/chashmap/log"
	"github.com/holisticode/chashmap/metrics"
	"github.com/holisticode/chashmap/tracing"
)

func main() {
	setupLogging()

	app := cli.NewApp()
	app.Name = "chashbench"
	app.Usage = "soak-test and benchmark a concurrent hash table"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "workers", Value: 16, Usage: "goroutines hammering the map concurrently"},
		cli.IntFlag{Name: "keys", Value: 200000, Usage: "distinct key-space size"},
		cli.DurationFlag{Name: "duration", Value: 5 * time.Second, Usage: "how long to run"},
		cli.Float64Flag{Name: "write-ratio", Value: 0.2, Usage: "fraction of ops that mutate rather than read"},
		cli.BoolFlag{Name: "metrics", Usage: "also collect process metrics when go-ethereum metrics are enabled"},
		cli.StringFlag{Name: "jaeger", Usage: "jaeger agent host:port; empty disables remote tracing"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error("chashbench failed", "err", err)
		os.Exit(1)
	}
}

func setupLogging() {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo,
			log.StreamHandler(colorable.NewColorableStderr(), log.TerminalFormat(true))))
	} else {
		log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo,
			log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
	}
}

func run(c *cli.Context) error {
	metrics.Setup(c.Bool("metrics"))

	cfg := tracing.DefaultConfig("chashbench")
	cfg.AgentHostPort = c.String("jaeger")
	closer, err := tracing.Init(cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer closer.Close()

	workers := c.Int("workers")
	keySpace := c.Int("keys")
	duration := c.Duration("duration")
	writeRatio := c.Float64("write-ratio")

	m := chash.New[string, string](
		chash.StringHasher(),
		chash.WithInitialCapacity[string, string](keySpace/4),
		chash.WithClock[string, string](clock.Realtime()),
		chash.WithParallelism[string, string](workers),
	)

	keys := make([]string, keySpace)
	for i := range keys {
		keys[i] = uuid.New()
	}

	var ops, puts, gets, removes atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(int64(duration.Seconds()),
		mpb.PrependDecorators(decor.Name("soak")),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				k := keys[rng.Intn(len(keys))]
				if rng.Float64() < writeRatio {
					if rng.Intn(5) == 0 {
						m.Remove(k)
						removes.Add(1)
					} else {
						m.Put(k, uuid.New())
						puts.Add(1)
					}
				} else {
					m.Get(k)
					gets.Add(1)
				}
				ops.Add(1)
			}
		}(int64(w) + 1)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
ticking:
	for {
		select {
		case <-ctx.Done():
			break ticking
		case <-ticker.C:
			bar.Increment()
		}
	}
	wg.Wait()
	progress.Wait()

	ins := debug.NewInspector(m)
	shape := ins.TableShape()
	footprint := ins.MemoryFootprint()

	log.Info("soak complete",
		"ops", ops.Load(),
		"puts", puts.Load(),
		"gets", gets.Load(),
		"removes", removes.Load(),
		"mappingCount", shape.MappingCount,
		"tableLength", shape.Length,
		"treeBins", shape.TreeBins,
		"heapRetained", footprint.Total,
	)
	return nil
}

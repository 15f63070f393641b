// Command satdiag ingests one element set from a URL or file, runs a single
// frame pass and prints what the renderer would receive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/star/satview/internal/elements"
	"github.com/star/satview/internal/frame"
	"github.com/star/satview/internal/ingest"
	"github.com/star/satview/internal/instance"
	"github.com/star/satview/internal/propagation"
	"github.com/star/satview/internal/tle"
)

type fileSource string

func (f fileSource) Fetch(ctx context.Context) ([]byte, error) {
	return os.ReadFile(string(f))
}

func main() {
	source := flag.String("source", "", "element set URL (default: CelesTrak active)")
	file := flag.String("file", "", "read element sets from a local file instead of fetching")
	capacity := flag.Int("capacity", 25000, "maximum number of tracked objects")
	atFlag := flag.String("at", "", "RFC 3339 instant for the frame pass (default: now)")
	show := flag.Int("show", 5, "number of slots to print")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	at := time.Now().UTC()
	if *atFlag != "" {
		t, err := time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			fmt.Println("ERROR parsing -at:", err)
			os.Exit(1)
		}
		at = t
	}
	if *capacity < 1 {
		fmt.Println("ERROR: -capacity must be positive")
		os.Exit(1)
	}

	var src ingest.Source
	name := *file
	if *file != "" {
		src = fileSource(*file)
	} else {
		f := tle.NewFetcher(*source, logger)
		src, name = f, f.SourceURL()
	}

	store := elements.NewStore(*capacity)
	pool := propagation.NewWorkerPool(runtime.NumCPU(), propagation.ParseSGP4, logger)
	sched := ingest.NewScheduler(src, store, pool, ingest.Config{SourceName: name}, logger)

	start := time.Now()
	n, err := sched.Refresh(context.Background())
	if err != nil {
		fmt.Println("ERROR ingesting:", err)
		os.Exit(1)
	}
	set := store.Get()
	fmt.Printf("Loaded %d objects from %s in %s\n", n, name, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Epoch range: %s .. %s\n", set.EpochRange.Min.Format(time.RFC3339), set.EpochRange.Max.Format(time.RFC3339))

	buffer := instance.New(*capacity)
	p := frame.NewPipeline(store, buffer, frame.Config{}, logger)
	stats := p.Pass(at)
	fmt.Printf("Pass at %s: written=%d unavailable=%d duration=%s\n",
		at.Format(time.RFC3339), stats.Written, stats.Unavailable, stats.Duration)

	for i := 0; i < min(*show, set.Len()); i++ {
		x, y, z := buffer.Slot(i).Translation()
		o := set.Objects[i]
		fmt.Printf("  [%d] %-24s NORAD %-6d world (%.4f, %.4f, %.4f)\n", i, o.Name, o.NORADID, x, y, z)
	}
}

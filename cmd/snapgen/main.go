/*
Snapgen is the offline snapshot builder: it reads a term/score file and
writes a termserve snapshot blob. Pairing it with a termserve daemon running
with -no-build and snapshot watching enabled gives a fully out-of-process
build pipeline: snapgen publishes, the daemon hot-loads.

	snapgen -terms data/terms.tsv -out data/terms.snap -k 10

The output file is written atomically, so it is always safe to point a
running daemon at it.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/termserve/termserve/internal/logger"
	"github.com/termserve/termserve/pkg/snapfile"
	"github.com/termserve/termserve/pkg/suggest"
	"github.com/termserve/termserve/pkg/termstore"
)

func main() {
	termsPath := flag.String("terms", "data/terms.tsv", "Input terms file (term<TAB>score per line)")
	outPath := flag.String("out", "data/terms.snap", "Output snapshot file")
	topK := flag.Int("k", suggest.DefaultTopK, "Per-node shortlist capacity")
	maxTermLen := flag.Int("maxlen", suggest.DefaultMaxTermLen, "Maximum term length in bytes")
	maxErrRate := flag.Float64("maxerr", 0.05, "Invalid-record rate that aborts the build")
	baseVersion := flag.Uint("base", 0, "Version the new snapshot must exceed (0 probes the output file)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}
	lg := logger.New("snapgen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := suggest.NewBuilder(suggest.BuildOptions{
		TopK:         *topK,
		MaxTermLen:   *maxTermLen,
		MaxErrorRate: *maxErrRate,
	})
	if *baseVersion > 0 {
		builder.SetBaseVersion(uint32(*baseVersion))
	} else if h, err := snapfile.Probe(*outPath); err == nil {
		// Keep versions increasing across repeated runs over the same file.
		builder.SetBaseVersion(h.SnapVersion)
	}

	terms, err := termstore.ReadFile(*termsPath)
	if err != nil {
		lg.Fatalf("Failed to read terms: %v", err)
	}

	start := time.Now()
	snap, err := builder.Build(ctx, terms)
	if err != nil {
		lg.Fatalf("Build failed: %v", err)
	}
	if err := snapfile.Write(*outPath, snap); err != nil {
		lg.Fatalf("Failed to write snapshot: %v", err)
	}

	lg.Infof("Snapshot version=%d terms=%d nodes=%d topK=%d written to %s in %s",
		snap.Version(), snap.TermCount(), snap.NodeCount(), snap.TopK(),
		*outPath, time.Since(start).Round(time.Millisecond))
}

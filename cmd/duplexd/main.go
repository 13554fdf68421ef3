// duplexd runs the duplex read-processing pipeline over a dumped batch of
// decoded reads: pairs are fused into consensus records, split families
// synchronized and re-tagged, and per-read summaries persisted for the QC
// report.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/strandline-data/duplex.report/internal/basecall"
	"github.com/strandline-data/duplex.report/internal/db"
	"github.com/strandline-data/duplex.report/internal/duplex"
	"github.com/strandline-data/duplex.report/internal/monitoring"
	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/report"
	"github.com/strandline-data/duplex.report/internal/scaler"
	"github.com/strandline-data/duplex.report/internal/subread"
	"github.com/strandline-data/duplex.report/internal/timeutil"
	"github.com/strandline-data/duplex.report/internal/version"
)

var (
	pairsPath   = flag.String("pairs", "", "Path to the primary/secondary read id pairs file (required)")
	readsPath   = flag.String("reads", "", "Path to the JSONL read dump, - for stdin (required)")
	dbPath      = flag.String("db", "duplex.db", "Path to the run database")
	reportPath  = flag.String("report", "", "Write a QC report HTML page to this path")
	outPath     = flag.String("out", "-", "Path for the released-read JSONL output, - for stdout")
	workers     = flag.Int("workers", 0, "Worker pool size per node (0 = one per CPU)")
	stride      = flag.Int("stride", duplex.DefaultStride, "Fallback decode stride for reads dumped without one")
	verbose     = flag.Bool("verbose", false, "Enable diagnostic pipeline logging")
	trace       = flag.Bool("trace", false, "Enable per-message pipeline tracing (implies -verbose)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// progressInterval paces the feed progress log line.
const progressInterval = 30 * time.Second

// logProgress reports how many reads the feed has pushed on every tick
// until stop closes. Driven by a Clock so tests can fire ticks directly.
func logProgress(clock timeutil.Clock, interval time.Duration, runID string, fed *atomic.Int64, stop <-chan struct{}) {
	start := clock.Now()
	tick := clock.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C():
			monitoring.Logf("run %s: %d reads pushed in %s",
				runID, fed.Load(), clock.Since(start).Round(time.Second))
		}
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("duplexd %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *pairsPath == "" || *readsPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose || *trace {
		traceW := io.Writer(nil)
		if *trace {
			traceW = os.Stderr
		}
		pipeline.SetLogWriters(os.Stderr, os.Stderr, traceW)
	}

	// A malformed pairs file must stop the run before the pipeline starts.
	pairsFile, err := os.Open(*pairsPath)
	if err != nil {
		log.Fatalf("open pairs file: %v", err)
	}
	partners, err := duplex.LoadPartnerMap(pairsFile)
	pairsFile.Close()
	if err != nil {
		log.Fatalf("load pairs file: %v", err)
	}
	monitoring.Logf("loaded %d read pairs from %s", partners.Len(), *pairsPath)

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	runs := db.NewRunStore(database, timeutil.RealClock{})
	runID, err := runs.StartRun()
	if err != nil {
		log.Fatalf("start run: %v", err)
	}

	out := os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	in := os.Stdin
	if *readsPath != "-" {
		f, err := os.Open(*readsPath)
		if err != nil {
			log.Fatalf("open reads file: %v", err)
		}
		defer f.Close()
		in = f
	}

	graph, err := buildGraph(partners, database, runID, out, nil)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	if err := graph.Start(); err != nil {
		log.Fatalf("start pipeline: %v", err)
	}

	var fed atomic.Int64
	stopProgress := make(chan struct{})
	go logProgress(timeutil.RealClock{}, progressInterval, runID, &fed, stopProgress)

	pushed, err := feedReads(in, graph.Source(), &fed)
	close(stopProgress)
	if err != nil {
		log.Fatalf("feed reads: %v", err)
	}
	graph.Stop()
	monitoring.Logf("run %s: processed %d reads", runID, pushed)

	if err := runs.FinishRun(runID); err != nil {
		log.Fatalf("finish run: %v", err)
	}
	if *reportPath != "" {
		if err := report.WriteHTML(database, runID, *reportPath); err != nil {
			log.Fatalf("write report: %v", err)
		}
		monitoring.Logf("run %s: report written to %s", runID, *reportPath)
	}
}

// buildGraph wires the pipeline sink-first:
//
//	scaler → basecaller → tee ┬→ stereo encoder ─┐
//	                          └──────────────────┴→ duplex tagging
//	                              → subread tagger → summary sink
//	                              → jsonl writer
//
// runner may be nil: the dump format carries the upstream decode, so the
// basecaller runs in pass-through mode and only rejects signal-only reads.
func buildGraph(partners *duplex.PartnerMap, database *db.DB, runID string, out *os.File, runner basecall.Runner) (*pipeline.Graph, error) {
	writer, err := newWriterNode(out)
	if err != nil {
		return nil, err
	}
	summary, err := db.NewSummarySink(db.SummarySinkConfig{DB: database, RunID: runID, Next: writer})
	if err != nil {
		return nil, err
	}
	tagger, err := subread.NewTaggerNode(subread.TaggerConfig{Sink: summary.Node, Workers: *workers})
	if err != nil {
		return nil, err
	}
	tagging, err := duplex.NewTaggingNode(duplex.TaggingConfig{Sink: tagger.Node, Workers: *workers})
	if err != nil {
		return nil, err
	}
	encoder, err := duplex.NewEncoderNode(duplex.EncoderConfig{
		Partners: partners,
		Sink:     tagging.Node,
		Stride:   *stride,
		Workers:  *workers,
	})
	if err != nil {
		return nil, err
	}
	tee := pipeline.NewTee(encoder.Node, tagging.Node)
	caller, err := basecall.NewCallerNode(basecall.Config{Runner: runner, Sink: tee, Workers: *workers})
	if err != nil {
		return nil, err
	}
	scale, err := scaler.NewNode(scaler.Config{Sink: caller.Node, Workers: *workers})
	if err != nil {
		return nil, err
	}

	graph := pipeline.NewGraph()
	for _, n := range []*pipeline.Node{
		writer, summary.Node, tagger.Node, tagging.Node, encoder.Node, caller.Node, scale.Node,
	} {
		if err := graph.Add(n); err != nil {
			return nil, err
		}
	}
	if err := graph.SetEntry(scale.Name()); err != nil {
		return nil, err
	}
	return graph, nil
}

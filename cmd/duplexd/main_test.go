package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strandline-data/duplex.report/internal/db"
	"github.com/strandline-data/duplex.report/internal/duplex"
	"github.com/strandline-data/duplex.report/internal/monitoring"
	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
	"github.com/strandline-data/duplex.report/internal/timeutil"
)

func dumpFor(id string, seq []byte, familyTag string, splitCount, candidates int, parent bool) readDump {
	const samplesPerBase = 2
	n := len(seq) * samplesPerBase
	d := readDump{
		ID:               id,
		Seq:              string(seq),
		Qstring:          strings.Repeat("+", len(seq)),
		Signal:           make([]float32, n),
		Moves:            make([]uint8, n),
		Stride:           1,
		FamilyTag:        familyTag,
		SplitCount:       splitCount,
		DuplexCandidates: candidates,
		IsDuplexParent:   parent,
	}
	for i := 0; i < n; i++ {
		d.Signal[i] = 400 + float32(i%200)
		if i%samplesPerBase == 0 {
			d.Moves[i] = 1
		}
	}
	return d
}

func randomSeq(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	bases := []byte("ACGT")
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = bases[rng.Intn(4)]
	}
	return seq
}

func TestFeedReadsRejectsMalformedLine(t *testing.T) {
	collected := &collectingSink{}
	_, err := feedReads(strings.NewReader("{\"id\":\"a\"}\nnot-json\n"), collected, nil)
	if err == nil {
		t.Fatal("malformed JSONL line accepted")
	}
	if len(collected.msgs) != 1 {
		t.Errorf("pushed %d reads before failing, want 1", len(collected.msgs))
	}
}

func TestFeedReadsRequiresID(t *testing.T) {
	if _, err := feedReads(strings.NewReader("{\"seq\":\"ACGT\"}\n"), &collectingSink{}, nil); err == nil {
		t.Fatal("read dump without id accepted")
	}
}

type collectingSink struct {
	msgs []pipeline.Message
}

func (c *collectingSink) Push(msg pipeline.Message) error { c.msgs = append(c.msgs, msg); return nil }
func (c *collectingSink) Terminate()                      {}
func (c *collectingSink) Restart()                        {}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "run.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	runs := db.NewRunStore(database, nil)
	runID, err := runs.StartRun()
	if err != nil {
		t.Fatal(err)
	}

	partners, err := duplex.NewPartnerMap([][2]string{{"g1", "g2"}})
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "out.jsonl")
	outFile, err := os.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer outFile.Close()

	graph, err := buildGraph(partners, database, runID, outFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := graph.Start(); err != nil {
		t.Fatal(err)
	}

	// One split family of two fragments that pair into one duplex read.
	seq := randomSeq(300, 17)
	line1 := dumpFor("g1", seq, "fam", 2, 1, true)
	line2 := dumpFor("g2", reads.RevComp(seq), "fam", 2, 0, true)
	line2.SubreadIndex = 1
	var input bytes.Buffer
	enc := json.NewEncoder(&input)
	if err := enc.Encode(line1); err != nil {
		t.Fatal(err)
	}
	if err := enc.Encode(line2); err != nil {
		t.Fatal(err)
	}

	pushed, err := feedReads(&input, graph.Source(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if pushed != 2 {
		t.Fatalf("pushed %d reads, want 2", pushed)
	}
	graph.Stop()

	summaries, err := database.SummariesForRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 3 {
		t.Fatalf("persisted %d summaries, want 2 fragments + 1 duplex", len(summaries))
	}
	var sawDuplex bool
	for _, s := range summaries {
		if s.SplitCount != 3 {
			t.Errorf("read %s has split count %d, want re-tagged 3", s.ReadID, s.SplitCount)
		}
		if s.IsDuplex {
			sawDuplex = true
			if s.ReadID != "g1;g2" {
				t.Errorf("duplex id = %q, want g1;g2", s.ReadID)
			}
			if s.SubreadIndex != 2 {
				t.Errorf("duplex subread index = %d, want 2", s.SubreadIndex)
			}
		} else {
			want := 0
			if s.ReadID == "g2" {
				want = 1
			}
			if s.SubreadIndex != want {
				t.Errorf("fragment %s subread index = %d, want splitter-assigned %d",
					s.ReadID, s.SubreadIndex, want)
			}
		}
	}
	if !sawDuplex {
		t.Error("no duplex read persisted")
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("output holds %d lines, want 3", len(lines))
	}
	for _, l := range lines {
		var rec readOut
		if err := json.Unmarshal([]byte(l), &rec); err != nil {
			t.Fatalf("unparseable output line %q: %v", l, err)
		}
		if rec.ID == "g1" && !rec.IsDuplexParent {
			t.Error("confirmed parent g1 lost its flag")
		}
	}
}

func TestProgressLoggerReportsFeedCount(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var mu sync.Mutex
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		lines = append(lines, fmt.Sprintf(format, v...))
		mu.Unlock()
	})

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var fed atomic.Int64
	fed.Store(7)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		logProgress(clock, time.Second, "run-1", &fed, stop)
		close(done)
	}()

	// The reporter creates its ticker asynchronously, so keep advancing
	// until the first line lands.
	deadline := time.Now().Add(2 * time.Second)
	for {
		clock.Advance(time.Second)
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no progress line emitted")
		}
		time.Sleep(time.Millisecond)
	}
	close(stop)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(lines[0], "run-1") || !strings.Contains(lines[0], "7 reads") {
		t.Errorf("progress line = %q, want run id and feed count", lines[0])
	}
}

package subread

import (
	"fmt"
	"testing"
	"time"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

func fragment(id, tag string, index, splitCount, candidates int) *reads.SimplexRead {
	r := &reads.SimplexRead{}
	r.ID = id
	r.FamilyTag = tag
	r.SubreadIndex = index
	r.SplitCount = splitCount
	r.DuplexCandidates = candidates
	return r
}

func derived(id, tag string) *reads.DuplexRead {
	d := &reads.DuplexRead{}
	d.ID = id
	d.FamilyTag = tag
	d.IsDuplex = true
	return d
}

func newTestTagger(t *testing.T) (*TaggerNode, *pipeline.Collector) {
	t.Helper()
	sink := pipeline.NewCollector()
	node, err := NewTaggerNode(TaggerConfig{Sink: sink, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	node.Start()
	return node, sink
}

func ids(msgs []pipeline.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		switch r := m.(type) {
		case *reads.SimplexRead:
			out[i] = r.ID
		case *reads.DuplexRead:
			out[i] = r.ID
		}
	}
	return out
}

func TestTaggerReleasesFragmentOnlyFamily(t *testing.T) {
	node, sink := newTestTagger(t)

	for i := 0; i < 3; i++ {
		f := fragment(fmt.Sprintf("f%d", i), "fam", i, 3, 0)
		if err := node.Push(f); err != nil {
			t.Fatal(err)
		}
	}
	node.Terminate()

	msgs := sink.Messages()
	if len(msgs) != 3 {
		t.Fatalf("released %d records, want 3", len(msgs))
	}
	for i, m := range msgs {
		f := m.(*reads.SimplexRead)
		if f.ID != fmt.Sprintf("f%d", i) {
			t.Errorf("position %d holds %q, want index order preserved", i, f.ID)
		}
		if f.SplitCount != 3 || f.SubreadIndex != i {
			t.Errorf("%s tagged split=%d index=%d, want split=3 index=%d",
				f.ID, f.SplitCount, f.SubreadIndex, i)
		}
	}
	if node.Buffered() != 0 {
		t.Errorf("%d families still buffered", node.Buffered())
	}
}

func TestTaggerWaitsForDerivedRecords(t *testing.T) {
	node, sink := newTestTagger(t)

	// Two fragments jointly expecting one duplex record: one candidate
	// declared on the first fragment, none on the second.
	if err := node.Push(fragment("g1", "fam", 0, 2, 1)); err != nil {
		t.Fatal(err)
	}
	if err := node.Push(fragment("g2", "fam", 1, 2, 0)); err != nil {
		t.Fatal(err)
	}

	// The fragment set alone must not be released.
	time.Sleep(50 * time.Millisecond)
	if got := len(sink.Messages()); got != 0 {
		t.Fatalf("released %d records before the derived record arrived", got)
	}

	if err := node.Push(derived("g1;g2", "fam")); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	msgs := sink.Messages()
	want := []string{"g1", "g2", "g1;g2"}
	if len(msgs) != len(want) {
		t.Fatalf("released %v, want %v", ids(msgs), want)
	}
	for i, id := range want {
		if ids(msgs)[i] != id {
			t.Fatalf("released %v, want %v", ids(msgs), want)
		}
	}
	d := msgs[2].(*reads.DuplexRead)
	if d.SplitCount != 3 || d.SubreadIndex != 2 {
		t.Errorf("derived tagged split=%d index=%d, want split=3 index=2",
			d.SplitCount, d.SubreadIndex)
	}
	for i := 0; i < 2; i++ {
		f := msgs[i].(*reads.SimplexRead)
		if f.SplitCount != 3 || f.SubreadIndex != i {
			t.Errorf("%s tagged split=%d index=%d, want split=3 index=%d",
				f.ID, f.SplitCount, f.SubreadIndex, i)
		}
	}
}

func TestTaggerKeepsSplitterIndicesOnOutOfOrderArrival(t *testing.T) {
	node, sink := newTestTagger(t)

	// The second fragment by splitter index arrives first. Release must
	// restore index order and leave each fragment's own index untouched.
	if err := node.Push(fragment("f-second", "fam", 1, 2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := node.Push(fragment("f-first", "fam", 0, 2, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	msgs := sink.Messages()
	if got := ids(msgs); len(got) != 2 || got[0] != "f-first" || got[1] != "f-second" {
		t.Fatalf("released %v, want [f-first f-second]", got)
	}
	for i, m := range msgs {
		f := m.(*reads.SimplexRead)
		if f.SubreadIndex != i {
			t.Errorf("%s released with subread index %d, want %d", f.ID, f.SubreadIndex, i)
		}
		if f.SplitCount != 2 {
			t.Errorf("%s tagged split=%d, want 2", f.ID, f.SplitCount)
		}
	}
}

func TestTaggerBuffersEarlyDerivedRecord(t *testing.T) {
	node, sink := newTestTagger(t)

	// The duplex record outruns both fragments.
	if err := node.Push(derived("h1;h2", "fam")); err != nil {
		t.Fatal(err)
	}
	if err := node.Push(fragment("h1", "fam", 0, 2, 1)); err != nil {
		t.Fatal(err)
	}
	if err := node.Push(fragment("h2", "fam", 1, 2, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	msgs := sink.Messages()
	got := ids(msgs)
	want := []string{"h1", "h2", "h1;h2"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("released %v, want %v", got, want)
		}
	}
}

func TestTaggerForwardsUnsplitReadImmediately(t *testing.T) {
	node, sink := newTestTagger(t)

	if err := node.Push(fragment("solo", "", 0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	msgs := sink.Messages()
	if len(msgs) != 1 || msgs[0].(*reads.SimplexRead).ID != "solo" {
		t.Fatalf("unsplit read not forwarded: %v", ids(msgs))
	}
	if node.Buffered() != 0 {
		t.Error("unsplit read left family state behind")
	}
}

func TestTaggerKeepsIncompleteFamilyBuffered(t *testing.T) {
	node, sink := newTestTagger(t)

	// Family never completes: one of two fragments missing.
	if err := node.Push(fragment("i1", "fam", 0, 2, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	if got := len(sink.Messages()); got != 0 {
		t.Errorf("incomplete family released %d records", got)
	}
	if node.Buffered() != 1 {
		t.Errorf("Buffered = %d, want 1", node.Buffered())
	}
}

func TestTaggerReleasesEachFamilyOnce(t *testing.T) {
	sink := pipeline.NewCollector()
	node, err := NewTaggerNode(TaggerConfig{Sink: sink, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	node.Start()

	const families = 50
	for i := 0; i < families; i++ {
		tag := fmt.Sprintf("fam%d", i)
		if err := node.Push(derived(fmt.Sprintf("a%d;b%d", i, i), tag)); err != nil {
			t.Fatal(err)
		}
		if err := node.Push(fragment(fmt.Sprintf("a%d", i), tag, 0, 2, 1)); err != nil {
			t.Fatal(err)
		}
		if err := node.Push(fragment(fmt.Sprintf("b%d", i), tag, 1, 2, 0)); err != nil {
			t.Fatal(err)
		}
	}
	node.Terminate()

	msgs := sink.Messages()
	if len(msgs) != families*3 {
		t.Fatalf("released %d records, want %d", len(msgs), families*3)
	}
	seen := make(map[string]int)
	for _, id := range ids(msgs) {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("record %q released %d times", id, n)
		}
	}
	if node.Buffered() != 0 {
		t.Errorf("%d families still buffered", node.Buffered())
	}
}

func TestTaggerRestart(t *testing.T) {
	node, sink := newTestTagger(t)

	if err := node.Push(fragment("r1", "fam", 0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()
	sink.Restart()
	node.Restart()

	if err := node.Push(fragment("r2", "fam2", 0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	node.Terminate()

	if got := len(sink.Messages()); got != 2 {
		t.Errorf("collected %d records across restart, want 2", got)
	}
}

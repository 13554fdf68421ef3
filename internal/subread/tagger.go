// Package subread synchronizes the fragments of a split read with the
// duplex records derived from them, releasing each family as one atomic
// batch with final split metadata.
package subread

import (
	"errors"
	"sort"
	"sync"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

type familyPhase int

const (
	collectingFragments familyPhase = iota
	collectingDerived
)

// family is the per-tag buffer. expected is only meaningful once the
// fragment set is complete and the phase is collectingDerived.
type family struct {
	phase     familyPhase
	fragments []*reads.SimplexRead
	derived   []*reads.DuplexRead
	expected  int
}

// TaggerConfig configures a TaggerNode.
type TaggerConfig struct {
	Sink      pipeline.Sink
	Workers   int
	QueueSize int
}

// TaggerNode buffers split fragments per family tag until the declared
// split count is met, then waits for the derived duplex records the
// fragments announced. A complete family is released exactly once: the
// fragments ordered by their splitter-assigned subread index, then the
// derived records in arrival order with fresh indices after the fragments,
// every record re-tagged with the final family size. Families that never
// complete stay buffered until shutdown.
type TaggerNode struct {
	*pipeline.Node

	mu       sync.Mutex
	families map[string]*family

	// dirty feeds the single dispatcher goroutine one tag per arrival that
	// may have made a family ready. Recreated on every start.
	dirty chan string
	done  chan struct{}
}

func NewTaggerNode(cfg TaggerConfig) (*TaggerNode, error) {
	if cfg.Sink == nil {
		return nil, errors.New("subread: tagger needs a sink")
	}
	t := &TaggerNode{families: make(map[string]*family)}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "subread-tagger",
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Sink:      cfg.Sink,
		Handle:    t.handle,
		OnStart:   t.startDispatcher,
		OnDrained: t.stopDispatcher,
	})
	if err != nil {
		return nil, err
	}
	t.Node = n
	return t, nil
}

func (t *TaggerNode) startDispatcher() {
	t.dirty = make(chan string, 1024)
	t.done = make(chan struct{})
	go t.dispatch(t.dirty, t.done)
}

// stopDispatcher runs after the input queue has drained and every worker
// has finished, so nothing can send on dirty anymore. The dispatcher
// flushes ready families before done closes, which keeps all emission
// ahead of downstream termination.
func (t *TaggerNode) stopDispatcher() {
	close(t.dirty)
	<-t.done
}

func (t *TaggerNode) handle(msg pipeline.Message) {
	switch r := msg.(type) {
	case *reads.SimplexRead:
		if r.SplitCount == 1 && r.DuplexCandidates == 0 {
			// Single-fragment family with nothing derived pending.
			t.Forward(r)
			return
		}
		if t.addFragment(r) {
			t.dirty <- r.FamilyTag
		}
	case *reads.DuplexRead:
		t.addDerived(r)
		t.dirty <- r.FamilyTag
	default:
		t.DiscardUnexpected(msg)
	}
}

// addFragment buffers a fragment and reports whether its arrival completed
// the fragment set, which is the only fragment event worth waking the
// dispatcher for.
func (t *TaggerNode) addFragment(r *reads.SimplexRead) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fam := t.family(r.FamilyTag)
	fam.fragments = append(fam.fragments, r)
	if fam.phase != collectingFragments || len(fam.fragments) < r.SplitCount {
		return false
	}
	expected := 0
	for _, f := range fam.fragments {
		expected += f.DuplexCandidates
	}
	fam.phase = collectingDerived
	fam.expected = expected
	return true
}

// addDerived buffers a derived record under its family tag regardless of
// phase: a duplex read may outrun the fragments it came from, and simply
// waits for the fragment set to complete.
func (t *TaggerNode) addDerived(r *reads.DuplexRead) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fam := t.family(r.FamilyTag)
	fam.derived = append(fam.derived, r)
}

func (t *TaggerNode) family(tag string) *family {
	fam, ok := t.families[tag]
	if !ok {
		fam = &family{}
		t.families[tag] = fam
	}
	return fam
}

func (t *TaggerNode) dispatch(dirty chan string, done chan struct{}) {
	defer close(done)
	for tag := range dirty {
		fragments, derived, ok := t.takeIfReady(tag)
		if !ok {
			continue
		}
		// Forwarding happens outside the lock, fragments first, both sets
		// re-tagged with the final family size. Fragments keep the subread
		// index the splitter assigned; arrival order under a multi-worker
		// upstream is not meaningful, so emission sorts on that index.
		total := len(fragments) + len(derived)
		sort.Slice(fragments, func(a, b int) bool {
			return fragments[a].SubreadIndex < fragments[b].SubreadIndex
		})
		for _, f := range fragments {
			f.SplitCount = total
			t.Forward(f)
		}
		for i, d := range derived {
			d.SplitCount = total
			d.SubreadIndex = len(fragments) + i
			t.Forward(d)
		}
	}
}

// takeIfReady atomically extracts and deletes the family when it is ready
// for release, guaranteeing exactly-once emission per tag.
func (t *TaggerNode) takeIfReady(tag string) ([]*reads.SimplexRead, []*reads.DuplexRead, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fam, ok := t.families[tag]
	if !ok || fam.phase != collectingDerived || len(fam.derived) != fam.expected {
		return nil, nil, false
	}
	delete(t.families, tag)
	return fam.fragments, fam.derived, true
}

// Buffered reports how many incomplete families are currently held.
func (t *TaggerNode) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.families)
}

package duplex

import (
	"errors"
	"strings"
	"sync"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// TaggingConfig configures a TaggingNode.
type TaggingConfig struct {
	Sink      pipeline.Sink
	Workers   int
	QueueSize int
}

// TaggingNode confirms duplex-parent flags. A simplex read marked as a
// duplex parent is held until a duplex record naming it as a source has
// passed through; once confirmed it is released with the flag intact. At
// drain, parents that were never confirmed are released with the flag
// cleared, since no duplex read was actually derived from them.
type TaggingNode struct {
	*pipeline.Node

	mu        sync.Mutex
	confirmed map[string]bool
	pending   map[string]*reads.SimplexRead
}

func NewTaggingNode(cfg TaggingConfig) (*TaggingNode, error) {
	if cfg.Sink == nil {
		return nil, errors.New("duplex: tagging node needs a sink")
	}
	t := &TaggingNode{
		confirmed: make(map[string]bool),
		pending:   make(map[string]*reads.SimplexRead),
	}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "duplex-tagging",
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Sink:      cfg.Sink,
		Handle:    t.handle,
		OnDrained: t.flush,
	})
	if err != nil {
		return nil, err
	}
	t.Node = n
	return t, nil
}

func (t *TaggingNode) handle(msg pipeline.Message) {
	switch r := msg.(type) {
	case *reads.DuplexRead:
		released := t.confirm(r.ID)
		t.Forward(r)
		for _, p := range released {
			t.Forward(p)
		}
	case *reads.SimplexRead:
		if !r.IsDuplexParent {
			t.Forward(r)
			return
		}
		if t.admit(r) {
			t.Forward(r)
		}
	default:
		t.DiscardUnexpected(msg)
	}
}

// confirm marks both source reads of a duplex id as genuine parents and
// returns any that were already parked waiting for confirmation.
func (t *TaggingNode) confirm(duplexID string) []*reads.SimplexRead {
	var released []*reads.SimplexRead
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, parent := range strings.Split(duplexID, ";") {
		t.confirmed[parent] = true
		if p, ok := t.pending[parent]; ok {
			delete(t.pending, parent)
			released = append(released, p)
		}
	}
	return released
}

// admit reports whether a parent-flagged read may pass now; if not it is
// parked until confirmed or flushed.
func (t *TaggingNode) admit(r *reads.SimplexRead) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.confirmed[r.ID] {
		return true
	}
	t.pending[r.ID] = r
	return false
}

func (t *TaggingNode) flush() {
	t.mu.Lock()
	parked := make([]*reads.SimplexRead, 0, len(t.pending))
	for id, p := range t.pending {
		delete(t.pending, id)
		parked = append(parked, p)
	}
	t.mu.Unlock()
	for _, p := range parked {
		p.IsDuplexParent = false
		t.Forward(p)
	}
}

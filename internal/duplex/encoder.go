package duplex

import (
	"errors"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// EncoderConfig configures an EncoderNode. Zero values get defaults, except
// Partners and Sink which are required.
type EncoderConfig struct {
	Partners  *PartnerMap
	Sink      pipeline.Sink
	Stride    int // fallback decode stride for records dumped without one
	Workers   int
	QueueSize int
}

// EncoderNode consumes simplex reads, holds the first fragment of each
// declared pair until its partner arrives, and forwards the fused duplex
// record downstream. Reads outside the partner map, and pairs the encoder
// rejects, are dropped without comment.
type EncoderNode struct {
	*pipeline.Node

	partners *PartnerMap
	cache    *pendingCache
	stride   int
}

func NewEncoderNode(cfg EncoderConfig) (*EncoderNode, error) {
	if cfg.Partners == nil {
		return nil, errors.New("duplex: encoder needs a partner map")
	}
	if cfg.Sink == nil {
		return nil, errors.New("duplex: encoder needs a sink")
	}
	if cfg.Stride < 1 {
		cfg.Stride = DefaultStride
	}
	e := &EncoderNode{
		partners: cfg.Partners,
		cache:    newPendingCache(),
		stride:   cfg.Stride,
	}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "stereo-encoder",
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Sink:      cfg.Sink,
		Handle:    e.handle,
	})
	if err != nil {
		return nil, err
	}
	e.Node = n
	return e, nil
}

func (e *EncoderNode) handle(msg pipeline.Message) {
	r, ok := msg.(*reads.SimplexRead)
	if !ok {
		e.DiscardUnexpected(msg)
		return
	}
	partnerID, isPrimary, ok := e.partners.Partner(r.ID)
	if !ok {
		return
	}
	partner, ready := e.cache.takeOrStore(partnerID, r)
	if !ready {
		return
	}
	primary, secondary := r, partner
	if !isPrimary {
		primary, secondary = partner, r
	}
	enc := Encode(primary, secondary, e.stride)
	if enc == nil {
		// Unencodable pair. Expected for divergent fragments.
		return
	}
	e.Forward(enc)
}

// Pending reports how many reads are parked waiting for a partner.
func (e *EncoderNode) Pending() int {
	return e.cache.size()
}

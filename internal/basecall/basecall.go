// Package basecall is the boundary to the decoding model. The model's
// numerics live behind the Runner interface; this package only moves reads
// through it.
package basecall

import (
	"errors"

	"github.com/strandline-data/duplex.report/internal/monitoring"
	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// Call is one model output: the decoded sequence with per-base qualities
// and the move table mapping bases back onto the signal.
type Call struct {
	Seq     []byte
	Qstring []byte
	Moves   []uint8
	Stride  int
}

// Runner is an opaque forward pass over raw or stereo-encoded signal.
type Runner interface {
	CallSimplex(signal []float32) (Call, error)
	CallDuplex(features *reads.FeatureBuffer) (Call, error)
}

// Config configures a CallerNode. A nil Runner puts the node in
// pass-through mode for dumps decoded upstream: simplex reads must already
// carry a sequence, and duplex records travel untouched since their
// consensus decode happens out of process.
type Config struct {
	Runner    Runner
	Sink      pipeline.Sink
	Workers   int
	QueueSize int
}

// CallerNode runs each read through the model and forwards it with the
// decoded fields populated. Reads the model rejects are dropped with a log
// line; a failed call is read-local, never pipeline-fatal. Without a model
// the node still guards the graph: a signal-only read that nothing can
// decode is dropped instead of flowing downstream.
type CallerNode struct {
	*pipeline.Node
	runner Runner
}

func NewCallerNode(cfg Config) (*CallerNode, error) {
	if cfg.Sink == nil {
		return nil, errors.New("basecall: caller needs a sink")
	}
	c := &CallerNode{runner: cfg.Runner}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "basecaller",
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Sink:      cfg.Sink,
		Handle:    c.handle,
	})
	if err != nil {
		return nil, err
	}
	c.Node = n
	return c, nil
}

func (c *CallerNode) handle(msg pipeline.Message) {
	switch r := msg.(type) {
	case *reads.SimplexRead:
		if c.runner == nil {
			if len(r.Seq) == 0 {
				monitoring.Logf("basecall: read %s carries no decode and no model is loaded", r.ID)
				return
			}
			c.Forward(r)
			return
		}
		call, err := c.runner.CallSimplex(r.Signal)
		if err != nil {
			monitoring.Logf("basecall: read %s: %v", r.ID, err)
			return
		}
		r.Seq = call.Seq
		r.Qstring = call.Qstring
		r.Moves = call.Moves
		r.ModelStride = call.Stride
		c.Forward(r)
	case *reads.DuplexRead:
		if c.runner == nil {
			c.Forward(r)
			return
		}
		call, err := c.runner.CallDuplex(r.Features)
		if err != nil {
			monitoring.Logf("basecall: duplex read %s: %v", r.ID, err)
			return
		}
		r.Seq = call.Seq
		r.Qstring = call.Qstring
		r.Moves = call.Moves
		r.ModelStride = call.Stride
		c.Forward(r)
	default:
		c.DiscardUnexpected(msg)
	}
}

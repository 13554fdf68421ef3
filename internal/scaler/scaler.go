// Package scaler normalises raw signal before basecalling using a
// quantile shift/scale estimated per read.
package scaler

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

const (
	quantileLow  = 0.2
	quantileHigh = 0.9

	shiftWeight = 0.51
	scaleWeight = 0.53
	minShift    = 10.0
	minScale    = 1.0
)

// Params is a per-read normalisation estimate: normalised = (x-Shift)/Scale.
type Params struct {
	Shift float32
	Scale float32
}

// Estimate derives shift and scale from the signal's 20th and 90th
// percentiles, clamped so degenerate reads cannot blow the scale up.
func Estimate(signal []float32) Params {
	if len(signal) == 0 {
		return Params{Shift: minShift, Scale: minScale}
	}
	sorted := make([]float64, len(signal))
	for i, v := range signal {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)
	qa := stat.Quantile(quantileLow, stat.Empirical, sorted, nil)
	qb := stat.Quantile(quantileHigh, stat.Empirical, sorted, nil)

	shift := shiftWeight * (qa + qb)
	if shift < minShift {
		shift = minShift
	}
	scale := scaleWeight * (qb - qa)
	if scale < minScale {
		scale = minScale
	}
	return Params{Shift: float32(shift), Scale: float32(scale)}
}

// Apply normalises the signal in place.
func Apply(signal []float32, p Params) {
	for i, v := range signal {
		signal[i] = (v - p.Shift) / p.Scale
	}
}

// Config configures a Node.
type Config struct {
	Sink      pipeline.Sink
	Workers   int
	QueueSize int
}

// Node normalises every simplex read passing through it. The worker owns
// the read exclusively, so the signal is rewritten in place.
type Node struct {
	*pipeline.Node
}

func NewNode(cfg Config) (*Node, error) {
	if cfg.Sink == nil {
		return nil, errors.New("scaler: node needs a sink")
	}
	s := &Node{}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "scaler",
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Sink:      cfg.Sink,
		Handle:    s.handle,
	})
	if err != nil {
		return nil, err
	}
	s.Node = n
	return s, nil
}

func (s *Node) handle(msg pipeline.Message) {
	r, ok := msg.(*reads.SimplexRead)
	if !ok {
		s.DiscardUnexpected(msg)
		return
	}
	Apply(r.Signal, Estimate(r.Signal))
	s.Forward(r)
}

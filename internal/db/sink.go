package db

import (
	"errors"

	"github.com/strandline-data/duplex.report/internal/monitoring"
	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// SummarySinkConfig configures a SummarySink.
type SummarySinkConfig struct {
	DB        *DB
	RunID     string
	Next      pipeline.Sink // optional passthrough, e.g. an output writer
	QueueSize int
}

// SummarySink is a pipeline node that persists a summary row for every
// released read and optionally forwards the read on. It runs a single
// worker so writes hit sqlite serially.
type SummarySink struct {
	*pipeline.Node
	db    *DB
	runID string
}

func NewSummarySink(cfg SummarySinkConfig) (*SummarySink, error) {
	if cfg.DB == nil {
		return nil, errors.New("db: summary sink needs an open database")
	}
	if cfg.RunID == "" {
		return nil, errors.New("db: summary sink needs a run id")
	}
	s := &SummarySink{db: cfg.DB, runID: cfg.RunID}
	n, err := pipeline.NewNode(pipeline.NodeConfig{
		Name:      "summary-sink",
		QueueSize: cfg.QueueSize,
		Workers:   1,
		Sink:      cfg.Next,
		Handle:    s.handle,
	})
	if err != nil {
		return nil, err
	}
	s.Node = n
	return s, nil
}

func (s *SummarySink) handle(msg pipeline.Message) {
	var sum ReadSummary
	switch r := msg.(type) {
	case *reads.SimplexRead:
		sum = summarize(&r.ReadCommon)
	case *reads.DuplexRead:
		sum = summarize(&r.ReadCommon)
		if r.Features != nil {
			sum.SignalLength = r.Features.Cols()
		}
	default:
		s.DiscardUnexpected(msg)
		return
	}
	sum.RunID = s.runID
	if err := s.db.SaveSummary(sum); err != nil {
		monitoring.Logf("db: %v", err)
	}
	s.Forward(msg)
}

func summarize(rc *reads.ReadCommon) ReadSummary {
	return ReadSummary{
		ReadID:       rc.ID,
		IsDuplex:     rc.IsDuplex,
		SeqLength:    len(rc.Seq),
		SignalLength: len(rc.Signal),
		MeanQScore:   reads.MeanQScore(rc.Qstring),
		FamilyTag:    rc.FamilyTag,
		SplitCount:   rc.SplitCount,
		SubreadIndex: rc.SubreadIndex,
	}
}

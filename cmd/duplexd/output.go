package main

import (
	"encoding/json"
	"io"

	"github.com/strandline-data/duplex.report/internal/monitoring"
	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// readOut is the JSONL record emitted for every read leaving the pipeline,
// with the synchronizer's final family metadata.
type readOut struct {
	ID             string  `json:"id"`
	IsDuplex       bool    `json:"is_duplex,omitempty"`
	IsDuplexParent bool    `json:"is_duplex_parent,omitempty"`
	SeqLength      int     `json:"seq_length"`
	MeanQScore     float64 `json:"mean_qscore"`
	FamilyTag      string  `json:"family_tag,omitempty"`
	SplitCount     int     `json:"split_count"`
	SubreadIndex   int     `json:"subread_index"`
	FeatureCols    int     `json:"feature_cols,omitempty"`
}

// newWriterNode builds the terminal node serialising released reads to w.
// Single worker: output order within the node is write order.
func newWriterNode(w io.Writer) (*pipeline.Node, error) {
	enc := json.NewEncoder(w)
	return pipeline.NewNode(pipeline.NodeConfig{
		Name:    "jsonl-writer",
		Workers: 1,
		Handle: func(msg pipeline.Message) {
			var out readOut
			switch r := msg.(type) {
			case *reads.SimplexRead:
				out = summarizeOut(&r.ReadCommon)
			case *reads.DuplexRead:
				out = summarizeOut(&r.ReadCommon)
				if r.Features != nil {
					out.FeatureCols = r.Features.Cols()
				}
			default:
				return
			}
			if err := enc.Encode(out); err != nil {
				monitoring.Logf("jsonl-writer: %v", err)
			}
		},
	})
}

func summarizeOut(rc *reads.ReadCommon) readOut {
	return readOut{
		ID:             rc.ID,
		IsDuplex:       rc.IsDuplex,
		IsDuplexParent: rc.IsDuplexParent,
		SeqLength:      len(rc.Seq),
		MeanQScore:     reads.MeanQScore(rc.Qstring),
		FamilyTag:      rc.FamilyTag,
		SplitCount:     rc.SplitCount,
		SubreadIndex:   rc.SubreadIndex,
	}
}

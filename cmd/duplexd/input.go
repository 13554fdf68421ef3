package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/strandline-data/duplex.report/internal/pipeline"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// readDump is one line of the JSONL read dump produced by the decoding
// stage upstream of this tool.
type readDump struct {
	ID               string    `json:"id"`
	Signal           []float32 `json:"signal"`
	Seq              string    `json:"seq"`
	Qstring          string    `json:"qstring"`
	Moves            []uint8   `json:"moves"`
	Stride           int       `json:"stride"`
	IsDuplexParent   bool      `json:"is_duplex_parent,omitempty"`
	FamilyTag        string    `json:"family_tag,omitempty"`
	SplitCount       int       `json:"split_count,omitempty"`
	SubreadIndex     int       `json:"subread_index,omitempty"`
	DuplexCandidates int       `json:"duplex_candidates,omitempty"`
}

func (d *readDump) toRead() (*reads.SimplexRead, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("read dump without an id")
	}
	r := &reads.SimplexRead{}
	r.ID = d.ID
	r.Signal = d.Signal
	r.Seq = []byte(d.Seq)
	r.Qstring = []byte(d.Qstring)
	r.Moves = d.Moves
	r.ModelStride = d.Stride
	r.IsDuplexParent = d.IsDuplexParent
	r.FamilyTag = d.FamilyTag
	r.SplitCount = d.SplitCount
	if r.SplitCount == 0 {
		r.SplitCount = 1
	}
	r.SubreadIndex = d.SubreadIndex
	r.DuplexCandidates = d.DuplexCandidates
	return r, nil
}

// feedReads pushes every read in the JSONL stream into the pipeline entry.
// Malformed lines abort the feed: the dump is machine-written, so a parse
// failure means the input is the wrong file. progress, when non-nil, is
// incremented per pushed read so the progress reporter can watch the feed
// live.
func feedReads(in io.Reader, sink pipeline.Sink, progress *atomic.Int64) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	line := 0
	pushed := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var dump readDump
		if err := json.Unmarshal(text, &dump); err != nil {
			return pushed, fmt.Errorf("reads line %d: %w", line, err)
		}
		r, err := dump.toRead()
		if err != nil {
			return pushed, fmt.Errorf("reads line %d: %w", line, err)
		}
		if err := sink.Push(r); err != nil {
			return pushed, fmt.Errorf("reads line %d: %w", line, err)
		}
		pushed++
		if progress != nil {
			progress.Add(1)
		}
	}
	return pushed, scanner.Err()
}

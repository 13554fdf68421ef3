// Package reads defines the read-record variants that flow through the
// pipeline, together with the small sequence/signal primitives shared by
// the processing nodes.
package reads

// ReadCommon carries the fields shared by every read variant.
type ReadCommon struct {
	// ID is the unique read identifier. Duplex reads concatenate the ids of
	// both parents separated by ";".
	ID string

	// Signal is the raw instrument signal, one fixed-width sample per entry.
	Signal []float32

	// Seq is the decoded base sequence over the A/C/G/T alphabet.
	Seq []byte

	// Qstring holds one phred+33 quality character per decoded base.
	Qstring []byte

	// Moves marks, per decode step at ModelStride samples each, whether that
	// signal block produced a new base (1) or extended the previous one (0).
	Moves []uint8

	// ModelStride is the number of raw samples per decode step.
	ModelStride int

	IsDuplex       bool
	IsDuplexParent bool

	// FamilyTag groups all fragments split from one original read, together
	// with any duplex reads derived from pairs of those fragments.
	FamilyTag string

	// SplitCount is the declared number of fragments in the family. It is
	// only authoritative once the read leaves the subread tagger, which
	// recomputes it to include derived duplex reads.
	SplitCount int

	// SubreadIndex is the read's position within its family. Like
	// SplitCount it is finalised by the subread tagger.
	SubreadIndex int

	// DuplexCandidates is the number of duplex reads this fragment may
	// still produce downstream.
	DuplexCandidates int
}

// SimplexRead is a single-pass read record.
type SimplexRead struct {
	ReadCommon
}

// DuplexRead is the consensus record fused from a primary/secondary read
// pair. Its signal is the multi-channel feature encoding rather than a raw
// sample stream.
type DuplexRead struct {
	ReadCommon

	// Features is the stereo feature encoding, one row per channel.
	Features *FeatureBuffer
}

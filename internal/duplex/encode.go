package duplex

import (
	"github.com/strandline-data/duplex.report/internal/align"
	"github.com/strandline-data/duplex.report/internal/reads"
)

// Feature channel layout of the stereo encoding.
const (
	NumFeatures = 13

	featPrimarySignal   = 0
	featSecondarySignal = 1
	featPrimaryBase     = 2 // 4 one-hot channels, A/C/G/T
	featSecondaryBase   = 6 // 4 one-hot channels, A/C/G/T
	featMoveTable       = 10
	featPrimaryQScore   = 11
	featSecondaryQScore = 12
)

const (
	// maxLengthDeltaRatio gates pairing on sequence length agreement.
	maxLengthDeltaRatio = 0.05
	// trimMargin is the number of alignment columns discarded at each end.
	trimMargin = 11
	// minTrimmedSpan is the minimum surviving alignment length worth fusing.
	minTrimmedSpan = 200
	// Q scores are rescaled from phred+33 into a small numeric range.
	qScoreOffset = 33
	qScoreScale  = 90.0
	// Signal channels are pre-filled with this fraction of the minimum raw
	// value so padding is distinguishable from real samples.
	padFraction = 0.8

	// DefaultStride is the decode stride assumed when a node is not told
	// the model's stride explicitly.
	DefaultStride = 5
)

// Encode fuses a primary/secondary read pair into the 13-channel consensus
// record. Each read's move table is expanded at its own ModelStride;
// fallbackStride covers records dumped without one. It returns nil when the
// pair is not encodable — length mismatch beyond the gate, or too little
// trimmed alignment overlap — which is an expected outcome, not an error.
func Encode(primary, secondary *reads.SimplexRead, fallbackStride int) *reads.DuplexRead {
	if fallbackStride < 1 {
		fallbackStride = DefaultStride
	}
	if len(primary.Seq) == 0 || len(secondary.Seq) == 0 ||
		len(primary.Signal) == 0 || len(secondary.Signal) == 0 ||
		len(primary.Moves) == 0 || len(secondary.Moves) == 0 {
		return nil
	}

	// Length-ratio gate.
	pLen, sLen := float64(len(primary.Seq)), float64(len(secondary.Seq))
	longer, shorter := pLen, sLen
	if sLen > pLen {
		longer, shorter = sLen, pLen
	}
	if (longer-shorter)/longer > maxLengthDeltaRatio {
		return nil
	}

	// Express the secondary read in the primary's coordinate direction.
	secondarySeq := reads.RevComp(secondary.Seq)
	secondaryQual := reads.ReverseBytes(secondary.Qstring)
	secondarySignal := reverseFloats(secondary.Signal)

	res := align.Global(primary.Seq, secondarySeq)
	tr := align.Trim(res.Ops, trimMargin, res.PrimaryStart, res.SecondaryStart)
	if tr.SpanLen() <= minTrimmedSpan {
		return nil
	}

	// Per-sample move tables; the secondary's is flipped to match its
	// now-reversed signal order.
	primaryMoves := reads.ExpandMoves(primary.Moves, strideOf(primary, fallbackStride), len(primary.Signal))
	secondaryMoves := flipExpandedMoves(reads.ExpandMoves(secondary.Moves, strideOf(secondary, fallbackStride), len(secondary.Signal)))

	// Advance each signal cursor to the block of the first surviving base.
	primarySig, ok := signalCursorFor(primaryMoves, tr.PrimaryCursor)
	if !ok {
		return nil
	}
	secondarySig, ok := signalCursorFor(secondaryMoves, tr.SecondaryCursor)
	if !ok {
		return nil
	}

	pad := padFraction * min32(minSample(primary.Signal), minSample(secondarySignal))

	maxSize := len(primary.Signal) + len(secondarySignal)
	buf := reads.NewFeatureBuffer(NumFeatures, maxSize)
	buf.FillRow(featPrimarySignal, pad)
	buf.FillRow(featSecondarySignal, pad)

	primaryRow := buf.Row(featPrimarySignal)
	secondaryRow := buf.Row(featSecondarySignal)

	cursor := 0 // column into the stereo-encoded output
	primarySeqCursor := tr.PrimaryCursor
	secondarySeqCursor := tr.SecondaryCursor

	for col := tr.Start; col < tr.End; col++ {
		op := res.Ops[col]
		primarySegLen := 0
		secondarySegLen := 0

		// A gap in the primary leaves its channels padded for this column;
		// otherwise copy the whole signal block of the current base.
		if op != align.OpInsertSecondary {
			if primarySig >= len(primary.Signal) {
				break
			}
			primaryRow[cursor] = primary.Signal[primarySig]
			primarySegLen++
			primarySig++
			next := reads.NextBoundary(primaryMoves, primarySig)
			n := copy(primaryRow[cursor+primarySegLen:], primary.Signal[primarySig:next])
			primarySig += n
			primarySegLen += n
		}

		if op != align.OpInsertPrimary {
			if secondarySig >= len(secondarySignal) {
				break
			}
			secondaryRow[cursor] = secondarySignal[secondarySig]
			secondarySegLen++
			secondarySig++
			next := reads.NextBoundary(secondaryMoves, secondarySig)
			n := copy(secondaryRow[cursor+secondarySegLen:], secondarySignal[secondarySig:next])
			secondarySig += n
			secondarySegLen += n
		}

		segLen := primarySegLen
		if secondarySegLen > segLen {
			segLen = secondarySegLen
		}

		if op != align.OpInsertSecondary {
			if bi := reads.BaseIndex(primary.Seq[primarySeqCursor]); bi >= 0 {
				fillSpan(buf.Row(featPrimaryBase+bi), cursor, segLen, 1)
			}
			if primarySeqCursor < len(primary.Qstring) {
				fillSpan(buf.Row(featPrimaryQScore), cursor, segLen, qScoreValue(primary.Qstring[primarySeqCursor]))
			}
			primarySeqCursor++
		}

		if op != align.OpInsertPrimary {
			if bi := reads.BaseIndex(secondarySeq[secondarySeqCursor]); bi >= 0 {
				fillSpan(buf.Row(featSecondaryBase+bi), cursor, segLen, 1)
			}
			if secondarySeqCursor < len(secondaryQual) {
				fillSpan(buf.Row(featSecondaryQScore), cursor, segLen, qScoreValue(secondaryQual[secondarySeqCursor]))
			}
			secondarySeqCursor++
		}

		buf.Set(featMoveTable, cursor, 1)
		cursor += segLen
	}

	out := &reads.DuplexRead{Features: buf.Truncate(cursor)}
	out.ID = primary.ID + ";" + secondary.ID
	out.IsDuplex = true
	out.FamilyTag = primary.FamilyTag
	return out
}

func strideOf(r *reads.SimplexRead, fallback int) int {
	if r.ModelStride >= 1 {
		return r.ModelStride
	}
	return fallback
}

// signalCursorFor locates the signal sample index of the base at seqCursor:
// the position where the expanded move table has accumulated seqCursor+1
// boundaries.
func signalCursorFor(moves []uint8, seqCursor int) (int, bool) {
	cursor := 0
	seen := int(moves[0])
	for seen < seqCursor+1 {
		cursor++
		if cursor >= len(moves) {
			return 0, false
		}
		seen += int(moves[cursor])
	}
	return cursor, true
}

// flipExpandedMoves reverses a per-sample move table so it indexes a
// reversed signal: conceptually append a trailing boundary, reverse, and
// drop what was the leading boundary.
func flipExpandedMoves(moves []uint8) []uint8 {
	if len(moves) == 0 {
		return moves
	}
	out := make([]uint8, len(moves))
	out[0] = 1
	for i := 1; i < len(moves); i++ {
		out[i] = moves[len(moves)-i]
	}
	return out
}

func fillSpan(row []float32, from, n int, v float32) {
	for i := from; i < from+n && i < len(row); i++ {
		row[i] = v
	}
}

func qScoreValue(q byte) float32 {
	return float32(int(q)-qScoreOffset) / qScoreScale
}

func minSample(v []float32) float32 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func reverseFloats(v []float32) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[len(v)-1-i]
	}
	return out
}

package align

// Trimmed describes an alignment path after margin trimming: the half-open
// column range [Start, End) that survives, and the sequence cursor position
// of each side at the first surviving column.
type Trimmed struct {
	Start           int
	End             int
	PrimaryCursor   int
	SecondaryCursor int
}

// Trim cuts a fixed margin of columns off both ends of an alignment path to
// discard low-confidence edges, advancing the sequence cursors across the
// trimmed leading columns so they stay aligned with the first surviving
// column. primaryStart/secondaryStart seed the cursors (the path's start
// offsets from Result). If the path is shorter than two margins the
// returned range is empty (Start >= End).
func Trim(ops []Op, margin, primaryStart, secondaryStart int) Trimmed {
	tr := Trimmed{
		Start:           margin,
		End:             len(ops) - margin,
		PrimaryCursor:   primaryStart,
		SecondaryCursor: secondaryStart,
	}
	lead := margin
	if lead > len(ops) {
		lead = len(ops)
	}
	for _, op := range ops[:lead] {
		if op != OpInsertSecondary {
			tr.PrimaryCursor++
		}
		if op != OpInsertPrimary {
			tr.SecondaryCursor++
		}
	}
	return tr
}

// SpanLen reports the number of surviving columns, or 0 for an empty range.
func (t Trimmed) SpanLen() int {
	if t.End <= t.Start {
		return 0
	}
	return t.End - t.Start
}

package reads

// ExpandMoves converts a per-decode-step move table at the given stride to
// per-sample granularity by inserting stride-1 zero markers after every
// original marker, then truncates the result to exactly signalLen entries
// so the table and the signal buffer stay index-aligned.
func ExpandMoves(moves []uint8, stride, signalLen int) []uint8 {
	if stride < 1 {
		stride = 1
	}
	expanded := make([]uint8, 0, len(moves)*stride)
	for _, m := range moves {
		expanded = append(expanded, m)
		for j := 0; j < stride-1; j++ {
			expanded = append(expanded, 0)
		}
	}
	if len(expanded) > signalLen {
		expanded = expanded[:signalLen]
	}
	return expanded
}

// NextBoundary returns the index of the next decode boundary (the next 1
// marker) at or after from in an expanded move table, or len(moves) when no
// further boundary exists. This is the run-length scan used to advance a
// signal cursor to the samples of the next base.
func NextBoundary(moves []uint8, from int) int {
	for i := from; i < len(moves); i++ {
		if moves[i] != 0 {
			return i
		}
	}
	return len(moves)
}

// CountMoves returns the number of decode boundaries in a move table, which
// for a consistent record equals the decoded sequence length.
func CountMoves(moves []uint8) int {
	n := 0
	for _, m := range moves {
		if m != 0 {
			n++
		}
	}
	return n
}

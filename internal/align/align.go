// Package align implements the global edit-distance alignment used to pair
// up primary and secondary reads, producing the per-column operation path
// the consensus encoder walks.
package align

// Op classifies one column of an alignment path.
type Op uint8

const (
	// OpMatch: both sequences contribute the same base.
	OpMatch Op = iota
	// OpMismatch: both sequences contribute, with different bases.
	OpMismatch
	// OpInsertPrimary: the primary sequence contributes a base the
	// secondary lacks (gap in secondary).
	OpInsertPrimary
	// OpInsertSecondary: the secondary sequence contributes a base the
	// primary lacks (gap in primary).
	OpInsertSecondary
)

// Result is a global alignment of a primary against a secondary sequence.
// PrimaryStart/SecondaryStart are the sequence offsets of the first path
// column; for a global alignment both are zero, but consumers treat them as
// data so a windowed alignment can slot in without changes.
type Result struct {
	Ops            []Op
	Distance       int
	PrimaryStart   int
	SecondaryStart int
}

// Global computes a unit-cost global (Needleman-Wunsch) alignment of
// primary against secondary and returns the per-column operation path.
func Global(primary, secondary []byte) Result {
	n := len(primary)
	m := len(secondary)

	// Full score matrix; a two-row variant would save memory but the
	// traceback needs the whole thing anyway.
	cols := m + 1
	score := make([]int32, (n+1)*cols)
	for j := 1; j <= m; j++ {
		score[j] = int32(j)
	}
	for i := 1; i <= n; i++ {
		score[i*cols] = int32(i)
	}

	for i := 1; i <= n; i++ {
		row := score[i*cols:]
		prev := score[(i-1)*cols:]
		pb := primary[i-1]
		for j := 1; j <= m; j++ {
			sub := prev[j-1]
			if pb != secondary[j-1] {
				sub++
			}
			del := prev[j] + 1 // gap in secondary
			ins := row[j-1] + 1
			best := sub
			if del < best {
				best = del
			}
			if ins < best {
				best = ins
			}
			row[j] = best
		}
	}

	// Traceback, preferring diagonal moves so runs of matches stay
	// contiguous at the path level.
	ops := make([]Op, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		cur := score[i*cols+j]
		switch {
		case i > 0 && j > 0 && (score[(i-1)*cols+j-1] == cur && primary[i-1] == secondary[j-1]):
			ops = append(ops, OpMatch)
			i--
			j--
		case i > 0 && j > 0 && score[(i-1)*cols+j-1]+1 == cur && primary[i-1] != secondary[j-1]:
			ops = append(ops, OpMismatch)
			i--
			j--
		case i > 0 && score[(i-1)*cols+j]+1 == cur:
			ops = append(ops, OpInsertPrimary)
			i--
		default:
			ops = append(ops, OpInsertSecondary)
			j--
		}
	}
	// Reverse into forward order.
	for a, b := 0, len(ops)-1; a < b; a, b = a+1, b-1 {
		ops[a], ops[b] = ops[b], ops[a]
	}

	return Result{
		Ops:      ops,
		Distance: int(score[n*cols+m]),
	}
}

package reads

var complement [256]byte

func init() {
	complement['A'] = 'T'
	complement['C'] = 'G'
	complement['G'] = 'C'
	complement['T'] = 'A'
	complement['N'] = 'N'
}

// RevComp returns the reverse complement of seq. Bases outside the alphabet
// complement to 'N'.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return out
}

// ReverseBytes returns a reversed copy of b.
func ReverseBytes(b []byte) []byte {
	n := len(b)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = b[n-1-i]
	}
	return out
}

var baseIndex [256]int8

func init() {
	for i := range baseIndex {
		baseIndex[i] = -1
	}
	baseIndex['A'] = 0
	baseIndex['C'] = 1
	baseIndex['G'] = 2
	baseIndex['T'] = 3
}

// BaseIndex maps A,C,G,T to 0..3 and everything else to -1.
func BaseIndex(base byte) int {
	return int(baseIndex[base])
}

package reads

import "fmt"

// FeatureBuffer is a bounds-checked multi-channel sample buffer: rows are
// feature channels, columns are output sample positions. It replaces raw
// pointer walking in the encoding inner loop; Row exposes a channel as a
// plain slice for the hot path.
type FeatureBuffer struct {
	rows int
	cols int
	data []float32
}

// NewFeatureBuffer allocates a zeroed rows x cols buffer.
func NewFeatureBuffer(rows, cols int) *FeatureBuffer {
	if rows < 1 || cols < 0 {
		panic(fmt.Sprintf("reads: invalid feature buffer shape %dx%d", rows, cols))
	}
	return &FeatureBuffer{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// Rows returns the channel count.
func (b *FeatureBuffer) Rows() int { return b.rows }

// Cols returns the per-channel sample count.
func (b *FeatureBuffer) Cols() int { return b.cols }

// Row returns channel r as a slice sharing the buffer's storage.
func (b *FeatureBuffer) Row(r int) []float32 {
	return b.data[r*b.cols : (r+1)*b.cols]
}

// At returns the sample at channel r, column c.
func (b *FeatureBuffer) At(r, c int) float32 {
	return b.data[r*b.cols+c]
}

// Set stores v at channel r, column c.
func (b *FeatureBuffer) Set(r, c int, v float32) {
	b.data[r*b.cols+c] = v
}

// FillRow sets every sample of channel r to v.
func (b *FeatureBuffer) FillRow(r int, v float32) {
	row := b.Row(r)
	for i := range row {
		row[i] = v
	}
}

// Truncate returns a copy of the buffer cut to the first cols columns.
// The encoder over-allocates to the worst case and truncates to the final
// cursor position once the column walk is done.
func (b *FeatureBuffer) Truncate(cols int) *FeatureBuffer {
	if cols > b.cols {
		cols = b.cols
	}
	out := NewFeatureBuffer(b.rows, cols)
	for r := 0; r < b.rows; r++ {
		copy(out.Row(r), b.Row(r)[:cols])
	}
	return out
}

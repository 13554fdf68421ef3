package db

import (
	"fmt"
)

// ReadSummary is the per-read row persisted at the end of the pipeline.
type ReadSummary struct {
	ReadID       string
	RunID        string
	IsDuplex     bool
	SeqLength    int
	SignalLength int
	MeanQScore   float64
	FamilyTag    string
	SplitCount   int
	SubreadIndex int
}

// SaveSummary stores one read summary row.
func (db *DB) SaveSummary(s ReadSummary) error {
	_, err := db.Exec(`
		INSERT INTO read_summaries
			(read_id, run_id, is_duplex, seq_length, signal_length,
			 mean_qscore, family_tag, split_count, subread_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		s.ReadID, s.RunID, s.IsDuplex, s.SeqLength, s.SignalLength,
		s.MeanQScore, s.FamilyTag, s.SplitCount, s.SubreadIndex,
	)
	if err != nil {
		return fmt.Errorf("save summary for read %s: %w", s.ReadID, err)
	}
	return nil
}

// SummariesForRun returns every summary of a run, duplex reads included,
// ordered by read id.
func (db *DB) SummariesForRun(runID string) ([]ReadSummary, error) {
	rows, err := db.Query(`
		SELECT read_id, run_id, is_duplex, seq_length, signal_length,
		       mean_qscore, family_tag, split_count, subread_index
		FROM read_summaries WHERE run_id = ? ORDER BY read_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summaries for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []ReadSummary
	for rows.Next() {
		var s ReadSummary
		if err := rows.Scan(&s.ReadID, &s.RunID, &s.IsDuplex, &s.SeqLength,
			&s.SignalLength, &s.MeanQScore, &s.FamilyTag, &s.SplitCount,
			&s.SubreadIndex); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunCounts returns the simplex and duplex read counts of a run.
func (db *DB) RunCounts(runID string) (simplex, duplex int, err error) {
	err = db.QueryRow(`
		SELECT COUNT(*) FILTER (WHERE is_duplex = 0),
		       COUNT(*) FILTER (WHERE is_duplex = 1)
		FROM read_summaries WHERE run_id = ?`, runID).Scan(&simplex, &duplex)
	if err != nil {
		return 0, 0, fmt.Errorf("count reads for run %s: %w", runID, err)
	}
	return simplex, duplex, nil
}

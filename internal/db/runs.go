package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/strandline-data/duplex.report/internal/timeutil"
)

// RunStore manages run lifecycle records. Time comes from the injected
// clock so tests control timestamps.
type RunStore struct {
	db    *DB
	clock timeutil.Clock
}

func NewRunStore(db *DB, clock timeutil.Clock) *RunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db, clock: clock}
}

// StartRun inserts a new run row and returns its id.
func (s *RunStore) StartRun() (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		id, s.clock.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's completion time.
func (s *RunStore) FinishRun(runID string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ? WHERE run_id = ?`,
		s.clock.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roundup-pipeline-go/internal/models"
)

// RecordRun upserts the last completion time for a named process.
func (s *Service) RecordRun(ctx context.Context, process string, last time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertRun, process, last.UTC()); err != nil {
		return fmt.Errorf("failed to record run for %s: %w", process, err)
	}
	return nil
}

// GetRun returns the run record for a process, or nil when it never ran.
func (s *Service) GetRun(ctx context.Context, process string) (*models.Run, error) {
	var run models.Run
	err := s.db.QueryRowContext(ctx, queryGetRun, process).Scan(&run.Process, &run.Last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run for %s: %w", process, err)
	}
	return &run, nil
}

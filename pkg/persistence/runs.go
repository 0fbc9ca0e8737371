package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("persistence: not found")

// CreateExtractionRun inserts a new running ExtractionRun.
func (s *Store) CreateExtractionRun(ctx context.Context, r *models.ExtractionRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_runs (id, owning_user, owning_org, workspace, cutoff, counters, status, started_at, failures)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.OwningUser, r.OwningOrg, r.Workspace, r.Cutoff, marshalJSON(r.Counters), r.Status, r.StartedAt, marshalJSON(r.Failures))
	if err != nil {
		return fmt.Errorf("insert extraction run: %w", err)
	}
	return nil
}

// UpdateExtractionRunProgress overwrites the counters of an in-flight run
// without touching its status or completion time.
func (s *Store) UpdateExtractionRunProgress(ctx context.Context, id string, counters models.ExtractionCounters) error {
	_, err := s.db.ExecContext(ctx, `UPDATE extraction_runs SET counters = $2 WHERE id = $1`, id, marshalJSON(counters))
	if err != nil {
		return fmt.Errorf("update extraction run progress: %w", err)
	}
	return nil
}

// CompleteExtractionRun sets the run's terminal status, counters, failures
// and completed_at in one statement, satisfying the Universal Invariant.
func (s *Store) CompleteExtractionRun(ctx context.Context, id string, status models.RunStatus, counters models.ExtractionCounters, failures []string, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("persistence: CompleteExtractionRun requires a terminal status, got %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE extraction_runs
		SET status = $2, counters = $3, failures = $4, error_message = $5, completed_at = $6
		WHERE id = $1`,
		id, status, marshalJSON(counters), marshalJSON(failures), nullIfEmpty(errMsg), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete extraction run: %w", err)
	}
	return nil
}

// GetExtractionRun loads one ExtractionRun by id.
func (s *Store) GetExtractionRun(ctx context.Context, id string) (*models.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owning_user, owning_org, workspace, cutoff, counters, status, started_at, completed_at, error_message, failures
		FROM extraction_runs WHERE id = $1`, id)

	var r models.ExtractionRun
	var counters, failures []byte
	var errMsg sql.NullString
	if err := row.Scan(&r.ID, &r.OwningUser, &r.OwningOrg, &r.Workspace, &r.Cutoff, &counters, &r.Status, &r.StartedAt, &r.CompletedAt, &errMsg, &failures); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get extraction run: %w", err)
	}
	if err := unmarshalJSON(counters, &r.Counters); err != nil {
		return nil, fmt.Errorf("decode extraction run counters: %w", err)
	}
	if err := unmarshalJSON(failures, &r.Failures); err != nil {
		return nil, fmt.Errorf("decode extraction run failures: %w", err)
	}
	r.ErrorMessage = errMsg.String
	return &r, nil
}

// CreateConfigExtractionRun inserts a new running ConfigExtractionRun.
func (s *Store) CreateConfigExtractionRun(ctx context.Context, r *models.ConfigExtractionRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_extraction_runs (id, owning_user, owning_org, host, counters, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.OwningUser, r.OwningOrg, r.Host, marshalJSON(r.Counters), r.Status, r.StartedAt)
	if err != nil {
		return fmt.Errorf("insert config extraction run: %w", err)
	}
	return nil
}

// UpdateConfigExtractionRunProgress overwrites counters on an in-flight run.
func (s *Store) UpdateConfigExtractionRunProgress(ctx context.Context, id string, counters models.ExtractionCounters) error {
	_, err := s.db.ExecContext(ctx, `UPDATE config_extraction_runs SET counters = $2 WHERE id = $1`, id, marshalJSON(counters))
	if err != nil {
		return fmt.Errorf("update config extraction run progress: %w", err)
	}
	return nil
}

// CompleteConfigExtractionRun sets the run's terminal status/counters/completed_at.
func (s *Store) CompleteConfigExtractionRun(ctx context.Context, id string, status models.RunStatus, counters models.ExtractionCounters, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("persistence: CompleteConfigExtractionRun requires a terminal status, got %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE config_extraction_runs
		SET status = $2, counters = $3, error_message = $4, completed_at = $5
		WHERE id = $1`,
		id, status, marshalJSON(counters), nullIfEmpty(errMsg), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete config extraction run: %w", err)
	}
	return nil
}

// GetConfigExtractionRun loads one ConfigExtractionRun by id.
func (s *Store) GetConfigExtractionRun(ctx context.Context, id string) (*models.ConfigExtractionRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owning_user, owning_org, host, counters, status, started_at, completed_at, error_message
		FROM config_extraction_runs WHERE id = $1`, id)

	var r models.ConfigExtractionRun
	var counters []byte
	var errMsg sql.NullString
	if err := row.Scan(&r.ID, &r.OwningUser, &r.OwningOrg, &r.Host, &counters, &r.Status, &r.StartedAt, &r.CompletedAt, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get config extraction run: %w", err)
	}
	if err := unmarshalJSON(counters, &r.Counters); err != nil {
		return nil, fmt.Errorf("decode config extraction run counters: %w", err)
	}
	r.ErrorMessage = errMsg.String
	return &r, nil
}

// CreateConfluenceExtraction inserts a new running ConfluenceExtraction.
func (s *Store) CreateConfluenceExtraction(ctx context.Context, r *models.ConfluenceExtraction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO confluence_extractions (id, owning_user, owning_org, host, counters, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.OwningUser, r.OwningOrg, r.Host, marshalJSON(r.Counters), r.Status, r.StartedAt)
	if err != nil {
		return fmt.Errorf("insert confluence extraction: %w", err)
	}
	return nil
}

// CompleteConfluenceExtraction sets the run's terminal status/counters/completed_at.
func (s *Store) CompleteConfluenceExtraction(ctx context.Context, id string, status models.RunStatus, counters models.ExtractionCounters, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("persistence: CompleteConfluenceExtraction requires a terminal status, got %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE confluence_extractions
		SET status = $2, counters = $3, error_message = $4, completed_at = $5
		WHERE id = $1`,
		id, status, marshalJSON(counters), nullIfEmpty(errMsg), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete confluence extraction: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

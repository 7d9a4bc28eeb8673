package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

// ResultStore persists the terminal output of successful runs.
type ResultStore interface {
	Save(ctx context.Context, result *entity.FinalResult) error
	Get(ctx context.Context, taskID uuid.UUID) (*entity.FinalResult, error)
}

// PostgresResultStore stores each result as a JSONB document keyed by
// task id. A second insert for the same task is a conflict, not an
// overwrite: results are immutable once written.
type PostgresResultStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresResultStore(pool *pgxpool.Pool, log *slog.Logger) *PostgresResultStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresResultStore{pool: pool, log: log}
}

const resultsSchema = `
CREATE TABLE IF NOT EXISTS processing_results (
	task_id       UUID PRIMARY KEY,
	attempt_id    TEXT NOT NULL,
	filename      TEXT NOT NULL,
	quality_score DOUBLE PRECISION NOT NULL,
	result        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Migrate creates the results table if it does not exist.
func (s *PostgresResultStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, resultsSchema); err != nil {
		return fmt.Errorf("%w: migrate results: %v", common.ErrStorage, err)
	}
	return nil
}

func (s *PostgresResultStore) Save(ctx context.Context, result *entity.FinalResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encode result: %v", common.ErrStorage, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO processing_results (task_id, attempt_id, filename, quality_score, result)
		 VALUES ($1, $2, $3, $4, $5)`,
		result.TaskID, result.AttemptID, result.Filename, result.QualityScore, doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: task %s", common.ErrDuplicateTask, result.TaskID)
		}
		return fmt.Errorf("%w: save result: %v", common.ErrStorage, err)
	}

	s.log.Info("resultstore.saved", "task_id", result.TaskID, "quality_score", result.QualityScore)
	return nil
}

func (s *PostgresResultStore) Get(ctx context.Context, taskID uuid.UUID) (*entity.FinalResult, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM processing_results WHERE task_id = $1`, taskID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: result for task %s", common.ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load result: %v", common.ErrStorage, err)
	}

	var result entity.FinalResult
	if err := json.Unmarshal(doc, &result); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", common.ErrStorage, err)
	}
	return &result, nil
}

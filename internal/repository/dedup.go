package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

// TaskRecord is one row of the dedup index: the task currently owning
// a content hash, plus its lifecycle status and retry counter.
type TaskRecord struct {
	TaskID      uuid.UUID
	ContentHash string
	FilePath    string
	Status      constants.TaskStatus
	Attempt     int
	Metadata    entity.RunMetadata
	LastError   string
}

// DedupIndex maps content hashes to task records so resubmissions of
// the same document short-circuit instead of reprocessing.
type DedupIndex interface {
	// Lookup returns the record owning the hash, if any.
	Lookup(ctx context.Context, contentHash string) (*TaskRecord, error)
	// Register claims the hash for a new task.
	Register(ctx context.Context, rec TaskRecord) error
	// UpdateStatus moves a task through its lifecycle.
	UpdateStatus(ctx context.Context, taskID uuid.UUID, status constants.TaskStatus, attempt int, lastError string) error
	// GetTask returns the record for a task id.
	GetTask(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error)
}

// PostgresDedupIndex is the durable index used by the daemon.
type PostgresDedupIndex struct {
	pool *pgxpool.Pool
}

func NewPostgresDedupIndex(pool *pgxpool.Pool) *PostgresDedupIndex {
	return &PostgresDedupIndex{pool: pool}
}

const tasksSchema = `
CREATE TABLE IF NOT EXISTS processing_tasks (
	task_id        UUID PRIMARY KEY,
	content_hash   TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	status         TEXT NOT NULL,
	attempt        INT NOT NULL DEFAULT 0,
	uasg           TEXT NOT NULL DEFAULT '',
	numero_pregao  TEXT NOT NULL DEFAULT '',
	ano            INT NOT NULL DEFAULT 0,
	callback_url   TEXT NOT NULL DEFAULT '',
	last_error     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_tasks_active_content_hash
	ON processing_tasks (content_hash)
	WHERE status IN ('queued', 'processing', 'completed');`

func (d *PostgresDedupIndex) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, tasksSchema); err != nil {
		return fmt.Errorf("%w: migrate tasks: %v", common.ErrStorage, err)
	}
	return nil
}

func (d *PostgresDedupIndex) Lookup(ctx context.Context, contentHash string) (*TaskRecord, error) {
	rec, err := d.scanOne(ctx,
		`SELECT task_id, content_hash, file_path, status, attempt, uasg, numero_pregao, ano, callback_url, last_error
		 FROM processing_tasks
		 WHERE content_hash = $1 AND status IN ('queued', 'processing', 'completed')
		 ORDER BY updated_at DESC LIMIT 1`,
		contentHash,
	)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (d *PostgresDedupIndex) Register(ctx context.Context, rec TaskRecord) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO processing_tasks (task_id, content_hash, file_path, status, attempt, uasg, numero_pregao, ano, callback_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.TaskID, rec.ContentHash, rec.FilePath, rec.Status, rec.Attempt,
		rec.Metadata.UASG, rec.Metadata.NumeroPregao, rec.Metadata.Ano, rec.Metadata.CallbackURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: content hash %s already active", common.ErrDuplicateTask, rec.ContentHash)
		}
		return fmt.Errorf("%w: register task: %v", common.ErrStorage, err)
	}
	return nil
}

func (d *PostgresDedupIndex) UpdateStatus(ctx context.Context, taskID uuid.UUID, status constants.TaskStatus, attempt int, lastError string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE processing_tasks SET status = $2, attempt = $3, last_error = $4, updated_at = now() WHERE task_id = $1`,
		taskID, status, attempt, lastError,
	)
	if err != nil {
		return fmt.Errorf("%w: update task status: %v", common.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", common.ErrNotFound, taskID)
	}
	return nil
}

func (d *PostgresDedupIndex) GetTask(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error) {
	return d.scanOne(ctx,
		`SELECT task_id, content_hash, file_path, status, attempt, uasg, numero_pregao, ano, callback_url, last_error
		 FROM processing_tasks WHERE task_id = $1`,
		taskID,
	)
}

func (d *PostgresDedupIndex) scanOne(ctx context.Context, query string, args ...any) (*TaskRecord, error) {
	var rec TaskRecord
	err := d.pool.QueryRow(ctx, query, args...).Scan(
		&rec.TaskID, &rec.ContentHash, &rec.FilePath, &rec.Status, &rec.Attempt,
		&rec.Metadata.UASG, &rec.Metadata.NumeroPregao, &rec.Metadata.Ano, &rec.Metadata.CallbackURL,
		&rec.LastError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load task: %v", common.ErrStorage, err)
	}
	return &rec, nil
}

// MemoryDedupIndex backs one-shot CLI runs and tests.
type MemoryDedupIndex struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*TaskRecord
	byOrder []uuid.UUID
}

func NewMemoryDedupIndex() *MemoryDedupIndex {
	return &MemoryDedupIndex{byID: map[uuid.UUID]*TaskRecord{}}
}

func (d *MemoryDedupIndex) Lookup(_ context.Context, contentHash string) (*TaskRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Newest registration wins.
	for i := len(d.byOrder) - 1; i >= 0; i-- {
		rec := d.byID[d.byOrder[i]]
		if rec.ContentHash == contentHash && rec.Status.Active() {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *MemoryDedupIndex) Register(_ context.Context, rec TaskRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byID[rec.TaskID]; exists {
		return fmt.Errorf("%w: task %s", common.ErrDuplicateTask, rec.TaskID)
	}
	// Mirror the partial unique index: one active owner per hash.
	for _, id := range d.byOrder {
		if other := d.byID[id]; other.ContentHash == rec.ContentHash && other.Status.Active() {
			return fmt.Errorf("%w: content hash %s already active", common.ErrDuplicateTask, rec.ContentHash)
		}
	}
	cp := rec
	d.byID[rec.TaskID] = &cp
	d.byOrder = append(d.byOrder, rec.TaskID)
	return nil
}

func (d *MemoryDedupIndex) UpdateStatus(_ context.Context, taskID uuid.UUID, status constants.TaskStatus, attempt int, lastError string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[taskID]
	if !ok {
		return fmt.Errorf("%w: task %s", common.ErrNotFound, taskID)
	}
	rec.Status = status
	rec.Attempt = attempt
	rec.LastError = lastError
	return nil
}

func (d *MemoryDedupIndex) GetTask(_ context.Context, taskID uuid.UUID) (*TaskRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, taskID)
	}
	cp := *rec
	return &cp, nil
}

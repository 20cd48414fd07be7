package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// connPragmas apply to every pooled connection.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)&_pragma=foreign_keys(1)"

// tsLayout is fixed-width so lexical order equals time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// legacyTSLayout matches sqlite CURRENT_TIMESTAMP values.
const legacyTSLayout = "2006-01-02 15:04:05"

// taskColumns lists the selected task columns in scan order.
const taskColumns = `id, title, description, status, created_at`

// Repository is the sqlite-backed task store.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the task database at path and ensures the schema.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path+"?"+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	dsn := fmt.Sprintf("file:kanban-%s?mode=memory&cache=shared&%s", uuid.NewString(), connPragmas)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates tables and indexes when missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'doing', 'done')),
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id INTEGER NOT NULL,
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created ON change_events(created_at, id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateTask inserts a task and returns it with the assigned id.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if !t.Status.Valid() {
		return domain.Task{}, &domain.InvalidStatusError{Value: string(t.Status)}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO tasks(title, description, status, created_at)
		VALUES (?, ?, ?, ?)
	`, t.Title, nullableText(t.Description), string(t.Status), ts(t.CreatedAt))
	if err != nil {
		return domain.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, err
	}
	t.ID = id

	if err := insertChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    id,
		Operation: domain.ChangeOperationCreate,
		Metadata: map[string]string{
			"title":  t.Title,
			"status": string(t.Status),
		},
		OccurredAt: t.CreatedAt,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// GetTask returns one task or app.ErrNotFound.
func (r *Repository) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getTaskByID(ctx, r.db, id)
}

// ListTasks returns every task ordered by creation time.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
}

// ListTasksByStatus returns the tasks of one lane ordered by creation time.
func (r *Repository) ListTasksByStatus(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if !status.Valid() {
		return nil, &domain.InvalidStatusError{Value: string(status)}
	}
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
}

// UpdateTaskStatus sets the lane of one task and records a move event at the given time when it changes.
func (r *Repository) UpdateTaskStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error {
	if !status.Valid() {
		return &domain.InvalidStatusError{Value: string(status)}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := getTaskByID(ctx, tx, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	if prev.Status != status {
		if err := insertChangeEvent(ctx, tx, domain.ChangeEvent{
			TaskID:    id,
			Operation: domain.ChangeOperationMove,
			Metadata: map[string]string{
				"from_status": string(prev.Status),
				"to_status":   string(status),
			},
			OccurredAt: at,
		}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteTask removes one task and records a delete event at the given time.
func (r *Repository) DeleteTask(ctx context.Context, id int64, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	task, err := getTaskByID(ctx, tx, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	if err := insertChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    id,
		Operation: domain.ChangeOperationDelete,
		Metadata: map[string]string{
			"title":  task.Title,
			"status": string(task.Status),
		},
		OccurredAt: at,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListChangeEvents returns the newest activity entries first.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, operation, metadata_json, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryTasks runs one task query and scans every row.
func (r *Repository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getTaskByID returns one task from either the pool or an open transaction.
func getTaskByID(ctx context.Context, q queryRower, id int64) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, app.ErrNotFound
	}
	return task, err
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(task_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?)
	`,
		event.TaskID,
		string(event.Operation),
		string(metadataJSON),
		ts(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// scanner represents row scanning shared by sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one task row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		task       domain.Task
		desc       sql.NullString
		statusRaw  string
		createdRaw string
	)
	if err := s.Scan(&task.ID, &task.Title, &desc, &statusRaw, &createdRaw); err != nil {
		return domain.Task{}, err
	}
	status := domain.Status(statusRaw)
	if !status.Valid() {
		return domain.Task{}, fmt.Errorf("task %s: %w", strconv.FormatInt(task.ID, 10), &domain.InvalidStatusError{Value: statusRaw})
	}
	task.Status = status
	if desc.Valid {
		value := desc.String
		task.Description = &value
	}
	task.CreatedAt = parseTS(createdRaw)
	return task, nil
}

// translateNoRows maps a zero-row mutation to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses stored timestamps, including CURRENT_TIMESTAMP values.
func parseTS(v string) time.Time {
	v = strings.TrimSpace(v)
	if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return parsed.UTC()
	}
	if parsed, err := time.Parse(legacyTSLayout, v); err == nil {
		return parsed.UTC()
	}
	return time.Time{}
}

// nullableText maps an absent description to SQL NULL.
func nullableText(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

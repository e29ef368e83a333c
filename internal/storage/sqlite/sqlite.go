package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.OperationRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository, the schema is migrated on creation.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// AppendOperation stores a new operation, an ID is assigned when missing.
func (r *Repository) AppendOperation(ctx context.Context, op model.Operation) error {
	if op.ID == "" {
		op.ID = ulid.Make().String()
	}

	taskIDs := op.TaskIDs
	if taskIDs == nil {
		taskIDs = []string{}
	}
	rawTaskIDs, err := json.Marshal(taskIDs)
	if err != nil {
		return fmt.Errorf("could not marshal task ids: %w", err)
	}

	query := `
		INSERT INTO operations (
			id, kind, task_id, url, task_ids, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		op.ID,
		string(op.Kind),
		op.TaskID,
		op.URL,
		string(rawTaskIDs),
		op.Error,
		op.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: operations.") {
			return fmt.Errorf("operation %s already exists: %w", op.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert operation: %w", err)
	}

	r.logger.Debugf("Appended %s operation in repository: %s", op.Kind, op.ID)
	return nil
}

// ListOperations returns the latest operations first, limit <= 0 returns all of them.
func (r *Repository) ListOperations(ctx context.Context, limit int) ([]model.Operation, error) {
	query := `
		SELECT id, kind, task_id, url, task_ids, error, created_at
		FROM operations
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query operations: %w", err)
	}
	defer rows.Close()

	ops := []model.Operation{}
	for rows.Next() {
		op, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ops, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (model.Operation, error) {
	var op model.Operation
	var kind, rawTaskIDs string
	var createdAt int64

	err := s.Scan(
		&op.ID,
		&kind,
		&op.TaskID,
		&op.URL,
		&rawTaskIDs,
		&op.Error,
		&createdAt,
	)
	if err != nil {
		return model.Operation{}, err
	}

	op.Kind = model.OperationKind(kind)
	op.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(rawTaskIDs), &op.TaskIDs); err != nil {
		return model.Operation{}, fmt.Errorf("could not unmarshal task ids: %w", err)
	}
	if len(op.TaskIDs) == 0 {
		op.TaskIDs = nil
	}

	return op, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"tasks-api/app/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps tasks in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and makes sure the
// tasks table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path is empty")
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, tasksTable.createSQL(true)); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

// withTx runs fn in a transaction that is committed when fn succeeds and rolled
// back on every other path.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, tasksTable.dropSQL()); err != nil {
			return fmt.Errorf("sqlite: drop %s: %w", tasksTable.Name, err)
		}
		if _, err := tx.ExecContext(ctx, tasksTable.createSQL(false)); err != nil {
			return fmt.Errorf("sqlite: create %s: %w", tasksTable.Name, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Create(ctx context.Context, task models.TaskAdd) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?)", tasksTable.Name, tasksTable.columnList("id"))
		res, err := tx.ExecContext(ctx, query, task.Title, task.Description, task.Completed)
		if err != nil {
			return fmt.Errorf("sqlite: insert task: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		task, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if task.Completed {
			return nil
		}
		query := fmt.Sprintf("UPDATE %s SET completed = 1 WHERE id = ?", tasksTable.Name)
		if _, err := tx.ExecContext(ctx, query, task.ID); err != nil {
			return fmt.Errorf("sqlite: complete task %d: %w", id, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", tasksTable.Name)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("sqlite: delete task %d: %w", id, err)
		}
		return nil
	})
}

// List reads outside a transaction so it never takes the write lock.
func (s *SQLiteStore) List(ctx context.Context) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id ASC", tasksTable.columnList(), tasksTable.Name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// findTask looks a task up by id. A missing row is reported as ErrTaskNotFound.
func findTask(ctx context.Context, tx *sql.Tx, id int64) (models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", tasksTable.columnList(), tasksTable.Name)
	task, err := scanTask(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	return task, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &t.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("sqlite: scan task: %w", err)
	}
	if description.Valid {
		d := description.String
		t.Description = &d
	}
	return t, nil
}

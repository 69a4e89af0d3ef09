package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/san-kum/spotsim/internal/rollout"
)

// Index is a sqlite table of episode summaries across runs.
type Index struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewIndex(path string) *Index {
	return &Index{path: path}
}

func (x *Index) Init(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.path == "" {
		return errors.New("index path is required")
	}
	if x.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", x.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	x.db = db
	return nil
}

// IndexedEpisode is one row of the index.
type IndexedEpisode struct {
	RunID   string
	Policy  string
	Episode int
	Return  float64
	Length  int
	Status  string
	Success bool
}

// Record upserts every episode of a run.
func (x *Index) Record(ctx context.Context, meta RunMetadata, eps []rollout.EpisodeSummary) error {
	db, err := x.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range eps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO episodes (run_id, episode, policy, ep_return, length, status, success)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, episode) DO UPDATE SET
				policy = excluded.policy,
				ep_return = excluded.ep_return,
				length = excluded.length,
				status = excluded.status,
				success = excluded.success
		`, meta.ID, e.Index, meta.Policy, e.Return, e.Length, e.Status.String(), e.Success)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Best returns the n highest-return episodes.
func (x *Index) Best(ctx context.Context, n int) ([]IndexedEpisode, error) {
	db, err := x.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, policy, episode, ep_return, length, status, success
		FROM episodes
		ORDER BY ep_return DESC, run_id, episode
		LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexedEpisode
	for rows.Next() {
		var e IndexedEpisode
		if err := rows.Scan(&e.RunID, &e.Policy, &e.Episode, &e.Return, &e.Length, &e.Status, &e.Success); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.db == nil {
		return nil
	}
	err := x.db.Close()
	x.db = nil
	return err
}

func (x *Index) getDB() (*sql.DB, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.db == nil {
		return nil, errors.New("index is not initialized")
	}
	return x.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			policy TEXT NOT NULL,
			ep_return REAL NOT NULL,
			length INTEGER NOT NULL,
			status TEXT NOT NULL,
			success INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
		CREATE INDEX IF NOT EXISTS episodes_return ON episodes (ep_return DESC);
	`)
	return err
}

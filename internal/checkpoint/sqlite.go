package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/heyimsteve/nichescout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode
// and creates the checkpoints table.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	key        TEXT PRIMARY KEY,
	niche      TEXT NOT NULL DEFAULT '',
	finalized  INTEGER NOT NULL DEFAULT 0,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_updated_at ON checkpoints(updated_at);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "checkpoint: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*model.ResearchCheckpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM checkpoints WHERE key = ?`,
		SanitizeKey(key),
	)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: load %s", key)
	}

	var cp model.ResearchCheckpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: unmarshal %s", key)
	}
	return &cp, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, cp *model.ResearchCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	finalized := 0
	if cp.FinalReport != nil {
		finalized = 1
	}

	// Last write wins; concurrent writers under the same key are a
	// documented limitation, not handled here.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (key, niche, finalized, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET niche = excluded.niche, finalized = excluded.finalized,
		   data = excluded.data, updated_at = excluded.updated_at`,
		SanitizeKey(key), cp.Niche, finalized, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "checkpoint: save %s", key)
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE key = ?`,
		SanitizeKey(key),
	)
	return eris.Wrapf(err, "checkpoint: clear %s", key)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data, updated_at FROM checkpoints ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: list")
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var key, data string
		var updatedAt time.Time
		if err := rows.Scan(&key, &data, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "checkpoint: scan")
		}
		var cp model.ResearchCheckpoint
		if err := json.Unmarshal([]byte(data), &cp); err != nil {
			return nil, eris.Wrapf(err, "checkpoint: unmarshal %s", key)
		}
		info := infoFor(key, &cp)
		info.UpdatedAt = updatedAt
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "checkpoint: list iterate")
}

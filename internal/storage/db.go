package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"civicroster/internal"
	"civicroster/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// cities run in parallel; sqlite takes one writer at a time
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  city TEXT NOT NULL,
  status TEXT NOT NULL,
  pages INTEGER NOT NULL DEFAULT 0,
  candidates INTEGER NOT NULL DEFAULT 0,
  officials INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_city ON runs(city, startedAt);

CREATE TABLE IF NOT EXISTS officials (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  city TEXT NOT NULL,
  key TEXT NOT NULL,
  name TEXT NOT NULL,
  role TEXT NOT NULL,
  district TEXT,
  email TEXT,
  emailConfidence INTEGER NOT NULL DEFAULT 0,
  phone TEXT,
  photoUrl TEXT,
  bio TEXT,
  termStart INTEGER,
  termEnd INTEGER,
  overridden INTEGER NOT NULL DEFAULT 0,
  sourcesJson TEXT NOT NULL,
  UNIQUE(runId, key),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS pages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  path TEXT NOT NULL,
  url TEXT NOT NULL,
  sha256 TEXT NOT NULL,
  format TEXT NOT NULL,
  sourceRank INTEGER NOT NULL DEFAULT 0,
  candidates INTEGER NOT NULL DEFAULT 0,
  archivedPath TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_pages_sha ON pages(sha256);

CREATE TABLE IF NOT EXISTS overrides (
  city TEXT NOT NULL,
  key TEXT NOT NULL,
  name TEXT NOT NULL,
  district TEXT,
  termStart INTEGER,
  termEnd INTEGER,
  source TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(city, key)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run internal.RunRow) error {
	_, err := d.conn.Exec(`INSERT INTO runs (id, city, status) VALUES (?, ?, ?)`, run.ID, run.City, run.Status)
	return err
}

func (d *DB) FinishRun(run internal.RunRow) error {
	_, err := d.conn.Exec(`
UPDATE runs SET status = ?, pages = ?, candidates = ?, officials = ?, error = ?, finishedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, run.Status, run.Pages, run.Candidates, run.Officials, run.Error, run.ID)
	return err
}

// LatestRun returns the newest successful run of a city, or nil.
func (d *DB) LatestRun(city string) (*internal.RunRow, error) {
	var row internal.RunRow
	var finished sql.NullString
	err := d.conn.QueryRow(`
SELECT id, city, status, pages, candidates, officials, error, startedAt, finishedAt
FROM runs WHERE city = ? AND status = ? ORDER BY startedAt DESC, rowid DESC LIMIT 1
`, city, internal.RunDone).Scan(
		&row.ID, &row.City, &row.Status, &row.Pages, &row.Candidates, &row.Officials, &row.Error, &row.StartedAt, &finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.FinishedAt = finished.String
	return &row, nil
}

func (d *DB) SaveOfficials(runID string, officials []internal.Official) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO officials (
  runId, city, key, name, role, district, email, emailConfidence,
  phone, photoUrl, bio, termStart, termEnd, overridden, sourcesJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(runId, key) DO UPDATE SET
  name=excluded.name,
  role=excluded.role,
  district=excluded.district,
  email=excluded.email,
  emailConfidence=excluded.emailConfidence,
  phone=excluded.phone,
  photoUrl=excluded.photoUrl,
  bio=excluded.bio,
  termStart=excluded.termStart,
  termEnd=excluded.termEnd,
  overridden=excluded.overridden,
  sourcesJson=excluded.sourcesJson
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range officials {
		sourcesJSON, _ := json.Marshal(o.Sources)
		if _, err := stmt.Exec(
			runID, o.City, o.Key, o.Name, string(o.Role), o.District, o.Email, int(o.EmailConfidence),
			o.Phone, o.PhotoURL, o.Bio, o.TermStart, o.TermEnd, o.Overridden, string(sourcesJSON),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListOfficials(runID string) ([]internal.Official, error) {
	rows, err := d.conn.Query(`
SELECT city, key, name, role, district, email, emailConfidence,
       phone, photoUrl, bio, termStart, termEnd, overridden, sourcesJson
FROM officials WHERE runId = ? ORDER BY id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Official
	for rows.Next() {
		var o internal.Official
		var role, sourcesJSON string
		var confidence int
		if err := rows.Scan(
			&o.City, &o.Key, &o.Name, &role, &o.District, &o.Email, &confidence,
			&o.Phone, &o.PhotoURL, &o.Bio, &o.TermStart, &o.TermEnd, &o.Overridden, &sourcesJSON,
		); err != nil {
			return nil, err
		}
		o.Role = internal.Role(role)
		o.EmailConfidence = internal.Confidence(confidence)
		_ = json.Unmarshal([]byte(sourcesJSON), &o.Sources)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (d *DB) InsertPage(page internal.PageRow) error {
	_, err := d.conn.Exec(`
INSERT INTO pages (runId, path, url, sha256, format, sourceRank, candidates, archivedPath, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, page.RunID, page.Path, page.URL, page.SHA256, page.Format, int(page.Rank), page.Candidates, page.Archived, page.Error)
	return err
}

func (d *DB) ListPages(runID string) ([]internal.PageRow, error) {
	rows, err := d.conn.Query(`
SELECT runId, path, url, sha256, format, sourceRank, candidates, archivedPath, error
FROM pages WHERE runId = ? ORDER BY id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PageRow
	for rows.Next() {
		var p internal.PageRow
		var rank int
		if err := rows.Scan(&p.RunID, &p.Path, &p.URL, &p.SHA256, &p.Format, &rank, &p.Candidates, &p.Archived, &p.Error); err != nil {
			return nil, err
		}
		p.Rank = internal.SourceRank(rank)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertOverrides stores verified entries for a city, replacing the fields
// of entries already present under the same key.
func (d *DB) UpsertOverrides(city string, entries []internal.OverrideEntry) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO overrides (city, key, name, district, termStart, termEnd, source)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(city, key) DO UPDATE SET
  name=excluded.name,
  district=COALESCE(excluded.district, overrides.district),
  termStart=COALESCE(excluded.termStart, overrides.termStart),
  termEnd=COALESCE(excluded.termEnd, overrides.termEnd),
  source=excluded.source,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(city, util.NormalizeName(e.Name), e.Name, e.District, e.TermStart, e.TermEnd, e.Source); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListOverrides(city string) ([]internal.OverrideEntry, error) {
	rows, err := d.conn.Query(`
SELECT name, district, termStart, termEnd, source
FROM overrides WHERE city = ? ORDER BY updatedAt ASC, key ASC
`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OverrideEntry
	for rows.Next() {
		var e internal.OverrideEntry
		if err := rows.Scan(&e.Name, &e.District, &e.TermStart, &e.TermEnd, &e.Source); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

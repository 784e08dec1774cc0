package skills

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// schema holds one row per team member. The list columns are stored as
// comma-separated text, matching how the table is populated by the ops
// tooling that owns writes.
const schema = `
CREATE TABLE IF NOT EXISTS team_skills (
	user_key    TEXT PRIMARY KEY,
	identifier  TEXT NOT NULL,
	soft_skills TEXT NOT NULL DEFAULT '',
	programming TEXT NOT NULL DEFAULT '',
	tools       TEXT NOT NULL DEFAULT ''
);
`

// SQLiteDirectory reads the team-skills table from a SQLite database.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens (and if needed creates) the skills database at
// path. Use ":memory:" for an in-memory database.
func NewSQLiteDirectory(path string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening skills database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating skills schema: %w", err)
	}

	return &SQLiteDirectory{db: db}, nil
}

// Lookup reads the whole team_skills table into a Record. The table is tiny
// (one row per team member), so a full scan per request is fine.
func (d *SQLiteDirectory) Lookup(ctx context.Context) (*Record, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_key, identifier, soft_skills, programming, tools FROM team_skills`)
	if err != nil {
		return nil, fmt.Errorf("querying team skills: %w", err)
	}
	defer rows.Close()

	rec := &Record{
		Identifiers: make(map[string]string),
		Soft:        make(map[string][]string),
		Hard:        make(map[string]HardSkills),
	}

	for rows.Next() {
		var key, identifier, soft, programming, tools string
		if err := rows.Scan(&key, &identifier, &soft, &programming, &tools); err != nil {
			return nil, fmt.Errorf("scanning team skills row: %w", err)
		}

		rec.Identifiers[key] = identifier
		rec.Soft[key] = splitList(soft)
		rec.Hard[key] = HardSkills{
			Programming: splitList(programming),
			Tools:       splitList(tools),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading team skills rows: %w", err)
	}

	return rec, nil
}

// Close closes the underlying database.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

// Seed inserts or replaces one team member row. Exposed for tests and for
// the ops tooling that maintains the table.
func (d *SQLiteDirectory) Seed(ctx context.Context, key, identifier string, soft []string, hard HardSkills) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO team_skills (user_key, identifier, soft_skills, programming, tools)
		 VALUES (?, ?, ?, ?, ?)`,
		key, identifier,
		strings.Join(soft, ","),
		strings.Join(hard.Programming, ","),
		strings.Join(hard.Tools, ","),
	)
	if err != nil {
		return fmt.Errorf("seeding team skills row: %w", err)
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// documentKey is the fixed storage key for the one session document.
const documentKey = "advanced-set-sessions"

// SQLitePersister stores the session document as a single versioned JSON
// blob in a local SQLite database.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the session database at dir/sessions.db.
func OpenSQLite(dir string) (*SQLitePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_documents (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session table: %w", err)
	}

	return &SQLitePersister{db: db}, nil
}

// Save writes the whole document under the fixed key.
func (p *SQLitePersister) Save(doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding session document: %w", err)
	}
	_, err = p.db.Exec(
		`INSERT OR REPLACE INTO session_documents (key, payload, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)`,
		documentKey, payload,
	)
	if err != nil {
		return fmt.Errorf("writing session document: %w", err)
	}
	return nil
}

// Load reads the stored document. A missing row yields nil, which the store
// treats as an empty document.
func (p *SQLitePersister) Load() (*Document, error) {
	var payload []byte
	err := p.db.QueryRow(
		`SELECT payload FROM session_documents WHERE key = ?`, documentKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session document: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(payload, doc); err != nil {
		return nil, fmt.Errorf("decoding session document: %w", err)
	}
	return doc, nil
}

// Close closes the session database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	_ "modernc.org/sqlite"

	"github.com/prism-labs/prism/internal/question"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// StorageError wraps a database failure so callers can distinguish storage
// problems from generation or validation problems.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a stored user profile: the raw schema document plus the answers
// collected so far. Answers only grow; the interview never removes them.
type Profile struct {
	ID      string
	Schema  []byte
	Answers map[string]any
}

// SetInfo describes a stored tiered question set.
type SetInfo struct {
	ID        string
	ProfileID string
	Section   string
	UpdatedAt time.Time
}

// Store wraps a SQLite database holding profiles, answers, question sets and
// interview sessions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. Pass ":memory:" for an in-memory database, used by tests.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StorageError{Op: "create data directory", Err: err}
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open database", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping database", Err: err}
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, &StorageError{Op: "set busy timeout", Err: err}
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &StorageError{Op: "set journal mode", Err: err}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return &StorageError{Op: "create schema_version table", Err: err}
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return &StorageError{Op: "read migrations", Err: err}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := migrationVersion(entry.Name())
		if err != nil {
			return &StorageError{Op: "parse migration version", Err: err}
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return &StorageError{Op: fmt.Sprintf("check migration %d", version), Err: err}
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return &StorageError{Op: "read migration " + entry.Name(), Err: err}
		}

		tx, err := s.db.Begin()
		if err != nil {
			return &StorageError{Op: "begin migration transaction", Err: err}
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return &StorageError{Op: "apply migration " + entry.Name(), Err: err}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return &StorageError{Op: "record migration " + entry.Name(), Err: err}
		}
		if err := tx.Commit(); err != nil {
			return &StorageError{Op: "commit migration " + entry.Name(), Err: err}
		}
	}

	return nil
}

func migrationVersion(filename string) (int, error) {
	base, _, _ := strings.Cut(filename, "_")
	return strconv.Atoi(base)
}

// SaveProfile stores (or replaces) the raw schema document of a profile.
// Existing answers are kept.
func (s *Store) SaveProfile(id string, schemaJSON []byte) error {
	_, err := s.db.Exec(`INSERT INTO profiles (id, schema) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET schema = excluded.schema, updated_at = CURRENT_TIMESTAMP`,
		id, string(schemaJSON))
	if err != nil {
		return &StorageError{Op: "save profile " + id, Err: err}
	}
	return nil
}

// GetProfile loads a profile and its collected answers.
func (s *Store) GetProfile(id string) (*Profile, error) {
	var schemaJSON string
	err := s.db.QueryRow("SELECT schema FROM profiles WHERE id = ?", id).Scan(&schemaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "get profile " + id, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get profile " + id, Err: err}
	}

	answers, err := s.Answers(id)
	if err != nil {
		return nil, err
	}

	return &Profile{ID: id, Schema: []byte(schemaJSON), Answers: answers}, nil
}

// ListProfiles returns stored profile identifiers.
func (s *Store) ListProfiles() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM profiles ORDER BY id")
	if err != nil {
		return nil, &StorageError{Op: "list profiles", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: "scan profile id", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteProfile removes a profile together with its answers, question sets
// and sessions.
func (s *Store) DeleteProfile(id string) error {
	for _, stmt := range []struct {
		op    string
		query string
	}{
		{"delete answers of " + id, "DELETE FROM answers WHERE profile_id = ?"},
		{"delete question sets of " + id, "DELETE FROM question_sets WHERE profile_id = ?"},
		{"delete sessions of " + id, "DELETE FROM sessions WHERE profile_id = ?"},
		{"delete profile " + id, "DELETE FROM profiles WHERE id = ?"},
	} {
		if _, err := s.db.Exec(stmt.query, id); err != nil {
			return &StorageError{Op: stmt.op, Err: err}
		}
	}
	return nil
}

// SetAnswer records the answer for a field path. Re-answering replaces the
// value; answers are never removed by the interview flow.
func (s *Store) SetAnswer(profileID, fieldPath string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Op: "encode answer " + fieldPath, Err: err}
	}

	_, err = s.db.Exec(`INSERT INTO answers (profile_id, field_path, value) VALUES (?, ?, ?)
		ON CONFLICT(profile_id, field_path) DO UPDATE SET value = excluded.value, answered_at = CURRENT_TIMESTAMP`,
		profileID, fieldPath, string(payload))
	if err != nil {
		return &StorageError{Op: "save answer " + fieldPath, Err: err}
	}
	return nil
}

// Answers returns all collected answers of a profile keyed by field path.
func (s *Store) Answers(profileID string) (map[string]any, error) {
	rows, err := s.db.Query("SELECT field_path, value FROM answers WHERE profile_id = ?", profileID)
	if err != nil {
		return nil, &StorageError{Op: "list answers of " + profileID, Err: err}
	}
	defer rows.Close()

	answers := make(map[string]any)
	for rows.Next() {
		var path, payload string
		if err := rows.Scan(&path, &payload); err != nil {
			return nil, &StorageError{Op: "scan answer", Err: err}
		}
		var value any
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			return nil, &StorageError{Op: "decode answer " + path, Err: err}
		}
		answers[path] = value
	}
	return answers, rows.Err()
}

// SaveQuestionSet stores (or replaces) a tiered question set document.
func (s *Store) SaveQuestionSet(id, profileID, section string, set *question.TieredSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return &StorageError{Op: "encode question set " + id, Err: err}
	}

	_, err = s.db.Exec(`INSERT INTO question_sets (id, profile_id, section, document) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET profile_id = excluded.profile_id, section = excluded.section,
			document = excluded.document, updated_at = CURRENT_TIMESTAMP`,
		id, profileID, section, string(payload))
	if err != nil {
		return &StorageError{Op: "save question set " + id, Err: err}
	}
	return nil
}

// GetQuestionSet loads a tiered question set document.
func (s *Store) GetQuestionSet(id string) (*question.TieredSet, error) {
	var payload string
	err := s.db.QueryRow("SELECT document FROM question_sets WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "get question set " + id, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get question set " + id, Err: err}
	}

	return decodeTieredSet([]byte(payload), id)
}

// decodeTieredSet tolerates documents written by other tools: the JSON is
// decoded into a generic map first, then mapped onto the typed structure.
func decodeTieredSet(payload []byte, id string) (*question.TieredSet, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &StorageError{Op: "decode question set " + id, Err: err}
	}

	var set question.TieredSet
	cfg := &mapstructure.DecoderConfig{
		Result:  &set,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, &StorageError{Op: "decode question set " + id, Err: err}
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &StorageError{Op: "decode question set " + id, Err: err}
	}

	for _, tier := range set.Tiers() {
		if tier == nil {
			return nil, &StorageError{Op: "decode question set " + id, Err: errors.New("missing tier document")}
		}
	}

	return &set, nil
}

// ListQuestionSets returns metadata for all stored question sets.
func (s *Store) ListQuestionSets() ([]SetInfo, error) {
	rows, err := s.db.Query("SELECT id, profile_id, section, updated_at FROM question_sets ORDER BY id")
	if err != nil {
		return nil, &StorageError{Op: "list question sets", Err: err}
	}
	defer rows.Close()

	var infos []SetInfo
	for rows.Next() {
		var info SetInfo
		if err := rows.Scan(&info.ID, &info.ProfileID, &info.Section, &info.UpdatedAt); err != nil {
			return nil, &StorageError{Op: "scan question set", Err: err}
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteQuestionSet removes a stored question set.
func (s *Store) DeleteQuestionSet(id string) error {
	if _, err := s.db.Exec("DELETE FROM question_sets WHERE id = ?", id); err != nil {
		return &StorageError{Op: "delete question set " + id, Err: err}
	}
	return nil
}

// CreateSession records a new interview session.
func (s *Store) CreateSession(id, profileID, state string) error {
	_, err := s.db.Exec("INSERT INTO sessions (id, profile_id, state) VALUES (?, ?, ?)", id, profileID, state)
	if err != nil {
		return &StorageError{Op: "create session " + id, Err: err}
	}
	return nil
}

// UpdateSessionState moves a session to a new state, stamping the end time
// for terminal states.
func (s *Store) UpdateSessionState(id, state string) error {
	terminal := state == "completed" || state == "aborted"

	var err error
	if terminal {
		_, err = s.db.Exec("UPDATE sessions SET state = ?, ended_at = CURRENT_TIMESTAMP WHERE id = ?", state, id)
	} else {
		_, err = s.db.Exec("UPDATE sessions SET state = ? WHERE id = ?", state, id)
	}
	if err != nil {
		return &StorageError{Op: "update session " + id, Err: err}
	}
	return nil
}

// Package history persists single translations in a SQLite database and
// converts them from and to the JSON format of the legacy web app.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/ynlb/internal/history/migrations"
	"codeberg.org/snonux/ynlb/internal/log"
)

// ErrNotFound is returned for unknown entry ids
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded translation
type Entry struct {
	ID             string
	Text           string
	TranslatedText string
	Backend        string
	Date           time.Time
}

// Config is the configuration of the history store.
type Config struct {
	DBPath string
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "history.Store"})
	return nil
}

// Store is the SQLite backed history.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// NewStore opens (and creates if needed) the history database and brings
// its schema up to date.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", cfg.DBPath)
	db, err := sql.Open("sqlite3", dsn)
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

	version, err := migrator.Version()
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Debugf("History database initialized at %s (schema version %d)", cfg.DBPath, version)

	return &Store{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Add records a translation. A missing id or date is filled in.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	return s.add(ctx, s.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) add(ctx context.Context, db execer, e Entry) (Entry, error) {
	if strings.TrimSpace(e.Text) == "" {
		return Entry{}, fmt.Errorf("history entry without text")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Date = e.Date.UTC()

	_, err := db.ExecContext(ctx,
		`INSERT INTO history (id, text, translated_text, backend, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Text, e.TranslatedText, e.Backend, e.Date.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("could not insert history entry: %w", err)
	}

	s.logger.Debugf("Added history entry %s", e.ID)
	return e, nil
}

// List returns the newest entries first; limit <= 0 returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, text, translated_text, backend, created_at FROM history ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate history: %w", err)
	}

	return entries, nil
}

// Get returns one entry. The id may be abbreviated to a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("empty id: %w", ErrNotFound)
	}

	const query = `SELECT id, text, translated_text, backend, created_at FROM history `
	e, err := scanEntry(s.db.QueryRowContext(ctx, query+`WHERE id = ?`, id))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}

	rows, err := s.db.QueryContext(ctx, query+`WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return Entry{}, fmt.Errorf("could not get history entry: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, fmt.Errorf("could not get history entry: %w", err)
	}

	switch len(found) {
	case 0:
		return Entry{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return Entry{}, fmt.Errorf("id prefix %q is ambiguous", id)
	}
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, e.ID); err != nil {
		return fmt.Errorf("could not delete history entry: %w", err)
	}

	s.logger.Debugf("Deleted history entry %s", e.ID)
	return nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("could not clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not clear history: %w", err)
	}

	s.logger.Infof("Cleared %d history entries", n)
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e       Entry
		created int64
	)
	if err := row.Scan(&e.ID, &e.Text, &e.TranslatedText, &e.Backend, &created); err != nil {
		return Entry{}, fmt.Errorf("could not scan history entry: %w", err)
	}
	e.Date = time.UnixMilli(created).UTC()
	return e, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Package reports persists crash reports on disk and keeps a queryable
// catalog of them in SQLite.
//
// The split matters: the crash path only ever touches Open, which
// creates a plain append-mode file and nothing else. All catalog work
// (indexing, pruning, the latest-report pointer) happens during normal
// operation, usually at the next startup via Scan.
package reports

import (
	"bufio"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

const (
	reportPrefix = "crash-"
	reportSuffix = ".txt"
	latestFile   = "latest.json"
	indexFile    = "index.db"

	// causeLimit bounds how much of a report's first line lands in the
	// catalog.
	causeLimit = 200
)

// ErrNotFound is returned when no report matches a query.
var ErrNotFound = errors.New("report not found")

// Report describes one catalogued crash report.
type Report struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	Cause     string    `json:"cause,omitempty"`
}

// Store manages the report directory and its SQLite catalog.
type Store struct {
	dir        string
	maxReports int
	db         *sql.DB
	logger     *slog.Logger

	mu sync.Mutex
}

// NewStore opens (creating if needed) the report directory and its
// catalog database.
func NewStore(dir string, maxReports int, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = ".crashkit/reports"
	}
	if maxReports <= 0 {
		maxReports = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	dbPath := filepath.Join(dir, indexFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening report index: %w", err)
	}

	s := &Store{
		dir:        dir,
		maxReports: maxReports,
		db:         db,
		logger:     logger,
	}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the catalog database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dir returns the report directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Open creates a fresh report file and returns it opened for append.
// This is the only Store method the crash path may call: no locking,
// no catalog access, just one file creation. The caller writes the
// crash cause as the first line; Scan later lifts it into the catalog.
func (s *Store) Open() (*os.File, error) {
	name := fmt.Sprintf("%s%s-%s%s",
		reportPrefix,
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString(),
		reportSuffix)

	f, err := os.OpenFile(filepath.Join(s.dir, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating report file: %w", err)
	}
	return f, nil
}

// Scan reconciles the directory with the catalog: new report files are
// indexed, empty files from aborted episodes are removed, the oldest
// reports beyond the retention limit are pruned, and the latest-report
// pointer is rewritten atomically. Returns how many new reports were
// indexed.
func (s *Store) Scan(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading report directory: %w", err)
	}

	indexed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), reportPrefix) || !strings.HasSuffix(e.Name(), reportSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			// Aborted episode: the file was opened but the crash never
			// produced output.
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				s.logger.Warn("failed to remove empty report", "file", e.Name(), "error", err)
			}
			continue
		}

		added, err := s.catalog(ctx, e.Name(), info)
		if err != nil {
			return indexed, err
		}
		if added {
			indexed++
		}
	}

	if err := s.prune(ctx); err != nil {
		return indexed, err
	}
	if err := s.writeLatest(ctx); err != nil {
		return indexed, err
	}
	return indexed, nil
}

func (s *Store) catalog(ctx context.Context, name string, info os.FileInfo) (bool, error) {
	id := idFromFilename(name)
	createdAt := createdAtFromFilename(name, info)
	cause := s.readCause(name)

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reports (id, filename, created_at, size_bytes, cause)
		 VALUES (?, ?, ?, ?, ?)`,
		id, name, createdAt.UTC(), info.Size(), cause)
	if err != nil {
		return false, fmt.Errorf("indexing report %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// idFromFilename recovers the UUID baked into the report filename so a
// report keeps its identity across rescans. Files that slipped in from
// elsewhere get a name-derived stable id.
func idFromFilename(name string) string {
	base := strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), reportSuffix)
	if _, rest, ok := strings.Cut(base, "-"); ok {
		if parsed, err := uuid.Parse(rest); err == nil {
			return parsed.String()
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func createdAtFromFilename(name string, info os.FileInfo) time.Time {
	base := strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), reportSuffix)
	if stamp, _, ok := strings.Cut(base, "-"); ok {
		if t, err := time.Parse("20060102T150405", stamp); err == nil {
			return t
		}
	}
	return info.ModTime()
}

// readCause lifts the first line of a report into the catalog.
func (s *Store) readCause(name string) string {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return ""
	}
	line := strings.TrimSpace(sc.Text())
	if len(line) > causeLimit {
		line = line[:causeLimit]
	}
	return line
}

func (s *Store) prune(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename FROM reports
		 ORDER BY created_at DESC, filename DESC
		 LIMIT -1 OFFSET ?`, s.maxReports)
	if err != nil {
		return fmt.Errorf("selecting reports to prune: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type victim struct{ id, filename string }
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.filename); err != nil {
			return fmt.Errorf("scanning prune row: %w", err)
		}
		victims = append(victims, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating prune rows: %w", err)
	}

	for _, v := range victims {
		if err := os.Remove(filepath.Join(s.dir, v.filename)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove pruned report", "file", v.filename, "error", err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, v.id); err != nil {
			return fmt.Errorf("deleting pruned report %s: %w", v.id, err)
		}
	}
	return nil
}

// writeLatest rewrites the latest-report pointer atomically so readers
// never observe a torn file.
func (s *Store) writeLatest(ctx context.Context) error {
	latest, err := s.latestLocked(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(latest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling latest pointer: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(s.dir, latestFile), data, 0o600); err != nil {
		return fmt.Errorf("writing latest pointer: %w", err)
	}
	return nil
}

// List returns up to limit reports, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, created_at, size_bytes, cause FROM reports
		 ORDER BY created_at DESC, filename DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Filename, &r.CreatedAt, &r.SizeBytes, &r.Cause); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return out, nil
}

// Get returns the catalog entry for one report id.
func (s *Store) Get(ctx context.Context, id string) (Report, error) {
	var r Report
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, created_at, size_bytes, cause FROM reports WHERE id = ?`, id).
		Scan(&r.ID, &r.Filename, &r.CreatedAt, &r.SizeBytes, &r.Cause)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("fetching report %s: %w", id, err)
	}
	return r, nil
}

// Latest returns the newest catalogued report.
func (s *Store) Latest(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(ctx)
}

func (s *Store) latestLocked(ctx context.Context) (Report, error) {
	var r Report
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, created_at, size_bytes, cause FROM reports
		 ORDER BY created_at DESC, filename DESC LIMIT 1`).
		Scan(&r.ID, &r.Filename, &r.CreatedAt, &r.SizeBytes, &r.Cause)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("fetching latest report: %w", err)
	}
	return r, nil
}

// Content returns the raw text of a catalogued report.
func (s *Store) Content(ctx context.Context, id string) ([]byte, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, r.Filename))
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", r.Filename, err)
	}
	return data, nil
}

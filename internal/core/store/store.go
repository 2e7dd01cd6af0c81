package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/namelens/orgmatch/internal/config"
)

const driverLibsql = "libsql"

const memoryDSN = ":memory:"

// busyTimeoutMs is how long a local writer waits on a locked database.
const busyTimeoutMs = 5000

// Store wraps the libsql connection that backs the token search index and
// the judgment cache.
type Store struct {
	DB     *sql.DB
	driver string
	loc    location
}

type locationKind int

const (
	kindMemory locationKind = iota
	kindFile
	kindRemote
)

// location is a resolved store address.
type location struct {
	dsn  string
	kind locationKind
}

func (l location) local() bool { return l.kind != kindRemote }

// Open connects to the store described by cfg. Local databases get a single
// connection since every :memory: connection is its own database and file
// databases serialize writers regardless.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	loc, err := resolveLocation(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, loc.dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if loc.local() {
		db.SetMaxOpenConns(1)
	}

	s := &Store{DB: db, driver: driver, loc: loc}
	if err := s.prepare(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepare(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping libsql store: %w", err)
	}
	if s.loc.kind != kindFile {
		return nil
	}
	// PRAGMAs that report a row must go through QueryRow; the driver
	// rejects rows from Exec.
	var mode string
	if err := s.DB.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	var timeout int
	if err := s.DB.QueryRowContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs)).Scan(&timeout); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// CheckHealth pings the database.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store not open")
	}
	return s.DB.PingContext(ctx)
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// resolveLocation turns store config into a DSN. A URL wins over a path;
// plain paths become file: DSNs and get their parent directory created.
func resolveLocation(cfg config.StoreConfig) (location, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		dsn, err := withAuthToken(raw, cfg.AuthToken)
		if err != nil {
			return location{}, err
		}
		return location{dsn: dsn, kind: kindRemote}, nil
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return location{}, errors.New("store path or url is required")
	case path == memoryDSN:
		return location{dsn: memoryDSN, kind: kindMemory}, nil
	case strings.HasPrefix(path, "libsql:"):
		return location{dsn: path, kind: kindRemote}, nil
	case strings.HasPrefix(path, "file:"):
		file, err := filePathOf(path)
		if err != nil {
			return location{}, err
		}
		if err := ensureParentDir(file); err != nil {
			return location{}, err
		}
		return location{dsn: path, kind: kindFile}, nil
	}

	if err := ensureParentDir(path); err != nil {
		return location{}, err
	}
	return location{dsn: "file:" + filepath.Clean(path), kind: kindFile}, nil
}

// withAuthToken adds token as the authToken query parameter unless the URL
// already carries one.
func withAuthToken(raw, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return raw, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func filePathOf(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return strings.TrimPrefix(p, "//"), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- store directories are shared with other local tools
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

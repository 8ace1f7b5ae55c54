package wire

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/quill-lang/quill/vm"
)

// ErrCacheMiss indicates the requested program is not cached.
var ErrCacheMiss = errors.New("program not cached")

// Cache stores encoded programs in SQLite, keyed by the hash of the source
// they were compiled from. A miss means the caller compiles and calls Put.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		source_hash BLOB PRIMARY KEY,
		program BLOB NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put stores a compiled program under its source hash.
func (c *Cache) Put(sourceHash [32]byte, root *vm.FunctionProto) error {
	data, err := MarshalProgram(root)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(
		"INSERT OR REPLACE INTO programs (source_hash, program) VALUES (?, ?)",
		sourceHash[:], data,
	); err != nil {
		return fmt.Errorf("storing program: %w", err)
	}
	return nil
}

// Get loads the cached program for a source hash. Returns ErrCacheMiss
// when nothing is stored under that hash.
func (c *Cache) Get(sourceHash [32]byte) (*vm.FunctionProto, error) {
	var data []byte
	err := c.db.QueryRow(
		"SELECT program FROM programs WHERE source_hash = ?", sourceHash[:],
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	return UnmarshalProgram(data)
}

// Evict removes a cached program.
func (c *Cache) Evict(sourceHash [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM programs WHERE source_hash = ?", sourceHash[:]); err != nil {
		return fmt.Errorf("evicting program: %w", err)
	}
	return nil
}

// Len reports the number of cached programs.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

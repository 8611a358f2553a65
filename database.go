// Package wrendb is a teaching relational database engine. This file is the
// embedding surface: a Database owns the disk manager and one buffer pool
// shared by every table under its directory.
package wrendb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/haintp/wrendb/internal/buffer"
	"github.com/haintp/wrendb/internal/config"
	"github.com/haintp/wrendb/internal/record"
	"github.com/haintp/wrendb/internal/storage"
	"github.com/haintp/wrendb/internal/table"
)

var (
	ErrDatabaseClosed = errors.New("wrendb: database is closed")
	ErrTableNotOpen   = errors.New("wrendb: table is not open")
)

// Database bundles the storage stack for one data directory.
type Database struct {
	cfg  *config.Config
	disk *storage.DiskManager
	pool *buffer.PoolManager

	mu     sync.Mutex
	tables map[string]*table.Handle
	closed bool
}

// Open builds the stack described by cfg. An unknown replacer name in the
// config surfaces here; callers treat it as fatal.
func Open(cfg *config.Config) (*Database, error) {
	disk, err := storage.NewDiskManager(cfg.Storage.Dir, cfg.Storage.PageSize)
	if err != nil {
		return nil, err
	}
	pool, err := buffer.NewPoolManager(disk, cfg.Buffer.PoolSize, cfg.Buffer.Replacer, cfg.Buffer.LRUKArg)
	if err != nil {
		return nil, err
	}
	return &Database{
		cfg:    cfg,
		disk:   disk,
		pool:   pool,
		tables: make(map[string]*table.Handle),
	}, nil
}

// Pool exposes the shared buffer pool.
func (db *Database) Pool() *buffer.PoolManager { return db.pool }

// Disk exposes the disk manager.
func (db *Database) Disk() *storage.DiskManager { return db.disk }

// CreateTable formats a new table file under the data directory.
func (db *Database) CreateTable(name string, schema *record.Schema, model storage.StorageModel) (*table.Handle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if _, ok := db.tables[name]; ok {
		return nil, fmt.Errorf("wrendb: table %s already open", name)
	}
	tab, err := table.Create(db.disk, db.pool, name, schema, model)
	if err != nil {
		return nil, err
	}
	db.tables[name] = tab
	return tab, nil
}

// OpenTable opens an existing table, reusing the handle if already open.
func (db *Database) OpenTable(name string) (*table.Handle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if tab, ok := db.tables[name]; ok {
		return tab, nil
	}
	tab, err := table.Open(db.disk, db.pool, name)
	if err != nil {
		return nil, err
	}
	db.tables[name] = tab
	return tab, nil
}

// DropTable removes the table's pages from the pool and its file from disk.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	tab, ok := db.tables[name]
	if !ok {
		return ErrTableNotOpen
	}
	delete(db.tables, name)
	return tab.Drop()
}

// Close flushes every open table and releases the files.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	var firstErr error
	for name, tab := range db.tables {
		if err := tab.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close table %s: %w", name, err)
		}
		delete(db.tables, name)
	}
	if err := db.disk.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

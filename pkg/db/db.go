package db

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// Database wraps the BadgerDB connection shared by the bridge stores. The
// mapping, delivery and audit stores all hang off the same connection and
// keep out of each other's way via key prefixes.
type Database struct {
	db *badger.DB
}

func Open(path string) (*Database, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Database{db: db}, nil
}

// OpenInMemory returns a Database backed by an ephemeral in-memory badger
// instance. Used by tests and the devnet.
func OpenInMemory() (*Database, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Conn returns a pointer to the underlying database connection.
func (d *Database) Conn() *badger.DB {
	return d.db
}

// Operation represents a database operation type
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

type DBError struct {
	Op  Operation
	Key []byte
	Err error
}

func (e *DBError) Unwrap() error {
	return e.Err
}

func (e *DBError) Error() string {
	return fmt.Sprintf("bridge database: %s key: %s error: %v", e.Op, e.Key, e.Err)
}

func (d *Database) update(key, data []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (d *Database) deleteEntry(key []byte) error {
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}); err != nil {
		return &DBError{Op: OpDelete, Key: key, Err: err}
	}
	return nil
}

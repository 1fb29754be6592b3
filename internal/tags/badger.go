package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerBlob stores the index under a single key of a BadgerDB database.
type BadgerBlob struct {
	db  *badger.DB
	key []byte
}

// BadgerOptions configures a BadgerBlob.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string
	// InMemory runs BadgerDB without disk persistence.
	InMemory bool
	// Key names the entry holding the index.
	Key string
	// Logger receives badger warnings and errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// OpenBadger opens a BadgerDB-backed blob.
func OpenBadger(opts BadgerOptions) (*BadgerBlob, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("tags: badger dir is required for on-disk mode")
	}
	if opts.Key == "" {
		return nil, errors.New("tags: badger key is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("tags: open badger: %w", err)
	}
	return &BadgerBlob{db: db, key: []byte(opts.Key)}, nil
}

func (b *BadgerBlob) Load(_ context.Context) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tags: load %s: %w", b.key, err)
	}
	return val, nil
}

func (b *BadgerBlob) Save(_ context.Context, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("tags: save %s: %w", b.key, err)
	}
	return nil
}

// Close closes the badger database.
func (b *BadgerBlob) Close() error {
	return b.db.Close()
}

// badgerLogger forwards badger warnings and errors to slog and drops the rest.
type badgerLogger struct {
	l *slog.Logger
}

func (g badgerLogger) Errorf(f string, v ...interface{}) {
	g.l.Error("badger: "+fmt.Sprintf(f, v...))
}

func (g badgerLogger) Warningf(f string, v ...interface{}) {
	g.l.Warn("badger: "+fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}

var _ Blob = (*BadgerBlob)(nil)

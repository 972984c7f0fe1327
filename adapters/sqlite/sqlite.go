// Package sqlite is a single-file Storage backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/internal/sqlutil"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pragmas applied to every connection in the pool
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Adapter struct {
	db        *sql.DB
	writeLock *sync.Mutex // sqlite serializes writers; the lock keeps them from failing with SQLITE_BUSY
	now       func() time.Time
}

var _ reel.Storage = (*Adapter)(nil)

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Adapter, error) {
	db, err := sql.Open("sqlite", path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := sqlutil.Migrate(ctx, db, migrations, "sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}

// New wraps an already migrated database
func New(db *sql.DB) *Adapter {
	return &Adapter{
		db:        db,
		writeLock: new(sync.Mutex),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *Adapter) Ping(ctx context.Context) error {
	return classify(a.db.PingContext(ctx))
}

func (a *Adapter) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// tx runs fn in a transaction holding the write lock
func (a *Adapter) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	a.writeLock.Lock()
	defer a.writeLock.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return classify(tx.Commit())
}

// exec runs a single write statement under the write lock
func (a *Adapter) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	a.writeLock.Lock()
	defer a.writeLock.Unlock()

	return a.db.ExecContext(ctx, q, args...)
}

func liteCode(err error) (int, bool) {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code(), true
	}
	return 0, false
}

func isConstraint(err error, code int) bool {
	c, ok := liteCode(err)
	return ok && c == code
}

// classify attaches ErrUnavailable to busy or locked database errors
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(reel.ErrUnavailable, err)
	}
	if code, ok := liteCode(err); ok {
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return errors.Join(reel.ErrUnavailable, err)
		}
	}
	return err
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// text binds an optional string as TEXT or NULL
func text(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

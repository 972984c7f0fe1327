package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountStorage defines account-related database operations.
// Email arguments are normalized by the implementation.
type AccountStorage interface {
	// CreateAccount inserts a. An unverified account holding the same email
	// is replaced when it was created before staleBefore; any other holder
	// yields ErrEmailTaken. A zero staleBefore never replaces.
	CreateAccount(ctx context.Context, a *Account, staleBefore time.Time) error

	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByVerificationCode(ctx context.Context, digest string) (*Account, error)
	GetAccountByResetCode(ctx context.Context, digest string) (*Account, error)

	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error)

	DeleteAccount(ctx context.Context, id string) error
}

// CatalogStorage defines movie and actor database operations
type CatalogStorage interface {
	CreateActor(ctx context.Context, a *Actor) error
	GetActor(ctx context.Context, id string) (*Actor, error)
	ListActors(ctx context.Context) ([]*Actor, error)
	UpdateActor(ctx context.Context, a *Actor) error
	DeleteActor(ctx context.Context, id string) error

	CreateMovie(ctx context.Context, m *Movie) error
	GetMovie(ctx context.Context, id string) (*Movie, error)
	ListMovies(ctx context.Context, filter MovieFilter) ([]*Movie, error)
	UpdateMovie(ctx context.Context, m *Movie) error
	DeleteMovie(ctx context.Context, id string) error
}

// Storage is implemented by every backend
type Storage interface {
	AccountStorage
	CatalogStorage
	Ping(ctx context.Context) error
	Close() error
}

// ============================================
// CRYPTO PORTS
// ============================================

type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// CodeGenerator draws single-use verification and reset codes
type CodeGenerator interface {
	Generate() (string, error)
}

// TokenIssuer mints and checks stateless bearer tokens
type TokenIssuer interface {
	Issue(accountID string, scope TokenScope) (string, error)
	Verify(token string, scope TokenScope) (string, error)
}

// ============================================
// NOTIFIER PORT
// ============================================

// Notifier dispatches codes to the owner of an email address
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendResetCode(ctx context.Context, email, code string) error
}

// ============================================
// CACHE PORT
// ============================================

type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Clear()
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats are simple counters for cache behavior.
// These are intended for diagnostics and monitoring.
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

package core

import (
	"context"
	"log/slog"
	"time"
)

type Config struct {
	Secret string

	Storage Storage

	HTTP HTTPAdapter

	// Optional config
	PasswordHasher PasswordHandler
	CodeGenerator  CodeGenerator
	Notifier       Notifier
	Logger         *slog.Logger
	Issuer         string
	SessionTTL     time.Duration
	ResetTTL       time.Duration
	PendingTTL     time.Duration // how long an unverified signup holds its email
	StoreTimeout   time.Duration
	CacheConfig    *CacheConfig
	DisableCache   bool
	BasePath       string
}

type Reel struct {
	Accounts  AccountHandler
	Catalog   CatalogHandler
	Tokens    TokenIssuer
	Storage   Storage
	Endpoints []Endpoint
	BasePath  string
	Logger    *slog.Logger
}

// ============================================
// HANDLER PORTS (for HTTP adapters)
// ============================================

// AccountHandler provides account lifecycle operations for HTTP adapters.
// accountID arguments come from a verified token, never from the client.
type AccountHandler interface {
	SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error)
	Verify(ctx context.Context, code string) error
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	GetProfile(ctx context.Context, accountID string) (*Profile, error)
	UpdateProfile(ctx context.Context, accountID string, input ProfileUpdate) (*Profile, error)
	DeleteAccount(ctx context.Context, accountID string) error
	RequestReset(ctx context.Context, input ResetRequestInput) (*ResetRequestResult, error)
	ConfirmReset(ctx context.Context, accountID string, input ResetConfirmInput) error
}

// CatalogHandler provides movie and actor operations for HTTP adapters
type CatalogHandler interface {
	ListMovies(ctx context.Context, filter MovieFilter) ([]*Movie, error)
	GetMovie(ctx context.Context, id string) (*Movie, error)
	CreateMovie(ctx context.Context, input MovieInput) (*Movie, error)
	UpdateMovie(ctx context.Context, id string, input MovieInput) (*Movie, error)
	DeleteMovie(ctx context.Context, id string) error

	ListActors(ctx context.Context) ([]*Actor, error)
	GetActor(ctx context.Context, id string) (*Actor, error)
	ListActorMovies(ctx context.Context, id string) ([]*Movie, error)
	CreateActor(ctx context.Context, input ActorInput) (*Actor, error)
	UpdateActor(ctx context.Context, id string, input ActorInput) (*Actor, error)
	DeleteActor(ctx context.Context, id string) error
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(r *Reel) error
}

package reel

import (
	"log/slog"

	"github.com/lborres/reel/adapters/notify"
	"github.com/lborres/reel/core"
	"github.com/lborres/reel/pkg/cache"
	"github.com/lborres/reel/pkg/crypto"
	"github.com/lborres/reel/pkg/token"
	"github.com/lborres/reel/services"
)

// interfaces
type (
	Storage        = core.Storage
	AccountStorage = core.AccountStorage
	CatalogStorage = core.CatalogStorage

	HTTPAdapter = core.HTTPAdapter

	AccountHandler = core.AccountHandler
	CatalogHandler = core.CatalogHandler

	PasswordHandler = core.PasswordHandler
	CodeGenerator   = core.CodeGenerator
	TokenIssuer     = core.TokenIssuer
	Notifier        = core.Notifier
)

// structs
type (
	Reel        = core.Reel
	Config      = core.Config
	CacheConfig = core.CacheConfig
	CacheStats  = core.CacheStats

	Endpoint         = core.Endpoint
	EndpointMetadata = core.EndpointMetadata
	ErrorResponse    = core.ErrorResponse
	TokenScope       = core.TokenScope
)

type (
	Account      = core.Account
	AccountPatch = core.AccountPatch
	Profile      = core.Profile
	Actor        = core.Actor
	Movie        = core.Movie
	MovieFilter  = core.MovieFilter

	SignUpInput        = core.SignUpInput
	SignUpResult       = core.SignUpResult
	LoginInput         = core.LoginInput
	LoginResult        = core.LoginResult
	ProfileUpdate      = core.ProfileUpdate
	ResetRequestInput  = core.ResetRequestInput
	ResetRequestResult = core.ResetRequestResult
	ResetConfirmInput  = core.ResetConfirmInput
	ActorInput         = core.ActorInput
	MovieInput         = core.MovieInput

	ValidationError = core.ValidationError
)

const (
	ScopeSession       = core.ScopeSession
	ScopePasswordReset = core.ScopePasswordReset
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2          = crypto.NewArgon2
	NewValidationError = core.NewValidationError
	NormalizeEmail     = core.NormalizeEmail
)

var (
	ErrEmailTaken         = core.ErrEmailTaken
	ErrAccountNotFound    = core.ErrAccountNotFound
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrInvalidCode        = core.ErrInvalidCode
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrTokenExpired      = core.ErrTokenExpired
)

var (
	ErrMovieNotFound = core.ErrMovieNotFound
	ErrActorNotFound = core.ErrActorNotFound
	ErrActorInUse    = core.ErrActorInUse
)

var (
	ErrValidation  = core.ErrValidation
	ErrInvalidBody = core.ErrInvalidBody
	ErrInternal    = core.ErrInternal
	ErrUnavailable = core.ErrUnavailable
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// New wires the services over config.Storage and registers routes on
// config.HTTP. Optional dependencies fall back to defaults.
func New(config Config) (*Reel, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := token.NewIssuer(token.Config{
		Secret:     config.Secret,
		Issuer:     config.Issuer,
		SessionTTL: config.SessionTTL,
		ResetTTL:   config.ResetTTL,
	})
	if err != nil {
		return nil, err
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	codes := config.CodeGenerator
	if codes == nil {
		codes, err = crypto.NewNanoID("")
		if err != nil {
			return nil, err
		}
	}

	notifier := config.Notifier
	if notifier == nil {
		notifier = notify.NewLogger(logger)
	}

	storeTimeout := config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = services.DefaultStoreTimeout
	}

	var movies core.Cache[*Movie]
	var actors core.Cache[*Actor]
	if !config.DisableCache {
		cacheConfig := CacheConfig{TTL: cache.DefaultTTL, MaxSize: cache.DefaultMaxSize}
		if config.CacheConfig != nil {
			cacheConfig = *config.CacheConfig
		}
		movies = cache.NewMemory[*Movie](cacheConfig)
		actors = cache.NewMemory[*Actor](cacheConfig)
	}

	r := &Reel{
		Accounts: services.NewAccountService(services.AccountDeps{
			Store:        config.Storage,
			Hasher:       passwordHasher,
			Codes:        codes,
			Tokens:       tokens,
			Notifier:     notifier,
			Logger:       logger,
			StoreTimeout: storeTimeout,
			PendingTTL:   config.PendingTTL,
		}),
		Catalog: services.NewCatalogService(services.CatalogDeps{
			Store:        config.Storage,
			Movies:       movies,
			Actors:       actors,
			Logger:       logger,
			StoreTimeout: storeTimeout,
		}),
		Tokens:    tokens,
		Storage:   config.Storage,
		Endpoints: services.NewEndpointRegistry().Endpoints(),
		BasePath:  config.BasePath,
		Logger:    logger,
	}

	if err := config.HTTP.RegisterRoutes(r); err != nil {
		return nil, err
	}

	return r, nil
}

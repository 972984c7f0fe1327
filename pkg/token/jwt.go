// Package token issues and verifies stateless, scoped bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lborres/reel/core"
)

const (
	MinSecretLength   = 32
	DefaultIssuer     = "reel"
	DefaultSessionTTL = 24 * time.Hour
	DefaultResetTTL   = 15 * time.Minute
)

var ErrUnknownScope = errors.New("unknown token scope")

type Config struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
	ResetTTL   time.Duration

	// Now overrides the clock, for tests
	Now func() time.Time
}

// Claims binds an account to a scope for a bounded window
type Claims struct {
	jwt.RegisteredClaims
	Scope core.TokenScope `json:"scope"`
}

// Issuer signs HS256 tokens. It keeps no per-token state.
type Issuer struct {
	secret []byte
	issuer string
	ttl    map[core.TokenScope]time.Duration
	now    func() time.Time
}

var _ core.TokenIssuer = (*Issuer)(nil)

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, core.ErrSecretRequired
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w - minimum of %d characters", core.ErrSecretTooShort, MinSecretLength)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl: map[core.TokenScope]time.Duration{
			core.ScopeSession:       cfg.SessionTTL,
			core.ScopePasswordReset: cfg.ResetTTL,
		},
		now: cfg.Now,
	}, nil
}

// Issue mints a token for accountID valid for the scope's lifetime
func (i *Issuer) Issue(accountID string, scope core.TokenScope) (string, error) {
	ttl, ok := i.ttl[scope]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, expiry and scope and returns the account id
func (i *Issuer) Verify(tokenString string, scope core.TokenScope) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", core.ErrTokenExpired
		}
		return "", errors.Join(core.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.Scope != scope {
		return "", core.ErrInvalidToken
	}

	return claims.Subject, nil
}

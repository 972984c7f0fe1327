package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/reel/core"
	"github.com/lborres/reel/pkg/crypto"
)

// codeRedraws bounds the retries when a fresh code collides with one the
// account already holds
const codeRedraws = 3

// DefaultPendingTTL is how long an unverified signup holds its email
// before a new signup may replace it
const DefaultPendingTTL = time.Hour

type AccountService struct {
	store    core.AccountStorage
	hasher   core.PasswordHandler
	codes    core.CodeGenerator
	tokens   core.TokenIssuer
	notifier core.Notifier
	log      *slog.Logger
	timeout  time.Duration
	pending  time.Duration
	now      func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// Ensure AccountService implements AccountHandler
var _ core.AccountHandler = (*AccountService)(nil)

type AccountDeps struct {
	Store        core.AccountStorage
	Hasher       core.PasswordHandler
	Codes        core.CodeGenerator
	Tokens       core.TokenIssuer
	Notifier     core.Notifier
	Logger       *slog.Logger
	StoreTimeout time.Duration
	PendingTTL   time.Duration
}

func NewAccountService(deps AccountDeps) *AccountService {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	pending := deps.PendingTTL
	if pending <= 0 {
		pending = DefaultPendingTTL
	}
	return &AccountService{
		store:    deps.Store,
		hasher:   deps.Hasher,
		codes:    deps.Codes,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		log:      log.With("component", "accounts"),
		timeout:  deps.StoreTimeout,
		pending:  pending,
		now:      time.Now,
	}
}

// SignUp registers an unverified account and dispatches its verification code
func (s *AccountService) SignUp(ctx context.Context, input core.SignUpInput) (*core.SignUpResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	pair, err := crypto.NewCodePair(s.codes)
	if err != nil {
		return nil, internalError("generate verification code", err)
	}

	acc := &core.Account{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(input.Name),
		Email:            core.NormalizeEmail(input.Email),
		PasswordHash:     hash,
		VerificationCode: &pair.Digest,
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	err = s.store.CreateAccount(storeCtx, acc, s.now().Add(-s.pending))
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return nil, core.ErrEmailTaken
		}
		return nil, storeError("create account", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, acc.Email, pair.Code); err != nil {
		s.log.ErrorContext(ctx, "verification code dispatch failed", "account_id", acc.ID, "error", err)
		return nil, internalError("dispatch verification code", err)
	}

	s.log.InfoContext(ctx, "account created", "account_id", acc.ID)
	return &core.SignUpResult{ID: acc.ID}, nil
}

// Verify consumes a verification code. Unknown and already used codes are
// indistinguishable.
func (s *AccountService) Verify(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return core.ErrInvalidCode
	}
	digest := crypto.HashToken(code)

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	acc, err := s.store.GetAccountByVerificationCode(storeCtx, digest)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrInvalidCode
		}
		return storeError("find verification code", err)
	}

	verified, empty := true, ""
	_, err = s.store.UpdateAccount(storeCtx, acc.ID, core.AccountPatch{
		Verified:           &verified,
		VerificationCode:   &empty,
		IfVerificationCode: &digest,
	})
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrInvalidCode
		}
		return storeError("verify account", err)
	}

	s.log.InfoContext(ctx, "account verified", "account_id", acc.ID)
	return nil
}

// Login exchanges credentials for a session token. Every failure reports
// ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, input core.LoginInput) (*core.LoginResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	acc, err := s.store.GetAccountByEmail(storeCtx, input.Email)
	cancel()
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			// same work as a real check so timing does not reveal the address
			_, _ = s.hasher.Verify(input.Password, s.dummyHash())
			return nil, core.ErrInvalidCredentials
		}
		return nil, storeError("find account", err)
	}

	ok, err := s.hasher.Verify(input.Password, acc.PasswordHash)
	if err != nil {
		return nil, internalError("verify password", err)
	}
	if !ok || !acc.Verified {
		return nil, core.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(acc.ID, core.ScopeSession)
	if err != nil {
		return nil, internalError("issue session token", err)
	}
	return &core.LoginResult{Auth: token}, nil
}

func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*core.Profile, error) {
	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	acc, err := s.store.GetAccountByID(storeCtx, accountID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrAccountNotFound
		}
		return nil, storeError("get account", err)
	}
	return acc.Profile(), nil
}

// UpdateProfile applies a partial name/avatar update. An empty avatar clears it.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input core.ProfileUpdate) (*core.Profile, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	patch := core.AccountPatch{Avatar: input.Avatar}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		patch.Name = &name
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	acc, err := s.store.UpdateAccount(storeCtx, accountID, patch)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, core.ErrAccountNotFound
		}
		return nil, storeError("update profile", err)
	}
	return acc.Profile(), nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	if err := s.store.DeleteAccount(storeCtx, accountID); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrAccountNotFound
		}
		return storeError("delete account", err)
	}

	s.log.InfoContext(ctx, "account deleted", "account_id", accountID)
	return nil
}

// RequestReset always answers with a reset token. Only a verified account
// gets a stored code and a notification; other addresses get a token for a
// subject that does not exist.
func (s *AccountService) RequestReset(ctx context.Context, input core.ResetRequestInput) (*core.ResetRequestResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	acc, err := s.store.GetAccountByEmail(storeCtx, input.Email)
	if err != nil && !errors.Is(err, core.ErrAccountNotFound) {
		return nil, storeError("find account", err)
	}

	if acc == nil || !acc.Verified {
		return s.resetToken(uuid.NewString())
	}

	pair, err := s.drawCode(acc.VerificationCode)
	if err != nil {
		return nil, internalError("generate reset code", err)
	}

	if _, err := s.store.UpdateAccount(storeCtx, acc.ID, core.AccountPatch{ResetCode: &pair.Digest}); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			// deleted in between; answer like any unknown address
			return s.resetToken(uuid.NewString())
		}
		return nil, storeError("store reset code", err)
	}

	if err := s.notifier.SendResetCode(ctx, acc.Email, pair.Code); err != nil {
		s.log.ErrorContext(ctx, "reset code dispatch failed", "account_id", acc.ID, "error", err)
		return nil, internalError("dispatch reset code", err)
	}

	s.log.InfoContext(ctx, "password reset requested", "account_id", acc.ID)
	return s.resetToken(acc.ID)
}

func (s *AccountService) resetToken(subject string) (*core.ResetRequestResult, error) {
	token, err := s.tokens.Issue(subject, core.ScopePasswordReset)
	if err != nil {
		return nil, internalError("issue reset token", err)
	}
	return &core.ResetRequestResult{Auth: token}, nil
}

// ConfirmReset replaces the password of accountID when code is the reset
// code currently stored for that account. The code is consumed with the
// same write.
func (s *AccountService) ConfirmReset(ctx context.Context, accountID string, input core.ResetConfirmInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	acc, err := s.store.GetAccountByID(storeCtx, accountID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrAccountNotFound
		}
		return storeError("get account", err)
	}

	if strings.TrimSpace(input.Code) == "" {
		return core.ErrInvalidCode
	}
	digest := crypto.HashToken(input.Code)

	holder, err := s.store.GetAccountByResetCode(storeCtx, digest)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrInvalidCode
		}
		return storeError("find reset code", err)
	}
	if holder.ID != acc.ID {
		return core.ErrInvalidCode
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return internalError("hash password", err)
	}

	empty := ""
	_, err = s.store.UpdateAccount(storeCtx, acc.ID, core.AccountPatch{
		PasswordHash: &hash,
		ResetCode:    &empty,
		IfResetCode:  &digest,
	})
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return core.ErrInvalidCode
		}
		return storeError("reset password", err)
	}

	s.log.InfoContext(ctx, "password reset", "account_id", acc.ID)
	return nil
}

// drawCode returns a code whose digest differs from avoid
func (s *AccountService) drawCode(avoid *string) (*crypto.CodePair, error) {
	var lastErr error
	for i := 0; i < codeRedraws; i++ {
		pair, err := crypto.NewCodePair(s.codes)
		if err != nil {
			lastErr = err
			continue
		}
		if avoid == nil || pair.Digest != *avoid {
			return pair, nil
		}
		lastErr = errors.New("generated code collides with an existing one")
	}
	return nil, lastErr
}

// dummyHash is verified against when no account matches so that lookups of
// unknown addresses cost the same as real ones
func (s *AccountService) dummyHash() string {
	if d, ok := s.hasher.(interface{ DummyHash() string }); ok {
		return d.DummyHash()
	}
	s.dummyOnce.Do(func() {
		secret := make([]byte, 32)
		_, _ = rand.Read(secret)
		s.dummy, _ = s.hasher.Hash(base64.RawStdEncoding.EncodeToString(secret))
	})
	return s.dummy
}

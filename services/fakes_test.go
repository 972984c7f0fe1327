package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lborres/reel/adapters/memory"
	"github.com/lborres/reel/adapters/notify"
	"github.com/lborres/reel/core"
	"github.com/lborres/reel/pkg/cache"
	"github.com/lborres/reel/pkg/crypto"
	"github.com/lborres/reel/pkg/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// FakeStorage wraps the memory store and fails chosen operations on demand
type FakeStorage struct {
	core.Storage

	mu    sync.Mutex
	fails map[string]error
	calls map[string]int
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		Storage: memory.New(),
		fails:   make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Fail makes op return err from now on. A nil err clears it.
func (f *FakeStorage) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fails, op)
		return
	}
	f.fails[op] = err
}

func (f *FakeStorage) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeStorage) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fails[op]
}

func (f *FakeStorage) CreateAccount(ctx context.Context, a *core.Account, staleBefore time.Time) error {
	if err := f.hit("CreateAccount"); err != nil {
		return err
	}
	return f.Storage.CreateAccount(ctx, a, staleBefore)
}

func (f *FakeStorage) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	if err := f.hit("GetAccountByEmail"); err != nil {
		return nil, err
	}
	return f.Storage.GetAccountByEmail(ctx, email)
}

func (f *FakeStorage) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	if err := f.hit("GetAccountByID"); err != nil {
		return nil, err
	}
	return f.Storage.GetAccountByID(ctx, id)
}

func (f *FakeStorage) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (*core.Account, error) {
	if err := f.hit("UpdateAccount"); err != nil {
		return nil, err
	}
	return f.Storage.UpdateAccount(ctx, id, patch)
}

func (f *FakeStorage) GetMovie(ctx context.Context, id string) (*core.Movie, error) {
	if err := f.hit("GetMovie"); err != nil {
		return nil, err
	}
	return f.Storage.GetMovie(ctx, id)
}

func (f *FakeStorage) ListMovies(ctx context.Context, filter core.MovieFilter) ([]*core.Movie, error) {
	if err := f.hit("ListMovies"); err != nil {
		return nil, err
	}
	return f.Storage.ListMovies(ctx, filter)
}

func (f *FakeStorage) GetActor(ctx context.Context, id string) (*core.Actor, error) {
	if err := f.hit("GetActor"); err != nil {
		return nil, err
	}
	return f.Storage.GetActor(ctx, id)
}

// fixedCodes hands out the same code every time
type fixedCodes string

func (c fixedCodes) Generate() (string, error) { return string(c), nil }

// countingHasher records how many verifications ran
type countingHasher struct {
	core.PasswordHandler

	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(password, hash string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHandler.Verify(password, hash)
}

func (h *countingHasher) Verifies() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type accountFixture struct {
	service *AccountService
	store   *FakeStorage
	outbox  *notify.Outbox
	tokens  *token.Issuer
	hasher  *countingHasher
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	codes, err := crypto.NewNanoID("")
	if err != nil {
		t.Fatalf("NewNanoID() error = %v", err)
	}
	tokens, err := token.NewIssuer(token.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	f := &accountFixture{
		store:  NewFakeStorage(),
		outbox: notify.NewOutbox(),
		tokens: tokens,
		hasher: &countingHasher{PasswordHandler: crypto.NewArgon2().WithCost(1024, 1)},
	}
	f.service = NewAccountService(AccountDeps{
		Store:    f.store,
		Hasher:   f.hasher,
		Codes:    codes,
		Tokens:   tokens,
		Notifier: f.outbox,
		Logger:   quietLogger(),
	})
	return f
}

// signUpVerified registers and verifies an account, returning its id
func (f *accountFixture) signUpVerified(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	res, err := f.service.SignUp(ctx, core.SignUpInput{Name: "Ann", Email: email, Password: password})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	msg, ok := f.outbox.Last(notify.KindVerification, core.NormalizeEmail(email))
	if !ok {
		t.Fatal("SignUp() sent no verification code")
	}
	if err := f.service.Verify(ctx, msg.Code); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	return res.ID
}

type catalogFixture struct {
	service *CatalogService
	store   *FakeStorage
	movies  *cache.Memory[*core.Movie]
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()

	f := &catalogFixture{
		store:  NewFakeStorage(),
		movies: cache.NewMemory[*core.Movie](core.CacheConfig{}),
	}
	f.service = NewCatalogService(CatalogDeps{
		Store:  f.store,
		Movies: f.movies,
		Actors: cache.NewMemory[*core.Actor](core.CacheConfig{}),
		Logger: quietLogger(),
	})
	return f
}

// Package memory is a process-local Storage used by tests and the
// -store=memory mode. It enforces the same constraints as the SQL backends.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/reel/core"
)

type Adapter struct {
	mu sync.RWMutex

	accounts map[string]*core.Account // key: id
	byEmail  map[string]string        // normalized email -> id

	actors map[string]*core.Actor
	movies map[string]*core.Movie

	now func() time.Time
}

var _ core.Storage = (*Adapter)(nil)

func New() *Adapter {
	return &Adapter{
		accounts: make(map[string]*core.Account),
		byEmail:  make(map[string]string),
		actors:   make(map[string]*core.Actor),
		movies:   make(map[string]*core.Movie),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *Adapter) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (a *Adapter) Close() error {
	return nil
}

// ============================================
// ACCOUNTS
// ============================================

func (a *Adapter) CreateAccount(ctx context.Context, acc *core.Account, staleBefore time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	email := core.NormalizeEmail(acc.Email)
	if id, exists := a.byEmail[email]; exists {
		holder := a.accounts[id]
		if holder.Verified || !holder.CreatedAt.Before(staleBefore) {
			return core.ErrEmailTaken
		}
		delete(a.accounts, id)
	}

	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := a.now()
	acc.Email = email
	acc.CreatedAt = now
	acc.UpdatedAt = now

	a.accounts[acc.ID] = cloneAccount(acc)
	a.byEmail[email] = acc.ID
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	return a.findAccount(ctx, func(acc *core.Account) bool { return acc.ID == id })
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	id, ok := a.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return cloneAccount(a.accounts[id]), nil
}

func (a *Adapter) GetAccountByVerificationCode(ctx context.Context, digest string) (*core.Account, error) {
	return a.findAccount(ctx, func(acc *core.Account) bool {
		return acc.VerificationCode != nil && *acc.VerificationCode == digest
	})
}

func (a *Adapter) GetAccountByResetCode(ctx context.Context, digest string) (*core.Account, error) {
	return a.findAccount(ctx, func(acc *core.Account) bool {
		return acc.ResetCode != nil && *acc.ResetCode == digest
	})
}

func (a *Adapter) findAccount(ctx context.Context, match func(*core.Account) bool) (*core.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, acc := range a.accounts {
		if match(acc) {
			return cloneAccount(acc), nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (a *Adapter) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (*core.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.accounts[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	if patch.IfVerificationCode != nil && !equalPtr(acc.VerificationCode, *patch.IfVerificationCode) {
		return nil, core.ErrAccountNotFound
	}
	if patch.IfResetCode != nil && !equalPtr(acc.ResetCode, *patch.IfResetCode) {
		return nil, core.ErrAccountNotFound
	}

	if patch.Name != nil {
		acc.Name = *patch.Name
	}
	if patch.Avatar != nil {
		acc.Avatar = nullable(*patch.Avatar)
	}
	if patch.PasswordHash != nil {
		acc.PasswordHash = *patch.PasswordHash
	}
	if patch.Verified != nil {
		acc.Verified = *patch.Verified
	}
	if patch.VerificationCode != nil {
		acc.VerificationCode = nullable(*patch.VerificationCode)
	}
	if patch.ResetCode != nil {
		acc.ResetCode = nullable(*patch.ResetCode)
	}
	acc.UpdatedAt = a.now()

	return cloneAccount(acc), nil
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	delete(a.accounts, id)
	delete(a.byEmail, acc.Email)
	return nil
}

// ============================================
// ACTORS
// ============================================

func (a *Adapter) CreateActor(ctx context.Context, actor *core.Actor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if actor.ID == "" {
		actor.ID = uuid.NewString()
	}
	now := a.now()
	actor.CreatedAt = now
	actor.UpdatedAt = now
	a.actors[actor.ID] = actor.Clone()
	return nil
}

func (a *Adapter) GetActor(ctx context.Context, id string) (*core.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	actor, ok := a.actors[id]
	if !ok {
		return nil, core.ErrActorNotFound
	}
	return actor.Clone(), nil
}

func (a *Adapter) ListActors(ctx context.Context) ([]*core.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*core.Actor, 0, len(a.actors))
	for _, actor := range a.actors {
		out = append(out, actor.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (a *Adapter) UpdateActor(ctx context.Context, actor *core.Actor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.actors[actor.ID]
	if !ok {
		return core.ErrActorNotFound
	}
	actor.CreatedAt = existing.CreatedAt
	actor.UpdatedAt = a.now()
	a.actors[actor.ID] = actor.Clone()
	return nil
}

func (a *Adapter) DeleteActor(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.actors[id]; !ok {
		return core.ErrActorNotFound
	}
	for _, m := range a.movies {
		if contains(m.Actors, id) {
			return core.ErrActorInUse
		}
	}
	delete(a.actors, id)
	return nil
}

// ============================================
// MOVIES
// ============================================

func (a *Adapter) CreateMovie(ctx context.Context, m *core.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkActors(m.Actors); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := a.now()
	m.CreatedAt = now
	m.UpdatedAt = now
	a.movies[m.ID] = m.Clone()
	return nil
}

func (a *Adapter) GetMovie(ctx context.Context, id string) (*core.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.movies[id]
	if !ok {
		return nil, core.ErrMovieNotFound
	}
	return m.Clone(), nil
}

func (a *Adapter) ListMovies(ctx context.Context, filter core.MovieFilter) ([]*core.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*core.Movie, 0, len(a.movies))
	for _, m := range a.movies {
		if matches(m, filter) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (a *Adapter) UpdateMovie(ctx context.Context, m *core.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.movies[m.ID]
	if !ok {
		return core.ErrMovieNotFound
	}
	if err := a.checkActors(m.Actors); err != nil {
		return err
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = a.now()
	a.movies[m.ID] = m.Clone()
	return nil
}

func (a *Adapter) DeleteMovie(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.movies[id]; !ok {
		return core.ErrMovieNotFound
	}
	delete(a.movies, id)
	return nil
}

// checkActors must be called with the write lock held
func (a *Adapter) checkActors(ids []string) error {
	for _, id := range ids {
		if _, ok := a.actors[id]; !ok {
			return core.ErrActorNotFound
		}
	}
	return nil
}

func matches(m *core.Movie, f core.MovieFilter) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Year != 0 && m.Year != f.Year {
		return false
	}
	if f.Genre != "" && !contains(m.Genres, f.Genre) {
		return false
	}
	if f.Director != "" && !containsFold(m.Directors, f.Director) {
		return false
	}
	if f.Actor != "" && !contains(m.Actors, f.Actor) {
		return false
	}
	if f.Producer != "" && !strings.Contains(strings.ToLower(m.Producer), strings.ToLower(f.Producer)) {
		return false
	}
	return true
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func equalPtr(p *string, v string) bool {
	return p != nil && *p == v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAccount(a *core.Account) *core.Account {
	c := *a
	c.Avatar = cloneString(a.Avatar)
	c.VerificationCode = cloneString(a.VerificationCode)
	c.ResetCode = cloneString(a.ResetCode)
	return &c
}


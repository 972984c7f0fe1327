package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/reel/core"
)

type CatalogService struct {
	store   core.CatalogStorage
	movies  core.Cache[*core.Movie] // nil disables caching
	actors  core.Cache[*core.Actor]
	log     *slog.Logger
	timeout time.Duration
}

var _ core.CatalogHandler = (*CatalogService)(nil)

type CatalogDeps struct {
	Store        core.CatalogStorage
	Movies       core.Cache[*core.Movie]
	Actors       core.Cache[*core.Actor]
	Logger       *slog.Logger
	StoreTimeout time.Duration
}

func NewCatalogService(deps CatalogDeps) *CatalogService {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{
		store:   deps.Store,
		movies:  deps.Movies,
		actors:  deps.Actors,
		log:     log.With("component", "catalog"),
		timeout: deps.StoreTimeout,
	}
}

// validID reports whether id can name a catalog record. Anything else is
// treated as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ============================================
// MOVIES
// ============================================

func (s *CatalogService) ListMovies(ctx context.Context, filter core.MovieFilter) ([]*core.Movie, error) {
	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	movies, err := s.store.ListMovies(storeCtx, filter)
	if err != nil {
		return nil, storeError("list movies", err)
	}
	return movies, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id string) (*core.Movie, error) {
	if !validID(id) {
		return nil, core.ErrMovieNotFound
	}
	if s.movies != nil {
		if m, ok := s.movies.Get(id); ok {
			return m.Clone(), nil
		}
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	m, err := s.store.GetMovie(storeCtx, id)
	if err != nil {
		if errors.Is(err, core.ErrMovieNotFound) {
			return nil, core.ErrMovieNotFound
		}
		return nil, storeError("get movie", err)
	}

	if s.movies != nil {
		s.movies.Set(id, m.Clone())
	}
	return m, nil
}

func (s *CatalogService) CreateMovie(ctx context.Context, input core.MovieInput) (*core.Movie, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	m := movieFromInput(uuid.NewString(), input)

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	if err := s.store.CreateMovie(storeCtx, m); err != nil {
		return nil, movieWriteError("create movie", err)
	}

	s.log.InfoContext(ctx, "movie created", "movie_id", m.ID)
	return m, nil
}

// UpdateMovie replaces every writable field of the movie
func (s *CatalogService) UpdateMovie(ctx context.Context, id string, input core.MovieInput) (*core.Movie, error) {
	if !validID(id) {
		return nil, core.ErrMovieNotFound
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	m := movieFromInput(id, input)

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	err := s.store.UpdateMovie(storeCtx, m)
	s.forgetMovie(id)
	if err != nil {
		return nil, movieWriteError("update movie", err)
	}
	return m, nil
}

func (s *CatalogService) DeleteMovie(ctx context.Context, id string) error {
	if !validID(id) {
		return core.ErrMovieNotFound
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	err := s.store.DeleteMovie(storeCtx, id)
	s.forgetMovie(id)
	if err != nil {
		if errors.Is(err, core.ErrMovieNotFound) {
			return core.ErrMovieNotFound
		}
		return storeError("delete movie", err)
	}

	s.log.InfoContext(ctx, "movie deleted", "movie_id", id)
	return nil
}

func (s *CatalogService) forgetMovie(id string) {
	if s.movies != nil {
		s.movies.Delete(id)
	}
}

// movieWriteError maps a failed movie write. A dangling actor reference is
// the caller's mistake, reported on the actors field.
func movieWriteError(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrMovieNotFound):
		return core.ErrMovieNotFound
	case errors.Is(err, core.ErrActorNotFound):
		return core.NewValidationError("actors", "references an unknown actor")
	default:
		return storeError(op, err)
	}
}

func movieFromInput(id string, input core.MovieInput) *core.Movie {
	directors := make([]string, 0, len(input.Directors))
	for _, d := range input.Directors {
		directors = append(directors, strings.TrimSpace(d))
	}

	return &core.Movie{
		ID:        id,
		Title:     strings.TrimSpace(input.Title),
		Year:      input.Year,
		Genres:    dedupe(input.Genres),
		Directors: dedupe(directors),
		Actors:    dedupe(input.Actors),
		Producer:  strings.TrimSpace(input.Producer),
		Plot:      optional(input.Plot),
		Poster:    optional(input.Poster),
	}
}

// dedupe drops repeated items, keeping first-seen order
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ============================================
// ACTORS
// ============================================

func (s *CatalogService) ListActors(ctx context.Context) ([]*core.Actor, error) {
	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	actors, err := s.store.ListActors(storeCtx)
	if err != nil {
		return nil, storeError("list actors", err)
	}
	return actors, nil
}

func (s *CatalogService) GetActor(ctx context.Context, id string) (*core.Actor, error) {
	if !validID(id) {
		return nil, core.ErrActorNotFound
	}
	if s.actors != nil {
		if a, ok := s.actors.Get(id); ok {
			return a.Clone(), nil
		}
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	a, err := s.store.GetActor(storeCtx, id)
	if err != nil {
		if errors.Is(err, core.ErrActorNotFound) {
			return nil, core.ErrActorNotFound
		}
		return nil, storeError("get actor", err)
	}

	if s.actors != nil {
		s.actors.Set(id, a.Clone())
	}
	return a, nil
}

// ListActorMovies returns the movies featuring an existing actor
func (s *CatalogService) ListActorMovies(ctx context.Context, id string) ([]*core.Movie, error) {
	if _, err := s.GetActor(ctx, id); err != nil {
		return nil, err
	}
	return s.ListMovies(ctx, core.MovieFilter{Actor: id})
}

func (s *CatalogService) CreateActor(ctx context.Context, input core.ActorInput) (*core.Actor, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	a := actorFromInput(uuid.NewString(), input)

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	if err := s.store.CreateActor(storeCtx, a); err != nil {
		return nil, storeError("create actor", err)
	}

	s.log.InfoContext(ctx, "actor created", "actor_id", a.ID)
	return a, nil
}

func (s *CatalogService) UpdateActor(ctx context.Context, id string, input core.ActorInput) (*core.Actor, error) {
	if !validID(id) {
		return nil, core.ErrActorNotFound
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	a := actorFromInput(id, input)

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	err := s.store.UpdateActor(storeCtx, a)
	s.forgetActor(id)
	if err != nil {
		if errors.Is(err, core.ErrActorNotFound) {
			return nil, core.ErrActorNotFound
		}
		return nil, storeError("update actor", err)
	}
	return a, nil
}

// DeleteActor refuses with ErrActorInUse while any movie lists the actor
func (s *CatalogService) DeleteActor(ctx context.Context, id string) error {
	if !validID(id) {
		return core.ErrActorNotFound
	}

	storeCtx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	err := s.store.DeleteActor(storeCtx, id)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrActorNotFound):
			s.forgetActor(id)
			return core.ErrActorNotFound
		case errors.Is(err, core.ErrActorInUse):
			return core.ErrActorInUse
		default:
			return storeError("delete actor", err)
		}
	}

	s.forgetActor(id)
	s.log.InfoContext(ctx, "actor deleted", "actor_id", id)
	return nil
}

func (s *CatalogService) forgetActor(id string) {
	if s.actors != nil {
		s.actors.Delete(id)
	}
}

func actorFromInput(id string, input core.ActorInput) *core.Actor {
	return &core.Actor{
		ID:     id,
		Name:   strings.TrimSpace(input.Name),
		Bio:    optional(input.Bio),
		Avatar: optional(input.Avatar),
	}
}

// optional treats a blank string like an absent one
func optional(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

package pgx

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/internal/sqlutil"
)

// ============================================
// ACTORS
// ============================================

const actorColumns = `id, name, bio, avatar, created_at, updated_at`

func scanActor(row pgx.Row) (*reel.Actor, error) {
	actor := &reel.Actor{}
	if err := row.Scan(&actor.ID, &actor.Name, &actor.Bio, &actor.Avatar, &actor.CreatedAt, &actor.UpdatedAt); err != nil {
		return nil, err
	}
	return actor, nil
}

func (a *Adapter) CreateActor(ctx context.Context, actor *reel.Actor) error {
	if actor.ID == "" {
		actor.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	q := `INSERT INTO actors (id, name, bio, avatar, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $5)
	      RETURNING created_at, updated_at`
	err := a.pool.QueryRow(ctx, q, actor.ID, actor.Name, actor.Bio, actor.Avatar, now).
		Scan(&actor.CreatedAt, &actor.UpdatedAt)
	return classify(err)
}

func (a *Adapter) GetActor(ctx context.Context, id string) (*reel.Actor, error) {
	actor, err := scanActor(a.pool.QueryRow(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, reel.ErrActorNotFound
		}
		return nil, classify(err)
	}
	return actor, nil
}

func (a *Adapter) ListActors(ctx context.Context) ([]*reel.Actor, error) {
	rows, err := a.pool.Query(ctx, `SELECT `+actorColumns+` FROM actors ORDER BY name, id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	actors := make([]*reel.Actor, 0)
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, classify(err)
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return actors, nil
}

func (a *Adapter) UpdateActor(ctx context.Context, actor *reel.Actor) error {
	q := `UPDATE actors SET name = $1, bio = $2, avatar = $3, updated_at = $4
	      WHERE id = $5
	      RETURNING created_at, updated_at`
	err := a.pool.QueryRow(ctx, q, actor.Name, actor.Bio, actor.Avatar, time.Now().UTC(), actor.ID).
		Scan(&actor.CreatedAt, &actor.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return reel.ErrActorNotFound
		}
		return classify(err)
	}
	return nil
}

func (a *Adapter) DeleteActor(ctx context.Context, id string) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == codeForeignKeyViolation {
			return reel.ErrActorInUse
		}
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return reel.ErrActorNotFound
	}
	return nil
}

// ============================================
// MOVIES
// ============================================

const movieColumns = `m.id, m.title, m.year, m.genres, m.directors,
	ARRAY(SELECT ma.actor_id FROM movie_actors ma WHERE ma.movie_id = m.id ORDER BY ma.position),
	m.producer, m.plot, m.poster, m.created_at, m.updated_at`

func scanMovie(row pgx.Row) (*reel.Movie, error) {
	m := &reel.Movie{}
	err := row.Scan(
		&m.ID, &m.Title, &m.Year, &m.Genres, &m.Directors, &m.Actors,
		&m.Producer, &m.Plot, &m.Poster, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (a *Adapter) CreateMovie(ctx context.Context, m *reel.Movie) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer rollback(ctx, tx)

	q := `INSERT INTO movies (id, title, year, genres, directors, producer, plot, poster, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	      RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, q,
		m.ID, m.Title, m.Year, m.Genres, m.Directors, m.Producer, m.Plot, m.Poster, now,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return classify(err)
	}

	if err := linkActors(ctx, tx, m.ID, m.Actors); err != nil {
		return err
	}
	return classify(tx.Commit(ctx))
}

func (a *Adapter) GetMovie(ctx context.Context, id string) (*reel.Movie, error) {
	m, err := scanMovie(a.pool.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, reel.ErrMovieNotFound
		}
		return nil, classify(err)
	}
	return m, nil
}

func (a *Adapter) ListMovies(ctx context.Context, filter reel.MovieFilter) ([]*reel.Movie, error) {
	q, args := movieQuery(filter)

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	movies := make([]*reel.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, classify(err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return movies, nil
}

func movieQuery(filter reel.MovieFilter) (string, []any) {
	args := sqlutil.NewArgs(sqlutil.Postgres)
	var where []string

	if filter.Title != "" {
		where = append(where, `lower(m.title) LIKE `+args.Add(sqlutil.LikePattern(filter.Title))+` ESCAPE '\'`)
	}
	if filter.Year != 0 {
		where = append(where, `m.year = `+args.Add(filter.Year))
	}
	if filter.Genre != "" {
		where = append(where, args.Add(filter.Genre)+` = ANY(m.genres)`)
	}
	if filter.Director != "" {
		where = append(where, `EXISTS (SELECT 1 FROM unnest(m.directors) d WHERE lower(d) = `+args.Add(strings.ToLower(filter.Director))+`)`)
	}
	if filter.Actor != "" {
		where = append(where, `EXISTS (SELECT 1 FROM movie_actors ma WHERE ma.movie_id = m.id AND ma.actor_id = `+args.Add(filter.Actor)+`)`)
	}
	if filter.Producer != "" {
		where = append(where, `lower(m.producer) LIKE `+args.Add(sqlutil.LikePattern(filter.Producer))+` ESCAPE '\'`)
	}

	q := `SELECT ` + movieColumns + ` FROM movies m`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY m.title, m.id`
	return q, args.Values()
}

func (a *Adapter) UpdateMovie(ctx context.Context, m *reel.Movie) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer rollback(ctx, tx)

	q := `UPDATE movies SET title = $1, year = $2, genres = $3, directors = $4, producer = $5, plot = $6, poster = $7, updated_at = $8
	      WHERE id = $9
	      RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, q,
		m.Title, m.Year, m.Genres, m.Directors, m.Producer, m.Plot, m.Poster, time.Now().UTC(), m.ID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return reel.ErrMovieNotFound
		}
		return classify(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM movie_actors WHERE movie_id = $1`, m.ID); err != nil {
		return classify(err)
	}
	if err := linkActors(ctx, tx, m.ID, m.Actors); err != nil {
		return err
	}
	return classify(tx.Commit(ctx))
}

func (a *Adapter) DeleteMovie(ctx context.Context, id string) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return reel.ErrMovieNotFound
	}
	return nil
}

// linkActors writes the movie_actors rows for movieID in one batch.
// A missing actor surfaces as ErrActorNotFound.
func linkActors(ctx context.Context, tx pgx.Tx, movieID string, actorIDs []string) error {
	b := &pgx.Batch{}
	for i, actorID := range actorIDs {
		b.Queue(`INSERT INTO movie_actors (movie_id, actor_id, position) VALUES ($1, $2, $3)
		         ON CONFLICT (movie_id, actor_id) DO NOTHING`, movieID, actorID, i)
	}

	br := tx.SendBatch(ctx, b)
	for range actorIDs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if pgErr, ok := pgError(err); ok && pgErr.Code == codeForeignKeyViolation {
				return reel.ErrActorNotFound
			}
			return classify(err)
		}
	}
	return classify(br.Close())
}

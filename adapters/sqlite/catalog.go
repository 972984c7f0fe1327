package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/internal/sqlutil"
)

// ============================================
// ACTORS
// ============================================

const actorColumns = `id, name, bio, avatar, created_at, updated_at`

func scanActor(row scanner) (*reel.Actor, error) {
	actor := &reel.Actor{}
	var createdAt, updatedAt int64
	if err := row.Scan(&actor.ID, &actor.Name, &actor.Bio, &actor.Avatar, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	actor.CreatedAt = fromMillis(createdAt)
	actor.UpdatedAt = fromMillis(updatedAt)
	return actor, nil
}

func (a *Adapter) CreateActor(ctx context.Context, actor *reel.Actor) error {
	if actor.ID == "" {
		actor.ID = uuid.NewString()
	}
	now := millis(a.now())

	_, err := a.exec(ctx,
		`INSERT INTO actors (id, name, bio, avatar, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		actor.ID, actor.Name, text(actor.Bio), text(actor.Avatar), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert actor: %w", classify(err))
	}
	actor.CreatedAt = fromMillis(now)
	actor.UpdatedAt = actor.CreatedAt
	return nil
}

func (a *Adapter) GetActor(ctx context.Context, id string) (*reel.Actor, error) {
	actor, err := scanActor(a.db.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reel.ErrActorNotFound
		}
		return nil, fmt.Errorf("query actor: %w", classify(err))
	}
	return actor, nil
}

func (a *Adapter) ListActors(ctx context.Context) ([]*reel.Actor, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+actorColumns+` FROM actors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query actors: %w", classify(err))
	}
	defer rows.Close()

	actors := make([]*reel.Actor, 0)
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query actors: %w", classify(err))
	}
	return actors, nil
}

func (a *Adapter) UpdateActor(ctx context.Context, actor *reel.Actor) error {
	a.writeLock.Lock()
	defer a.writeLock.Unlock()

	var createdAt, updatedAt int64
	err := a.db.QueryRowContext(ctx,
		`UPDATE actors SET name = ?, bio = ?, avatar = ?, updated_at = ? WHERE id = ? RETURNING created_at, updated_at`,
		actor.Name, text(actor.Bio), text(actor.Avatar), millis(a.now()), actor.ID,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reel.ErrActorNotFound
		}
		return fmt.Errorf("update actor: %w", classify(err))
	}
	actor.CreatedAt = fromMillis(createdAt)
	actor.UpdatedAt = fromMillis(updatedAt)
	return nil
}

func (a *Adapter) DeleteActor(ctx context.Context, id string) error {
	res, err := a.exec(ctx, `DELETE FROM actors WHERE id = ?`, id)
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
			return errors.Join(reel.ErrActorInUse, err)
		}
		return fmt.Errorf("delete actor: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reel.ErrActorNotFound
	}
	return nil
}

// ============================================
// MOVIES
// ============================================

const movieColumns = `m.id, m.title, m.year, m.genres, m.directors,
	(SELECT json_group_array(ma.actor_id ORDER BY ma.position) FROM movie_actors ma WHERE ma.movie_id = m.id),
	m.producer, m.plot, m.poster, m.created_at, m.updated_at`

func scanMovie(row scanner) (*reel.Movie, error) {
	m := &reel.Movie{}
	var genres, directors, actors string
	var createdAt, updatedAt int64
	err := row.Scan(
		&m.ID, &m.Title, &m.Year, &genres, &directors, &actors,
		&m.Producer, &m.Plot, &m.Poster, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw string
		dst *[]string
	}{{genres, &m.Genres}, {directors, &m.Directors}, {actors, &m.Actors}} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decode list column: %w", err)
		}
	}
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return m, nil
}

func jsonList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *Adapter) CreateMovie(ctx context.Context, m *reel.Movie) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	genres, directors, err := movieLists(m)
	if err != nil {
		return err
	}
	now := millis(a.now())

	err = a.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO movies (id, title, year, genres, directors, producer, plot, poster, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Title, m.Year, genres, directors, m.Producer, text(m.Plot), text(m.Poster), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert movie: %w", classify(err))
		}
		return linkActors(ctx, tx, m.ID, m.Actors)
	})
	if err != nil {
		return err
	}

	m.CreatedAt = fromMillis(now)
	m.UpdatedAt = m.CreatedAt
	return nil
}

func (a *Adapter) GetMovie(ctx context.Context, id string) (*reel.Movie, error) {
	m, err := scanMovie(a.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reel.ErrMovieNotFound
		}
		return nil, fmt.Errorf("query movie: %w", classify(err))
	}
	return m, nil
}

func (a *Adapter) ListMovies(ctx context.Context, filter reel.MovieFilter) ([]*reel.Movie, error) {
	q, args := movieQuery(filter)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", classify(err))
	}
	defer rows.Close()

	movies := make([]*reel.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query movies: %w", classify(err))
	}
	return movies, nil
}

func movieQuery(filter reel.MovieFilter) (string, []any) {
	args := sqlutil.NewArgs(sqlutil.SQLite)
	var where []string

	if filter.Title != "" {
		where = append(where, `lower(m.title) LIKE `+args.Add(sqlutil.LikePattern(filter.Title))+` ESCAPE '\'`)
	}
	if filter.Year != 0 {
		where = append(where, `m.year = `+args.Add(filter.Year))
	}
	if filter.Genre != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(m.genres) g WHERE g.value = `+args.Add(filter.Genre)+`)`)
	}
	if filter.Director != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(m.directors) d WHERE lower(d.value) = `+args.Add(strings.ToLower(filter.Director))+`)`)
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
	genres, directors, err := movieLists(m)
	if err != nil {
		return err
	}

	var createdAt, updatedAt int64
	err = a.tx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE movies SET title = ?, year = ?, genres = ?, directors = ?, producer = ?, plot = ?, poster = ?, updated_at = ?
			 WHERE id = ? RETURNING created_at, updated_at`,
			m.Title, m.Year, genres, directors, m.Producer, text(m.Plot), text(m.Poster), millis(a.now()), m.ID,
		).Scan(&createdAt, &updatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return reel.ErrMovieNotFound
			}
			return fmt.Errorf("update movie: %w", classify(err))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM movie_actors WHERE movie_id = ?`, m.ID); err != nil {
			return fmt.Errorf("unlink actors: %w", classify(err))
		}
		return linkActors(ctx, tx, m.ID, m.Actors)
	})
	if err != nil {
		return err
	}

	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return nil
}

func (a *Adapter) DeleteMovie(ctx context.Context, id string) error {
	res, err := a.exec(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reel.ErrMovieNotFound
	}
	return nil
}

func movieLists(m *reel.Movie) (genres, directors string, err error) {
	if genres, err = jsonList(m.Genres); err != nil {
		return "", "", fmt.Errorf("encode genres: %w", err)
	}
	if directors, err = jsonList(m.Directors); err != nil {
		return "", "", fmt.Errorf("encode directors: %w", err)
	}
	return genres, directors, nil
}

// linkActors writes the movie_actors rows for movieID.
// A missing actor surfaces as ErrActorNotFound.
func linkActors(ctx context.Context, tx *sql.Tx, movieID string, actorIDs []string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO movie_actors (movie_id, actor_id, position) VALUES (?, ?, ?)
		 ON CONFLICT (movie_id, actor_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare link: %w", classify(err))
	}
	defer stmt.Close()

	for i, actorID := range actorIDs {
		if _, err := stmt.ExecContext(ctx, movieID, actorID, i); err != nil {
			if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
				return errors.Join(reel.ErrActorNotFound, err)
			}
			return fmt.Errorf("link actor: %w", classify(err))
		}
	}
	return nil
}

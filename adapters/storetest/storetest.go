// Package storetest is a behavioural suite every reel.Storage backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/reel"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) reel.Storage

func Run(t *testing.T, newStore Factory) {
	t.Run("accounts", func(t *testing.T) { runAccounts(t, newStore) })
	t.Run("actors", func(t *testing.T) { runActors(t, newStore) })
	t.Run("movies", func(t *testing.T) { runMovies(t, newStore) })
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func unverified(email, digest string) *reel.Account {
	return &reel.Account{
		Name:             "Ann",
		Email:            email,
		PasswordHash:     "$argon2id$hash",
		VerificationCode: strPtr(digest),
	}
}

func verified(email string) *reel.Account {
	return &reel.Account{
		Name:         "Ann",
		Email:        email,
		PasswordHash: "$argon2id$hash",
		Verified:     true,
	}
}

func runAccounts(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create assigns id and normalizes email", func(t *testing.T) {
		s := newStore(t)
		acc := unverified("  Ann@Example.COM ", "digest-1")

		require.NoError(t, s.CreateAccount(ctx, acc, time.Time{}))

		assert.NotEmpty(t, acc.ID)
		assert.Equal(t, "ann@example.com", acc.Email)
		assert.False(t, acc.CreatedAt.IsZero())

		got, err := s.GetAccountByEmail(ctx, "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
		assert.Equal(t, "$argon2id$hash", got.PasswordHash)
		require.NotNil(t, got.VerificationCode)
		assert.Equal(t, "digest-1", *got.VerificationCode)
		assert.Nil(t, got.ResetCode)
	})

	t.Run("verified email is taken", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateAccount(ctx, verified("ann@example.com"), time.Time{}))

		err := s.CreateAccount(ctx, unverified("Ann@example.com", "digest-2"), time.Now().Add(time.Hour))

		assert.ErrorIs(t, err, reel.ErrEmailTaken)
	})

	t.Run("unverified holder is superseded", func(t *testing.T) {
		s := newStore(t)
		first := unverified("ann@example.com", "digest-1")
		require.NoError(t, s.CreateAccount(ctx, first, time.Time{}))

		second := unverified("ann@example.com", "digest-2")
		second.Name = "Second"
		require.NoError(t, s.CreateAccount(ctx, second, time.Now().Add(time.Hour)))

		_, err := s.GetAccountByID(ctx, first.ID)
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		_, err = s.GetAccountByVerificationCode(ctx, "digest-1")
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)

		got, err := s.GetAccountByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, "Second", got.Name)
	})

	t.Run("fresh unverified holder keeps the email", func(t *testing.T) {
		s := newStore(t)
		first := unverified("ann@example.com", "digest-1")
		require.NoError(t, s.CreateAccount(ctx, first, time.Time{}))

		err := s.CreateAccount(ctx, unverified("ann@example.com", "digest-2"), time.Now().Add(-time.Hour))

		assert.ErrorIs(t, err, reel.ErrEmailTaken)
		got, err := s.GetAccountByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("concurrent creates with one email admit one", func(t *testing.T) {
		s := newStore(t)
		const writers = 8
		staleBefore := time.Now().Add(-time.Hour)

		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.CreateAccount(ctx, unverified("Race@example.com", fmt.Sprintf("digest-%d", i)), staleBefore)
			}()
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, reel.ErrEmailTaken)
		}
		assert.Equal(t, 1, created)
	})

	t.Run("lookups report not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetAccountByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		_, err = s.GetAccountByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		_, err = s.GetAccountByVerificationCode(ctx, "nope")
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		_, err = s.GetAccountByResetCode(ctx, "nope")
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
	})

	t.Run("guarded verification applies once", func(t *testing.T) {
		s := newStore(t)
		acc := unverified("ann@example.com", "digest-v")
		require.NoError(t, s.CreateAccount(ctx, acc, time.Time{}))

		patch := reel.AccountPatch{
			Verified:           boolPtr(true),
			VerificationCode:   strPtr(""),
			IfVerificationCode: strPtr("digest-v"),
		}

		got, err := s.UpdateAccount(ctx, acc.ID, patch)
		require.NoError(t, err)
		assert.True(t, got.Verified)
		assert.Nil(t, got.VerificationCode)

		_, err = s.UpdateAccount(ctx, acc.ID, patch)
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
	})

	t.Run("reset code set, looked up, and consumed", func(t *testing.T) {
		s := newStore(t)
		acc := verified("ann@example.com")
		require.NoError(t, s.CreateAccount(ctx, acc, time.Time{}))

		_, err := s.UpdateAccount(ctx, acc.ID, reel.AccountPatch{ResetCode: strPtr("digest-r")})
		require.NoError(t, err)

		byCode, err := s.GetAccountByResetCode(ctx, "digest-r")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, byCode.ID)

		_, err = s.UpdateAccount(ctx, acc.ID, reel.AccountPatch{
			PasswordHash: strPtr("$argon2id$other"),
			ResetCode:    strPtr(""),
			IfResetCode:  strPtr("wrong"),
		})
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)

		got, err := s.UpdateAccount(ctx, acc.ID, reel.AccountPatch{
			PasswordHash: strPtr("$argon2id$other"),
			ResetCode:    strPtr(""),
			IfResetCode:  strPtr("digest-r"),
		})
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$other", got.PasswordHash)
		assert.Nil(t, got.ResetCode)
	})

	t.Run("profile patch leaves other fields", func(t *testing.T) {
		s := newStore(t)
		acc := verified("ann@example.com")
		require.NoError(t, s.CreateAccount(ctx, acc, time.Time{}))

		got, err := s.UpdateAccount(ctx, acc.ID, reel.AccountPatch{
			Name:   strPtr("Annie"),
			Avatar: strPtr("https://img.example.com/a.png"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Annie", got.Name)
		require.NotNil(t, got.Avatar)
		assert.Equal(t, "https://img.example.com/a.png", *got.Avatar)
		assert.Equal(t, "ann@example.com", got.Email)
		assert.True(t, got.Verified)

		got, err = s.UpdateAccount(ctx, acc.ID, reel.AccountPatch{Avatar: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, got.Avatar)
		assert.Equal(t, "Annie", got.Name)
	})

	t.Run("update and delete missing account", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpdateAccount(ctx, uuid.NewString(), reel.AccountPatch{Name: strPtr("X")})
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		assert.ErrorIs(t, s.DeleteAccount(ctx, uuid.NewString()), reel.ErrAccountNotFound)
	})

	t.Run("delete frees the email", func(t *testing.T) {
		s := newStore(t)
		acc := verified("ann@example.com")
		require.NoError(t, s.CreateAccount(ctx, acc, time.Time{}))

		require.NoError(t, s.DeleteAccount(ctx, acc.ID))

		_, err := s.GetAccountByID(ctx, acc.ID)
		assert.ErrorIs(t, err, reel.ErrAccountNotFound)
		assert.NoError(t, s.CreateAccount(ctx, verified("ann@example.com"), time.Time{}))
	})
}

func runActors(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("crud", func(t *testing.T) {
		s := newStore(t)
		actor := &reel.Actor{Name: "Sigourney Weaver", Bio: strPtr("Ripley")}
		require.NoError(t, s.CreateActor(ctx, actor))
		require.NotEmpty(t, actor.ID)

		got, err := s.GetActor(ctx, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sigourney Weaver", got.Name)
		require.NotNil(t, got.Bio)
		assert.Equal(t, "Ripley", *got.Bio)
		assert.Nil(t, got.Avatar)

		actor.Name = "S. Weaver"
		actor.Bio = nil
		require.NoError(t, s.UpdateActor(ctx, actor))

		got, err = s.GetActor(ctx, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, "S. Weaver", got.Name)
		assert.Nil(t, got.Bio)

		require.NoError(t, s.DeleteActor(ctx, actor.ID))
		_, err = s.GetActor(ctx, actor.ID)
		assert.ErrorIs(t, err, reel.ErrActorNotFound)
	})

	t.Run("list is ordered by name", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"Zoe", "Adam", "Mia"} {
			require.NoError(t, s.CreateActor(ctx, &reel.Actor{Name: name}))
		}

		actors, err := s.ListActors(ctx)
		require.NoError(t, err)
		require.Len(t, actors, 3)
		assert.Equal(t, "Adam", actors[0].Name)
		assert.Equal(t, "Mia", actors[1].Name)
		assert.Equal(t, "Zoe", actors[2].Name)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		s := newStore(t)

		actors, err := s.ListActors(ctx)
		require.NoError(t, err)
		assert.NotNil(t, actors)
		assert.Empty(t, actors)
	})

	t.Run("missing actor", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateActor(ctx, &reel.Actor{ID: uuid.NewString(), Name: "Nobody"})
		assert.ErrorIs(t, err, reel.ErrActorNotFound)
		assert.ErrorIs(t, s.DeleteActor(ctx, uuid.NewString()), reel.ErrActorNotFound)
	})
}

func newMovie(title string, year int, actors ...string) *reel.Movie {
	return &reel.Movie{
		Title:     title,
		Year:      year,
		Genres:    []string{"Sci-Fi", "Horror"},
		Directors: []string{"Ridley Scott"},
		Actors:    actors,
		Producer:  "Brandywine Productions",
	}
}

func runMovies(t *testing.T, newStore Factory) {
	ctx := context.Background()

	seedActors := func(t *testing.T, s reel.Storage, names ...string) []string {
		t.Helper()
		ids := make([]string, 0, len(names))
		for _, name := range names {
			actor := &reel.Actor{Name: name}
			require.NoError(t, s.CreateActor(ctx, actor))
			ids = append(ids, actor.ID)
		}
		return ids
	}

	t.Run("create keeps actor order", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver", "Skerritt", "Hurt")
		movie := newMovie("Alien", 1979, ids[2], ids[0], ids[1])
		movie.Plot = strPtr("In space no one can hear you scream.")

		require.NoError(t, s.CreateMovie(ctx, movie))
		require.NotEmpty(t, movie.ID)

		got, err := s.GetMovie(ctx, movie.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alien", got.Title)
		assert.Equal(t, 1979, got.Year)
		assert.Equal(t, []string{"Sci-Fi", "Horror"}, got.Genres)
		assert.Equal(t, []string{"Ridley Scott"}, got.Directors)
		assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got.Actors)
		require.NotNil(t, got.Plot)
		assert.Nil(t, got.Poster)
	})

	t.Run("unknown actor writes nothing", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver")

		err := s.CreateMovie(ctx, newMovie("Alien", 1979, ids[0], uuid.NewString()))
		assert.ErrorIs(t, err, reel.ErrActorNotFound)

		movies, err := s.ListMovies(ctx, reel.MovieFilter{})
		require.NoError(t, err)
		assert.Empty(t, movies)
	})

	t.Run("referenced actor cannot be deleted", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver")
		movie := newMovie("Alien", 1979, ids[0])
		require.NoError(t, s.CreateMovie(ctx, movie))

		assert.ErrorIs(t, s.DeleteActor(ctx, ids[0]), reel.ErrActorInUse)

		require.NoError(t, s.DeleteMovie(ctx, movie.ID))
		assert.NoError(t, s.DeleteActor(ctx, ids[0]))
	})

	t.Run("update replaces links", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver", "Hurt")
		movie := newMovie("Alien", 1979, ids[0])
		require.NoError(t, s.CreateMovie(ctx, movie))

		movie.Title = "Aliens"
		movie.Year = 1986
		movie.Actors = []string{ids[1]}
		require.NoError(t, s.UpdateMovie(ctx, movie))

		got, err := s.GetMovie(ctx, movie.ID)
		require.NoError(t, err)
		assert.Equal(t, "Aliens", got.Title)
		assert.Equal(t, 1986, got.Year)
		assert.Equal(t, []string{ids[1]}, got.Actors)

		assert.NoError(t, s.DeleteActor(ctx, ids[0]))
	})

	t.Run("update with unknown actor keeps old links", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver")
		movie := newMovie("Alien", 1979, ids[0])
		require.NoError(t, s.CreateMovie(ctx, movie))

		movie.Title = "Changed"
		movie.Actors = []string{uuid.NewString()}
		assert.ErrorIs(t, s.UpdateMovie(ctx, movie), reel.ErrActorNotFound)

		got, err := s.GetMovie(ctx, movie.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alien", got.Title)
		assert.Equal(t, []string{ids[0]}, got.Actors)
	})

	t.Run("missing movie", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetMovie(ctx, uuid.NewString())
		assert.ErrorIs(t, err, reel.ErrMovieNotFound)
		assert.ErrorIs(t, s.UpdateMovie(ctx, newMovie("X", 2000)), reel.ErrMovieNotFound)
		assert.ErrorIs(t, s.DeleteMovie(ctx, uuid.NewString()), reel.ErrMovieNotFound)
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		s := newStore(t)
		ids := seedActors(t, s, "Weaver", "Ford")

		alien := newMovie("Alien", 1979, ids[0])
		blade := newMovie("Blade Runner", 1982, ids[1])
		blade.Genres = []string{"Sci-Fi", "Thriller"}
		blade.Producer = "The Ladd Company"
		witness := newMovie("Witness_100%", 1985, ids[1])
		witness.Genres = []string{"Thriller"}
		witness.Directors = []string{"Peter Weir"}
		witness.Producer = "Paramount"
		for _, m := range []*reel.Movie{alien, blade, witness} {
			require.NoError(t, s.CreateMovie(ctx, m))
		}

		tests := []struct {
			name   string
			filter reel.MovieFilter
			want   []string
		}{
			{name: "no filter", filter: reel.MovieFilter{}, want: []string{"Alien", "Blade Runner", "Witness_100%"}},
			{name: "title substring ignores case", filter: reel.MovieFilter{Title: "RUNNER"}, want: []string{"Blade Runner"}},
			{name: "title wildcards are literal", filter: reel.MovieFilter{Title: "_100%"}, want: []string{"Witness_100%"}},
			{name: "percent alone matches nothing extra", filter: reel.MovieFilter{Title: "%"}, want: []string{"Witness_100%"}},
			{name: "year", filter: reel.MovieFilter{Year: 1982}, want: []string{"Blade Runner"}},
			{name: "genre", filter: reel.MovieFilter{Genre: "Thriller"}, want: []string{"Blade Runner", "Witness_100%"}},
			{name: "director ignores case", filter: reel.MovieFilter{Director: "ridley scott"}, want: []string{"Alien", "Blade Runner"}},
			{name: "director is exact", filter: reel.MovieFilter{Director: "ridley"}, want: []string{}},
			{name: "actor", filter: reel.MovieFilter{Actor: ids[1]}, want: []string{"Blade Runner", "Witness_100%"}},
			{name: "producer substring", filter: reel.MovieFilter{Producer: "ladd"}, want: []string{"Blade Runner"}},
			{name: "combined", filter: reel.MovieFilter{Genre: "Thriller", Director: "Peter Weir"}, want: []string{"Witness_100%"}},
			{name: "no match", filter: reel.MovieFilter{Year: 1900}, want: []string{}},
		}

		for _, test := range tests {
			test := test
			t.Run(test.name, func(t *testing.T) {
				movies, err := s.ListMovies(ctx, test.filter)
				require.NoError(t, err)

				titles := make([]string, 0, len(movies))
				for _, m := range movies {
					titles = append(titles, m.Title)
				}
				assert.Equal(t, test.want, titles)
			})
		}
	})
}

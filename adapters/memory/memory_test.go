package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/memory"
	"github.com/lborres/reel/adapters/storetest"
)

func TestAdapter_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) reel.Storage {
		return memory.New()
	})
}

func TestAdapter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := memory.New()

	_, err := s.GetAccountByID(ctx, "id")

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}

// Requirement: values handed out are copies; mutating them does not touch the store.
func TestAdapter_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	actor := &reel.Actor{Name: "Weaver"}
	if err := s.CreateActor(ctx, actor); err != nil {
		t.Fatalf("CreateActor() error = %v", err)
	}
	movie := &reel.Movie{Title: "Alien", Year: 1979, Genres: []string{"Horror"}, Directors: []string{"Scott"}, Actors: []string{actor.ID}, Producer: "P"}
	if err := s.CreateMovie(ctx, movie); err != nil {
		t.Fatalf("CreateMovie() error = %v", err)
	}

	got, _ := s.GetMovie(ctx, movie.ID)
	got.Title = "Changed"
	got.Genres[0] = "Comedy"
	movie.Actors[0] = "other"

	again, _ := s.GetMovie(ctx, movie.ID)
	assert.Equal(t, "Alien", again.Title)
	assert.Equal(t, []string{"Horror"}, again.Genres)
	assert.Equal(t, []string{actor.ID}, again.Actors)
}

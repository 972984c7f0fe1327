package fiber

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/reel"
)

const healthTimeout = 2 * time.Second

type handlers struct {
	accounts reel.AccountHandler
	catalog  reel.CatalogHandler
	storage  reel.Storage

	byOperation map[string]fiber.Handler
}

func newHandlers(r *reel.Reel) *handlers {
	h := &handlers{
		accounts: r.Accounts,
		catalog:  r.Catalog,
		storage:  r.Storage,
	}

	h.byOperation = map[string]fiber.Handler{
		"signUp":               h.signUp,
		"verifyAccount":        h.verifyAccount,
		"login":                h.login,
		"getProfile":           h.getProfile,
		"updateProfile":        h.updateProfile,
		"deleteAccount":        h.deleteAccount,
		"requestPasswordReset": h.requestPasswordReset,
		"confirmPasswordReset": h.confirmPasswordReset,

		"listMovies":   h.listMovies,
		"filterMovies": h.filterMovies,
		"getMovie":     h.getMovie,
		"createMovie":  h.createMovie,
		"updateMovie":  h.updateMovie,
		"deleteMovie":  h.deleteMovie,

		"listActors":      h.listActors,
		"getActor":        h.getActor,
		"listActorMovies": h.listActorMovies,
		"createActor":     h.createActor,
		"updateActor":     h.updateActor,
		"deleteActor":     h.deleteActor,

		"health": h.health,
	}

	return h
}

func message(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

// bind decodes the request body into out. Any decoding failure is a
// client error.
func bind(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return reel.ErrInvalidBody
	}
	return nil
}

// ============================================
// accounts
// ============================================

func (h *handlers) signUp(c fiber.Ctx) error {
	var input reel.SignUpInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	result, err := h.accounts.SignUp(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(result)
}

func (h *handlers) verifyAccount(c fiber.Ctx) error {
	if err := h.accounts.Verify(c.Context(), c.Params("code")); err != nil {
		return writeError(c, err)
	}
	return message(c, http.StatusOK, "account verified")
}

func (h *handlers) login(c fiber.Ctx) error {
	var input reel.LoginInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	result, err := h.accounts.Login(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

func (h *handlers) getProfile(c fiber.Ctx) error {
	profile, err := h.accounts.GetProfile(c.Context(), AccountID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}

func (h *handlers) updateProfile(c fiber.Ctx) error {
	var input reel.ProfileUpdate
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	profile, err := h.accounts.UpdateProfile(c.Context(), AccountID(c), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(profile)
}

func (h *handlers) deleteAccount(c fiber.Ctx) error {
	if err := h.accounts.DeleteAccount(c.Context(), AccountID(c)); err != nil {
		return writeError(c, err)
	}
	return message(c, http.StatusOK, "account deleted")
}

func (h *handlers) requestPasswordReset(c fiber.Ctx) error {
	var input reel.ResetRequestInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	result, err := h.accounts.RequestReset(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

func (h *handlers) confirmPasswordReset(c fiber.Ctx) error {
	var input reel.ResetConfirmInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}
	input.Code = c.Params("code")

	if err := h.accounts.ConfirmReset(c.Context(), AccountID(c), input); err != nil {
		return writeError(c, err)
	}

	return message(c, http.StatusOK, "password updated")
}

// ============================================
// movies
// ============================================

type movieQuery struct {
	Title    string `query:"title"`
	Year     int    `query:"year"`
	Genre    string `query:"genre"`
	Director string `query:"director"`
	Actor    string `query:"actor"`
	Producer string `query:"producer"`
}

func (h *handlers) listMovies(c fiber.Ctx) error {
	return h.respondMovies(c, reel.MovieFilter{})
}

func (h *handlers) filterMovies(c fiber.Ctx) error {
	var q movieQuery
	// year is the only field that can fail to decode
	if err := c.Bind().Query(&q); err != nil {
		return writeError(c, reel.NewValidationError("year", "must be an integer"))
	}

	return h.respondMovies(c, reel.MovieFilter{
		Title:    q.Title,
		Year:     q.Year,
		Genre:    q.Genre,
		Director: q.Director,
		Actor:    q.Actor,
		Producer: q.Producer,
	})
}

func (h *handlers) respondMovies(c fiber.Ctx, filter reel.MovieFilter) error {
	movies, err := h.catalog.ListMovies(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movies)
}

func (h *handlers) getMovie(c fiber.Ctx) error {
	movie, err := h.catalog.GetMovie(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movie)
}

func (h *handlers) createMovie(c fiber.Ctx) error {
	var input reel.MovieInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	movie, err := h.catalog.CreateMovie(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(movie)
}

func (h *handlers) updateMovie(c fiber.Ctx) error {
	var input reel.MovieInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	movie, err := h.catalog.UpdateMovie(c.Context(), c.Params("id"), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(movie)
}

func (h *handlers) deleteMovie(c fiber.Ctx) error {
	if err := h.catalog.DeleteMovie(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return message(c, http.StatusOK, "movie deleted")
}

// ============================================
// actors
// ============================================

func (h *handlers) listActors(c fiber.Ctx) error {
	actors, err := h.catalog.ListActors(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(actors)
}

func (h *handlers) getActor(c fiber.Ctx) error {
	actor, err := h.catalog.GetActor(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(actor)
}

func (h *handlers) listActorMovies(c fiber.Ctx) error {
	movies, err := h.catalog.ListActorMovies(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movies)
}

func (h *handlers) createActor(c fiber.Ctx) error {
	var input reel.ActorInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	actor, err := h.catalog.CreateActor(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(actor)
}

func (h *handlers) updateActor(c fiber.Ctx) error {
	var input reel.ActorInput
	if err := bind(c, &input); err != nil {
		return writeError(c, err)
	}

	actor, err := h.catalog.UpdateActor(c.Context(), c.Params("id"), input)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(actor)
}

func (h *handlers) deleteActor(c fiber.Ctx) error {
	if err := h.catalog.DeleteActor(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return message(c, http.StatusOK, "actor deleted")
}

// ============================================
// health
// ============================================

func (h *handlers) health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

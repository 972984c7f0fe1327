package fiber_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/reel"
	fiberadapter "github.com/lborres/reel/adapters/fiber"
	"github.com/lborres/reel/adapters/memory"
	"github.com/lborres/reel/adapters/notify"
)

const (
	testSecret   = "01234567890123456789012345678901"
	testPassword = "Str0ng!Pass"
)

// flakyStore fails selected operations on top of the memory store
type flakyStore struct {
	*memory.Adapter
	pingErr  error
	actorErr error
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.pingErr != nil {
		return s.pingErr
	}
	return s.Adapter.Ping(ctx)
}

func (s *flakyStore) GetActor(ctx context.Context, id string) (*reel.Actor, error) {
	if s.actorErr != nil {
		return nil, s.actorErr
	}
	return s.Adapter.GetActor(ctx, id)
}

type harness struct {
	app    *fiber.App
	store  *flakyStore
	outbox *notify.Outbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: fiberadapter.ErrorHandler})
	h := &harness{
		app:    app,
		store:  &flakyStore{Adapter: memory.New()},
		outbox: notify.NewOutbox(),
	}

	_, err := reel.New(reel.Config{
		Secret:         testSecret,
		Storage:        h.store,
		HTTP:           fiberadapter.New(app),
		PasswordHasher: reel.NewArgon2().WithCost(1024, 1),
		Notifier:       h.outbox,
		DisableCache:   true,
	})
	require.NoError(t, err)

	return h
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, out), "body: %s", r.body)
}

func (r response) errorBody(t *testing.T) reel.ErrorResponse {
	t.Helper()
	var e reel.ErrorResponse
	r.decode(t, &e)
	return e
}

func (h *harness) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := h.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: raw}
}

// session signs up, verifies and logs in email, returning the session token
func (h *harness) session(t *testing.T, email string) string {
	t.Helper()

	res := h.do(t, "POST", "/auth/signup", "", fiber.Map{"name": "Ann", "email": email, "password": testPassword})
	require.Equal(t, http.StatusCreated, res.status, "signup: %s", res.body)

	msg, ok := h.outbox.Last(notify.KindVerification, reel.NormalizeEmail(email))
	require.True(t, ok)
	res = h.do(t, "GET", "/auth/verify/"+msg.Code, "", nil)
	require.Equal(t, http.StatusOK, res.status, "verify: %s", res.body)

	res = h.do(t, "POST", "/auth/login", "", fiber.Map{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, res.status, "login: %s", res.body)

	var login reel.LoginResult
	res.decode(t, &login)
	require.NotEmpty(t, login.Auth)
	return login.Auth
}

func (h *harness) createActor(t *testing.T, token, name string) reel.Actor {
	t.Helper()

	res := h.do(t, "POST", "/actors", token, fiber.Map{"name": name})
	require.Equal(t, http.StatusCreated, res.status, "create actor: %s", res.body)

	var actor reel.Actor
	res.decode(t, &actor)
	return actor
}

// Requirement: signup, verification, login and profile access work end to end.
func TestAccountFlow(t *testing.T) {
	// Arrange
	h := newHarness(t)

	// Act
	token := h.session(t, "Ann@Example.com")
	res := h.do(t, "GET", "/auth/me", token, nil)

	// Assert
	require.Equal(t, http.StatusOK, res.status)
	var profile reel.Profile
	res.decode(t, &profile)
	assert.Equal(t, "ann@example.com", profile.Email)
	assert.True(t, profile.Verified)
	assert.NotContains(t, string(res.body), "password")
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantField  string
	}{
		{name: "created", body: fiber.Map{"name": "Ann", "email": "ann@x.com", "password": testPassword}, wantStatus: http.StatusCreated},
		{name: "weak password", body: fiber.Map{"name": "Ann", "email": "ann@x.com", "password": "weak"}, wantStatus: http.StatusBadRequest, wantField: "password"},
		{name: "padded mixed-case email", body: fiber.Map{"name": "Ann", "email": " Ann@X.com ", "password": testPassword}, wantStatus: http.StatusCreated},
		{name: "missing email", body: fiber.Map{"name": "Ann", "password": testPassword}, wantStatus: http.StatusBadRequest, wantField: "email"},
		{name: "whitespace-only name", body: fiber.Map{"name": "   ", "email": "ann@x.com", "password": testPassword}, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "malformed json", body: `{"name":`, wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			h := newHarness(t)

			// Act
			res := h.do(t, "POST", "/auth/signup", "", test.body)

			// Assert
			require.Equal(t, test.wantStatus, res.status, "body: %s", res.body)
			if test.wantStatus == http.StatusCreated {
				var created reel.SignUpResult
				res.decode(t, &created)
				assert.NotEmpty(t, created.ID)
				return
			}
			e := res.errorBody(t)
			assert.NotEmpty(t, e.Message)
			if test.wantField != "" {
				assert.Contains(t, e.Errors, test.wantField)
			}
		})
	}
}

// Requirement: a verified email cannot be registered twice.
func TestSignUp_EmailTaken(t *testing.T) {
	h := newHarness(t)
	h.session(t, "ann@x.com")

	res := h.do(t, "POST", "/auth/signup", "", fiber.Map{"name": "Ann", "email": "ANN@x.com", "password": testPassword})

	require.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, reel.ErrEmailTaken.Error(), res.errorBody(t).Message)
}

func TestVerify_UnknownCode(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, "GET", "/auth/verify/not-a-real-code", "", nil)

	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, reel.ErrInvalidCode.Error(), res.errorBody(t).Message)
}

// Requirement: unknown email and wrong password are indistinguishable.
func TestLogin_Unauthorized(t *testing.T) {
	h := newHarness(t)
	h.session(t, "ann@x.com")

	wrong := h.do(t, "POST", "/auth/login", "", fiber.Map{"email": "ann@x.com", "password": "Wr0ng!Pass"})
	unknown := h.do(t, "POST", "/auth/login", "", fiber.Map{"email": "bob@x.com", "password": testPassword})

	require.Equal(t, http.StatusUnauthorized, wrong.status)
	require.Equal(t, http.StatusUnauthorized, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)
}

func TestGate(t *testing.T) {
	h := newHarness(t)
	session := h.session(t, "ann@x.com")

	var reset reel.ResetRequestResult
	h.do(t, "POST", "/auth/reset", "", fiber.Map{"email": "ann@x.com"}).decode(t, &reset)

	tests := []struct {
		name        string
		method      string
		path        string
		token       string
		body        any
		wantStatus  int
		wantMessage string
	}{
		{name: "missing header", method: "GET", path: "/auth/me", wantStatus: http.StatusUnauthorized, wantMessage: reel.ErrMissingAuthHeader.Error()},
		{name: "garbage token", method: "GET", path: "/auth/me", token: "nope", wantStatus: http.StatusUnauthorized, wantMessage: reel.ErrInvalidToken.Error()},
		{name: "bearer prefix tolerated", method: "GET", path: "/auth/me", token: "Bearer " + session, wantStatus: http.StatusOK},
		{name: "reset token on session route", method: "GET", path: "/auth/me", token: reset.Auth, wantStatus: http.StatusUnauthorized},
		{name: "session token on reset route", method: "PATCH", path: "/auth/reset/some-code", token: session, body: fiber.Map{"password": testPassword}, wantStatus: http.StatusUnauthorized},
		{name: "gate runs before validation", method: "POST", path: "/movies", body: `{"title":`, wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			res := h.do(t, test.method, test.path, test.token, test.body)

			// Assert
			require.Equal(t, test.wantStatus, res.status, "body: %s", res.body)
			if test.wantMessage != "" {
				assert.Equal(t, test.wantMessage, res.errorBody(t).Message)
			}
		})
	}
}

func TestProfileUpdateAndDelete(t *testing.T) {
	// Arrange
	h := newHarness(t)
	token := h.session(t, "ann@x.com")

	// Act
	res := h.do(t, "PATCH", "/auth/me", token, fiber.Map{"name": "Annie", "avatar": "https://img.example.com/a.png"})

	// Assert
	require.Equal(t, http.StatusOK, res.status, "body: %s", res.body)
	var profile reel.Profile
	res.decode(t, &profile)
	assert.Equal(t, "Annie", profile.Name)
	require.NotNil(t, profile.Avatar)

	res = h.do(t, "PATCH", "/auth/me", token, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = h.do(t, "PATCH", "/auth/me", token, fiber.Map{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = h.do(t, "DELETE", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.status)

	// the token outlives the account
	res = h.do(t, "GET", "/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

// Requirement: a PATCH that names only the name leaves the stored avatar alone.
func TestProfileUpdate_NameOnlyKeepsAvatar(t *testing.T) {
	// Arrange
	h := newHarness(t)
	token := h.session(t, "ann@x.com")
	const avatar = "https://img.example.com/a.png"
	res := h.do(t, "PATCH", "/auth/me", token, fiber.Map{"avatar": avatar})
	require.Equal(t, http.StatusOK, res.status, "body: %s", res.body)

	// Act
	res = h.do(t, "PATCH", "/auth/me", token, fiber.Map{"name": "Annie"})
	require.Equal(t, http.StatusOK, res.status, "body: %s", res.body)

	// Assert
	res = h.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	var profile reel.Profile
	res.decode(t, &profile)
	assert.Equal(t, "Annie", profile.Name)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, avatar, *profile.Avatar)
}

// Requirement: the reset flow replaces the password and consumes the code.
func TestPasswordReset(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.session(t, "ann@x.com")

	var reset reel.ResetRequestResult
	res := h.do(t, "POST", "/auth/reset", "", fiber.Map{"email": "ann@x.com"})
	require.Equal(t, http.StatusOK, res.status)
	res.decode(t, &reset)
	msg, ok := h.outbox.Last(notify.KindReset, "ann@x.com")
	require.True(t, ok)

	const newPassword = "N3w!Password"

	// Act
	res = h.do(t, "PATCH", "/auth/reset/"+msg.Code, reset.Auth, fiber.Map{"password": newPassword})

	// Assert
	require.Equal(t, http.StatusOK, res.status, "body: %s", res.body)

	res = h.do(t, "PATCH", "/auth/reset/"+msg.Code, reset.Auth, fiber.Map{"password": newPassword})
	assert.Equal(t, http.StatusBadRequest, res.status, "a consumed code must not apply twice")

	res = h.do(t, "POST", "/auth/login", "", fiber.Map{"email": "ann@x.com", "password": testPassword})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	res = h.do(t, "POST", "/auth/login", "", fiber.Map{"email": "ann@x.com", "password": newPassword})
	assert.Equal(t, http.StatusOK, res.status)
}

// Requirement: reset requests answer the same way whether or not the address exists.
func TestPasswordReset_UnknownEmail(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, "POST", "/auth/reset", "", fiber.Map{"email": "ghost@x.com"})

	require.Equal(t, http.StatusOK, res.status)
	var reset reel.ResetRequestResult
	res.decode(t, &reset)
	assert.NotEmpty(t, reset.Auth)
	assert.Empty(t, h.outbox.Messages())

	res = h.do(t, "PATCH", "/auth/reset/whatever", reset.Auth, fiber.Map{"password": testPassword})
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestCatalog(t *testing.T) {
	// Arrange
	h := newHarness(t)
	token := h.session(t, "ann@x.com")
	weaver := h.createActor(t, token, "Sigourney Weaver")

	movie := fiber.Map{
		"title":     "Alien",
		"year":      1979,
		"genres":    []string{"Horror", "Sci-Fi"},
		"directors": []string{"Ridley Scott"},
		"actors":    []string{weaver.ID},
		"producer":  "Brandywine",
	}

	// Act
	res := h.do(t, "POST", "/movies", token, movie)

	// Assert
	require.Equal(t, http.StatusCreated, res.status, "body: %s", res.body)
	var created reel.Movie
	res.decode(t, &created)
	assert.Equal(t, []string{weaver.ID}, created.Actors)

	res = h.do(t, "GET", "/movies/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, res.status)

	var filtered []reel.Movie
	res = h.do(t, "GET", "/movies/filter?genre=Horror&year=1979&director=ridley%20scott", "", nil)
	require.Equal(t, http.StatusOK, res.status, "body: %s", res.body)
	res.decode(t, &filtered)
	assert.Len(t, filtered, 1)

	res = h.do(t, "GET", "/movies/filter?year=1980", "", nil)
	res.decode(t, &filtered)
	assert.Empty(t, filtered)

	var starring []reel.Movie
	h.do(t, "GET", "/actors/"+weaver.ID+"/movies", "", nil).decode(t, &starring)
	assert.Len(t, starring, 1)

	res = h.do(t, "DELETE", "/actors/"+weaver.ID, token, nil)
	assert.Equal(t, http.StatusConflict, res.status)

	res = h.do(t, "DELETE", "/movies/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, res.status)
	res = h.do(t, "GET", "/movies/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = h.do(t, "DELETE", "/actors/"+weaver.ID, token, nil)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestCatalog_ClientErrors(t *testing.T) {
	h := newHarness(t)
	token := h.session(t, "ann@x.com")
	ghost := "3f2c6c1e-8a4b-4a55-9d57-2b2a0b7e1f10"

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantField  string
	}{
		{name: "unknown actor reference", method: "POST", path: "/movies", body: fiber.Map{
			"title": "Alien", "year": 1979, "genres": []string{"Horror"},
			"directors": []string{"Ridley Scott"}, "actors": []string{ghost}, "producer": "Brandywine",
		}, wantStatus: http.StatusBadRequest, wantField: "actors"},
		{name: "invalid movie", method: "POST", path: "/movies", body: fiber.Map{"title": ""}, wantStatus: http.StatusBadRequest, wantField: "title"},
		{name: "whitespace-only title", method: "POST", path: "/movies", body: fiber.Map{
			"title": "   ", "year": 1979, "genres": []string{"Horror"},
			"directors": []string{"Ridley Scott"}, "actors": []string{ghost}, "producer": "Brandywine",
		}, wantStatus: http.StatusBadRequest, wantField: "title"},
		{name: "whitespace-only actor name", method: "POST", path: "/actors", body: fiber.Map{"name": " "}, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "bad year filter", method: "GET", path: "/movies/filter?year=soon", wantStatus: http.StatusBadRequest, wantField: "year"},
		{name: "malformed id", method: "GET", path: "/movies/42", wantStatus: http.StatusNotFound},
		{name: "missing actor", method: "GET", path: "/actors/" + ghost, wantStatus: http.StatusNotFound},
		{name: "update missing actor", method: "PUT", path: "/actors/" + ghost, body: fiber.Map{"name": "X"}, wantStatus: http.StatusNotFound},
		{name: "unknown route", method: "GET", path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			res := h.do(t, test.method, test.path, token, test.body)

			// Assert
			require.Equal(t, test.wantStatus, res.status, "body: %s", res.body)
			e := res.errorBody(t)
			assert.NotEmpty(t, e.Message)
			if test.wantField != "" {
				assert.Contains(t, e.Errors, test.wantField)
			}
		})
	}

	var movies []reel.Movie
	h.do(t, "GET", "/movies", "", nil).decode(t, &movies)
	assert.Empty(t, movies, "a rejected write must not persist")
}

// Requirement: store failures surface as 503 or 500 without internal detail.
func TestStoreFailures(t *testing.T) {
	tests := []struct {
		name       string
		actorErr   error
		wantStatus int
	}{
		{name: "transient", actorErr: errors.Join(reel.ErrUnavailable, errors.New("dial tcp 10.0.0.7:5432")), wantStatus: http.StatusServiceUnavailable},
		{name: "permanent", actorErr: errors.New("relation actors does not exist at 10.0.0.7"), wantStatus: http.StatusInternalServerError},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			h := newHarness(t)
			h.store.actorErr = test.actorErr

			// Act
			res := h.do(t, "GET", "/actors/3f2c6c1e-8a4b-4a55-9d57-2b2a0b7e1f10", "", nil)

			// Assert
			require.Equal(t, test.wantStatus, res.status)
			assert.NotContains(t, string(res.body), "10.0.0.7")
			assert.Empty(t, res.errorBody(t).Errors)
		})
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.body))

	h.store.pingErr = reel.ErrUnavailable
	res = h.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
}

func TestRegisterRoutes_BasePath(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: fiberadapter.ErrorHandler})
	_, err := reel.New(reel.Config{
		Secret:   testSecret,
		Storage:  memory.New(),
		HTTP:     fiberadapter.New(app),
		BasePath: "/api/v1",
	})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

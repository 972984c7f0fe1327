package core

// TokenScope restricts what a bearer token may be used for
type TokenScope string

const (
	ScopeSession       TokenScope = "session"
	ScopePasswordReset TokenScope = "password_reset"
)

// SignUpInput contains the data needed to register a new account
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpResult struct {
	ID string `json:"id"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the session token under the "auth" key
type LoginResult struct {
	Auth string `json:"auth"`
}

// ProfileUpdate is a partial update of the caller's own profile
type ProfileUpdate struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type ResetRequestInput struct {
	Email string `json:"email"`
}

// ResetRequestResult carries a token scoped to ConfirmReset only
type ResetRequestResult struct {
	Auth string `json:"auth"`
}

type ResetConfirmInput struct {
	Code     string `json:"-"`
	Password string `json:"password"`
}

// ActorInput is the writable part of an Actor
type ActorInput struct {
	Name   string  `json:"name"`
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

// MovieInput is the writable part of a Movie
type MovieInput struct {
	Title     string   `json:"title"`
	Year      int      `json:"year"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Actors    []string `json:"actors"`
	Producer  string   `json:"producer"`
	Plot      *string  `json:"plot"`
	Poster    *string  `json:"poster"`
}

package core

import "time"

// Account is the persisted credential record.
//
// VerificationCode and ResetCode hold digests of the codes handed to the
// notifier, never the codes themselves.
type Account struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // Never expose in JSON
	Avatar           *string   `json:"avatar,omitempty"`
	Verified         bool      `json:"verified"`
	VerificationCode *string   `json:"-"`
	ResetCode        *string   `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Profile is the outward representation of an Account
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Account) Profile() *Profile {
	return &Profile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Avatar:    a.Avatar,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountPatch is a partial update. Nil fields are left untouched; an empty
// code string clears the column.
//
// When IfVerificationCode or IfResetCode is set the update only applies to
// a row still holding that digest, otherwise the store reports
// ErrAccountNotFound.
type AccountPatch struct {
	Name             *string
	Avatar           *string
	PasswordHash     *string
	Verified         *bool
	VerificationCode *string
	ResetCode        *string

	IfVerificationCode *string
	IfResetCode        *string
}

// Actor is a catalog entry referenced by movies
type Actor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Movie is a catalog entry. Actors holds actor ids.
type Movie struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year"`
	Genres    []string  `json:"genres"`
	Directors []string  `json:"directors"`
	Actors    []string  `json:"actors"`
	Producer  string    `json:"producer"`
	Plot      *string   `json:"plot,omitempty"`
	Poster    *string   `json:"poster,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy that shares no pointers with a
func (a *Actor) Clone() *Actor {
	c := *a
	c.Bio = copyString(a.Bio)
	c.Avatar = copyString(a.Avatar)
	return &c
}

// Clone returns a deep copy that shares no slices or pointers with m
func (m *Movie) Clone() *Movie {
	c := *m
	c.Genres = append([]string(nil), m.Genres...)
	c.Directors = append([]string(nil), m.Directors...)
	c.Actors = append([]string(nil), m.Actors...)
	c.Plot = copyString(m.Plot)
	c.Poster = copyString(m.Poster)
	return &c
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MovieFilter narrows ListMovies. Zero values are ignored; set fields are ANDed.
type MovieFilter struct {
	Title    string
	Year     int
	Genre    string
	Director string
	Actor    string
	Producer string
}

func (f MovieFilter) IsZero() bool {
	return f == MovieFilter{}
}

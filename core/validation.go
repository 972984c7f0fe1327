package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 254
	MinMovieYear      = 1890
)

// Genres is the closed set of movie genres
var Genres = []string{
	"Action", "Adventure", "Animation", "Biography", "Comedy", "Crime",
	"Documentary", "Drama", "Family", "Fantasy", "Film-Noir", "History",
	"Horror", "Music", "Musical", "Mystery", "Romance", "Sci-Fi", "Short",
	"Sport", "Thriller", "War", "Western",
}

// is.Email resolves MX records, so syntax is checked locally instead.
var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?)+$`)

// NormalizeEmail trims and lower-cases an address for comparison and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StrongPassword requires a lowercase letter, an uppercase letter, a digit and a symbol
var StrongPassword = validation.By(func(value interface{}) error {
	s, _ := value.(string)

	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			symbol = true
		}
	}

	if !lower || !upper || !digit || !symbol {
		return errors.New("must contain a lowercase letter, an uppercase letter, a digit and a symbol")
	}
	return nil
})

var emailRules = []validation.Rule{
	validation.Required,
	validation.Length(3, MaxEmailLength),
	validation.Match(emailPattern).Error("must be a valid email address"),
}

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(MinPasswordLength, MaxPasswordLength),
	StrongPassword,
}

// Validate checks the input as it will be stored: the name trimmed and
// the email normalized.
func (in SignUpInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, passwordRules...),
	))
}

func (in LoginInput) Validate() error {
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	))
}

// Validate requires at least one field. An empty avatar clears it.
func (in ProfileUpdate) Validate() error {
	if in.Name == nil && in.Avatar == nil {
		return NewValidationError("name", "at least one of name or avatar is required")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}

	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.Avatar, validation.Length(0, 2048), is.URL),
	))
}

func (in ResetRequestInput) Validate() error {
	in.Email = NormalizeEmail(in.Email)
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
	))
}

func (in ResetConfirmInput) Validate() error {
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Password, passwordRules...),
	))
}

func (in ActorInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Bio, validation.Length(0, 4000)),
		validation.Field(&in.Avatar, validation.Length(0, 2048), is.URL),
	))
}

func (in MovieInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Producer = strings.TrimSpace(in.Producer)
	return fieldErrors(validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&in.Year, validation.Required, validation.Min(MinMovieYear), validation.Max(time.Now().Year()+10)),
		validation.Field(&in.Genres, validation.Required, validation.By(eachGenre)),
		validation.Field(&in.Directors, validation.Required, validation.By(eachNonBlank)),
		validation.Field(&in.Actors, validation.Required, validation.By(eachUUID)),
		validation.Field(&in.Producer, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Plot, validation.Length(0, 4000)),
		validation.Field(&in.Poster, validation.Length(0, 2048), is.URL),
	))
}

// IsGenre reports whether g is one of Genres
func IsGenre(g string) bool {
	for _, genre := range Genres {
		if genre == g {
			return true
		}
	}
	return false
}

func eachGenre(value interface{}) error {
	genres, _ := value.([]string)
	for i, g := range genres {
		if !IsGenre(g) {
			return fmt.Errorf("item %d: %q is not a known genre", i, g)
		}
	}
	return nil
}

func eachNonBlank(value interface{}) error {
	items, _ := value.([]string)
	for i, s := range items {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("item %d: cannot be blank", i)
		}
	}
	return nil
}

func eachUUID(value interface{}) error {
	ids, _ := value.([]string)
	for i, id := range ids {
		if err := is.UUID.Validate(id); err != nil || id == "" {
			return fmt.Errorf("item %d: must be a valid id", i)
		}
	}
	return nil
}

// fieldErrors converts ozzo field errors into a ValidationError
func fieldErrors(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	ve := &ValidationError{Fields: make(map[string]string, len(errs))}
	for field, fieldErr := range errs {
		ve.Fields[field] = fieldErr.Error()
	}
	return ve
}

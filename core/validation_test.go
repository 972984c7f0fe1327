package core

import (
	"errors"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

// Requirement: SignUp input is rejected field by field before anything else happens.
func TestSignUpInput_Validate(t *testing.T) {
	tests := []struct {
		name       string
		input      SignUpInput
		wantFields []string
	}{
		{
			name:  "accepts well formed input",
			input: SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "Str0ng!Pass"},
		},
		{
			name:  "accepts braces as symbols",
			input: SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "{StrongPassword1}"},
		},
		{
			name:       "rejects missing fields",
			input:      SignUpInput{},
			wantFields: []string{"name", "email", "password"},
		},
		{
			name:  "accepts email with surrounding space and capitals",
			input: SignUpInput{Name: "Ann", Email: " Ann@Example.com ", Password: "Str0ng!Pass"},
		},
		{
			name:       "rejects whitespace-only name",
			input:      SignUpInput{Name: "   ", Email: "ann@x.com", Password: "Str0ng!Pass"},
			wantFields: []string{"name"},
		},
		{
			name:       "rejects malformed email",
			input:      SignUpInput{Name: "Ann", Email: "ann@", Password: "Str0ng!Pass"},
			wantFields: []string{"email"},
		},
		{
			name:       "rejects short password",
			input:      SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "1234"},
			wantFields: []string{"password"},
		},
		{
			name:       "rejects password without symbol",
			input:      SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "Str0ngPass"},
			wantFields: []string{"password"},
		},
		{
			name:       "rejects password without uppercase",
			input:      SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "str0ng!pass"},
			wantFields: []string{"password"},
		},
		{
			name:       "rejects overly long password",
			input:      SignUpInput{Name: "Ann", Email: "ann@x.com", Password: "Aa1!" + strings.Repeat("x", MaxPasswordLength)},
			wantFields: []string{"password"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			err := test.input.Validate()

			// Assert
			if len(test.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error should match ErrValidation")
			}
			for _, field := range test.wantFields {
				if _, ok := ve.Fields[field]; !ok {
					t.Errorf("Validate() fields = %v, missing %q", ve.Fields, field)
				}
			}
			if len(ve.Fields) != len(test.wantFields) {
				t.Errorf("Validate() fields = %v, want exactly %v", ve.Fields, test.wantFields)
			}
		})
	}
}

// Requirement: Profile updates must name at least one field and keep the avatar a URL.
func TestProfileUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   ProfileUpdate
		wantErr bool
	}{
		{name: "name only", input: ProfileUpdate{Name: strPtr("X")}},
		{name: "avatar only", input: ProfileUpdate{Avatar: strPtr("https://img.example.com/a.png")}},
		{name: "empty avatar clears", input: ProfileUpdate{Avatar: strPtr("")}},
		{name: "nothing to update", input: ProfileUpdate{}, wantErr: true},
		{name: "blank name", input: ProfileUpdate{Name: strPtr("")}, wantErr: true},
		{name: "whitespace-only name", input: ProfileUpdate{Name: strPtr(" \t ")}, wantErr: true},
		{name: "avatar not a url", input: ProfileUpdate{Avatar: strPtr("not a url")}, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.input.Validate()
			if (err != nil) != test.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

// Requirement: Movies reference known genres and actor ids and respect the year floor.
func TestMovieInput_Validate(t *testing.T) {
	valid := func() MovieInput {
		return MovieInput{
			Title:     "Alien",
			Year:      1979,
			Genres:    []string{"Horror", "Sci-Fi"},
			Directors: []string{"Ridley Scott"},
			Actors:    []string{"3f2c6c1e-8a4b-4a55-9d57-2b2a0b7e1f10"},
			Producer:  "Brandywine",
		}
	}

	tests := []struct {
		name      string
		mutate    func(*MovieInput)
		wantField string
	}{
		{name: "valid movie", mutate: func(m *MovieInput) {}},
		{name: "whitespace-only title", mutate: func(m *MovieInput) { m.Title = "   " }, wantField: "title"},
		{name: "whitespace-only producer", mutate: func(m *MovieInput) { m.Producer = "\t" }, wantField: "producer"},
		{name: "year before cinema", mutate: func(m *MovieInput) { m.Year = 1850 }, wantField: "year"},
		{name: "unknown genre", mutate: func(m *MovieInput) { m.Genres = []string{"Cooking"} }, wantField: "genres"},
		{name: "no genres", mutate: func(m *MovieInput) { m.Genres = nil }, wantField: "genres"},
		{name: "blank director", mutate: func(m *MovieInput) { m.Directors = []string{" "} }, wantField: "directors"},
		{name: "actor id not a uuid", mutate: func(m *MovieInput) { m.Actors = []string{"42"} }, wantField: "actors"},
		{name: "no actors", mutate: func(m *MovieInput) { m.Actors = []string{} }, wantField: "actors"},
		{name: "poster not a url", mutate: func(m *MovieInput) { m.Poster = strPtr("not a url") }, wantField: "poster"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			input := valid()
			test.mutate(&input)

			// Act
			err := input.Validate()

			// Assert
			if test.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if _, ok := ve.Fields[test.wantField]; !ok {
				t.Errorf("Validate() fields = %v, want %q", ve.Fields, test.wantField)
			}
		})
	}
}

// Requirement: Actors need a name that is not blank once trimmed.
func TestActorInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   ActorInput
		wantErr bool
	}{
		{name: "named actor", input: ActorInput{Name: "Sigourney Weaver"}},
		{name: "padded name", input: ActorInput{Name: "  Sigourney Weaver  "}},
		{name: "empty name", input: ActorInput{}, wantErr: true},
		{name: "whitespace-only name", input: ActorInput{Name: "   "}, wantErr: true},
		{name: "avatar not a url", input: ActorInput{Name: "Sigourney Weaver", Avatar: strPtr("not a url")}, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.input.Validate()
			if (err != nil) != test.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

// Requirement: Reset requests accept the address in any case and with surrounding space.
func TestResetRequestInput_Validate(t *testing.T) {
	if err := (ResetRequestInput{Email: " Ann@Example.com "}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := (ResetRequestInput{Email: "   "}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ann@X.com \n"); got != "ann@x.com" {
		t.Errorf("NormalizeEmail() = %q, want %q", got, "ann@x.com")
	}
}

func TestValidationError_ErrorIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "bad", "a": "worse"}}
	want := "invalid fields: a: worse; b: bad"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

package crypto

import (
	"encoding/hex"
	"errors"
	"testing"
)

type stubGenerator struct {
	code string
	err  error
}

func (s stubGenerator) Generate() (string, error) { return s.code, s.err }

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "empty", token: "", want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{name: "abc", token: "abc", want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got := HashToken(test.token)
			if got != test.want {
				t.Errorf("HashToken(%q) = %s, want %s", test.token, got, test.want)
			}
		})
	}
}

// Requirement: stored digests never equal the code and are fixed-length hex.
func TestNewCodePair(t *testing.T) {
	// Arrange
	gen, err := NewNanoID("")
	if err != nil {
		t.Fatalf("NewNanoID() error = %v", err)
	}

	// Act
	pair, err := NewCodePair(gen)

	// Assert
	if err != nil {
		t.Fatalf("NewCodePair() error = %v", err)
	}
	if pair.Code == pair.Digest {
		t.Error("digest must differ from the code")
	}
	if len(pair.Digest) != 64 {
		t.Errorf("len(Digest) = %d, want 64", len(pair.Digest))
	}
	if _, err := hex.DecodeString(pair.Digest); err != nil {
		t.Errorf("Digest is not hex: %v", err)
	}
	if pair.Digest != HashToken(pair.Code) {
		t.Error("Digest should be HashToken(Code)")
	}
}

func TestNewCodePair_Errors(t *testing.T) {
	boom := errors.New("entropy exhausted")

	if _, err := NewCodePair(nil); !errors.Is(err, ErrNilGenerator) {
		t.Errorf("NewCodePair(nil) error = %v, want ErrNilGenerator", err)
	}
	if _, err := NewCodePair(stubGenerator{err: boom}); !errors.Is(err, boom) {
		t.Errorf("NewCodePair() error = %v, want %v", err, boom)
	}
}

func TestNewCodePair_IndependentDraws(t *testing.T) {
	gen, _ := NewNanoID("")

	first, _ := NewCodePair(gen)
	second, _ := NewCodePair(gen)

	if first.Code == second.Code {
		t.Error("two draws should not produce the same code")
	}
}

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/lborres/reel/core"
)

var ErrNilGenerator = errors.New("code generator is required")

// CodePair is a single-use code and the digest that is stored in its place
type CodePair struct {
	Code   string // value handed to the notifier
	Digest string // value in storage
}

// NewCodePair draws a code from gen and digests it
func NewCodePair(gen core.CodeGenerator) (*CodePair, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}

	code, err := gen.Generate()
	if err != nil {
		return nil, err
	}

	return &CodePair{
		Code:   code,
		Digest: HashToken(code),
	}, nil
}

// HashToken returns the hex SHA-256 digest of token. Codes carry enough
// entropy that an unsalted fast hash is sufficient.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

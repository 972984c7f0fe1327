package crypto

import (
	"crypto/rand"
	"errors"
	"math"
	"math/bits"
	"unicode/utf8"

	"github.com/lborres/reel/core"
)

const (
	defaultAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultSize     int    = 22  // 22 * 6 = 132 bits of entropy
	minEntropyBits  int    = 128 // codes must not be weaker than a uuid
	maxAlphabetSize int    = 255
	minAlphabetSize int    = 8
)

var (
	ErrAlphabetTooShort    = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetInvalidUTF8 = errors.New("alphabet must contain valid UTF-8")
	ErrAlphabetNotASCII    = errors.New("alphabet must contain only ASCII characters")
	ErrAlphabetDuplicate   = errors.New("alphabet must not repeat characters")
)

var _ core.CodeGenerator = (*NanoIDGenerator)(nil)

// NanoIDGenerator draws fixed-length codes from an alphabet using crypto/rand.
type NanoIDGenerator struct {
	alphabet string
	mask     int
	size     int
}

func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize // Max mask for 8 bits
}

// sizeFor returns the shortest code length reaching minEntropyBits
func sizeFor(alphabetLen int) int {
	perSymbol := math.Log2(float64(alphabetLen))
	return int(math.Ceil(float64(minEntropyBits) / perSymbol))
}

// NewNanoID builds a generator over alphabet, or the URL-safe default when
// alphabet is empty. Code length is derived so every code carries at least
// 128 bits.
func NewNanoID(alphabet string) (*NanoIDGenerator, error) {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}

	if !utf8.ValidString(alphabet) {
		return nil, ErrAlphabetInvalidUTF8
	}

	// Generate indexes by byte position
	var seen [128]bool
	for _, r := range alphabet {
		if r > 127 {
			return nil, ErrAlphabetNotASCII
		}
		if seen[r] {
			return nil, ErrAlphabetDuplicate
		}
		seen[r] = true
	}

	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &NanoIDGenerator{
		alphabet: alphabet,
		mask:     getMask(len(alphabet)),
		size:     sizeFor(len(alphabet)),
	}, nil
}

// Size is the length of codes returned by Generate
func (n *NanoIDGenerator) Size() int {
	return n.size
}

// EntropyBits is the strength of one code
func (n *NanoIDGenerator) EntropyBits() int {
	if len(n.alphabet)&(len(n.alphabet)-1) == 0 {
		return n.size * (bits.Len(uint(len(n.alphabet))) - 1)
	}
	return int(float64(n.size) * math.Log2(float64(len(n.alphabet))))
}

func (n *NanoIDGenerator) Generate() (string, error) {
	return n.GenerateSize(n.size)
}

// GenerateSize draws a code of the given length. Lengths below 1 fall back to Size.
func (n *NanoIDGenerator) GenerateSize(size int) (string, error) {
	if size < 1 {
		size = n.size
	}

	alphabetLen := len(n.alphabet)
	step := int(math.Ceil(1.6 * float64(n.mask*size) / float64(alphabetLen)))

	id := make([]byte, size)
	buffer := make([]byte, step)

	for position := 0; position < size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		for i := 0; i < step && position < size; i++ {
			// masked bytes outside the alphabet are discarded to keep the draw uniform
			index := buffer[i] & byte(n.mask)
			if int(index) < alphabetLen {
				id[position] = n.alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}

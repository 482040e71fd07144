package code

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// DefaultAlphabet is uppercase Latin letters followed by digits.
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength gives 36^16 (~2^82) possible codes with DefaultAlphabet.
const DefaultLength = 16

// Generator draws activation codes from crypto/rand. It keeps no history;
// uniqueness is enforced by the store on insert.
type Generator struct {
	length   int
	alphabet string
	max      *big.Int
}

func NewGenerator(length int, alphabet string) (*Generator, error) {
	if length < 1 {
		return nil, errors.New("code length must be at least 1")
	}
	if len(alphabet) < 2 {
		return nil, errors.New("code alphabet needs at least two characters")
	}
	return &Generator{
		length:   length,
		alphabet: alphabet,
		max:      big.NewInt(int64(len(alphabet))),
	}, nil
}

func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.length)
	for i := range b {
		idx, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = g.alphabet[idx.Int64()]
	}
	return string(b), nil
}

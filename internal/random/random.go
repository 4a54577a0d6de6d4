package random

import (
	"crypto/rand"
	"errors"
	"io"
)

var ErrInvalidLength = errors.New("invalid length")

const alphabet = "0123456789abcdefghijklmnopqrstuv"

// Random produces identifiers for requests that arrive without one.
type Random interface {
	ID(length int) (string, error)
}

type random struct {
	reader io.Reader
}

func New() Random {
	return &random{reader: rand.Reader}
}

// ID returns length characters of base32hex, lower case. The alphabet has 32
// symbols so every byte maps without bias.
func (r *random) ID(length int) (string, error) {
	if length < 0 {
		return "", ErrInvalidLength
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(r.reader, b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[b[i]&31]
	}
	return string(b), nil
}

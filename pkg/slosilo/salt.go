package slosilo

import "fmt"

// DefaultSaltLength is the size of a tenant's fixed password salt.
const DefaultSaltLength = 32

// MinSaltLength guards against configuration that would make the salt trivially guessable.
const MinSaltLength = 16

// SaltGenerator produces cryptographically random, fixed-length salts.
type SaltGenerator interface {
	CreateRandomSalt() ([]byte, error)
}

type randomSaltGenerator struct {
	length int
}

// NewSaltGenerator returns a SaltGenerator that emits length random bytes per call.
func NewSaltGenerator(length int) (SaltGenerator, error) {
	if length < MinSaltLength {
		return nil, fmt.Errorf("salt length %d is below the minimum of %d", length, MinSaltLength)
	}
	return randomSaltGenerator{length: length}, nil
}

func (g randomSaltGenerator) CreateRandomSalt() ([]byte, error) {
	return RandomBytes(g.length)
}

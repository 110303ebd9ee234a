package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost = 10
	// MaxLength is the longest password bcrypt accepts, in bytes.
	MaxLength = 72
)

// ErrTooLong is returned by Hash for passwords over MaxLength bytes.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(digest []byte, plaintext string) bool
}

// Bcrypt is a Hasher backed by bcrypt. The digest embeds salt and cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher with the given cost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns the bcrypt digest of plaintext.
func (b *Bcrypt) Hash(plaintext string) ([]byte, error) {
	if len(plaintext) > MaxLength {
		return nil, ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Compare reports whether plaintext matches digest.
func (b *Bcrypt) Compare(digest []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}

// Package otp issues and checks the numeric one-time codes mailed to users
// when they prove ownership of an email address.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Step is the time step over which a code stays stable.
	Step = 60 * time.Second
	// Validity bounds the age of a challenge, measured from its issuance.
	Validity = 3 * time.Minute
	// SecretSize is the number of random bytes behind each secret.
	SecretSize = 20

	// issuance never tolerates skew; verification accepts one step either side.
	issueSkew  = 0
	verifySkew = 1
)

var (
	// ErrExpired indicates the challenge is older than Validity.
	ErrExpired = errors.New("otp expired")
	// ErrInvalid indicates the code does not match the secret.
	ErrInvalid = errors.New("invalid otp")
)

// Code is a freshly issued challenge: the shared secret, the code derived
// from it and the instant it was issued.
type Code struct {
	Secret   string
	Passcode string
	IssuedAt time.Time
}

// Generator issues new codes.
type Generator struct {
	issuer string
	now    func() time.Time
	rand   io.Reader
}

// NewGenerator builds a generator whose secrets are labelled with issuer.
func NewGenerator(issuer string) *Generator {
	return &Generator{issuer: issuer, now: time.Now, rand: rand.Reader}
}

// Issue creates a new secret for account and derives the current code.
func (g *Generator) Issue(account string) (Code, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: account,
		Period:      uint(Step / time.Second),
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Rand:        g.rand,
	})
	if err != nil {
		return Code{}, fmt.Errorf("generate otp secret: %w", err)
	}

	issuedAt := g.now()
	passcode, err := totp.GenerateCodeCustom(key.Secret(), issuedAt, opts(issueSkew))
	if err != nil {
		return Code{}, fmt.Errorf("derive otp: %w", err)
	}
	return Code{Secret: key.Secret(), Passcode: passcode, IssuedAt: issuedAt}, nil
}

// Verifier checks codes against their secret and issuance time.
type Verifier struct{}

// NewVerifier returns a Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify returns nil when code is valid for secret at now. Age is checked
// before the code itself so a stale challenge fails with ErrExpired even if
// the code would still match.
func (Verifier) Verify(secret, code string, issuedAt, now time.Time) error {
	if now.Sub(issuedAt) > Validity {
		return ErrExpired
	}
	ok, err := totp.ValidateCustom(code, secret, now, opts(verifySkew))
	if err != nil || !ok {
		return ErrInvalid
	}
	return nil
}

// CodeAt derives the code for secret at t with no skew.
func CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, opts(issueSkew))
}

func opts(skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(Step / time.Second),
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

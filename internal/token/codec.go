package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ExpiresAt when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// Codec reads the claims of an access token without verifying its
// signature. Verification belongs to the backend; the console only needs
// exp to avoid sending tokens that are obviously dead.
type Codec struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewCodec creates a Codec that uses the wall clock.
func NewCodec() *Codec {
	return NewCodecWithClock(time.Now)
}

// NewCodecWithClock creates a Codec with a custom clock.
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{
		parser: jwt.NewParser(),
		now:    now,
	}
}

// IsExpired reports whether token must be treated as expired. Any decoding
// failure, and a token without exp, count as expired. A token whose exp is
// the current second is still valid.
func (c *Codec) IsExpired(token string) bool {
	exp, err := c.ExpiresAt(token)
	if err != nil {
		return true
	}
	return exp.Unix() < c.now().Unix()
}

// ExpiresAt decodes the exp claim of token.
func (c *Codec) ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

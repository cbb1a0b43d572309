// Package identity turns bearer tokens into user ids.
//
// Tokens are HS256 JWTs carrying the user id in a "userId" claim (and in
// "sub"). A token that fails any check maps to slot.ErrUnauthenticated.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/slotswap/internal/slot"
)

// DefaultTTL is the lifetime of issued tokens when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// Config defines how tokens are signed and verified.
type Config struct {
	Secret []byte
	Issuer string // checked on verify when set
	TTL    time.Duration
	Now    func() time.Time
}

func (c Config) validate() (Config, error) {
	if len(c.Secret) == 0 {
		return Config{}, errors.New("token secret is required")
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// claims is the internal claims type used for JWT parsing.
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Verifier validates tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier creates a Verifier. The secret must not be empty.
func NewVerifier(cfg Config) (*Verifier, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks signature, algorithm, expiry and issuer and returns the user id.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", slot.Errorf(slot.CodeUnauthenticated, "token is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.cfg.Now),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return "", mapJWTError(err)
	}

	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		userID = strings.TrimSpace(parsed.Subject)
	}
	if userID == "" {
		return "", slot.Errorf(slot.CodeUnauthenticated, "token has no user id")
	}
	return userID, nil
}

// Issuer signs tokens for a user id.
type Issuer struct {
	cfg Config
}

// NewIssuer creates an Issuer. The secret must not be empty.
func NewIssuer(cfg Config) (*Issuer, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

// Issue returns a signed token valid for the configured TTL.
func (i *Issuer) Issue(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := i.cfg.Now().UTC()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
		},
		UserID: userID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors to Unauthenticated.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return slot.Wrap(slot.CodeUnauthenticated, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return slot.Wrap(slot.CodeUnauthenticated, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return slot.Wrap(slot.CodeUnauthenticated, "token alg is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return slot.Wrap(slot.CodeUnauthenticated, "token issuer mismatch", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return slot.Wrap(slot.CodeUnauthenticated, "token is malformed", err)
	default:
		return slot.Wrap(slot.CodeUnauthenticated, "token is invalid", err)
	}
}

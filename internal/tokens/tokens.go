package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxContainerSize is the largest encoded container accepted; browsers drop
// cookies above roughly 4KB.
const MaxContainerSize = 4096

var (
	ErrTooLarge = errors.New("session container too large")
	ErrInvalid  = errors.New("invalid session container")
)

// SubjectClaims is the identity snapshot carried in the container.
type SubjectClaims struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ContainerClaims is the payload of the signed session container.
// ID (jti) names the session, IssuedAt is the login instant and ExpiresAt
// the fixed end of the session.
type ContainerClaims struct {
	AccessToken  string        `json:"at"`
	RefreshToken string        `json:"rt,omitempty"`
	TokenType    string        `json:"tt,omitempty"`
	User         SubjectClaims `json:"usr"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session containers with HS256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec returns a codec using secret. now may be nil.
func NewCodec(secret []byte, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: secret, now: now}
}

// Sign encodes claims into a compact JWS.
func (c *Codec) Sign(claims *ContainerClaims) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("session secret not configured")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session container: %w", err)
	}
	if len(signed) > MaxContainerSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(signed))
	}
	return signed, nil
}

// Parse verifies raw and returns its claims. Anything other than a well formed,
// HS256-signed, unexpired container yields an error wrapping ErrInvalid.
func (c *Codec) Parse(raw string) (*ContainerClaims, error) {
	if raw == "" || len(raw) > MaxContainerSize {
		return nil, ErrInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	claims := &ContainerClaims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tok.Valid || claims.ID == "" || claims.AccessToken == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// AccessTokenExpiry reads the exp claim of an API access token without
// verifying it. The API's signing key is not shared with us, so this is only
// a hint for refreshing ahead of a 401.
func AccessTokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

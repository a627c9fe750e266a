package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT payload.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Token is a signed access token and its expiry.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Tokens issues and verifies HS256 access tokens carrying an actor.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(signingKey, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{key: []byte(signingKey), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for actor.
func (t *Tokens) Issue(actor models.Actor) (Token, error) {
	if !actor.Role.Valid() {
		return Token{}, models.Invalid("role", "role must be one of admin, teacher, student")
	}
	name := strings.TrimSpace(actor.DisplayName)
	if name == "" {
		return Token{}, models.Invalid("displayName", "displayName is a required field")
	}

	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role: string(actor.Role),
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return Token{}, errors.Wrap(err, "sign token")
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns the actor it was issued for.
func (t *Tokens) Parse(tokenStr string) (models.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now)}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		return models.Actor{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return models.Actor{}, ErrInvalidToken
	}
	actor := models.Actor{Role: models.Role(claims.Role), DisplayName: claims.Name}
	if !actor.Role.Valid() || actor.DisplayName == "" {
		return models.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

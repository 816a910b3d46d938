package authn

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
)

// UserLookup is the slice of World that the reference authenticator needs:
// looking a user up by username to verify a login and mint a token. Satisfied
// directly by *world.World.
type UserLookup interface {
	GetUserByUsername(username string) (*grid.User, bool)
}

// claims is the JWT payload minted by TokenAuthenticator.Login and verified
// by Authenticate.
type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenAuthenticator is the reference Authenticator adapter of §4.5:
// Argon2id password verification at login, HMAC-signed expiring bearer
// tokens for every subsequent session. The World/wire core depends only on
// the Authenticator interface, never on this type.
type TokenAuthenticator struct {
	users      UserLookup
	secret     []byte
	expiration time.Duration
}

// NewTokenAuthenticator builds a TokenAuthenticator. expiration is how long
// a minted token remains valid (config field jwt_expiration_in_minutes).
func NewTokenAuthenticator(users UserLookup, secret []byte, expiration time.Duration) *TokenAuthenticator {
	return &TokenAuthenticator{users: users, secret: secret, expiration: expiration}
}

// Login verifies username/password against the World's user store and, on
// success, mints a signed bearer token carrying the user's actor id.
func (a *TokenAuthenticator) Login(username, password string) (string, error) {
	user, ok := a.users.GetUserByUsername(username)
	if !ok {
		return "", fmt.Errorf("authn: unknown user %q", username)
	}
	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("authn: verify password: %w", err)
	}
	if !match {
		return "", fmt.Errorf("authn: incorrect password for %q", username)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
		},
	})
	return token.SignedString(a.secret)
}

// Authenticate implements Authenticator: credential is expected to be a
// bearer token, optionally prefixed with "Bearer ".
func (a *TokenAuthenticator) Authenticate(credential string) (Identity, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(credential), "Bearer ")

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("authn: parse token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("authn: invalid token")
	}

	actorID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("authn: invalid subject claim: %w", err)
	}
	return Identity{ActorID: actorID, Username: c.Username}, nil
}

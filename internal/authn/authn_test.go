package authn_test

import (
	"testing"
	"time"

	"github.com/darxtarr/txxt/internal/authn"
	"github.com/darxtarr/txxt/internal/grid"
)

func TestHashAndVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := authn.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := authn.VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected correct password to verify")
	}

	ok, err = authn.VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected incorrect password to fail verification")
	}
}

type fakeUserLookup struct {
	user *grid.User
}

func (f fakeUserLookup) GetUserByUsername(username string) (*grid.User, bool) {
	if f.user != nil && f.user.Username == username {
		return f.user, true
	}
	return nil, false
}

func TestTokenAuthenticatorLoginAndAuthenticateRoundTrip(t *testing.T) {
	hash, err := authn.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &grid.User{ID: mustUUID(t), Username: "admin", PasswordHash: hash}
	lookup := fakeUserLookup{user: user}

	authenticator := authn.NewTokenAuthenticator(lookup, []byte("test-secret"), time.Minute)

	token, err := authenticator.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	identity, err := authenticator.Authenticate("Bearer " + token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.ActorID != user.ID || identity.Username != user.Username {
		t.Fatalf("identity mismatch: got %+v", identity)
	}
}

func TestTokenAuthenticatorRejectsWrongPassword(t *testing.T) {
	hash, _ := authn.HashPassword("hunter2")
	user := &grid.User{ID: mustUUID(t), Username: "admin", PasswordHash: hash}
	authenticator := authn.NewTokenAuthenticator(fakeUserLookup{user: user}, []byte("test-secret"), time.Minute)

	if _, err := authenticator.Login("admin", "wrong"); err == nil {
		t.Fatal("expected login with wrong password to fail")
	}
}

func TestTokenAuthenticatorRejectsExpiredToken(t *testing.T) {
	hash, _ := authn.HashPassword("hunter2")
	user := &grid.User{ID: mustUUID(t), Username: "admin", PasswordHash: hash}
	authenticator := authn.NewTokenAuthenticator(fakeUserLookup{user: user}, []byte("test-secret"), -time.Minute)

	token, err := authenticator.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := authenticator.Authenticate(token); err == nil {
		t.Fatal("expected already-expired token to fail authentication")
	}
}

func mustUUID(t *testing.T) (id [16]byte) {
	t.Helper()
	// A fixed, arbitrary id is fine here; these tests don't exercise
	// uniqueness, just round-tripping through Login/Authenticate.
	copy(id[:], []byte("0123456789abcdef"))
	return id
}

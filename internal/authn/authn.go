package authn

import "github.com/google/uuid"

// Identity is what a successful authentication yields: the actor_id
// stamped into created_by for every task the session creates, and the
// username for logging/display.
type Identity struct {
	ActorID  uuid.UUID
	Username string
}

// Authenticator is the narrow external-collaborator interface of §4.5: the
// session core calls it once at connection establishment and depends on
// nothing about how it verifies a credential. The reference adapter in
// this package (Argon2id password hashing plus JWT bearer tokens) is one
// implementation; any other satisfies the session loop equally well.
type Authenticator interface {
	Authenticate(credential string) (Identity, error)
}

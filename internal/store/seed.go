package store

import (
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/darxtarr/txxt/internal/authn"
	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/world"
)

// defaultServiceNamespace anchors the name-based UUIDs of the default
// services, so the same twelve names always produce the same twelve ids
// across every boot without hard-coding sixteen raw byte literals each.
var defaultServiceNamespace = uuid.MustParse("7b4f6c9a-2e1d-4a3f-9c8b-5d6e7f8a9b0c")

// defaultServiceNames is the fixed seed list of §9's "Default services".
var defaultServiceNames = []string{
	"Billing Portal",
	"Customer Support",
	"Data Warehouse",
	"Fraud Detection",
	"Identity",
	"Internal Tools",
	"Mobile App",
	"Payments",
	"Reporting",
	"Search",
	"Shipping",
	"Web App",
}

// EnsureDefaultServices creates the fixed, deterministic list of twelve
// named services if the World has none, persisting each in the same
// transaction. Idempotent: a second call on an already-populated World is
// a no-op returning 0.
func EnsureDefaultServices(sf *SaveFile, w *world.World) (int, error) {
	if w.ServiceCount() > 0 {
		return 0, nil
	}

	services := make([]*grid.Service, 0, len(defaultServiceNames))
	for _, name := range defaultServiceNames {
		services = append(services, &grid.Service{
			ID:   uuid.NewSHA1(defaultServiceNamespace, []byte(name)),
			Name: name,
		})
	}

	err := sf.db.Update(func(tx *bbolt.Tx) error {
		for _, svc := range services {
			if err := putService(tx, svc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: seed default services: %v", ErrStorage, err)
	}

	for _, svc := range services {
		w.RestoreService(svc)
	}
	return len(services), nil
}

// DefaultAdminConfig carries the configured default admin identity used to
// seed the single bootstrap user when the World has none.
type DefaultAdminConfig struct {
	Username string
	Password string
}

// EnsureDefaultUser creates the configured default admin user if the World
// has none, hashing the password with Argon2id and a random per-user salt.
// Idempotent: a second call on an already-populated World is a no-op
// returning false.
func EnsureDefaultUser(sf *SaveFile, w *world.World, cfg DefaultAdminConfig) (bool, error) {
	if w.UserCount() > 0 {
		return false, nil
	}

	hash, err := authn.HashPassword(cfg.Password)
	if err != nil {
		return false, fmt.Errorf("%w: hash default admin password: %v", ErrStorage, err)
	}

	user := &grid.User{ID: uuid.New(), Username: cfg.Username, PasswordHash: hash}

	err = sf.db.Update(func(tx *bbolt.Tx) error {
		return putUser(tx, user)
	})
	if err != nil {
		return false, fmt.Errorf("%w: seed default user: %v", ErrStorage, err)
	}

	w.RestoreUser(user)
	return true, nil
}

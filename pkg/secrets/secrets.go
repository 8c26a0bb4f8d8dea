// Package secrets resolves credentials (database password, JWT signing key)
// from HashiCorp Vault with an environment-variable fallback, so the same
// binary runs against Vault in production and plain env vars locally.
package secrets

import (
	"context"
	"errors"
	"sync"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

// Manager resolves a secret by key.
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault never fails; resolution errors yield defaultValue.
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

var ErrManagerNotInitialized = errors.New("secrets manager not initialized")

var (
	defaultManager Manager
	managerOnce    sync.Once
)

// Init builds the package-level Vault-backed manager. Safe to call more than
// once; only the first call constructs anything.
func Init(log *logger.Logger) error {
	var err error
	managerOnce.Do(func() {
		manager, initErr := NewVaultManager(log)
		if initErr != nil {
			err = initErr
			return
		}
		defaultManager = manager
	})
	return err
}

// GetSecret resolves a secret through the package-level manager.
func GetSecret(ctx context.Context, key string) (string, error) {
	if defaultManager == nil {
		return "", ErrManagerNotInitialized
	}
	return defaultManager.GetSecret(ctx, key)
}

// GetSecretWithDefault resolves a secret, returning defaultValue when no
// manager is initialized or the lookup fails.
func GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if defaultManager == nil {
		return defaultValue
	}
	return defaultManager.GetSecretWithDefault(ctx, key, defaultValue)
}

// SetManager swaps the package-level manager, used by tests.
func SetManager(manager Manager) {
	defaultManager = manager
}

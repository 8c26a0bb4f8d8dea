package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

const secretCacheTTL = 5 * time.Minute

// VaultConfig is read from VAULT_* environment variables.
type VaultConfig struct {
	Address     string
	Token       string
	Namespace   string
	SecretsPath string
	Timeout     time.Duration
	MaxRetries  int
	Enabled     bool
}

func vaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Namespace:   os.Getenv("VAULT_NAMESPACE"),
		SecretsPath: os.Getenv("VAULT_SECRETS_PATH"),
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		Enabled:     true,
	}
	if enabled := os.Getenv("VAULT_ENABLED"); enabled != "" {
		cfg.Enabled = enabled == "true" || enabled == "1" || enabled == "yes"
	}
	if cfg.SecretsPath == "" {
		cfg.SecretsPath = "secret/data/storefront"
	}
	return cfg
}

// VaultManager reads secrets from a single KV v2 path and caches values for
// a short window. With Vault disabled it degrades to env-var lookup only.
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string]string
}

func NewVaultManager(log *logger.Logger) (*VaultManager, error) {
	cfg := vaultConfigFromEnv()

	m := &VaultManager{
		config: cfg,
		cache:  make(map[string]string),
		log:    log,
	}
	if !cfg.Enabled {
		return m, nil
	}

	if cfg.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}

	clientCfg := vault.DefaultConfig()
	clientCfg.Address = cfg.Address
	clientCfg.Timeout = cfg.Timeout
	clientCfg.MaxRetries = cfg.MaxRetries

	client, err := vault.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	m.client = client

	go m.expireCache()

	return m, nil
}

// GetSecret resolves key from the cache, then Vault, then the environment.
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	cached, found := m.cache[key]
	m.mu.RUnlock()
	if found {
		return cached, nil
	}

	if !m.config.Enabled {
		return m.getFromEnvironment(key)
	}

	value, err := m.getFromVault(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("secret not in vault, falling back to environment", "key", key)
			return m.getFromEnvironment(key)
		}
		return "", err
	}

	m.cacheSecret(key, value)
	return value, nil
}

// GetSecretWithDefault resolves key, returning defaultValue on any failure.
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Warn("secret lookup failed, using default", "key", key, "error", err.Error())
		return defaultValue
	}
	return value
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2("secret").Get(ctx, m.config.SecretsPath)
	if err != nil {
		m.log.LogError(err, "vault read failed", "path", m.config.SecretsPath)
		return "", fmt.Errorf("reading secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", ErrSecretNotFound
	}
	value, ok := data[key].(string)
	if !ok {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// getFromEnvironment maps "jwt_secret" or "db.password" style keys onto the
// conventional JWT_SECRET / DB_PASSWORD variables.
func (m *VaultManager) getFromEnvironment(key string) (string, error) {
	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	value := os.Getenv(envKey)
	if value == "" {
		return "", ErrSecretNotFound
	}
	m.cacheSecret(key, value)
	return value, nil
}

func (m *VaultManager) cacheSecret(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
}

// expireCache drops all cached values every TTL so rotated secrets are
// picked up without a restart.
func (m *VaultManager) expireCache() {
	ticker := time.NewTicker(secretCacheTTL)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		m.cache = make(map[string]string)
		m.mu.Unlock()
		m.log.Debug("secret cache cleared")
	}
}

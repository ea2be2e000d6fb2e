package securestore

import (
	"context"
	"fmt"

	"talentlink/internal/config"
)

// NewMediumFromConfig builds the backing medium for the configured platform.
// It is called once at startup; the result must not be swapped afterwards.
func NewMediumFromConfig(ctx context.Context, cfg *config.Config) (Medium, error) {
	sc := cfg.SecureStore
	backend := sc.ActiveBackend(cfg.Platform)

	switch cfg.Platform {
	case config.PlatformNative:
		switch backend {
		case config.BackendKeychain:
			return NewKeychainMedium(sc.KeychainService)
		case config.BackendSQLite:
			key, err := sc.Key()
			if err != nil {
				return nil, err
			}
			return NewEncryptedSQLiteMedium(sc.DatabasePath, key)
		case config.BackendMemory:
			return NewMemoryMedium(), nil
		}

	case config.PlatformWeb:
		switch backend {
		case config.BackendSQLite:
			return NewPlainSQLiteMedium(sc.DatabasePath)
		case config.BackendRedis:
			return NewRedisMedium(ctx, RedisOptions{
				Addr:     sc.RedisAddr,
				Password: sc.RedisPassword,
				DB:       sc.RedisDB,
				Prefix:   sc.RedisPrefix,
			})
		case config.BackendMemory:
			return NewMemoryMedium(), nil
		}
	}

	return nil, fmt.Errorf("%w: %q on platform %q", ErrUnsupportedBackend, backend, cfg.Platform)
}

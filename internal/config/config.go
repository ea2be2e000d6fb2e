package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Platform names the runtime the client is built for. It decides which
// backing medium the secure store uses and is fixed for the process lifetime.
type Platform string

const (
	PlatformNative Platform = "native"
	PlatformWeb    Platform = "web"
)

// Secure store backend names
const (
	BackendKeychain = "keychain"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the client configuration
type Config struct {
	// Platform selection, resolved once at startup
	Platform Platform `mapstructure:"platform"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	SecureStore SecureStoreConfig `mapstructure:"secure_store"`
	API         APIConfig         `mapstructure:"api"`
}

// SecureStoreConfig selects and configures the backing medium
type SecureStoreConfig struct {
	NativeBackend   string `mapstructure:"native_backend"` // keychain, sqlite, memory
	WebBackend      string `mapstructure:"web_backend"`    // sqlite, redis, memory
	KeychainService string `mapstructure:"keychain_service"`

	// sqlite backends
	DatabasePath  string `mapstructure:"database_path"`
	EncryptionKey string `mapstructure:"encryption_key"` // hex encoded, 32 bytes

	// redis backend
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// APIConfig configures the local HTTP shell
type APIConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds

	// Browser origins, besides the shell's own, allowed to call it
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformNative,
		LogLevel: "info",
		LogFile:  "",
		SecureStore: SecureStoreConfig{
			NativeBackend:   BackendKeychain,
			WebBackend:      BackendSQLite,
			KeychainService: "talentlink",
			DatabasePath:    "./talentlink.db",
			EncryptionKey:   "",
			RedisAddr:       "localhost:6379",
			RedisDB:         0,
			RedisPrefix:     "talentlink:",
		},
		API: APIConfig{
			Host:         "127.0.0.1",
			Port:         8181,
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".talentlink"))
		}
	}

	// TALENTLINK_SECURE_STORE_ENCRYPTION_KEY etc.
	v.SetEnvPrefix("TALENTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key with viper so that environment variables
// are picked up even when no config file mentions them
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("platform", string(cfg.Platform))
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)

	v.SetDefault("secure_store.native_backend", cfg.SecureStore.NativeBackend)
	v.SetDefault("secure_store.web_backend", cfg.SecureStore.WebBackend)
	v.SetDefault("secure_store.keychain_service", cfg.SecureStore.KeychainService)
	v.SetDefault("secure_store.database_path", cfg.SecureStore.DatabasePath)
	v.SetDefault("secure_store.encryption_key", cfg.SecureStore.EncryptionKey)
	v.SetDefault("secure_store.redis_addr", cfg.SecureStore.RedisAddr)
	v.SetDefault("secure_store.redis_password", cfg.SecureStore.RedisPassword)
	v.SetDefault("secure_store.redis_db", cfg.SecureStore.RedisDB)
	v.SetDefault("secure_store.redis_prefix", cfg.SecureStore.RedisPrefix)

	v.SetDefault("api.host", cfg.API.Host)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.read_timeout", cfg.API.ReadTimeout)
	v.SetDefault("api.write_timeout", cfg.API.WriteTimeout)
	v.SetDefault("api.idle_timeout", cfg.API.IdleTimeout)
	v.SetDefault("api.allowed_origins", cfg.API.AllowedOrigins)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Platform != PlatformNative && c.Platform != PlatformWeb {
		return fmt.Errorf("platform must be one of: native, web")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	if err := c.SecureStore.validate(c.Platform); err != nil {
		return err
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	for _, origin := range c.API.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || strings.Trim(u.Path, "/") != "" {
			return fmt.Errorf("api.allowed_origins entry %q must be a scheme and host such as https://app.example.com", origin)
		}
	}

	return nil
}

func (s *SecureStoreConfig) validate(platform Platform) error {
	backend := s.ActiveBackend(platform)

	switch platform {
	case PlatformNative:
		if backend != BackendKeychain && backend != BackendSQLite && backend != BackendMemory {
			return fmt.Errorf("secure_store.native_backend must be one of: keychain, sqlite, memory")
		}
	case PlatformWeb:
		if backend != BackendSQLite && backend != BackendRedis && backend != BackendMemory {
			return fmt.Errorf("secure_store.web_backend must be one of: sqlite, redis, memory")
		}
	}

	switch backend {
	case BackendKeychain:
		if s.KeychainService == "" {
			return fmt.Errorf("secure_store.keychain_service is required")
		}
	case BackendSQLite:
		if s.DatabasePath == "" {
			return fmt.Errorf("secure_store.database_path is required")
		}
		// Only the native sqlite backend encrypts
		if platform == PlatformNative {
			if _, err := s.Key(); err != nil {
				return err
			}
		}
	case BackendRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("secure_store.redis_addr is required")
		}
	}

	return nil
}

// ActiveBackend returns the backend configured for the given platform
func (s *SecureStoreConfig) ActiveBackend(platform Platform) string {
	if platform == PlatformWeb {
		return strings.ToLower(s.WebBackend)
	}
	return strings.ToLower(s.NativeBackend)
}

// Key decodes the encryption key used by the encrypted sqlite backend
func (s *SecureStoreConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, fmt.Errorf("secure_store.encryption_key is required for the encrypted sqlite backend")
	}

	key, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("secure_store.encryption_key must be hex encoded: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("secure_store.encryption_key must decode to 32 bytes, got %d", len(key))
	}

	return key, nil
}

// Addr returns the listen address of the local HTTP shell
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// AllowsOrigin reports whether origin is listed in AllowedOrigins. Scheme and
// host compare case-insensitively and a trailing slash is ignored.
func (a APIConfig) AllowsOrigin(origin string) bool {
	origin = strings.TrimSuffix(strings.ToLower(origin), "/")
	for _, allowed := range a.AllowedOrigins {
		if strings.TrimSuffix(strings.ToLower(allowed), "/") == origin {
			return true
		}
	}
	return false
}

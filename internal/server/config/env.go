package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables, loading a
// local .env file first when one exists. Variables:
//
//	FISKAL_DATABASE_DSN        PostgreSQL DSN
//	FISKAL_PORTAL_BASE_URL     portal base URL
//	FISKAL_PORTAL_TIMEOUT      Go duration string, e.g. "30s"
//	FISKAL_ACTIVE_KEY_VERSION  integer 1..255
//	FISKAL_KEY_<n>             hex-encoded 32-byte key for version n
//	FISKAL_PASSPHRASE_<n>      passphrase for version n (stretched with argon2id)
//	FISKAL_KEY_SALT            salt for passphrase stretching
func parseEnv(config *Config) {
	// best effort: absence of a .env file is the normal case
	_ = godotenv.Load()

	if v := os.Getenv("FISKAL_DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("FISKAL_PORTAL_BASE_URL"); v != "" {
		config.PortalBaseURL = v
	}
	if v := os.Getenv("FISKAL_PORTAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("FISKAL_PORTAL_TIMEOUT: %w", err))
		}
		config.PortalTimeout = d
	}
	if v := os.Getenv("FISKAL_ACTIVE_KEY_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("FISKAL_ACTIVE_KEY_VERSION: %w", err))
		}
		config.ActiveKeyVersion = n
	}
	if v := os.Getenv("FISKAL_KEY_SALT"); v != "" {
		config.KeySalt = v
	}
	for ver := 1; ver <= 255; ver++ {
		if v := os.Getenv(fmt.Sprintf("FISKAL_KEY_%d", ver)); v != "" {
			config.EncryptionKeys[strconv.Itoa(ver)] = v
		}
		if v := os.Getenv(fmt.Sprintf("FISKAL_PASSPHRASE_%d", ver)); v != "" {
			config.EncryptionPassphrases[strconv.Itoa(ver)] = v
		}
	}
}

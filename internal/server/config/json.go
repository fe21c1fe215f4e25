package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/avigliano/scontrino/internal/flagx"
)

// Duration wraps time.Duration for JSON unmarshalling, accepting both
// string values such as "30s" and integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	DatabaseDSN      string            `json:"database_dsn"`
	PortalBaseURL    string            `json:"portal_base_url"`
	PortalTimeout    Duration          `json:"portal_timeout"`
	ActiveKeyVersion int               `json:"active_key_version"`
	EncryptionKeys   map[string]string `json:"encryption_keys"`
	Passphrases      map[string]string `json:"encryption_passphrases"`
	KeySalt          string            `json:"key_salt"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. An unreadable or
// invalid file panics: the service must not start on broken configuration.
//
// Only fields present in the file override the current values.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.PortalBaseURL != "" {
		config.PortalBaseURL = c.PortalBaseURL
	}
	if c.PortalTimeout.Duration != 0 {
		config.PortalTimeout = c.PortalTimeout.Duration
	}
	if c.ActiveKeyVersion != 0 {
		config.ActiveKeyVersion = c.ActiveKeyVersion
	}
	for ver, key := range c.EncryptionKeys {
		config.EncryptionKeys[ver] = key
	}
	for ver, passphrase := range c.Passphrases {
		config.EncryptionPassphrases[ver] = passphrase
	}
	if c.KeySalt != "" {
		config.KeySalt = c.KeySalt
	}
}

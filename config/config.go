// Package config loads the encrypted, passphrase-wrapped configuration,
// ported field-for-field from original_source/src/config.rs.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/BurntSushi/toml"

	"github.com/netdox/netdox/neterr"
)

const (
	// PathVar names the environment variable holding the config file path.
	PathVar = "NETDOX_CONFIG"
	// SecretVar names the environment variable holding the passphrase.
	SecretVar = "NETDOX_SECRET"
)

// Database describes the datastore connection.
type Database struct {
	System string `toml:"system"`
	Host string `toml:"host,omitempty"`
	Port string `toml:"port,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	DBName string `toml:"dbname,omitempty"`
	Path string `toml:"path,omitempty"`
}

// Remote describes the publishing target. Kind selects the adapter; Fields carries adapter-specific
// configuration, mirroring PluginConfig's flattened map.
type Remote struct {
	Kind string `toml:"kind"`
	Fields map[string]string `toml:"fields,omitempty"`
}

// PluginConfig is one producer entry. The stage fields (WriteOnly,
// ReadWrite, Connectors) only decide which stage runs the plugin; the
// plugin receives Fields alone, and no stage field is merged into it.
type PluginConfig struct {
	Name string `toml:"name"`
	WriteOnly string `toml:"write_only,omitempty"`
	ReadWrite string `toml:"read_write,omitempty"`
	Connectors string `toml:"connectors,omitempty"`
	Fields map[string]string `toml:"fields,omitempty"`
}

// Config is the full decrypted configuration, matching
// original_source/src/config.rs's Config struct field-for-field (Redis ->
// Datastore, generalised to any Database system).
type Config struct {
	Datastore Database `toml:"datastore"`
	DefaultNetwork string `toml:"default_network"`
	DNSExclusions []string `toml:"dns_exclusions,omitempty"`
	Remote Remote `toml:"remote"`
	Plugins []PluginConfig `toml:"plugin"`
}

// resolvePath implements fallback chain: NETDOX_CONFIG, else
// $XDG_CONFIG_HOME/.netdox, else $HOME/.config/.netdox, else $HOME/.netdox.
func resolvePath() (string, error) {
	if p := os.Getenv(PathVar); p != "" {
		return p, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ".netdox"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", neterr.Configf(err, "cannot resolve config path: no $%s and no home directory", PathVar)
	}
	configDir := filepath.Join(home, ".config", ".netdox")
	if _, err := os.Stat(filepath.Dir(configDir)); err == nil {
		return configDir, nil
	}
	return filepath.Join(home, ".netdox"), nil
}

func secret() (string, error) {
	s := os.Getenv(SecretVar)
	if s == "" {
		return "", neterr.Configf(nil, "environment variable %s is not set", SecretVar)
	}
	return s, nil
}

// Encrypt serializes cfg to TOML and encrypts it with an age passphrase
// identity (the Go sibling of the age crate used by the original).
func (c *Config) Encrypt() ([]byte, error) {
	pass, err := secret()
	if err != nil {
		return nil, err
	}

	recipient, err := age.NewScryptRecipient(pass)
	if err != nil {
		return nil, neterr.Configf(err, "failed building encryption recipient")
	}

	var plain bytes.Buffer
	if err := toml.NewEncoder(&plain).Encode(c); err != nil {
		return nil, neterr.Configf(err, "failed to serialize config")
	}

	var cipher bytes.Buffer
	w, err := age.Encrypt(&cipher, recipient)
	if err != nil {
		return nil, neterr.Configf(err, "failed while encrypting config")
	}
	if _, err := io.Copy(w, &plain); err != nil {
		return nil, neterr.Configf(err, "failed while encrypting config")
	}
	if err := w.Close(); err != nil {
		return nil, neterr.Configf(err, "failed while encrypting config")
	}

	return cipher.Bytes(), nil
}

// Decrypt reverses Encrypt.
func Decrypt(cipher []byte) (*Config, error) {
	pass, err := secret()
	if err != nil {
		return nil, err
	}

	identity, err := age.NewScryptIdentity(pass)
	if err != nil {
		return nil, neterr.Configf(err, "failed building decryption identity")
	}

	r, err := age.Decrypt(bytes.NewReader(cipher), identity)
	if err != nil {
		return nil, neterr.Configf(err, "failed creating decrypting reader")
	}

	var plain bytes.Buffer
	if _, err := io.Copy(&plain, r); err != nil {
		return nil, neterr.Configf(err, "failed reading decrypted config")
	}

	var cfg Config
	if _, err := toml.Decode(plain.String(), &cfg); err != nil {
		return nil, neterr.Configf(err, "failed to deserialize config")
	}
	return &cfg, nil
}

// Write encrypts c and writes it to the resolved config path, returning
// that path.
func (c *Config) Write() (string, error) {
	path, err := resolvePath()
	if err != nil {
		return "", err
	}
	cipher, err := c.Encrypt()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", neterr.IOf(err, "failed to create config directory for %s", path)
	}
	if err := os.WriteFile(path, cipher, 0o600); err != nil {
		return "", neterr.IOf(err, "failed to write encrypted config to %s", path)
	}
	return path, nil
}

// Load reads and decrypts the configuration at the resolved path.
func Load() (*Config, error) {
	path, err := resolvePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, neterr.IOf(err, "failed to read config file at %s", path)
	}
	return Decrypt(raw)
}

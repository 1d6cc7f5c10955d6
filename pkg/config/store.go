package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const apiKeySetting = "api_key"

// ErrNoAPIKey is returned when neither the environment nor the store holds a key
var ErrNoAPIKey = errors.New("no NVD API key configured")

// Store persists the NVD API key in a JSON file
type Store struct {
	path string
	v    *viper.Viper
}

// NewStore opens the store backed by path. A missing file is an empty store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	return &Store{path: path, v: v}, nil
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// APIKey returns the stored key, trimmed
func (s *Store) APIKey() string {
	return strings.TrimSpace(s.v.GetString(apiKeySetting))
}

// SaveAPIKey stores key and writes the configuration file
func (s *Store) SaveAPIKey(key string) error {
	s.v.Set(apiKeySetting, strings.TrimSpace(key))

	// WriteConfigAs picks the format from the extension; the file is JSON whatever its name.
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to save configuration %s: %w", s.path, err)
	}
	if err := s.v.WriteConfigTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to save configuration %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save configuration %s: %w", s.path, err)
	}
	return nil
}

// ResolveAPIKey returns the key from NVD_API_KEY, falling back to the store
func ResolveAPIKey(store *Store) (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}
	if store != nil {
		if key := store.APIKey(); key != "" {
			return key, nil
		}
	}
	return "", ErrNoAPIKey
}

// LoadDotEnv loads path into the environment. A missing file is not an error
// and variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

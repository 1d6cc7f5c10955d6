package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfigurator returns a configurator fed with input that records opened URLs.
func newTestConfigurator(t *testing.T, store *Store, input string) (*Configurator, *bytes.Buffer, *[]string) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	c := NewConfigurator(store, strings.NewReader(input), &out, nil)
	var opened []string
	c.openURL = func(u string) error {
		opened = append(opened, u)
		return nil
	}
	return c, &out, &opened
}

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return store
}

func TestConfigurator_NewKey(t *testing.T) {
	store := newTempStore(t)
	c, _, opened := newTestConfigurator(t, store, "my-key\n")

	key, err := c.Run()

	require.NoError(t, err)
	assert.Equal(t, "my-key", key)
	assert.Equal(t, "my-key", store.APIKey())
	assert.Equal(t, []string{APIKeyPageURL}, *opened)
}

func TestConfigurator_KeepExistingKey(t *testing.T) {
	store := newTempStore(t)
	require.NoError(t, store.SaveAPIKey("old-key"))
	c, out, opened := newTestConfigurator(t, store, "non\n")

	key, err := c.Run()

	require.NoError(t, err)
	assert.Equal(t, "old-key", key)
	assert.Empty(t, *opened)
	assert.Contains(t, out.String(), "déjà configurée")
}

func TestConfigurator_ReplaceExistingKey(t *testing.T) {
	store := newTempStore(t)
	require.NoError(t, store.SaveAPIKey("old-key"))
	c, _, _ := newTestConfigurator(t, store, "OUI\nnew-key\n")

	key, err := c.Run()

	require.NoError(t, err)
	assert.Equal(t, "new-key", key)
	assert.Equal(t, "new-key", store.APIKey())
}

func TestConfigurator_EmptyKeyCancels(t *testing.T) {
	store := newTempStore(t)
	c, out, _ := newTestConfigurator(t, store, "\n")

	_, err := c.Run()

	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Contains(t, out.String(), "Configuration annulée")
	assert.Equal(t, "", store.APIKey())
}

func TestConfigurator_BrowserFailureIsNotFatal(t *testing.T) {
	store := newTempStore(t)
	c, out, _ := newTestConfigurator(t, store, "my-key")
	c.openURL = func(string) error { return errors.New("no display") }

	key, err := c.Run()

	require.NoError(t, err)
	assert.Equal(t, "my-key", key)
	assert.Contains(t, out.String(), APIKeyPageURL)
}

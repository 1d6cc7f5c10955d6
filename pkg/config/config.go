package config

import (
	"time"

	"github.com/ExclusiveAccount/ctfoutu/pkg/exploitdb"
	"github.com/ExclusiveAccount/ctfoutu/pkg/nvd"
)

const (
	// DefaultConfigFile is where the API key is stored
	DefaultConfigFile = "config.json"

	// DefaultEnvFile is loaded into the environment before anything else
	DefaultEnvFile = ".env"

	// APIKeyEnv overrides the stored API key
	APIKeyEnv = "NVD_API_KEY"

	// APIKeyPageURL is where a new NVD API key can be requested
	APIKeyPageURL = "https://nvd.nist.gov/developers/request-an-api-key"
)

// Config holds the search configuration
type Config struct {
	ConfigFile         string        // File holding the stored API key
	APIKey             string        // Resolved NVD API key
	NVDEndpoint        string        // NVD CVE API search endpoint
	ExploitDBURL       string        // Exploit-DB CSV export URL
	ResultsPerPage     int           // CVEs requested from NVD
	Timeout            time.Duration // Timeout for network operations
	MaxRetries         int           // Attempts made against NVD
	UnavailableBackoff time.Duration // Wait after NVD answers 503
	NetworkBackoff     time.Duration // Wait after a network error
	FallbackWithoutKey bool          // Retry without the key when NVD answers 404
	OutputDir          string        // Directory receiving the result files
	Spinner            bool          // Show a spinner while searching
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		ConfigFile:         DefaultConfigFile,
		NVDEndpoint:        nvd.DefaultEndpoint,
		ExploitDBURL:       exploitdb.DefaultCSVURL,
		ResultsPerPage:     50,
		Timeout:            20 * time.Second,
		MaxRetries:         3,
		UnavailableBackoff: 5 * time.Second,
		NetworkBackoff:     2 * time.Second,
		FallbackWithoutKey: true,
		OutputDir:          ".",
		Spinner:            true,
	}
}

// NVDClientConfig returns the NVD client settings derived from c
func (c Config) NVDClientConfig() nvd.ClientConfig {
	return nvd.ClientConfig{
		Endpoint:           c.NVDEndpoint,
		APIKey:             c.APIKey,
		ResultsPerPage:     c.ResultsPerPage,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		UnavailableBackoff: c.UnavailableBackoff,
		NetworkBackoff:     c.NetworkBackoff,
		FallbackWithoutKey: c.FallbackWithoutKey,
	}
}

// ExploitIndexConfig returns the Exploit-DB settings derived from c
func (c Config) ExploitIndexConfig() exploitdb.IndexConfig {
	return exploitdb.IndexConfig{
		URL:     c.ExploitDBURL,
		Timeout: c.Timeout,
	}
}

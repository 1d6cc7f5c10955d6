// Package exploitdb searches the Exploit-DB CSV export for exploits
// matching a keyword.
package exploitdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
	"github.com/ExclusiveAccount/ctfoutu/pkg/progress"
)

// DefaultCSVURL is where the Exploit-DB CSV export is downloaded from
const DefaultCSVURL = "https://gitlab.com/exploit-database/exploitdb/-/raw/main/files_exploits.csv"

// ErrDownload is returned when the CSV export cannot be fetched
var ErrDownload = errors.New("failed to download Exploit-DB CSV")

// IndexConfig holds the Exploit-DB settings
type IndexConfig struct {
	URL        string        // CSV export URL
	Timeout    time.Duration // Download timeout
	TempDir    string        // Directory for the snapshot, os.TempDir when empty
	HTTPClient *http.Client  // Optional, built from Timeout when nil
}

// Index downloads the Exploit-DB CSV export and searches it
type Index struct {
	config IndexConfig
	http   *http.Client
	logger *logrus.Logger
}

// NewIndex creates a new Exploit-DB index
func NewIndex(config IndexConfig, logger *logrus.Logger) *Index {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if config.URL == "" {
		config.URL = DefaultCSVURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Index{
		config: config,
		http:   httpClient,
		logger: logger,
	}
}

// Search downloads a fresh snapshot of the CSV export, searches it for
// keyword and removes the snapshot. A download failure is returned as an
// error wrapping ErrDownload; a snapshot that cannot be read is logged and
// treated as no matches. reporter may be nil.
func (ix *Index) Search(ctx context.Context, keyword string, reporter progress.Reporter) ([]models.Exploit, error) {
	reporter = progress.OrNop(reporter)

	tempFile, err := os.CreateTemp(ix.config.TempDir, "ctfoutu_*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFilePath := tempFile.Name()
	defer os.Remove(tempFilePath)

	err = ix.download(ctx, tempFile)
	closeErr := tempFile.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to write exploit CSV snapshot: %w", closeErr)
	}

	results, err := SearchFile(tempFilePath, keyword)
	if err != nil {
		ix.logger.Errorf("Error reading Exploit-DB CSV: %v", err)
		reporter.Warn(fmt.Sprintf("Erreur de lecture du CSV ExploitDB : %v", err))
		return []models.Exploit{}, nil
	}

	ix.logger.Debugf("Exploit-DB returned %d exploits for %q", len(results), keyword)
	return results, nil
}

// download streams the CSV export into w
func (ix *Index) download(ctx context.Context, w io.Writer) error {
	ix.logger.Debugf("Downloading Exploit-DB CSV from %s", ix.config.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ix.config.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := ix.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrDownload, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	return nil
}

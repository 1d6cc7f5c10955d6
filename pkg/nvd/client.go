// Package nvd queries the NVD CVE API 2.0 keyword search.
package nvd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
	"github.com/ExclusiveAccount/ctfoutu/pkg/progress"
)

const (
	// DefaultEndpoint is the NVD CVE API 2.0 search endpoint
	DefaultEndpoint = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	userAgent     = "Mozilla/5.0"
	requestedWith = "XMLHttpRequest"
	apiKeyHeader  = "apiKey"
)

// ErrRetriesExhausted is returned when every attempt failed with a transient error
var ErrRetriesExhausted = errors.New("NVD lookup retries exhausted")

// StatusError reports an unexpected HTTP status from NVD
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("NVD returned HTTP %d", e.StatusCode)
}

// ClientConfig holds the NVD client settings
type ClientConfig struct {
	Endpoint           string        // Search endpoint URL
	APIKey             string        // Optional API key sent in the apiKey header
	ResultsPerPage     int           // Page size requested from NVD
	Timeout            time.Duration // Per request timeout
	MaxRetries         int           // Total attempts, fallback request excluded
	UnavailableBackoff time.Duration // Wait after an HTTP 503
	NetworkBackoff     time.Duration // Wait after a network error
	FallbackWithoutKey bool          // Retry once without the key after a 404
	HTTPClient         *http.Client  // Optional, built from Timeout when nil
}

// DefaultClientConfig returns the settings used by the command line tool
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:           DefaultEndpoint,
		ResultsPerPage:     50,
		Timeout:            20 * time.Second,
		MaxRetries:         3,
		UnavailableBackoff: 5 * time.Second,
		NetworkBackoff:     2 * time.Second,
		FallbackWithoutKey: true,
	}
}

// Client performs keyword searches against NVD
type Client struct {
	config ClientConfig
	http   *http.Client
	logger *logrus.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewClient creates a new NVD client
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	defaults := DefaultClientConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.ResultsPerPage <= 0 {
		config.ResultsPerPage = defaults.ResultsPerPage
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config: config,
		http:   httpClient,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Lookup searches NVD for keyword and returns the matching CVEs, newest
// first. reporter may be nil.
func (c *Client) Lookup(ctx context.Context, keyword string, reporter progress.Reporter) ([]models.CVE, error) {
	reporter = progress.OrNop(reporter)

	body, err := c.fetch(ctx, keyword, reporter)
	if err != nil {
		return nil, err
	}

	rows, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debugf("NVD returned %d vulnerabilities for %q", len(rows), keyword)
	return rows, nil
}

func (c *Client) fetch(ctx context.Context, keyword string, reporter progress.Reporter) ([]byte, error) {
	withKey := c.config.APIKey != ""
	maxRetries := c.config.MaxRetries

	for attempt := 1; attempt <= maxRetries; attempt++ {
		status, body, err := c.get(ctx, keyword, withKey)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.WithFields(logrus.Fields{"attempt": attempt, "max": maxRetries}).Warnf("NVD request failed: %v", err)
			reporter.Warn(fmt.Sprintf("Erreur reseau NVD (tentative %d/%d) : %v", attempt, maxRetries, err))
			if attempt < maxRetries {
				if err := c.sleep(ctx, c.config.NetworkBackoff); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		switch {
		case status == http.StatusOK:
			return body, nil

		case status == http.StatusNotFound && withKey:
			c.logger.Warn("NVD returned HTTP 404 with an API key, the key is probably invalid or expired")
			reporter.Warn("NVD a retourne HTTP 404 avec cle API. Ce statut indique souvent une cle invalide/expiree.")
			reporter.Warn("Verification conseillee: la variable NVD_API_KEY prioritaire peut ecraser la cle configuree via --conf.")
			if !c.config.FallbackWithoutKey {
				c.logger.Info("Unauthenticated fallback disabled, giving up")
				return nil, &StatusError{StatusCode: status}
			}

			fbStatus, fbBody, fbErr := c.get(ctx, keyword, false)
			if fbErr == nil && fbStatus == http.StatusOK {
				c.logger.Warn("Continuing the NVD lookup without API key")
				reporter.Warn("Poursuite en mode sans cle API (rate limit plus faible).")
				return fbBody, nil
			}
			if fbErr != nil {
				c.logger.Warnf("Unauthenticated NVD request failed: %v", fbErr)
			} else {
				c.logger.Warnf("Unauthenticated NVD request returned HTTP %d", fbStatus)
			}
			return nil, &StatusError{StatusCode: status}

		case status == http.StatusServiceUnavailable && attempt < maxRetries:
			c.logger.WithField("attempt", attempt).Warnf("NVD unavailable, retrying in %v", c.config.UnavailableBackoff)
			reporter.Warn(fmt.Sprintf("Erreur 503 NVD, nouvelle tentative %d/%d dans %s...", attempt+1, maxRetries, c.config.UnavailableBackoff))
			if err := c.sleep(ctx, c.config.UnavailableBackoff); err != nil {
				return nil, err
			}
			continue

		case status == http.StatusServiceUnavailable:
			return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, &StatusError{StatusCode: status})
		}

		return nil, &StatusError{StatusCode: status}
	}

	return nil, ErrRetriesExhausted
}

// sleepContext waits for d, returning early with ctx's error when it is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get issues one search request and returns its status and body
func (c *Client) get(ctx context.Context, keyword string, withKey bool) (int, []byte, error) {
	query := url.Values{}
	query.Set("keywordSearch", keyword)
	query.Set("resultsPerPage", strconv.Itoa(c.config.ResultsPerPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build NVD request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", requestedWith)
	if withKey {
		req.Header.Set(apiKeyHeader, c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read NVD response: %w", err)
	}
	return resp.StatusCode, body, nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
	"github.com/ExclusiveAccount/ctfoutu/pkg/progress"
)

type fakeCVEs struct {
	rows     []models.CVE
	err      error
	keywords []string
}

func (f *fakeCVEs) Lookup(_ context.Context, keyword string, _ progress.Reporter) ([]models.CVE, error) {
	f.keywords = append(f.keywords, keyword)
	return f.rows, f.err
}

type fakeExploits struct {
	rows []models.Exploit
	err  error
}

func (f *fakeExploits) Search(_ context.Context, _ string, _ progress.Reporter) ([]models.Exploit, error) {
	return f.rows, f.err
}

func setupServer(t *testing.T, cves *fakeCVEs, exploits *fakeExploits, cfg ServerConfig) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(cfg, cves, exploits, nil)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleCVE() models.CVE {
	return models.CVE{
		ID:          "CVE-2021-41773",
		CVSS:        "7.5",
		Vendor:      models.NotAvailable,
		Product:     models.NotAvailable,
		Description: "Path traversal",
		Published:   "2021-10-05",
	}
}

func sampleExploit() models.Exploit {
	return models.Exploit{
		ID:          "50383",
		Language:    "python",
		Description: "Apache HTTP Server 2.4.49 - Path Traversal",
		Author:      "Lucas Souza",
		Published:   "2021-10-06",
		Updated:     "2021-10-06",
	}
}

func TestHealth(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{})

	rec := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCVEs_ReturnsRowsWithFileKeys(t *testing.T) {
	cves := &fakeCVEs{rows: []models.CVE{sampleCVE()}}
	s := setupServer(t, cves, &fakeExploits{}, ServerConfig{})

	rec := get(t, s, "/api/cves?q=%20apache%20")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"apache"}, cves.keywords)

	var body []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "CVE-2021-41773", body[0]["CVE"])
	assert.Equal(t, "7.5", body[0]["CVSS"])
	assert.Equal(t, "2021-10-05", body[0]["Publication"])
}

func TestCVEs_MissingKeyword(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{})

	for _, target := range []string{"/api/cves", "/api/cves?q=", "/api/exploits?q=%20", "/api/search"} {
		rec := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Empty(t, s.History())
}

func TestCVEs_LookupFailure(t *testing.T) {
	cves := &fakeCVEs{err: errors.New("NVD returned HTTP 500")}
	s := setupServer(t, cves, &fakeExploits{}, ServerConfig{})

	rec := get(t, s, "/api/cves?q=apache")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"NVD returned HTTP 500"}`, rec.Body.String())
}

func TestExploits(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{rows: []models.Exploit{sampleExploit()}}, ServerConfig{})

	rec := get(t, s, "/api/exploits?q=apache")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "50383", body[0]["EDB"])
	assert.Equal(t, "python", body[0]["Langage"])
	assert.Equal(t, "2021-10-06", body[0]["Mise a jour"])
}

func TestExploits_DownloadFailure(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{err: errors.New("download failed")}, ServerConfig{})

	rec := get(t, s, "/api/exploits?q=apache")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearch_PathsFailIndependently(t *testing.T) {
	cves := &fakeCVEs{err: errors.New("NVD returned HTTP 404")}
	exploits := &fakeExploits{rows: []models.Exploit{sampleExploit()}}
	s := setupServer(t, cves, exploits, ServerConfig{})

	rec := get(t, s, "/api/search?q=apache")

	require.Equal(t, http.StatusOK, rec.Code)
	var body SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "apache", body.Keyword)
	assert.Empty(t, body.CVEs)
	assert.Len(t, body.Exploits, 1)
	assert.Equal(t, map[string]string{"cves": "NVD returned HTTP 404"}, body.Errors)
}

func TestSearch_NoErrorsKeyWhenBothSucceed(t *testing.T) {
	s := setupServer(t, &fakeCVEs{rows: []models.CVE{sampleCVE()}}, &fakeExploits{}, ServerConfig{})

	rec := get(t, s, "/api/search?q=apache")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "errors")
	assert.JSONEq(t, `[]`, string(body["exploits"]))
}

func TestNilResultsEncodeAsEmptyArrays(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{})

	for _, target := range []string{"/api/cves?q=apache", "/api/exploits?q=apache"} {
		rec := get(t, s, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.JSONEq(t, `[]`, rec.Body.String(), target)
	}

	rec := get(t, s, "/api/search?q=apache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"keyword":"apache","cves":[],"exploits":[]}`, rec.Body.String())
}

func TestHistory_KeepsMostRecent(t *testing.T) {
	s := setupServer(t, &fakeCVEs{rows: []models.CVE{sampleCVE()}}, &fakeExploits{}, ServerConfig{HistorySize: 2})

	for _, kw := range []string{"one", "two", "three"} {
		require.Equal(t, http.StatusOK, get(t, s, "/api/search?q="+kw).Code)
	}

	rec := get(t, s, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var history []SearchRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Keyword)
	assert.Equal(t, "three", history[1].Keyword)
	assert.Equal(t, 1, history[1].CVEs)
}

func TestCORS(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{EnableCORS: true})

	rec := get(t, s, "/health")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/cves", nil)
	pre := httptest.NewRecorder()
	s.Handler().ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
}

func TestCORS_DisabledByDefault(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{})

	rec := get(t, s, "/health")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAddrDefaults(t *testing.T) {
	s := setupServer(t, &fakeCVEs{}, &fakeExploits{}, ServerConfig{})
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
}

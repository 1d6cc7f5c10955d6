package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/ctfoutu/pkg/report"
)

const nvdBody = `{"vulnerabilities":[{"cve":{"id":"CVE-2023-0001","published":"2023-05-01T10:00:00.000",
"descriptions":[{"lang":"en","value":"Apache issue"}],
"metrics":{"cvssMetricV31":[{"cvssData":{"baseScore":7.5}}]}}}]}`

const exploitCSV = `id,file,description,date_published,author,type,platform,port,date_added,date_updated,verified,codes,tags,aliases,screenshot_url,application_url,source_url
50383,exploits/multiple/webapps/50383.py,Apache HTTP Server 2.4.49 - Path Traversal,2021-10-06,Lucas Souza,webapps,multiple,,2021-10-06,2021-10-06,1,CVE-2021-41773,,,,,
`

func TestMain(m *testing.M) {
	color.NoColor = true
	pterm.DisableStyling()
	os.Exit(m.Run())
}

type harness struct {
	out    bytes.Buffer
	errOut bytes.Buffer
	dir    string
}

// run executes the app with args, feeding stdin as a pipe
func (h *harness) run(t *testing.T, stdin string, args ...string) error {
	t.Helper()

	con := &console{
		in:          strings.NewReader(stdin),
		out:         &h.out,
		errOut:      &h.errOut,
		interactive: func() bool { return false },
	}

	app := newApp(con)
	app.ExitErrHandler = func(*cli.Context, error) {}

	return app.Run(append([]string{appName}, args...))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("NVD_API_KEY", "")
	t.Setenv("CTFOUTU_LOG_LEVEL", "")
	return &harness{dir: t.TempDir()}
}

func (h *harness) configFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "expected an exit error, got %v", err)
	return exitErr.ExitCode()
}

func TestReadTerm(t *testing.T) {
	kw, err := readTerm([]string{"  apache "}, strings.NewReader("ignored"), false)
	require.NoError(t, err)
	assert.Equal(t, "apache", kw)

	kw, err = readTerm([]string{"apache", "struts"}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "apache struts", kw)

	kw, err = readTerm(nil, strings.NewReader("nginx\n"), false)
	require.NoError(t, err)
	assert.Equal(t, "nginx", kw)

	kw, err = readTerm(nil, strings.NewReader("nginx\n"), true)
	require.NoError(t, err)
	assert.Empty(t, kw)
}

func TestSearch_NoAPIKey(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "", "--config", filepath.Join(h.dir, "missing.json"), "apache")

	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, h.out.String(), "aucune cle API configuree")
}

func TestSearch_NoTermShowsHelp(t *testing.T) {
	h := newHarness(t)
	t.Setenv("NVD_API_KEY", "env-key")

	err := h.run(t, "  \n", "--config", filepath.Join(h.dir, "missing.json"))

	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, h.out.String(), "Exemples d'utilisation")
}

func TestSearch_EndToEnd(t *testing.T) {
	h := newHarness(t)

	keys := make(chan string, 1)
	nvdServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("apiKey")
		assert.Equal(t, "apache", r.URL.Query().Get("keywordSearch"))
		w.Write([]byte(nvdBody))
	}))
	defer nvdServer.Close()

	csvServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exploitCSV))
	}))
	defer csvServer.Close()

	cfgPath := h.configFile(t, `{"api_key": " stored-key "}`)
	outDir := filepath.Join(h.dir, "out")

	err := h.run(t, "apache\n",
		"--config", cfgPath,
		"--output-dir", outDir,
		"--nvd-url", nvdServer.URL,
		"--exploitdb-url", csvServer.URL,
		"--no-spinner",
	)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", <-keys)

	cves, err := report.ReadCVEsJSON(filepath.Join(outDir, "resultats_cves.json"))
	require.NoError(t, err)
	require.Len(t, cves, 1)
	assert.Equal(t, "CVE-2023-0001", cves[0].ID)
	assert.Equal(t, "7.5", cves[0].CVSS)

	exploits, err := report.ReadExploitsJSON(filepath.Join(outDir, "resultats_exploits.json"))
	require.NoError(t, err)
	require.Len(t, exploits, 1)
	assert.Equal(t, "python", exploits[0].Language)

	assert.FileExists(t, filepath.Join(outDir, "resultats_cves.md"))
	assert.FileExists(t, filepath.Join(outDir, "resultats_exploits.md"))
}

func TestSearch_LookupFailuresStillExitZero(t *testing.T) {
	h := newHarness(t)
	t.Setenv("NVD_API_KEY", "env-key")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	outDir := filepath.Join(h.dir, "out")
	err := h.run(t, "",
		"--config", filepath.Join(h.dir, "missing.json"),
		"--output-dir", outDir,
		"--nvd-url", failing.URL,
		"--exploitdb-url", failing.URL,
		"--no-spinner",
		"apache",
	)

	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Erreur NVD")
	assert.Contains(t, h.out.String(), "Erreur ExploitDB")
	assert.NoFileExists(t, filepath.Join(outDir, "resultats_cves.json"))
	assert.NoFileExists(t, filepath.Join(outDir, "resultats_exploits.json"))
}

func TestConf_KeepExistingKey(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.configFile(t, `{"api_key": "abc"}`)

	err := h.run(t, "non\n", "--config", cfgPath, "--conf")

	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Cle API configuree avec succes.")
}

func TestConf_MalformedConfigFile(t *testing.T) {
	h := newHarness(t)
	cfgPath := h.configFile(t, `{not json`)

	err := h.run(t, "", "--config", cfgPath, "--conf")

	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, h.out.String(), "Erreur")
}

func TestLogFileFlag(t *testing.T) {
	h := newHarness(t)
	logPath := filepath.Join(h.dir, "logs", "ctfoutu.log")

	err := h.run(t, "", "--log-file", logPath, "--config", filepath.Join(h.dir, "missing.json"), "apache")

	assert.Equal(t, 1, exitCode(t, err))
	assert.DirExists(t, filepath.Dir(logPath))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gregjones/httpcache"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/ctfoutu/pkg/api"
	"github.com/ExclusiveAccount/ctfoutu/pkg/config"
	"github.com/ExclusiveAccount/ctfoutu/pkg/exploitdb"
	"github.com/ExclusiveAccount/ctfoutu/pkg/nvd"
	"github.com/ExclusiveAccount/ctfoutu/pkg/pipeline"
	"github.com/ExclusiveAccount/ctfoutu/pkg/progress"
	"github.com/ExclusiveAccount/ctfoutu/pkg/report"
)

// search is the root action: configure the key, or search for a term
func (con *console) search(c *cli.Context) error {
	cfg := configFrom(c)

	store, err := config.NewStore(cfg.ConfigFile)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(con.out, "Erreur : %v\n", err)
		return cli.Exit("", 1)
	}

	if c.Bool("conf") {
		return con.configure(store)
	}

	key, err := config.ResolveAPIKey(store)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(con.out,
			"Erreur : aucune cle API configuree. Utilise '--conf' ou la variable NVD_API_KEY.")
		return cli.Exit("", 1)
	}
	cfg.APIKey = key

	keyword, err := readTerm(c.Args().Slice(), con.in, con.interactive())
	if err != nil {
		con.log.Errorf("Failed to read search term from stdin: %v", err)
	}
	if keyword == "" {
		if err := cli.ShowAppHelp(c); err != nil {
			con.log.Errorf("Failed to show help: %v", err)
		}
		return cli.Exit("", 1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		con.log.Warnf("Failed to create output directory %s: %v", cfg.OutputDir, err)
	}

	var reporter progress.Reporter = progress.Nop{}
	if cfg.Spinner {
		reporter = progress.NewSpinner(con.out)
	}

	con.log.Debugf("Searching %q with configuration: %+v", keyword, redacted(cfg))

	p := pipeline.New(pipeline.Deps{
		CVEs:      nvd.NewClient(cfg.NVDClientConfig(), con.log),
		Exploits:  exploitdb.NewIndex(cfg.ExploitIndexConfig(), con.log),
		Presenter: report.NewPresenter(con.out, cfg.OutputDir, con.log),
		Reporter:  reporter,
		Out:       con.out,
	}, con.log)

	summary := p.Run(context.Background(), keyword)
	con.log.Infof("Search for %q done: %d CVEs, %d exploits", keyword, summary.CVEs, summary.Exploits)

	return nil
}

// configure runs the interactive API key setup
func (con *console) configure(store *config.Store) error {
	configurator := config.NewConfigurator(store, con.in, con.out, con.log)

	key, err := configurator.Run()
	if err != nil && !errors.Is(err, config.ErrNoAPIKey) {
		con.log.Errorf("Failed to configure API key: %v", err)
	}
	if err != nil || strings.TrimSpace(key) == "" {
		color.New(color.FgRed, color.Bold).Fprintln(con.out, "Aucune cle API configuree.")
		return cli.Exit("", 1)
	}

	color.New(color.FgGreen, color.Bold).Fprintln(con.out, "Cle API configuree avec succes.")
	return nil
}

// commandServe returns the serve command configuration
func commandServe(con *console) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose the search as a JSON HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   "8080",
				Usage:   "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "host",
				Value: "127.0.0.1",
				Usage: "Host to bind the API to",
			},
			&cli.BoolFlag{
				Name:  "cors",
				Usage: "Allow cross-origin requests",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)

			store, err := config.NewStore(cfg.ConfigFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %v", err)
			}

			key, err := config.ResolveAPIKey(store)
			if err != nil {
				con.log.Warn("No NVD API key configured, NVD requests will be unauthenticated")
			}
			cfg.APIKey = key

			server := newServer(cfg, api.ServerConfig{
				Host:       c.String("host"),
				Port:       c.String("port"),
				EnableCORS: c.Bool("cors"),
			}, con)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			color.New(color.FgGreen).Fprintf(con.out, "Starting API on http://%s\n", server.Addr())
			color.New(color.FgYellow).Fprintln(con.out, "Press Ctrl+C to stop the API")

			if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("API server failed: %v", err)
			}
			return nil
		},
	}
}

// newServer wires the API over a caching HTTP client so repeated downloads
// of the Exploit-DB export are revalidated instead of fetched again.
func newServer(cfg config.Config, serverConfig api.ServerConfig, con *console) *api.Server {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: httpcache.NewMemoryCacheTransport(),
	}

	nvdConfig := cfg.NVDClientConfig()
	nvdConfig.HTTPClient = httpClient

	indexConfig := cfg.ExploitIndexConfig()
	indexConfig.HTTPClient = httpClient

	return api.NewServer(serverConfig,
		nvd.NewClient(nvdConfig, con.log),
		exploitdb.NewIndex(indexConfig, con.log),
		con.log)
}

// readTerm returns the search term from args, or from in when it is not a
// terminal. The result is trimmed and may be empty.
func readTerm(args []string, in io.Reader, interactive bool) (string, error) {
	if keyword := strings.TrimSpace(strings.Join(args, " ")); keyword != "" {
		return keyword, nil
	}
	if interactive || in == nil {
		return "", nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// redacted hides the API key before cfg is logged
func redacted(cfg config.Config) config.Config {
	if cfg.APIKey != "" {
		cfg.APIKey = "***"
	}
	return cfg
}

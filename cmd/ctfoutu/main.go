package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/ExclusiveAccount/ctfoutu/pkg/config"
	"github.com/ExclusiveAccount/ctfoutu/pkg/logging"
)

const (
	appName    = "ctfoutu"
	appVersion = "1.0.0"
)

// console is what the commands read from and write to
type console struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive func() bool // Reports whether in is a terminal
	log         *logrus.Logger
}

func main() {
	if err := config.LoadDotEnv(config.DefaultEnvFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	con := &console{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}

	if err := newApp(con).Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp(con *console) *cli.App {
	return &cli.App{
		Name:        appName,
		Usage:       "Outil de recherche de CVEs et d'exploits associes",
		UsageText:   appName + " [options] [terme]",
		ArgsUsage:   "[terme]",
		Version:     appVersion,
		HideVersion: true,
		Description: `Exemples d'utilisation :
  - Rechercher des CVEs : ctfoutu "apache"
  - Configurer la cle API : ctfoutu --conf
  - Utiliser un pipe : echo "apache" | ctfoutu
  - Lancer l'API HTTP : ctfoutu serve --port 8080`,
		Reader:    con.in,
		Writer:    con.out,
		ErrWriter: con.errOut,
		Flags:     globalFlags(),
		Before: func(c *cli.Context) error {
			logger, err := logging.New(logging.Options{
				Level:   c.String("log-level"),
				Verbose: c.Bool("verbose"),
				File:    c.String("log-file"),
				Output:  con.errOut,
			})
			if err != nil {
				return err
			}
			con.log = logger
			return nil
		},
		Action: con.search,
		Commands: []*cli.Command{
			commandServe(con),
		},
	}
}

func globalFlags() []cli.Flag {
	defaults := config.DefaultConfig()

	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "conf",
			Usage: "Configurer la cle API pour l'acces NVD",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaults.ConfigFile,
			Usage:   "Load the API key from `FILE`",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Value:   defaults.OutputDir,
			Usage:   "Directory receiving the result files",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: defaults.Timeout,
			Usage: "Timeout for network operations",
		},
		&cli.StringFlag{
			Name:    "nvd-url",
			Value:   defaults.NVDEndpoint,
			Usage:   "NVD CVE API endpoint",
			EnvVars: []string{"CTFOUTU_NVD_URL"},
		},
		&cli.StringFlag{
			Name:    "exploitdb-url",
			Value:   defaults.ExploitDBURL,
			Usage:   "Exploit-DB CSV export URL",
			EnvVars: []string{"CTFOUTU_EXPLOITDB_URL"},
		},
		&cli.BoolFlag{
			Name:  "no-key-fallback",
			Usage: "Do not retry without the API key when NVD answers 404",
		},
		&cli.BoolFlag{
			Name:  "no-spinner",
			Usage: "Disable the progress spinner",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"CTFOUTU_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to a rotated `FILE` instead of stderr",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"vv"},
			Usage:   "Enable verbose output",
		},
	}
}

// configFrom builds the runtime configuration from the global flags
func configFrom(c *cli.Context) config.Config {
	cfg := config.DefaultConfig()
	cfg.ConfigFile = c.String("config")
	cfg.OutputDir = c.String("output-dir")
	cfg.Timeout = c.Duration("timeout")
	cfg.NVDEndpoint = c.String("nvd-url")
	cfg.ExploitDBURL = c.String("exploitdb-url")
	cfg.FallbackWithoutKey = !c.Bool("no-key-fallback")
	cfg.Spinner = !c.Bool("no-spinner")
	return cfg
}

package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cli/browser"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Configurator asks the user for an NVD API key and stores it
type Configurator struct {
	store   *Store
	in      *bufio.Reader
	out     io.Writer
	logger  *logrus.Logger
	openURL func(string) error
}

// NewConfigurator creates a configurator reading answers from in
func NewConfigurator(store *Store, in io.Reader, out io.Writer, logger *logrus.Logger) *Configurator {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Configurator{
		store:   store,
		in:      bufio.NewReader(in),
		out:     out,
		logger:  logger,
		openURL: browser.OpenURL,
	}
}

// Run walks the user through the key configuration and returns the key in
// effect afterwards. It returns ErrNoAPIKey when the user gave no key.
func (c *Configurator) Run() (string, error) {
	if current := c.store.APIKey(); current != "" {
		color.New(color.FgYellow, color.Bold).Fprintln(c.out, "Une clé API est déjà configurée.")
		answer := c.prompt("Souhaites-tu la mettre à jour ? (oui/non) : ")
		if strings.ToLower(answer) != "oui" {
			return current, nil
		}
	}

	color.New(color.FgCyan, color.Bold).Fprintln(c.out, "Je vais ouvrir la page pour générer une clé API dans ton navigateur...")
	if err := c.openURL(APIKeyPageURL); err != nil {
		c.logger.Warnf("Failed to open browser: %v", err)
		fmt.Fprintf(c.out, "Ouvre cette adresse manuellement : %s\n", APIKeyPageURL)
	}

	key := c.prompt("Entre ta clé API ici : ")
	if key == "" {
		color.New(color.FgRed, color.Bold).Fprintln(c.out, "Aucune clé API n'a été fournie. Configuration annulée.")
		return "", ErrNoAPIKey
	}

	if err := c.store.SaveAPIKey(key); err != nil {
		return "", err
	}
	c.logger.Infof("API key saved to %s", c.store.Path())
	return key, nil
}

func (c *Configurator) prompt(question string) string {
	color.New(color.FgGreen, color.Bold).Fprint(c.out, question)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		c.logger.Warnf("Failed to read answer: %v", err)
	}
	return strings.TrimSpace(line)
}

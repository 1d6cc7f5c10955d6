// Package pipeline runs a keyword search against NVD and Exploit-DB and
// hands the results to a presenter.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
	"github.com/ExclusiveAccount/ctfoutu/pkg/progress"
)

// CVELookup searches vulnerabilities by keyword
type CVELookup interface {
	Lookup(ctx context.Context, keyword string, reporter progress.Reporter) ([]models.CVE, error)
}

// ExploitSearcher searches exploits by keyword
type ExploitSearcher interface {
	Search(ctx context.Context, keyword string, reporter progress.Reporter) ([]models.Exploit, error)
}

// Presenter displays and saves result sets
type Presenter interface {
	ShowCVEs(rows []models.CVE) error
	ShowExploits(rows []models.Exploit) error
	SaveCVEs(rows []models.CVE) error
	SaveExploits(rows []models.Exploit) error
}

// Deps are the collaborators of a pipeline
type Deps struct {
	CVEs      CVELookup
	Exploits  ExploitSearcher
	Presenter Presenter
	Reporter  progress.Reporter // Optional
	Out       io.Writer         // Receives status messages
}

// Summary describes the outcome of one run
type Summary struct {
	CVEs       int
	Exploits   int
	CVEErr     error
	ExploitErr error
}

// Pipeline searches CVEs then exploits, one after the other
type Pipeline struct {
	deps   Deps
	logger *logrus.Logger
}

// New creates a pipeline
func New(deps Deps, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	deps.Reporter = progress.OrNop(deps.Reporter)
	return &Pipeline{deps: deps, logger: logger}
}

// Run searches keyword. A failing lookup only stops its own path; the
// errors are reported in the summary and never returned.
func (p *Pipeline) Run(ctx context.Context, keyword string) Summary {
	var summary Summary

	cves, err := p.searchCVEs(ctx, keyword)
	summary.CVEs, summary.CVEErr = len(cves), err
	if err == nil {
		p.presentCVEs(cves)
	}

	exploits, err := p.searchExploits(ctx, keyword)
	summary.Exploits, summary.ExploitErr = len(exploits), err
	if err == nil {
		p.presentExploits(exploits)
	}

	return summary
}

func (p *Pipeline) searchCVEs(ctx context.Context, keyword string) ([]models.CVE, error) {
	color.New(color.FgYellow, color.Bold).Fprintf(p.deps.Out, "Recherche des derniers CVEs lies a '%s'\n", keyword)
	p.deps.Reporter.Start("Recherche des CVEs...")

	rows, err := p.deps.CVEs.Lookup(ctx, keyword, p.deps.Reporter)
	if err != nil {
		p.deps.Reporter.Fail("Recherche des CVEs echouee")
		p.logger.Errorf("CVE lookup for %q failed: %v", keyword, err)
		color.New(color.FgRed, color.Bold).Fprintf(p.deps.Out, "Erreur NVD : %v\n", err)
		return nil, err
	}

	p.deps.Reporter.Success(fmt.Sprintf("%d CVEs trouves", len(rows)))
	return rows, nil
}

func (p *Pipeline) searchExploits(ctx context.Context, keyword string) ([]models.Exploit, error) {
	color.New(color.FgYellow, color.Bold).Fprintf(p.deps.Out, "Recherche des exploits lies a '%s'\n", keyword)
	p.deps.Reporter.Start("Recherche des exploits...")

	rows, err := p.deps.Exploits.Search(ctx, keyword, p.deps.Reporter)
	if err != nil {
		p.deps.Reporter.Fail("Recherche des exploits echouee")
		p.logger.Errorf("Exploit search for %q failed: %v", keyword, err)
		color.New(color.FgRed, color.Bold).Fprintf(p.deps.Out, "Erreur ExploitDB : %v\n", err)
		return nil, err
	}

	p.deps.Reporter.Success(fmt.Sprintf("%d exploits trouves", len(rows)))
	return rows, nil
}

func (p *Pipeline) presentCVEs(rows []models.CVE) {
	if len(rows) == 0 {
		color.New(color.FgYellow, color.Bold).Fprintln(p.deps.Out, "Aucun CVE trouve pour ce terme.")
		return
	}
	if err := p.deps.Presenter.ShowCVEs(rows); err != nil {
		p.logger.Errorf("Failed to display CVEs: %v", err)
	}
	if err := p.deps.Presenter.SaveCVEs(rows); err != nil {
		p.logger.Errorf("Failed to save CVEs: %v", err)
	}
}

func (p *Pipeline) presentExploits(rows []models.Exploit) {
	if len(rows) == 0 {
		color.New(color.FgYellow, color.Bold).Fprintln(p.deps.Out, "Aucun exploit trouve pour ce terme.")
		return
	}
	if err := p.deps.Presenter.ShowExploits(rows); err != nil {
		p.logger.Errorf("Failed to display exploits: %v", err)
	}
	if err := p.deps.Presenter.SaveExploits(rows); err != nil {
		p.logger.Errorf("Failed to save exploits: %v", err)
	}
}

// Package report renders search results as console tables and saves them
// as Markdown and JSON files.
package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
)

const (
	maxLabelLength       = 20
	maxDescriptionLength = 100
	maxAuthorLength      = 35
)

// Presenter prints result tables to a writer and saves result files into a directory
type Presenter struct {
	out    io.Writer
	dir    string
	logger *logrus.Logger
}

// NewPresenter creates a presenter. An empty dir means the working directory.
func NewPresenter(out io.Writer, dir string, logger *logrus.Logger) *Presenter {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if dir == "" {
		dir = "."
	}
	return &Presenter{out: out, dir: dir, logger: logger}
}

// ShowCVEs prints the CVE table
func (p *Presenter) ShowCVEs(rows []models.CVE) error {
	data := pterm.TableData{models.CVEColumns}
	for _, r := range rows {
		data = append(data, []string{
			r.ID,
			ColorizeScore(r.CVSS),
			truncate(strings.ToUpper(r.Vendor), maxLabelLength),
			truncate(strings.ToUpper(r.Product), maxLabelLength),
			truncate(r.Description, maxDescriptionLength),
			r.Published,
		})
	}
	return p.printTable(models.KindCVE, data)
}

// ShowExploits prints the exploit table
func (p *Presenter) ShowExploits(rows []models.Exploit) error {
	cyan := color.New(color.FgCyan)

	data := pterm.TableData{models.ExploitColumns}
	for _, r := range rows {
		data = append(data, []string{
			r.ID,
			cyan.Sprint(r.Language),
			truncate(r.Description, maxDescriptionLength),
			truncate(r.Author, maxAuthorLength),
			r.Published,
			r.Updated,
		})
	}
	return p.printTable(models.KindExploit, data)
}

// SaveCVEs writes the CVE rows to resultats_cves.md and resultats_cves.json
func (p *Presenter) SaveCVEs(rows []models.CVE) error {
	if rows == nil {
		rows = []models.CVE{}
	}
	values := make([][]string, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	return p.save(models.KindCVE, values, rows)
}

// SaveExploits writes the exploit rows to resultats_exploits.md and resultats_exploits.json
func (p *Presenter) SaveExploits(rows []models.Exploit) error {
	if rows == nil {
		rows = []models.Exploit{}
	}
	values := make([][]string, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	return p.save(models.KindExploit, values, rows)
}

// save writes both files. A failure on one does not prevent the other.
func (p *Presenter) save(kind models.Kind, values [][]string, rows interface{}) error {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	mdPath := filepath.Join(p.dir, kind.FileStem()+".md")
	jsonPath := filepath.Join(p.dir, kind.FileStem()+".json")

	var errs []error

	if err := WriteMarkdown(mdPath, kind, values); err != nil {
		p.logger.Errorf("Error saving %s results to %s: %v", kind, mdPath, err)
		red.Fprintf(p.out, "Erreur lors de la sauvegarde des resultats : %v\n", err)
		errs = append(errs, err)
	} else {
		green.Fprintf(p.out, "Resultats sauvegardes en Markdown : %s\n", mdPath)
	}

	if err := WriteJSON(jsonPath, rows); err != nil {
		p.logger.Errorf("Error saving %s results to %s: %v", kind, jsonPath, err)
		red.Fprintf(p.out, "Erreur lors de la sauvegarde des resultats : %v\n", err)
		errs = append(errs, err)
	} else {
		green.Fprintf(p.out, "Resultats sauvegardes en JSON : %s\n", jsonPath)
	}

	return errors.Join(errs...)
}

func (p *Presenter) printTable(kind models.Kind, data pterm.TableData) error {
	table, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(true).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	color.New(color.Bold).Fprintln(p.out, title(kind))
	fmt.Fprintln(p.out, table)
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

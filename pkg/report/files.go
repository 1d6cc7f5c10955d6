package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
)

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// WriteMarkdown writes rows as a Markdown table titled after kind
func WriteMarkdown(path string, kind models.Kind, rows [][]string) error {
	columns := kind.Columns()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(kind))
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.TrimSuffix(strings.Repeat("---|", len(columns)), "|") + "|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellReplacer.Replace(v)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write Markdown results: %w", err)
	}
	return nil
}

// WriteJSON writes v as an indented JSON document
func WriteJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write JSON results: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode JSON results: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write JSON results: %w", err)
	}
	return nil
}

// ReadCVEsJSON loads CVE rows previously written by SaveCVEs
func ReadCVEsJSON(path string) ([]models.CVE, error) {
	var rows []models.CVE
	if err := readJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadExploitsJSON loads exploit rows previously written by SaveExploits
func ReadExploitsJSON(path string) ([]models.Exploit, error) {
	var rows []models.Exploit
	if err := readJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func title(kind models.Kind) string {
	return "Resultats de la recherche pour les " + string(kind)
}

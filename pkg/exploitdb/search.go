package exploitdb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
)

const maxDescriptionLength = 100

// haystackFields are the CSV columns matched against the keyword
var haystackFields = []string{"description", "file", "codes", "tags", "aliases"}

// SearchFile searches a local Exploit-DB CSV snapshot for keyword
func SearchFile(path, keyword string) ([]models.Exploit, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exploit CSV: %w", err)
	}
	defer file.Close()

	return SearchReader(file, keyword)
}

// SearchReader reads an Exploit-DB CSV export and returns the records whose
// description, file, codes, tags or aliases contain keyword, ignoring case.
// Results are sorted by publication date, newest first.
func SearchReader(r io.Reader, keyword string) ([]models.Exploit, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.Exploit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	fold := cases.Fold()
	needle := fold.String(keyword)

	results := []models.Exploit{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		field := func(name, fallback string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return fallback
			}
			return record[i]
		}

		parts := make([]string, len(haystackFields))
		for i, name := range haystackFields {
			parts[i] = field(name, "")
		}
		if !strings.Contains(fold.String(strings.Join(parts, " ")), needle) {
			continue
		}

		results = append(results, models.Exploit{
			ID:          field("id", models.NotAvailable),
			Language:    LanguageFor(field("file", "")),
			Description: truncate(strings.TrimSpace(field("description", "")), maxDescriptionLength),
			Author:      strings.TrimSpace(field("author", models.NotAvailable)),
			Published:   strings.TrimSpace(field("date_published", models.NotAvailable)),
			Updated:     strings.TrimSpace(field("date_updated", models.NotAvailable)),
		})
	}

	models.SortExploits(results)
	return results, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

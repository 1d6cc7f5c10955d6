package nvd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
)

// ParseResponse converts an NVD search payload into rows sorted by
// publication date, newest first.
func ParseResponse(body []byte) ([]models.CVE, error) {
	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid NVD JSON response: %w", err)
	}

	rows := make([]models.CVE, 0, len(payload.Vulnerabilities))
	for _, v := range payload.Vulnerabilities {
		rows = append(rows, toRow(v.CVE))
	}

	models.SortCVEs(rows)
	return rows, nil
}

func toRow(item cveItem) models.CVE {
	id := item.ID
	if id == "" {
		id = models.NotAvailable
	}

	published := item.Published
	if len(published) > 10 {
		published = published[:10]
	}
	if published == "" {
		published = models.NotAvailable
	}

	return models.CVE{
		ID:          id,
		CVSS:        baseScore(item.Metrics),
		Vendor:      models.NotAvailable,
		Product:     models.NotAvailable,
		Description: englishDescription(item.Descriptions),
		Published:   published,
	}
}

func englishDescription(descriptions []description) string {
	for _, d := range descriptions {
		if d.Lang == "en" && d.Value != "" {
			return d.Value
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}

// baseScore returns the first base score found, most recent CVSS version first
func baseScore(m metrics) string {
	for _, family := range [][]metric{m.V40, m.V31, m.V30, m.V2} {
		if len(family) == 0 {
			continue
		}
		if score := family[0].CVSSData.BaseScore; score != nil {
			text := strconv.FormatFloat(*score, 'f', -1, 64)
			if !strings.Contains(text, ".") {
				text += ".0"
			}
			return text
		}
	}
	return models.NotAvailable
}

package report

import (
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ExclusiveAccount/ctfoutu/pkg/models"
)

// Severity is the CVSS band of a score
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "unknown"
	}
}

var severityColors = map[Severity]*color.Color{
	SeverityCritical: color.New(color.FgRed, color.Bold),
	SeverityHigh:     color.New(color.FgYellow, color.Bold),
	SeverityMedium:   color.New(color.FgBlue, color.Bold),
	SeverityLow:      color.New(color.FgGreen, color.Bold),
	SeverityUnknown:  color.New(color.FgWhite),
}

// SeverityFor returns the band of a CVSS score given as text
func SeverityFor(score string) Severity {
	value, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
	if err != nil {
		return SeverityUnknown
	}

	switch {
	case value > 8.9:
		return SeverityCritical
	case value > 6.9:
		return SeverityHigh
	case value > 3.9:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ColorizeScore returns score coloured by its severity band. Non numeric
// scores are rendered as a neutral N/A.
func ColorizeScore(score string) string {
	severity := SeverityFor(score)
	if severity == SeverityUnknown {
		return severityColors[SeverityUnknown].Sprint(models.NotAvailable)
	}
	return severityColors[severity].Sprint(score)
}

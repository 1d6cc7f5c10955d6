package models

import (
	"sort"
	"strings"
	"time"
)

// Kind identifies which result set a row belongs to
type Kind string

const (
	KindCVE     Kind = "CVEs"
	KindExploit Kind = "Exploits"
)

// NotAvailable is the placeholder used for missing values
const NotAvailable = "N/A"

// DateLayout is the layout of publication and update dates
const DateLayout = "2006-01-02"

var (
	// CVEColumns are the column names used for CVE tables and files
	CVEColumns = []string{"CVE", "CVSS", "Fournisseur", "Produit", "Description", "Publication"}

	// ExploitColumns are the column names used for exploit tables and files
	ExploitColumns = []string{"EDB", "Langage", "Description", "Auteur", "Publication", "Mise a jour"}
)

// Columns returns the column schema of the kind
func (k Kind) Columns() []string {
	if k == KindCVE {
		return CVEColumns
	}
	return ExploitColumns
}

// FileStem returns the base name used for the result files of the kind
func (k Kind) FileStem() string {
	return "resultats_" + strings.ToLower(string(k))
}

// CVE is one vulnerability returned by the NVD keyword search
type CVE struct {
	ID          string `json:"CVE"`         // CVE identifier
	CVSS        string `json:"CVSS"`        // Base score as text, or N/A
	Vendor      string `json:"Fournisseur"` // Always N/A, NVD search does not expose it
	Product     string `json:"Produit"`     // Always N/A, NVD search does not expose it
	Description string `json:"Description"` // English description when available
	Published   string `json:"Publication"` // YYYY-MM-DD or N/A
}

// Values returns the row fields in column order
func (c CVE) Values() []string {
	return []string{c.ID, c.CVSS, c.Vendor, c.Product, c.Description, c.Published}
}

// Exploit is one Exploit-DB record matching a keyword
type Exploit struct {
	ID          string `json:"EDB"`         // EDB ID
	Language    string `json:"Langage"`     // Derived from the file extension
	Description string `json:"Description"` // At most 100 characters
	Author      string `json:"Auteur"`
	Published   string `json:"Publication"`
	Updated     string `json:"Mise a jour"`
}

// Values returns the row fields in column order
func (e Exploit) Values() []string {
	return []string{e.ID, e.Language, e.Description, e.Author, e.Published, e.Updated}
}

// ParseDate parses a YYYY-MM-DD date. Unparsable values map to the zero time
// so they order before every real date.
func ParseDate(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortCVEs orders rows by publication date, newest first
func SortCVEs(rows []CVE) {
	sort.SliceStable(rows, func(i, j int) bool {
		return ParseDate(rows[i].Published).After(ParseDate(rows[j].Published))
	})
}

// SortExploits orders rows by publication date, newest first
func SortExploits(rows []Exploit) {
	sort.SliceStable(rows, func(i, j int) bool {
		return ParseDate(rows[i].Published).After(ParseDate(rows[j].Published))
	})
}

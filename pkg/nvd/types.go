package nvd

// response is the subset of the NVD CVE API 2.0 payload read by the client
type response struct {
	ResultsPerPage  int             `json:"resultsPerPage"`
	TotalResults    int             `json:"totalResults"`
	Vulnerabilities []vulnerability `json:"vulnerabilities"`
}

type vulnerability struct {
	CVE cveItem `json:"cve"`
}

type cveItem struct {
	ID           string        `json:"id"`
	Published    string        `json:"published"`
	Descriptions []description `json:"descriptions"`
	Metrics      metrics       `json:"metrics"`
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type metrics struct {
	V40 []metric `json:"cvssMetricV40"`
	V31 []metric `json:"cvssMetricV31"`
	V30 []metric `json:"cvssMetricV30"`
	V2  []metric `json:"cvssMetricV2"`
}

type metric struct {
	CVSSData struct {
		BaseScore *float64 `json:"baseScore"`
	} `json:"cvssData"`
}

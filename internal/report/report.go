// Package report loads crowdsourced bug reports and their screenshots.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAssetMissing is returned when a report's screenshot is not on disk.
var ErrAssetMissing = errors.New("report image missing")

// Report is one crowdsourced bug report: a description and one screenshot.
type Report struct {
	Index       string `json:"index" yaml:"index"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	ImagePath   string `json:"image_path,omitempty" yaml:"image_path,omitempty"`
}

// UnmarshalJSON accepts the index as a string or a number.
func (r *Report) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index       json.RawMessage `json:"index"`
		Description string          `json:"description"`
		ImageURL    string          `json:"image_url"`
		ImagePath   string          `json:"image_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	index, err := parseIndex(raw.Index)
	if err != nil {
		return err
	}
	*r = Report{Index: index, Description: raw.Description, ImageURL: raw.ImageURL, ImagePath: raw.ImagePath}
	return nil
}

func parseIndex(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("report without index")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid report index %s", raw)
	}
	return n.String(), nil
}

// ReadImage reads the report's screenshot from ImagePath.
func (r Report) ReadImage() ([]byte, error) {
	if r.ImagePath == "" {
		return nil, fmt.Errorf("report %s: %w: no image path", r.Index, ErrAssetMissing)
	}
	data, err := os.ReadFile(r.ImagePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("report %s: %w: %s", r.Index, ErrAssetMissing, r.ImagePath)
	}
	if err != nil {
		return nil, fmt.Errorf("report %s: read image: %w", r.Index, err)
	}
	return data, nil
}

// Load reads reports from a JSON array or a CSV file with an
// index,description,image_url header. The format is chosen by extension,
// falling back to sniffing the first byte.
func Load(path string) ([]Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var reports []Report
	if isJSON(path, data) {
		reports, err = decodeJSON(data)
	} else {
		reports, err = decodeCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(reports))
	for _, r := range reports {
		if err := ValidateIndex(r.Index); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("failed to parse %s: duplicate report index %s", path, r.Index)
		}
		seen[r.Index] = true
	}
	return reports, nil
}

// ValidateIndex rejects indexes that cannot name a file directly inside
// the image directory.
func ValidateIndex(index string) error {
	switch {
	case index == "":
		return fmt.Errorf("report without index")
	case index == "." || index == ".." || strings.ContainsAny(index, "/\\\x00"):
		return fmt.Errorf("invalid report index %q", index)
	}
	return nil
}

// WithImages returns a copy of reports whose ImagePath points at
// <dir>/<index>.jpg for every report that does not already have one.
func WithImages(reports []Report, dir string) []Report {
	out := make([]Report, len(reports))
	for i, r := range reports {
		if r.ImagePath == "" {
			r.ImagePath = ImagePath(dir, r.Index)
		}
		out[i] = r
	}
	return out
}

// ImagePath is where the screenshot for index lives under dir.
func ImagePath(dir, index string) string {
	return filepath.Join(dir, index+".jpg")
}

func isJSON(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return true
	case ".csv":
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}

func decodeJSON(data []byte) ([]Report, error) {
	var reports []Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func decodeCSV(r io.Reader) ([]Report, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	idx, ok := header["index"]
	if !ok {
		return nil, fmt.Errorf("csv header missing index column")
	}
	desc, ok := header["description"]
	if !ok {
		return nil, fmt.Errorf("csv header missing description column")
	}
	url, hasURL := header["image_url"]
	path, hasPath := header["image_path"]

	reports := make([]Report, 0, len(records))
	for _, rec := range records {
		r := Report{Index: strings.TrimSpace(rec[idx]), Description: rec[desc]}
		if hasURL {
			r.ImageURL = strings.TrimSpace(rec[url])
		}
		if hasPath {
			r.ImagePath = strings.TrimSpace(rec[path])
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// readCSV returns the data rows and a column index keyed by lowercase header name.
func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty csv")
	}
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return rows[1:], header, nil
}

// LoadLabels reads ground-truth consistency labels from a JSON object
// {"<index>": true} or a CSV file with an index,consistent header.
func LoadLabels(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	if isJSON(path, data) {
		var labels map[string]bool
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return labels, nil
	}

	rows, header, err := readCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	idx, ok := header["index"]
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: csv header missing index column", path)
	}
	col, ok := header["consistent"]
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: csv header missing consistent column", path)
	}
	labels := make(map[string]bool, len(rows))
	for i, row := range rows {
		v, err := strconv.ParseBool(strings.TrimSpace(row[col]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s row %d: %w", path, i+2, err)
		}
		labels[strings.TrimSpace(row[idx])] = v
	}
	return labels, nil
}

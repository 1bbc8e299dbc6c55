// Package input parses batch company lists from CSV and XLSX files into
// enrichment requests. Column headers are matched by name, so files from
// different CRM exports work without reshaping.
package input

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/model"
)

// header aliases accepted for each request field.
var columnAliases = map[string][]string{
	"name":     {"name", "company", "company name", "company_name", "account"},
	"domain":   {"domain", "domain name", "company domain"},
	"url":      {"url", "website", "web site", "homepage"},
	"industry": {"industry", "industry hint", "vertical", "sector"},
}

// ReadCompanies loads requests from path, dispatching on the file extension.
// Rows with no usable identifier are skipped, not errors.
func ReadCompanies(path string) ([]model.EnrichmentRequest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("input: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func readCSV(path string) ([]model.EnrichmentRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open csv")
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "input: parse csv")
	}
	return rowsToRequests(rows)
}

func readXLSX(path string) ([]model.EnrichmentRequest, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("input: xlsx file has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rowsToRequests(rows)
}

func rowsToRequests(rows [][]string) ([]model.EnrichmentRequest, error) {
	if len(rows) == 0 {
		return nil, eris.New("input: file is empty")
	}

	cols := mapColumns(rows[0])
	if _, ok := cols["name"]; !ok {
		if _, ok := cols["domain"]; !ok {
			if _, ok := cols["url"]; !ok {
				return nil, eris.New("input: header row has no name, domain, or url column")
			}
		}
	}

	var reqs []model.EnrichmentRequest
	for _, row := range rows[1:] {
		req := model.EnrichmentRequest{
			Name:   cellAt(row, cols, "name"),
			Domain: cellAt(row, cols, "domain"),
			URL:    cellAt(row, cols, "url"),
		}
		if hint := cellAt(row, cols, "industry"); hint != "" {
			req.Context = &model.RequestContext{IndustryHint: hint}
		}
		if req.Empty() {
			continue
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return nil, eris.New("input: no usable rows found")
	}
	return reqs, nil
}

func mapColumns(header []string) map[string]int {
	cols := map[string]int{}
	for i, h := range header {
		norm := strings.ToLower(strings.TrimSpace(h))
		for field, aliases := range columnAliases {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, a := range aliases {
				if norm == a {
					cols[field] = i
				}
			}
		}
	}
	return cols
}

func cellAt(row []string, cols map[string]int, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

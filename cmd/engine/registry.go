package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"apprscan-engine/internal/domain"
)

// Column aliases seen across registry exports. Headers are matched
// case-insensitively.
var (
	idHeaders     = []string{"business_id", "businessid", "company_business_id", "y-tunnus"}
	nameHeaders   = []string{"name", "company_name", "company"}
	domainHeaders = []string{"domain", "website", "company_domain", "url"}
)

func headerIndex(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// LoadCompanies reads a registry CSV. Only a name column is mandatory;
// business ID and domain fall back to empty. Rows without a name are skipped.
func LoadCompanies(path string) ([]domain.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	idIdx := headerIndex(header, idHeaders)
	nameIdx := headerIndex(header, nameHeaders)
	domIdx := headerIndex(header, domainHeaders)
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s: no company name column found", path)
	}

	var out []domain.Company
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := field(row, nameIdx)
		if name == "" {
			continue
		}
		out = append(out, domain.Company{
			ID:     field(row, idIdx),
			Name:   name,
			Domain: field(row, domIdx),
		})
	}
	return out, nil
}

// LoadDomainMap reads a business-ID to domain CSV used when the registry
// itself carries no website column.
func LoadDomainMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	idIdx := headerIndex(header, idHeaders)
	domIdx := headerIndex(header, domainHeaders)
	if idIdx < 0 || domIdx < 0 {
		return nil, fmt.Errorf("%s: need business id and domain columns", path)
	}

	out := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		id, dom := field(row, idIdx), field(row, domIdx)
		if id == "" || dom == "" {
			continue
		}
		out[id] = dom
	}
	return out, nil
}

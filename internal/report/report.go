// Package report defines the plaintext report record and its canonical
// encoding, the exact bytes that get sealed.
package report

import (
	"bytes"
	"encoding/json"
	"strings"

	dErrors "clearcrew/pkg/domain-errors"
)

type Category string

const (
	CategoryHarassment     Category = "HARASSMENT"
	CategoryDiscrimination Category = "DISCRIMINATION"
	CategoryCorruption     Category = "CORRUPTION"
	CategorySafety         Category = "SAFETY"
	CategoryEthics         Category = "ETHICS"
	CategoryOther          Category = "OTHER"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryHarassment,
	CategoryDiscrimination,
	CategoryCorruption,
	CategorySafety,
	CategoryEthics,
	CategoryOther,
}

// ParseCategory accepts any letter case. An empty string is CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidReport, "unknown category "+s)
}

// Report is the plaintext a reporter files. Title and Description are
// required; Category defaults to OTHER and Department and Date to "".
type Report struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Department  string   `json:"department"`
	Date        string   `json:"date"`
}

// Normalize applies defaults and validates. Text fields are kept verbatim.
func (r Report) Normalize() (Report, error) {
	c, err := ParseCategory(string(r.Category))
	if err != nil {
		return Report{}, err
	}
	r.Category = c
	if strings.TrimSpace(r.Title) == "" {
		return Report{}, dErrors.New(dErrors.CodeInvalidReport, "title is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return Report{}, dErrors.New(dErrors.CodeInvalidReport, "description is required")
	}
	return r, nil
}

// Canonical returns compact JSON with keys in the fixed order category,
// title, description, department, date and no HTML escaping.
func (r Report) Canonical() ([]byte, error) {
	n, err := r.Normalize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode report")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

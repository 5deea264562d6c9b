package httptransport

import "clearcrew/internal/report"

// RegisterIdentityRequest is the body of POST /v1/identity.
type RegisterIdentityRequest struct {
	NullifierSeed    string `json:"nullifierSeed"`
	Secret           string `json:"secret"`
	ConfirmOverwrite bool   `json:"confirmOverwrite"`
}

type CommitmentResponse struct {
	Leaf string `json:"leaf"`
}

// SubmitReportRequest is the body of POST /v1/reports.
type SubmitReportRequest struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Date        string `json:"date"`
}

func (r SubmitReportRequest) Report() report.Report {
	return report.Report{
		Category:    report.Category(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Department:  r.Department,
		Date:        r.Date,
	}
}

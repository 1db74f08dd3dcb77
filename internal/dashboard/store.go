package dashboard

import (
	"context"

	"loggedin/internal/report"
	"loggedin/internal/store"
	"loggedin/internal/types"
)

// ReportStore is the read side of the run archive the dashboard needs
type ReportStore interface {
	LatestReport(ctx context.Context) (*report.Report, error)
	LoadReport(ctx context.Context, runID string) (*report.Report, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	TopFailedUsers(ctx context.Context, limit int) ([]report.UserCount, error)
}

var _ ReportStore = (*store.Store)(nil)

// Stats represents the headline numbers of the latest run
type Stats struct {
	TotalEvents     int
	FailedLogins    int
	SuspiciousUsers int
	HighRiskCount   int
	MediumRiskCount int
}

func statsOf(r *report.Report) Stats {
	var s Stats
	if r == nil {
		return s
	}
	s.TotalEvents = r.TotalEvents
	s.SuspiciousUsers = len(r.SuspiciousUsers)
	for _, uc := range r.FailedLogins {
		s.FailedLogins += uc.Count
	}
	for _, a := range r.Alerts {
		switch a.Risk {
		case types.RiskHigh, types.RiskCritical:
			s.HighRiskCount++
		case types.RiskMedium:
			s.MediumRiskCount++
		}
	}
	return s
}

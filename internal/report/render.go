package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"loggedin/internal/types"
)

const (
	TypeSecurity  = "security"
	TypeTechnical = "technical"
)

// ErrUnknownReportType is returned by WriteText for a type other than
// security or technical.
var ErrUnknownReportType = errors.New("unknown report type")

// TextOptions controls the plain text rendering.
type TextOptions struct {
	Type        string // security (default) or technical
	GeneratedAt time.Time
	// Explain, when set, adds a narrative line under each alert.
	Explain func(types.Alert) string
}

// WriteText renders the report for a terminal or a .txt file.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	switch opts.Type {
	case "":
		opts.Type = TypeSecurity
	case TypeSecurity, TypeTechnical:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReportType, opts.Type)
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Analysis Report - %s\n", strings.ToUpper(opts.Type[:1])+opts.Type[1:], opts.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 80) + "\n\n")

	if opts.Type == TypeSecurity {
		critical := len(r.AlertsOf(types.KindBruteForce)) + len(r.SuspiciousUsers)
		b.WriteString("=== EXECUTIVE SUMMARY ===\n")
		fmt.Fprintf(&b, "Found %d critical security events and %d security warnings.\n", critical, len(r.FailedLogins))
		if critical > 0 {
			b.WriteString("\n[!] CRITICAL FINDINGS REQUIRE IMMEDIATE ATTENTION\n")
		}
	}

	b.WriteString("\n=== DETAILED FINDINGS ===\n")

	if len(r.FailedLogins) > 0 {
		b.WriteString("\n[FAILED LOGIN ATTEMPTS]\n")
		for _, uc := range r.FailedLogins {
			fmt.Fprintf(&b, "- %s: %d attempts\n", Sanitize(uc.User), uc.Count)
		}
	}

	if len(r.SuspiciousUsers) > 0 {
		b.WriteString("\n[SUSPICIOUS USERS]\n")
		for _, u := range r.SuspiciousUsers {
			fmt.Fprintf(&b, "- %s\n", Sanitize(u))
		}
	}

	sections := []struct {
		kind  types.AlertKind
		title string
	}{
		{types.KindBruteForce, "BRUTE FORCE ATTEMPTS"},
		{types.KindSuspiciousAccount, "SUSPICIOUS ACCOUNTS"},
		{types.KindUnusualHours, "UNUSUAL HOURS"},
		{types.KindMultiHostLogin, "MULTI-HOST LOGINS"},
	}
	for _, s := range sections {
		alerts := r.AlertsOf(s.kind)
		if len(alerts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n", s.title)
		for _, a := range alerts {
			fmt.Fprintf(&b, "- [%s] %s\n", a.Risk, Sanitize(a.Summary()))
			if opts.Explain != nil {
				if text := opts.Explain(a); text != "" {
					fmt.Fprintf(&b, "  %s\n", Sanitize(text))
				}
			}
		}
	}

	if opts.Type == TypeTechnical {
		b.WriteString("\n[EVENT STATISTICS]\n")
		fmt.Fprintf(&b, "Total events processed: %d\n", r.TotalEvents)
		for _, s := range r.Charts.EventDistribution {
			fmt.Fprintf(&b, "- Event %s (%s): %d occurrences\n", s.EventID, s.Name, s.Count)
		}
		b.WriteString("\n[HOST ACTIVITY]\n")
		for _, h := range r.Charts.HostActivity {
			fmt.Fprintf(&b, "- %s: %d events\n", Sanitize(h.Host), h.Count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// sanitize strips control characters (except newline and tab) so user
// supplied names cannot inject terminal escapes.
func Sanitize(s string) string {
	var builder strings.Builder
	for _, r := range s {
		if r >= 32 || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

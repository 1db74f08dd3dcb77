package types

import (
	"fmt"
	"strings"
)

// RiskLevel defines the severity of an alert
type RiskLevel string

const (
	RiskInfo     RiskLevel = "info"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskInfo:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// AtLeast reports whether r is as severe as min. Unknown levels rank as info.
func (r RiskLevel) AtLeast(min RiskLevel) bool {
	return riskOrder[r] >= riskOrder[min]
}

// AlertKind tags the alert variant
type AlertKind string

const (
	KindBruteForce        AlertKind = "brute_force"
	KindSuspiciousAccount AlertKind = "suspicious_account"
	KindUnusualHours      AlertKind = "unusual_hours"
	KindMultiHostLogin    AlertKind = "multi_host_login"
)

// KindOrder is the order alerts are grouped in a report.
var KindOrder = []AlertKind{
	KindBruteForce,
	KindSuspiciousAccount,
	KindUnusualHours,
	KindMultiHostLogin,
}

// Reason explains why an account was flagged suspicious
type Reason string

const (
	ReasonKnownBadPattern         Reason = "known_bad_pattern"
	ReasonPrivilegedNameHeuristic Reason = "privileged_name_heuristic"
	ReasonExcessiveFailures       Reason = "excessive_failures"
)

// Alert is one detected anomaly. Kind selects which of the remaining fields
// are meaningful:
//
//	brute_force         User, FailedCount
//	suspicious_account  User, Reason
//	unusual_hours       Hours (ascending), Users
//	multi_host_login    User, Hosts (first-seen order)
type Alert struct {
	Kind        AlertKind `json:"kind"`
	Risk        RiskLevel `json:"risk"`
	User        string    `json:"user,omitempty"`
	FailedCount int       `json:"failed_count,omitempty"`
	Reason      Reason    `json:"reason,omitempty"`
	Hours       []int     `json:"hours,omitempty"`
	Users       []string  `json:"users,omitempty"`
	Hosts       []string  `json:"hosts,omitempty"`
}

func BruteForce(user string, failed int) Alert {
	return Alert{Kind: KindBruteForce, Risk: RiskHigh, User: user, FailedCount: failed}
}

func SuspiciousAccount(user string, reason Reason) Alert {
	risk := RiskMedium
	if reason == ReasonExcessiveFailures {
		risk = RiskHigh
	}
	return Alert{Kind: KindSuspiciousAccount, Risk: risk, User: user, Reason: reason}
}

func UnusualHours(hours []int, users []string) Alert {
	return Alert{
		Kind:  KindUnusualHours,
		Risk:  RiskMedium,
		Hours: append([]int(nil), hours...),
		Users: append([]string(nil), users...),
	}
}

func MultiHostLogin(user string, hosts []string) Alert {
	return Alert{
		Kind:  KindMultiHostLogin,
		Risk:  RiskMedium,
		User:  user,
		Hosts: append([]string(nil), hosts...),
	}
}

// Clone returns a copy that shares no slices with a.
func (a Alert) Clone() Alert {
	c := a
	c.Hours = append([]int(nil), a.Hours...)
	c.Users = append([]string(nil), a.Users...)
	c.Hosts = append([]string(nil), a.Hosts...)
	return c
}

// Summary is a one-line description used by sinks and text reports.
func (a Alert) Summary() string {
	switch a.Kind {
	case KindBruteForce:
		return fmt.Sprintf("User %s failed %d login attempts", a.User, a.FailedCount)
	case KindSuspiciousAccount:
		return fmt.Sprintf("Suspicious user account: %s (%s)", a.User, a.Reason)
	case KindUnusualHours:
		hours := make([]string, len(a.Hours))
		for i, h := range a.Hours {
			hours[i] = fmt.Sprintf("%d:00", h)
		}
		return "Unusual login hours detected: " + strings.Join(hours, ", ")
	case KindMultiHostLogin:
		return fmt.Sprintf("User %s logged in from multiple computers: %s", a.User, strings.Join(a.Hosts, ", "))
	default:
		return string(a.Kind)
	}
}

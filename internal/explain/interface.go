package explain

import (
	"context"
	"fmt"
	"strings"

	"loggedin/internal/logging"
	"loggedin/internal/types"
)

// Explainer turns an alert into a short human-readable narrative
type Explainer interface {
	Explain(ctx context.Context, alert types.Alert) (string, error)
}

// TemplateExplainer uses static string templates (Offline/Fast)
type TemplateExplainer struct{}

func NewTemplateExplainer() *TemplateExplainer {
	return &TemplateExplainer{}
}

func (e *TemplateExplainer) Explain(_ context.Context, a types.Alert) (string, error) {
	switch a.Kind {
	case types.KindBruteForce:
		return fmt.Sprintf("%d failed logins for %s suggest password guessing. Risk: %s.", a.FailedCount, a.User, a.Risk), nil
	case types.KindSuspiciousAccount:
		return fmt.Sprintf("Account %s was flagged (%s). Risk: %s.", a.User, reasonText(a.Reason), a.Risk), nil
	case types.KindUnusualHours:
		return fmt.Sprintf("Logins outside business hours by %s. Risk: %s.", strings.Join(a.Users, ", "), a.Risk), nil
	case types.KindMultiHostLogin:
		return fmt.Sprintf("%s authenticated on %d hosts, which may indicate lateral movement. Risk: %s.", a.User, len(a.Hosts), a.Risk), nil
	default:
		return fmt.Sprintf("Detected %s. Risk: %s.", a.Summary(), a.Risk), nil
	}
}

func reasonText(r types.Reason) string {
	switch r {
	case types.ReasonKnownBadPattern:
		return "name matches a known bad pattern"
	case types.ReasonPrivilegedNameHeuristic:
		return "privileged-looking name"
	case types.ReasonExcessiveFailures:
		return "excessive failed logins"
	default:
		return string(r)
	}
}

// fallbackExplainer tries the primary explainer and degrades to templates
type fallbackExplainer struct {
	primary  Explainer
	template *TemplateExplainer
}

// WithFallback wraps primary so that any error yields the template text instead.
func WithFallback(primary Explainer) Explainer {
	return &fallbackExplainer{primary: primary, template: NewTemplateExplainer()}
}

func (e *fallbackExplainer) Explain(ctx context.Context, a types.Alert) (string, error) {
	text, err := e.primary.Explain(ctx, a)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), nil
	}
	if err != nil {
		log := logging.For("explain")
		log.Warn().Err(err).Str("kind", string(a.Kind)).Msg("explainer failed, using template")
	}
	return e.template.Explain(ctx, a)
}

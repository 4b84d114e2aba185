// Package render fills play templates with member and tenant values.
package render

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/member"
)

// Vars is the variable vocabulary available to a template. A key that is
// present with an empty value renders as an empty string; a token whose key
// is absent from the vocabulary is a rendering error.
type Vars map[string]string

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// UnresolvedTokenError reports a template token with no matching variable.
// Unresolved tokens must never ship; the caller aborts that message.
type UnresolvedTokenError struct {
	Token string
}

func (e *UnresolvedTokenError) Error() string {
	return fmt.Sprintf("unresolved template token {{%s}}", e.Token)
}

// MemberVars builds the standard variable set for one member.
func MemberVars(m *member.Snapshot, gymName, primaryRiskReason string, now time.Time) Vars {
	lastVisit := ""
	daysSince := ""
	if m.LastVisitAt != nil && !m.LastVisitAt.IsZero() {
		lastVisit = m.LastVisitAt.Format("January 2, 2006")
		daysSince = fmt.Sprintf("%d", m.DaysSinceLastVisit(now))
	}

	return Vars{
		"first_name":            m.FirstName,
		"last_name":             m.LastName,
		"gym_name":              gymName,
		"primary_risk_reason":   primaryRiskReason,
		"last_visit_date":       lastVisit,
		"days_since_last_visit": daysSince,
	}
}

// Render substitutes {{variable}} tokens in the template.
// Missing values render empty; unknown tokens return an UnresolvedTokenError.
func Render(template string, vars Vars) (string, error) {
	var firstErr error

	out := tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := tokenPattern.FindStringSubmatch(match)[1]
		value, ok := vars[key]
		if !ok {
			if firstErr == nil {
				firstErr = &UnresolvedTokenError{Token: key}
			}
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Message renders a subject/body pair with one variable set.
func Message(subject, body string, vars Vars) (string, string, error) {
	renderedSubject, err := Render(subject, vars)
	if err != nil {
		return "", "", fmt.Errorf("subject: %w", err)
	}
	renderedBody, err := Render(body, vars)
	if err != nil {
		return "", "", fmt.Errorf("body: %w", err)
	}
	return renderedSubject, renderedBody, nil
}

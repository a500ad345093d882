package broker

import (
	"fmt"
	"strings"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
)

// PolicyBlockedError is fatal and non-retryable: the target domain sits on
// the denied list, so the request never reaches a decision provider and no
// amount of re-planning can make it succeed.
type PolicyBlockedError struct {
	URL    string
	Domain string
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("navigation to %s blocked: domain is in denied list", e.URL)
}

// PermissionDeniedError is raised when a decision provider (or a cached
// decision) denies an action. It carries enough context for the calling
// driver to pick a recovery strategy – skip the step, re-plan, or stop –
// without re-deriving policy.
type PermissionDeniedError struct {
	Action      action.Type
	URL         string
	Goal        string
	Reasoning   string
	IsCritical  bool
	ReplanCount int
}

func (e *PermissionDeniedError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s to %s denied by user", e.Action, e.URL)
	}
	return fmt.Sprintf("%s denied by user", e.Action)
}

// ShouldExit reports whether the driver should stop: the denied step was
// critical and a re-plan was already attempted.
func (e *PermissionDeniedError) ShouldExit() bool {
	return e.IsCritical && e.ReplanCount >= 1
}

// ShouldReplan reports whether the driver should try an alternative plan:
// the denied step was critical and no re-plan has been attempted yet.
func (e *PermissionDeniedError) ShouldReplan() bool {
	return e.IsCritical && e.ReplanCount == 0
}

// ReplanContext renders the denial as a prompt fragment for the re-planning
// model.
func (e *PermissionDeniedError) ReplanContext() string {
	parts := []string{fmt.Sprintf("Permission denied for action: %s", e.Action)}
	if e.URL != "" {
		parts = append(parts, "URL: "+e.URL)
	}
	if e.Goal != "" {
		parts = append(parts, "Goal: "+e.Goal)
	}
	if e.Reasoning != "" {
		parts = append(parts, "Reason for step: "+e.Reasoning)
	}
	parts = append(parts, "Please find an alternative approach that does not require this permission.")
	return strings.Join(parts, "\n")
}

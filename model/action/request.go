package action

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Request represents a single request for approval of a sensitive action.
// It is constructed by the classifier per intercepted action, enriched by the
// broker with ambient agent context, consumed once by a decision provider and
// discarded afterwards.
type Request struct {
	Type        Type
	Description string
	Details     map[string]interface{}
	Risk        RiskLevel
	URL         string
	Element     *Element

	// Agent context – merged in by the broker when unset.
	Agent      Context
	IsCritical bool
}

// CacheKey identifies "the same request" for decision deduplication. Two
// requests share a key iff type, URL and reasoning agree; the reasoning is
// hashed so the key stays bounded regardless of how long the text grows.
func (r *Request) CacheKey() string {
	sum := md5.Sum([]byte(r.Agent.Reasoning))
	return strings.Join([]string{
		string(r.Type),
		r.URL,
		hex.EncodeToString(sum[:])[:8],
	}, "|")
}

// ActionKey identifies a request for session-wide grants: the action type
// plus the exact URL, or "any" when the request has no target URL.
func (r *Request) ActionKey() string {
	url := r.URL
	if url == "" {
		url = "any"
	}
	return string(r.Type) + ":" + url
}

// FormatPrompt renders the request as a human-readable console prompt.
func (r *Request) FormatPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n!! SECURITY APPROVAL REQUIRED !!\n")
	fmt.Fprintf(&b, "Action Type: %s\n", strings.ToUpper(string(r.Type)))
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(r.Risk.String()))

	if r.Agent.Step > 0 {
		if r.Agent.MaxSteps > 0 {
			fmt.Fprintf(&b, "Progress: Step %d of %d\n", r.Agent.Step, r.Agent.MaxSteps)
		} else {
			fmt.Fprintf(&b, "Progress: Step %d\n", r.Agent.Step)
		}
	}
	if task := r.Agent.Task; task != "" {
		if len(task) > 100 {
			task = task[:100] + "..."
		}
		fmt.Fprintf(&b, "Task: %s\n", task)
	}
	if r.Agent.Goal != "" {
		fmt.Fprintf(&b, "Current Goal: %s\n", r.Agent.Goal)
	}
	if r.Agent.Reasoning != "" {
		fmt.Fprintf(&b, "Why this step: %s\n", r.Agent.Reasoning)
	}
	if r.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", r.URL)
	}
	if len(r.Details) > 0 {
		b.WriteString("Details:\n")
		for _, key := range sortedKeys(r.Details) {
			value := r.Details[key]
			if key == "text" {
				if s := fmt.Sprint(value); len(s) > 50 {
					value = s[:50] + "..."
				}
			}
			fmt.Fprintf(&b, "  - %s: %v\n", key, value)
		}
	}
	if info := r.Element.Info(); len(info) > 0 {
		b.WriteString("Element Info:\n")
		for _, key := range sortedKeys(info) {
			fmt.Fprintf(&b, "  - %s: %v\n", key, info[key])
		}
	}
	if len(r.Agent.Actions) > 0 {
		b.WriteString("Planned Actions:\n")
		for i, planned := range r.Agent.Actions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, planned)
		}
	}
	if r.IsCritical {
		b.WriteString("This step is CRITICAL for completing the task\n")
	}
	return b.String()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// maskCap bounds the number of mask characters so that the rendered marker
// does not leak the exact length of long secrets.
const maskCap = 8

// Mask replaces a sensitive value with a fixed-alphabet marker. Values longer
// than maskCap render as maskCap stars plus an ellipsis regardless of their
// true length.
func Mask(s string) string {
	if len(s) > maskCap {
		return strings.Repeat("*", maskCap) + "..."
	}
	return strings.Repeat("*", len(s))
}

// DeniedAction is an immutable snapshot of a denied request, appended to the
// ledger so that the driver can prune dependent steps without re-asking.
type DeniedAction struct {
	Type        Type      `json:"actionType"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	Goal        string    `json:"currentGoal,omitempty"`
	Reasoning   string    `json:"reasoning,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

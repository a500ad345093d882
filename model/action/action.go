package action

// Type enumerates the kinds of sensitive automation actions that may require
// approval before they execute.
type Type string

const (
	Navigation         Type = "navigation"
	FormInput          Type = "form_input"
	SensitiveDataInput Type = "sensitive_data_input"
	FileUpload         Type = "file_upload"
	FileDownload       Type = "file_download"
	ClickSubmit        Type = "click_submit"
	ClickLogin         Type = "click_login"
	ClickPayment       Type = "click_payment"
	KeyboardShortcut   Type = "keyboard_shortcut"
)

// Decision represents the outcome of an approval request. The ApproveAll*
// values are meta-decisions: they resolve the current request as Approve and
// additionally register a durable bypass grant; callers of the broker never
// observe them directly.
type Decision string

const (
	Approve           Decision = "approve"
	Deny              Decision = "deny"
	ApproveAllSession Decision = "approve_all_session"
	ApproveAllDomain  Decision = "approve_all_domain"
)

// RiskLevel orders action risk from RiskLow to RiskCritical. The ordering is
// meaningful: escalation only ever moves a level upward.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"low", "medium", "high", "critical"}

func (r RiskLevel) String() string {
	if r < RiskLow || r > RiskCritical {
		return "unknown"
	}
	return riskNames[r]
}

// Escalate returns the next level up, capped at RiskCritical.
func (r RiskLevel) Escalate() RiskLevel {
	if r >= RiskCritical {
		return RiskCritical
	}
	return r + 1
}

// ParseRisk converts a textual risk level to a RiskLevel. Unknown input maps
// to RiskMedium, the default risk of an unclassified sensitive action.
func ParseRisk(s string) RiskLevel {
	for i, name := range riskNames {
		if name == s {
			return RiskLevel(i)
		}
	}
	return RiskMedium
}

// Element is a descriptor of the DOM element an action targets, extracted by
// the automation driver. All fields are optional.
type Element struct {
	Tag          string `json:"tag,omitempty"`
	Type         string `json:"type,omitempty"`
	Name         string `json:"name,omitempty"`
	ID           string `json:"id,omitempty"`
	Placeholder  string `json:"placeholder,omitempty"`
	AriaLabel    string `json:"ariaLabel,omitempty"`
	Autocomplete string `json:"autocomplete,omitempty"`
	Title        string `json:"title,omitempty"`
	Value        string `json:"value,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Info returns the subset of element fields worth showing on an approval
// prompt, keyed the way the prompt renders them. Empty fields are omitted.
func (e *Element) Info() map[string]interface{} {
	if e == nil {
		return nil
	}
	out := map[string]interface{}{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("tag", e.Tag)
	put("type", e.Type)
	put("name", e.Name)
	put("id", e.ID)
	put("placeholder", e.Placeholder)
	if text := e.Text; text != "" {
		if len(text) > 100 {
			text = text[:100]
		}
		out["text"] = text
	}
	return out
}

// Context carries the ambient agent state supplied by the automation driver
// before each action attempt. It is merged into approval requests that were
// built without it.
type Context struct {
	Task      string
	Goal      string
	Reasoning string
	Memory    string
	Step      int
	MaxSteps  int
	Actions   []string
}

// Merge fills any unset field of c from other and returns the result.
func (c Context) Merge(other Context) Context {
	if c.Task == "" {
		c.Task = other.Task
	}
	if c.Goal == "" {
		c.Goal = other.Goal
	}
	if c.Reasoning == "" {
		c.Reasoning = other.Reasoning
	}
	if c.Memory == "" {
		c.Memory = other.Memory
	}
	if c.Step == 0 {
		c.Step = other.Step
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = other.MaxSteps
	}
	if len(c.Actions) == 0 {
		c.Actions = other.Actions
	}
	return c
}

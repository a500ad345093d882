// Package surface implements the interactive decision provider. It asks the
// automation driver for an isolated presentation surface, injects a
// self-contained approval document with four discrete actions and a visible
// countdown, and polls the surface for the user's choice. The surface is torn
// down and the driver's original focus restored on every exit path. Any
// failure to create or talk to the surface falls back to a secondary
// provider rather than failing the approval call.
package surface

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/starks-and-wolves/ai-browser-secure/internal/idgen"
	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
)

// Surface is the capability contract implemented by the automation driver.
// The provider depends on nothing about the underlying mechanism beyond
// these operations.
type Surface interface {
	// Create opens a new isolated surface and returns its identifier.
	Create(ctx context.Context) (string, error)

	// SetContent replaces the surface document with the supplied HTML.
	SetContent(ctx context.Context, id, html string) error

	// Evaluate runs an expression on the surface and returns its string
	// value; an unset value yields the empty string.
	Evaluate(ctx context.Context, id, expression string) (string, error)

	// Destroy tears the surface down.
	Destroy(ctx context.Context, id string) error

	// RestoreFocus returns focus to the surface that was active before
	// Create.
	RestoreFocus(ctx context.Context) error
}

const (
	// DefaultPollInterval is how often the surface is asked for a result.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultBudget bounds the whole exchange; slightly more than the
	// visible countdown so the in-page auto-deny usually fires first.
	DefaultBudget = 65 * time.Second
	// countdownSeconds is the visible auto-deny countdown.
	countdownSeconds = 60
)

// Provider drives one Surface. Fallback handles requests when the surface
// cannot be used.
type Provider struct {
	surface      Surface
	fallback     provider.Provider
	pollInterval time.Duration
	budget       time.Duration
}

// New creates a surface provider with the given capability implementation
// and fallback provider.
func New(surface Surface, fallback provider.Provider) *Provider {
	return &Provider{
		surface:      surface,
		fallback:     fallback,
		pollInterval: DefaultPollInterval,
		budget:       DefaultBudget,
	}
}

// WithPolling overrides the poll interval and budget; zero values keep the
// defaults. Returns the provider.
func (p *Provider) WithPolling(interval, budget time.Duration) *Provider {
	if interval > 0 {
		p.pollInterval = interval
	}
	if budget > 0 {
		p.budget = budget
	}
	return p
}

// Decide implements provider.Provider.
func (p *Provider) Decide(ctx context.Context, request *action.Request) (action.Decision, error) {
	if p.surface == nil {
		return p.fallbackDecide(ctx, request, fmt.Errorf("no surface configured"))
	}

	requestID := idgen.Short()

	surfaceID, err := p.surface.Create(ctx)
	if err != nil {
		return p.fallbackDecide(ctx, request, err)
	}
	// Teardown and focus restoration run once on every exit path: answer,
	// timeout, evaluation failure or panic. The failure paths tear down
	// eagerly so the dead surface never outlives the fallback prompt.
	tornDown := false
	teardown := func() {
		if tornDown {
			return
		}
		tornDown = true
		teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.surface.Destroy(teardownCtx, surfaceID); err != nil {
			log.Printf("failed to destroy approval surface %s: %v", surfaceID, err)
		}
		if err := p.surface.RestoreFocus(teardownCtx); err != nil {
			log.Printf("failed to restore focus after approval: %v", err)
		}
	}
	defer teardown()

	if err := p.surface.SetContent(ctx, surfaceID, Document(request, requestID)); err != nil {
		teardown()
		return p.fallbackDecide(ctx, request, err)
	}

	expression := ResultExpression(requestID)
	deadline := time.NewTimer(p.budget)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return action.Deny, ctx.Err()
		case <-deadline.C:
			log.Printf("surface approval timed out, denying action")
			return action.Deny, nil
		case <-ticker.C:
			result, err := p.surface.Evaluate(ctx, surfaceID, expression)
			if err != nil {
				teardown()
				return p.fallbackDecide(ctx, request, err)
			}
			if result == "" || result == "null" {
				continue
			}
			return mapResult(result), nil
		}
	}
}

// fallbackDecide recovers a surface failure locally: the error is logged,
// never surfaced to the broker.
func (p *Provider) fallbackDecide(ctx context.Context, request *action.Request, cause error) (action.Decision, error) {
	log.Printf("approval surface unavailable (%v), falling back", cause)
	if p.fallback == nil {
		return action.Deny, nil
	}
	return p.fallback.Decide(ctx, request)
}

func mapResult(result string) action.Decision {
	switch result {
	case "approve":
		return action.Approve
	case "approve_session":
		return action.ApproveAllSession
	case "approve_domain":
		return action.ApproveAllDomain
	default: // deny, timeout or anything unexpected
		return action.Deny
	}
}

// ResultExpression returns the expression polled for the user's choice.
func ResultExpression(requestID string) string {
	return fmt.Sprintf("window.__approvalResult_%s || ''", requestID)
}

var riskColors = map[action.RiskLevel]string{
	action.RiskLow:      "#22c55e",
	action.RiskMedium:   "#eab308",
	action.RiskHigh:     "#ef4444",
	action.RiskCritical: "#dc2626",
}

// Document renders the self-contained approval page. All request text is
// HTML-escaped; the page needs no external resources.
func Document(request *action.Request, requestID string) string {
	color, ok := riskColors[request.Risk]
	if !ok {
		color = riskColors[action.RiskMedium]
	}

	var sections strings.Builder
	if request.Agent.Step > 0 {
		step := fmt.Sprintf("Step %d", request.Agent.Step)
		if request.Agent.MaxSteps > 0 {
			step += fmt.Sprintf(" of %d", request.Agent.MaxSteps)
		}
		section(&sections, "Progress", step)
	}
	if task := request.Agent.Task; task != "" {
		if len(task) > 150 {
			task = task[:150] + "..."
		}
		section(&sections, "Task", task)
	}
	if request.Agent.Goal != "" {
		section(&sections, "Current Goal", request.Agent.Goal)
	}
	if request.Agent.Reasoning != "" {
		section(&sections, "Why this step", request.Agent.Reasoning)
	}
	if request.URL != "" {
		section(&sections, "URL", request.URL)
	}
	for _, key := range detailKeys(request.Details) {
		value := fmt.Sprint(request.Details[key])
		if key == "text" && len(value) > 50 {
			value = value[:50] + "..."
		}
		section(&sections, key, value)
	}
	if request.IsCritical {
		sections.WriteString(`<div class="critical">Critical step - required for task completion</div>`)
	}
	if len(request.Agent.Actions) > 0 {
		sections.WriteString(`<div class="label">Planned Actions</div><ol>`)
		actions := request.Agent.Actions
		if len(actions) > 5 {
			actions = actions[:5]
		}
		for _, planned := range actions {
			fmt.Fprintf(&sections, "<li>%s</li>", html.EscapeString(planned))
		}
		if extra := len(request.Agent.Actions) - 5; extra > 0 {
			fmt.Fprintf(&sections, "<li>... and %d more</li>", extra)
		}
		sections.WriteString(`</ol>`)
	}

	return fmt.Sprintf(pageTemplate,
		color,
		strings.ToUpper(request.Risk.String()),
		html.EscapeString(strings.ReplaceAll(string(request.Type), "_", " ")),
		html.EscapeString(request.Description),
		sections.String(),
		requestID, requestID, requestID, requestID,
		countdownSeconds,
		requestID, requestID, requestID,
		countdownSeconds,
		requestID,
	)
}

func section(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, `<div class="row"><span class="label">%s:</span> <span>%s</span></div>`,
		html.EscapeString(label), html.EscapeString(value))
}

func detailKeys(details map[string]interface{}) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	// Stable rendering order keeps the document deterministic for tests.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Permission Required</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  background: #1a1a2e; min-height: 100vh; display: flex; align-items: center;
  justify-content: center; padding: 20px; }
.dialog { background: #fff; border-radius: 16px; max-width: 500px; width: 100%%; overflow: hidden; }
.header { background: %s; color: #fff; padding: 24px; text-align: center; }
.header h1 { font-size: 22px; }
.header p { opacity: .9; font-size: 13px; margin-top: 4px; }
.content { padding: 24px; color: #1f2937; }
.row { padding: 6px 0; border-bottom: 1px solid #e5e7eb; font-size: 14px; word-break: break-all; }
.label { color: #6b7280; font-size: 12px; text-transform: uppercase; letter-spacing: .5px; }
.critical { background: #fee2e2; color: #b91c1c; padding: 8px 12px; border-radius: 8px;
  margin: 12px 0; font-size: 13px; text-align: center; }
.action { font-size: 17px; font-weight: 600; margin: 12px 0 4px; text-transform: capitalize; }
.desc { font-size: 15px; margin-bottom: 12px; }
ol { padding-left: 20px; font-size: 13px; color: #374151; }
.buttons { display: grid; gap: 10px; padding: 0 24px 16px; }
button { padding: 13px 20px; border: none; border-radius: 8px; font-size: 15px;
  font-weight: 600; cursor: pointer; }
.approve { background: #22c55e; color: #fff; }
.deny { background: #ef4444; color: #fff; }
.secondary { background: #e5e7eb; color: #374151; }
.timer { text-align: center; padding-bottom: 20px; color: #6b7280; font-size: 13px; }
.timer span { color: #ef4444; font-weight: 600; }
</style>
</head>
<body>
<div class="dialog">
  <div class="header"><h1>Permission Required</h1><p>Risk Level: %s</p></div>
  <div class="content">
    <div class="action">%s</div>
    <div class="desc">%s</div>
    %s
  </div>
  <div class="buttons">
    <button class="approve" onclick="window.__approve('%s','approve')">Allow This Action</button>
    <button class="secondary" onclick="window.__approve('%s','approve_session')">Allow All (This Session)</button>
    <button class="secondary" onclick="window.__approve('%s','approve_domain')">Allow All (This Domain)</button>
    <button class="deny" onclick="window.__approve('%s','deny')">Deny</button>
  </div>
  <div class="timer">Auto-deny in <span id="countdown">%d</span> seconds</div>
</div>
<script>
window.__approvalResult_%s = null;
window.__approve = function(id, decision) {
  if (id === '%s') { window.__approvalResult_%s = decision; }
};
var countdown = %d;
var timer = setInterval(function() {
  countdown--;
  document.getElementById('countdown').textContent = countdown;
  if (countdown <= 0) { clearInterval(timer); window.__approve('%s', 'deny'); }
}, 1000);
</script>
</body>
</html>`

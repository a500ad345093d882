package surface

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
)

// fakeSurface scripts a surface: the result expression stays empty for
// answerAfter polls, then yields result.
type fakeSurface struct {
	mu sync.Mutex

	createErr   error
	contentErr  error
	evaluateErr error
	answerAfter int
	result      string

	evaluations int
	content     string
	destroyed   bool
	focusOrder  []string
	destroyedID string
}

func (s *fakeSurface) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	return "surface-1", nil
}

func (s *fakeSurface) SetContent(ctx context.Context, id, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contentErr != nil {
		return s.contentErr
	}
	s.content = html
	return nil
}

func (s *fakeSurface) Evaluate(ctx context.Context, id, expression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evaluateErr != nil {
		return "", s.evaluateErr
	}
	s.evaluations++
	if s.evaluations <= s.answerAfter {
		return "", nil
	}
	return s.result, nil
}

func (s *fakeSurface) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.destroyedID = id
	s.focusOrder = append(s.focusOrder, "destroy")
	return nil
}

func (s *fakeSurface) RestoreFocus(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusOrder = append(s.focusOrder, "restore")
	return nil
}

type surfaceState struct {
	evaluations int
	content     string
	destroyed   bool
	destroyedID string
	focusOrder  []string
}

func (s *fakeSurface) snapshot() surfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return surfaceState{
		evaluations: s.evaluations,
		content:     s.content,
		destroyed:   s.destroyed,
		destroyedID: s.destroyedID,
		focusOrder:  append([]string(nil), s.focusOrder...),
	}
}

func fastProvider(s Surface, fallback provider.Provider) *Provider {
	return New(s, fallback).WithPolling(time.Millisecond, 200*time.Millisecond)
}

func TestDecideAnswers(t *testing.T) {
	type testCase struct {
		name     string
		result   string
		expected action.Decision
	}

	tests := []testCase{
		{name: "approve", result: "approve", expected: action.Approve},
		{name: "session grant", result: "approve_session", expected: action.ApproveAllSession},
		{name: "domain grant", result: "approve_domain", expected: action.ApproveAllDomain},
		{name: "deny", result: "deny", expected: action.Deny},
		{name: "unexpected value denies", result: "whatever", expected: action.Deny},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			surface := &fakeSurface{answerAfter: 3, result: tc.result}
			p := fastProvider(surface, provider.AutoDeny())

			decision, err := p.Decide(context.Background(), &action.Request{
				Type:        action.Navigation,
				Description: "Navigate to https://example.com",
				URL:         "https://example.com",
			})
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, decision)

			state := surface.snapshot()
			assert.Contains(t, state.content, "Permission Required")
			assert.True(t, state.destroyed, "surface torn down after answer")
			assert.Equal(t, "surface-1", state.destroyedID)
			assert.Equal(t, []string{"destroy", "restore"}, state.focusOrder)
			assert.GreaterOrEqual(t, state.evaluations, 4)
		})
	}
}

func TestDecideTimeoutDenies(t *testing.T) {
	surface := &fakeSurface{answerAfter: 1 << 30}
	p := New(surface, provider.AutoApprove()).WithPolling(time.Millisecond, 20*time.Millisecond)

	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Deny, decision, "timeout denies without consulting the fallback")
	assert.True(t, surface.snapshot().destroyed)
}

func TestDecideCreateFailureFallsBack(t *testing.T) {
	surface := &fakeSurface{createErr: errors.New("no targets")}
	p := fastProvider(surface, provider.AutoApprove())

	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Approve, decision)
	assert.False(t, surface.snapshot().destroyed, "nothing to tear down")
}

func TestDecideContentFailureFallsBackAndTearsDown(t *testing.T) {
	surface := &fakeSurface{contentErr: errors.New("frame gone")}
	var destroyedBeforeFallback bool
	fallback := provider.Func(func(context.Context, *action.Request) (action.Decision, error) {
		destroyedBeforeFallback = surface.snapshot().destroyed
		return action.Approve, nil
	})
	p := fastProvider(surface, fallback)

	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Approve, decision)
	assert.True(t, destroyedBeforeFallback, "dead surface closed before the fallback prompt")

	state := surface.snapshot()
	assert.True(t, state.destroyed)
	assert.Equal(t, []string{"destroy", "restore"}, state.focusOrder, "teardown runs exactly once")
}

func TestDecideEvaluateFailureFallsBackAndTearsDown(t *testing.T) {
	surface := &fakeSurface{evaluateErr: errors.New("target crashed")}
	var destroyedBeforeFallback bool
	fallback := provider.Func(func(context.Context, *action.Request) (action.Decision, error) {
		destroyedBeforeFallback = surface.snapshot().destroyed
		return action.Approve, nil
	})
	p := fastProvider(surface, fallback)

	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Approve, decision)
	assert.True(t, destroyedBeforeFallback, "dead surface closed before the fallback prompt")

	state := surface.snapshot()
	assert.True(t, state.destroyed)
	assert.Equal(t, []string{"destroy", "restore"}, state.focusOrder, "teardown runs exactly once")
}

func TestDecideNoSurfaceUsesFallback(t *testing.T) {
	p := fastProvider(nil, provider.AutoApprove())
	decision, err := p.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Approve, decision)

	bare := fastProvider(nil, nil)
	decision, err = bare.Decide(context.Background(), &action.Request{Type: action.Navigation})
	assert.NoError(t, err)
	assert.Equal(t, action.Deny, decision, "no surface and no fallback denies")
}

func TestDecideContextCancelled(t *testing.T) {
	surface := &fakeSurface{answerAfter: 1 << 30}
	p := New(surface, nil).WithPolling(time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	decision, err := p.Decide(ctx, &action.Request{Type: action.Navigation})
	assert.Error(t, err)
	assert.Equal(t, action.Deny, decision)
	assert.True(t, surface.snapshot().destroyed)
}

func TestDocument(t *testing.T) {
	request := &action.Request{
		Type:        action.SensitiveDataInput,
		Description: "Enter password into login form",
		Risk:        action.RiskCritical,
		URL:         "https://example.com/login",
		Details: map[string]interface{}{
			"field_type":   "password",
			"text_preview": "********...",
		},
		Agent: action.Context{
			Task:      "Log into the account",
			Goal:      "Authenticate",
			Reasoning: "credentials required",
			Step:      3,
			MaxSteps:  10,
			Actions:   []string{"a", "b", "c", "d", "e", "f", "g"},
		},
		IsCritical: true,
	}

	doc := Document(request, "req12345")
	assert.Contains(t, doc, "Risk Level: CRITICAL")
	assert.Contains(t, doc, "sensitive data input")
	assert.Contains(t, doc, "Enter password into login form")
	assert.Contains(t, doc, "Step 3 of 10")
	assert.Contains(t, doc, "https://example.com/login")
	assert.Contains(t, doc, "field_type")
	assert.Contains(t, doc, "window.__approvalResult_req12345 = null;")
	assert.Contains(t, doc, `window.__approve('req12345','approve')`)
	assert.Contains(t, doc, `window.__approve('req12345','deny')`)
	assert.Contains(t, doc, "Critical step")
	assert.Contains(t, doc, "... and 2 more", "planned actions truncate at five")
	assert.NotContains(t, doc, "%s", "all placeholders consumed")
	assert.NotContains(t, doc, "%d", "all placeholders consumed")
}

func TestDocumentEscapesHTML(t *testing.T) {
	request := &action.Request{
		Type:        action.Navigation,
		Description: `<script>alert("x")</script>`,
		URL:         "https://example.com/?q=<b>",
	}
	doc := Document(request, "req1")
	assert.NotContains(t, doc, `<script>alert("x")</script>`)
	assert.Contains(t, doc, "&lt;script&gt;")
}

func TestResultExpression(t *testing.T) {
	assert.Equal(t, "window.__approvalResult_abc || ''", ResultExpression("abc"))
}

func TestDocumentContainsSetContentMarker(t *testing.T) {
	doc := Document(&action.Request{Type: action.Navigation}, "r1")
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "Auto-deny in")
}

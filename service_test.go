package guard

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/service/audit"
	"github.com/starks-and-wolves/ai-browser-secure/service/broker"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
)

func TestServiceDefaults(t *testing.T) {
	s := New()
	assert.NotNil(t, s.Broker())
	assert.Nil(t, s.Events(), "auditing disabled unless a buffer is configured")
}

func TestServiceConsoleFlow(t *testing.T) {
	var out bytes.Buffer
	config := DefaultConfig()
	config.Provider = ProviderConsole

	s := New(
		WithConfig(config),
		WithConsoleIO(strings.NewReader("y\n"), &out),
	)

	err := s.CheckNavigation(context.Background(), "https://example.com", false)
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "SECURITY APPROVAL REQUIRED")
}

func TestServiceDenialFlow(t *testing.T) {
	s := New(WithProvider(provider.AutoDeny()))
	ctx := context.Background()

	s.UpdateAgentContext(action.Context{Goal: "open the site"})
	err := s.CheckNavigation(ctx, "https://example.com", false)

	var denied *broker.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, action.Navigation, denied.Action)
	assert.Equal(t, "open the site", denied.Goal)
	assert.Equal(t, 0, denied.ReplanCount)

	// The denial landed in the ledger and drives skip decisions.
	assert.Len(t, s.DeniedActions(), 1)
	assert.True(t, s.ShouldSkipDueToDenial("https://example.com", ""))

	// Replan bookkeeping.
	assert.Equal(t, 1, s.IncrementReplanCount("open the site"))
	assert.Equal(t, 1, s.ReplanCount("open the site"))

	// A repeated denial after the increment carries the updated count.
	err = s.CheckNavigation(ctx, "https://example.com", false)
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, 1, denied.ReplanCount)

	s.ResetReplanCount("open the site")
	assert.Equal(t, 0, s.ReplanCount("open the site"))

	s.ClearDeniedActions()
	assert.Empty(t, s.DeniedActions())
	assert.False(t, s.ShouldSkipDueToDenial("https://example.com", ""))
}

func TestServiceResetAllReplanCounts(t *testing.T) {
	s := New(WithProvider(provider.AutoDeny()))
	s.IncrementReplanCount("goal-a")
	s.IncrementReplanCount("goal-b")

	s.ResetReplanCount("")
	assert.Equal(t, 0, s.ReplanCount("goal-a"))
	assert.Equal(t, 0, s.ReplanCount("goal-b"))
}

func TestServiceConfiguredGatingAndDomains(t *testing.T) {
	config := DefaultConfig()
	config.Provider = ProviderConsole
	config.RequireNavigation = false
	config.DeniedDomains = []string{"example.net"}
	config.AuditBuffer = 10

	// Navigation gating is off, so even a deny-everything console never runs.
	s := New(WithConfig(config), WithConsoleIO(strings.NewReader(""), &bytes.Buffer{}))
	assert.NoError(t, s.CheckNavigation(context.Background(), "https://example.com", false))
	assert.NotNil(t, s.Events())

	// With navigation gating off the denied list is not consulted either.
	assert.NoError(t, s.CheckNavigation(context.Background(), "https://example.net", false))
}

func TestServiceAuditEvents(t *testing.T) {
	events := audit.NewQueue(10)
	s := New(
		WithProvider(provider.AutoApprove()),
		WithAuditQueue(events),
	)

	assert.NoError(t, s.CheckNavigation(context.Background(), "https://example.com", false))

	event, ok := events.TryConsume()
	assert.True(t, ok)
	assert.Equal(t, audit.TopicRequestCreated, event.Topic)
	event, ok = events.TryConsume()
	assert.True(t, ok)
	assert.Equal(t, audit.TopicDecisionCreated, event.Topic)

	s.AuditDownload(context.Background(), broker.DownloadEvent{FileName: "a.pdf"})
	event, ok = events.TryConsume()
	assert.True(t, ok)
	assert.Equal(t, audit.TopicDownloadCompleted, event.Topic)
}

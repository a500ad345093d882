package guard

import (
	"context"
	"io"
	"time"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/policy"
	"github.com/starks-and-wolves/ai-browser-secure/service/audit"
	"github.com/starks-and-wolves/ai-browser-secure/service/broker"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider/console"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider/surface"
)

// Service is the high-level façade wiring configuration, policy, decision
// provider and broker together. One Service serves one automation session.
type Service struct {
	config     *Config
	policy     *policy.Policy
	provider   provider.Provider
	driver     broker.Driver
	surface    surface.Surface
	events     *audit.Queue
	consoleIn  io.Reader
	consoleOut io.Writer

	broker *broker.Broker
}

// New creates a Service. Without options it gates navigation, sensitive data
// and file operations, prompting on the console (the surface provider is
// selected by default but degrades to console until a Surface is attached).
func New(options ...Option) *Service {
	s := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(s)
	}
	if s.policy == nil {
		s.policy = policy.New(s.config.ApprovedDomains, s.config.DeniedDomains)
	}
	if s.events == nil && s.config.AuditBuffer > 0 {
		s.events = audit.NewQueue(s.config.AuditBuffer)
	}
	if s.provider == nil {
		s.provider = s.newProvider()
	}
	s.broker = broker.New(s.provider,
		broker.WithPolicy(s.policy),
		broker.WithDriver(s.driver),
		broker.WithAuditQueue(s.events),
		broker.WithGating(broker.Gating{
			Navigation:     s.config.RequireNavigation,
			Forms:          s.config.RequireForms,
			SensitiveData:  s.config.RequireSensitiveData,
			FileOperations: s.config.RequireFileOperations,
		}),
	)
	return s
}

func (s *Service) newProvider() provider.Provider {
	consoleProvider := console.NewWithIO(s.consoleIn, s.consoleOut).
		WithTimeout(time.Duration(s.config.ConsoleTimeout))
	if s.config.Provider == ProviderConsole {
		return consoleProvider
	}
	return surface.New(s.surface, consoleProvider).
		WithPolling(time.Duration(s.config.SurfacePollInterval), time.Duration(s.config.SurfaceBudget))
}

// Broker exposes the underlying broker for advanced integrations.
func (s *Service) Broker() *broker.Broker { return s.broker }

// Events returns the audit queue, or nil when auditing is disabled.
func (s *Service) Events() *audit.Queue { return s.events }

// UpdateAgentContext records the ambient agent context pushed by the driver
// before each action attempt.
func (s *Service) UpdateAgentContext(ctx action.Context) {
	s.broker.UpdateContext(ctx)
}

// CheckNavigation gates navigation to url; see broker.CheckNavigation.
func (s *Service) CheckNavigation(ctx context.Context, url string, newTab bool) error {
	return s.broker.CheckNavigation(ctx, url, newTab)
}

// CheckTextInput gates typing text into a form field.
func (s *Service) CheckTextInput(ctx context.Context, el *action.Element, text string, isSensitive bool) error {
	return s.broker.CheckTextInput(ctx, el, text, isSensitive)
}

// CheckClick gates clicks on sensitive buttons.
func (s *Service) CheckClick(ctx context.Context, el *action.Element) error {
	return s.broker.CheckClick(ctx, el)
}

// CheckUpload gates file uploads.
func (s *Service) CheckUpload(ctx context.Context, el *action.Element, filePath string) error {
	return s.broker.CheckUpload(ctx, el, filePath)
}

// CheckSendKeys gates dangerous keyboard shortcuts.
func (s *Service) CheckSendKeys(ctx context.Context, keys string) error {
	return s.broker.CheckSendKeys(ctx, keys)
}

// AuditDownload logs a completed download; downloads are never blocked.
func (s *Service) AuditDownload(ctx context.Context, event broker.DownloadEvent) {
	s.broker.AuditDownload(ctx, event)
}

// DeniedActions returns a snapshot of denied actions for re-planning.
func (s *Service) DeniedActions() []action.DeniedAction {
	return s.broker.Ledger().List()
}

// ClearDeniedActions discards the denial records, e.g. after a successful
// re-plan.
func (s *Service) ClearDeniedActions() {
	s.broker.Ledger().Clear()
}

// ShouldSkipDueToDenial reports whether an action should be skipped because
// a related action was already denied.
func (s *Service) ShouldSkipDueToDenial(url string, actionType action.Type) bool {
	return s.broker.ShouldSkip(url, actionType)
}

// ReplanCount returns how many re-plans were attempted for goalKey.
func (s *Service) ReplanCount(goalKey string) int {
	return s.broker.Ledger().ReplanCount(goalKey)
}

// IncrementReplanCount bumps and returns the re-plan count for goalKey.
func (s *Service) IncrementReplanCount(goalKey string) int {
	return s.broker.Ledger().IncrementReplan(goalKey)
}

// ResetReplanCount clears the counter for goalKey; an empty key clears all
// counters.
func (s *Service) ResetReplanCount(goalKey string) {
	if goalKey == "" {
		s.broker.Ledger().ResetAllReplans()
		return
	}
	s.broker.Ledger().ResetReplan(goalKey)
}

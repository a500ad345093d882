package guard

import (
	"io"

	"github.com/starks-and-wolves/ai-browser-secure/policy"
	"github.com/starks-and-wolves/ai-browser-secure/service/audit"
	"github.com/starks-and-wolves/ai-browser-secure/service/broker"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider/surface"
	"github.com/starks-and-wolves/ai-browser-secure/tracing"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the configuration; nil keeps DefaultConfig.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithPolicy overrides the domain policy built from the configuration.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithProvider overrides the decision provider selected by the
// configuration.
func WithProvider(p provider.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithConsoleIO overrides the console prompt streams (handy for tests and
// embedded terminals).
func WithConsoleIO(in io.Reader, out io.Writer) Option {
	return func(s *Service) {
		s.consoleIn = in
		s.consoleOut = out
	}
}

// WithDriver attaches the automation driver consulted for ambient page
// state.
func WithDriver(d broker.Driver) Option {
	return func(s *Service) { s.driver = d }
}

// WithSurface attaches the presentation-surface capability used by the
// interactive provider.
func WithSurface(sf surface.Surface) Option {
	return func(s *Service) { s.surface = sf }
}

// WithAuditQueue substitutes the audit event queue.
func WithAuditQueue(q *audit.Queue) Option {
	return func(s *Service) { s.events = q }
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used. Safe to apply multiple times; the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

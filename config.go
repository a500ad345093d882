package guard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by Config.Provider.
const (
	ProviderConsole = "console"
	ProviderSurface = "surface"
)

// Duration is a time.Duration that (un)marshals as a human-readable string
// ("30s", "5m") in both YAML and JSON.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is a serialisable representation of the approval configuration. It
// can be populated from JSON or YAML; the zero value is useful, all fields
// inherit their package defaults through DefaultConfig.
type Config struct {
	// Per-action-kind gating toggles.
	RequireNavigation     bool `json:"requireNavigation" yaml:"requireNavigation"`
	RequireForms          bool `json:"requireForms" yaml:"requireForms"`
	RequireSensitiveData  bool `json:"requireSensitiveData" yaml:"requireSensitiveData"`
	RequireFileOperations bool `json:"requireFileOperations" yaml:"requireFileOperations"`

	// Domain lists.
	ApprovedDomains []string `json:"approvedDomains,omitempty" yaml:"approvedDomains,omitempty"`
	DeniedDomains   []string `json:"deniedDomains,omitempty" yaml:"deniedDomains,omitempty"`

	// Provider selects the decision source: "console" or "surface".
	Provider string `json:"provider" yaml:"provider"`

	// ConsoleTimeout bounds the console prompt wait.
	ConsoleTimeout Duration `json:"consoleTimeout,omitempty" yaml:"consoleTimeout,omitempty"`

	// SurfacePollInterval and SurfaceBudget tune the interactive provider.
	SurfacePollInterval Duration `json:"surfacePollInterval,omitempty" yaml:"surfacePollInterval,omitempty"`
	SurfaceBudget       Duration `json:"surfaceBudget,omitempty" yaml:"surfaceBudget,omitempty"`

	// AuditBuffer sizes the in-memory audit queue; 0 disables publication.
	AuditBuffer int `json:"auditBuffer" yaml:"auditBuffer"`
}

// DefaultConfig returns a Config populated with the recommended posture:
// navigation, sensitive data and file operations gated, plain form input
// not, surface provider with console fallback.
func DefaultConfig() *Config {
	return &Config{
		RequireNavigation:     true,
		RequireSensitiveData:  true,
		RequireFileOperations: true,
		Provider:              ProviderSurface,
		ConsoleTimeout:        Duration(5 * time.Minute),
		SurfacePollInterval:   Duration(500 * time.Millisecond),
		SurfaceBudget:         Duration(65 * time.Second),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch c.Provider {
	case "", ProviderConsole, ProviderSurface:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.ConsoleTimeout < 0 {
		return fmt.Errorf("consoleTimeout must not be negative")
	}
	if c.SurfacePollInterval < 0 || c.SurfaceBudget < 0 {
		return fmt.Errorf("surface polling settings must not be negative")
	}
	return nil
}

// LoadConfig reads a YAML (or JSON – a YAML subset) configuration from URL,
// which may point at any storage scheme supported by afs (file, s3, gs, …).
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config from %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

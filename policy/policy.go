package policy

import (
	"context"
	"net/url"
	"strings"
)

// Policy represents the domain rules for one automation session.
//
//   - ApprovedDomains skip the approval prompt for navigation entirely.
//   - DeniedDomains block navigation before any prompt is shown.
//   - HighRiskDomains escalate the default risk level of a request.
//
// A nil *Policy means "no domain rules" and is therefore the zero-cost
// default.
type Policy struct {
	ApprovedDomains []string `json:"approved,omitempty" yaml:"approved,omitempty"`
	DeniedDomains   []string `json:"denied,omitempty" yaml:"denied,omitempty"`
	HighRiskDomains []string `json:"highRisk,omitempty" yaml:"highRisk,omitempty"`
}

// DefaultHighRiskDomains lists financial, brokerage and crypto services whose
// pages always warrant elevated scrutiny. Matching is by substring.
var DefaultHighRiskDomains = []string{
	"paypal.com",
	"stripe.com",
	"venmo.com",
	"bank",
	"chase.com",
	"wellsfargo.com",
	"bankofamerica.com",
	"citibank.com",
	"capitalone.com",
	"coinbase.com",
	"binance.com",
	"kraken.com",
	"robinhood.com",
	"fidelity.com",
	"schwab.com",
	"vanguard.com",
	"etrade.com",
	"ameritrade.com",
}

// New returns a Policy with the default high-risk list and the supplied
// approved/denied domains.
func New(approved, denied []string) *Policy {
	return &Policy{
		ApprovedDomains: append([]string(nil), approved...),
		DeniedDomains:   append([]string(nil), denied...),
		HighRiskDomains: append([]string(nil), DefaultHighRiskDomains...),
	}
}

// Matches reports whether domain is a member of the supplied pattern list.
// A pattern is either an exact domain or carries a "*." prefix meaning the
// suffix domain itself or any subdomain of it. Matching is case-normalized.
// An empty domain never matches.
func Matches(domain string, patterns []string) bool {
	if domain == "" {
		return false
	}
	domain = strings.ToLower(domain)
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if strings.HasPrefix(pattern, "*.") {
			if domain == pattern[2:] || strings.HasSuffix(domain, pattern[1:]) {
				return true
			}
		} else if domain == pattern || strings.HasSuffix(domain, "."+pattern) {
			return true
		}
	}
	return false
}

// IsApproved reports whether domain is pre-approved.
func (p *Policy) IsApproved(domain string) bool {
	return p != nil && Matches(domain, p.ApprovedDomains)
}

// IsDenied reports whether domain is always denied.
func (p *Policy) IsDenied(domain string) bool {
	return p != nil && Matches(domain, p.DeniedDomains)
}

// IsHighRisk reports whether domain belongs to a high-risk service. Unlike
// the approved/denied lists this check is by substring so that entries such
// as "bank" cover whole families of domains.
func (p *Policy) IsHighRisk(domain string) bool {
	if p == nil || domain == "" {
		return false
	}
	domain = strings.ToLower(domain)
	for _, risky := range p.HighRiskDomains {
		if strings.Contains(domain, strings.ToLower(risky)) {
			return true
		}
	}
	return false
}

// Domain extracts the hostname from rawURL. It fails soft: any unparsable
// input yields the empty string, which never matches a list.
func Domain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds p in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the *Policy embedded in ctx, or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}

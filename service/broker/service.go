// Package broker orchestrates the approval of sensitive automation actions:
// classification, grant and cache short-circuits, decision-provider dispatch,
// cache write-back, ledger updates and decision enforcement. One broker
// instance serves one automation session; all decision state is owned by the
// instance, never process-wide.
package broker

import (
	"context"
	"log"
	"sync"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/policy"
	"github.com/starks-and-wolves/ai-browser-secure/service/audit"
	"github.com/starks-and-wolves/ai-browser-secure/service/dao"
	"github.com/starks-and-wolves/ai-browser-secure/service/dao/store"
	"github.com/starks-and-wolves/ai-browser-secure/service/ledger"
	"github.com/starks-and-wolves/ai-browser-secure/service/provider"
	"github.com/starks-and-wolves/ai-browser-secure/tracing"
)

// Driver is the external automation collaborator the broker consults for
// ambient page state. Lookups fail soft: an error simply yields no URL.
type Driver interface {
	CurrentPageURL(ctx context.Context) (string, error)
}

// Gating toggles per action kind. The zero value gates nothing; use
// DefaultGating for the recommended posture.
type Gating struct {
	Navigation     bool // require approval for all navigation
	Forms          bool // require approval for every form input
	SensitiveData  bool // require approval when sensitive/PII data is detected
	FileOperations bool // require approval for file uploads
}

// DefaultGating matches the default posture of the automation stack:
// navigation, sensitive data and file operations are gated, plain form input
// is not.
func DefaultGating() Gating {
	return Gating{Navigation: true, SensitiveData: true, FileOperations: true}
}

// cachedDecision is a prior decision stored under its request cache key.
type cachedDecision struct {
	Key      string
	Decision action.Decision
}

func decisionKey(d *cachedDecision) string { return d.Key }

// Broker serializes approval requests so that at most one decision is being
// solicited at a time. The mutex spans the whole request lifecycle; the only
// suspension point inside it is the provider dispatch.
type Broker struct {
	mu sync.Mutex

	gating   Gating
	policy   *policy.Policy
	provider provider.Provider
	driver   Driver
	events   *audit.Queue
	ledger   *ledger.Service

	decisions     dao.Service[string, cachedDecision]
	sessionGrants map[string]struct{}
	domainGrants  map[string]map[action.Type]struct{}

	agent action.Context
}

// Option customises a Broker.
type Option func(*Broker)

// WithPolicy sets the domain policy.
func WithPolicy(p *policy.Policy) Option {
	return func(b *Broker) { b.policy = p }
}

// WithDriver attaches the automation driver used for page URL lookups.
func WithDriver(d Driver) Option {
	return func(b *Broker) { b.driver = d }
}

// WithGating overrides the per-action-kind toggles.
func WithGating(g Gating) Option {
	return func(b *Broker) { b.gating = g }
}

// WithAuditQueue attaches an audit event queue; nil disables publication.
func WithAuditQueue(q *audit.Queue) Option {
	return func(b *Broker) { b.events = q }
}

// WithLedger substitutes the denial ledger, letting several components share
// one instance.
func WithLedger(l *ledger.Service) Option {
	return func(b *Broker) { b.ledger = l }
}

// New creates a Broker dispatching to the supplied decision provider.
func New(p provider.Provider, options ...Option) *Broker {
	b := &Broker{
		gating:        DefaultGating(),
		provider:      p,
		ledger:        ledger.New(),
		decisions:     store.NewMemoryStore[string, cachedDecision](decisionKey),
		sessionGrants: map[string]struct{}{},
		domainGrants:  map[string]map[action.Type]struct{}{},
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Ledger exposes the denial ledger for driver-side queries.
func (b *Broker) Ledger() *ledger.Service { return b.ledger }

// UpdateContext records the ambient agent context pushed by the driver
// before each action attempt. Zero-valued fields leave the previous value in
// place.
func (b *Broker) UpdateContext(ctx action.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agent = ctx.Merge(b.agent)
}

// ShouldSkip reports whether an action should be skipped because a related
// action was denied earlier, judged against the current goal.
func (b *Broker) ShouldSkip(url string, actionType action.Type) bool {
	b.mu.Lock()
	goal := b.agent.Goal
	b.mu.Unlock()
	return b.ledger.ShouldSkip(url, actionType, goal)
}

// RequestApproval resolves one approval request to a decision. Grants and
// cached decisions short-circuit; otherwise the configured provider is asked.
// Meta-decisions register their grant and resolve to Approve, so callers only
// ever observe Approve or Deny.
func (b *Broker) RequestApproval(ctx context.Context, request *action.Request) (action.Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestApproval(ctx, request)
}

func (b *Broker) requestApproval(ctx context.Context, request *action.Request) (action.Decision, error) {
	// Enrich with ambient agent context for any field the caller left unset.
	request.Agent = request.Agent.Merge(b.agent)

	// Session-wide grant.
	if _, ok := b.sessionGrants[request.ActionKey()]; ok {
		return action.Approve, nil
	}

	// Domain-wide grant.
	if domain := policy.Domain(request.URL); domain != "" {
		if granted, ok := b.domainGrants[domain]; ok {
			if _, ok := granted[request.Type]; ok {
				return action.Approve, nil
			}
		}
	}

	// Prior decision for the same (type, url, reasoning).
	cacheKey := request.CacheKey()
	if cached, _ := b.decisions.Load(ctx, cacheKey); cached != nil {
		log.Printf("using cached approval decision for %s: %s", cacheKey, cached.Decision)
		if cached.Decision == action.Deny {
			// Denials are always recorded, even from cache, so downstream
			// skip-logic stays correct after the driver cleared the ledger.
			b.ledger.Record(request)
			return action.Deny, nil
		}
		// A cached meta-decision already registered its grant when first
		// made; resolve it to a plain approval.
		return action.Approve, nil
	}

	b.publish(ctx, audit.TopicRequestCreated, map[string]interface{}{
		"actionType": request.Type,
		"url":        request.URL,
		"risk":       request.Risk.String(),
	})

	// Provider dispatch – the only suspension point.
	dispatchCtx, span := tracing.StartSpan(ctx, "approval.decide")
	span.WithAttributes(map[string]string{
		"approval.action": string(request.Type),
		"approval.url":    request.URL,
		"approval.risk":   request.Risk.String(),
	})
	decision, err := b.provider.Decide(dispatchCtx, request)
	span.SetStatus(err)
	span.End()
	if err != nil {
		// Providers recover their own failures; an error here means the
		// surrounding call was cancelled. Fail safe.
		return action.Deny, err
	}

	_ = b.decisions.Save(ctx, &cachedDecision{Key: cacheKey, Decision: decision})

	b.publish(ctx, audit.TopicDecisionCreated, map[string]interface{}{
		"actionType": request.Type,
		"url":        request.URL,
		"decision":   decision,
	})

	if decision == action.Deny {
		b.ledger.Record(request)
		return action.Deny, nil
	}

	switch decision {
	case action.ApproveAllSession:
		b.sessionGrants[request.ActionKey()] = struct{}{}
		return action.Approve, nil
	case action.ApproveAllDomain:
		// Requires a resolvable URL; without one the meta-decision degrades
		// to a single-use approval.
		if domain := policy.Domain(request.URL); domain != "" {
			granted, ok := b.domainGrants[domain]
			if !ok {
				granted = map[action.Type]struct{}{}
				b.domainGrants[domain] = granted
			}
			granted[request.Type] = struct{}{}
		}
		return action.Approve, nil
	}
	return decision, nil
}

func (b *Broker) publish(ctx context.Context, topic string, data map[string]interface{}) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, topic, data); err != nil {
		log.Printf("failed to publish %s audit event: %v", topic, err)
	}
}

// currentPageURL asks the driver for the active page URL, failing soft.
func (b *Broker) currentPageURL(ctx context.Context) string {
	if b.driver == nil {
		return ""
	}
	url, err := b.driver.CurrentPageURL(ctx)
	if err != nil {
		return ""
	}
	return url
}

// denied converts a deny decision into the structured error surfaced to the
// driver, attaching the current replan count for the goal.
func (b *Broker) denied(request *action.Request) *PermissionDeniedError {
	goalKey := request.Agent.Goal
	if goalKey == "" {
		goalKey = request.URL
	}
	return &PermissionDeniedError{
		Action:      request.Type,
		URL:         request.URL,
		Goal:        request.Agent.Goal,
		Reasoning:   request.Agent.Reasoning,
		IsCritical:  request.IsCritical,
		ReplanCount: b.ledger.ReplanCount(goalKey),
	}
}

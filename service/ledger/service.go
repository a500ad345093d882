// Package ledger records denied actions and replan bookkeeping for one
// automation session. The denial list lets the driver prune steps that depend
// on a denied one without prompting again; the replan counters feed the
// recovery hints carried by denial errors.
package ledger

import (
	"sync"

	"github.com/starks-and-wolves/ai-browser-secure/internal/clock"
	"github.com/starks-and-wolves/ai-browser-secure/model/action"
)

// Service is safe for concurrent use. Records are append-only snapshots;
// Clear is the only way to discard them and is called by the driver after a
// successful re-plan.
type Service struct {
	mu      sync.Mutex
	denied  []action.DeniedAction
	replans map[string]int
}

// New returns an empty ledger.
func New() *Service {
	return &Service{replans: make(map[string]int)}
}

// Record appends a denial snapshot built from the request. A denial from a
// cached decision is re-recorded on every repeat so that downstream
// skip-logic stays correct even after the driver cleared the ledger.
func (s *Service) Record(request *action.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = append(s.denied, action.DeniedAction{
		Type:        request.Type,
		URL:         request.URL,
		Description: request.Description,
		Goal:        request.Agent.Goal,
		Reasoning:   request.Agent.Reasoning,
		Timestamp:   clock.Now(),
	})
}

// List returns a copy of the denial records; callers never observe later
// mutation.
func (s *Service) List() []action.DeniedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]action.DeniedAction, len(s.denied))
	copy(out, s.denied)
	return out
}

// Clear discards all denial records.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = nil
}

// ShouldSkip reports whether an action should be skipped because a related
// action was already denied: either a prior denial shares the URL, or shares
// both the action type and the current goal.
func (s *Service) ShouldSkip(url string, actionType action.Type, currentGoal string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, denied := range s.denied {
		if url != "" && denied.URL == url {
			return true
		}
		if actionType != "" && denied.Type == actionType &&
			currentGoal != "" && denied.Goal == currentGoal {
			return true
		}
	}
	return false
}

// ReplanCount returns how many re-plans were attempted for goalKey.
func (s *Service) ReplanCount(goalKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replans[goalKey]
}

// IncrementReplan bumps and returns the re-plan count for goalKey. The driver
// calls it after each re-plan attempt that followed a denial.
func (s *Service) IncrementReplan(goalKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replans[goalKey]++
	return s.replans[goalKey]
}

// ResetReplan clears the counter for goalKey.
func (s *Service) ResetReplan(goalKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replans, goalKey)
}

// ResetAllReplans clears every counter.
func (s *Service) ResetAllReplans() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replans = make(map[string]int)
}

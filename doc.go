// Package guard provides an approval broker for browser-automation agents.
//
// The broker intercepts potentially dangerous actions – navigation, form
// input, sensitive-data entry, file transfer, risky clicks, keyboard
// shortcuts – before they execute, classifies their risk and obtains an
// authorization decision from a human or policy source, with deduplication,
// scoped bypass grants and failure context propagated back to the calling
// automation driver for recovery.
//
// The engine comes with pluggable service layers:
//
//   - classifier – pattern-table classification of raw action signals
//   - policy     – approved/denied/high-risk domain rules
//   - broker     – serialized decision orchestration, caching and grants
//   - ledger     – denial records and replan bookkeeping
//   - provider   – console and interactive-surface decision sources
//
// Guard is designed to be embedded in host applications. End-users typically
// interact via the high-level Service façade exposed by the root package:
//
//	svc := guard.New(guard.WithDriver(driver))
//	svc.UpdateAgentContext(action.Context{Goal: "log in", Step: 3})
//	if err := svc.CheckNavigation(ctx, "https://example.com", false); err != nil {
//	    var denied *broker.PermissionDeniedError
//	    if errors.As(err, &denied) && denied.ShouldReplan() {
//	        // ask the planner for an alternative
//	    }
//	}
package guard

// Package clock isolates time acquisition so that ledger timestamps and
// provider deadlines can be made deterministic in tests.
package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

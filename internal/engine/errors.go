// Package engine wires the pipeline: cache lookup, detection, fixing with
// convergence checking, backup/diff, and the parallel file scheduler.
package engine

import (
	"fmt"
	"strings"
)

// ConvergenceError reports that a rule's fix did not stabilize within the
// bounded pass count. The file is restored from its pre-fix snapshot.
type ConvergenceError struct {
	RuleIDs []string
	Passes  int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("fix did not converge after %d passes (rules: %s)",
		e.Passes, strings.Join(e.RuleIDs, ", "))
}

// CacheInconsistencyError reports a cached entry whose recorded hash does
// not match its key. The entry is evicted and the content reparsed.
type CacheInconsistencyError struct {
	Key      string
	Recorded string
}

func (e *CacheInconsistencyError) Error() string {
	return fmt.Sprintf("cache entry hash mismatch: key %s, recorded %s", e.Key, e.Recorded)
}

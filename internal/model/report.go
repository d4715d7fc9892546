package model

// FileReport holds everything a run produced for one file. Per-file failures
// are carried in Err fields rather than propagated, so one bad file never
// aborts the batch.
type FileReport struct {
	Path        Path         `yaml:"path"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty"`
	Fixes       []FixResult  `yaml:"fixes,omitempty"`

	// Skipped is true when the run was cancelled before this file was
	// processed; nothing on disk was touched.
	Skipped bool `yaml:"skipped,omitempty"`

	// Err is the file-scoped failure, e.g. a parse error, rendered as a
	// string so reports stay serializable.
	Err string `yaml:"error,omitempty"`
}

// Session aggregates counters across one invocation. It is a transient
// accumulator and is never persisted.
type Session struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	Diagnostics    int
	FixesApplied   int
}

// Observe folds one file report into the session counters.
func (s *Session) Observe(report FileReport) {
	switch {
	case report.Skipped:
		s.FilesSkipped++
	case report.Err != "":
		s.FilesFailed++
	default:
		s.FilesProcessed++
	}

	s.Diagnostics += len(report.Diagnostics)

	for _, fix := range report.Fixes {
		if fix.Applied {
			s.FixesApplied++
		}
	}
}

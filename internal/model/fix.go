package model

// Mode selects what a run does with the files it scans.
type Mode int

const (
	// ModeAnalyze reports diagnostics without touching any file.
	ModeAnalyze Mode = iota
	// ModeFix applies auto-fixable rules and rewrites files in place.
	ModeFix
)

func (m Mode) String() string {
	if m == ModeFix {
		return "fix"
	}

	return "analyze"
}

// TextEdit is a single replacement produced by a fixer. Offsets address the
// text generation the triggering diagnostic was computed from.
type TextEdit struct {
	StartOffset int
	EndOffset   int
	Replacement string
}

// FixResult describes the outcome of one attempted fix.
type FixResult struct {
	RuleID      string `yaml:"rule_id"`
	Path        Path   `yaml:"path"`
	Applied     bool   `yaml:"applied"`
	Span        Span   `yaml:"span"`
	Replacement string `yaml:"replacement"`
	Diff        string `yaml:"diff,omitempty"`

	// FailureReason is set when Applied is false for a reason other than
	// dry-run, e.g. a convergence failure.
	FailureReason string `yaml:"failure_reason,omitempty"`
}

// Options is the configuration bundle threaded explicitly through the engine.
// There is no process-global state; every call boundary receives this value.
type Options struct {
	Parallel         int
	DryRun           bool
	UseCache         bool
	CacheEntries     int
	Categories       []Category // empty means all
	Exclude          []string
	BackupDir        Path
	MaxFixPasses     int
	NestingThreshold int
	EntropyThreshold float64
	MinSecretLength  int
}

// DefaultOptions returns the options used when no flag or config overrides
// them.
func DefaultOptions() Options {
	return Options{
		Parallel:         1,
		UseCache:         true,
		CacheEntries:     256,
		BackupDir:        ".psfix-backups",
		MaxFixPasses:     3,
		NestingThreshold: 8,
		EntropyThreshold: 4.5,
		MinSecretLength:  20,
	}
}

// WantsCategory reports whether the run includes rules of the given category.
func (o Options) WantsCategory(c Category) bool {
	if len(o.Categories) == 0 {
		return true
	}

	for _, want := range o.Categories {
		if want == c {
			return true
		}
	}

	return false
}

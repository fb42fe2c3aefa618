package copier

import (
	"regexp"

	"github.com/NDilbone/Backupper/pkg/plog"
)

// ExclusionList holds the compiled exclusion patterns for a run.
// A pattern must match the entry's entire path to exclude it, so partial
// matches never skip an entry by accident.
type ExclusionList struct {
	patterns []*regexp.Regexp
}

// NewExclusionList compiles the given expressions with whole-string
// semantics. Invalid expressions are dropped with a warning rather than
// aborting the run.
func NewExclusionList(exprs []string) *ExclusionList {
	list := &ExclusionList{}
	for _, expr := range exprs {
		re, err := regexp.Compile(`^(?:` + expr + `)$`)
		if err != nil {
			plog.Warn("Ignoring invalid exclusion pattern", "pattern", expr, "error", err)
			continue
		}
		list.patterns = append(list.patterns, re)
	}
	return list
}

// Matches reports whether path is excluded. Matching is case sensitive and
// applies to the full path, not just the base name.
func (e *ExclusionList) Matches(path string) bool {
	for _, re := range e.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Len returns the number of active patterns.
func (e *ExclusionList) Len() int {
	return len(e.patterns)
}

package reconcile

import (
	"fmt"
	"regexp"
)

// Filter is an include/exclude gate for entity names. A nil pattern lets
// every name through that check.
type Filter struct {
	Include *regexp.Regexp
	Exclude *regexp.Regexp

	include string
	exclude string
}

// NewFilter compiles the include and exclude patterns. Empty patterns are unset.
func NewFilter(include, exclude string) (Filter, error) {
	f := Filter{include: include, exclude: exclude}
	var err error
	if include != "" {
		if f.Include, err = anchored(include); err != nil {
			return Filter{}, fmt.Errorf("invalid include filter %q: %w", include, err)
		}
	}
	if exclude != "" {
		if f.Exclude, err = anchored(exclude); err != nil {
			return Filter{}, fmt.Errorf("invalid exclude filter %q: %w", exclude, err)
		}
	}
	return f, nil
}

// Check returns nil when name passes the filter, otherwise an error wrapping
// ErrFiltered that names the pattern responsible.
func (f Filter) Check(name string) error {
	if f.Include != nil && !f.Include.MatchString(name) {
		return fmt.Errorf("%w: did not match include filter %q", ErrFiltered, f.include)
	}
	if f.Exclude != nil && f.Exclude.MatchString(name) {
		return fmt.Errorf("%w: matched exclude filter %q", ErrFiltered, f.exclude)
	}
	return nil
}

// Passes reports whether name passes the filter.
func (f Filter) Passes(name string) bool {
	return f.Check(name) == nil
}

package scrape

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultAgePattern matches the labeled age field on a profile page. The
// pattern is case-insensitive and tolerates newlines between the label and
// the value.
const DefaultAgePattern = `(?is)age:\s*(\d+)`

// AgeExtractor pulls the numeric age out of a raw document. The compiled
// pattern is fixed at construction; there is no package-level state.
type AgeExtractor struct {
	pattern *regexp.Regexp
}

// NewAgeExtractor compiles the given pattern, which must capture the numeric
// value in its first group. An empty pattern selects DefaultAgePattern.
func NewAgeExtractor(pattern string) (*AgeExtractor, error) {
	if pattern == "" {
		pattern = DefaultAgePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile age pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("age pattern %q has no capture group", pattern)
	}
	return &AgeExtractor{pattern: re}, nil
}

// Extract returns the first matched age and true, or false when the document
// has no syntactically valid age field. Range validation is the caller's
// concern.
func (e *AgeExtractor) Extract(html []byte) (int, bool) {
	m := e.pattern.FindSubmatch(html)
	if m == nil {
		return 0, false
	}
	age, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return age, true
}

// Package validate implements the per-value row predicates used to filter
// rows during cleaning.
//
// Two interchangeable strategies exist: a well-formed-URL check and a
// user-supplied pattern match. Both are pure functions of their input, hold
// no state after compilation, and are safe for concurrent use from any
// number of pipelines.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind selects the validation strategy for a Spec.
type Kind uint8

const (
	// KindURL accepts values that parse as an absolute URL with a scheme and
	// an authority component.
	KindURL Kind = iota
	// KindPattern accepts values whose prefix matches a compiled pattern.
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindPattern:
		return "pattern"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Spec is a compiled validation strategy. The zero value is KindURL.
//
// A KindPattern Spec always carries a non-nil compiled expression; specs are
// only constructed through URL and Compile, so a malformed pattern can never
// reach the hot path.
type Spec struct {
	kind Kind
	re   *regexp.Regexp
}

// URL returns the well-formed-URL Spec.
func URL() Spec { return Spec{kind: KindURL} }

// Compile builds a KindPattern Spec from pattern. The match is anchored at
// the start of the value (prefix match); Compile wraps the whole pattern in
// an anchored group so a top-level alternation cannot match mid-string. A
// redundant leading ^ inside the group is harmless.
//
// An empty pattern or a pattern that fails to compile is a configuration
// error and must be surfaced before any task runs.
func Compile(pattern string) (Spec, error) {
	if strings.TrimSpace(pattern) == "" {
		return Spec{}, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return Spec{}, fmt.Errorf("compile pattern: %w", err)
	}
	return Spec{kind: KindPattern, re: re}, nil
}

// Kind returns the strategy of the spec.
func (s Spec) Kind() Kind { return s.kind }

// Valid reports whether value passes the spec.
//
// Empty and all-whitespace values are invalid under every strategy; this is
// the shared precondition both variants rely on. Malformed input is simply
// invalid, never an error.
func (s Spec) Valid(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	if s.kind == KindPattern {
		return s.re.MatchString(v)
	}
	return wellFormedURL(v)
}

// wellFormedURL checks that v parses as an absolute URL with both a scheme
// and an authority. Relative paths, bare strings, and malformed
// percent-encoding are all rejected by url.Parse or by the emptiness checks.
func wellFormedURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

package script

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldTagKind enumerates the declarative tags a column can carry.
type FieldTagKind string

const (
	TagNoNulls     FieldTagKind = "NO_NULLS"
	TagUnique      FieldTagKind = "UNIQUE"
	TagUniqueBy    FieldTagKind = "UNIQUE_BY"
	TagSet         FieldTagKind = "SET"
	TagIncremental FieldTagKind = "INCREMENTAL"
)

// FieldTag is one parsed "#TAG" annotation on a column.
type FieldTag struct {
	Kind FieldTagKind
	// By holds the grouping column for #UNIQUE_BY(col).
	By string
	// Set holds the allowed values for #SET{v1,v2,...}.
	Set []string
}

// Field is a column declared by a script's SELECT list, with whatever tags
// preceded it as trailing "--" comments.
type Field struct {
	Name string
	Tags []FieldTag
}

// HasTag reports whether the field carries a tag of the given kind.
func (f Field) HasTag(kind FieldTagKind) bool {
	for _, t := range f.Tags {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

var tagPattern = regexp.MustCompile(`^#(NO_NULLS|UNIQUE_BY\(([^)]+)\)|UNIQUE|SET\{([^}]*)\}|INCREMENTAL)$`)

// ParseFieldTag parses a single "#..." token into a FieldTag. It returns
// false if text isn't a recognized tag.
func ParseFieldTag(text string) (FieldTag, bool) {
	m := tagPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return FieldTag{}, false
	}
	switch {
	case m[1] == string(TagNoNulls):
		return FieldTag{Kind: TagNoNulls}, true
	case m[1] == string(TagUnique):
		return FieldTag{Kind: TagUnique}, true
	case m[1] == string(TagIncremental):
		return FieldTag{Kind: TagIncremental}, true
	case strings.HasPrefix(m[1], "UNIQUE_BY"):
		return FieldTag{Kind: TagUniqueBy, By: strings.TrimSpace(m[2])}, true
	case strings.HasPrefix(m[1], "SET"):
		var elements []string
		for _, e := range strings.Split(m[3], ",") {
			if e = strings.TrimSpace(e); e != "" {
				elements = append(elements, e)
			}
		}
		return FieldTag{Kind: TagSet, Set: elements}, true
	}
	return FieldTag{}, false
}

// Label renders a tag the way it should appear in a synthetic test's name,
// e.g. "UNIQUE" or "UNIQUE_BY_account_id".
func (t FieldTag) Label() string {
	switch t.Kind {
	case TagUniqueBy:
		return fmt.Sprintf("UNIQUE_BY_%s", t.By)
	default:
		return string(t.Kind)
	}
}

// Package tableref defines the canonical, warehouse-agnostic identity of a
// table: a (project?, dataset, schema path, name) tuple.
package tableref

import (
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// AuditSuffix is appended to a table's name to form its WAP side-table name.
const AuditSuffix = "___audit"

// TestsSchema is the reserved first schema segment that marks a script as an
// assertion test rather than a materialized table.
const TestsSchema = "tests"

// TableRef is an immutable reference to a table. Its Schema slice makes it
// non-comparable, so it cannot be a map key itself: use Key() for map keys
// and Equal() for comparison.
type TableRef struct {
	Project string // optional; empty string means "unset"
	Dataset string
	Schema  []string // ordered path segments, possibly empty
	Name    string
}

// New builds a TableRef with no project set.
func New(dataset string, schema []string, name string) TableRef {
	return TableRef{Dataset: dataset, Schema: append([]string(nil), schema...), Name: name}
}

// String renders the canonical, dot-joined identity of the ref. This is not a
// physical identifier — dialects decide how schema+name map onto a real
// table name.
func (t TableRef) String() string {
	parts := make([]string, 0, len(t.Schema)+3)
	if t.Project != "" {
		parts = append(parts, t.Project)
	}
	if t.Dataset != "" {
		parts = append(parts, t.Dataset)
	}
	parts = append(parts, t.Schema...)
	parts = append(parts, t.Name)
	return strings.Join(parts, ".")
}

// ReplaceDataset returns a copy of t with Dataset swapped out.
func (t TableRef) ReplaceDataset(dataset string) TableRef {
	t.Schema = append([]string(nil), t.Schema...)
	t.Dataset = dataset
	return t
}

// ReplaceProject returns a copy of t with Project swapped out. Pass "" to
// unset it.
func (t TableRef) ReplaceProject(project string) TableRef {
	t.Schema = append([]string(nil), t.Schema...)
	t.Project = project
	return t
}

// AddAuditSuffix appends the audit suffix to Name.
func (t TableRef) AddAuditSuffix() TableRef {
	t.Schema = append([]string(nil), t.Schema...)
	t.Name = t.Name + AuditSuffix
	return t
}

// RemoveAuditSuffix strips a trailing audit suffix from Name, if present.
// It's the identity function on refs that aren't audit tables.
func (t TableRef) RemoveAuditSuffix() TableRef {
	t.Schema = append([]string(nil), t.Schema...)
	t.Name = strings.TrimSuffix(t.Name, AuditSuffix)
	return t
}

// IsAuditTable reports whether Name ends in the audit suffix.
func (t TableRef) IsAuditTable() bool {
	return strings.HasSuffix(t.Name, AuditSuffix)
}

// IsTest reports whether this ref names an assertion test, i.e. its first
// schema segment is "tests".
func (t TableRef) IsTest() bool {
	return len(t.Schema) > 0 && t.Schema[0] == TestsSchema
}

// Equal reports whether t and other refer to the same table.
func (t TableRef) Equal(other TableRef) bool {
	if t.Project != other.Project || t.Dataset != other.Dataset || t.Name != other.Name {
		return false
	}
	if len(t.Schema) != len(other.Schema) {
		return false
	}
	for i := range t.Schema {
		if t.Schema[i] != other.Schema[i] {
			return false
		}
	}
	return true
}

// Key returns a comparable value suitable for use as a map key. Go slices
// aren't comparable, so maps keyed by TableRef itself would fail to compile;
// callers that need map keys should key by Key() instead.
func (t TableRef) Key() string {
	return t.Project + "\x00" + t.Dataset + "\x00" + strings.Join(t.Schema, "\x00") + "\x00" + t.Name
}

// ContentHash returns a stable hash of the ref's contents. Used to build
// collision-free internal identifiers for synthetic nodes (e.g. assertion
// tests) derived from a TableRef plus some extra context.
func (t TableRef) ContentHash() (uint64, error) {
	return hashstructure.Hash(t, hashstructure.FormatV2, nil)
}

// FromPath builds the TableRef for a script file found at relativePath (its
// path within the scripts directory whose basename is dataset). The path's
// leading segments become the schema; the final segment (minus extension)
// becomes the name.
func FromPath(dataset string, relativePathParts []string) TableRef {
	parts := make([]string, 0, len(relativePathParts))
	for _, p := range relativePathParts {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return TableRef{Dataset: dataset}
	}
	schema := parts[:len(parts)-1]
	filename := parts[len(parts)-1]
	name := filename
	if i := strings.Index(filename, "."); i >= 0 {
		name = filename[:i]
	}
	return New(dataset, schema, name)
}

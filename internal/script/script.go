// Package script models a parsed script: its target table, its SQL dialect,
// its declared fields, and its dependency set. Scripts are treated as
// immutable values; rewrite passes return new Script values rather than
// mutating in place.
package script

import (
	"fmt"
	"strings"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// Kind tags the variant of a Script. The spec calls for "a sum type with at
// least variant SQLScript"; Kind is how we keep that door open without
// needing a second concrete Go type until one is actually needed.
type Kind int

const (
	// KindSQL is the only variant implemented: a script backed by raw SQL.
	KindSQL Kind = iota
)

// Script is a parsed script file (or a synthetic assertion test derived from
// a field tag). Dependencies are recomputed on demand rather than cached, so
// that a Script produced by a rewrite pass never carries a stale dependency
// set for its new Code.
type Script struct {
	Kind     Kind
	TableRef tableref.TableRef
	Code     string
	Dialect  SQLDialect
	Fields   []Field
}

// IsTest reports whether this script is an assertion test, i.e. its target
// table's first schema segment is "tests".
func (s Script) IsTest() bool {
	return s.TableRef.IsTest()
}

// WithCode returns a copy of s with Code replaced.
func (s Script) WithCode(code string) Script {
	s.Code = code
	return s
}

// WithTableRef returns a copy of s with TableRef replaced.
func (s Script) WithTableRef(ref tableref.TableRef) Script {
	s.TableRef = ref
	return s
}

// Dependencies returns the set of table refs s.Code references, keyed by
// TableRef.Key() to stay comparable. External dependencies (tables with no
// backing script) are included; callers filter those out against the DAG's
// known node set.
func (s Script) Dependencies() map[string]tableref.TableRef {
	deps := map[string]tableref.TableRef{}
	for _, ident := range extractDottedIdentifiers(s.Code) {
		ref, ok := s.Dialect.ParseTableRef(ident)
		if !ok {
			continue
		}
		deps[ref.Key()] = ref
	}
	return deps
}

// Field returns the field with the given name, if declared.
func (s Script) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasTaggedField reports whether any field carries a tag of the given kind,
// and returns the first such field.
func (s Script) HasTaggedField(kind FieldTagKind) (Field, bool) {
	for _, f := range s.Fields {
		if f.HasTag(kind) {
			return f, true
		}
	}
	return Field{}, false
}

// String renders the script's identity for logging.
func (s Script) String() string {
	return fmt.Sprintf("%s (%s)", s.TableRef, s.Dialect.Name())
}

// New constructs a Script, extracting its fields from the SELECT list.
func New(ref tableref.TableRef, code string, dialect SQLDialect) Script {
	code = strings.TrimRight(strings.TrimSpace(code), ";")
	return Script{
		Kind:     KindSQL,
		TableRef: ref,
		Code:     code,
		Dialect:  dialect,
		Fields:   ExtractFields(code),
	}
}

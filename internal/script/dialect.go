package script

import "github.com/carbonfact/lea-sub000/internal/tableref"

// SQLDialect is the narrow, warehouse-specific abstraction a Script carries
// by value. It owns everything about turning a TableRef into (and out of) a
// physical SQL identifier, and the text-rewriting rules for incremental
// filtering. Keeping this off of Script itself (rather than a back-pointer to
// a client) avoids the ownership tangle the original Python implementation
// had between views and clients.
type SQLDialect interface {
	Name() string

	// ParseTableRef recovers a TableRef from a dot-qualified identifier as it
	// appears in script source code.
	ParseTableRef(identifier string) (tableref.TableRef, bool)

	// FormatTableRef renders ref the way this dialect writes it in SQL.
	FormatTableRef(ref tableref.TableRef) string

	// AddDependencyFilters rewrites code (a script whose own target is
	// incremental) so that every dependency in dependenciesToFilter is scanned
	// under `WHERE incrementalField IN (values)`, and the whole output is
	// wrapped with the same filter.
	AddDependencyFilters(code string, incrementalField string, values []string, dependenciesToFilter []tableref.TableRef) string

	// HandleIncrementalDependencies rewrites code (a non-incremental script)
	// so that references to incrementalDeps (mapping base ref -> audit ref)
	// are replaced by a UNION ALL of the audit table (filtered to the
	// incremental values) and the production table (filtered to their
	// complement).
	HandleIncrementalDependencies(code string, incrementalField string, values []string, incrementalDeps map[string]IncrementalDependency) string
}

// IncrementalDependency pairs a base table ref with its audit-side twin for
// the UNION ALL stitching pass.
type IncrementalDependency struct {
	Base  tableref.TableRef
	Audit tableref.TableRef
}

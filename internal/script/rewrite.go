package script

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// addDependencyFilters is the dialect-agnostic implementation shared by
// BigQueryDialect and DuckDBDialect: narrow every dependency scan down to the
// rows that matter for the values being (re)computed, then wrap the whole
// script in the same filter so its own output only covers those values.
func addDependencyFilters(d SQLDialect, code string, incrementalField string, values []string, dependenciesToFilter []tableref.TableRef) string {
	literal := valuesLiteral(values)
	for _, dep := range dependenciesToFilter {
		identifier := d.FormatTableRef(dep)
		filtered := fmt.Sprintf("(SELECT * FROM %s WHERE %s IN (%s))", identifier, incrementalField, literal)
		code = replaceIdentifier(code, identifier, filtered)
	}
	return fmt.Sprintf("SELECT *\nFROM (\n%s\n)\nWHERE %s IN (%s)", code, incrementalField, literal)
}

// handleIncrementalDependencies is the dialect-agnostic implementation shared
// by BigQueryDialect and DuckDBDialect: a non-incremental script that reads
// from an incremental dependency must see that dependency's full contents,
// so each reference is replaced by a union of the dependency's freshly
// written audit rows (for the values in play) and its existing production
// rows (everything else).
func handleIncrementalDependencies(d SQLDialect, code string, incrementalField string, values []string, incrementalDeps map[string]IncrementalDependency) string {
	literal := valuesLiteral(values)
	for _, dep := range incrementalDeps {
		baseIdent := d.FormatTableRef(dep.Base)
		auditIdent := d.FormatTableRef(dep.Audit)
		union := fmt.Sprintf(
			"(\nSELECT * FROM %s WHERE %s IN (%s)\nUNION ALL\nSELECT * FROM %s WHERE %s NOT IN (%s)\n)",
			auditIdent, incrementalField, literal,
			baseIdent, incrementalField, literal,
		)
		code = replaceIdentifier(code, baseIdent, union)
	}
	return code
}

func valuesLiteral(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteSetValue(v)
	}
	return strings.Join(quoted, ", ")
}

// replaceIdentifier substitutes every occurrence of identifier in code with
// replacement, requiring a word boundary after identifier so e.g.
// "core.users" doesn't also match inside "core.users_v2". The start is not
// boundary-checked: a longer dotted name ending in identifier (such as
// "analytics.core.users") has that tail replaced too.
func replaceIdentifier(code, identifier, replacement string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(identifier) + `\b`)
	return pattern.ReplaceAllLiteralString(code, replacement)
}

package script

import (
	"fmt"
	"strings"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// BigQueryDialect addresses tables the way BigQuery does: a dataset plus a
// single flat table name, with the logical schema path folded into that name
// by joining its segments (and the table's own name) with "__". BigQuery has
// no notion of nested schemas, so this is the only place that distinction
// can live.
type BigQueryDialect struct {
	// DefaultProject is assumed when an identifier in source code omits it.
	DefaultProject string
}

func NewBigQueryDialect(defaultProject string) BigQueryDialect {
	return BigQueryDialect{DefaultProject: defaultProject}
}

func (d BigQueryDialect) Name() string { return "bigquery" }

func (d BigQueryDialect) FormatTableRef(ref tableref.TableRef) string {
	name := flattenSchema(ref.Schema, ref.Name)
	project := ref.Project
	if project == "" {
		project = d.DefaultProject
	}
	if project == "" {
		return fmt.Sprintf("`%s.%s`", ref.Dataset, name)
	}
	return fmt.Sprintf("`%s.%s.%s`", project, ref.Dataset, name)
}

func (d BigQueryDialect) ParseTableRef(identifier string) (tableref.TableRef, bool) {
	identifier = strings.Trim(identifier, "`")
	parts := strings.Split(identifier, ".")

	var project, dataset, flat string
	switch len(parts) {
	case 2:
		dataset, flat = parts[0], parts[1]
		project = d.DefaultProject
	case 3:
		project, dataset, flat = parts[0], parts[1], parts[2]
	default:
		return tableref.TableRef{}, false
	}

	schema, name := unflattenSchema(flat)
	ref := tableref.New(dataset, schema, name)
	if project != "" {
		ref = ref.ReplaceProject(project)
	}
	return ref, true
}

func (d BigQueryDialect) AddDependencyFilters(code string, incrementalField string, values []string, dependenciesToFilter []tableref.TableRef) string {
	return addDependencyFilters(d, code, incrementalField, values, dependenciesToFilter)
}

func (d BigQueryDialect) HandleIncrementalDependencies(code string, incrementalField string, values []string, incrementalDeps map[string]IncrementalDependency) string {
	return handleIncrementalDependencies(d, code, incrementalField, values, incrementalDeps)
}

// flattenSchema folds a schema path and table name into BigQuery's single
// flat table-name segment, e.g. (["core", "users"], "fact") -> "core__users__fact".
func flattenSchema(schema []string, name string) string {
	parts := append(append([]string{}, schema...), name)
	return strings.Join(parts, "__")
}

// unflattenSchema is the inverse of flattenSchema: the last "__"-separated
// segment is the table name, everything before it is the schema path.
func unflattenSchema(flat string) ([]string, string) {
	parts := strings.Split(flat, "__")
	if len(parts) == 1 {
		return nil, parts[0]
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}

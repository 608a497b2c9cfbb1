package session

import (
	"regexp"

	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// addContextToScript applies the session's four script-rewrite passes to s,
// in order:
//
//  1. Every in-DAG dependency reference is repointed at the write dataset,
//     and additionally given the audit suffix if that dependency is itself
//     selected this run (it will have a freshly written audit table) or
//     already has one sitting in the write dataset from an earlier partial
//     run. A dependency that is neither keeps reading its production table
//     (under the write dataset), since nothing materialized it this run.
//  2. If s itself is incremental and the run has incremental values in play,
//     every dependency scan (and the script's own output) is narrowed to
//     those values.
//  3. Dependencies that are incremental but aren't being rebuilt this run
//     are stitched from a union of their audit rows (for the run's values)
//     and their existing production rows (everything else), so s still sees
//     the dependency's full contents.
//  4. s is retargeted to write into the write dataset, with the audit
//     suffix, rather than its nominal production table.
func (sess *Session) addContextToScript(s script.Script, deps map[string]tableref.TableRef) script.Script {
	code := s.Code
	rewritten := make(map[string]tableref.TableRef, len(deps))
	for key, dep := range deps {
		target := dep
		if sess.dag.IsSelected(key) || sess.existingAuditTables[key] {
			target = target.AddAuditSuffix()
		}
		target = target.ReplaceDataset(sess.writeDataset)
		code = rewriteDependencyReference(code, dep, target)
		rewritten[key] = target
	}
	s = s.WithCode(code)

	if sess.incrementalField != "" && len(sess.incrementalValues) > 0 {
		if f, ok := s.Field(sess.incrementalField); ok && f.HasTag(script.TagIncremental) {
			var toFilter []tableref.TableRef
			incrementalDeps := map[string]script.IncrementalDependency{}
			for key, target := range rewritten {
				switch {
				case sess.incrementalDatasets[key] && target.IsAuditTable():
					incrementalDeps[key] = script.IncrementalDependency{Base: target.RemoveAuditSuffix(), Audit: target}
				case !sess.incrementalDatasets[key]:
					toFilter = append(toFilter, target)
				}
			}
			s = s.WithCode(s.Dialect.AddDependencyFilters(s.Code, sess.incrementalField, sess.incrementalValues, toFilter))
			if len(incrementalDeps) > 0 {
				s = s.WithCode(s.Dialect.HandleIncrementalDependencies(s.Code, sess.incrementalField, sess.incrementalValues, incrementalDeps))
			}
		} else {
			// s is not itself incremental but may read from one that is:
			// stitch those in so it sees the full table.
			incrementalDeps := map[string]script.IncrementalDependency{}
			for key, target := range rewritten {
				if sess.incrementalDatasets[key] && target.IsAuditTable() {
					incrementalDeps[key] = script.IncrementalDependency{Base: target.RemoveAuditSuffix(), Audit: target}
				}
			}
			if len(incrementalDeps) > 0 {
				s = s.WithCode(s.Dialect.HandleIncrementalDependencies(s.Code, sess.incrementalField, sess.incrementalValues, incrementalDeps))
			}
		}
	}

	target := s.TableRef.ReplaceDataset(sess.writeDataset).AddAuditSuffix()
	return s.WithTableRef(target)
}

// rewriteDependencyReference substitutes every occurrence of from's
// identifier (both its full dataset-qualified form and, where unambiguous,
// its dataset-less form) with to's identifier. Matching both forms mirrors
// scripts that reference a same-dataset dependency without repeating the
// dataset name.
func rewriteDependencyReference(code string, from, to tableref.TableRef) string {
	full := from.String()
	replacement := to.String()
	code = replaceWordBoundary(code, full, replacement)

	if from.Dataset != "" {
		withoutDataset := stripDataset(from)
		if withoutDataset != full {
			code = replaceWordBoundary(code, withoutDataset, replacement)
		}
	}
	return code
}

func stripDataset(ref tableref.TableRef) string {
	bare := ref.ReplaceDataset("")
	return bare.String()
}

func replaceWordBoundary(code, identifier, replacement string) string {
	if identifier == "" {
		return code
	}
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(identifier) + `\b`)
	return pattern.ReplaceAllLiteralString(code, replacement)
}

package dag

import "strings"

// resolveSelector parses a selector expression into the set of node keys it
// names. The grammar (spec.md):
//
//	*             everything
//	a.b.c         exactly the script at schema [a, b], name c
//	a.b.c+        that script plus everything that depends on it
//	+a.b.c        that script plus everything it depends on
//	+a.b.c+       both directions
//	a/            every script whose schema's first segment is "a"
//	a/b/          every script whose schema starts with [a, b]
//	+a/, a/+, +a/+  schema-prefix match combined with ancestor/descendant
//	                expansion of every script the prefix matches
//
// Multiple terms are combined with ",", and the result is their union.
func resolveSelector(d *DAG, expr string) (map[string]bool, error) {
	result := map[string]bool{}
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		for key := range resolveTerm(d, term) {
			result[key] = true
		}
	}
	return result, nil
}

func resolveTerm(d *DAG, term string) map[string]bool {
	if term == "*" {
		out := map[string]bool{}
		for key := range d.nodes {
			out[key] = true
		}
		return out
	}

	// Strip the ancestor/descendant markers before looking at the residue,
	// so "+a/", "a/+" and "+a/+" expand the schema-prefix match rather than
	// being checked for a trailing "/" before the "+" is even removed.
	includeAncestors := strings.HasPrefix(term, "+")
	if includeAncestors {
		term = strings.TrimPrefix(term, "+")
	}
	includeDescendants := strings.HasSuffix(term, "+")
	if includeDescendants {
		term = strings.TrimSuffix(term, "+")
	}

	var base map[string]bool
	if strings.HasSuffix(term, "/") {
		base = matchSchemaPrefix(d, term)
	} else {
		key, ok := matchDottedPath(d, term)
		if !ok {
			return nil
		}
		base = map[string]bool{key: true}
	}

	out := map[string]bool{}
	for key := range base {
		out[key] = true
	}
	if includeAncestors {
		for key := range base {
			for k := range d.Ancestors(key) {
				out[k] = true
			}
		}
	}
	if includeDescendants {
		for key := range base {
			for k := range d.Descendants(key) {
				out[k] = true
			}
		}
	}
	return out
}

func matchSchemaPrefix(d *DAG, term string) map[string]bool {
	segments := strings.Split(strings.Trim(term, "/"), "/")
	out := map[string]bool{}
	for key, n := range d.nodes {
		if hasSchemaPrefix(n.script.TableRef.Schema, segments) {
			out[key] = true
		}
	}
	return out
}

func hasSchemaPrefix(schema, prefix []string) bool {
	if len(prefix) > len(schema) {
		return false
	}
	for i, p := range prefix {
		if schema[i] != p {
			return false
		}
	}
	return true
}

func matchDottedPath(d *DAG, term string) (string, bool) {
	for key, n := range d.nodes {
		if dottedPath(n) == term {
			return key, true
		}
	}
	return "", false
}

// dottedPath renders a node's schema path and name as "a.b.c", the form
// selector terms address it by.
func dottedPath(n *node) string {
	parts := append(append([]string{}, n.script.TableRef.Schema...), n.script.TableRef.Name)
	return strings.Join(parts, ".")
}

package script

import (
	"fmt"
	"strings"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// AssertionTests returns one synthetic Script per tagged field on s, each
// selecting the rows that violate the tag. A test passes when its query
// returns zero rows. INCREMENTAL carries no assertion of its own - it only
// drives incremental scheduling - so it is skipped here.
func AssertionTests(s Script) []Script {
	var tests []Script
	seen := map[string]bool{}
	for _, f := range s.Fields {
		for _, tag := range f.Tags {
			if tag.Kind == TagIncremental {
				continue
			}
			code, ok := assertionSQL(s, f, tag)
			if !ok {
				continue
			}
			ref := assertionTableRef(s.TableRef, f, tag)
			if seen[ref.Key()] {
				ref = disambiguateTestRef(ref, tag)
			}
			seen[ref.Key()] = true
			tests = append(tests, New(ref, code, s.Dialect))
		}
	}
	return tests
}

// assertionTableRef places a synthetic test under the "tests" schema,
// namespaced by the table and field it guards, e.g.
// tests.core.users.email.NO_NULLS.
func assertionTableRef(parent tableref.TableRef, f Field, tag FieldTag) tableref.TableRef {
	schema := make([]string, 0, len(parent.Schema)+2)
	schema = append(schema, tableref.TestsSchema)
	schema = append(schema, parent.Schema...)
	schema = append(schema, parent.Name, f.Name)
	return tableref.New(parent.Dataset, schema, tag.Label())
}

// disambiguateTestRef is reached only when a field carries two tags whose
// Label() collides - namely two #SET tags on the same column, which share
// the label "SET" even though their allowed value sets differ. Label()
// alone can't tell them apart, so a content hash over the tag's
// distinguishing fields gives the second one a unique name.
func disambiguateTestRef(ref tableref.TableRef, tag FieldTag) tableref.TableRef {
	identity := ref
	identity.Name = fmt.Sprintf("%s|%s|%s", ref.Name, tag.By, strings.Join(tag.Set, ","))
	hash, err := identity.ContentHash()
	if err != nil {
		return ref
	}
	ref.Name = fmt.Sprintf("%s_%x", ref.Name, hash)
	return ref
}

func assertionSQL(s Script, f Field, tag FieldTag) (string, bool) {
	table := s.Dialect.FormatTableRef(s.TableRef)
	switch tag.Kind {
	case TagNoNulls:
		return fmt.Sprintf("SELECT *\nFROM %s\nWHERE %s IS NULL", table, f.Name), true
	case TagUnique:
		return fmt.Sprintf(
			"SELECT %s, COUNT(*) AS n\nFROM %s\nGROUP BY %s\nHAVING COUNT(*) > 1",
			f.Name, table, f.Name,
		), true
	case TagUniqueBy:
		return fmt.Sprintf(
			"SELECT %s, %s, COUNT(*) AS n\nFROM %s\nGROUP BY %s, %s\nHAVING COUNT(*) > 1",
			tag.By, f.Name, table, tag.By, f.Name,
		), true
	case TagSet:
		values := make([]string, len(tag.Set))
		for i, v := range tag.Set {
			values[i] = quoteSetValue(v)
		}
		return fmt.Sprintf(
			"SELECT *\nFROM %s\nWHERE %s NOT IN (%s)",
			table, f.Name, strings.Join(values, ", "),
		), true
	}
	return "", false
}

func quoteSetValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "''"
	}
	if v[0] == '\'' || v[0] == '"' {
		return v
	}
	// Numeric-looking literals pass through unquoted; everything else is a
	// string literal.
	for _, r := range v {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			return "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
	}
	return v
}

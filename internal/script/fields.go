package script

import (
	"strings"
)

// ExtractFields walks the outermost SELECT list of code and returns one
// Field per column, picking up any "#TAG" comments declared on the lines
// immediately preceding a column (spec.md: "Tags appear as trailing -- comments
// immediately preceding the column in the SELECT list").
func ExtractFields(code string) []Field {
	body := outermostSelectList(code)
	if body == "" {
		return nil
	}

	var fields []Field
	var pending []FieldTag

	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if comment, ok := commentText(line); ok {
			if tag, ok := ParseFieldTag(comment); ok {
				pending = append(pending, tag)
			}
			continue
		}

		name, ok := columnNameFromLine(line)
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: name, Tags: pending})
		pending = nil
	}

	return fields
}

// commentText reports whether line is a "--"-prefixed comment, returning its
// trimmed text (without the leading "--").
func commentText(line string) (string, bool) {
	if !strings.HasPrefix(line, "--") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "--")), true
}

// columnNameFromLine extracts the column name a SELECT-list line declares,
// stripping a trailing comma and any inline comment.
func columnNameFromLine(line string) (string, bool) {
	if idx := strings.Index(line, "--"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ",")
	line = strings.TrimSpace(line)
	if line == "" || line == "*" {
		return "", false
	}

	if idx := lastIndexFold(line, " as "); idx >= 0 {
		alias := strings.TrimSpace(line[idx+4:])
		return unquote(alias), true
	}

	// No alias: the column name is the last identifier-like token, e.g. the
	// "name" in "core.users.name" or plain "name".
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == '.' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return "", false
	}
	return unquote(fields[len(fields)-1]), true
}

func unquote(s string) string {
	s = strings.Trim(s, "`\"")
	return s
}

func lastIndexFold(s, substr string) int {
	lower := strings.ToLower(s)
	return strings.LastIndex(lower, substr)
}

// outermostSelectList returns the text between the first top-level SELECT
// and its matching top-level FROM, i.e. the column list of the script's own
// outer query. Nested subqueries (inside parentheses) are skipped over.
func outermostSelectList(code string) string {
	upper := strings.ToUpper(code)
	depth := 0
	selectStart := -1
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && selectStart == -1 && hasKeywordAt(upper, i, "SELECT") {
			selectStart = i + len("SELECT")
		} else if depth == 0 && selectStart != -1 && hasKeywordAt(upper, i, "FROM") {
			return code[selectStart:i]
		}
	}
	return ""
}

// hasKeywordAt reports whether upper contains keyword starting at i, bounded
// by non-identifier characters on both sides.
func hasKeywordAt(upper string, i int, keyword string) bool {
	if i+len(keyword) > len(upper) || upper[i:i+len(keyword)] != keyword {
		return false
	}
	if i > 0 && isIdentChar(upper[i-1]) {
		return false
	}
	end := i + len(keyword)
	if end < len(upper) && isIdentChar(upper[end]) {
		return false
	}
	return true
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

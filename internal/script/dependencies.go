package script

import "regexp"

// fromJoinPattern finds dot-qualified identifiers following FROM or JOIN,
// mirroring the regex fallback spec.md describes for when a real SQL parse
// fails: "a regex that extracts FROM/JOIN <schema>.<name> tokens". No SQL
// parser exists anywhere in the example corpus this module was grounded on,
// so this regex is the primary (not fallback) dependency extraction strategy.
var fromJoinPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][\w]*(?:\.[A-Za-z_][\w]*)+)`)

// extractDottedIdentifiers returns every dot-qualified identifier following a
// FROM or JOIN keyword in code, excluding ones immediately followed by "(" -
// those are function calls (e.g. table-valued functions), not tables.
func extractDottedIdentifiers(code string) []string {
	var idents []string
	matches := fromJoinPattern.FindAllStringSubmatchIndex(code, -1)
	for _, m := range matches {
		ident := code[m[2]:m[3]]
		rest := code[m[3]:]
		if looksLikeFunctionCall(rest) {
			continue
		}
		idents = append(idents, ident)
	}
	return idents
}

func looksLikeFunctionCall(rest string) bool {
	for _, r := range rest {
		switch r {
		case ' ', '\t', '\r', '\n':
			continue
		case '(':
			return true
		default:
			return false
		}
	}
	return false
}

// Package ddl rewrites and splits schema DDL: a line-oriented,
// deterministic text transform over the vendor dumper's schema
// output. It strips DEFINER clauses, tokenises the source database
// name, and splits a CREATE-TABLE-heavy schema into the three stages
// the restore path applies (columns, keys, foreign keys). The
// rewriter owns no database handle; it is pure text transformation,
// falling back to regexes rather than a real parser for statements
// that are awkward to parse in isolation.
package ddl

import (
	"regexp"
	"strings"
)

// reDefiner matches a DEFINER=user@host clause, its optional
// version-gated comment wrapper, and an optional trailing
// "SQL SECURITY DEFINER" clause, all of which collapse to a single
// space.
var reDefiner = regexp.MustCompile(
	"(?i)(\\*/\\s*)?(/\\*!\\d+\\s*)?DEFINER\\s*=\\s*(`[^`]*`|[^@\\s]+)@(`[^`]*`|[\\w.%]+)(\\s*SQL\\s+SECURITY\\s+DEFINER)?\\s*(\\*/)?",
)

// StripDefiner removes DEFINER clauses (and their wrappers) from a single
// line of DDL, collapsing the matched run to a single space. A line with
// no DEFINER clause is returned unchanged.
func StripDefiner(line string) string {
	if !reDefiner.MatchString(line) {
		return line
	}
	out := reDefiner.ReplaceAllString(line, " ")
	return strings.TrimSpace(collapseSpaces(out))
}

// collapseSpaces reduces any run of interior spaces left by the DEFINER
// removal to a single space, without touching newlines.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// isAlterDatabase reports whether line is a legacy "ALTER DATABASE" line,
// which is dropped entirely.
func isAlterDatabase(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "ALTER DATABASE")
}

// StripDefiners applies StripDefiner to every line of ddl and drops any
// ALTER DATABASE line, returning the cleaned text.
func StripDefiners(ddlText string) string {
	lines := strings.Split(ddlText, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isAlterDatabase(line) {
			continue
		}
		out = append(out, StripDefiner(line))
	}
	return strings.Join(out, "\n")
}

// Tokenise replaces every whole-word occurrence of database in ddlText
// with the literal "#DATABASE#".
func Tokenise(ddlText, database string) string {
	return wholeWordReplace(ddlText, database, "#DATABASE#")
}

// Detokenise replaces every occurrence of "#DATABASE#" in ddlText with
// target. Detokenise(Tokenise(x, name), name) == x for canonical DDL
// that contains no incidental "#DATABASE#" token of its own.
func Detokenise(ddlText, target string) string {
	return strings.ReplaceAll(ddlText, "#DATABASE#", target)
}

// wholeWordReplace replaces whole-word occurrences of old with new in s.
// "Whole word" means old is not immediately preceded or followed by a
// word character ([A-Za-z0-9_]); this avoids rewriting "shop_archive"
// when tokenising database "shop".
func wholeWordReplace(s, old, new string) string {
	if old == "" {
		return s
	}
	pattern := `\b` + regexp.QuoteMeta(old) + `\b`
	re := regexp.MustCompile(pattern)
	return re.ReplaceAllString(s, new)
}

// RewriteSchema applies the full dump-time rewrite: strip DEFINER
// clauses, then tokenise the source database name.
func RewriteSchema(rawDDL, database string) string {
	stripped := StripDefiners(rawDDL)
	return Tokenise(stripped, database)
}

// DetokeniseSchema applies the full restore-time rewrite: substitute the
// target database name for every tokenised occurrence.
func DetokeniseSchema(tokenisedDDL, targetDatabase string) string {
	return Detokenise(tokenisedDDL, targetDatabase)
}

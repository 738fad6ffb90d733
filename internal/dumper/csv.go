// Package dumper is a streaming per-table CSV exporter with sharding,
// retry, and row-count verification. It pages a result set through a
// CSV writer feeding a gzip subprocess, rolling to a new shard every
// million rows, and defers BLOB/TEXT-heavy tables to the fallback
// exporter.
package dumper

import (
	"strconv"
	"strings"
)

// needsQuoting reports whether field must be wrapped in double quotes:
// quote whenever the field contains the separator, a quote character,
// a newline, or leading or trailing whitespace.
func needsQuoting(field string) bool {
	if field == "" {
		return false
	}
	if strings.ContainsAny(field, ",\"\n\r") {
		return true
	}
	if field[0] == ' ' || field[0] == '\t' || field[len(field)-1] == ' ' || field[len(field)-1] == '\t' {
		return true
	}
	return false
}

// encodeField renders one CSV field: comma separator, double-quote
// quoting, backslash-escaped embedded quotes, and the literal two-byte
// sequence \N for SQL NULL.
func encodeField(field string, isNull bool) string {
	if isNull {
		return `\N`
	}
	if !needsQuoting(field) {
		return field
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// EncodeRow renders a full CSV row (LF-terminated, UNIX newlines) from
// the column values and their null-ness.
func EncodeRow(values []string, isNull []bool) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = encodeField(v, isNull[i])
	}
	return strings.Join(fields, ",") + "\n"
}

// EncodeHeader renders the comma-joined column-name header line.
func EncodeHeader(columns []string) string {
	return strings.Join(columns, ",") + "\n"
}

// FormatGroupedInt renders n with comma thousands separators, the
// format row counts are emitted to logs in.
func FormatGroupedInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}

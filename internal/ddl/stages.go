package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// SplitResult is the output of SplitStages: stage-1 text ready to apply
// immediately, plus per-table stage-2 (keys) and stage-3 (foreign keys)
// ALTER statements applied after bulk load.
type SplitResult struct {
	Stage1 string
	Stage2 map[string]string
	Stage3 map[string]string
}

var (
	reTableComment = regexp.MustCompile("^-- Table structure for table `([^`]+)`")
	reCreateTable  = regexp.MustCompile("^CREATE TABLE `([^`]+)` \\(")
	reTableClose   = regexp.MustCompile(`^\)\s*ENGINE=`)
	rePrimaryKey   = regexp.MustCompile(`^PRIMARY KEY\s*\(`)
	reSecondaryKey = regexp.MustCompile(`^(UNIQUE\s+KEY|KEY|FULLTEXT\s+KEY|SPATIAL\s+KEY)\s`)
	reConstraint   = regexp.MustCompile(`^CONSTRAINT\s`)
	reAutoIncr     = regexp.MustCompile(`\s*AUTO_INCREMENT\s*`)
)

type splitterState int

const (
	stateOutside splitterState = iota
	stateTablePreamble
	stateColumns
)

// tableBuilder accumulates the per-table stage-2/stage-3 fragments and
// the stage-1 column definitions while SplitStages walks a single
// CREATE TABLE block.
type tableBuilder struct {
	name             string
	columns          []string
	stage2Fragments  []string
	stage3Fragments  []string
	hasAutoIncrement bool
}

// SplitStages walks a mysqldump-style schema dump line by line and
// separates it into three buckets: stage 1 carries column-only CREATE
// TABLE bodies plus every non-table statement (views, functions,
// procedures, database preamble); stage 2 carries ADD KEY / ADD
// PRIMARY KEY / MODIFY ... AUTO_INCREMENT PRIMARY KEY fragments;
// stage 3 carries ADD CONSTRAINT fragments for foreign keys.
func SplitStages(ddlText string) (*SplitResult, error) {
	lines := strings.Split(ddlText, "\n")

	result := &SplitResult{
		Stage2: make(map[string]string),
		Stage3: make(map[string]string),
	}

	var stage1 []string
	state := stateOutside
	var tb *tableBuilder

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)

		switch state {
		case stateOutside:
			if m := reTableComment.FindStringSubmatch(raw); m != nil {
				tb = &tableBuilder{name: m[1]}
				state = stateTablePreamble
			}
			stage1 = append(stage1, raw)

		case stateTablePreamble:
			if m := reCreateTable.FindStringSubmatch(raw); m != nil {
				if m[1] != tb.name {
					return nil, fmt.Errorf("ddl: CREATE TABLE name %q does not match preceding comment %q", m[1], tb.name)
				}
				stage1 = append(stage1, raw)
				state = stateColumns
				continue
			}
			stage1 = append(stage1, raw)

		case stateColumns:
			switch {
			case reTableClose.MatchString(trimmed):
				stage1 = append(stage1, strings.Join(tb.columns, ",\n"))
				stage1 = append(stage1, raw)
				flushTable(result, tb)
				tb = nil
				state = stateOutside

			case reConstraint.MatchString(trimmed):
				frag := "ADD " + stripTrailingComma(trimmed)
				tb.stage3Fragments = append(tb.stage3Fragments, frag)

			case rePrimaryKey.MatchString(trimmed):
				if !tb.hasAutoIncrement {
					frag := "ADD " + stripTrailingComma(trimmed)
					tb.stage2Fragments = append(tb.stage2Fragments, frag)
				}

			case reSecondaryKey.MatchString(trimmed):
				frag := "ADD " + stripTrailingComma(trimmed)
				tb.stage2Fragments = append(tb.stage2Fragments, frag)

			default:
				col := stripTrailingComma(raw)
				if reAutoIncr.MatchString(col) {
					name, def, err := splitColumnDefinition(col)
					if err != nil {
						return nil, fmt.Errorf("ddl: line %d: %w", i+1, err)
					}
					tb.hasAutoIncrement = true
					tb.columns = append(tb.columns, name+" "+def)
					tb.stage2Fragments = append([]string{
						fmt.Sprintf("MODIFY %s %s AUTO_INCREMENT PRIMARY KEY", name, def),
					}, tb.stage2Fragments...)
				} else {
					tb.columns = append(tb.columns, col)
				}
			}
		}
	}

	if tb != nil {
		return nil, fmt.Errorf("ddl: unterminated CREATE TABLE for %q", tb.name)
	}

	result.Stage1 = strings.Join(stage1, "\n")
	return result, nil
}

// flushTable writes tb's stage-2/stage-3 ALTER statements into result,
// skipping tables that accumulated no fragments of a given kind.
func flushTable(result *SplitResult, tb *tableBuilder) {
	if len(tb.stage2Fragments) > 0 {
		result.Stage2[tb.name] = buildAlter(tb.name, tb.stage2Fragments)
	}
	if len(tb.stage3Fragments) > 0 {
		result.Stage3[tb.name] = buildAlter(tb.name, tb.stage3Fragments)
	}
}

func buildAlter(table string, fragments []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE `%s`\n", table)
	for i, frag := range fragments {
		b.WriteString("  ")
		b.WriteString(frag)
		if i < len(fragments)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(";\n")
	return b.String()
}

// stripTrailingComma trims trailing whitespace from line and removes a
// single trailing comma left over from the column/key list, leaving any
// leading indentation intact.
func stripTrailingComma(line string) string {
	trimmedRight := strings.TrimRight(line, " \t")
	return strings.TrimSuffix(trimmedRight, ",")
}

var reColumnName = regexp.MustCompile("^(\\s*)(`[^`]+`)\\s+(.*)$")

// splitColumnDefinition splits a column line (with its trailing comma
// already stripped) into its backtick-quoted name and the remainder of
// the definition with AUTO_INCREMENT removed and whitespace collapsed.
func splitColumnDefinition(col string) (name, def string, err error) {
	m := reColumnName.FindStringSubmatch(col)
	if m == nil {
		return "", "", fmt.Errorf("could not parse column definition: %q", col)
	}
	name = m[2]
	def = reAutoIncr.ReplaceAllString(m[3], " ")
	def = strings.TrimSpace(collapseSpaces(def))
	return name, def, nil
}

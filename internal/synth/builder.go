package synth

import (
	"strconv"
	"strings"
)

// whereBuilder collects AND-ed predicates written with ? placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (wb *whereBuilder) add(clause string, args ...any) *whereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// in adds "column IN (?, ?, ...)" for the given values.
func (wb *whereBuilder) in(column string, values []int) *whereBuilder {
	if len(values) == 0 {
		return wb
	}
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, column+" IN ("+strings.Join(marks, ", ")+")")
	return wb
}

func (wb *whereBuilder) build() string {
	return strings.Join(wb.clauses, " AND ")
}

// rebind numbers ? placeholders as $1, $2, ... in order.
func rebind(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

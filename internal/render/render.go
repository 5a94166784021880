// Package render turns execution results into the display strings the
// pipeline answers with.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sqlsage/sqlsage/internal/warehouse"
)

// printer renders grouped integers ("15,086") in answers.
var printer = message.NewPrinter(language.English)

// Format renders an execution result for display: a fixed sentinel for
// empty results, the bare value for a 1x1 result, and a fixed-width pipe
// table otherwise. Output is deterministic for a given result.
func Format(res *warehouse.Result) string {
	if res == nil || len(res.Rows) == 0 {
		return "No results found."
	}

	if v, ok := res.Scalar(); ok && !res.Truncated {
		return cell(v)
	}

	return table(res)
}

// cell renders one value: NULL for nil, grouped digits for integers,
// compact notation for floats, a second-resolution timestamp for times.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return printer.Sprintf("%d", x)
	case int16:
		return printer.Sprintf("%d", x)
	case int32:
		return printer.Sprintf("%d", x)
	case int64:
		return printer.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}

func table(res *warehouse.Result) string {
	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = utf8.RuneCountInString(col)
	}

	cells := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells[r] = make([]string, len(res.Columns))
		for c := range res.Columns {
			var v any
			if c < len(row) {
				v = row[c]
			}
			s := cell(v)
			cells[r][c] = s
			if w := utf8.RuneCountInString(s); w > widths[c] {
				widths[c] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		for i, s := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(s)
			// The last column stays unpadded to keep lines trim.
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(s)))
			}
		}
		b.WriteByte('\n')
	}

	writeRow(res.Columns)
	for _, row := range cells {
		writeRow(row)
	}

	if res.Truncated {
		fmt.Fprintf(&b, "... and %d more rows\n", res.Omitted)
	}

	return strings.TrimRight(b.String(), "\n")
}

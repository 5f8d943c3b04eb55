package sheets

import (
	"fmt"
	"strings"
)

// lastColumn bounds row reads. Sheets drops trailing empty cells, so the
// bound only needs to be wider than any table we manage.
const lastColumn = "ZZ"

// columnName converts a zero-based column index to A1 letters.
func columnName(index int) string {
	name := ""
	for index >= 0 {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
	}
	return name
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func headerRange(title string) string {
	return quoteTitle(title) + "!1:1"
}

func rowsRange(title string, first, last int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteTitle(title), first, lastColumn, last)
}

func idColumnRange(title string) string {
	return quoteTitle(title) + "!A:A"
}

func cellRange(title string, column, row int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), columnName(column), row)
}

package model

// Fields holds the normalized field values of a table row keyed by field name.
type Fields map[string]any

// Row is a table row with its store-assigned identifier.
type Row struct {
	Fields Fields
	ID     string
}

// FieldDef describes one column of a table.
type FieldDef struct {
	Name string
	Type string
}

// Page is one page of a row listing. NextToken is empty on the last page.
type Page struct {
	NextToken string
	Rows      []Row
	HasMore   bool
}

// RowFailure records a row that could not be written.
type RowFailure struct {
	Err   error
	ID    string
	Index int
}

// BatchResult reports per-row outcomes of a batched write.
type BatchResult struct {
	CreatedIDs []string
	Failed     []RowFailure
	Succeeded  int
}

// FailedIndex reports whether the row at index i failed.
func (b BatchResult) FailedIndex(i int) bool {
	for _, f := range b.Failed {
		if f.Index == i {
			return true
		}
	}
	return false
}

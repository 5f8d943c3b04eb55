package model

// Change is one proposed field change on a source record.
type Change struct {
	RecordID string
	Note     string
	Category string
	Field    string
	Old      string
	New      string
}

// WritePlan is the full set of changes a job intends to write. Updates holds
// the rows exactly as they will be sent to the store.
type WritePlan struct {
	Changes []Change
	Updates []Row
	Summary Summary
}

// Empty reports whether the plan writes nothing.
func (p WritePlan) Empty() bool {
	return len(p.Updates) == 0
}

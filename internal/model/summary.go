package model

import "fmt"

// Summary counts the outcome of a batch job.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Add folds other into s.
func (s *Summary) Add(other Summary) {
	s.Total += other.Total
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d succeeded=%d failed=%d skipped=%d", s.Total, s.Succeeded, s.Failed, s.Skipped)
}

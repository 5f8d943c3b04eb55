package model

// ReviewStatus tracks a review item through human review.
type ReviewStatus string

const (
	// ReviewPending is set when the engine stages an item.
	ReviewPending ReviewStatus = "pending"
	// ReviewConfirmed is set by a human once the final values are correct.
	ReviewConfirmed ReviewStatus = "confirmed"
	// ReviewSynced is set after the final values reached the source record.
	ReviewSynced ReviewStatus = "synced"
	// ReviewIgnored is set by a human to drop the item. It is terminal.
	ReviewIgnored ReviewStatus = "ignored"
)

var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewPending:   {ReviewConfirmed, ReviewIgnored},
	ReviewConfirmed: {ReviewSynced, ReviewIgnored},
}

// CanTransition reports whether moving from s to next is allowed.
func (s ReviewStatus) CanTransition(next ReviewStatus) bool {
	for _, allowed := range reviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewConfirmed, ReviewSynced, ReviewIgnored:
		return true
	}
	return false
}

// ReviewItem is a staged proposal for changing one source record.
type ReviewItem struct {
	ID               string
	RecordID         string
	Note             string
	Category         string
	CurrentPurpose   string
	CurrentSubcat    string
	PredictedPurpose string
	PredictedSubcat  string
	FinalPurpose     string
	FinalSubcat      string
	Status           ReviewStatus
	Amount           string
	Timestamp        int64
}

package model

// MatchStatus compares a record's labels with a rule prediction.
type MatchStatus string

const (
	// StatusMatch means the prediction agrees with both current labels.
	StatusMatch MatchStatus = "MATCH"
	// StatusMismatch means at least one predicted label differs or is missing.
	StatusMismatch MatchStatus = "MISMATCH"
	// StatusNoRule means nothing was predicted.
	StatusNoRule MatchStatus = "NO_RULE"
)

// CompareLabels classifies current labels against predicted ones.
func CompareLabels(currentPurpose, currentSubcat, predictedPurpose, predictedSubcat string) MatchStatus {
	switch {
	case predictedPurpose == "" && predictedSubcat == "":
		return StatusNoRule
	case predictedPurpose != "" && predictedSubcat != "" &&
		predictedPurpose == currentPurpose && predictedSubcat == currentSubcat:
		return StatusMatch
	default:
		return StatusMismatch
	}
}

// AuditRow is one line of the rule validation report.
type AuditRow struct {
	RecordID         string
	Date             string
	Amount           string
	Category         string
	Note             string
	CurrentPurpose   string
	CurrentSubcat    string
	PredictedPurpose string
	PredictedSubcat  string
	Status           MatchStatus
	Action           string
}

package model

// CorrectionEntry pins a normalized counterparty to a category.
type CorrectionEntry struct {
	Counterparty string `json:"counterparty"`
	Category     string `json:"category"`
}

package entities

// SettlementOutcome is the result of settling one wager inside a transaction
type SettlementOutcome struct {
	Kind            WagerKind
	WagerID         int64
	Applied         bool // false when another run already moved the wager out of pending
	Result          WagerResult
	Payout          int64
	TransactionType TransactionType
	LegResults      []WagerResult
}

// SettlementSummary counts what a settlement run did
type SettlementSummary struct {
	Singles  int `json:"singles"`
	Parlays  int `json:"parlays"`
	Combined int `json:"combined"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Resolved returns the total number of wagers resolved in the run
func (s SettlementSummary) Resolved() int {
	return s.Singles + s.Parlays + s.Combined
}

// Add increments the resolved counter for a kind
func (s *SettlementSummary) Add(kind WagerKind) {
	switch kind {
	case WagerKindSingle:
		s.Singles++
	case WagerKindParlay:
		s.Parlays++
	case WagerKindCombined:
		s.Combined++
	}
}

// Valuation is a cash-out offer for a pending wager
type Valuation struct {
	Kind            WagerKind `json:"kind"`
	WagerID         int64     `json:"wager_id"`
	PotentialWin    int64     `json:"potential_win"`
	ElapsedFraction float64   `json:"elapsed_fraction"`
	Alignment       float64   `json:"alignment"`
	Fraction        float64   `json:"fraction"`
	Offer           int64     `json:"offer"`
	Available       bool      `json:"available"`
}

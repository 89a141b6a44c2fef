package entities

// TransactionType represents the type of balance change
type TransactionType string

// All transaction types supported by the system
const (
	// Placement
	TransactionTypeStake TransactionType = "stake"

	// Settlement
	TransactionTypeBetWin          TransactionType = "bet_win"
	TransactionTypeInsurancePayout TransactionType = "insurance_payout"

	// Early exit
	TransactionTypeCashOut TransactionType = "cash_out"

	// System
	TransactionTypeDeposit TransactionType = "deposit"
)

// IsWinType returns true if the transaction type represents a win
func (tt TransactionType) IsWinType() bool {
	return tt == TransactionTypeBetWin
}

// IsSettlementType returns true if the transaction was produced by a settlement run
func (tt TransactionType) IsSettlementType() bool {
	return tt == TransactionTypeBetWin || tt == TransactionTypeInsurancePayout
}

// IsCredit returns true if the transaction type always increases a balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeBetWin ||
		tt == TransactionTypeInsurancePayout ||
		tt == TransactionTypeCashOut ||
		tt == TransactionTypeDeposit
}

package ledger

import "errors"

// Sentinel kinds for ledger faults. These indicate a programming or storage
// error, not a rejected bet.
var (
	ErrForeignBet         = errors.New("bet belongs to another question")
	ErrSettlementMismatch = errors.New("settlement does not match ledger")
	ErrAlreadySettled     = errors.New("bet already settled")
)

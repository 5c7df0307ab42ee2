package engine

import (
	"github.com/shopspring/decimal"

	"miniledger/ledger"
)

// TxType enumerates the supported transaction row types.
type TxType string

const (
	TypeDeposit    TxType = "deposit"
	TypeWithdrawal TxType = "withdrawal"
	TypeDispute    TxType = "dispute"
	TypeResolve    TxType = "resolve"
	TypeChargeback TxType = "chargeback"
)

// Transaction is one incoming row, already lexically decoded by the input
// collaborator. Amount is zero for rows that carry none (the dispute family).
type Transaction struct {
	Type   TxType
	Client ledger.ClientID
	TxID   uint32
	Amount decimal.Decimal
}

// record is the last-known state of an accepted deposit or withdrawal, keyed
// by transaction id. A later row reusing the id overwrites the whole record;
// only the disputed flag is mutated in place by the dispute family.
type record struct {
	typ      TxType
	client   ledger.ClientID
	amount   decimal.Decimal
	disputed bool
}

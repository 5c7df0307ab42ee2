package ledger

import "github.com/shopspring/decimal"

// ClientID identifies an account holder.
type ClientID uint16

// Account is the balance state tracked for one client. Available funds can be
// withdrawn or traded; held funds are frozen by an open dispute. Locked is set
// permanently once a chargeback lands.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// Total is the account's true balance: available plus held.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Ledger owns the authoritative client→account table and applies primitive,
// pre-validated balance mutations. Accounts are created implicitly the first
// time a client is referenced. No mutator returns an error: inapplicable
// requests (locked account, insufficient funds) degrade to a no-op, reported
// through the returned bool.
type Ledger struct {
	accounts map[ClientID]*Account
}

// New builds an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[ClientID]*Account)}
}

// GetOrCreate returns a copy of the account for client, creating it with
// zeroed balances if it has not been seen before.
func (l *Ledger) GetOrCreate(client ClientID) Account {
	return *l.getOrCreate(client)
}

func (l *Ledger) getOrCreate(client ClientID) *Account {
	a, ok := l.accounts[client]
	if !ok {
		a = &Account{Client: client}
		l.accounts[client] = a
	}
	return a
}

// Deposit credits amount to the client's available funds. The caller
// guarantees amount is positive; the ledger does not re-validate.
func (l *Ledger) Deposit(client ClientID, amount decimal.Decimal) bool {
	a := l.getOrCreate(client)
	if a.Locked {
		return false
	}
	a.Available = a.Available.Add(amount)
	return true
}

// Withdraw debits amount from the client's available funds. A withdrawal
// exceeding available funds leaves the account untouched.
func (l *Ledger) Withdraw(client ClientID, amount decimal.Decimal) bool {
	a := l.getOrCreate(client)
	if a.Locked || a.Available.LessThan(amount) {
		return false
	}
	a.Available = a.Available.Sub(amount)
	return true
}

// Hold freezes amount while a dispute is open: it moves from available to
// held. Total balance is unchanged.
func (l *Ledger) Hold(client ClientID, amount decimal.Decimal) bool {
	a := l.getOrCreate(client)
	if a.Locked {
		return false
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	return true
}

// Release returns previously held amount to available funds when a dispute
// resolves. Total balance is unchanged.
func (l *Ledger) Release(client ClientID, amount decimal.Decimal) bool {
	a := l.getOrCreate(client)
	if a.Locked {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	return true
}

// Chargeback removes amount from held funds and freezes the account. Total
// balance drops permanently; every later mutation on the account is ignored.
func (l *Ledger) Chargeback(client ClientID, amount decimal.Decimal) bool {
	a := l.getOrCreate(client)
	if a.Locked {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.Locked = true
	return true
}

// Snapshot returns a copy of every tracked account in ascending client order.
func (l *Ledger) Snapshot() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(x, y Account) int {
		return cmp.Compare(x.Client, y.Client)
	})
	return out
}

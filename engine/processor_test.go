package engine

import (
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"miniledger/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func deposit(client ledger.ClientID, tx uint32, amount string) Transaction {
	return Transaction{Type: TypeDeposit, Client: client, TxID: tx, Amount: dec(amount)}
}

func withdrawal(client ledger.ClientID, tx uint32, amount string) Transaction {
	return Transaction{Type: TypeWithdrawal, Client: client, TxID: tx, Amount: dec(amount)}
}

func dispute(client ledger.ClientID, tx uint32) Transaction {
	return Transaction{Type: TypeDispute, Client: client, TxID: tx}
}

func resolve(client ledger.ClientID, tx uint32) Transaction {
	return Transaction{Type: TypeResolve, Client: client, TxID: tx}
}

func chargeback(client ledger.ClientID, tx uint32) Transaction {
	return Transaction{Type: TypeChargeback, Client: client, TxID: tx}
}

func runTxs(t *testing.T, txs ...Transaction) (*ledger.Ledger, *Processor) {
	t.Helper()
	book := ledger.New()
	proc := NewProcessor(book)
	for _, tx := range txs {
		proc.Process(tx)
	}
	return book, proc
}

func assertAccount(t *testing.T, book *ledger.Ledger, client ledger.ClientID, available, held string, locked bool) {
	t.Helper()
	a := book.GetOrCreate(client)
	if !a.Available.Equal(dec(available)) {
		t.Errorf("client %d: expected available %s, got %s", client, available, a.Available)
	}
	if !a.Held.Equal(dec(held)) {
		t.Errorf("client %d: expected held %s, got %s", client, held, a.Held)
	}
	if a.Locked != locked {
		t.Errorf("client %d: expected locked=%v, got %v", client, locked, a.Locked)
	}
}

func TestProcessor_DepositsOnly(t *testing.T) {
	book, proc := runTxs(t,
		deposit(1, 1, "1.5"),
		deposit(1, 2, "2.25"),
		deposit(1, 3, "0.0001"),
	)

	assertAccount(t, book, 1, "3.7501", "0", false)
	if proc.Accepted() != 3 || proc.Dropped() != 0 {
		t.Fatalf("expected 3 accepted / 0 dropped, got %d / %d", proc.Accepted(), proc.Dropped())
	}
}

func TestProcessor_DepositNonPositiveAmountDropped(t *testing.T) {
	book, proc := runTxs(t,
		Transaction{Type: TypeDeposit, Client: 1, TxID: 1, Amount: dec("0")},
		Transaction{Type: TypeDeposit, Client: 1, TxID: 2, Amount: dec("-3")},
		// A dispute-family reference to a dropped row must find nothing.
		dispute(1, 1),
	)

	assertAccount(t, book, 1, "0", "0", false)
	if proc.Dropped() != 3 {
		t.Fatalf("expected 3 dropped, got %d", proc.Dropped())
	}
}

func TestProcessor_WithdrawalInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "5"),
		withdrawal(1, 2, "7.5"),
	)

	assertAccount(t, book, 1, "5", "0", false)
}

func TestProcessor_UnappliedWithdrawalIsStillRecordedAndDisputable(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "5"),
		withdrawal(1, 2, "7.5"),
		dispute(1, 2),
	)

	// The withdrawal never moved funds, but its record exists and the
	// symmetric hold applies to the recorded amount.
	assertAccount(t, book, 1, "-2.5", "7.5", false)
}

func TestProcessor_DisputeThenResolveRestoresState(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
	)
	assertAccount(t, book, 1, "0", "10", false)

	book2, _ := runTxs(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		resolve(1, 1),
	)
	assertAccount(t, book2, 1, "10", "0", false)
}

func TestProcessor_DisputeWithdrawalSymmetric(t *testing.T) {
	// Pins the documented interpretation: disputing a withdrawal holds the
	// withdrawn amount exactly as disputing a deposit would.
	book, _ := runTxs(t,
		deposit(1, 1, "10"),
		withdrawal(1, 2, "4"),
		dispute(1, 2),
	)

	assertAccount(t, book, 1, "2", "4", false)

	book2, _ := runTxs(t,
		deposit(1, 1, "10"),
		withdrawal(1, 2, "4"),
		dispute(1, 2),
		resolve(1, 2),
	)
	assertAccount(t, book2, 1, "6", "0", false)
}

func TestProcessor_ChargebackLocksAccount(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		chargeback(1, 1),
		// Everything after the lock is a no-op.
		deposit(1, 2, "100"),
		withdrawal(1, 3, "1"),
	)

	assertAccount(t, book, 1, "0", "0", true)
	a := book.GetOrCreate(1)
	if !a.Total().IsZero() {
		t.Fatalf("expected total 0 after chargeback, got %s", a.Total())
	}
}

func TestProcessor_SecondDisputeRejected(t *testing.T) {
	book, proc := runTxs(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		dispute(1, 1),
	)

	assertAccount(t, book, 1, "0", "10", false)
	if proc.Dropped() != 1 {
		t.Fatalf("expected exactly the second dispute dropped, got %d", proc.Dropped())
	}
}

func TestProcessor_ResolveWithoutOpenDisputeRejected(t *testing.T) {
	book, proc := runTxs(t,
		deposit(1, 1, "10"),
		resolve(1, 1),
		chargeback(1, 1),
	)

	assertAccount(t, book, 1, "10", "0", false)
	if proc.Dropped() != 2 {
		t.Fatalf("expected resolve and chargeback dropped, got %d", proc.Dropped())
	}
}

func TestProcessor_ResolveReopensDisputability(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "10"),
		dispute(1, 1),
		resolve(1, 1),
		dispute(1, 1),
		chargeback(1, 1),
	)

	assertAccount(t, book, 1, "0", "0", true)
}

func TestProcessor_DisputeFamilyUnknownTxRejected(t *testing.T) {
	book, proc := runTxs(t,
		dispute(1, 99),
		resolve(1, 99),
		chargeback(1, 99),
	)

	if proc.Accepted() != 0 || proc.Dropped() != 3 {
		t.Fatalf("expected 0 accepted / 3 dropped, got %d / %d", proc.Accepted(), proc.Dropped())
	}
	if got := len(book.Snapshot()); got != 0 {
		t.Fatalf("expected no accounts created, got %d", got)
	}
}

func TestProcessor_ClientMismatchRejected(t *testing.T) {
	book, proc := runTxs(t,
		deposit(1, 1, "10"),
		dispute(2, 1),
		resolve(2, 1),
		chargeback(2, 1),
	)

	assertAccount(t, book, 1, "10", "0", false)
	if proc.Dropped() != 3 {
		t.Fatalf("expected all mismatched references dropped, got %d", proc.Dropped())
	}
}

func TestProcessor_TxIDOverwriteLastWriteWins(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "5"),
		deposit(1, 1, "9"),
		dispute(1, 1),
	)

	// The stored record for tx 1 is the later deposit; the hold is 9, not 5.
	assertAccount(t, book, 1, "5", "9", false)
}

func TestProcessor_ExampleScenario(t *testing.T) {
	book, _ := runTxs(t,
		deposit(1, 1, "10"),
		deposit(2, 2, "20"),
		withdrawal(1, 3, "5"),
		dispute(1, 1),
	)

	assertAccount(t, book, 1, "-5", "10", false)
	a := book.GetOrCreate(1)
	if !a.Total().Equal(dec("5")) {
		t.Fatalf("client 1: expected total 5, got %s", a.Total())
	}
	assertAccount(t, book, 2, "20", "0", false)
}

type sliceSource struct {
	txs []Transaction
	err error
}

func (s *sliceSource) Next() (Transaction, error) {
	if len(s.txs) == 0 {
		if s.err != nil {
			return Transaction{}, s.err
		}
		return Transaction{}, io.EOF
	}
	tx := s.txs[0]
	s.txs = s.txs[1:]
	return tx, nil
}

func TestProcessor_ConsumeDrainsSource(t *testing.T) {
	book := ledger.New()
	proc := NewProcessor(book)

	src := &sliceSource{txs: []Transaction{
		deposit(1, 1, "3"),
		deposit(2, 2, "4"),
	}}
	if err := proc.Consume(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(book.Snapshot()); got != 2 {
		t.Fatalf("expected 2 accounts, got %d", got)
	}
}

func TestProcessor_ConsumeSurfacesSourceError(t *testing.T) {
	boom := errors.New("boom")
	proc := NewProcessor(ledger.New())

	src := &sliceSource{txs: []Transaction{deposit(1, 1, "3")}, err: boom}
	if err := proc.Consume(src); !errors.Is(err, boom) {
		t.Fatalf("expected source error to surface, got %v", err)
	}
	if proc.Accepted() != 1 {
		t.Fatalf("expected rows before the failure to be applied, got %d", proc.Accepted())
	}
}

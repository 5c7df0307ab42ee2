package engine

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"miniledger/ledger"
)

// Source yields transactions in arrival order. Next returns io.EOF once the
// sequence is exhausted.
type Source interface {
	Next() (Transaction, error)
}

// Processor consumes transactions one at a time, maintains the last-known
// record per transaction id, and drives the corresponding ledger mutations.
// Inapplicable or malformed transactions are dropped without error: "ignored"
// is the only failure shape this domain has, so nothing here aborts a run.
type Processor struct {
	book    *ledger.Ledger
	records map[uint32]*record
	log     *zap.Logger

	accepted uint64
	dropped  uint64
}

// NewProcessor builds a processor that mutates the given ledger.
func NewProcessor(book *ledger.Ledger) *Processor {
	return &Processor{
		book:    book,
		records: make(map[uint32]*record),
		log:     zap.NewNop(),
	}
}

// WithLogger attaches a logger used to debug-log dropped transactions.
func (p *Processor) WithLogger(log *zap.Logger) *Processor {
	if log != nil {
		p.log = log
	}
	return p
}

// Consume drains the source, applying every transaction in order. The only
// error it returns is a failing source; transaction-level rejections never
// surface.
func (p *Processor) Consume(src Source) error {
	for {
		tx, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		p.Process(tx)
	}
}

// Process applies a single transaction. A rejected transaction leaves all
// state untouched.
func (p *Processor) Process(tx Transaction) {
	var ok bool
	switch tx.Type {
	case TypeDeposit:
		ok = p.deposit(tx)
	case TypeWithdrawal:
		ok = p.withdrawal(tx)
	case TypeDispute:
		ok = p.dispute(tx)
	case TypeResolve:
		ok = p.resolve(tx)
	case TypeChargeback:
		ok = p.chargeback(tx)
	}
	if ok {
		p.accepted++
		return
	}
	p.dropped++
	p.log.Debug("transaction dropped",
		zap.String("type", string(tx.Type)),
		zap.Uint16("client", uint16(tx.Client)),
		zap.Uint32("tx", tx.TxID),
	)
}

// Accepted reports how many transactions passed their preconditions.
func (p *Processor) Accepted() uint64 { return p.accepted }

// Dropped reports how many transactions were rejected as inapplicable.
func (p *Processor) Dropped() uint64 { return p.dropped }

func (p *Processor) deposit(tx Transaction) bool {
	if !tx.Amount.IsPositive() {
		return false
	}
	p.records[tx.TxID] = &record{typ: TypeDeposit, client: tx.Client, amount: tx.Amount}
	p.book.Deposit(tx.Client, tx.Amount)
	return true
}

func (p *Processor) withdrawal(tx Transaction) bool {
	if !tx.Amount.IsPositive() {
		return false
	}
	// The record is stored even when the ledger drops the movement for
	// insufficient funds.
	p.records[tx.TxID] = &record{typ: TypeWithdrawal, client: tx.Client, amount: tx.Amount}
	p.book.Withdraw(tx.Client, tx.Amount)
	return true
}

func (p *Processor) dispute(tx Transaction) bool {
	rec, ok := p.records[tx.TxID]
	if !ok || rec.client != tx.Client || rec.disputed {
		return false
	}
	if rec.typ != TypeDeposit && rec.typ != TypeWithdrawal {
		return false
	}
	rec.disputed = true
	p.book.Hold(tx.Client, rec.amount)
	return true
}

func (p *Processor) resolve(tx Transaction) bool {
	rec, ok := p.records[tx.TxID]
	if !ok || rec.client != tx.Client || !rec.disputed {
		return false
	}
	rec.disputed = false
	p.book.Release(tx.Client, rec.amount)
	return true
}

func (p *Processor) chargeback(tx Transaction) bool {
	rec, ok := p.records[tx.TxID]
	if !ok || rec.client != tx.Client || !rec.disputed {
		return false
	}
	// disputed stays true: the state is terminal, funds are gone and the
	// account is frozen.
	return p.book.Chargeback(tx.Client, rec.amount)
}

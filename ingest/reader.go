package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"miniledger/engine"
	"miniledger/ledger"
)

// Reader decodes transaction rows from CSV, lazily and in arrival order.
// Expected columns: type, client, tx, amount — the amount column is optional
// for the dispute family and fields may carry surrounding whitespace. Rows
// that fail lexical decoding are skipped and counted rather than failing the
// run; only a broken underlying reader surfaces as an error.
type Reader struct {
	csv        *csv.Reader
	headerDone bool
	skipped    int
}

// NewReader wraps r in a transaction row reader.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns the next well-formed transaction, or io.EOF once the input is
// exhausted.
func (r *Reader) Next() (engine.Transaction, error) {
	for {
		fields, err := r.csv.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.skipped++
				continue
			}
			if errors.Is(err, io.EOF) {
				return engine.Transaction{}, io.EOF
			}
			return engine.Transaction{}, fmt.Errorf("ingest: read row: %w", err)
		}

		if !r.headerDone {
			r.headerDone = true
			if len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "type") {
				continue
			}
		}

		tx, ok := decodeRow(fields)
		if !ok {
			r.skipped++
			continue
		}
		return tx, nil
	}
}

// Skipped reports how many rows were dropped during lexical decoding.
func (r *Reader) Skipped() int { return r.skipped }

func decodeRow(fields []string) (engine.Transaction, bool) {
	if len(fields) < 3 || len(fields) > 4 {
		return engine.Transaction{}, false
	}

	var tx engine.Transaction
	switch typ := engine.TxType(strings.ToLower(strings.TrimSpace(fields[0]))); typ {
	case engine.TypeDeposit, engine.TypeWithdrawal, engine.TypeDispute, engine.TypeResolve, engine.TypeChargeback:
		tx.Type = typ
	default:
		return engine.Transaction{}, false
	}

	client, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 16)
	if err != nil {
		return engine.Transaction{}, false
	}
	tx.Client = ledger.ClientID(client)

	id, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 32)
	if err != nil {
		return engine.Transaction{}, false
	}
	tx.TxID = uint32(id)

	if len(fields) == 4 {
		raw := strings.TrimSpace(fields[3])
		if raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return engine.Transaction{}, false
			}
			tx.Amount = amount
		}
	}
	return tx, true
}

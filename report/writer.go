package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"miniledger/ledger"
)

// Write renders account summaries as CSV in the order given, one row per
// account, with amounts at 4 fixed decimal places.
func Write(w io.Writer, accounts []ledger.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, a := range accounts {
		row := []string{
			strconv.FormatUint(uint64(a.Client), 10),
			a.Available.StringFixed(4),
			a.Held.StringFixed(4),
			a.Total().StringFixed(4),
			strconv.FormatBool(a.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write row for client %d: %w", a.Client, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

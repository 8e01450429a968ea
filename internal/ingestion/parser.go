package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/shopspring/decimal"
)

// expectedHeaders enforces strict column ordering for account seed files.
var expectedHeaders = []string{"account", "stb", "gnr"}

// AccountRow is one parsed line of a seed file.
type AccountRow struct {
	Line     int
	Account  string
	Balances models.Balances
}

// importFile opens, validates and parses one file, opening an account per row.
// Rows whose account already exists are skipped; any other failure aborts the file.
//
// Returns the number of created and skipped accounts.
func importFile(ctx context.Context, path string, opener AccountOpener) (created, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.Comment = '#'
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // checked explicitly for better messages

	header, err := r.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return 0, 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return created, skipped, err
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return created, skipped, fmt.Errorf("read: %w", err)
		}
		line, _ := r.FieldPos(0)

		if len(rec) != len(expectedHeaders) {
			return created, skipped, fmt.Errorf("invalid column count on line %d: expected %d got %d", line, len(expectedHeaders), len(rec))
		}

		row, err := recordToRow(rec)
		if err != nil {
			return created, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		row.Line = line

		if _, err := opener.OpenAccount(ctx, row.Account, row.Balances); err != nil {
			if errors.Is(err, models.ErrAccountExists) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("line %d: open account %q: %w", line, row.Account, err)
		}
		created++
	}

	return created, skipped, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedHeaders) {
		return fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(h), expectedHeaders[i]) {
			return fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}
	return nil
}

// recordToRow converts a record of length 3 into an AccountRow.
// Empty balance cells become zero; a comma is accepted as decimal separator.
func recordToRow(rec []string) (AccountRow, error) {
	var row AccountRow

	row.Account = strings.TrimSpace(rec[0])
	if row.Account == "" {
		return row, errors.New("empty account id")
	}

	stb, err := parseAmount(rec[1])
	if err != nil {
		return row, fmt.Errorf("invalid stb: %w", err)
	}
	gnr, err := parseAmount(rec[2])
	if err != nil {
		return row, fmt.Errorf("invalid gnr: %w", err)
	}
	row.Balances = models.NewBalances(stb, gnr)
	return row, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

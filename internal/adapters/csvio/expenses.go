package csvio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// ExpenseReader streams raw expense records in input order.
type ExpenseReader struct {
	t      *table
	regCol string
	read   int
}

// OpenExpenses opens a comma-delimited expense file and checks its header.
// The registration column may be REG_ANS or RegistroANS.
func OpenExpenses(path string, opts ...ReadOption) (*ExpenseReader, error) {
	cfg, err := newReadConfig(opts)
	if err != nil {
		return nil, err
	}
	t, err := openTable(path, ',', cfg)
	if err != nil {
		return nil, fmt.Errorf("expenses: %w", err)
	}
	if err := t.require(expenseRequired...); err != nil {
		_ = t.close()
		return nil, fmt.Errorf("expenses: %w", err)
	}

	regCol := ColRegANS
	if !t.has(regCol) {
		regCol = ColRegistrationID
	}
	if !t.has(regCol) {
		_ = t.close()
		return nil, fmt.Errorf("expenses: %w: %s or %s in %s", ErrMissingColumn, ColRegANS, ColRegistrationID, path)
	}
	return &ExpenseReader{t: t, regCol: regCol}, nil
}

// Next returns up to n records. It returns io.EOF once the file is exhausted,
// and ErrEmptyFile when the file had a header but no rows.
func (r *ExpenseReader) Next(ctx context.Context, n int) ([]model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}
	out := make([]model.RawRecord, 0, n)
	for len(out) < n {
		row, line, err := r.t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("expenses: %w", err)
		}
		out = append(out, model.RawRecord{
			Line:           line,
			RegistrationID: r.t.get(row, r.regCol),
			CompanyName:    r.t.get(row, ColCompanyName),
			State:          r.t.get(row, ColState),
			Quarter:        r.t.get(row, ColQuarter),
			Year:           r.t.get(row, ColYear),
			TaxID:          r.t.get(row, ColTaxID),
			ExpenseValue:   r.t.get(row, ColExpense),
			Category:       r.t.get(row, ColCategory),
		})
	}
	r.read += len(out)
	if len(out) == 0 {
		if r.read == 0 {
			return nil, fmt.Errorf("expenses: %w: %s", ErrEmptyFile, r.t.path)
		}
		return nil, io.EOF
	}
	return out, nil
}

// Read returns the number of records returned so far.
func (r *ExpenseReader) Read() int { return r.read }

// Close releases the underlying file.
func (r *ExpenseReader) Close() error { return r.t.close() }

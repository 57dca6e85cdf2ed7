package csvio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// EnrichedWriter writes enriched records. In staging mode it also keeps the
// source line, the registry name and the match marker so the records can be
// read back unchanged.
type EnrichedWriter struct {
	w       *StreamWriter
	staging bool
}

// CreateEnriched creates the final enriched output at path.
func CreateEnriched(path string) (*EnrichedWriter, error) {
	w, err := CreateStreamWriter(path, EnrichedHeader)
	if err != nil {
		return nil, err
	}
	return &EnrichedWriter{w: w}, nil
}

// CreateStaging creates an intermediate enriched file at path.
func CreateStaging(path string) (*EnrichedWriter, error) {
	w, err := CreateStreamWriter(path, stagingHeader)
	if err != nil {
		return nil, err
	}
	return &EnrichedWriter{w: w, staging: true}, nil
}

// Write appends records in order.
func (e *EnrichedWriter) Write(recs []model.EnrichedRecord) error {
	for _, r := range recs {
		row := []string{
			r.TaxID,
			r.CompanyName,
			strconv.Itoa(r.Quarter),
			strconv.Itoa(r.Year),
			r.ExpenseValue,
			r.RegistrationID,
			r.Category,
			r.State,
			FormatBool(r.CadastroIncompleto),
			FormatBool(r.CNPJConflict),
			FormatBool(r.CNPJInvalido),
			FormatBool(r.RazaoSocialAusente),
		}
		if e.staging {
			row = append(row, strconv.Itoa(r.Line), r.OfficialName, FormatBool(r.RegistryMatched))
		}
		if err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the number of records written.
func (e *EnrichedWriter) Rows() int { return e.w.Rows() }

// Close flushes the file.
func (e *EnrichedWriter) Close() error { return e.w.Close() }

// EnrichedReader streams records back from a file written by EnrichedWriter.
type EnrichedReader struct {
	t *table
}

// OpenEnriched opens an enriched or staging file.
func OpenEnriched(path string) (*EnrichedReader, error) {
	t, err := openTable(path, ',', readConfig{encoding: EncodingUTF8})
	if err != nil {
		return nil, fmt.Errorf("enriched: %w", err)
	}
	if err := t.require(EnrichedHeader...); err != nil {
		_ = t.close()
		return nil, fmt.Errorf("enriched: %w", err)
	}
	return &EnrichedReader{t: t}, nil
}

// Next returns up to n records, or io.EOF when none remain.
func (r *EnrichedReader) Next(ctx context.Context, n int) ([]model.EnrichedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}
	out := make([]model.EnrichedRecord, 0, n)
	for len(out) < n {
		row, line, err := r.t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("enriched: %w", err)
		}
		rec, err := r.decode(row, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

func (r *EnrichedReader) decode(row []string, line int) (model.EnrichedRecord, error) {
	q, err := strconv.Atoi(r.t.get(row, ColQuarter))
	if err != nil {
		return model.EnrichedRecord{}, fmt.Errorf("enriched: %w: line %d: %s", ErrMalformedRow, line, ColQuarter)
	}
	y, err := strconv.Atoi(r.t.get(row, ColYear))
	if err != nil {
		return model.EnrichedRecord{}, fmt.Errorf("enriched: %w: line %d: %s", ErrMalformedRow, line, ColYear)
	}
	rec := model.EnrichedRecord{
		Line:           line,
		RegistrationID: r.t.get(row, ColRegistrationID),
		CompanyName:    r.t.get(row, ColCompanyName),
		OfficialName:   r.t.get(row, ColOfficialName),
		State:          r.t.get(row, ColState),
		Quarter:        q,
		Year:           y,
		TaxID:          r.t.get(row, ColTaxID),
		Category:       r.t.get(row, ColCategory),
		ExpenseValue:   r.t.get(row, ColExpense),
		Flags: model.Flags{
			CadastroIncompleto: ParseBool(r.t.get(row, ColCadastroIncompleto)),
			RazaoSocialAusente: ParseBool(r.t.get(row, ColRazaoSocialAusente)),
			CNPJConflict:       ParseBool(r.t.get(row, ColCNPJConflict)),
			CNPJInvalido:       ParseBool(r.t.get(row, ColCNPJInvalido)),
		},
	}
	if r.t.has(ColLine) {
		if l, err := strconv.Atoi(r.t.get(row, ColLine)); err == nil {
			rec.Line = l
		}
		rec.RegistryMatched = ParseBool(r.t.get(row, ColMatched))
	}
	return rec, nil
}

// Close releases the underlying file.
func (r *EnrichedReader) Close() error { return r.t.close() }

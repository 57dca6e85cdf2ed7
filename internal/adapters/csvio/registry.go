package csvio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// RegistryDelimiter separates fields in the ANS registry extract.
const RegistryDelimiter = ';'

// ReadRegistry loads every row of the registry file. Extra columns are ignored.
func ReadRegistry(ctx context.Context, path string, opts ...ReadOption) ([]model.RegistryEntry, error) {
	cfg, err := newReadConfig(opts)
	if err != nil {
		return nil, err
	}
	t, err := openTable(path, RegistryDelimiter, cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	defer func() { _ = t.close() }()

	if err := t.require(registryRequired...); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	var entries []model.RegistryEntry
	for {
		if len(entries)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, _, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		entries = append(entries, model.RegistryEntry{
			RegistrationID: t.get(row, ColRegistryID),
			OfficialName:   t.get(row, ColRegistryName),
			TaxID:          t.get(row, ColRegistryTax),
			Category:       t.get(row, ColRegistryCat),
			State:          t.get(row, ColRegistryUF),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("registry: %w: %s", ErrEmptyFile, path)
	}
	return entries, nil
}

package sampledata

import (
	"path/filepath"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
)

// File names inside Config.Dir.
const (
	RegistryFile = "Relatorio_cadop.csv"
	ExpensesFile = "consolidado_despesas.csv"
)

// Write saves the registry and the expense extract under dir and returns their paths.
func (ds *Dataset) Write(dir string) (registryPath, expensesPath string, err error) {
	registryPath = filepath.Join(dir, RegistryFile)
	expensesPath = filepath.Join(dir, ExpensesFile)

	reg, err := csvio.CreateStreamWriter(registryPath,
		[]string{csvio.ColRegistryID, csvio.ColRegistryTax, csvio.ColRegistryName, csvio.ColRegistryCat, csvio.ColRegistryUF},
		csvio.WithDelimiter(csvio.RegistryDelimiter))
	if err != nil {
		return "", "", err
	}
	for _, e := range ds.Registry {
		if err := reg.Write([]string{e.RegistrationID, e.TaxID, e.OfficialName, e.Category, e.State}); err != nil {
			_ = reg.Close()
			return "", "", err
		}
	}
	if err := reg.Close(); err != nil {
		return "", "", err
	}

	exp, err := csvio.CreateStreamWriter(expensesPath, []string{
		csvio.ColTaxID, csvio.ColCompanyName, csvio.ColQuarter, csvio.ColYear, csvio.ColExpense,
		csvio.ColRegANS, csvio.ColCategory, csvio.ColState,
	})
	if err != nil {
		return "", "", err
	}
	for _, r := range ds.Expenses {
		if err := exp.Write([]string{r.TaxID, r.CompanyName, r.Quarter, r.Year, r.ExpenseValue, r.RegistrationID, r.Category, r.State}); err != nil {
			_ = exp.Close()
			return "", "", err
		}
	}
	if err := exp.Close(); err != nil {
		return "", "", err
	}
	return registryPath, expensesPath, nil
}

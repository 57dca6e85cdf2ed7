package csvio_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestReadRegistry(t *testing.T) {
	ctx := context.Background()

	Convey("Given a semicolon delimited registry", t, func() {
		path := writeFile(t, "cadop.csv", []byte(
			"REGISTRO_OPERADORA;CNPJ;Razao_Social;Nome_Fantasia;Modalidade;UF\n"+
				"123456;11222333000181;ACME SAUDE;ACME;Medicina de Grupo;SP\n"+
				" 654321 ; 00000000000191 ;BETA;;Cooperativa Medica;RJ\n"))

		Convey("When it is read", func() {
			entries, err := csvio.ReadRegistry(ctx, path)

			Convey("Then rows are trimmed and extra columns ignored", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0], ShouldResemble, model.RegistryEntry{
					RegistrationID: "123456", OfficialName: "ACME SAUDE", TaxID: "11222333000181",
					Category: "Medicina de Grupo", State: "SP",
				})
				So(entries[1].RegistrationID, ShouldEqual, "654321")
				So(entries[1].TaxID, ShouldEqual, "00000000000191")
			})
		})
	})

	Convey("Given a registry missing a required column", t, func() {
		path := writeFile(t, "cadop.csv", []byte("REGISTRO_OPERADORA;CNPJ;Razao_Social;UF\n1;2;X;SP\n"))

		Convey("Then reading fails with ErrMissingColumn", func() {
			_, err := csvio.ReadRegistry(ctx, path)
			So(errors.Is(err, csvio.ErrMissingColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Modalidade")
		})
	})

	Convey("Given an empty or absent registry", t, func() {
		empty := writeFile(t, "empty.csv", nil)
		headerOnly := writeFile(t, "header.csv", []byte("REGISTRO_OPERADORA;CNPJ;Razao_Social;Modalidade;UF\n"))

		Convey("Then each is a structural error", func() {
			_, err := csvio.ReadRegistry(ctx, empty)
			So(errors.Is(err, csvio.ErrEmptyFile), ShouldBeTrue)
			_, err = csvio.ReadRegistry(ctx, headerOnly)
			So(errors.Is(err, csvio.ErrEmptyFile), ShouldBeTrue)
			_, err = csvio.ReadRegistry(ctx, filepath.Join(t.TempDir(), "missing.csv"))
			So(errors.Is(err, csvio.ErrUnreadable), ShouldBeTrue)
		})
	})
}

func TestExpenseReader(t *testing.T) {
	ctx := context.Background()

	Convey("Given an expense file with a BOM and REG_ANS column", t, func() {
		body := "\xEF\xBB\xBFCNPJ,RazaoSocial,Trimestre,Ano,ValorDespesas,REG_ANS\n" +
			"11222333000181,ACME,1T2024,2024,\"1.234,56\",123456\n" +
			"11222333000181,ACME,2,2024,100.00,123456\n" +
			"00000000000191,BETA,3T2024,2024,50,654321\n"
		path := writeFile(t, "despesas.csv", []byte(body))

		Convey("When read in chunks of two", func() {
			r, err := csvio.OpenExpenses(path)
			So(err, ShouldBeNil)
			defer r.Close()

			first, err := r.Next(ctx, 2)
			So(err, ShouldBeNil)
			second, err := r.Next(ctx, 2)
			So(err, ShouldBeNil)
			_, err = r.Next(ctx, 2)

			Convey("Then records keep order, lines and raw strings", func() {
				So(first, ShouldHaveLength, 2)
				So(second, ShouldHaveLength, 1)
				So(errors.Is(err, io.EOF), ShouldBeTrue)
				So(r.Read(), ShouldEqual, 3)

				So(first[0].Line, ShouldEqual, 2)
				So(first[0].TaxID, ShouldEqual, "11222333000181")
				So(first[0].Quarter, ShouldEqual, "1T2024")
				So(first[0].ExpenseValue, ShouldEqual, "1.234,56")
				So(first[0].RegistrationID, ShouldEqual, "123456")
				So(first[0].State, ShouldEqual, "")
				So(second[0].Line, ShouldEqual, 4)
				So(second[0].TaxID, ShouldEqual, "00000000000191")
			})
		})
	})

	Convey("Given a Latin-1 expense file using RegistroANS", t, func() {
		body := []byte("CNPJ,RazaoSocial,Trimestre,Ano,ValorDespesas,RegistroANS,UF\n" +
			"1,Sa\xfade Total,1,2024,10,99,MG\n")
		path := writeFile(t, "latin.csv", body)

		Convey("When opened with the latin1 encoding", func() {
			r, err := csvio.OpenExpenses(path, csvio.WithEncoding("ISO-8859-1"))
			So(err, ShouldBeNil)
			defer r.Close()
			recs, err := r.Next(ctx, 10)

			Convey("Then text is decoded to UTF-8", func() {
				So(err, ShouldBeNil)
				So(recs[0].CompanyName, ShouldEqual, "Saúde Total")
				So(recs[0].RegistrationID, ShouldEqual, "99")
				So(recs[0].State, ShouldEqual, "MG")
			})
		})
	})

	Convey("Given structurally broken expense files", t, func() {
		noReg := writeFile(t, "noreg.csv", []byte("CNPJ,RazaoSocial,Trimestre,Ano,ValorDespesas\n1,A,1,2024,1\n"))
		noValue := writeFile(t, "novalue.csv", []byte("CNPJ,RazaoSocial,Trimestre,Ano,REG_ANS\n1,A,1,2024,1\n"))
		headerOnly := writeFile(t, "header.csv", []byte("CNPJ,RazaoSocial,Trimestre,Ano,ValorDespesas,REG_ANS\n"))

		Convey("Then they fail with structural errors", func() {
			_, err := csvio.OpenExpenses(noReg)
			So(errors.Is(err, csvio.ErrMissingColumn), ShouldBeTrue)

			_, err = csvio.OpenExpenses(noValue)
			So(errors.Is(err, csvio.ErrMissingColumn), ShouldBeTrue)

			r, err := csvio.OpenExpenses(headerOnly)
			So(err, ShouldBeNil)
			defer r.Close()
			_, err = r.Next(ctx, 10)
			So(errors.Is(err, csvio.ErrEmptyFile), ShouldBeTrue)

			_, err = csvio.OpenExpenses(headerOnly, csvio.WithEncoding("utf-16"))
			So(errors.Is(err, csvio.ErrEncoding), ShouldBeTrue)
		})
	})
}

func TestStagingRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given enriched records written to a staging file", t, func() {
		path := filepath.Join(t.TempDir(), "stage", "enriched.csv")
		recs := []model.EnrichedRecord{
			{
				Line: 7, RegistrationID: "123456", CompanyName: "ACME", OfficialName: "ACME SAUDE",
				State: "SP", Quarter: 2, Year: 2024, TaxID: "11222333000181", Category: "Medicina de Grupo",
				ExpenseValue: "1.234,56", RegistryMatched: true,
				Flags: model.Flags{CNPJConflict: true},
			},
			{
				Line: 9, RegistrationID: "999", CompanyName: "OPERADORA [999]", Quarter: 1, Year: 2025,
				ExpenseValue: "10", Flags: model.Flags{CadastroIncompleto: true, RazaoSocialAusente: true},
			},
		}
		w, err := csvio.CreateStaging(path)
		So(err, ShouldBeNil)
		So(w.Write(recs), ShouldBeNil)
		So(w.Rows(), ShouldEqual, 2)
		So(w.Close(), ShouldBeNil)

		Convey("When read back", func() {
			r, err := csvio.OpenEnriched(path)
			So(err, ShouldBeNil)
			defer r.Close()
			got, err := r.Next(ctx, 10)

			Convey("Then every field survives", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, recs)
			})
		})
	})

	Convey("Given the final enriched output", t, func() {
		path := filepath.Join(t.TempDir(), "final.csv")
		w, err := csvio.CreateEnriched(path)
		So(err, ShouldBeNil)
		So(w.Write([]model.EnrichedRecord{{TaxID: "1", CompanyName: "A", Quarter: 1, Year: 2024, ExpenseValue: "5"}}), ShouldBeNil)
		So(w.Close(), ShouldBeNil)

		Convey("Then staging columns are absent and booleans are capitalized", func() {
			lines := readLines(t, path)
			So(lines[0], ShouldEqual, strings.Join(csvio.EnrichedHeader, ","))
			So(lines[1], ShouldEqual, "1,A,1,2024,5,,,,False,False,False,False")
		})
	})
}

func TestReportWriters(t *testing.T) {
	Convey("Given report rows", t, func() {
		dir := t.TempDir()

		Convey("When aggregated rows are written", func() {
			path := filepath.Join(dir, "agg.csv")
			So(csvio.WriteAggregated(path, []model.AggregatedRecord{{
				AggregateKey: model.AggregateKey{CompanyName: "ACME", State: "SP", Quarter: 1, Year: 2024},
				TaxID:        "11222333000181", RegistrationID: "123456", Category: "Coop",
				TotalExpense: 123456, Flags: model.Flags{CNPJConflict: true},
			}}), ShouldBeNil)

			lines := readLines(t, path)
			So(lines[1], ShouldEqual, "ACME,SP,1,2024,11222333000181,123456,Coop,1234.56,True,False,False,False")
		})

		Convey("When conflicts are written", func() {
			path := filepath.Join(dir, "logs", "conflicts.csv")
			So(csvio.WriteConflicts(path, []model.ConflictEntry{{
				TaxID: "11222333000181", NamesFound: []string{"ACME", "ACME LTDA"}, Canonical: "ACME LTDA",
			}}), ShouldBeNil)

			lines := readLines(t, path)
			So(lines[0], ShouldEqual, "CNPJ,RazoesEncontradas")
			So(lines[1], ShouldEqual, "11222333000181,ACME | ACME LTDA")
		})

		Convey("When empty side reports are written", func() {
			unmatched := filepath.Join(dir, "unmatched.csv")
			invalid := filepath.Join(dir, "invalid.csv")
			issuesPath := filepath.Join(dir, "issues.csv")
			So(csvio.WriteUnmatched(unmatched, nil), ShouldBeNil)
			So(csvio.WriteInvalid(invalid, nil), ShouldBeNil)
			So(csvio.WriteIssues(issuesPath, nil), ShouldBeNil)

			So(readLines(t, unmatched), ShouldResemble, []string{"RegistroANS,QuantidadeRegistros,RazaoSocialPlaceholder"})
			So(readLines(t, invalid), ShouldResemble, []string{"CNPJ,RegistroANS,RazaoSocial,QuantidadeRegistros"})
			So(readLines(t, issuesPath), ShouldResemble, []string{"Linha,Tipo,Campo,Valor,Detalhe"})
		})

		Convey("When issues are written", func() {
			path := filepath.Join(dir, "issues.csv")
			So(csvio.WriteIssues(path, []issues.Issue{{
				Line: 3, Kind: issues.InvalidQuarter, Field: "Trimestre", Value: "5T2024", Detail: "out of range",
			}}), ShouldBeNil)
			So(readLines(t, path)[1], ShouldEqual, "3,invalid_quarter,Trimestre,5T2024,out of range")
		})

		Convey("When metrics are written and read back", func() {
			path := filepath.Join(dir, "metrics", "metricas.csv")
			in := []model.OperatorMetric{{
				Ranking: 1, CompanyName: "ACME", State: "SP", TotalExpense: 400, MeanQuarterly: 200,
				StdDev: 141.42, CoefficientOfVariation: 0.7071, HighVariability: true, QuarterCount: 2,
				Flags: model.Flags{RazaoSocialAusente: true}, RegistrationID: "123456", Category: "Coop", TaxID: "1",
			}}
			So(csvio.WriteMetrics(path, in), ShouldBeNil)

			lines := readLines(t, path)
			So(lines[1], ShouldEqual, "1,ACME,SP,400.00,200.00,141.42,0.7071,True,2,False,True,False,123456,Coop,1")

			out, err := csvio.ReadMetrics(path)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, in)
		})
	})
}

func TestFormatting(t *testing.T) {
	Convey("Given boolean and numeric values", t, func() {
		So(csvio.FormatBool(true), ShouldEqual, "True")
		So(csvio.FormatBool(false), ShouldEqual, "False")
		So(csvio.ParseBool("TRUE"), ShouldBeTrue)
		So(csvio.ParseBool("1"), ShouldBeTrue)
		So(csvio.ParseBool("yes"), ShouldBeTrue)
		So(csvio.ParseBool("False"), ShouldBeFalse)
		So(csvio.ParseBool(""), ShouldBeFalse)
		So(csvio.FormatMoney(1234.5), ShouldEqual, "1234.50")
		So(csvio.FormatRatio(0.70710678), ShouldEqual, "0.7071")
	})

	Convey("Given encoding names", t, func() {
		for in, want := range map[string]string{
			"": csvio.EncodingUTF8, "UTF8": csvio.EncodingUTF8, "latin1": csvio.EncodingLatin1, "iso-8859-1": csvio.EncodingLatin1,
		} {
			got, err := csvio.NormalizeEncoding(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
	})
}

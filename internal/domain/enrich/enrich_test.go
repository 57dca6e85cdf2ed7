package enrich_test

import (
	"context"
	"errors"
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/domain/enrich"
	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/quarter"
	"github.com/TheMarksan/healthcare-saas/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func newRegistry(ctx context.Context) *registry.Lookup {
	return registry.New(ctx, []model.RegistryEntry{
		{RegistrationID: "100", OfficialName: "Foo Corp", TaxID: "11222333000181", Category: "Medicina de Grupo", State: "SP"},
		{RegistrationID: "200", OfficialName: "Sem Cnpj SA", TaxID: "", Category: "Autogestão", State: "MG"},
	})
}

func TestEnrich(t *testing.T) {
	Convey("Given an enricher over a small registry", t, func() {
		ctx := context.Background()
		col := issues.NewCollector()
		e := enrich.New(newRegistry(ctx), enrich.WithIssues(col))

		Convey("When a record matches the registry", func() {
			rec, err := e.Record(ctx, model.RawRecord{
				Line: 2, RegistrationID: " 100 ", CompanyName: "Foo Ltd", State: "RJ",
				Quarter: "1T2024", Year: "2024", TaxID: "99999999999999", ExpenseValue: "10,5", Category: "x",
			})

			Convey("Then registry fields are authoritative and the raw name is kept", func() {
				So(err, ShouldBeNil)
				So(rec.RegistryMatched, ShouldBeTrue)
				So(rec.TaxID, ShouldEqual, "11222333000181")
				So(rec.Category, ShouldEqual, "Medicina de Grupo")
				So(rec.State, ShouldEqual, "SP")
				So(rec.CompanyName, ShouldEqual, "Foo Ltd")
				So(rec.OfficialName, ShouldEqual, "Foo Corp")
				So(rec.Quarter, ShouldEqual, 1)
				So(rec.Year, ShouldEqual, 2024)
				So(rec.ExpenseValue, ShouldEqual, "10,5")
				So(rec.CadastroIncompleto, ShouldBeFalse)
			})
		})

		Convey("When a matched record has no raw name", func() {
			rec, err := e.Record(ctx, model.RawRecord{RegistrationID: "100", Quarter: "2", Year: "2024"})

			Convey("Then the official name fills it", func() {
				So(err, ShouldBeNil)
				So(rec.CompanyName, ShouldEqual, "Foo Corp")
			})
		})

		Convey("When the registry entry has no tax id", func() {
			rec, err := e.Record(ctx, model.RawRecord{RegistrationID: "200", CompanyName: "X", Quarter: "3", Year: "2024", TaxID: "11222333000181"})

			Convey("Then the record is incomplete", func() {
				So(err, ShouldBeNil)
				So(rec.TaxID, ShouldBeEmpty)
				So(rec.CadastroIncompleto, ShouldBeTrue)
			})
		})

		Convey("When a record has no registry match", func() {
			rec, err := e.Record(ctx, model.RawRecord{
				RegistrationID: "999", CompanyName: "Bar", State: "BA", Quarter: "04", Year: "2023",
				TaxID: "11444777000161", Category: "Odontologia de Grupo",
			})

			Convey("Then source fields are kept", func() {
				So(err, ShouldBeNil)
				So(rec.RegistryMatched, ShouldBeFalse)
				So(rec.TaxID, ShouldEqual, "11444777000161")
				So(rec.State, ShouldEqual, "BA")
				So(rec.Category, ShouldEqual, "Odontologia de Grupo")
				So(rec.OfficialName, ShouldBeEmpty)
				So(rec.CadastroIncompleto, ShouldBeFalse)
			})
		})

		Convey("When a chunk contains invalid quarters and years", func() {
			out, res := e.Enrich(ctx, []model.RawRecord{
				{Line: 2, RegistrationID: "100", Quarter: "1", Year: "2024"},
				{Line: 3, RegistrationID: "100", Quarter: "05", Year: "2024"},
				{Line: 4, RegistrationID: "999", Quarter: "2", Year: "20x4"},
				{Line: 5, RegistrationID: "999", Quarter: "4T2024", Year: "2024"},
			})

			Convey("Then invalid records are dropped and recorded as issues", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].Line, ShouldEqual, 2)
				So(out[1].Line, ShouldEqual, 5)
				So(res, ShouldResemble, enrich.Result{Accepted: 2, Rejected: 2, Matched: 1, Unmatched: 1})
				So(col.Count(issues.InvalidQuarter), ShouldEqual, 1)
				So(col.Count(issues.InvalidYear), ShouldEqual, 1)
				So(col.Issues()[0].Line, ShouldEqual, 3)
			})
		})

		Convey("When Record rejects a value", func() {
			_, err := e.Record(ctx, model.RawRecord{Quarter: "Q9", Year: "2024"})

			Convey("Then the error wraps both causes", func() {
				So(errors.Is(err, enrich.ErrRejected), ShouldBeTrue)
				So(errors.Is(err, quarter.ErrInvalidFormat), ShouldBeTrue)
			})
		})
	})
}

func TestResultAdd(t *testing.T) {
	Convey("Given two results", t, func() {
		r := enrich.Result{Accepted: 1, Rejected: 2}
		r.Add(enrich.Result{Accepted: 3, Matched: 1, Unmatched: 2})
		So(r, ShouldResemble, enrich.Result{Accepted: 4, Rejected: 2, Matched: 1, Unmatched: 2})
	})
}

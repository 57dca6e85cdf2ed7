package validate_test

import (
	"context"
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFlagger(t *testing.T) {
	Convey("Given a flagger", t, func() {
		ctx := context.Background()
		f := validate.NewFlagger()

		Convey("When a record has no company name", func() {
			in := model.EnrichedRecord{RegistrationID: "123"}
			out := f.Flag(in)

			Convey("Then a placeholder is applied on a copy", func() {
				So(out.CompanyName, ShouldEqual, "OPERADORA [123]")
				So(out.RazaoSocialAusente, ShouldBeTrue)
				So(in.CompanyName, ShouldBeEmpty)
				So(in.RazaoSocialAusente, ShouldBeFalse)
				So(f.MissingNames(), ShouldEqual, 1)
			})
		})

		Convey("When neither name nor registration is present", func() {
			out := f.Flag(model.EnrichedRecord{})
			So(out.CompanyName, ShouldEqual, "OPERADORA [SEM_REG_ANS]")
		})

		Convey("When tax ids are checked", func() {
			recs := f.FlagAll(ctx, []model.EnrichedRecord{
				{CompanyName: "A", TaxID: "11222333000181"},
				{CompanyName: "B", TaxID: "11222333000182"},
				{CompanyName: "C", TaxID: "11111111111111"},
				{CompanyName: "D", TaxID: "", Flags: model.Flags{CadastroIncompleto: true}},
				{CompanyName: "E", TaxID: "123", Flags: model.Flags{CadastroIncompleto: true}},
			})

			Convey("Then only complete records are validated", func() {
				So(recs, ShouldHaveLength, 5)
				So(recs[0].CNPJInvalido, ShouldBeFalse)
				So(recs[1].CNPJInvalido, ShouldBeTrue)
				So(recs[2].CNPJInvalido, ShouldBeTrue)
				So(recs[3].CNPJInvalido, ShouldBeFalse)
				So(recs[4].CNPJInvalido, ShouldBeFalse)
				So(f.InvalidTaxIDs(), ShouldEqual, 2)
			})
		})

		Convey("When a clean record is flagged", func() {
			out := f.Flag(model.EnrichedRecord{CompanyName: "Foo", TaxID: "11.222.333/0001-81"})

			Convey("Then no flag is raised", func() {
				So(out.Flags.Any(), ShouldBeFalse)
			})
		})
	})
}

func TestUnmatchedTracker(t *testing.T) {
	Convey("Given records with and without registry matches", t, func() {
		ctx := context.Background()
		tr := validate.NewUnmatchedTracker()
		for _, r := range []model.EnrichedRecord{
			{RegistrationID: "1", CompanyName: "One", RegistryMatched: false},
			{RegistrationID: "2", CompanyName: "OPERADORA [2]", RegistryMatched: false},
			{RegistrationID: "2", CompanyName: "Two", RegistryMatched: false},
			{RegistrationID: "3", CompanyName: "Three", RegistryMatched: true},
			{RegistrationID: "", CompanyName: "Nobody"},
			{RegistrationID: "4", CompanyName: "Four"},
		} {
			tr.Observe(ctx, r)
		}

		Convey("Then the report is sorted by count with first names kept", func() {
			rep := tr.Report()
			So(tr.Len(), ShouldEqual, 3)
			So(rep, ShouldResemble, []model.UnmatchedRegistration{
				{RegistrationID: "2", RecordCount: 2, PlaceholderName: "OPERADORA [2]"},
				{RegistrationID: "1", RecordCount: 1, PlaceholderName: "One"},
				{RegistrationID: "4", RecordCount: 1, PlaceholderName: "Four"},
			})
		})
	})
}

func TestInvalidTracker(t *testing.T) {
	Convey("Given flagged records", t, func() {
		ctx := context.Background()
		tr := validate.NewInvalidTracker()
		for _, r := range []model.EnrichedRecord{
			{TaxID: "A", RegistrationID: "10", CompanyName: "Alpha", Flags: model.Flags{CNPJInvalido: true}},
			{TaxID: "B", RegistrationID: "20", CompanyName: "Beta", Flags: model.Flags{CNPJInvalido: true}},
			{TaxID: "B", RegistrationID: "21", CompanyName: "Beta 2", Flags: model.Flags{CNPJInvalido: true}},
			{TaxID: "C", RegistrationID: "30", CompanyName: "Valid"},
		} {
			tr.Observe(ctx, r)
		}

		Convey("Then invalid ids are counted with first registration and name", func() {
			So(tr.Report(), ShouldResemble, []model.InvalidCNPJ{
				{TaxID: "B", RegistrationID: "20", CompanyName: "Beta", RecordCount: 2},
				{TaxID: "A", RegistrationID: "10", CompanyName: "Alpha", RecordCount: 1},
			})
			So(tr.Len(), ShouldEqual, 2)
		})
	})
}

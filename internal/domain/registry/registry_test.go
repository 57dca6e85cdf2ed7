package registry_test

import (
	"context"
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLookup(t *testing.T) {
	Convey("Given a registry with duplicates and padding", t, func() {
		ctx := context.Background()
		col := issues.NewCollector()
		l := registry.New(ctx, []model.RegistryEntry{
			{RegistrationID: " 123456 ", OfficialName: " Foo Corp ", TaxID: "11222333000181", Category: "Cooperativa Médica", State: "SP"},
			{RegistrationID: "123456", OfficialName: "Foo Duplicate", TaxID: "11444777000161"},
			{RegistrationID: "654321", OfficialName: "Bar SA", TaxID: "11222333000181", State: "RJ"},
			{RegistrationID: "", OfficialName: "Orphan"},
		}, registry.WithIssues(col))

		Convey("When looking up by registration", func() {
			e, ok := l.ByRegistration("123456")

			Convey("Then the first entry wins and values are trimmed", func() {
				So(ok, ShouldBeTrue)
				So(e.OfficialName, ShouldEqual, "Foo Corp")
				So(e.Category, ShouldEqual, "Cooperativa Médica")
				So(l.Len(), ShouldEqual, 2)
			})
		})

		Convey("When looking up by tax id", func() {
			e, ok := l.ByTaxID(" 11222333000181")
			_, missing := l.ByTaxID("00000000000191")

			Convey("Then the first registration carrying it is returned", func() {
				So(ok, ShouldBeTrue)
				So(e.RegistrationID, ShouldEqual, "123456")
				So(missing, ShouldBeFalse)
			})
		})

		Convey("Then duplicates are reported as issues", func() {
			So(col.Count(issues.DuplicateRegistration), ShouldEqual, 1)
			So(col.Count(issues.DuplicateTaxID), ShouldEqual, 1)
			So(col.Issues()[0].Line, ShouldEqual, 3)
		})

		Convey("And a discarded duplicate is not indexed by tax id", func() {
			_, ok := l.ByTaxID("11444777000161")
			So(ok, ShouldBeFalse)
		})
	})
}

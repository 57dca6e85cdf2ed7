package model_test

import (
	"sort"
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFlagsMerge(t *testing.T) {
	Convey("Given two flag sets", t, func() {
		a := model.Flags{CadastroIncompleto: true}
		b := model.Flags{CNPJConflict: true}

		Convey("When merged", func() {
			m := a.Merge(b)

			Convey("Then each flag is the OR of both", func() {
				So(m.CadastroIncompleto, ShouldBeTrue)
				So(m.CNPJConflict, ShouldBeTrue)
				So(m.RazaoSocialAusente, ShouldBeFalse)
				So(m.CNPJInvalido, ShouldBeFalse)
				So(m.Any(), ShouldBeTrue)
			})

			Convey("And merge is commutative", func() {
				So(b.Merge(a), ShouldResemble, m)
			})
		})

		Convey("When nothing is set", func() {
			So(model.Flags{}.Any(), ShouldBeFalse)
		})
	})
}

func TestCents(t *testing.T) {
	Convey("Given monetary amounts", t, func() {
		So(model.Cents(123456).String(), ShouldEqual, "1234.56")
		So(model.Cents(5).String(), ShouldEqual, "0.05")
		So(model.Cents(-150).String(), ShouldEqual, "-1.50")
		So(model.Cents(0).String(), ShouldEqual, "0.00")
		So(model.Cents(250).Float(), ShouldAlmostEqual, 2.5)
	})
}

func TestAggregateKeyOrder(t *testing.T) {
	Convey("Given unordered keys", t, func() {
		keys := []model.AggregateKey{
			{CompanyName: "B", State: "SP", Year: 2024, Quarter: 1},
			{CompanyName: "A", State: "SP", Year: 2024, Quarter: 2},
			{CompanyName: "A", State: "RJ", Year: 2025, Quarter: 1},
			{CompanyName: "A", State: "SP", Year: 2023, Quarter: 4},
			{CompanyName: "A", State: "SP", Year: 2024, Quarter: 1},
		}

		Convey("When sorted with Less", func() {
			sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

			Convey("Then the order is name, state, year, quarter", func() {
				So(keys[0], ShouldResemble, model.AggregateKey{CompanyName: "A", State: "RJ", Year: 2025, Quarter: 1})
				So(keys[1], ShouldResemble, model.AggregateKey{CompanyName: "A", State: "SP", Year: 2023, Quarter: 4})
				So(keys[2], ShouldResemble, model.AggregateKey{CompanyName: "A", State: "SP", Year: 2024, Quarter: 1})
				So(keys[3], ShouldResemble, model.AggregateKey{CompanyName: "A", State: "SP", Year: 2024, Quarter: 2})
				So(keys[4].CompanyName, ShouldEqual, "B")
			})
		})
	})
}

func TestPeriod(t *testing.T) {
	Convey("Given records from different quarters", t, func() {
		older := model.EnrichedRecord{Year: 2024, Quarter: 4}
		newer := model.EnrichedRecord{Year: 2025, Quarter: 1}
		So(newer.Period(), ShouldBeGreaterThan, older.Period())
	})
}

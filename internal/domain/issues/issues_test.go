package issues_test

import (
	"testing"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCollector(t *testing.T) {
	Convey("Given a collector capped at two entries", t, func() {
		c := issues.NewCollector(issues.WithMaxStored(2))

		Convey("When three issues are added", func() {
			c.Add(issues.Issue{Line: 2, Kind: issues.InvalidQuarter, Field: "Trimestre", Value: "5"})
			c.Add(issues.Issue{Line: 3, Kind: issues.InvalidAmount, Field: "ValorDespesas", Value: "abc"})
			c.Add(issues.Issue{Line: 4, Kind: issues.InvalidQuarter, Field: "Trimestre", Value: "Q1"})

			Convey("Then counts stay exact while storage is capped", func() {
				So(c.Total(), ShouldEqual, 3)
				So(c.Count(issues.InvalidQuarter), ShouldEqual, 2)
				So(c.Count(issues.InvalidAmount), ShouldEqual, 1)
				So(c.Count(issues.InvalidYear), ShouldEqual, 0)
				So(c.Issues(), ShouldHaveLength, 2)
				So(c.Issues()[0].Line, ShouldEqual, 2)
				So(c.Truncated(), ShouldBeTrue)
				So(c.Kinds(), ShouldResemble, []issues.Kind{issues.InvalidAmount, issues.InvalidQuarter})
			})
		})

		Convey("When nothing is added", func() {
			Convey("Then the collector is empty", func() {
				So(c.Total(), ShouldEqual, 0)
				So(c.Issues(), ShouldBeEmpty)
				So(c.Truncated(), ShouldBeFalse)
			})
		})
	})
}

package trend_test

import (
	"testing"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/trend"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProjectScores(t *testing.T) {
	Convey("Given a score series", t, func() {
		Convey("When it has two points [3, 5]", func() {
			p, err := trend.ProjectScores([]int{3, 5})

			Convey("Then the next point is 7 at t3", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, model.Projection{Time: "t3", Score: 7})
			})
		})

		Convey("When it is falling", func() {
			p, err := trend.ProjectScores([]int{9, 4, 1})

			Convey("Then only the last two points matter", func() {
				So(err, ShouldBeNil)
				So(p.Score, ShouldEqual, -2)
				So(p.Time, ShouldEqual, "t4")
			})
		})

		Convey("When it has one point or none", func() {
			_, errOne := trend.ProjectScores([]int{5})
			_, errNone := trend.ProjectScores(nil)

			Convey("Then projection fails instead of fabricating a point", func() {
				So(errOne, ShouldEqual, trend.ErrInsufficientData)
				So(errNone, ShouldEqual, trend.ErrInsufficientData)
			})
		})
	})
}

func TestProject(t *testing.T) {
	Convey("Given aggregate points", t, func() {
		points := []model.AggregatePoint{{Time: "t1", AggregateScore: 3}, {Time: "t2", AggregateScore: 5}}

		Convey("Then the aggregate score is extrapolated", func() {
			p, err := trend.Project(points)
			So(err, ShouldBeNil)
			So(p.Score, ShouldEqual, 7)
		})

		Convey("And a single point is insufficient", func() {
			_, err := trend.Project(points[:1])
			So(err, ShouldEqual, trend.ErrInsufficientData)
		})
	})
}

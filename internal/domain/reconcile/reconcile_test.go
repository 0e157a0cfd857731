package reconcile_test

import (
	"errors"
	"testing"

	"github.com/okian/classpulse/internal/domain/diagnosis"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/reconcile"
	"github.com/okian/classpulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const skill = "66ab571cc92cc90278b759a1"

func TestRequests(t *testing.T) {
	Convey("Given selection groups", t, func() {
		groups := []reconcile.Group{
			{StudentID: "s1", Skills: []string{skill, "k2"}},
			{StudentID: "s2", Skills: []string{skill}},
			{StudentID: "s1", Skills: []string{skill}},
		}

		Convey("When flattening with the default threshold", func() {
			reqs, err := reconcile.Requests(groups, reconcile.DefaultThreshold)

			Convey("Then one request per unique pair carries the threshold", func() {
				So(err, ShouldBeNil)
				So(reqs, ShouldHaveLength, 3)
				So(reqs[0], ShouldResemble, model.RecommendationRequest{StudentID: "s1", SkillID: skill, Threshold: 0.5})
				So(reqs[2].StudentID, ShouldEqual, "s2")
			})
		})

		Convey("When the threshold is out of range", func() {
			_, err := reconcile.Requests(groups, 1.5)
			So(errors.Is(err, reconcile.ErrInvalidThreshold), ShouldBeTrue)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given requests, candidates and a matrix", t, func() {
		reqs := []model.RecommendationRequest{
			{StudentID: "s1", SkillID: skill, Threshold: 0.5},
			{StudentID: "s2", SkillID: skill, Threshold: 0.5},
			{StudentID: "s3", SkillID: skill, Threshold: 0.5},
			{StudentID: "s1", SkillID: "other", Threshold: 0.5},
		}
		candidates := []reconcile.Candidate{
			{StudentID: "s1", SkillID: skill, Difficulties: []float64{0.456, 0.9}},
			{StudentID: "s2", SkillID: skill, Failed: true},
		}
		m, err := diagnosis.Build([]model.SkillVector{{StudentID: "s1", Skills: map[string]float64{skill: 0.8}}})
		So(err, ShouldBeNil)

		Convey("When merging the sheet for one skill", func() {
			sheet := reconcile.Merge(skill, m.Label(skill), reqs, candidates, m)

			Convey("Then the first candidate wins rounded to two decimals", func() {
				So(sheet.SkillLabel, ShouldEqual, "Plastic")
				So(sheet.Rows, ShouldHaveLength, 3)
				So(sheet.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0.46))
				So(sheet.Rows[0].ActualValue, ShouldResemble, types.MustOf(0.8))
			})

			Convey("Then failed and missing lookups are N/A", func() {
				So(sheet.Rows[1].RecommendedDifficulty.IsNA(), ShouldBeTrue)
				So(sheet.Rows[2].RecommendedDifficulty.IsNA(), ShouldBeTrue)
				So(sheet.Rows[2].ActualValue.IsNA(), ShouldBeTrue)
			})
		})
	})
}

func TestAdjust(t *testing.T) {
	Convey("Given a sheet with numeric and N/A rows", t, func() {
		sheet := model.Sheet{SkillID: skill, Rows: []model.ReconcileRow{
			{StudentID: "s1", SkillID: skill, RecommendedDifficulty: types.MustOf(0.5)},
			{StudentID: "s2", SkillID: skill, RecommendedDifficulty: types.NA()},
		}}

		Convey("When adding then removing 0.1", func() {
			up, err := reconcile.Adjust(sheet, "s1", 0.1, reconcile.DefaultMaxDelta)
			So(err, ShouldBeNil)
			back, err := reconcile.Adjust(up, "s1", -0.1, reconcile.DefaultMaxDelta)
			So(err, ShouldBeNil)

			Convey("Then the value round-trips and the input is unchanged", func() {
				So(up.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0.6))
				So(back.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0.5))
				So(sheet.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0.5))
			})
		})

		Convey("When adjusting an N/A row", func() {
			out, err := reconcile.Adjust(sheet, "s2", 0.3, reconcile.DefaultMaxDelta)

			Convey("Then it is a no-op, not an error", func() {
				So(err, ShouldBeNil)
				So(out.Rows[1].RecommendedDifficulty.IsNA(), ShouldBeTrue)
			})
		})

		Convey("When the delta exceeds the bound", func() {
			_, err := reconcile.Adjust(sheet, "s1", 1.5, 1)
			So(errors.Is(err, reconcile.ErrInvalidDelta), ShouldBeTrue)
		})

		Convey("When the result would go negative", func() {
			out, err := reconcile.Adjust(sheet, "s1", -0.9, 1)
			So(err, ShouldBeNil)
			So(out.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0))
		})

		Convey("When the student is not on the sheet", func() {
			_, err := reconcile.Adjust(sheet, "s9", 0.1, 1)
			So(errors.Is(err, reconcile.ErrStudentNotInSheet), ShouldBeTrue)
		})

		Convey("When an adjustment crosses zero and is undone", func() {
			low := model.Sheet{SkillID: skill, Rows: []model.ReconcileRow{
				{StudentID: "s1", SkillID: skill, RecommendedDifficulty: types.MustOf(0.05)},
			}}
			down, err := reconcile.Adjust(low, "s1", -0.1, reconcile.DefaultMaxDelta)
			So(err, ShouldBeNil)
			back, err := reconcile.Adjust(down, "s1", 0.1, reconcile.DefaultMaxDelta)
			So(err, ShouldBeNil)

			Convey("Then the floor is kept and the value does not return to its start", func() {
				So(down.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0))
				So(back.Rows[0].RecommendedDifficulty, ShouldResemble, types.MustOf(0.1))
			})
		})
	})
}

func TestDifficulties(t *testing.T) {
	Convey("N/A rows are left out of the payload", t, func() {
		sheet := model.Sheet{Rows: []model.ReconcileRow{
			{StudentID: "s1", RecommendedDifficulty: types.MustOf(0.25)},
			{StudentID: "s2"},
		}}
		So(reconcile.Difficulties(sheet), ShouldResemble, []model.DifficultyUpdate{{StudentID: "s1", IdealDifficulty: 0.25}})
	})
}

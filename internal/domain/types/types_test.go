package types_test

import (
	"encoding/json"
	"math"
	"testing"

	types "github.com/okian/classpulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDifficulty(t *testing.T) {
	Convey("Given a difficulty", t, func() {
		Convey("When built from a valid value", func() {
			d, err := types.Of(0.5049)

			Convey("Then it is rounded to two decimals", func() {
				So(err, ShouldBeNil)
				v, ok := d.Value()
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 0.5)
				So(d.String(), ShouldEqual, "0.50")
			})
		})

		Convey("When built from invalid values", func() {
			for _, v := range []float64{-0.1, math.NaN(), math.Inf(1)} {
				_, err := types.Of(v)
				So(err, ShouldEqual, types.ErrInvalidDifficulty)
			}
		})

		Convey("When it is the zero value", func() {
			var d types.Difficulty

			Convey("Then it reads as N/A, not zero", func() {
				So(d.IsNA(), ShouldBeTrue)
				So(d.String(), ShouldEqual, "N/A")
				_, ok := d.Value()
				So(ok, ShouldBeFalse)
				So(types.MustOf(0).IsNA(), ShouldBeFalse)
			})
		})

		Convey("When adjusted up then down by the same delta", func() {
			d := types.MustOf(0.50).Add(0.10).Add(-0.10)

			Convey("Then it returns to the original value", func() {
				So(d, ShouldResemble, types.MustOf(0.50))
			})
		})

		Convey("When adjusting N/A", func() {
			Convey("Then nothing happens", func() {
				So(types.NA().Add(0.1).IsNA(), ShouldBeTrue)
			})
		})

		Convey("When adjusting below zero", func() {
			Convey("Then the result is floored at zero", func() {
				v, _ := types.MustOf(0.05).Add(-0.1).Value()
				So(v, ShouldEqual, 0)
			})
		})
	})
}

func TestDifficultyJSON(t *testing.T) {
	Convey("Given difficulties on the wire", t, func() {
		Convey("When marshaling", func() {
			b, err := json.Marshal([]types.Difficulty{types.MustOf(0.75), types.NA()})

			Convey("Then numbers and the sentinel are distinct", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `[0.75,"N/A"]`)
			})
		})

		Convey("When unmarshaling", func() {
			var got []types.Difficulty
			err := json.Unmarshal([]byte(`[1.234, "N/A", null, 0]`), &got)

			Convey("Then every form is accepted", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 4)
				So(got[0], ShouldResemble, types.MustOf(1.23))
				So(got[1].IsNA(), ShouldBeTrue)
				So(got[2].IsNA(), ShouldBeTrue)
				So(got[3].IsNA(), ShouldBeFalse)
			})
		})

		Convey("When unmarshaling garbage", func() {
			var d types.Difficulty
			So(json.Unmarshal([]byte(`"hard"`), &d), ShouldNotBeNil)
			So(json.Unmarshal([]byte(`-1`), &d), ShouldNotBeNil)
		})
	})
}

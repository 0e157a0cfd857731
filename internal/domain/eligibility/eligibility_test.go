package eligibility_test

import (
	"testing"

	"github.com/okian/classpulse/internal/domain/eligibility"
	"github.com/okian/classpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func roster() []model.RosterEntry {
	return []model.RosterEntry{
		{StudentID: "Alice-01"},
		{StudentID: "bob-02"},
		{StudentID: "ALIBABA"},
		{StudentID: "carol"},
	}
}

func ids(entries []model.RosterEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.StudentID
	}
	return out
}

func TestFilter(t *testing.T) {
	Convey("Given a roster", t, func() {
		Convey("When searching case-insensitively", func() {
			So(ids(eligibility.Filter(roster(), "ali")), ShouldResemble, []string{"Alice-01", "ALIBABA"})
		})

		Convey("When the term is empty", func() {
			So(ids(eligibility.Filter(roster(), "")), ShouldResemble, ids(roster()))
		})

		Convey("When nothing matches", func() {
			So(eligibility.Filter(roster(), "zed"), ShouldBeEmpty)
		})

		Convey("Then the result is always a subset in original order", func() {
			for _, term := range []string{"a", "0", "B", "-", "x"} {
				got := ids(eligibility.Filter(roster(), term))
				pos := -1
				for _, id := range got {
					next := -1
					for i, r := range roster() {
						if r.StudentID == id {
							next = i
						}
					}
					So(next, ShouldBeGreaterThan, pos)
					pos = next
				}
			}
		})
	})
}

func TestJoin(t *testing.T) {
	Convey("Given decisions for some students", t, func() {
		decisions := []model.AdaptationDecision{
			{StudentID: "carol", Type: model.ChangeTopic, Value: "T2"},
			{StudentID: "Alice-01", Type: model.IncreaseBloomLevel, Value: "Applying"},
		}

		Convey("Then only decided students are eligible in roster order", func() {
			got := eligibility.Join(roster(), decisions)
			So(got, ShouldResemble, []model.EligibleStudent{
				{StudentID: "Alice-01", AdaptationType: model.IncreaseBloomLevel, AdaptationValue: "Applying"},
				{StudentID: "carol", AdaptationType: model.ChangeTopic, AdaptationValue: "T2"},
			})
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given candidates", t, func() {
		candidates := eligibility.Candidates(roster(), []model.AdaptationDecision{
			{StudentID: "ALIBABA", Type: model.ChangeTopic, Value: "T3"},
		})

		Convey("When filtering by search only", func() {
			got := eligibility.Apply(model.ViewState{SearchTerm: "ali"}, candidates)
			So(got, ShouldHaveLength, 2)
		})

		Convey("When also restricting to eligible students", func() {
			got := eligibility.Apply(model.ViewState{SearchTerm: "ali", EligibleOnly: true}, candidates)
			So(got, ShouldHaveLength, 1)
			So(eligibility.Eligible(got), ShouldResemble, []model.EligibleStudent{
				{StudentID: "ALIBABA", AdaptationType: model.ChangeTopic, AdaptationValue: "T3"},
			})
		})
	})
}

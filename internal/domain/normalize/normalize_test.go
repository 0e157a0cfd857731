package normalize_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func raw(correct string, topic string) normalize.RawResponse {
	var b json.RawMessage
	if correct != "" {
		b = json.RawMessage(correct)
	}
	return normalize.RawResponse{Correct: b, TopicID: topic}
}

func TestRecords(t *testing.T) {
	Convey("Given records decoded from the student-actions payload", t, func() {
		var records []normalize.RawRecord
		payload := `[
			{"studentID":"student1","responses":[{"correct":true,"topicID":"T1"},{"correct":false,"topicID":"T1"}]},
			{"studentID":"student2","responses":[{"topicID":"T2"}]},
			{"studentID":"student3","responses":[{"correct":"yes","topicID":"T2"}]},
			{"studentID":"","responses":[]},
			{"studentID":"student1","responses":[]},
			{"studentID":"student4","responses":[]}
		]`
		So(json.Unmarshal([]byte(payload), &records), ShouldBeNil)

		Convey("When normalizing", func() {
			res := normalize.Records(records)

			Convey("Then valid records keep input order and entry order", func() {
				So(res.Sequences, ShouldHaveLength, 2)
				So(res.Sequences[0].StudentID, ShouldEqual, "student1")
				So(res.Sequences[0].Responses[0].Correct, ShouldBeTrue)
				So(res.Sequences[0].Responses[1].Correct, ShouldBeFalse)
				So(res.Sequences[1].StudentID, ShouldEqual, "student4")
				So(res.TotalResponses(), ShouldEqual, 2)
			})

			Convey("And every exclusion is reported", func() {
				So(res.Rejected, ShouldHaveLength, 4)
				So(res.Rejected[0].StudentID, ShouldEqual, "student2")
				So(res.Rejected[0].Position, ShouldEqual, 1)
				So(res.Rejected[0].Reason, ShouldEqual, "missing correct")
				So(res.Rejected[1].Reason, ShouldEqual, "correct must be a boolean")
				So(res.Rejected[2].Reason, ShouldEqual, "missing studentID")
				So(res.Rejected[3].Reason, ShouldEqual, "duplicate studentID")
			})

			Convey("And the joined error matches the sentinel", func() {
				err := res.Err()
				So(err, ShouldNotBeNil)
				So(errors.Is(err, normalize.ErrMalformedRecord), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "entry t1")
			})
		})
	})

	Convey("Given only valid records", t, func() {
		res := normalize.Records([]normalize.RawRecord{{StudentID: "a", Responses: []normalize.RawResponse{raw("true", "T")}}})

		Convey("Then no error is reported", func() {
			So(res.Err(), ShouldBeNil)
			So(res.Rejected, ShouldBeEmpty)
		})
	})
}

func TestMap(t *testing.T) {
	Convey("Given an unordered mapping", t, func() {
		logs := map[string][]normalize.RawResponse{
			"zed":   {raw("true", "T1")},
			"amy":   {raw("false", "T1"), raw("true", "T2")},
			"broke": {raw("null", "T1")},
		}

		Convey("When normalizing repeatedly", func() {
			first := normalize.Map(logs)
			second := normalize.Map(logs)

			Convey("Then the output is sorted by student and stable", func() {
				So(first.Sequences, ShouldHaveLength, 2)
				So(first.Sequences[0].StudentID, ShouldEqual, "amy")
				So(first.Sequences[1].StudentID, ShouldEqual, "zed")
				So(second, ShouldResemble, first)
				So(first.Rejected[0].StudentID, ShouldEqual, "broke")
			})
		})
	})
}

func TestIssues(t *testing.T) {
	Convey("Rejections convert to their reporting shape", t, func() {
		res := normalize.Records([]normalize.RawRecord{{StudentID: "s1", Responses: []normalize.RawResponse{raw("1", "T1")}}})
		issues := normalize.Issues(res.Rejected)
		So(issues, ShouldResemble, []model.RecordIssue{{StudentID: "s1", Position: 1, Reason: "correct must be a boolean"}})
		So(normalize.Issues(nil), ShouldNotBeNil)
	})
}

package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/classpulse/internal/adapters/upstream"
	"github.com/okian/classpulse/internal/domain/diagnosis"
	"github.com/okian/classpulse/internal/domain/model"
	"github.com/okian/classpulse/internal/domain/normalize"
	"github.com/okian/classpulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newClient(h http.Handler, opts ...upstream.Option) (*upstream.Client, func()) {
	srv := httptest.NewServer(h)
	opts = append([]upstream.Option{upstream.WithRetries(1, time.Millisecond)}, opts...)
	return upstream.New(srv.URL, opts...), srv.Close
}

func TestReads(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a fake service", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/train", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"status":"trained"}`)
		})
		mux.HandleFunc("/student-actions", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[
				{"studentID":"s1","responses":[{"correct":true,"topicID":"T1"},{"correct":false,"topicID":7}]},
				{"studentID":"s2","responses":[{"topicID":"T1"}]}
			]`)
		})
		mux.HandleFunc("/diagnose", func(w http.ResponseWriter, r *http.Request) {
			var body map[string][]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			out := make([]model.SkillVector, 0, len(body["studentID"]))
			for _, id := range body["studentID"] {
				out = append(out, model.SkillVector{StudentID: id, Skills: map[string]float64{"k": 0.5}})
			}
			_ = json.NewEncoder(w).Encode(out)
		})
		mux.HandleFunc("/eligible-students", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[{"studentID":"s1","currentBloomLevel":"Applying"},{"studentID":"s2"}]`)
		})
		mux.HandleFunc("/get-topics", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("themeName") != "Ocean life" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, `[{"topics":["T1",{"topicID":"T2"},{"name":"T3"},42]}]`)
		})
		c, done := newClient(mux)
		defer done()

		Convey("Then train returns the status", func() {
			status, err := c.Train(ctx)
			So(err, ShouldBeNil)
			So(status, ShouldEqual, "trained")
		})

		Convey("Then student actions keep malformed entries for the normalizer", func() {
			recs, err := c.StudentActions(ctx)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
			So(recs[0].Responses[1].TopicID, ShouldEqual, "7")

			res := normalize.Records(recs)
			So(res.Sequences, ShouldHaveLength, 1)
			So(res.Rejected[0].StudentID, ShouldEqual, "s2")
		})

		Convey("Then diagnose returns one vector per student", func() {
			vecs, err := c.Diagnose(ctx, []string{"s1", "s2"})
			So(err, ShouldBeNil)
			So(vecs, ShouldHaveLength, 2)
			So(vecs[1].Skills["k"], ShouldEqual, 0.5)
		})

		Convey("Then the roster keeps optional levels", func() {
			roster, err := c.EligibleStudents(ctx)
			So(err, ShouldBeNil)
			So(roster[0].CurrentBloomLevel, ShouldEqual, "Applying")
		})

		Convey("Then topics are read from the first element", func() {
			topics, err := c.Topics(ctx, "Ocean life")
			So(err, ShouldBeNil)
			So(topics, ShouldResemble, []string{"T1", "T2", "T3"})
		})

		Convey("Then a 404 is an upstream error and is not retried", func() {
			_, err := c.Topics(ctx, "unknown")
			So(errors.Is(err, upstream.ErrUpstream), ShouldBeTrue)
		})
	})
}

func TestDiagnoseNullMastery(t *testing.T) {
	_ = logger.Init()

	Convey("Given a service that reports a null mastery", t, func() {
		c, done := newClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[{"studentID":"s1","skills":{"k1":null,"k2":0}}]`)
		}))
		defer done()

		vecs, err := c.Diagnose(context.Background(), []string{"s1"})

		Convey("Then the null skill is not diagnosed while a real zero is kept", func() {
			So(err, ShouldBeNil)
			So(vecs, ShouldHaveLength, 1)
			So(vecs[0].Skills, ShouldNotContainKey, "k1")
			So(vecs[0].Skills, ShouldContainKey, "k2")

			m, err := diagnosis.Build(vecs)
			So(err, ShouldBeNil)
			_, err = m.Lookup("s1", "k1")
			So(errors.Is(err, diagnosis.ErrNotFound), ShouldBeTrue)
			v, err := m.Lookup("s1", "k2")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})
	})
}

func TestRecommend(t *testing.T) {
	_ = logger.Init()

	Convey("Given a service that answers part of a batch", t, func() {
		var got []model.RecommendationRequest
		c, done := newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = io.WriteString(w, `[
				{"studentID":"s1","skill":"k","recommendations":[{"difficulty":0.42},{"difficulty":0.9}]},
				{"studentID":"s1","skill":"k","recommendations":[{"difficulty":0.1}]},
				{"studentID":"s2","skill":"k","recommendations":[]}
			]`)
		}))
		defer done()

		reqs := []model.RecommendationRequest{
			{StudentID: "s1", SkillID: "k", Threshold: 0.5},
			{StudentID: "s2", SkillID: "k", Threshold: 0.5},
			{StudentID: "s3", SkillID: "k", Threshold: 0.5},
		}
		cands, err := c.Recommend(context.Background(), reqs)

		Convey("Then the wire payload uses the skill key", func() {
			So(err, ShouldBeNil)
			So(got, ShouldResemble, reqs)
		})

		Convey("Then every request has a candidate in order", func() {
			So(cands, ShouldHaveLength, 3)
			So(cands[0].Difficulties, ShouldResemble, []float64{0.42, 0.9})
			So(cands[1].Difficulties, ShouldBeEmpty)
			So(cands[1].Failed, ShouldBeFalse)
			So(cands[2].Failed, ShouldBeTrue)
		})
	})
}

func TestRetriesAndCancellation(t *testing.T) {
	_ = logger.Init()

	Convey("Given a flaky service", t, func() {
		var calls atomic.Int32
		c, done := newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `ok`)
		}))
		defer done()

		Convey("When an idempotent call hits a 503 first", func() {
			status, err := c.Train(context.Background())

			Convey("Then it is retried", func() {
				So(err, ShouldBeNil)
				So(status, ShouldEqual, "ok")
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When a save call hits a 503", func() {
			err := c.SaveAdaptations(context.Background(), []model.EligibleStudent{{StudentID: "s1"}})

			Convey("Then it is not retried", func() {
				So(errors.Is(err, upstream.ErrUpstream), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		c, done := newClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[]`)
		}))
		defer done()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.EligibleStudents(ctx)
		So(errors.Is(err, upstream.ErrUpstream), ShouldBeTrue)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestDeliver(t *testing.T) {
	_ = logger.Init()

	Convey("Given a service recording saves", t, func() {
		var paths []string
		var bodies []map[string]json.RawMessage
		c, done := newClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var b map[string]json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&b)
			paths = append(paths, r.URL.Path)
			bodies = append(bodies, b)
			w.WriteHeader(http.StatusOK)
		}), upstream.WithRateLimit(100, 1))
		defer done()
		ctx := context.Background()

		So(c.Deliver(ctx, model.Submission{ID: "a", Kind: model.SubmitAdaptations, Adaptations: []model.EligibleStudent{{StudentID: "s1"}}}), ShouldBeNil)
		So(c.Deliver(ctx, model.Submission{ID: "d", Kind: model.SubmitDifficulties, Difficulties: []model.DifficultyUpdate{{StudentID: "s1", IdealDifficulty: 0.3}}}), ShouldBeNil)

		Convey("Then each kind reaches its endpoint with its wrapper key", func() {
			So(paths, ShouldResemble, []string{"/save-adaptations", "/save-difficulties"})
			So(bodies[0], ShouldContainKey, "adaptations")
			So(string(bodies[1]["difficulties"]), ShouldEqual, `[{"studentID":"s1","idealDifficulty":0.3}]`)
		})

		Convey("Then an unknown kind is rejected locally", func() {
			err := c.Deliver(ctx, model.Submission{ID: "x", Kind: "other"})
			So(err, ShouldNotBeNil)
			So(paths, ShouldHaveLength, 2)
		})
	})
}

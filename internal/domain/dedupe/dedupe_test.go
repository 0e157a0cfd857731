package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/classpulse/internal/domain/dedupe"
	"github.com/okian/classpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When created with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it starts empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording submissions", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the ID is new", func() {
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the ID was already seen", func() {
				d.SeenAndRecord(ctx, "sub-1")

				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "sub-1")
			d.Unrecord(ctx, "sub-1")
			d.Unrecord(ctx, "missing")

			Convey("Then the ID can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When bounded at three entries", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"a", "b", "c"} {
				d.SeenAndRecord(ctx, id)
			}
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "d")

			Convey("Then the oldest recorded ID is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))
			for i := 0; i < 500; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 500)
				So(d.SeenAndRecord(ctx, "sub-0"), ShouldBeTrue)
			})
		})
	})
}

func TestConcurrentRecord(t *testing.T) {
	Convey("Given many goroutines racing on the same IDs", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh = make(map[string]int)
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					id := fmt.Sprintf("sub-%d", i)
					if !d.SeenAndRecord(context.Background(), id) {
						mu.Lock()
						fresh[id]++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each ID is recorded as new exactly once", func() {
			So(fresh, ShouldHaveLength, 100)
			for _, n := range fresh {
				So(n, ShouldEqual, 1)
			}
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Given submissions", t, func() {
		a := model.Submission{Kind: model.SubmitAdaptations, Adaptations: []model.EligibleStudent{
			{StudentID: "s1", AdaptationType: model.ChangeTopic, AdaptationValue: "T2"},
		}}

		Convey("Then an explicit ID is used as is", func() {
			So(dedupe.Key(model.Submission{ID: "abc"}), ShouldEqual, "abc")
		})

		Convey("Then identical payloads share a key", func() {
			b := a
			So(dedupe.Key(a), ShouldEqual, dedupe.Key(b))
		})

		Convey("Then different payloads or kinds do not", func() {
			c := a
			c.Adaptations = []model.EligibleStudent{{StudentID: "s2"}}
			d := model.Submission{Kind: model.SubmitDifficulties}
			So(dedupe.Key(a), ShouldNotEqual, dedupe.Key(c))
			So(dedupe.Key(a), ShouldNotEqual, dedupe.Key(d))
		})
	})
}

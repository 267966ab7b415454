package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		r := NewRecorder(WithRegistry(registry), WithNamespace("test"), WithHistogramBuckets([]float64{0.1, 1}))

		Convey("When operations are observed", func() {
			r.ObserveOperation("insert_contests", OutcomeOK, 5*time.Millisecond)
			r.ObserveOperation("insert_contests", OutcomeOK, 5*time.Millisecond)
			r.ObserveOperation("insert_contests", OutcomeError, time.Millisecond)
			r.AddRows("insert_contests", 3)
			r.AddRows("insert_contests", 0)

			Convey("Then counters reflect them", func() {
				So(testutil.ToFloat64(r.operations.WithLabelValues("insert_contests", OutcomeOK)), ShouldEqual, 2.0)
				So(testutil.ToFloat64(r.operations.WithLabelValues("insert_contests", OutcomeError)), ShouldEqual, 1.0)
				So(testutil.ToFloat64(r.rows.WithLabelValues("insert_contests")), ShouldEqual, 3.0)

				count, err := testutil.GatherAndCount(registry, "test_store_operation_duration_seconds")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a recorder with its own subsystem", t, func() {
		registry := prometheus.NewRegistry()
		r := NewRecorder(WithRegistry(registry), WithNamespace("test"), WithSubsystem("ingest"))
		r.AddRows("insert_problems", 4)

		Convey("Then metric names carry that subsystem", func() {
			count, err := testutil.GatherAndCount(registry, "test_ingest_rows_affected_total")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
			count, err = testutil.GatherAndCount(registry, "test_store_rows_affected_total")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 0)
		})
	})

	Convey("Given a nil recorder", t, func() {
		var r *Recorder

		Convey("Then recording is a no-op", func() {
			So(func() {
				r.ObserveOperation("get_contests", OutcomeOK, time.Second)
				r.AddRows("insert_contests", 1)
			}, ShouldNotPanic)
		})
	})

	Convey("Given two recorders on the same registry", t, func() {
		registry := prometheus.NewRegistry()
		NewRecorder(WithRegistry(registry))

		Convey("Then the second registration panics", func() {
			So(func() { NewRecorder(WithRegistry(registry)) }, ShouldPanic)
		})
	})
}
